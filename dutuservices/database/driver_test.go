package database_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/lunagic/dutu/dutuservices/database"
	"gotest.tools/v3/assert"
)

type DataRow struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type FileRow struct {
	ID      int64  `db:"id"`
	Content []byte `db:"content"`
}

// createFileTable makes a table with a binary column in the driver's type.
func createFileTable(driver database.Driver) func(db *sql.DB) error {
	binaryType := "BLOB"
	if driver.Name() == "postgres" {
		binaryType = "BYTEA"
	}

	return func(db *sql.DB) error {
		if _, err := db.Exec("DROP TABLE IF EXISTS files"); err != nil {
			return err
		}

		_, err := db.Exec("CREATE TABLE files (id INTEGER PRIMARY KEY, content " + binaryType + ")")

		return err
	}
}

// byID filters on id the way each adapter binds arguments.
func byID(builder database.Builder, adapter *database.Adapter, id int) database.Builder {
	if adapter.Binding() == database.BindingNamed {
		return builder.Where("id = :id", map[string]any{"id": id})
	}

	return builder.Where("id = ?", id)
}

func atLeast(builder database.Builder, adapter *database.Adapter, count int) database.Builder {
	if adapter.Binding() == database.BindingNamed {
		return builder.Having("COUNT(*) >= :count", sql.Named("count", count))
	}

	return builder.Having("COUNT(*) >= ?", count)
}

// testSuite runs the builder against a live database with both adapters.
func testSuite(t *testing.T, driver database.Driver, configFuncs ...database.ConfigFunc) {
	configFuncs = append(configFuncs,
		database.WithLogger(slog.Default()),
		database.WithPostConnectFunc(createDataTable),
		database.WithPostConnectFunc(createFileTable(driver)),
	)

	for _, connect := range []func(ctx context.Context, driver database.Driver, configFuncs ...database.ConfigFunc) (*database.Adapter, error){
		database.NewBuffered,
		database.NewPrepared,
	} {
		adapter, err := connect(t.Context(), driver, configFuncs...)
		assert.NilError(t, err)

		testAdapter(t, adapter)

		assert.NilError(t, adapter.Close())
	}
}

func testAdapter(t *testing.T, adapter *database.Adapter) {
	ctx := t.Context()

	{ // Insert the fixture rows
		affectedRows, err := adapter.Insert("data", database.F("id", 1), database.F("name", "John")).AffectedRows(ctx)
		assert.NilError(t, err)
		assert.Equal(t, affectedRows, int64(1))

		err = adapter.Insert("data", database.F("id", 2), database.F("name", "Jane")).Execute(ctx)
		assert.NilError(t, err)
	}

	{ // Fetch one row by id
		row, err := byID(adapter.Select("data"), adapter, 1).Fetch(ctx)
		assert.NilError(t, err)
		assert.Equal(t, row.Assoc["name"], any("John"))
		assert.Equal(t, fmt.Sprint(row.Assoc["id"]), "1")
		assert.DeepEqual(t, row.Columns(), []string{"id", "name"})
	}

	{ // Count
		row, err := adapter.Select("data").Count("", "total").Fetch(ctx)
		assert.NilError(t, err)
		assert.Equal(t, row.Assoc["total"], any(int64(2)))
	}

	{ // Row count of a select is the rows it returned
		rowCount, err := adapter.Select("data").RowCount(ctx)
		assert.NilError(t, err)
		assert.Equal(t, rowCount, int64(2))
	}

	{ // Fetch style override for one call
		row, err := adapter.Select("data", "name").OrderBy([]string{"id"}, "DESC").Fetch(ctx, database.FetchNum)
		assert.NilError(t, err)
		assert.DeepEqual(t, row.Num, []any{"Jane"})
		assert.Assert(t, row.Assoc == nil)

		value, found := row.Get("name")
		assert.Assert(t, found)
		assert.Equal(t, value, any("Jane"))
	}

	{ // Fetch all in order, and limited
		rows, err := adapter.Select("data", "name").OrderBy([]string{"id"}, "ASC").FetchAll(ctx)
		assert.NilError(t, err)
		assert.Equal(t, len(rows), 2)
		assert.Equal(t, rows[0].Assoc["name"], any("John"))
		assert.Equal(t, rows[0].Num[0], any("John"))
		assert.Equal(t, rows[1].Assoc["name"], any("Jane"))

		rows, err = adapter.Select("data", "name").OrderBy([]string{"id"}, "").Limit(1, 1).FetchAll(ctx)
		assert.NilError(t, err)
		assert.Equal(t, len(rows), 1)
		assert.Equal(t, rows[0].Assoc["name"], any("Jane"))
	}

	{ // Group by and having
		rows, err := atLeast(adapter.Select("data", "name").Count("", "n").GroupBy([]string{"name"}, ""), adapter, 1).FetchAll(ctx)
		assert.NilError(t, err)
		assert.Equal(t, len(rows), 2)
	}

	{ // Update
		affectedRows, err := byID(adapter.Update("data", database.F("name", "Janet")), adapter, 2).AffectedRows(ctx)
		assert.NilError(t, err)
		assert.Equal(t, affectedRows, int64(1))
	}

	{ // Scan into structs
		dataRow := DataRow{}
		err := byID(adapter.Select("data", "id", "name"), adapter, 2).FetchInto(ctx, &dataRow)
		assert.NilError(t, err)
		assert.DeepEqual(t, dataRow, DataRow{ID: 2, Name: "Janet"})

		dataRows := []DataRow{}
		err = adapter.Select("data", "id", "name").OrderBy([]string{"id"}, "").FetchAllInto(ctx, &dataRows)
		assert.NilError(t, err)
		assert.DeepEqual(t, dataRows, []DataRow{{ID: 1, Name: "John"}, {ID: 2, Name: "Janet"}})

		err = byID(adapter.Select("data", "id", "name"), adapter, 99).FetchInto(ctx, &dataRow)
		assert.ErrorIs(t, err, database.ErrNoRows)
	}

	{ // Quotes survive both binding paths
		err := adapter.Insert("data", database.F("id", 3), database.F("name", "O'Neil")).Execute(ctx)
		assert.NilError(t, err)

		row, err := byID(adapter.Select("data", "name"), adapter, 3).Fetch(ctx)
		assert.NilError(t, err)
		assert.Equal(t, row.Assoc["name"], any("O'Neil"))
	}

	{ // Backslashes and binary values survive both binding paths
		err := adapter.Insert("data", database.F("id", 4), database.F("name", `C:\`)).Execute(ctx)
		assert.NilError(t, err)

		row, err := byID(adapter.Select("data", "name"), adapter, 4).Fetch(ctx)
		assert.NilError(t, err)
		assert.Equal(t, row.Assoc["name"], any(`C:\`))

		content := []byte{0x00, 0xca, 0xfe, '\'', '\\'}
		err = adapter.Insert("files", database.F("id", 1), database.F("content", content)).Execute(ctx)
		assert.NilError(t, err)

		fileRow := FileRow{}
		err = byID(adapter.Select("files", "id", "content"), adapter, 1).FetchInto(ctx, &fileRow)
		assert.NilError(t, err)
		assert.DeepEqual(t, fileRow, FileRow{ID: 1, Content: content})
	}

	{ // Delete requires every pair to match
		affectedRows, err := adapter.Delete("data", database.F("id", 1), database.F("name", "Nope")).AffectedRows(ctx)
		assert.NilError(t, err)
		assert.Equal(t, affectedRows, int64(0))

		affectedRows, err = adapter.Delete("data", database.F("id", 1), database.F("name", "John")).AffectedRows(ctx)
		assert.NilError(t, err)
		assert.Equal(t, affectedRows, int64(1))
	}

	{ // Fetching nothing
		_, err := byID(adapter.Select("data"), adapter, 1).Fetch(ctx)
		assert.ErrorIs(t, err, database.ErrNoRows)

		rows, err := byID(adapter.Select("data"), adapter, 1).FetchAll(ctx)
		assert.NilError(t, err)
		assert.Equal(t, len(rows), 0)
	}

	{ // Driver failures are statement errors and keep the query inspectable
		builder := adapter.Select("missing_table")
		_, err := builder.Fetch(ctx)

		statementError := &database.StatementError{}
		assert.Assert(t, errors.As(err, &statementError))
		assert.Equal(t, builder.Query(), "SELECT * FROM missing_table")
	}
}
