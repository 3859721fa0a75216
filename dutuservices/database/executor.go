package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Executor finalizes and runs a built Statement. The buffered and prepared
// adapters differ only in their Executor.
type Executor interface {
	Binding() Binding
	ResolveFetchStyle(code any) FetchStyle
	Execute(ctx context.Context, statement Statement) error
	AffectedRows(ctx context.Context, statement Statement) (int64, error)
	Fetch(ctx context.Context, statement Statement, style FetchStyle) (Row, error)
	FetchAll(ctx context.Context, statement Statement, style FetchStyle) ([]Row, error)
	FetchInto(ctx context.Context, statement Statement, dest any) error
	FetchAllInto(ctx context.Context, statement Statement, dest any) error
	LastInsertID() (int64, error)
}

// runner holds what both executors share; compile turns a statement into the
// driver query and its arguments.
type runner struct {
	adapter *Adapter
	binding Binding
	codes   fetchCodes
	compile func(statement Statement) (string, []any, error)
}

func (r runner) Binding() Binding {
	return r.binding
}

func (r runner) ResolveFetchStyle(code any) FetchStyle {
	return r.codes.resolve(code)
}

func (r runner) LastInsertID() (int64, error) {
	return r.adapter.lastInsert()
}

func (r runner) prepare(op string, statement Statement) (string, []any, error) {
	query, args, err := r.compile(statement)
	if err != nil {
		return "", nil, &StatementError{Op: op, Query: statement.text, Err: err}
	}

	if query == "" {
		return "", nil, ErrBlankQuery
	}

	return query, args, nil
}

// withStmt prepares query on the pinned connection, hands the statement to fn
// and closes it again.
func (r runner) withStmt(
	ctx context.Context,
	op string,
	query string,
	args []any,
	fn func(conn *sqlx.Conn, stmt *sqlx.Stmt) error,
) error {
	return r.adapter.withConn(ctx, query, args, func(conn *sqlx.Conn) error {
		stmt, err := conn.PreparexContext(ctx, query)
		if err != nil {
			return &StatementError{Op: "prepare", Query: query, Args: args, Err: err}
		}
		defer func() {
			_ = stmt.Close()
		}()

		if err := fn(conn, stmt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNoRows
			}

			return &StatementError{Op: op, Query: query, Args: args, Err: err}
		}

		return nil
	})
}

func (r runner) exec(ctx context.Context, statement Statement) (sql.Result, error) {
	query, args, err := r.prepare("execute", statement)
	if err != nil {
		return nil, err
	}

	var result sql.Result
	if err := r.withStmt(ctx, "execute", query, args, func(conn *sqlx.Conn, stmt *sqlx.Stmt) error {
		var err error
		result, err = stmt.ExecContext(ctx, args...)
		if err != nil {
			return err
		}

		if statement.kind == kindInsert {
			r.adapter.recordInsert(ctx, conn, result)
		}

		return nil
	}); err != nil {
		return nil, err
	}

	if !statement.IsSelect() {
		if err := r.adapter.resultCache.invalidate(ctx, statement.table); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// query reads up to limit rows, or every row when limit is 0, consulting the
// result cache first.
func (r runner) query(ctx context.Context, op string, statement Statement, limit int) ([]string, [][]any, error) {
	query, args, err := r.prepare(op, statement)
	if err != nil {
		return nil, nil, err
	}

	if cached, found := r.adapter.resultCache.lookup(ctx, statement.table, query, args, limit); found {
		return cached.Columns, cached.values(), nil
	}

	columns := []string{}
	rows := [][]any{}
	if err := r.withStmt(ctx, op, query, args, func(conn *sqlx.Conn, stmt *sqlx.Stmt) error {
		result, err := stmt.QueryxContext(ctx, args...)
		if err != nil {
			return err
		}
		defer func() {
			_ = result.Close()
		}()

		columns, err = result.Columns()
		if err != nil {
			return err
		}

		for result.Next() {
			values, err := result.SliceScan()
			if err != nil {
				return err
			}

			rows = append(rows, values)
			if limit > 0 && len(rows) == limit {
				break
			}
		}

		return result.Err()
	}); err != nil {
		return nil, nil, err
	}

	r.adapter.resultCache.store(ctx, statement.table, query, args, limit, columns, rows)

	return columns, rows, nil
}

func (r runner) Execute(ctx context.Context, statement Statement) error {
	_, err := r.exec(ctx, statement)
	return err
}

func (r runner) AffectedRows(ctx context.Context, statement Statement) (int64, error) {
	if statement.IsSelect() {
		_, rows, err := r.query(ctx, "row count", statement, 0)
		if err != nil {
			return 0, err
		}

		return int64(len(rows)), nil
	}

	result, err := r.exec(ctx, statement)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r runner) Fetch(ctx context.Context, statement Statement, style FetchStyle) (Row, error) {
	columns, rows, err := r.query(ctx, "fetch", statement, 1)
	if err != nil {
		return Row{}, err
	}

	if len(rows) == 0 {
		return Row{}, ErrNoRows
	}

	return shapeRow(columns, rows[0], style), nil
}

func (r runner) FetchAll(ctx context.Context, statement Statement, style FetchStyle) ([]Row, error) {
	columns, rows, err := r.query(ctx, "fetch all", statement, 0)
	if err != nil {
		return nil, err
	}

	shaped := make([]Row, 0, len(rows))
	for _, values := range rows {
		shaped = append(shaped, shapeRow(columns, values, style))
	}

	return shaped, nil
}

func (r runner) FetchInto(ctx context.Context, statement Statement, dest any) error {
	query, args, err := r.prepare("fetch", statement)
	if err != nil {
		return err
	}

	return r.withStmt(ctx, "fetch", query, args, func(conn *sqlx.Conn, stmt *sqlx.Stmt) error {
		return stmt.GetContext(ctx, dest, args...)
	})
}

func (r runner) FetchAllInto(ctx context.Context, statement Statement, dest any) error {
	query, args, err := r.prepare("fetch all", statement)
	if err != nil {
		return err
	}

	return r.withStmt(ctx, "fetch all", query, args, func(conn *sqlx.Conn, stmt *sqlx.Stmt) error {
		return stmt.SelectContext(ctx, dest, args...)
	})
}
