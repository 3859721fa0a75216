package database

import (
	"database/sql"
	"fmt"

	"github.com/lunagic/dutu/dutuservices/database/internal/utils"
	_ "github.com/mattn/go-sqlite3"
)

func NewDriverSQLite(path string) Driver {
	return &driverSQLite{
		Path: path,
	}
}

type driverSQLite struct {
	Path string
}

func (driver *driverSQLite) Open() (*sql.DB, error) {
	return sql.Open("sqlite3", driver.dataSource())
}

func (driver *driverSQLite) dataSource() string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", driver.Path)
}

func (driver *driverSQLite) Name() string {
	return "sqlite3"
}

func (driver *driverSQLite) DSN() string {
	return "sqlite:" + driver.dataSource()
}

func (driver *driverSQLite) renderLimit(offset int, max int) string {
	return renderCommaLimit(offset, max)
}

func (driver *driverSQLite) usesLastInsertId() bool {
	return true
}

func (driver *driverSQLite) renderLiteral(value Value) string {
	return value.Literal()
}

func (driver *driverSQLite) dialect() utils.Dialect {
	return utils.Dialect{}
}
