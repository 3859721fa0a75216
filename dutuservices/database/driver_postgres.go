package database

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/lunagic/dutu/dutuservices/database/internal/utils"
)

func NewDriverPostgres(config DriverPostgresConfig) Driver {
	return &driverPostgres{
		config: config,
	}
}

type DriverPostgresConfig struct {
	Host string
	Port int
	User string
	Pass string
	Name string
}

type driverPostgres struct {
	config DriverPostgresConfig
}

func (driver *driverPostgres) connectionString(withPassword bool) string {
	pass := ""
	if withPassword {
		pass = driver.config.Pass
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		quoteConnectionValue(driver.config.Host),
		driver.config.Port,
		quoteConnectionValue(driver.config.User),
		quoteConnectionValue(pass),
		quoteConnectionValue(driver.config.Name),
	)
}

func (driver *driverPostgres) Open() (*sql.DB, error) {
	connector, err := pq.NewConnector(driver.connectionString(true))
	if err != nil {
		return nil, err
	}

	return sql.OpenDB(connector), nil
}

func (driver *driverPostgres) Name() string {
	return "postgres"
}

func (driver *driverPostgres) DSN() string {
	return "pgsql:" + driver.connectionString(false)
}

// Postgres has no comma form of LIMIT.
func (driver *driverPostgres) renderLimit(offset int, max int) string {
	if max == 0 {
		return fmt.Sprintf("LIMIT %d", offset)
	}

	return fmt.Sprintf("LIMIT %d OFFSET %d", max, offset)
}

func (driver *driverPostgres) usesLastInsertId() bool {
	return false
}

// X'..' is a bit string in Postgres, so binary goes out as bytea hex.
func (driver *driverPostgres) renderLiteral(value Value) string {
	if value.Kind() != KindBinary {
		return value.Literal()
	}

	return `'\x` + hex.EncodeToString(value.binary) + "'::bytea"
}

func (driver *driverPostgres) dialect() utils.Dialect {
	return utils.Dialect{NumberedParams: true}
}

func quoteConnectionValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `'`, `\'`)

	return "'" + value + "'"
}
