package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lunagic/dutu/dutuservices/database/internal/utils"
)

// Config describes where an adapter connects. Every value is a string so it
// can come straight from an environment file.
type Config interface {
	Host() string
	Prefix() string
	DBName() string
	DSN() string
	Username() string
	Password() string
	Port() string
	Socket() string
}

type Driver interface {
	Open() (*sql.DB, error)
	Name() string
	DSN() string
	renderLimit(offset int, max int) string
	renderLiteral(value Value) string
	usesLastInsertId() bool
	dialect() utils.Dialect
}

// DriverFor picks the driver named by the config prefix.
func DriverFor(config Config) (Driver, error) {
	switch strings.ToLower(config.Prefix()) {
	case "mysql":
		port, err := configPort(config, 3306)
		if err != nil {
			return nil, err
		}

		mysqlConfig := DriverMySQLConfig{
			Host: config.Host(),
			Port: port,
			User: config.Username(),
			Pass: config.Password(),
			Name: config.DBName(),
		}
		if strings.HasPrefix(config.Socket(), "/") {
			mysqlConfig.Socket = config.Socket()
		}

		return NewDriverMySQL(mysqlConfig), nil
	case "pgsql", "postgres", "postgresql":
		port, err := configPort(config, 5432)
		if err != nil {
			return nil, err
		}

		return NewDriverPostgres(DriverPostgresConfig{
			Host: config.Host(),
			Port: port,
			User: config.Username(),
			Pass: config.Password(),
			Name: config.DBName(),
		}), nil
	case "sqlite", "sqlite3":
		return NewDriverSQLite(config.DBName()), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, config.Prefix())
}

// configPort reads the port, falling back to a numeric socket value (the
// legacy place the MySQL port was configured) and then to fallback.
func configPort(config Config, fallback int) (int, error) {
	for _, candidate := range []string{config.Port(), config.Socket()} {
		if candidate == "" || strings.HasPrefix(candidate, "/") {
			continue
		}

		port, err := strconv.Atoi(candidate)
		if err != nil {
			return 0, fmt.Errorf("invalid port %q: %w", candidate, err)
		}

		return port, nil
	}

	return fallback, nil
}

func renderCommaLimit(offset int, max int) string {
	if max == 0 {
		return fmt.Sprintf("LIMIT %d", offset)
	}

	return fmt.Sprintf("LIMIT %d, %d", offset, max)
}
