package database

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lunagic/dutu/dutuservices/database/internal/utils"
)

func NewDriverMySQL(config DriverMySQLConfig) Driver {
	return &driverMySQL{
		config: config,
	}
}

// DriverMySQLConfig connects over Socket when it is set, otherwise over TCP
// to Host and Port.
type DriverMySQLConfig struct {
	Host   string
	Port   int
	Socket string
	User   string
	Pass   string
	Name   string
}

type driverMySQL struct {
	config DriverMySQLConfig
}

func (driver *driverMySQL) mysqlConfig() *mysql.Config {
	config := mysql.NewConfig()
	config.User = driver.config.User
	config.Passwd = driver.config.Pass
	config.DBName = driver.config.Name
	config.ParseTime = true
	_ = config.Apply(mysql.Charset("utf8mb4", ""))

	if driver.config.Socket != "" {
		config.Net = "unix"
		config.Addr = driver.config.Socket
	} else {
		config.Net = "tcp"
		config.Addr = net.JoinHostPort(driver.config.Host, strconv.Itoa(driver.config.Port))
	}

	return config
}

func (driver *driverMySQL) Open() (*sql.DB, error) {
	_ = mysql.SetLogger(log.New(io.Discard, "", log.LstdFlags))

	connector, err := mysql.NewConnector(driver.mysqlConfig())
	if err != nil {
		return nil, err
	}

	return sql.OpenDB(connector), nil
}

func (driver *driverMySQL) Name() string {
	return "mysql"
}

func (driver *driverMySQL) DSN() string {
	config := driver.mysqlConfig()
	config.Passwd = ""

	return fmt.Sprintf("mysql:%s", config.FormatDSN())
}

func (driver *driverMySQL) renderLimit(offset int, max int) string {
	return renderCommaLimit(offset, max)
}

func (driver *driverMySQL) usesLastInsertId() bool {
	return true
}

// MySQL reads a backslash in a string literal as an escape.
func (driver *driverMySQL) renderLiteral(value Value) string {
	if value.Kind() != KindText {
		return value.Literal()
	}

	text := strings.ReplaceAll(value.text, `\`, `\\`)

	return "'" + strings.ReplaceAll(text, "'", "''") + "'"
}

func (driver *driverMySQL) dialect() utils.Dialect {
	return utils.Dialect{BackslashEscapes: true}
}
