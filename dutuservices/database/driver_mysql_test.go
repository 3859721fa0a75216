package database_test

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/lunagic/dutu/dutuservices/database"
	"github.com/lunagic/dutu/dututest"
)

func Test_DriverMySQL_8(t *testing.T) {
	t.Parallel()
	testSuite(t, setupMySQL(t, "mysql", "8"))
}

func Test_DriverMySQL_MariaDB_11_4(t *testing.T) {
	t.Parallel()
	testSuite(t, setupMySQL(t, "mariadb", "11.4"))
}

func Test_DriverMySQL_MariaDB_10_11(t *testing.T) {
	t.Parallel()
	testSuite(t, setupMySQL(t, "mariadb", "10.11"))
}

func setupMySQL(
	t *testing.T,
	image string,
	tag string,
) database.Driver {
	name := uuid.NewString()
	pass := uuid.NewString()
	user := uuid.NewString()[0:32] // MySQL can't have usernames longer than 32 characters

	return dututest.GetDockerService(
		t,
		dututest.DockerServiceConfig[database.Driver]{
			DockerImage:    image,
			DockerImageTag: tag,
			InternalPort:   3306,
			Environment: map[string]string{
				"MYSQL_ROOT_PASSWORD": uuid.NewString(),
				"MYSQL_PASSWORD":      pass,
				"MYSQL_DATABASE":      name,
				"MYSQL_USER":          user,
			},
			Builder: func(host string, port int) (database.Driver, error) {
				driver := database.NewDriverMySQL(database.DriverMySQLConfig{
					Host: host,
					Port: port,
					User: user,
					Pass: pass,
					Name: name,
				})

				return driver, ping(driver)
			},
		},
	)
}

func ping(driver database.Driver) error {
	db, err := driver.Open()
	if err != nil {
		return err
	}
	defer func(db *sql.DB) {
		_ = db.Close()
	}(db)

	return db.Ping()
}
