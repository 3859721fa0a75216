package dutu

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/lunagic/dutu/dutuservices/cache"
	"github.com/lunagic/dutu/dutuservices/database"
)

// Config describes the database an adapter connects to and the services
// around it. It satisfies database.Config.
type Config struct {
	// Database
	DatabasePrefix string `env:"DB_PREFIX"`
	DatabaseHost   string `env:"DB_HOST"`
	DatabaseName   string `env:"DB_NAME"`
	DatabaseUser   string `env:"DB_USER"`
	DatabasePass   string `env:"DB_PASS"`
	DatabasePort   string `env:"DB_PORT"`
	DatabaseSocket string `env:"DB_SOCKET"`
	// Drivers
	AppAdapter string `env:"DUTU_ADAPTER"`
	AppCache   string `env:"DUTU_CACHE"`
	// Services
	CacheTTL    time.Duration `env:"DUTU_CACHE_TTL"`
	RedisHost   string        `env:"REDIS_HOST"`
	RedisNumber int           `env:"REDIS_NUMBER"`
	RedisPass   string        `env:"REDIS_PASS"`
	RedisPort   int           `env:"REDIS_PORT"`
	RedisUser   string        `env:"REDIS_USER"`
}

func NewConfig() Config {
	return Config{
		DatabasePrefix: "mysql",
		DatabaseHost:   "127.0.0.1",
		DatabaseName:   "test",
		DatabaseUser:   "root",
		DatabasePass:   "",
		DatabasePort:   "",
		DatabaseSocket: "3306",
		AppAdapter:     "prepared",
		AppCache:       "none",
		CacheTTL:       time.Minute,
		RedisHost:      "127.0.0.1",
		RedisPort:      6379,
	}
}

// LoadConfig parses the given dotenv files (".env" when none are given) and
// the process environment over the defaults. Later files win over earlier
// ones and the process environment wins over every file. Missing files are
// skipped.
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	environment := map[string]string{}
	for _, file := range files {
		values, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}

		maps.Copy(environment, values)
	}

	for _, pair := range os.Environ() {
		key, value, _ := strings.Cut(pair, "=")
		environment[key] = value
	}

	config := NewConfig()
	if err := env.ParseWithOptions(&config, env.Options{Environment: environment}); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (config Config) Host() string {
	return config.DatabaseHost
}

func (config Config) Prefix() string {
	return config.DatabasePrefix
}

func (config Config) DBName() string {
	return config.DatabaseName
}

func (config Config) DSN() string {
	return fmt.Sprintf("%s:host=%s;dbname=%s", config.DatabasePrefix, config.DatabaseHost, config.DatabaseName)
}

func (config Config) Username() string {
	return config.DatabaseUser
}

func (config Config) Password() string {
	return config.DatabasePass
}

func (config Config) Port() string {
	return config.DatabasePort
}

func (config Config) Socket() string {
	return config.DatabaseSocket
}

// Adapter connects the adapter named by AppAdapter. When AppCache names a
// cache, its results are cached for CacheTTL.
func (config Config) Adapter(ctx context.Context, configFuncs ...database.ConfigFunc) (*database.Adapter, error) {
	driver, err := database.DriverFor(config)
	if err != nil {
		return nil, err
	}

	if config.AppCache != "" && config.AppCache != "none" {
		cacheDriver, err := config.Cache(ctx)
		if err != nil {
			return nil, err
		}

		configFuncs = append(configFuncs, database.WithResultCache(cacheDriver, config.CacheTTL))
	}

	switch config.AppAdapter {
	case "buffered":
		return database.NewBuffered(ctx, driver, configFuncs...)
	case "prepared":
		return database.NewPrepared(ctx, driver, configFuncs...)
	}

	return nil, fmt.Errorf("invalid adapter: %s", config.AppAdapter)
}

func (config Config) Cache(ctx context.Context) (cache.Driver, error) {
	switch config.AppCache {
	case "memory":
		return cache.NewDriverMemory(ctx, config.CacheTTL)
	case "redis":
		return cache.NewDriverRedis(cache.DriverRedisConfig{
			Host:   config.RedisHost,
			Number: config.RedisNumber,
			Pass:   config.RedisPass,
			Port:   config.RedisPort,
			User:   config.RedisUser,
		})
	}

	return nil, fmt.Errorf("invalid cache driver: %s", config.AppCache)
}
