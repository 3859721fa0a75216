package cache_test

import (
	"errors"
	"testing"

	"github.com/lunagic/dutu/dutuservices/cache"
	"github.com/lunagic/dutu/dututest"
)

func TestDriverRedis(t *testing.T) {
	t.Parallel()
	testRedisLikeCacheDrivers(t, "redis", "latest")
}

func TestDriverValkey(t *testing.T) {
	t.Parallel()
	testRedisLikeCacheDrivers(t, "valkey/valkey", "latest")
}

func testRedisLikeCacheDrivers(t *testing.T, image string, tag string) {
	driver := dututest.GetDockerService(
		t,
		dututest.DockerServiceConfig[cache.Driver]{
			DockerImage:    image,
			DockerImageTag: tag,
			InternalPort:   6379,
			Environment:    map[string]string{},
			Builder: func(host string, port int) (cache.Driver, error) {
				driver, err := cache.NewDriverRedis(
					cache.DriverRedisConfig{
						Host: host,
						Port: port,
					},
				)
				if err != nil {
					return nil, err
				}

				if _, err := driver.Get(t.Context(), "example"); err != nil {
					if !errors.Is(err, cache.ErrNotFound) {
						return nil, err
					}
				}

				return driver, nil
			},
		},
	)

	testCase(t, driver)
}
