package dututest

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/ory/dockertest"
)

// DockerServiceConfig describes a throwaway container and how to turn its
// published port into a ready client.
type DockerServiceConfig[T any] struct {
	DockerImage    string
	DockerImageTag string
	InternalPort   int
	Environment    map[string]string
	// MaxWait bounds how long Builder is retried; zero keeps the pool default.
	MaxWait time.Duration
	Builder func(host string, port int) (T, error)
}

func (config DockerServiceConfig[T]) Env() []string {
	env := []string{}
	for k, v := range config.Environment {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	return env
}

// GetDockerService starts the container, retries Builder until it succeeds
// and purges the container when the test ends. It skips in short mode.
func GetDockerService[T any](
	t *testing.T,
	config DockerServiceConfig[T],
) T {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping docker backed test in short mode.")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("Could not construct pool: %s", err)
	}

	if config.MaxWait > 0 {
		pool.MaxWait = config.MaxWait
	}

	if err := pool.Client.Ping(); err != nil {
		t.Fatalf("Could not connect to Docker: %s", err)
	}

	resource, err := pool.Run(
		config.DockerImage,
		config.DockerImageTag,
		config.Env(),
	)
	if err != nil {
		t.Fatalf("Could not start %s:%s: %s", config.DockerImage, config.DockerImageTag, err)
	}

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Errorf("Could not purge %s: %s", config.DockerImage, err)
		}
	})

	host, port, err := publishedAddress(resource.GetHostPort(fmt.Sprintf("%d/tcp", config.InternalPort)))
	if err != nil {
		t.Fatalf("Could not resolve %s address: %s", config.DockerImage, err)
	}

	var service T
	if err := pool.Retry(func() error {
		var err error
		service, err = config.Builder(host, port)

		return err
	}); err != nil {
		t.Fatalf("Could not reach %s: %s", config.DockerImage, err)
	}

	return service
}

// publishedAddress prefers the DOCKER_HOST hostname, for remote daemons, over
// the published host.
func publishedAddress(hostPort string) (string, int, error) {
	published, err := url.Parse("tcp://" + hostPort)
	if err != nil {
		return "", 0, err
	}

	port, err := strconv.Atoi(published.Port())
	if err != nil {
		return "", 0, err
	}

	host := published.Hostname()
	if dockerHost := os.Getenv("DOCKER_HOST"); dockerHost != "" {
		daemon, err := url.Parse(dockerHost)
		if err == nil && daemon.Hostname() != "" {
			host = daemon.Hostname()
		}
	}

	return host, port, nil
}
