package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewDriverMemory keeps entries in process. Expired entries are swept every
// sweepInterval until ctx is done.
func NewDriverMemory(ctx context.Context, sweepInterval time.Duration) (Driver, error) {
	driver := &driverMemory{
		mutex:   &sync.Mutex{},
		entries: map[string]memoryEntry{},
	}

	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				driver.sweep()
			}
		}
	}()

	return driver, nil
}

type driverMemory struct {
	mutex   *sync.Mutex
	entries map[string]memoryEntry
}

func (driver *driverMemory) Delete(ctx context.Context, key string) error {
	driver.mutex.Lock()
	defer driver.mutex.Unlock()

	delete(driver.entries, key)

	return nil
}

func (driver *driverMemory) Get(ctx context.Context, key string) (string, error) {
	driver.mutex.Lock()
	defer driver.mutex.Unlock()

	entry, found := driver.entries[key]
	if !found || !time.Now().Before(entry.expiresAt) {
		return "", ErrNotFound
	}

	return entry.value, nil
}

func (driver *driverMemory) Set(ctx context.Context, key string, value string, duration time.Duration) error {
	driver.mutex.Lock()
	defer driver.mutex.Unlock()

	driver.entries[key] = memoryEntry{
		value:     value,
		expiresAt: time.Now().Add(duration),
	}

	return nil
}

func (driver *driverMemory) sweep() {
	driver.mutex.Lock()
	defer driver.mutex.Unlock()

	now := time.Now()
	for key, entry := range driver.entries {
		if now.Before(entry.expiresAt) {
			continue
		}

		delete(driver.entries, key)
	}
}
