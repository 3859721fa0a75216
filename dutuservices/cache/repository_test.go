package cache_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lunagic/dutu/dutuservices/cache"
	"gotest.tools/v3/assert"
)

type repositoryEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestRepository(t *testing.T) {
	t.Parallel()

	driver, err := cache.NewDriverMemory(t.Context(), time.Minute)
	assert.NilError(t, err)

	repository := cache.NewRepository[string, repositoryEntry](driver, "entries")
	key := uuid.NewString()

	{ // Miss
		_, err := repository.Get(t.Context(), key)
		assert.ErrorIs(t, err, cache.ErrNotFound)
	}

	{ // Round trip through the driver
		err := repository.Set(t.Context(), key, repositoryEntry{Name: "John", Count: 2}, time.Minute)
		assert.NilError(t, err)

		entry, err := repository.Get(t.Context(), key)
		assert.NilError(t, err)
		assert.DeepEqual(t, entry, repositoryEntry{Name: "John", Count: 2})

		raw, err := driver.Get(t.Context(), "entries-"+key)
		assert.NilError(t, err)
		assert.Equal(t, raw, `{"name":"John","count":2}`)
	}

	{ // Undecodable entries are misses
		err := driver.Set(t.Context(), "entries-broken", "{", time.Minute)
		assert.NilError(t, err)

		_, err = repository.Get(t.Context(), "broken")
		assert.ErrorIs(t, err, cache.ErrNotFound)

		_, err = driver.Get(t.Context(), "entries-broken")
		assert.ErrorIs(t, err, cache.ErrNotFound)
	}

	{ // Delete
		err := repository.Delete(t.Context(), key)
		assert.NilError(t, err)

		_, err = repository.Get(t.Context(), key)
		assert.ErrorIs(t, err, cache.ErrNotFound)
	}
}
