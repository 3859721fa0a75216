package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lunagic/dutu/dutuservices/cache"
)

// resultCache keeps SELECT results keyed by table generation. Writing to a
// table moves it to a new generation, which orphans its cached results. A nil
// resultCache caches nothing.
type resultCache struct {
	generations *cache.Repository[string, string]
	results     *cache.Repository[string, cachedResult]
	ttl         time.Duration
}

type cachedResult struct {
	Columns []string  `json:"columns"`
	Rows    [][]Value `json:"rows"`
}

func (result cachedResult) values() [][]any {
	rows := make([][]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		values := make([]any, 0, len(row))
		for _, value := range row {
			values = append(values, value.Any())
		}

		rows = append(rows, values)
	}

	return rows
}

func newResultCache(driver cache.Driver, prefix string, ttl time.Duration) *resultCache {
	return &resultCache{
		generations: cache.NewRepository[string, string](driver, "dutu-"+prefix+"-generation"),
		results:     cache.NewRepository[string, cachedResult](driver, "dutu-"+prefix+"-result"),
		ttl:         ttl,
	}
}

func (c *resultCache) generation(ctx context.Context, table string) (string, error) {
	generation, err := c.generations.Get(ctx, table)
	if err == nil {
		return generation, nil
	}

	if !errors.Is(err, cache.ErrNotFound) {
		return "", err
	}

	generation = uuid.NewString()

	return generation, c.generations.Set(ctx, table, generation, c.ttl)
}

func (c *resultCache) key(ctx context.Context, table string, query string, args []any, limit int) (string, error) {
	generation, err := c.generation(ctx, table)
	if err != nil {
		return "", err
	}

	argBytes, err := json.Marshal(args)
	if err != nil {
		return "", err
	}

	hash := sha256.New()
	hash.Write([]byte(query))
	hash.Write([]byte{0})
	hash.Write(argBytes)
	hash.Write([]byte{0})
	hash.Write([]byte(strconv.Itoa(limit)))

	return table + "-" + generation + "-" + hex.EncodeToString(hash.Sum(nil)), nil
}

func (c *resultCache) lookup(ctx context.Context, table string, query string, args []any, limit int) (cachedResult, bool) {
	if c == nil {
		return cachedResult{}, false
	}

	key, err := c.key(ctx, table, query, args, limit)
	if err != nil {
		return cachedResult{}, false
	}

	result, err := c.results.Get(ctx, key)
	if err != nil {
		return cachedResult{}, false
	}

	return result, true
}

// store caches rows when every value has a kind; failures leave the result
// uncached.
func (c *resultCache) store(ctx context.Context, table string, query string, args []any, limit int, columns []string, rows [][]any) {
	if c == nil {
		return
	}

	result := cachedResult{
		Columns: columns,
		Rows:    make([][]Value, 0, len(rows)),
	}
	for _, row := range rows {
		values := make([]Value, 0, len(row))
		for _, raw := range row {
			value, err := ValueOf(raw)
			if err != nil {
				return
			}

			values = append(values, value)
		}

		result.Rows = append(result.Rows, values)
	}

	key, err := c.key(ctx, table, query, args, limit)
	if err != nil {
		return
	}

	_ = c.results.Set(ctx, key, result, c.ttl)
}

func (c *resultCache) invalidate(ctx context.Context, table string) error {
	if c == nil {
		return nil
	}

	return c.generations.Set(ctx, table, uuid.NewString(), c.ttl)
}
