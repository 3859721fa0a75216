package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository stores JSON encoded values of one type under a key prefix.
func NewRepository[Key comparable, Value any](
	driver Driver,
	prefix string,
) *Repository[Key, Value] {
	return &Repository[Key, Value]{
		driver: driver,
		prefix: prefix,
	}
}

type Repository[Key comparable, Value any] struct {
	driver Driver
	prefix string
}

func (r *Repository[Key, Value]) key(key Key) string {
	return fmt.Sprintf("%s-%v", r.prefix, key)
}

func (r *Repository[Key, Value]) Set(ctx context.Context, key Key, value Value, duration time.Duration) error {
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return r.driver.Set(ctx, r.key(key), string(jsonBytes), duration)
}

func (r *Repository[Key, Value]) Get(ctx context.Context, key Key) (Value, error) {
	val, err := r.driver.Get(ctx, r.key(key))
	if err != nil {
		return *new(Value), err
	}

	target := *new(Value)
	if err := json.Unmarshal([]byte(val), &target); err != nil {
		// An undecodable entry is treated as a miss and dropped.
		_ = r.driver.Delete(ctx, r.key(key))
		return *new(Value), errors.Join(ErrNotFound, err)
	}

	return target, nil
}

func (r *Repository[Key, Value]) Delete(ctx context.Context, key Key) error {
	return r.driver.Delete(ctx, r.key(key))
}
