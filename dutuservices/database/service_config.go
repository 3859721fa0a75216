package database

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lunagic/dutu/dutuservices/cache"
)

type ConfigFunc func(adapter *Adapter) error

// WithPostConnectFunc runs callback against the pool once the adapter is
// connected.
func WithPostConnectFunc(callback func(db *sql.DB) error) ConfigFunc {
	return func(adapter *Adapter) error {
		return callback(adapter.db.DB)
	}
}

func WithPreRunFunc(preRunFunc func(ctx context.Context, statement string, args []any) error) ConfigFunc {
	return func(adapter *Adapter) error {
		adapter.preRunFuncs = append(adapter.preRunFuncs, preRunFunc)
		return nil
	}
}

func WithPostRunFunc(postRunFunc func(ctx context.Context) error) ConfigFunc {
	return func(adapter *Adapter) error {
		adapter.postRunFuncs = append(adapter.postRunFuncs, postRunFunc)
		return nil
	}
}

func WithLogger(logger *slog.Logger) ConfigFunc {
	return func(adapter *Adapter) error {
		adapter.preRunFuncs = append(adapter.preRunFuncs, func(ctx context.Context, statement string, args []any) error {
			logger.InfoContext(ctx, "Database Run",
				"driver", adapter.driver.Name(),
				"statement", statement,
				"args", args,
				"signature", signatureOf(args),
			)

			return nil
		})
		return nil
	}
}

// WithFetchStyle sets the fetch style every new builder starts with. The code
// is resolved like SetFetchStyle.
func WithFetchStyle(code any) ConfigFunc {
	return func(adapter *Adapter) error {
		adapter.fetchStyle = adapter.executor.ResolveFetchStyle(code)
		return nil
	}
}

// WithResultCache caches SELECT results in driver for ttl. A write through the
// adapter invalidates the cached results of its table.
func WithResultCache(driver cache.Driver, ttl time.Duration) ConfigFunc {
	return func(adapter *Adapter) error {
		adapter.resultCache = newResultCache(driver, adapter.driver.Name(), ttl)
		return nil
	}
}
