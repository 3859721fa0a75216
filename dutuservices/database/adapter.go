package database

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Adapter owns one live connection and the executor that runs statements on
// it. Builders started from an Adapter all run on that connection.
type Adapter struct {
	driver       Driver
	db           *sqlx.DB
	conn         *sqlx.Conn
	executor     Executor
	mutex        *sync.Mutex
	closed       bool
	fetchStyle   FetchStyle
	preRunFuncs  []func(ctx context.Context, statement string, args []any) error
	postRunFuncs []func(ctx context.Context) error
	resultCache  *resultCache

	lastInsertID    int64
	lastInsertIDErr error
}

// NewBuffered connects an adapter that interpolates insert, update and delete
// values and binds where/having values to typed positional markers.
func NewBuffered(ctx context.Context, driver Driver, configFuncs ...ConfigFunc) (*Adapter, error) {
	return connect(ctx, driver, func(adapter *Adapter) Executor {
		return newBufferedExecutor(adapter)
	}, configFuncs)
}

// NewPrepared connects an adapter that binds every value to a named marker.
func NewPrepared(ctx context.Context, driver Driver, configFuncs ...ConfigFunc) (*Adapter, error) {
	return connect(ctx, driver, func(adapter *Adapter) Executor {
		return newPreparedExecutor(adapter)
	}, configFuncs)
}

func connect(
	ctx context.Context,
	driver Driver,
	newExecutor func(adapter *Adapter) Executor,
	configFuncs []ConfigFunc,
) (*Adapter, error) {
	standardLibraryDB, err := driver.Open()
	if err != nil {
		return nil, &ConnectionError{DSN: driver.DSN(), Err: err}
	}

	db := sqlx.NewDb(standardLibraryDB, driver.Name())

	conn, err := db.Connx(ctx)
	if err == nil {
		err = conn.PingContext(ctx)
	}
	if err != nil {
		if conn != nil {
			_ = conn.Close()
		}
		_ = db.Close()

		return nil, &ConnectionError{DSN: driver.DSN(), Err: err}
	}

	adapter := &Adapter{
		driver:       driver,
		db:           db,
		conn:         conn,
		mutex:        &sync.Mutex{},
		preRunFuncs:  []func(ctx context.Context, statement string, args []any) error{},
		postRunFuncs: []func(ctx context.Context) error{},
	}
	adapter.executor = newExecutor(adapter)

	for _, configFunc := range configFuncs {
		if err := configFunc(adapter); err != nil {
			_ = adapter.Close()
			return nil, err
		}
	}

	return adapter, nil
}

func (adapter *Adapter) Driver() Driver {
	return adapter.driver
}

func (adapter *Adapter) Binding() Binding {
	return adapter.executor.Binding()
}

func (adapter *Adapter) Ping(ctx context.Context) error {
	adapter.mutex.Lock()
	defer adapter.mutex.Unlock()

	if adapter.closed {
		return ErrClosed
	}

	return adapter.conn.PingContext(ctx)
}

// Close releases the connection. It is safe to call more than once.
func (adapter *Adapter) Close() error {
	adapter.mutex.Lock()
	defer adapter.mutex.Unlock()

	if adapter.closed {
		return nil
	}
	adapter.closed = true

	return errors.Join(adapter.conn.Close(), adapter.db.Close())
}

// Builder returns an empty builder carrying the adapter's fetch style.
func (adapter *Adapter) Builder() Builder {
	return Builder{
		adapter: adapter,
		statement: Statement{
			fetchStyle: adapter.fetchStyle,
		},
	}
}

func (adapter *Adapter) Insert(table string, fields ...Field) Builder {
	return adapter.Builder().Insert(table, fields...)
}

func (adapter *Adapter) Update(table string, fields ...Field) Builder {
	return adapter.Builder().Update(table, fields...)
}

func (adapter *Adapter) Delete(table string, where ...Field) Builder {
	return adapter.Builder().Delete(table, where...)
}

func (adapter *Adapter) Select(table string, fields ...string) Builder {
	return adapter.Builder().Select(table, fields...)
}

func (adapter *Adapter) LastInsertID() (int64, error) {
	return adapter.executor.LastInsertID()
}

// withConn runs fn on the pinned connection with the run hooks around it.
func (adapter *Adapter) withConn(
	ctx context.Context,
	query string,
	args []any,
	fn func(conn *sqlx.Conn) error,
) error {
	adapter.mutex.Lock()
	defer adapter.mutex.Unlock()

	if adapter.closed {
		return ErrClosed
	}

	for _, preRunFunc := range adapter.preRunFuncs {
		if err := preRunFunc(ctx, query, args); err != nil {
			return err
		}
	}

	if err := fn(adapter.conn); err != nil {
		return err
	}

	for _, postRunFunc := range adapter.postRunFuncs {
		if err := postRunFunc(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (adapter *Adapter) recordInsert(ctx context.Context, conn *sqlx.Conn, result sql.Result) {
	if adapter.driver.usesLastInsertId() {
		adapter.lastInsertID, adapter.lastInsertIDErr = result.LastInsertId()
		return
	}

	adapter.lastInsertIDErr = conn.GetContext(ctx, &adapter.lastInsertID, "SELECT lastval()")
}

func (adapter *Adapter) lastInsert() (int64, error) {
	adapter.mutex.Lock()
	defer adapter.mutex.Unlock()

	return adapter.lastInsertID, adapter.lastInsertIDErr
}
