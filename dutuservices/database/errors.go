package database

import (
	"errors"
	"fmt"
)

var (
	ErrNoRows            = errors.New("no rows found")
	ErrBlankQuery        = errors.New("blank query")
	ErrClosed            = errors.New("adapter closed")
	ErrMisuse            = errors.New("builder misuse")
	ErrUnsupportedDriver = errors.New("unsupported driver")
)

// ConnectionError is returned when an adapter cannot open its connection.
type ConnectionError struct {
	DSN string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %s", e.DSN, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// StatementError is returned when preparing, executing or scanning a
// statement fails.
type StatementError struct {
	Op    string
	Query string
	Args  []any
	Err   error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("%s statement %q: %s", e.Op, e.Query, e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

// MisuseError describes a builder call that cannot produce valid SQL.
type MisuseError struct {
	Op     string
	Reason string
}

func (e *MisuseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *MisuseError) Is(target error) bool {
	return target == ErrMisuse
}

func misuse(op string, format string, args ...any) error {
	return &MisuseError{
		Op:     op,
		Reason: fmt.Sprintf(format, args...),
	}
}
