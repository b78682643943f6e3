package db

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// ErrClosed is returned by Handle.DB after Close.
var ErrClosed = errors.New("database handle closed")

// OpenFunc opens a new connection pool.
type OpenFunc func(ctx context.Context) (*sql.DB, error)

// Handle owns the process-wide connection pool. The pool is opened on first
// use and closed exactly once by Close; it is created in main and passed down
// rather than held in a package variable.
type Handle struct {
	open OpenFunc

	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

func NewHandle(open OpenFunc) *Handle {
	return &Handle{open: open}
}

// DB returns the pool, opening it if needed. A failed open is not cached, so
// the next call retries.
func (h *Handle) DB(ctx context.Context) (*sql.DB, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}
	if h.db != nil {
		return h.db, nil
	}

	db, err := h.open(ctx)
	if err != nil {
		return nil, err
	}
	h.db = db
	return db, nil
}

// Close closes the pool if it was opened. Later calls are no-ops.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}

// Wrap returns a Handle around an already open pool.
func Wrap(db *sql.DB) *Handle {
	return &Handle{
		open: func(context.Context) (*sql.DB, error) { return db, nil },
		db:   db,
	}
}
