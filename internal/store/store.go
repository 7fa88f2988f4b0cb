// Package store persists transcripts and the small key-value records the
// application state needs, in memory or in a SQL database.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zhouzirui/legalease/backend/internal/model/chat"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("store: not found")

// KV is an opaque string key-value store.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}

// Transcripts keeps sessions and their ordered messages.
type Transcripts interface {
	CreateSession(ctx context.Context, session chat.Session) error
	GetSession(ctx context.Context, id string) (chat.Session, error)
	AppendMessage(ctx context.Context, message chat.Message) error
	Messages(ctx context.Context, sessionID string) ([]chat.Message, error)
	DeleteSession(ctx context.Context, id string) error
}

// Store is the full persistence surface.
type Store interface {
	KV
	Transcripts
	Close() error
}

// Open returns the store for driver: "memory" (or empty), "sqlite" or "pgx".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "memory":
		return NewMemory(), nil
	case DriverSQLite, DriverPostgres:
		return OpenSQL(ctx, driver, dsn)
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}
}
