package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"

	"github.com/zhouzirui/legalease/backend/internal/model/chat"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

var schemas = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			is_document BOOLEAN NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq)`,
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	},
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			is_document BOOLEAN NOT NULL DEFAULT FALSE,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq)`,
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	},
}

// SQL is a Store over database/sql. Timestamps are stored as UTC unix
// nanoseconds so both dialects round-trip them identically.
type SQL struct {
	db     *sql.DB
	driver string
}

// OpenSQL connects, pings and migrates the schema.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQL, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	ddl, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("store: unsupported sql driver %q", driver)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("store: %s requires a dsn", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", driver, err)
	}

	s := &SQL{db: db, driver: driver}
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: migrate: %w", err)
		}
	}
	return s, nil
}

// rebind rewrites "?" placeholders for PostgreSQL.
func (s *SQL) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQL) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT value FROM kv WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQL) Put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`), key, value)
	if err != nil {
		return fmt.Errorf("store: put %q: %w", key, err)
	}
	return nil
}

func (s *SQL) CreateSession(ctx context.Context, session chat.Session) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO sessions (id, created_at) VALUES (?, ?)`),
		session.ID, session.CreatedAt.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("store: create session: %w", err)
	}
	return nil
}

func (s *SQL) GetSession(ctx context.Context, id string) (chat.Session, error) {
	var created int64
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT created_at FROM sessions WHERE id = ?`), id).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Session{}, ErrNotFound
	}
	if err != nil {
		return chat.Session{}, fmt.Errorf("store: get session: %w", err)
	}
	return chat.Session{ID: id, CreatedAt: time.Unix(0, created).UTC()}, nil
}

func (s *SQL) AppendMessage(ctx context.Context, message chat.Message) error {
	if _, err := s.GetSession(ctx, message.SessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO messages (id, session_id, role, content, is_document, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		message.ID, message.SessionID, string(message.Role), message.Content,
		message.IsDocumentExcerpt, message.CreatedAt.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("store: append message: %w", err)
	}
	return nil
}

func (s *SQL) Messages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, role, content, is_document, created_at
		 FROM messages WHERE session_id = ? ORDER BY seq`), sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]chat.Message, 0, 16)
	for rows.Next() {
		var (
			msg     chat.Message
			role    string
			created int64
		)
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.IsDocumentExcerpt, &created); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		msg.SessionID = sessionID
		msg.Role = chat.Role(role)
		msg.CreatedAt = time.Unix(0, created).UTC()
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	return messages, nil
}

func (s *SQL) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM messages WHERE session_id = ?`), id); err != nil {
		return fmt.Errorf("store: delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM sessions WHERE id = ?`), id); err != nil {
		return fmt.Errorf("store: delete session: %w", err)
	}
	return tx.Commit()
}

func (s *SQL) Close() error { return s.db.Close() }
