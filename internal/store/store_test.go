package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/legalease/backend/internal/model/chat"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	sqlite, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "legalease.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestStoreTranscriptRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			created := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
			require.NoError(t, s.CreateSession(ctx, chat.Session{ID: "s1", CreatedAt: created}))

			got, err := s.GetSession(ctx, "s1")
			require.NoError(t, err)
			assert.True(t, created.Equal(got.CreatedAt))

			require.NoError(t, s.AppendMessage(ctx, chat.Message{ID: "m1", SessionID: "s1", Role: chat.RoleUser, Content: "hi", IsDocumentExcerpt: true, CreatedAt: created}))
			require.NoError(t, s.AppendMessage(ctx, chat.Message{ID: "m2", SessionID: "s1", Role: chat.RoleAssistant, Content: "hello", CreatedAt: created}))

			msgs, err := s.Messages(ctx, "s1")
			require.NoError(t, err)
			require.Len(t, msgs, 2)
			assert.Equal(t, "m1", msgs[0].ID)
			assert.True(t, msgs[0].IsDocumentExcerpt)
			assert.Equal(t, chat.RoleAssistant, msgs[1].Role)

			require.NoError(t, s.DeleteSession(ctx, "s1"))
			_, err = s.GetSession(ctx, "s1")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreUnknownSession(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.AppendMessage(ctx, chat.Message{ID: "x", SessionID: "missing"})
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = s.Messages(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreKV(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Put(ctx, "k", "v1"))
			require.NoError(t, s.Put(ctx, "k", "v2"))

			value, ok, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v2", value)
		})
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "bolt", "x")
	assert.Error(t, err)

	_, err = Open(context.Background(), DriverSQLite, "")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &SQL{driver: DriverPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2", pg.rebind("SELECT a FROM t WHERE b = ? AND c = ?"))

	lite := &SQL{driver: DriverSQLite}
	assert.Equal(t, "SELECT ?", lite.rebind("SELECT ?"))
}
