package appstate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/legalease/backend/internal/store"
)

func TestAcceptIsOneWayAndPersisted(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	m := NewMachine(kv)

	err := m.RequireAccepted(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotAccepted)

	state, err := m.Accept(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, state.DisclaimerAccepted)
	require.NoError(t, m.RequireAccepted(ctx, "s1"))

	// A second machine over the same store starts unlocked.
	other := NewMachine(kv)
	state, err = other.Snapshot(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, state.DisclaimerAccepted)

	state, err = other.Snapshot(ctx, "s2")
	require.NoError(t, err)
	assert.False(t, state.DisclaimerAccepted)
}

func TestBeginRejectsConcurrentRequests(t *testing.T) {
	m := NewMachine(store.NewMemory())

	release, err := m.Begin("s1")
	require.NoError(t, err)

	_, err = m.Begin("s1")
	assert.ErrorIs(t, err, ErrBusy)

	other, err := m.Begin("s2")
	require.NoError(t, err, "sessions are independent")
	other()

	release()
	release()

	again, err := m.Begin("s1")
	require.NoError(t, err)
	again()
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	ctx := context.Background()
	m := NewMachine(store.NewMemory())

	ch, cancel, err := m.Subscribe(ctx, "s1")
	require.NoError(t, err)
	defer cancel()

	first := <-ch
	assert.False(t, first.DisclaimerAccepted)
	assert.Equal(t, "s1", first.SessionID)

	_, err = m.Accept(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, (<-ch).DisclaimerAccepted)

	release, err := m.Begin("s1")
	require.NoError(t, err)
	release()

	// Only the latest snapshot is kept for a slow reader.
	latest := <-ch
	assert.False(t, latest.Pending)
	assert.True(t, latest.DisclaimerAccepted)
}

func TestCancelClosesSubscription(t *testing.T) {
	m := NewMachine(store.NewMemory())
	ch, cancel, err := m.Subscribe(context.Background(), "s1")
	require.NoError(t, err)

	<-ch
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("boom")
}
func (failingKV) Put(context.Context, string, string) error { return errors.New("boom") }

func TestKVErrorsSurface(t *testing.T) {
	m := NewMachine(failingKV{})

	_, err := m.Snapshot(context.Background(), "s1")
	assert.Error(t, err)

	_, err = m.Accept(context.Background(), "s1")
	assert.Error(t, err)
}
