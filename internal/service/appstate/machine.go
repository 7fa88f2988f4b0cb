// Package appstate owns the per-session flags that gate the chat flow:
// whether the disclaimer has been accepted and whether a model request is
// in flight. The Machine is the only writer; everyone else reads snapshots.
package appstate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zhouzirui/legalease/backend/internal/store"
)

var (
	ErrBusy        = errors.New("a request is already pending")
	ErrNotAccepted = errors.New("disclaimer not accepted")
)

const acceptedValue = "true"

// State is an immutable snapshot for one session.
type State struct {
	SessionID          string `json:"sessionId"`
	DisclaimerAccepted bool   `json:"disclaimerAccepted"`
	Pending            bool   `json:"pending"`
}

type entry struct {
	state  State
	loaded bool
	subs   map[int]chan State
	nextID int
}

// Machine tracks State per session. Acceptance is persisted in a KV store
// and moves Locked -> Unlocked once; Pending lives only in memory.
type Machine struct {
	kv store.KV

	mu      sync.Mutex
	entries map[string]*entry
}

// NewMachine creates a Machine persisting acceptance through kv.
func NewMachine(kv store.KV) *Machine {
	return &Machine{kv: kv, entries: make(map[string]*entry)}
}

func acceptanceKey(sessionID string) string {
	return "disclaimer:" + sessionID
}

// entryLocked returns the entry for sessionID; m.mu must be held.
func (m *Machine) entryLocked(sessionID string) *entry {
	e, ok := m.entries[sessionID]
	if !ok {
		e = &entry{state: State{SessionID: sessionID}, subs: make(map[int]chan State)}
		m.entries[sessionID] = e
	}
	return e
}

// load reads the persisted flag the first time a session is seen.
func (m *Machine) load(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	loaded := m.entryLocked(sessionID).loaded
	m.mu.Unlock()
	if loaded {
		return nil
	}

	value, ok, err := m.kv.Get(ctx, acceptanceKey(sessionID))
	if err != nil {
		return fmt.Errorf("load acceptance: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entryLocked(sessionID)
	if !e.loaded {
		e.loaded = true
		if ok && value == acceptedValue {
			e.state.DisclaimerAccepted = true
		}
	}
	return nil
}

// Snapshot returns the current state of a session.
func (m *Machine) Snapshot(ctx context.Context, sessionID string) (State, error) {
	if err := m.load(ctx, sessionID); err != nil {
		return State{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entryLocked(sessionID).state, nil
}

// RequireAccepted returns ErrNotAccepted while the session is locked.
func (m *Machine) RequireAccepted(ctx context.Context, sessionID string) error {
	state, err := m.Snapshot(ctx, sessionID)
	if err != nil {
		return err
	}
	if !state.DisclaimerAccepted {
		return ErrNotAccepted
	}
	return nil
}

// Accept unlocks the session. Accepting twice is a no-op.
func (m *Machine) Accept(ctx context.Context, sessionID string) (State, error) {
	state, err := m.Snapshot(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	if state.DisclaimerAccepted {
		return state, nil
	}

	if err := m.kv.Put(ctx, acceptanceKey(sessionID), acceptedValue); err != nil {
		return State{}, fmt.Errorf("persist acceptance: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entryLocked(sessionID)
	e.state.DisclaimerAccepted = true
	m.broadcastLocked(e)
	return e.state, nil
}

// Begin marks a request as pending. It fails with ErrBusy when one is
// already in flight. The returned release clears the flag; it is safe to
// call more than once and should be deferred.
func (m *Machine) Begin(sessionID string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entryLocked(sessionID)
	if e.state.Pending {
		return nil, ErrBusy
	}
	e.state.Pending = true
	m.broadcastLocked(e)

	var once sync.Once
	release := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			e := m.entryLocked(sessionID)
			e.state.Pending = false
			m.broadcastLocked(e)
		})
	}
	return release, nil
}

// Subscribe streams snapshots of a session, starting with the current one.
// A slow reader only ever sees the latest snapshot. cancel closes the
// channel.
func (m *Machine) Subscribe(ctx context.Context, sessionID string) (<-chan State, func(), error) {
	if err := m.load(ctx, sessionID); err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entryLocked(sessionID)
	id := e.nextID
	e.nextID++
	ch := make(chan State, 1)
	ch <- e.state
	e.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if sub, ok := m.entries[sessionID].subs[id]; ok {
				delete(m.entries[sessionID].subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel, nil
}

func (m *Machine) broadcastLocked(e *entry) {
	for _, ch := range e.subs {
		select {
		case ch <- e.state:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- e.state
		}
	}
}
