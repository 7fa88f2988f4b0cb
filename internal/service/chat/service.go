package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/legalease/backend/internal/model/chat"
	"github.com/zhouzirui/legalease/backend/internal/store"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidRole     = errors.New("invalid message role")
	ErrEmptyMessage    = errors.New("message cannot be empty")
)

// Service encapsulates conversation state management.
type Service struct {
	transcripts store.Transcripts
	now         func() time.Time
}

// NewService binds the chat service to a transcript backend.
func NewService(transcripts store.Transcripts) *Service {
	return &Service{
		transcripts: transcripts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession provisions an anonymous session.
func (s *Service) CreateSession(ctx context.Context) (chat.Session, error) {
	session := chat.Session{
		ID:        uuid.NewString(),
		CreatedAt: s.now(),
	}
	if err := s.transcripts.CreateSession(ctx, session); err != nil {
		return chat.Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// SaveMessage appends a message to the session history and returns the
// stored copy with its id and timestamp assigned.
func (s *Service) SaveMessage(ctx context.Context, message chat.Message) (chat.Message, error) {
	if message.SessionID == "" {
		return chat.Message{}, ErrSessionNotFound
	}
	if !message.Role.Valid() {
		return chat.Message{}, ErrInvalidRole
	}
	if strings.TrimSpace(message.Content) == "" {
		return chat.Message{}, ErrEmptyMessage
	}

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = s.now()
	}

	if err := s.transcripts.AppendMessage(ctx, message); err != nil {
		return chat.Message{}, translate(err)
	}
	return message, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	session, err := s.transcripts.GetSession(ctx, sessionID)
	if err != nil {
		return chat.Session{}, translate(err)
	}
	return session, nil
}

// LoadTranscript returns stored messages for the provided session.
func (s *Service) LoadTranscript(ctx context.Context, sessionID string) ([]chat.Message, error) {
	messages, err := s.transcripts.Messages(ctx, sessionID)
	if err != nil {
		return nil, translate(err)
	}
	return messages, nil
}

// ClearSession drops the transcript but keeps the session id, so state
// bound to the session (such as disclaimer acceptance) survives.
func (s *Service) ClearSession(ctx context.Context, sessionID string) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.transcripts.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if err := s.transcripts.CreateSession(ctx, session); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}
