// Package consult runs one question/answer turn: it checks the session
// gate, records the transcript and renders the assistant reply.
package consult

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/legalease/backend/internal/model/chat"
	"github.com/zhouzirui/legalease/backend/internal/render"
	"github.com/zhouzirui/legalease/backend/internal/service/ai"
	"github.com/zhouzirui/legalease/backend/internal/service/appstate"
	chatService "github.com/zhouzirui/legalease/backend/internal/service/chat"
)

const failureTemplate = "Sorry, I encountered an error: %s. Please check that the Gemini API is configured correctly."

// ErrAIUnavailable is returned when no chat model is configured.
var ErrAIUnavailable = errors.New("ai service unavailable")

// GenerationError wraps a model failure.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return "ai generation failed: " + e.Err.Error() }

func (e *GenerationError) Unwrap() error { return e.Err }

// Reply is the stored assistant message and its rendering.
type Reply struct {
	Message chat.Message
	Result  render.Result
}

// Entry is a transcript message with its display markup.
type Entry struct {
	chat.Message
	HTML string `json:"html"`
}

// Turn is an in-flight question. Release must be called once the answer
// has been produced or abandoned.
type Turn struct {
	Session     chat.Session
	UserMessage chat.Message
	Question    ai.Question
	release     func()
}

// Release clears the session's pending flag. Safe to call repeatedly.
func (t *Turn) Release() {
	if t != nil && t.release != nil {
		t.release()
	}
}

// Service 协调会话、状态机、模型与渲染。
type Service struct {
	chats     *chatService.Service
	machine   *appstate.Machine
	ai        *ai.Service
	formatter render.Formatter
}

// NewService wires a consult service. aiSvc may be nil when no model is
// configured; turns then fail with ErrAIUnavailable.
func NewService(chats *chatService.Service, machine *appstate.Machine, aiSvc *ai.Service, formatter render.Formatter) *Service {
	if formatter == nil {
		formatter = render.NewFormatter()
	}
	return &Service{
		chats:     chats,
		machine:   machine,
		ai:        aiSvc,
		formatter: formatter,
	}
}

// Available reports whether a chat model is configured.
func (s *Service) Available() bool {
	return s.ai != nil
}

// StreamingEnabled reports whether answers should be streamed.
func (s *Service) StreamingEnabled() bool {
	return s.ai != nil && s.ai.StreamingEnabled()
}

// ResolveSession returns the named session, or creates one when id is empty.
func (s *Service) ResolveSession(ctx context.Context, id string) (chat.Session, error) {
	if strings.TrimSpace(id) == "" {
		return s.chats.CreateSession(ctx)
	}
	return s.chats.GetSession(ctx, id)
}

// Begin opens a turn: the session must have accepted the disclaimer and
// have no other request pending. The user message is stored before the
// model is asked.
func (s *Service) Begin(ctx context.Context, session chat.Session, text string, isDocument bool) (*Turn, error) {
	if strings.TrimSpace(text) == "" {
		return nil, chatService.ErrEmptyMessage
	}
	if err := s.machine.RequireAccepted(ctx, session.ID); err != nil {
		return nil, err
	}
	if s.ai == nil {
		return nil, ErrAIUnavailable
	}

	release, err := s.machine.Begin(session.ID)
	if err != nil {
		return nil, err
	}

	history, err := s.chats.LoadTranscript(ctx, session.ID)
	if err != nil {
		release()
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	userMsg, err := s.chats.SaveMessage(ctx, chat.Message{
		SessionID:         session.ID,
		Role:              chat.RoleUser,
		Content:           text,
		IsDocumentExcerpt: isDocument,
	})
	if err != nil {
		release()
		return nil, fmt.Errorf("save user message: %w", err)
	}

	return &Turn{
		Session:     session,
		UserMessage: userMsg,
		Question: ai.Question{
			SessionID:  session.ID,
			Text:       text,
			IsDocument: isDocument,
			History:    history,
		},
		release: release,
	}, nil
}

// Generate asks the model for the whole answer at once.
func (s *Service) Generate(ctx context.Context, turn *Turn) (*schema.Message, error) {
	response, err := s.ai.GenerateAnswer(ctx, turn.Question)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}
	return response, nil
}

// Stream asks the model for a streamed answer.
func (s *Service) Stream(ctx context.Context, turn *Turn) (*schema.StreamReader[*schema.Message], error) {
	stream, err := s.ai.StreamAnswer(ctx, turn.Question)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}
	return stream, nil
}

// Finish stores the assistant answer and renders it.
func (s *Service) Finish(ctx context.Context, turn *Turn, content string) (Reply, error) {
	assistantMsg, err := s.chats.SaveMessage(ctx, chat.Message{
		SessionID: turn.Session.ID,
		Role:      chat.RoleAssistant,
		Content:   content,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("save assistant message: %w", err)
	}

	reply := Reply{Message: assistantMsg, Result: s.formatter.Format(content)}
	log.Printf("[chat] answered session=%s, category=%s, risks=%d", turn.Session.ID, categoryKey(reply.Result), len(reply.Result.Risks))
	return reply, nil
}

// Ask runs a complete non-streaming turn.
func (s *Service) Ask(ctx context.Context, session chat.Session, text string, isDocument bool) (Reply, error) {
	turn, err := s.Begin(ctx, session, text, isDocument)
	if err != nil {
		return Reply{}, err
	}
	defer turn.Release()

	response, err := s.Generate(ctx, turn)
	if err != nil {
		return Reply{}, err
	}
	return s.Finish(ctx, turn, response.Content)
}

// FailureResult renders a model failure as an assistant message.
func (s *Service) FailureResult(err error) render.Result {
	cause := err
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		cause = genErr.Err
	}
	return s.formatter.Format(fmt.Sprintf(failureTemplate, cause.Error()))
}

// Render formats raw assistant text.
func (s *Service) Render(raw string) render.Result {
	return s.formatter.Format(raw)
}

// Transcript returns the session's messages with display markup.
func (s *Service) Transcript(ctx context.Context, sessionID string) ([]Entry, error) {
	messages, err := s.chats.LoadTranscript(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(messages))
	for _, msg := range messages {
		entry := Entry{Message: msg}
		if msg.Role == chat.RoleUser {
			entry.HTML = render.FormatUser(msg.Content, msg.IsDocumentExcerpt)
		} else {
			entry.HTML = s.formatter.Format(msg.Content).HTML
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func categoryKey(result render.Result) string {
	if result.Category == nil {
		return "none"
	}
	return result.Category.Key
}
