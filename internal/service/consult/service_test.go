package consult

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/legalease/backend/internal/config"
	"github.com/zhouzirui/legalease/backend/internal/model/chat"
	"github.com/zhouzirui/legalease/backend/internal/service/ai"
	"github.com/zhouzirui/legalease/backend/internal/service/appstate"
	chatService "github.com/zhouzirui/legalease/backend/internal/service/chat"
	"github.com/zhouzirui/legalease/backend/internal/store"
)

type scriptedModel struct {
	mu     sync.Mutex
	reply  string
	err    error
	inputs [][]*schema.Message
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, input)
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *scriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *scriptedModel) BindTools([]*schema.ToolInfo) error { return nil }

type fixture struct {
	svc     *Service
	machine *appstate.Machine
	session chat.Session
	model   *scriptedModel
}

func newFixture(t *testing.T, withAI bool) fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	chats := chatService.NewService(mem)
	machine := appstate.NewMachine(mem)

	fake := &scriptedModel{reply: "CATEGORY TAG: Contract Law\n**Summary**: this clause is High Risk."}
	var aiSvc *ai.Service
	if withAI {
		var err error
		aiSvc, err = ai.NewServiceWithModel(ctx, fake, config.AIConfig{HistoryLimit: 6})
		if err != nil {
			t.Fatalf("NewServiceWithModel: %v", err)
		}
	}

	session, err := chats.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return fixture{svc: NewService(chats, machine, aiSvc, nil), machine: machine, session: session, model: fake}
}

func TestAskRequiresAcceptance(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.svc.Ask(context.Background(), f.session, "What is an NDA?", false)
	if !errors.Is(err, appstate.ErrNotAccepted) {
		t.Fatalf("expected ErrNotAccepted, got %v", err)
	}
}

func TestAskWithoutModel(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	if _, err := f.machine.Accept(ctx, f.session.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if _, err := f.svc.Ask(ctx, f.session, "hello", false); !errors.Is(err, ErrAIUnavailable) {
		t.Fatalf("expected ErrAIUnavailable, got %v", err)
	}
}

func TestAskRejectsEmptyText(t *testing.T) {
	f := newFixture(t, true)
	if _, err := f.svc.Ask(context.Background(), f.session, "   ", false); !errors.Is(err, chatService.ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestAskRendersAndRecords(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	if _, err := f.machine.Accept(ctx, f.session.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	reply, err := f.svc.Ask(ctx, f.session, "<b>Review</b> my NDA", false)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply.Result.Category == nil || reply.Result.Category.DisplayName != "Contract Law" {
		t.Fatalf("expected Contract Law category, got %+v", reply.Result.Category)
	}
	if len(reply.Result.Risks) != 1 || reply.Result.Risks[0] != "High" {
		t.Fatalf("expected one High risk, got %v", reply.Result.Risks)
	}
	if strings.Contains(reply.Result.HTML, "CATEGORY TAG") {
		t.Fatalf("directive leaked into markup: %s", reply.Result.HTML)
	}

	entries, err := f.svc.Transcript(ctx, f.session.ID)
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].HTML != "&lt;b&gt;Review&lt;/b&gt; my NDA" {
		t.Fatalf("user entry not escaped: %q", entries[0].HTML)
	}
	if entries[1].HTML != reply.Result.HTML {
		t.Fatalf("assistant entry should match reply markup")
	}

	// The next turn carries the first exchange as history.
	if _, err := f.svc.Ask(ctx, f.session, "And the term?", false); err != nil {
		t.Fatalf("second Ask: %v", err)
	}
	last := f.model.inputs[len(f.model.inputs)-1]
	if len(last) != 4 {
		t.Fatalf("expected system + 2 history + user, got %d messages", len(last))
	}
}

func TestBeginIsExclusive(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	if _, err := f.machine.Accept(ctx, f.session.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	turn, err := f.svc.Begin(ctx, f.session, "first", false)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := f.svc.Begin(ctx, f.session, "second", false); !errors.Is(err, appstate.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	turn.Release()
	turn.Release()

	again, err := f.svc.Begin(ctx, f.session, "third", false)
	if err != nil {
		t.Fatalf("Begin after release: %v", err)
	}
	again.Release()
}

func TestAskModelFailure(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.model.err = errors.New("quota exceeded")
	if _, err := f.machine.Accept(ctx, f.session.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	_, err := f.svc.Ask(ctx, f.session, "hello", false)
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}

	result := f.svc.FailureResult(err)
	if !strings.HasPrefix(result.HTML, "Sorry, I encountered an error: ") {
		t.Fatalf("unexpected failure markup %q", result.HTML)
	}

	state, err := f.machine.Snapshot(ctx, f.session.ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if state.Pending {
		t.Fatal("pending flag should be cleared after a failure")
	}
}

func TestResolveSession(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	created, err := f.svc.ResolveSession(ctx, "")
	if err != nil || created.ID == "" {
		t.Fatalf("expected a new session, got %+v, %v", created, err)
	}
	if _, err := f.svc.ResolveSession(ctx, "missing"); !errors.Is(err, chatService.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
