package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/zhouzirui/legalease/backend/internal/config"
	"github.com/zhouzirui/legalease/backend/internal/model/chat"
)

const defaultHistoryLimit = 6

// ErrStreamingDisabled is returned by StreamAnswer when streaming is turned off.
var ErrStreamingDisabled = errors.New("streaming disabled in configuration")

// Question is one user turn sent to the model.
type Question struct {
	SessionID  string
	Text       string
	IsDocument bool
	// History holds earlier transcript messages, oldest first.
	History []chat.Message
}

// Service encapsulates the legal analysis chain.
type Service struct {
	chatModel model.ChatModel
	prompts   *PromptBuilder
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates the chat model from cfg and compiles the chain.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, cfg)
}

// NewServiceWithModel compiles the chain around an existing chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel, cfg config.AIConfig) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		prompts:   NewPromptBuilder(),
		cfg:       cfg,
		chain:     runnable,
	}, nil
}

// StreamingEnabled 指示是否开启 SSE 流式输出。
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// GenerateAnswer runs the legal analysis chain for one question.
func (s *Service) GenerateAnswer(ctx context.Context, q Question) (*schema.Message, error) {
	response, err := s.chain.Invoke(ctx, s.buildChainInput(q))
	if err != nil {
		return nil, fmt.Errorf("failed to run AI chain: %w", err)
	}

	log.Printf("[ai] generated answer for session=%s, document=%t, length=%d", q.SessionID, q.IsDocument, len(response.Content))
	return response, nil
}

// StreamAnswer streams the legal analysis chain output.
func (s *Service) StreamAnswer(ctx context.Context, q Question) (*schema.StreamReader[*schema.Message], error) {
	if !s.StreamingEnabled() {
		return nil, ErrStreamingDisabled
	}

	stream, err := s.chain.Stream(ctx, s.buildChainInput(q))
	if err != nil {
		return nil, fmt.Errorf("failed to stream AI chain output: %w", err)
	}
	return stream, nil
}

// FormatCitation asks the model to format a legal citation.
func (s *Service) FormatCitation(ctx context.Context, citation string) (string, error) {
	out, err := s.complete(ctx, s.prompts.CitationPrompt(citation))
	if err != nil {
		return "", fmt.Errorf("error formatting citation: %w", err)
	}
	return out, nil
}

// AnalyzeCategory asks the model for the primary legal category of text.
func (s *Service) AnalyzeCategory(ctx context.Context, text string) (string, error) {
	out, err := s.complete(ctx, s.prompts.CategoryPrompt(text))
	if err != nil {
		return "", fmt.Errorf("error analyzing category: %w", err)
	}
	return out, nil
}

// GetChatModel 返回底层的聊天模型
func (s *Service) GetChatModel() model.ChatModel {
	return s.chatModel
}

func (s *Service) complete(ctx context.Context, text string) (string, error) {
	msg, err := s.chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(text)})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(msg.Content), nil
}

func (s *Service) buildChainInput(q Question) map[string]any {
	return map[string]any{
		"system":  s.prompts.SystemPrompt(),
		"history": s.buildHistoryMessages(q.History),
		"query":   s.prompts.UserPrompt(q.Text, q.IsDocument),
	}
}

func (s *Service) buildHistoryMessages(messages []chat.Message) []*schema.Message {
	limit := s.cfg.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > limit {
		startIdx = len(messages) - limit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}
