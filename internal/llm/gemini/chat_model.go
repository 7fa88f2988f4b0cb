// Package gemini adapts the Google Gemini API to the eino ChatModel interface.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-1.5-flash"

const (
	roleUser  = "user"
	roleModel = "model"
)

// ErrEmptyResponse is returned when Gemini answers without any text part.
var ErrEmptyResponse = errors.New("gemini returned no content")

// Config 描述 Gemini 模型的调用参数。
type Config struct {
	APIKey      string
	Model       string
	Temperature *float32
	TopP        *float32
}

var _ model.ChatModel = (*ChatModel)(nil)

// ChatModel implements model.ChatModel on top of genai.Client.
type ChatModel struct {
	client *genai.Client
	cfg    Config
}

// NewChatModel creates a Gemini-backed chat model.
func NewChatModel(ctx context.Context, cfg Config) (*ChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &ChatModel{client: client, cfg: cfg}, nil
}

// Generate sends the whole conversation in one GenerateContent call.
func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	modelName := m.cfg.Model
	options := model.GetCommonOptions(&model.Options{
		Temperature: m.cfg.Temperature,
		TopP:        m.cfg.TopP,
		Model:       &modelName,
	}, opts...)

	system, contents := toContents(input)
	if len(contents) == 0 {
		return nil, errors.New("gemini request has no user content")
	}

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       options.Temperature,
		TopP:              options.TopP,
	}

	name := modelName
	if options.Model != nil && *options.Model != "" {
		name = *options.Model
	}

	resp, err := m.client.Models.GenerateContent(ctx, name, contents, genCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return schema.AssistantMessage(text, nil), nil
}

// Stream wraps Generate in a single-chunk stream.
func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools is a no-op; the legal assistant does not use tool calls.
func (m *ChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

// toContents splits system messages into the system instruction and maps
// the remaining turns onto Gemini roles.
func toContents(input []*schema.Message) (*genai.Content, []*genai.Content) {
	var (
		systemParts []*genai.Part
		contents    []*genai.Content
	)

	for _, msg := range input {
		if msg == nil || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case schema.System:
			systemParts = append(systemParts, &genai.Part{Text: msg.Content})
		case schema.Assistant:
			contents = append(contents, &genai.Content{Role: roleModel, Parts: []*genai.Part{{Text: msg.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: roleUser, Parts: []*genai.Part{{Text: msg.Content}}})
		}
	}

	var system *genai.Content
	if len(systemParts) > 0 {
		system = &genai.Content{Parts: systemParts}
	}
	return system, contents
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			builder.WriteString(part.Text)
		}
	}
	return builder.String()
}
