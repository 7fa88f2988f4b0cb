package render

import (
	"github.com/microcosm-cc/bluemonday"

	"github.com/zhouzirui/legalease/backend/internal/model/legal"
)

// documentPreviewRunes bounds how much of a pasted document is echoed back.
const documentPreviewRunes = 200

// Result is a rendered answer plus the annotations found while rendering.
// Results may be shared through a cache and must be treated as read-only.
type Result struct {
	HTML     string            `json:"html"`
	Category *legal.Category   `json:"category,omitempty"`
	Risks    []legal.RiskLevel `json:"risks,omitempty"`
}

// Formatter renders raw assistant text.
type Formatter interface {
	Format(raw string) Result
}

// PipelineFormatter chains Sanitize, Annotate and a Pipeline.
type PipelineFormatter struct {
	pipeline *Pipeline
	policy   *bluemonday.Policy
}

// Option customises a PipelineFormatter.
type Option func(*PipelineFormatter)

// WithPipeline replaces the default stage list.
func WithPipeline(p *Pipeline) Option {
	return func(f *PipelineFormatter) {
		if p != nil {
			f.pipeline = p
		}
	}
}

// WithPolicy runs every fragment through an allow-list policy last.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(f *PipelineFormatter) {
		f.policy = policy
	}
}

// NewFormatter builds a formatter over the default pipeline.
func NewFormatter(opts ...Option) *PipelineFormatter {
	f := &PipelineFormatter{pipeline: defaultPipeline}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format renders one raw answer.
func (f *PipelineFormatter) Format(raw string) Result {
	ann := Annotate(Sanitize(raw))
	out := f.pipeline.Render(ann.Body)
	if f.policy != nil {
		out = f.policy.Sanitize(out)
	}
	return Result{
		HTML:     out,
		Category: ann.Category,
		Risks:    DetectRisks(ann.Body),
	}
}

var defaultFormatter = NewFormatter()

// Format renders raw with the default formatter and no policy pass.
func Format(raw string) Result {
	return defaultFormatter.Format(raw)
}

// FormatUser renders the user's own side of the transcript. Plain questions
// are escaped text; documents show a short escaped preview.
func FormatUser(content string, isDocument bool) string {
	if !isDocument {
		return Sanitize(content)
	}

	preview := content
	suffix := ""
	if runes := []rune(content); len(runes) > documentPreviewRunes {
		preview = string(runes[:documentPreviewRunes])
		suffix = "..."
	}
	return "<strong>Document:</strong><br>" + Sanitize(preview) + suffix
}
