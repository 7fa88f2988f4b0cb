package render

// Stage is one text rewrite of the markdown-subset renderer.
// Implementations must be pure: same input, same output.
type Stage interface {
	Name() string
	Apply(text string) string
}

type stageFunc struct {
	name  string
	apply func(string) string
}

func (s stageFunc) Name() string             { return s.name }
func (s stageFunc) Apply(text string) string { return s.apply(text) }

// NewStage adapts a plain function into a Stage.
func NewStage(name string, apply func(string) string) Stage {
	return stageFunc{name: name, apply: apply}
}

// Pipeline executes an ordered sequence of Stages, threading each output
// into the next stage.
type Pipeline struct {
	stages []Stage
}

// NewPipeline creates a pipeline from the given stages. Execution order
// matches the argument order.
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: append([]Stage(nil), stages...)}
}

// DefaultPipeline returns the markdown-subset renderer.
//
// Bold must precede italic so "**" is never read as two single markers,
// and numbered lists precede bullets.
func DefaultPipeline() *Pipeline {
	return NewPipeline(
		Bold(),
		Italic(),
		Heading3(),
		Heading2(),
		OrderedList(),
		UnorderedList(),
		LineBreaks(),
		RiskBadges(),
	)
}

// Render runs every stage in order.
func (p *Pipeline) Render(body string) string {
	current := body
	for _, stage := range p.stages {
		current = stage.Apply(current)
	}
	return current
}

// Stages returns the stage list in execution order.
func (p *Pipeline) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

var defaultPipeline = DefaultPipeline()

// Render applies the default pipeline to annotated body text.
func Render(body string) string {
	return defaultPipeline.Render(body)
}
