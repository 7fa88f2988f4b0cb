package render

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var badgeClassPattern = regexp.MustCompile(`^(legal-category-badge category-[a-z_]+|risk-badge risk-(?i:low|medium|high))$`)

// NewPolicy allows exactly the elements the pipeline emits.
func NewPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("strong", "em", "h3", "h4", "ol", "ul", "li", "br")
	p.AllowAttrs("class").Matching(badgeClassPattern).OnElements("span")
	return p
}
