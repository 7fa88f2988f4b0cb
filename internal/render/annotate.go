package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zhouzirui/legalease/backend/internal/model/legal"
)

var directivePattern = regexp.MustCompile(`(?i)CATEGORY\s+TAG[:\s]+(.+?)(?:\n|$)`)

// heuristicCues must co-occur with an alias before content detection fires.
var heuristicCues = []string{"agreement", "contract", "legal"}

// Annotation is the output of Annotate.
type Annotation struct {
	BadgeMarkup string
	Body        string
	Category    *legal.Category
}

// Annotate detects the answer's legal category on already escaped text.
//
// A "CATEGORY TAG: ..." directive takes precedence and its line is always
// removed from the body. Without a directive the whole body is searched,
// gated by heuristicCues. When a category is found the badge is prepended
// on its own line followed by a blank line, which the renderer later turns
// into two <br>.
func Annotate(escaped string) Annotation {
	ann := Annotation{Body: escaped}

	var (
		category legal.Category
		found    bool
	)
	if loc := directivePattern.FindStringSubmatchIndex(escaped); loc != nil {
		tag := strings.ToLower(strings.TrimSpace(escaped[loc[2]:loc[3]]))
		category, found = legal.MatchCategory(tag)
		ann.Body = removeLine(escaped, loc[0], loc[1])
	} else {
		lower := strings.ToLower(escaped)
		if hasHeuristicCue(lower) {
			category, found = legal.MatchCategory(lower)
		}
	}

	if !found {
		return ann
	}

	ann.Category = &category
	ann.BadgeMarkup = CategoryBadge(category)
	ann.Body = ann.BadgeMarkup + "\n\n" + ann.Body
	return ann
}

// CategoryBadge renders the inline badge for a category.
func CategoryBadge(category legal.Category) string {
	return fmt.Sprintf(`<span class="legal-category-badge %s">%s</span>`,
		Sanitize(category.CSSClass), Sanitize(category.DisplayName))
}

func hasHeuristicCue(lower string) bool {
	for _, cue := range heuristicCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

// removeLine cuts text from the start of the line containing start up to end.
// end already covers the line's trailing newline when there is one.
func removeLine(text string, start, end int) string {
	lineStart := strings.LastIndexByte(text[:start], '\n') + 1
	return text[:lineStart] + text[end:]
}
