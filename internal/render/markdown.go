package render

import (
	"regexp"
	"strings"
)

var (
	boldPattern     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicPattern   = regexp.MustCompile(`\*(.+?)\*`)
	heading3Pattern = regexp.MustCompile(`(?m)^### (.+)$`)
	heading2Pattern = regexp.MustCompile(`(?m)^## (.+)$`)
	orderedItem     = regexp.MustCompile(`^\d+\.\s+(.+)$`)
	bulletItem      = regexp.MustCompile(`^[-*]\s+(.+)$`)
)

// Bold rewrites **X** into <strong>X</strong>.
func Bold() Stage {
	return NewStage("bold", func(text string) string {
		return boldPattern.ReplaceAllString(text, "<strong>${1}</strong>")
	})
}

// Italic rewrites *X* into <em>X</em>.
func Italic() Stage {
	return NewStage("italic", func(text string) string {
		return italicPattern.ReplaceAllString(text, "<em>${1}</em>")
	})
}

// Heading3 rewrites "### X" lines into <h4>.
func Heading3() Stage {
	return NewStage("heading3", func(text string) string {
		return heading3Pattern.ReplaceAllString(text, "<h4>${1}</h4>")
	})
}

// Heading2 rewrites "## X" lines into <h3>.
func Heading2() Stage {
	return NewStage("heading2", func(text string) string {
		return heading2Pattern.ReplaceAllString(text, "<h3>${1}</h3>")
	})
}

// OrderedList turns runs of "1. X" lines into one <ol>.
func OrderedList() Stage {
	return NewStage("ordered-list", func(text string) string {
		return wrapListRuns(text, orderedItem, "ol")
	})
}

// UnorderedList turns runs of "- X" or "* X" lines into one <ul>.
func UnorderedList() Stage {
	return NewStage("unordered-list", func(text string) string {
		return wrapListRuns(text, bulletItem, "ul")
	})
}

// LineBreaks turns every remaining newline into <br>.
func LineBreaks() Stage {
	return NewStage("line-breaks", func(text string) string {
		return strings.ReplaceAll(text, "\n", "<br>")
	})
}

// wrapListRuns collapses each run of consecutive item lines into a single
// container line. Lines outside runs, and the newlines around a run, are
// kept so later stages still see line starts.
func wrapListRuns(text string, item *regexp.Regexp, container string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	var items []string

	flush := func() {
		if len(items) == 0 {
			return
		}
		var b strings.Builder
		b.WriteString("<" + container + ">")
		for _, it := range items {
			b.WriteString("<li>")
			b.WriteString(it)
			b.WriteString("</li>")
		}
		b.WriteString("</" + container + ">")
		out = append(out, b.String())
		items = items[:0]
	}

	for _, line := range lines {
		if m := item.FindStringSubmatch(line); m != nil {
			items = append(items, m[1])
			continue
		}
		flush()
		out = append(out, line)
	}
	flush()

	return strings.Join(out, "\n")
}
