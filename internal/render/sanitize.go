// Package render turns assistant answers into safe, annotated markup.
//
// The pipeline is Sanitize, then Annotate, then the ordered Stage list of a
// Pipeline. Every step is a pure string transform and never fails.
package render

import "html"

// Sanitize escapes <, >, &, ' and " so the result is inert inside markup.
func Sanitize(raw string) string {
	return html.EscapeString(raw)
}
