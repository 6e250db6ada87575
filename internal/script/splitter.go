// Package script splits multi-statement SQL definitions (view,
// procedure, and trigger bodies) into driver-executable batches on a
// batch-separator convention.
//
// The splitter is deliberately naive and line-oriented: it does not
// understand string literals, block comments, or repeat counts on the
// separator. That is sufficient for the simple generated scripts it is
// fed, and keeps splitting purely textual.
package script

import "strings"

// DefaultSeparator is the conventional batch separator keyword.
const DefaultSeparator = "GO"

// Split divides a raw script into batches using the default separator.
func Split(raw string) []string {
	return SplitOn(raw, DefaultSeparator)
}

// SplitOn divides a raw script into batches. A line whose trimmed
// content equals the separator (case-insensitive) terminates the
// current batch. Batches are trimmed; blank batches are dropped.
func SplitOn(raw, separator string) []string {
	// Normalize all line-ending styles before scanning.
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	var batches []string
	var current strings.Builder

	flush := func() {
		batch := strings.TrimSpace(current.String())
		if batch != "" {
			batches = append(batches, batch)
		}
		current.Reset()
	}

	for _, line := range strings.Split(normalized, "\n") {
		if strings.EqualFold(strings.TrimSpace(line), separator) {
			flush()
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	flush()

	return batches
}
