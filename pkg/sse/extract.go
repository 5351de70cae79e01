package sse

import "strings"

const dataMarker = "data:"

// Extract pulls the event payload out of a single frame.
//
// Only lines beginning with "data:" contribute. The marker and exactly one
// following space are removed, and multiple data lines are joined with "\n".
// ok is false when the frame carries no data line at all, so comment-only or
// empty frames produce no event.
func Extract(frame string) (payload string, ok bool) {
	var lines []string

	for line := range strings.SplitSeq(frame, "\n") {
		line = strings.TrimSuffix(line, "\r")

		value, found := strings.CutPrefix(line, dataMarker)
		if !found {
			continue
		}

		lines = append(lines, strings.TrimPrefix(value, " "))
	}

	if len(lines) == 0 {
		return "", false
	}

	return strings.Join(lines, "\n"), true
}
