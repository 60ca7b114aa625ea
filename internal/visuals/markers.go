package visuals

import (
	"regexp"
	"strconv"
	"strings"
)

// markerPattern matches one visual marker:
// (VISUAL n: description | KEYWORD: term)
var markerPattern = regexp.MustCompile(`\(VISUAL (\d+): ([^|]+) \| KEYWORD: ([^)]+)\)`)

// Marker is one parsed visual cue from a tagged script.
type Marker struct {
	Sequence    int
	Description string
	Keyword     string
}

// ParseMarkers extracts every visual marker in script order.
func ParseMarkers(text string) []Marker {
	matches := markerPattern.FindAllStringSubmatch(text, -1)
	markers := make([]Marker, 0, len(matches))
	for _, m := range matches {
		seq, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		markers = append(markers, Marker{
			Sequence:    seq,
			Description: strings.TrimSpace(m[2]),
			Keyword:     strings.TrimSpace(m[3]),
		})
	}
	return markers
}

var (
	doubleSpace = regexp.MustCompile(`[ \t]{2,}`)
	edgeOfLine  = regexp.MustCompile(`(?m)^[ \t]+|[ \t]+$`)
)

// StripMarkers removes all visual markers, returning the narration text
// that went in. Whitespace left behind by a removed marker is collapsed.
func StripMarkers(text string) string {
	stripped := markerPattern.ReplaceAllString(text, "")
	stripped = doubleSpace.ReplaceAllString(stripped, " ")
	stripped = edgeOfLine.ReplaceAllString(stripped, "")
	return strings.TrimSpace(stripped)
}
