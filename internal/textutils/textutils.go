// Package textutils holds the small string helpers shared by the extractors
// and the classifier.
package textutils

import (
	"regexp"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	columnGap     = regexp.MustCompile(`\s{2,}`)
)

// CollapseSpaces replaces runs of whitespace with one space and trims.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// SplitColumns splits a line on runs of two or more spaces, dropping empty parts.
func SplitColumns(s string) []string {
	var parts []string
	for _, p := range columnGap.Split(s, -1) {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// ContainsAll reports whether s contains every needle.
func ContainsAll(s string, needles ...string) bool {
	for _, n := range needles {
		if !strings.Contains(s, n) {
			return false
		}
	}
	return true
}

// ContainsAny reports whether s contains at least one needle.
func ContainsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// Snippet returns at most n runes of s, with "..." appended when cut.
func Snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "\n..."
}

// MarkerSet finds any of a fixed list of markers in one pass over the text.
type MarkerSet struct {
	markers []string
	fold    bool
	matcher *ahocorasick.Matcher
}

// NewMarkerSet builds a case-sensitive MarkerSet.
func NewMarkerSet(markers ...string) *MarkerSet {
	return &MarkerSet{markers: markers, matcher: ahocorasick.NewStringMatcher(markers)}
}

// NewFoldedMarkerSet builds a MarkerSet that ignores case.
func NewFoldedMarkerSet(markers ...string) *MarkerSet {
	lowered := make([]string, len(markers))
	for i, m := range markers {
		lowered[i] = strings.ToLower(m)
	}
	return &MarkerSet{markers: lowered, fold: true, matcher: ahocorasick.NewStringMatcher(lowered)}
}

// Matches returns the markers found in text, in marker-list order.
func (m *MarkerSet) Matches(text string) []string {
	if m.fold {
		text = strings.ToLower(text)
	}
	hits := m.matcher.MatchThreadSafe([]byte(text))
	found := make([]bool, len(m.markers))
	for _, h := range hits {
		found[h] = true
	}
	var out []string
	for i, ok := range found {
		if ok {
			out = append(out, m.markers[i])
		}
	}
	return out
}

// Any reports whether text contains at least one marker.
func (m *MarkerSet) Any(text string) bool {
	return len(m.Matches(text)) > 0
}
