// Package topics canonicalizes free-text topic labels against a fixed
// vocabulary and alias table.
package topics

import (
	"regexp"
	"strings"
)

// MaxTopics is the most topics a single reel may carry.
const MaxTopics = 3

// Canonical is the curated topic vocabulary, in prompt order.
var Canonical = []string{
	"AI tools",
	"Productivity",
	"Pricing",
	"Marketing",
	"Content creation",
	"Entrepreneurship",
	"Startups",
	"Career growth",
	"Personal finance",
	"Investing",
	"Health & fitness",
	"Education",
	"Design",
	"Software development",
	"Sales",
	"Leadership",
}

// Aliases maps lower-cased free-text variants to a canonical topic.
var Aliases = map[string]string{
	"chatgpt":                 "AI tools",
	"gpt tools":               "AI tools",
	"artificial intelligence": "AI tools",
	"ai":                      "AI tools",
	"note taking":             "Productivity",
	"productivity tools":      "Productivity",
	"time management":         "Productivity",
	"pricing strategy":        "Pricing",
	"business pricing":        "Pricing",
	"content marketing":       "Marketing",
	"social media":            "Marketing",
	"creator economy":         "Content creation",
	"video editing":           "Content creation",
	"side hustles":            "Entrepreneurship",
	"startup growth":          "Startups",
	"career advice":           "Career growth",
	"money management":        "Personal finance",
	"budgeting":               "Personal finance",
	"stocks":                  "Investing",
	"fitness":                 "Health & fitness",
	"nutrition":               "Health & fitness",
	"learning":                "Education",
	"ui design":               "Design",
	"programming":             "Software development",
	"coding":                  "Software development",
	"selling":                 "Sales",
	"management":              "Leadership",
}

var canonicalByLower = func() map[string]string {
	m := make(map[string]string, len(Canonical))
	for _, c := range Canonical {
		m[strings.ToLower(c)] = c
	}
	return m
}()

var (
	leadingMarker       = regexp.MustCompile(`^(?:[-*•–—·]+|\d+[.)])\s*`)
	trailingPunctuation = regexp.MustCompile(`[\s.,;:!?]+$`)
	trailingTitleMarks  = regexp.MustCompile(`[.?!]+$`)
)

// Normalize maps topic to its canonical form. Aliases win over canonical
// lookups; unknown topics are returned trimmed with their original casing.
// An empty or blank topic yields "".
func Normalize(topic string) string {
	trimmed := strings.TrimSpace(topic)
	if trimmed == "" {
		return ""
	}
	key := strings.ToLower(trimmed)
	if alias, ok := Aliases[key]; ok {
		return alias
	}
	if canonical, ok := canonicalByLower[key]; ok {
		return canonical
	}
	return trimmed
}

// Clean strips list markers and trailing punctuation a model may leave on a topic.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = leadingMarker.ReplaceAllString(s, "")
	s = trailingPunctuation.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// NormalizeAndClamp cleans and normalizes raw topics, drops empties, removes
// case-insensitive duplicates keeping the first occurrence, and caps the
// result at MaxTopics.
func NormalizeAndClamp(raw []string) []string {
	out := make([]string, 0, MaxTopics)
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		topic := Normalize(Clean(r))
		if topic == "" {
			continue
		}
		key := strings.ToLower(topic)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, topic)
		if len(out) == MaxTopics {
			break
		}
	}
	return out
}

// CleanTitle trims a generated title and strips trailing sentence punctuation.
func CleanTitle(title string) string {
	t := strings.TrimSpace(title)
	t = trailingTitleMarks.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}
