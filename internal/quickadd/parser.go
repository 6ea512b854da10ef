// Package quickadd turns a line such as "Electric 150" into a bill dated today.
package quickadd

import (
	"regexp"
	"strings"

	"billtracker/internal/core"
)

var amountToken = regexp.MustCompile(`^\d+(\.\d*)?$`)

// Entry is a parsed quick-add line before label resolution.
type Entry struct {
	Name   string
	Amount string
}

// Parse splits text on whitespace and takes the last numeric token as the
// amount; every token before it is the candidate name.
func Parse(text string) (Entry, error) {
	tokens := strings.Fields(text)
	if len(tokens) < 2 {
		return Entry{}, &core.ParseError{Input: text, Reason: `expected "<name> <amount>", e.g. "Electric 150"`}
	}

	for i := len(tokens) - 1; i >= 0; i-- {
		if !amountToken.MatchString(tokens[i]) {
			continue
		}
		if i == 0 {
			return Entry{}, &core.ParseError{Input: text, Reason: "missing bill name before the amount"}
		}
		return Entry{
			Name:   strings.Join(tokens[:i], " "),
			Amount: tokens[i],
		}, nil
	}
	return Entry{}, &core.ParseError{Input: text, Reason: "no amount found"}
}

// Match resolves name against labels. A label matches when it contains name,
// or when name contains the label's first word; both checks ignore case.
// The first matching label in list order wins, even if a later one is closer.
func Match(name string, labels []string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return "", false
	}
	for _, label := range labels {
		lower := strings.ToLower(label)
		if strings.Contains(lower, needle) {
			return label, true
		}
		words := strings.Fields(lower)
		if len(words) > 0 && strings.Contains(needle, words[0]) {
			return label, true
		}
	}
	return "", false
}
