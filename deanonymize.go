package main

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// GetShortModelName derives the display name for a model ID.
// OpenRouter IDs carry a provider prefix ("openrouter/gpt-5" -> "gpt-5");
// local runner IDs use a colon ("ollama:llama3" -> "llama3"). Anything else
// is already a display name. An empty ID, or one with nothing after the
// separator ("a/"), has no name to show and renders as "Unknown".
func GetShortModelName(modelID string) string {
	short := modelID
	if i := strings.Index(modelID, "/"); i >= 0 {
		short = modelID[i+1:]
	} else if i := strings.Index(modelID, ":"); i >= 0 {
		short = modelID[i+1:]
	}
	if short == "" {
		return "Unknown"
	}
	return short
}

// labelMatch is one occurrence of an anonymized label in a text
type labelMatch struct {
	start       int
	end         int
	replacement string
}

// DeanonymizeText replaces anonymized response labels ("Response A") with the
// bolded short name of the model behind them ("**gpt-5**"). Labels missing
// from the mapping are left verbatim, and a nil or empty mapping returns the
// text unchanged.
//
// Matching is whole-token: a label only matches where it is not flanked by a
// letter or digit, so "Response A" never fires inside "Response AB". All
// occurrences of all labels are collected as spans first, sorted, and written
// out in a single pass; overlapping spans resolve in favor of the longer label.
func DeanonymizeText(text string, labelToModel map[string]string) string {
	if text == "" || len(labelToModel) == 0 {
		return text
	}

	var matches []labelMatch
	for label, modelID := range labelToModel {
		if label == "" {
			continue
		}
		replacement := "**" + GetShortModelName(modelID) + "**"

		from := 0
		for {
			i := strings.Index(text[from:], label)
			if i < 0 {
				break
			}
			start := from + i
			end := start + len(label)
			if isWholeToken(text, start, end) {
				matches = append(matches, labelMatch{
					start:       start,
					end:         end,
					replacement: replacement,
				})
			}
			from = start + 1
		}
	}

	if len(matches) == 0 {
		return text
	}

	// Order by position; when two labels start at the same offset, the longer
	// one wins and the shorter is skipped as an overlap below.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].start != matches[j].start {
			return matches[i].start < matches[j].start
		}
		return matches[i].end > matches[j].end
	})

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		if m.start < last {
			continue // overlaps a span already written
		}
		b.WriteString(text[last:m.start])
		b.WriteString(m.replacement)
		last = m.end
	}
	b.WriteString(text[last:])

	return b.String()
}

// isWholeToken reports whether text[start:end] is not embedded in a larger
// word, i.e. neither neighbor is a letter or digit.
func isWholeToken(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
