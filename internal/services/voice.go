package services

import (
	"regexp"
	"strings"

	"walleet/internal/core"
)

var (
	amountPattern   = regexp.MustCompile(`\d+(?:[.,]\d{1,2})?`)
	currencyPattern = regexp.MustCompile(`(?i)\s*(€|\beuro\b|\beur\b)`)
	spacePattern    = regexp.MustCompile(`\s+`)
)

// ParseTranscriptLocally reads "caffè 1,20 euro" style dictation: the last
// number is the amount, the remaining words the description.
func ParseTranscriptLocally(transcript string) []core.Candidate {
	text := strings.TrimSpace(transcript)
	if text == "" {
		return nil
	}

	var c core.Candidate
	if loc := lastMatch(amountPattern, text); loc != nil {
		if d, ok := core.ParseAmount(text[loc[0]:loc[1]]); ok {
			c.Amount = &d
		}
		text = text[:loc[0]] + " " + text[loc[1]:]
	}
	text = currencyPattern.ReplaceAllString(text, " ")
	c.Description = strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))

	if c.Description == "" && c.Amount == nil {
		return nil
	}
	return []core.Candidate{c}
}

func lastMatch(re *regexp.Regexp, s string) []int {
	all := re.FindAllStringIndex(s, -1)
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}
