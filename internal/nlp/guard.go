package nlp

import (
	"regexp"
	"strings"
)

// Patterns that suggest a prompt injection attempt. Matched case-insensitively
// against the raw user input before it reaches any interpreter.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`ignore\s+(previous|all|above|earlier)\s+instructions?`),
	regexp.MustCompile(`disregard\s+(previous|all|above|earlier)\s+(instructions?|prompts?)`),
	regexp.MustCompile(`forget\s+(previous|all|above|earlier)\s+(instructions?|commands?)`),
	regexp.MustCompile(`system\s*:\s*`),
	regexp.MustCompile(`<\s*system\s*>`),
	regexp.MustCompile(`you\s+are\s+now\s+(a|an)\s+`),
	regexp.MustCompile(`act\s+as\s+(a|an)\s+`),
	regexp.MustCompile(`pretend\s+(to\s+be|you\s+are)`),
	regexp.MustCompile(`roleplay\s+as`),
	regexp.MustCompile(`new\s+instructions?`),
	regexp.MustCompile(`override\s+(previous|all|above)\s+`),
}

// DetectInjection returns the suspicious patterns matched by the input,
// empty when clean.
func DetectInjection(input string) []string {
	lower := strings.ToLower(input)
	var matched []string
	for _, p := range injectionPatterns {
		if p.MatchString(lower) {
			matched = append(matched, p.String())
		}
	}
	return matched
}
