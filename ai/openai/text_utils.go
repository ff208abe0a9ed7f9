package openai

import (
	"regexp"
	"strings"
)

// scrubString removes punctuation and trims whitespace from text.
// Hyphens and apostrophes survive since place names carry them.
func scrubString(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(".,!?;:\"()[]{}", r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

var (
	// A key after { or , that lost its opening quote, or both quotes.
	bareKey = regexp.MustCompile(`([{,]\s*)"?([A-Za-z_][A-Za-z0-9_]*)"?\s*:`)

	// A comma left dangling before a closing bracket.
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// stripFences removes a surrounding markdown code fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// repairJSON fixes the object syntax small models commonly get wrong in
// their responses: unquoted or half-quoted keys and trailing commas. String
// values containing `{name:` style text may be altered, which is acceptable
// for extraction output.
func repairJSON(s string) string {
	s = bareKey.ReplaceAllString(s, `$1"$2":`)
	return trailingComma.ReplaceAllString(s, "$1")
}
