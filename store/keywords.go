package store

import (
	"strings"
	"unicode"
)

// complianceTerms are tagged on policy clauses at ingest
var complianceTerms = []string{
	"personal data", "pii", "data subject", "consent",
	"data breach", "notification", "encryption", "access control",
	"retention", "deletion", "right to erasure", "portability",
	"processing", "controller", "processor", "transfer",
	"phi", "hipaa", "gdpr", "ccpa", "security", "audit",
	"disclosure", "authorization", "minimum necessary",
}

// ExtractKeywords returns the compliance terms found in content, upper-cased
// with spaces turned into underscores
func ExtractKeywords(content string) []string {
	lower := strings.ToLower(content)

	keywords := []string{}
	for _, term := range complianceTerms {
		if strings.Contains(lower, term) {
			keywords = append(keywords, strings.ToUpper(strings.ReplaceAll(term, " ", "_")))
		}
	}
	return keywords
}

// tokenize splits text into lower-cased alphanumeric terms
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
