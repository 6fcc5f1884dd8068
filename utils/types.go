package utils

// MatchResult represents one detected PII occurrence inside a document
type MatchResult struct {
	// Classification information
	Kind        string  `json:"type" yaml:"type"`
	Confidence  float64 `json:"confidence" yaml:"confidence"`
	Description string  `json:"-" yaml:"-"`

	// Value is the matched substring, or a placeholder for withheld kinds
	Value    string `json:"value" yaml:"value"`
	Redacted string `json:"redacted" yaml:"redacted"`

	// Byte offsets into the scanned text
	StartIndex int `json:"start_pos" yaml:"start_pos"`
	EndIndex   int `json:"end_pos" yaml:"end_pos"`
}

// Len returns the length of the matched span
func (m MatchResult) Len() int {
	return m.EndIndex - m.StartIndex
}
