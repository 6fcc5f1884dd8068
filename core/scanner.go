package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/SamuelRCrider/legal-auditor/utils"
)

// Kind is the category label of a detected PII instance
type Kind string

const (
	// KindEmail represents an email address
	KindEmail Kind = "EMAIL"

	// KindSSN represents a US Social Security Number
	KindSSN Kind = "SSN"

	// KindPhone represents a North American phone number
	KindPhone Kind = "PHONE"

	// KindCreditCard represents a 16 digit payment card number
	KindCreditCard Kind = "CREDIT_CARD"

	// KindDateOfBirth represents any MM/DD/YYYY or MM-DD-YYYY date
	KindDateOfBirth Kind = "DATE_OF_BIRTH"

	// KindIPAddress represents a dotted-quad IPv4 address
	KindIPAddress Kind = "IP_ADDRESS"
)

// BuiltinKinds lists the built-in kinds in scan order
var BuiltinKinds = []Kind{KindEmail, KindSSN, KindPhone, KindCreditCard, KindDateOfBirth, KindIPAddress}

// IsBuiltin reports whether k is one of the built-in recognizer kinds
func (k Kind) IsBuiltin() bool {
	for _, b := range BuiltinKinds {
		if b == k {
			return true
		}
	}
	return false
}

// PatternInfo stores metadata about a recognizer
type PatternInfo struct {
	Kind        Kind
	Regex       *regexp.Regexp
	Confidence  float64
	Description string

	// Exclude drops a candidate whose full text matches
	Exclude *regexp.Regexp

	// Values is used instead of Regex for literal string rules
	Values []string
}

var ssnShape = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)

// builtinPatterns is ordered; scan output follows this order
var builtinPatterns = []PatternInfo{
	{
		Kind:        KindEmail,
		Regex:       regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
		Confidence:  0.95,
		Description: "Email address",
	},
	{
		Kind:        KindSSN,
		Regex:       regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		Confidence:  0.99,
		Description: "US Social Security Number",
	},
	{
		Kind:        KindPhone,
		Regex:       regexp.MustCompile(`\b(?:\+1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`),
		Confidence:  0.85,
		Description: "US Phone Number",
		Exclude:     ssnShape,
	},
	{
		Kind:        KindCreditCard,
		Regex:       regexp.MustCompile(`\b(?:\d{4}[- ]?){3}\d{4}\b`),
		Confidence:  0.90,
		Description: "Credit Card Number",
	},
	{
		Kind:        KindDateOfBirth,
		Regex:       regexp.MustCompile(`\b(?:0[1-9]|1[0-2])[/-](?:0[1-9]|[12]\d|3[01])[/-](?:19|20)\d{2}\b`),
		Confidence:  0.75,
		Description: "Date (possible date of birth)",
	},
	{
		Kind:        KindIPAddress,
		Regex:       regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|[01]?\d\d?)\.){3}(?:25[0-5]|2[0-4]\d|[01]?\d\d?)\b`),
		Confidence:  0.80,
		Description: "IPv4 Address",
	},
}

// ScannerConfig defines configuration for PII scanning
type ScannerConfig struct {
	// EnabledKinds restricts the built-in recognizers (empty means all)
	EnabledKinds []Kind

	// MaxScanSizeBytes limits the maximum text size to scan (0 means unlimited)
	MaxScanSizeBytes int
}

// Scanner runs an ordered set of recognizers over a text.
// It holds no mutable state and is safe for concurrent use.
type Scanner struct {
	config   ScannerConfig
	patterns []PatternInfo
	weights  map[Kind]float64
}

// NewScanner creates a scanner with the built-in recognizers followed by
// any rules of the detection policy
func NewScanner(config ScannerConfig, policy *Policy) (*Scanner, error) {
	patterns := make([]PatternInfo, 0, len(builtinPatterns))
	for _, p := range builtinPatterns {
		if kindEnabled(config.EnabledKinds, p.Kind) {
			patterns = append(patterns, p)
		}
	}

	weights := make(map[Kind]float64)
	if policy != nil {
		for _, rule := range policy.Rules {
			info, err := rule.patternInfo()
			if err != nil {
				return nil, fmt.Errorf("invalid policy rule '%s': %w", rule.ID, err)
			}
			patterns = append(patterns, info)
			if rule.Weight > 0 && !info.Kind.IsBuiltin() {
				weights[info.Kind] = rule.Weight
			}
		}
	}

	return &Scanner{
		config:   config,
		patterns: patterns,
		weights:  weights,
	}, nil
}

func kindEnabled(enabled []Kind, k Kind) bool {
	if len(enabled) == 0 {
		return true
	}
	for _, e := range enabled {
		if e == k {
			return true
		}
	}
	return false
}

// ScanResult contains the raw matches of one scan
type ScanResult struct {
	// List of matches, recognizer by recognizer
	Matches []utils.MatchResult

	// Count of each detected kind
	DetectedKinds map[Kind]int
}

// Scan runs every recognizer independently over the full text. Matches keep
// their raw values; withholding happens in the analyzer.
func (s *Scanner) Scan(text string) (*ScanResult, error) {
	if s.config.MaxScanSizeBytes > 0 && len(text) > s.config.MaxScanSizeBytes {
		return nil, fmt.Errorf("text exceeds maximum scan size of %d bytes", s.config.MaxScanSizeBytes)
	}

	result := &ScanResult{
		Matches:       []utils.MatchResult{},
		DetectedKinds: make(map[Kind]int),
	}
	if text == "" {
		return result, nil
	}

	for _, info := range s.patterns {
		for _, loc := range info.find(text) {
			value := text[loc[0]:loc[1]]
			if info.Exclude != nil && info.Exclude.MatchString(value) {
				continue
			}
			result.Matches = append(result.Matches, utils.MatchResult{
				Kind:        string(info.Kind),
				Value:       value,
				StartIndex:  loc[0],
				EndIndex:    loc[1],
				Confidence:  info.Confidence,
				Description: info.Description,
			})
			result.DetectedKinds[info.Kind]++
		}
	}

	return result, nil
}

// find returns non-overlapping [start, end) spans of the recognizer
func (p PatternInfo) find(text string) [][]int {
	if p.Regex != nil {
		locs := p.Regex.FindAllStringIndex(text, -1)
		// empty matches would break the start < end invariant
		out := locs[:0]
		for _, loc := range locs {
			if loc[1] > loc[0] {
				out = append(out, loc)
			}
		}
		return out
	}

	var locs [][]int
	for _, val := range p.Values {
		if val == "" {
			continue
		}
		offset := 0
		for {
			idx := strings.Index(text[offset:], val)
			if idx == -1 {
				break
			}
			start := offset + idx
			locs = append(locs, []int{start, start + len(val)})
			offset = start + len(val)
		}
	}
	return locs
}

// Weight returns the risk weight the scanner assigns to a kind
func (s *Scanner) Weight(k Kind) float64 {
	if w, ok := s.weights[k]; ok {
		return w
	}
	return KindWeight(k)
}

var defaultScanner, _ = NewScanner(ScannerConfig{}, nil)

// DetectPII scans text with the built-in recognizers. Matches are grouped by
// kind in recognizer order (EMAIL, SSN, PHONE, CREDIT_CARD, DATE_OF_BIRTH,
// IP_ADDRESS), not sorted by position.
func DetectPII(text string) []utils.MatchResult {
	result, err := defaultScanner.Scan(text)
	if err != nil {
		return []utils.MatchResult{}
	}
	return result.Matches
}
