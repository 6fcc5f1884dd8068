package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeSSNAndCard(t *testing.T) {
	result := Analyze("SSN 123-45-6789, card 4532-1234-5678-9012")

	assert.Equal(t, []Kind{KindSSN, KindCreditCard}, result.Kinds)
	assert.Equal(t, 2, result.Count)
	assert.InDelta(t, 0.95, result.RiskScore, 1e-9)
	assert.True(t, result.Flagged)
	assert.Equal(t, RiskHigh, result.RiskLevel())

	require.Len(t, result.Matches, 2)
	assert.Equal(t, "XXX-XX-6789", result.Matches[0].Redacted)
	assert.Equal(t, "**** **** **** 9012", result.Matches[1].Redacted)

	// raw values of the most sensitive kinds are not carried forward
	for _, m := range result.Matches {
		assert.Equal(t, WithheldPlaceholder, m.Value)
	}
}

func TestAnalyzeEmail(t *testing.T) {
	result := Analyze("contact jane.doe@example.com")

	require.Len(t, result.Matches, 1)
	m := result.Matches[0]
	assert.Equal(t, "EMAIL", m.Kind)
	assert.Equal(t, "jane.doe@example.com", m.Value)
	assert.Equal(t, "ja******@example.com", m.Redacted)
	assert.Equal(t, 8, m.StartIndex)
	assert.Equal(t, 28, m.EndIndex)
	assert.InDelta(t, 0.95, m.Confidence, 1e-9)

	assert.InDelta(t, 0.15, result.RiskScore, 1e-9)
	assert.False(t, result.Flagged)
	assert.Equal(t, RiskLow, result.RiskLevel())
}

func TestAnalyzePhoneOnly(t *testing.T) {
	result := Analyze("555-123-4567")

	assert.Equal(t, []Kind{KindPhone}, result.Kinds)
	assert.Equal(t, "***-***-4567", result.Matches[0].Redacted)
	assert.InDelta(t, 0.2, result.RiskScore, 1e-9)
}

func TestAnalyzeSSNOnly(t *testing.T) {
	result := Analyze("123-45-6789")

	assert.Equal(t, []Kind{KindSSN}, result.Kinds)
	assert.Equal(t, 1, result.Count)
	assert.True(t, result.HasKind(KindSSN))
	assert.False(t, result.HasKind(KindPhone))
}

func TestAnalyzeEmptyInput(t *testing.T) {
	for _, text := range []string{"", "nothing sensitive in here"} {
		result := Analyze(text)
		assert.Equal(t, 0, result.Count)
		assert.Equal(t, 0.0, result.RiskScore)
		assert.False(t, result.Flagged)
		assert.NotNil(t, result.Matches)
		assert.NotNil(t, result.Kinds)
		assert.Equal(t, []string{NoPIIMessage}, Recommend(result.Kinds, result.RiskScore))
	}
}

func TestAnalyzeRepeatedKindScoresOnce(t *testing.T) {
	one := Analyze("a@example.com")
	two := Analyze("a@example.com b@example.com")

	assert.Equal(t, 2, two.Count)
	assert.Equal(t, []Kind{KindEmail}, two.Kinds)
	assert.Equal(t, one.RiskScore, two.RiskScore)
}

func TestAnalyzeFlagInvariant(t *testing.T) {
	texts := []string{
		"jane@example.com",
		"SSN 123-45-6789",
		"born 01/02/1990, call 555-123-4567, mail a@b.io, host 10.1.1.1",
		"card 4111 1111 1111 1111 and ssn 123-45-6789",
	}
	for _, text := range texts {
		r := Analyze(text)
		assert.Equal(t, r.RiskScore >= FlagThreshold, r.Flagged, text)
		if r.Count == 0 {
			assert.Equal(t, 0.0, r.RiskScore)
		}
	}
}

func TestAnalyzeJSONShape(t *testing.T) {
	data, err := json.Marshal(Analyze("contact jane.doe@example.com"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"pii_detected", "pii_types", "pii_count", "risk_score", "flagged"} {
		assert.Contains(t, decoded, key)
	}

	match := decoded["pii_detected"].([]any)[0].(map[string]any)
	assert.Equal(t, "EMAIL", match["type"])
	assert.EqualValues(t, 8, match["start_pos"])
	assert.NotContains(t, match, "Description")
}

func TestAnalyzerWithPolicyWeights(t *testing.T) {
	s, err := NewScanner(ScannerConfig{}, GenerateDefaultPolicy())
	require.NoError(t, err)

	result := NewAnalyzer(s).Analyze("member ABCD-123456789 account ACC-654321")
	assert.ElementsMatch(t, []Kind{"ACCOUNT_ID", "INSURANCE_ID"}, result.Kinds)
	assert.InDelta(t, (0.3+0.6)/2.0, result.RiskScore, 1e-9)
	for _, m := range result.Matches {
		assert.True(t, strings.HasPrefix(m.Redacted, "[REDACTED:"))
	}
}

func TestAnalyzerOversizedTextYieldsEmptyResult(t *testing.T) {
	s, err := NewScanner(ScannerConfig{MaxScanSizeBytes: 8}, nil)
	require.NoError(t, err)

	a := NewAnalyzer(s)
	result := a.Analyze("123-45-6789")
	assert.Equal(t, 0, result.Count)

	_, err = a.AnalyzeChecked("123-45-6789")
	assert.Error(t, err)
}

func TestAnalyzeBatchKeepsOrder(t *testing.T) {
	texts := make([]string, 50)
	for i := range texts {
		if i%2 == 0 {
			texts[i] = fmt.Sprintf("user%d@example.com", i)
		} else {
			texts[i] = "nothing here"
		}
	}

	results := NewAnalyzer(nil).AnalyzeBatch(texts, 4)
	require.Len(t, results, len(texts))
	for i, r := range results {
		if i%2 == 0 {
			require.Equal(t, 1, r.Count, i)
			assert.Equal(t, texts[i], r.Matches[0].Value)
		} else {
			assert.Equal(t, 0, r.Count, i)
		}
	}

	assert.Empty(t, NewAnalyzer(nil).AnalyzeBatch(nil, 0))
}
