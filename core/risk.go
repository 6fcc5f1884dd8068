package core

import "math"

// RiskLevel is the display label derived from a risk score
type RiskLevel string

const (
	// RiskLow represents scores below 0.3
	RiskLow RiskLevel = "LOW"

	// RiskMedium represents scores from 0.3 up to the flag threshold
	RiskMedium RiskLevel = "MEDIUM"

	// RiskHigh represents scores at or above the flag threshold
	RiskHigh RiskLevel = "HIGH"
)

const (
	// FlagThreshold is the score at which a document is flagged for review
	FlagThreshold = 0.7

	// MediumThreshold is the lower bound of the MEDIUM risk level
	MediumThreshold = 0.3

	// riskSaturation is the weight sum that maps to a score of 1.0;
	// SSN plus CREDIT_CARD already reaches it
	riskSaturation = 2.0

	// DefaultKindWeight applies to kinds without an entry in the weight table
	DefaultKindWeight = 0.2
)

var kindWeights = map[Kind]float64{
	KindSSN:         1.0,
	KindCreditCard:  0.9,
	KindDateOfBirth: 0.6,
	KindPhone:       0.4,
	KindEmail:       0.3,
	KindIPAddress:   0.2,
}

// KindWeight returns the fixed risk weight of a kind
func KindWeight(k Kind) float64 {
	if w, ok := kindWeights[k]; ok {
		return w
	}
	return DefaultKindWeight
}

// Score maps the distinct kinds present to a normalized risk score and the
// flag decision. Repeated kinds count once.
func Score(kinds []Kind) (float64, bool) {
	return scoreWith(kinds, KindWeight)
}

func scoreWith(kinds []Kind, weight func(Kind) float64) (float64, bool) {
	seen := make(map[Kind]bool, len(kinds))
	total := 0.0
	for _, k := range kinds {
		if seen[k] {
			continue
		}
		seen[k] = true
		total += weight(k)
	}

	score := math.Min(total/riskSaturation, 1.0)
	return score, IsFlagged(score)
}

// IsFlagged reports whether a score requires compliance review
func IsFlagged(score float64) bool {
	return score >= FlagThreshold
}

// LevelFor derives the display label of a risk score
func LevelFor(score float64) RiskLevel {
	switch {
	case score >= FlagThreshold:
		return RiskHigh
	case score >= MediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}
