package core

import (
	"sync"

	"github.com/SamuelRCrider/legal-auditor/utils"
)

// AnalysisResult is the detection outcome of one document
type AnalysisResult struct {
	Matches   []utils.MatchResult `json:"pii_detected"`
	Kinds     []Kind              `json:"pii_types"`
	Count     int                 `json:"pii_count"`
	RiskScore float64             `json:"risk_score"`
	Flagged   bool                `json:"flagged"`
}

// RiskLevel returns the display label of the result's score
func (r *AnalysisResult) RiskLevel() RiskLevel {
	return LevelFor(r.RiskScore)
}

// HasKind reports whether the kind was detected
func (r *AnalysisResult) HasKind(k Kind) bool {
	for _, found := range r.Kinds {
		if found == k {
			return true
		}
	}
	return false
}

// EmptyAnalysis returns the zero-finding result
func EmptyAnalysis() *AnalysisResult {
	return &AnalysisResult{
		Matches: []utils.MatchResult{},
		Kinds:   []Kind{},
	}
}

// Analyzer assembles scanner, redactor and scorer into one analysis step
type Analyzer struct {
	scanner *Scanner
}

// NewAnalyzer creates an analyzer around a scanner (nil uses the built-in recognizers)
func NewAnalyzer(scanner *Scanner) *Analyzer {
	if scanner == nil {
		scanner = defaultScanner
	}
	return &Analyzer{scanner: scanner}
}

// Analyze runs the full detection pipeline. Text the scanner refuses
// (size limit) yields the zero-finding result.
func (a *Analyzer) Analyze(text string) *AnalysisResult {
	result, err := a.AnalyzeChecked(text)
	if err != nil {
		return EmptyAnalysis()
	}
	return result
}

// AnalyzeChecked is Analyze but surfaces scanner errors
func (a *Analyzer) AnalyzeChecked(text string) (*AnalysisResult, error) {
	if text == "" {
		return EmptyAnalysis(), nil
	}

	scan, err := a.scanner.Scan(text)
	if err != nil {
		return nil, err
	}

	result := EmptyAnalysis()
	seen := make(map[Kind]bool)
	for _, m := range scan.Matches {
		kind := Kind(m.Kind)
		m.Redacted = Redact(kind, m.Value)
		if placeholder, ok := WithheldValue(kind); ok {
			m.Value = placeholder
		}
		result.Matches = append(result.Matches, m)

		if !seen[kind] {
			seen[kind] = true
			result.Kinds = append(result.Kinds, kind)
		}
	}

	result.Count = len(result.Matches)
	result.RiskScore, result.Flagged = scoreWith(result.Kinds, a.scanner.Weight)
	return result, nil
}

// AnalyzeBatch analyzes texts concurrently on at most workers goroutines.
// Results are returned in input order.
func (a *Analyzer) AnalyzeBatch(texts []string, workers int) []*AnalysisResult {
	if workers <= 0 {
		workers = 1
	}

	results := make([]*AnalysisResult, len(texts))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = a.Analyze(texts[i])
			}
		}()
	}

	for i := range texts {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

var defaultAnalyzer = NewAnalyzer(nil)

// Analyze runs the built-in detection pipeline over text
func Analyze(text string) *AnalysisResult {
	return defaultAnalyzer.Analyze(text)
}
