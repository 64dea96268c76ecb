// Package evaluation scores workflow outputs. It provides lightweight
// document statistics, which the research workflow reports for finalized
// documents, plus rule-based evaluators for judging produced drafts
// without another model call.
package evaluation

import (
	"strings"

	"github.com/chan4lk/autogen-workflows/core"
)

// Invocation pairs the user input with the final response produced by a run.
type Invocation struct {
	UserContent   core.Content
	FinalResponse core.Content
}

// Result is the outcome of evaluating a single invocation.
type Result struct {
	Passed  bool
	Score   float64
	Reasons []string
}

// Evaluator judges a completed invocation.
type Evaluator interface {
	Evaluate(invocation Invocation) (*Result, error)
}

// DocumentStats summarizes a document's size and structure.
type DocumentStats struct {
	WordCount      int
	SentenceCount  int
	ParagraphCount int
}

// ComputeStats derives document statistics from raw text.
func ComputeStats(text string) DocumentStats {
	stats := DocumentStats{WordCount: len(strings.Fields(text))}

	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			stats.SentenceCount++
		}
	}

	for _, para := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(para) != "" {
			stats.ParagraphCount++
		}
	}

	return stats
}

// LengthEvaluator fails responses shorter than MinWords. Score is the ratio
// of actual to required length, capped at 1.
type LengthEvaluator struct {
	MinWords int
}

// Evaluate implements Evaluator.
func (e LengthEvaluator) Evaluate(invocation Invocation) (*Result, error) {
	stats := ComputeStats(invocation.FinalResponse.TextOf())

	min := e.MinWords
	if min <= 0 {
		min = 1
	}

	res := &Result{Passed: stats.WordCount >= min}
	res.Score = float64(stats.WordCount) / float64(min)
	if res.Score > 1 {
		res.Score = 1
	}
	if !res.Passed {
		res.Reasons = append(res.Reasons, "response shorter than required minimum")
	}
	return res, nil
}

// KeywordEvaluator checks that the final response mentions every required
// term, case-insensitively. Score is the fraction of terms covered.
type KeywordEvaluator struct {
	Required []string
}

// Evaluate implements Evaluator.
func (e KeywordEvaluator) Evaluate(invocation Invocation) (*Result, error) {
	if len(e.Required) == 0 {
		return &Result{Passed: true, Score: 1}, nil
	}

	text := strings.ToLower(invocation.FinalResponse.TextOf())
	hit := 0
	res := &Result{}
	for _, term := range e.Required {
		if strings.Contains(text, strings.ToLower(term)) {
			hit++
			continue
		}
		res.Reasons = append(res.Reasons, "missing required term: "+term)
	}

	res.Score = float64(hit) / float64(len(e.Required))
	res.Passed = hit == len(e.Required)
	return res, nil
}

// All combines evaluators; the invocation passes only if every member
// passes, and the score is the mean of member scores.
type All []Evaluator

// Evaluate implements Evaluator.
func (a All) Evaluate(invocation Invocation) (*Result, error) {
	if len(a) == 0 {
		return &Result{Passed: true, Score: 1}, nil
	}

	combined := &Result{Passed: true}
	for _, e := range a {
		res, err := e.Evaluate(invocation)
		if err != nil {
			return nil, err
		}
		combined.Score += res.Score
		combined.Passed = combined.Passed && res.Passed
		combined.Reasons = append(combined.Reasons, res.Reasons...)
	}
	combined.Score /= float64(len(a))
	return combined, nil
}
