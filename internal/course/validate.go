package course

import (
	"encoding/json"
	"math"
	"strings"
)

// ParseExamScores decodes the exam_scores field. Accepts a JSON array of
// numbers or a JSON string containing such an array (older clients send the
// latter).
func ParseExamScores(raw json.RawMessage) ([]float64, error) {
	if len(raw) == 0 {
		return nil, ErrInvalidExamScores
	}
	var scores []float64
	if err := json.Unmarshal(raw, &scores); err == nil {
		return scores, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, ErrInvalidExamScores
	}
	if err := json.Unmarshal([]byte(s), &scores); err != nil {
		return nil, ErrInvalidExamScores
	}
	return scores, nil
}

// ValidateInput checks a submitted course. Pure: no I/O, same verdict for the
// same input.
func ValidateInput(in CourseInput) ([]float64, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrEmptyName
	}
	if in.RegularScore == nil || !validScore(*in.RegularScore) {
		return nil, ErrInvalidRegularScore
	}
	scores, err := ParseExamScores(in.ExamScores)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, ErrInvalidExamScores
	}
	for _, s := range scores {
		if !validScore(s) {
			return nil, ErrInvalidExamScores
		}
	}
	return scores, nil
}

// ValidateRules checks a replacement rule set: non-empty, every range inside
// [0,100] with min <= max and a finite grade-point value.
func ValidateRules(rules []RuleRange) error {
	if len(rules) == 0 {
		return ErrInvalidRuleSet
	}
	for _, r := range rules {
		if !validScore(r.MinScore) || !validScore(r.MaxScore) {
			return ErrInvalidRuleSet
		}
		if math.IsNaN(r.GPAValue) || math.IsInf(r.GPAValue, 0) {
			return ErrInvalidRuleSet
		}
		if r.MinScore > r.MaxScore {
			return ErrInvalidRuleSet
		}
	}
	return nil
}

func validScore(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 100
}
