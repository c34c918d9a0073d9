package course

import "errors"

var (
	ErrEmptyName           = errors.New("course name must not be empty")
	ErrInvalidRegularScore = errors.New("regular score must be a number between 0 and 100")
	ErrInvalidExamScores   = errors.New("exam scores must be a non-empty list of numbers between 0 and 100")
	ErrCourseNotFound      = errors.New("course not found")
	ErrInvalidRuleSet      = errors.New("invalid gpa rule set")
)

// IsValidation reports whether err is a client-input error (maps to 400).
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyName) ||
		errors.Is(err, ErrInvalidRegularScore) ||
		errors.Is(err, ErrInvalidExamScores) ||
		errors.Is(err, ErrInvalidRuleSet)
}
