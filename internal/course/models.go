package course

import "encoding/json"

// Course is one graded course owned by a single user. FinalScore and GPA are
// derived server-side and never accepted from the client.
type Course struct {
	ID           int64     `json:"id"`
	Owner        string    `json:"owner"`
	Name         string    `json:"name"`
	RegularScore float64   `json:"regular_score"`
	ExamScores   []float64 `json:"exam_scores"`
	FinalScore   float64   `json:"final_score"`
	GPA          float64   `json:"gpa"`
	CreatedAt    int64     `json:"created_at"`
}

// CourseInput is the client-submitted shape. ExamScores is raw JSON because
// clients send either an array ([80,85]) or a JSON-encoded string ("[80,85]").
// RegularScore is a pointer so an omitted field is distinguishable from 0.
type CourseInput struct {
	Name         string          `json:"name"`
	RegularScore *float64        `json:"regular_score"`
	ExamScores   json.RawMessage `json:"exam_scores"`
}

// RuleRange maps a closed score interval to a grade-point value.
type RuleRange struct {
	MinScore float64 `json:"min_score"`
	MaxScore float64 `json:"max_score"`
	GPAValue float64 `json:"gpa_value"`
}

// Order selects the listing order for a user's courses.
type Order string

const (
	OrderCreatedDesc Order = "created"
	OrderFinalDesc   Order = "final"
)
