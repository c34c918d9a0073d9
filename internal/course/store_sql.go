package course

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) ListCourses(ctx context.Context, owner string, order Order) ([]Course, error) {
	q := `SELECT id,owner,name,regular_score,exam_scores,final_score,gpa,created_at
		FROM courses WHERE owner=$1 ORDER BY created_at DESC, id DESC`
	if order == OrderFinalDesc {
		q = `SELECT id,owner,name,regular_score,exam_scores,final_score,gpa,created_at
			FROM courses WHERE owner=$1 ORDER BY final_score DESC, id DESC`
	}
	rows, err := s.db.QueryContext(ctx, q, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddCourse validates, computes derived fields against the committed rule set
// and inserts, all inside one transaction so a concurrent ReplaceRules can
// never leave the new row scored against a half-applied rule table.
func (s *SQLStore) AddCourse(ctx context.Context, owner string, in CourseInput) (Course, error) {
	scores, err := ValidateInput(in)
	if err != nil {
		return Course{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Course{}, err
	}
	defer tx.Rollback()

	rules, err := readRules(ctx, tx)
	if err != nil {
		return Course{}, err
	}

	final := ComputeFinal(*in.RegularScore, scores)
	c := Course{
		Owner:        owner,
		Name:         in.Name,
		RegularScore: *in.RegularScore,
		ExamScores:   scores,
		FinalScore:   final,
		GPA:          LookupGPA(final, rules),
		CreatedAt:    time.Now().Unix(),
	}
	sj, _ := json.Marshal(scores)

	if s.driver == "postgres" {
		err = tx.QueryRowContext(ctx,
			`INSERT INTO courses (owner,name,regular_score,exam_scores,final_score,gpa,created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			c.Owner, c.Name, c.RegularScore, string(sj), c.FinalScore, c.GPA, c.CreatedAt).Scan(&c.ID)
		if err != nil {
			return Course{}, err
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO courses (owner,name,regular_score,exam_scores,final_score,gpa,created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			c.Owner, c.Name, c.RegularScore, string(sj), c.FinalScore, c.GPA, c.CreatedAt)
		if err != nil {
			return Course{}, err
		}
		c.ID, err = res.LastInsertId()
		if err != nil {
			return Course{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Course{}, err
	}
	return c, nil
}

func (s *SQLStore) DeleteCourse(ctx context.Context, owner string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM courses WHERE id=$1 AND owner=$2`, id, owner)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// same answer whether the row is missing or belongs to someone else
		return ErrCourseNotFound
	}
	return nil
}

func (s *SQLStore) ListRules(ctx context.Context) ([]RuleRange, error) {
	return readRules(ctx, s.db)
}

// ReplaceRules swaps the rule table and recomputes every course's GPA in one
// transaction. Any failure rolls the whole thing back; no reader ever sees a
// partially-applied rule set.
func (s *SQLStore) ReplaceRules(ctx context.Context, rules []RuleRange) ([]string, error) {
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	rs := make([]RuleRange, len(rules))
	copy(rs, rules)
	SortRules(rs)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM gpa_rules`); err != nil {
		return nil, err
	}
	for _, r := range rs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO gpa_rules (min_score,max_score,gpa_value) VALUES ($1,$2,$3)`,
			r.MinScore, r.MaxScore, r.GPAValue); err != nil {
			return nil, err
		}
	}

	type row struct {
		id    int64
		owner string
		final float64
		gpa   float64
	}
	crows, err := tx.QueryContext(ctx, `SELECT id,owner,final_score,gpa FROM courses`)
	if err != nil {
		return nil, err
	}
	var all []row
	for crows.Next() {
		var r row
		if err := crows.Scan(&r.id, &r.owner, &r.final, &r.gpa); err != nil {
			crows.Close()
			return nil, err
		}
		all = append(all, r)
	}
	if err := crows.Err(); err != nil {
		crows.Close()
		return nil, err
	}
	crows.Close()

	changed := map[string]bool{}
	for _, r := range all {
		gpa := LookupGPA(r.final, rs)
		if gpa == r.gpa {
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE courses SET gpa=$1 WHERE id=$2`, gpa, r.id); err != nil {
			return nil, fmt.Errorf("recompute gpa for course %d: %w", r.id, err)
		}
		changed[r.owner] = true
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	owners := make([]string, 0, len(changed))
	for o := range changed {
		owners = append(owners, o)
	}
	sort.Strings(owners)
	return owners, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func readRules(ctx context.Context, q queryer) ([]RuleRange, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT min_score,max_score,gpa_value FROM gpa_rules ORDER BY min_score DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RuleRange{}
	for rows.Next() {
		var r RuleRange
		if err := rows.Scan(&r.MinScore, &r.MaxScore, &r.GPAValue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanCourse(sc scanner) (Course, error) {
	var c Course
	var scores string
	if err := sc.Scan(&c.ID, &c.Owner, &c.Name, &c.RegularScore, &scores,
		&c.FinalScore, &c.GPA, &c.CreatedAt); err != nil {
		return Course{}, err
	}
	if err := json.Unmarshal([]byte(scores), &c.ExamScores); err != nil {
		c.ExamScores = []float64{}
	}
	return c, nil
}
