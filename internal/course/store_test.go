package course

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

var defaultTestRules = []RuleRange{
	{MinScore: 80, MaxScore: 100, GPAValue: 4.0},
	{MinScore: 0, MaxScore: 79.9, GPAValue: 3.0},
}

// storeFactory builds a fresh store seeded with defaultTestRules. Both
// implementations must satisfy the same contract, so every test below runs
// against both.
type storeFactory func(t *testing.T) Store

func storeImpls(t *testing.T) map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) Store {
			return NewInMemoryStore(defaultTestRules)
		},
		"sqlite": func(t *testing.T) Store {
			return newTestSQLStore(t, defaultTestRules)
		},
	}
}

func addCourse(t *testing.T, s Store, owner, name string, regular float64, exams string) Course {
	t.Helper()
	c, err := s.AddCourse(context.Background(), owner,
		CourseInput{Name: name, RegularScore: &regular, ExamScores: json.RawMessage(exams)})
	if err != nil {
		t.Fatalf("AddCourse(%s): %v", name, err)
	}
	return c
}

func TestStoreAddCourseDerivedFields(t *testing.T) {
	for impl, factory := range storeImpls(t) {
		t.Run(impl, func(t *testing.T) {
			s := factory(t)
			c := addCourse(t, s, "u1", "Calc", 90, `[80,85]`)
			if c.ID == 0 {
				t.Error("expected server-assigned id")
			}
			if c.CreatedAt == 0 {
				t.Error("expected server-assigned created_at")
			}
			if c.FinalScore != 85.5 {
				t.Errorf("final score = %v, want 85.5", c.FinalScore)
			}
			if c.GPA != 4.0 {
				t.Errorf("gpa = %v, want 4.0", c.GPA)
			}
		})
	}
}

func TestStoreAddCourseRejectsInvalid(t *testing.T) {
	for impl, factory := range storeImpls(t) {
		t.Run(impl, func(t *testing.T) {
			s := factory(t)
			regular := 90.0
			_, err := s.AddCourse(context.Background(), "u1",
				CourseInput{Name: "", RegularScore: &regular, ExamScores: json.RawMessage(`[80]`)})
			if !errors.Is(err, ErrEmptyName) {
				t.Fatalf("got %v, want ErrEmptyName", err)
			}
			view, err := s.ListCourses(context.Background(), "u1", OrderCreatedDesc)
			if err != nil {
				t.Fatal(err)
			}
			if len(view) != 0 {
				t.Fatalf("rejected input still persisted: %v", view)
			}
		})
	}
}

func TestStoreListOrdering(t *testing.T) {
	for impl, factory := range storeImpls(t) {
		t.Run(impl, func(t *testing.T) {
			s := factory(t)
			addCourse(t, s, "u1", "Low", 50, `[50]`)
			addCourse(t, s, "u1", "High", 100, `[100]`)
			addCourse(t, s, "u1", "Mid", 70, `[70]`)

			byFinal, err := s.ListCourses(context.Background(), "u1", OrderFinalDesc)
			if err != nil {
				t.Fatal(err)
			}
			if got := names(byFinal); got != "High,Mid,Low" {
				t.Errorf("final order = %s", got)
			}

			byCreated, err := s.ListCourses(context.Background(), "u1", OrderCreatedDesc)
			if err != nil {
				t.Fatal(err)
			}
			// same-second inserts fall back to id, newest first
			if got := names(byCreated); got != "Mid,High,Low" {
				t.Errorf("created order = %s", got)
			}
		})
	}
}

func TestStoreDeleteOwnerScoped(t *testing.T) {
	for impl, factory := range storeImpls(t) {
		t.Run(impl, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)
			c := addCourse(t, s, "u1", "Calc", 90, `[80]`)

			if err := s.DeleteCourse(ctx, "u2", c.ID); !errors.Is(err, ErrCourseNotFound) {
				t.Fatalf("cross-owner delete: got %v, want ErrCourseNotFound", err)
			}
			view, _ := s.ListCourses(ctx, "u1", OrderCreatedDesc)
			if len(view) != 1 {
				t.Fatal("cross-owner delete removed the row")
			}

			if err := s.DeleteCourse(ctx, "u1", 9999); !errors.Is(err, ErrCourseNotFound) {
				t.Fatalf("missing id delete: got %v, want ErrCourseNotFound", err)
			}
			if err := s.DeleteCourse(ctx, "u1", c.ID); err != nil {
				t.Fatalf("owner delete: %v", err)
			}
			view, _ = s.ListCourses(ctx, "u1", OrderCreatedDesc)
			if len(view) != 0 {
				t.Fatal("course not deleted")
			}
		})
	}
}

func TestStoreReplaceRulesRecomputes(t *testing.T) {
	for impl, factory := range storeImpls(t) {
		t.Run(impl, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)
			// final 90 and final 82, both 4.0 under the default rules
			addCourse(t, s, "u1", "Ninety", 90, `[90]`)
			addCourse(t, s, "u2", "EightyTwo", 82, `[82]`)

			newRules := []RuleRange{
				{MinScore: 85, MaxScore: 100, GPAValue: 4.0},
				{MinScore: 0, MaxScore: 84.9, GPAValue: 3.5},
			}
			changed, err := s.ReplaceRules(ctx, newRules)
			if err != nil {
				t.Fatalf("ReplaceRules: %v", err)
			}
			// only u2's course changed gpa (4.0 -> 3.5)
			if len(changed) != 1 || changed[0] != "u2" {
				t.Fatalf("changed owners = %v, want [u2]", changed)
			}

			for owner, want := range map[string]float64{"u1": 4.0, "u2": 3.5} {
				view, err := s.ListCourses(ctx, owner, OrderCreatedDesc)
				if err != nil {
					t.Fatal(err)
				}
				if view[0].GPA != want {
					t.Errorf("%s gpa = %v, want %v", owner, view[0].GPA, want)
				}
				if got := LookupGPA(view[0].FinalScore, newRules); view[0].GPA != got {
					t.Errorf("%s gpa inconsistent with rule set: %v vs %v", owner, view[0].GPA, got)
				}
			}
		})
	}
}

func TestStoreReplaceRulesInvalidLeavesState(t *testing.T) {
	for impl, factory := range storeImpls(t) {
		t.Run(impl, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)
			c := addCourse(t, s, "u1", "Calc", 90, `[80,85]`)

			for _, bad := range [][]RuleRange{
				nil,
				{{MinScore: 90, MaxScore: 10, GPAValue: 4}},
			} {
				if _, err := s.ReplaceRules(ctx, bad); !errors.Is(err, ErrInvalidRuleSet) {
					t.Fatalf("ReplaceRules(%v): got %v, want ErrInvalidRuleSet", bad, err)
				}
			}

			rules, err := s.ListRules(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(rules) != len(defaultTestRules) {
				t.Fatalf("rule set changed after rejected replace: %v", rules)
			}
			view, _ := s.ListCourses(ctx, "u1", OrderCreatedDesc)
			if view[0].GPA != c.GPA {
				t.Fatalf("gpa changed after rejected replace: %v", view[0].GPA)
			}
		})
	}
}

func TestStoreListRulesSorted(t *testing.T) {
	for impl, factory := range storeImpls(t) {
		t.Run(impl, func(t *testing.T) {
			s := factory(t)
			rules, err := s.ListRules(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			for i := 1; i < len(rules); i++ {
				if rules[i-1].MinScore < rules[i].MinScore {
					t.Fatalf("rules not sorted by min_score desc: %v", rules)
				}
			}
		})
	}
}

func names(cs []Course) string {
	out := ""
	for i, c := range cs {
		if i > 0 {
			out += ","
		}
		out += c.Name
	}
	return out
}
