package course

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store owns course rows and the gpa rule table. Implementations must keep
// every stored course's GPA consistent with the active rule set: ReplaceRules
// is all-or-nothing and recomputes every course before returning.
type Store interface {
	ListCourses(ctx context.Context, owner string, order Order) ([]Course, error)
	AddCourse(ctx context.Context, owner string, in CourseInput) (Course, error)
	DeleteCourse(ctx context.Context, owner string, id int64) error
	ListRules(ctx context.Context) ([]RuleRange, error)
	// ReplaceRules swaps the whole rule table and recomputes all GPAs. It
	// returns the owners whose courses changed GPA so callers can refresh
	// their live views.
	ReplaceRules(ctx context.Context, rules []RuleRange) ([]string, error)
}

type memoryStore struct {
	mu      sync.RWMutex
	courses map[int64]Course
	rules   []RuleRange
	nextID  int64
	now     func() time.Time
}

// NewInMemoryStore returns a Store with the same semantics as the SQL store,
// seeded with rules. Used by tests and offline mode.
func NewInMemoryStore(rules []RuleRange) Store {
	rs := make([]RuleRange, len(rules))
	copy(rs, rules)
	SortRules(rs)
	return &memoryStore{
		courses: map[int64]Course{},
		rules:   rs,
		now:     time.Now,
	}
}

func (m *memoryStore) ListCourses(_ context.Context, owner string, order Order) ([]Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Course{}
	for _, c := range m.courses {
		if c.Owner == owner {
			out = append(out, c)
		}
	}
	sortCourses(out, order)
	return out, nil
}

func (m *memoryStore) AddCourse(_ context.Context, owner string, in CourseInput) (Course, error) {
	scores, err := ValidateInput(in)
	if err != nil {
		return Course{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	final := ComputeFinal(*in.RegularScore, scores)
	m.nextID++
	c := Course{
		ID:           m.nextID,
		Owner:        owner,
		Name:         in.Name,
		RegularScore: *in.RegularScore,
		ExamScores:   scores,
		FinalScore:   final,
		GPA:          LookupGPA(final, m.rules),
		CreatedAt:    m.now().Unix(),
	}
	m.courses[c.ID] = c
	return c, nil
}

func (m *memoryStore) DeleteCourse(_ context.Context, owner string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok || c.Owner != owner {
		return ErrCourseNotFound
	}
	delete(m.courses, id)
	return nil
}

func (m *memoryStore) ListRules(_ context.Context) ([]RuleRange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RuleRange, len(m.rules))
	copy(out, m.rules)
	return out, nil
}

func (m *memoryStore) ReplaceRules(_ context.Context, rules []RuleRange) ([]string, error) {
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	rs := make([]RuleRange, len(rules))
	copy(rs, rules)
	SortRules(rs)

	m.mu.Lock()
	defer m.mu.Unlock()
	changed := map[string]bool{}
	for id, c := range m.courses {
		gpa := LookupGPA(c.FinalScore, rs)
		if gpa != c.GPA {
			c.GPA = gpa
			m.courses[id] = c
			changed[c.Owner] = true
		}
	}
	m.rules = rs
	owners := make([]string, 0, len(changed))
	for o := range changed {
		owners = append(owners, o)
	}
	sort.Strings(owners)
	return owners, nil
}

func sortCourses(cs []Course, order Order) {
	switch order {
	case OrderFinalDesc:
		sort.SliceStable(cs, func(i, j int) bool { return cs[i].FinalScore > cs[j].FinalScore })
	default:
		// newest first; id breaks ties from coarse unix timestamps
		sort.SliceStable(cs, func(i, j int) bool {
			if cs[i].CreatedAt != cs[j].CreatedAt {
				return cs[i].CreatedAt > cs[j].CreatedAt
			}
			return cs[i].ID > cs[j].ID
		})
	}
}
