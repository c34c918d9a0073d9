package syncx

import (
	"context"
	"database/sql"
	"time"
)

// MutationEvent is one appended row in the mutation log: course added/removed
// or rules replaced. Purely an audit trail; live fan-out goes through Hub.
type MutationEvent struct {
	Offset    int64
	Owner     string
	Type      string // CourseAdded, CourseDeleted, RulesReplaced
	Key       string // course id, or "" for rule changes
	DataJSON  string
	CreatedAt int64
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e MutationEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (owner, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.Owner, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}
