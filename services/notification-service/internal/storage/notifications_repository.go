package storage

import (
	"context"
	"encoding/json"

	"github.com/nayeem-islam/linguadesk/libs/db"
)

type Notification struct {
	TrialID   string
	TeacherID string
	Kind      string
	Channel   string
	Recipient string
	Payload   map[string]any
	Status    string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO notifications (trial_id, teacher_id, kind, channel, recipient, payload, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.TrialID, n.TeacherID, n.Kind, n.Channel, n.Recipient, payload, n.Status)
	return err
}

func (r *Repository) ListForTrial(ctx context.Context, trialID string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT trial_id, teacher_id, kind, channel, recipient, payload, status
		FROM notifications
		WHERE trial_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, trialID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		var raw []byte
		if err := rows.Scan(&n.TrialID, &n.TeacherID, &n.Kind, &n.Channel, &n.Recipient, &raw, &n.Status); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &n.Payload)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
