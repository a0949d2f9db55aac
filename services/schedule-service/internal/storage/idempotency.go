package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// IdempotencyRecord is the stored outcome of a prior trial submission keyed by
// the client-supplied Idempotency-Key header.
type IdempotencyRecord struct {
	TeacherID       string
	IdempotencyKey  string
	TrialID         string
	StatusCode      int
	ResponsePayload []byte
}

// LockIdempotencyKey returns the existing record (replayed=true) or claims the
// key for this request. The row stays locked until the surrounding transaction
// commits, so concurrent duplicates serialize behind the first writer.
func (r *ScheduleRepository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, teacherID, key string) (IdempotencyRecord, bool, error) {
	rec, err := r.selectIdempotencyForUpdate(ctx, tx, teacherID, key)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO trial_idempotency_keys (teacher_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (teacher_id, idempotency_key) DO NOTHING
	`, teacherID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, tx, teacherID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, false, nil
}

func (r *ScheduleRepository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, teacherID, key, trialID string, statusCode int, response []byte) error {
	_, err := tx.Exec(ctx, `
		UPDATE trial_idempotency_keys
		SET trial_id = $3,
			status_code = $4,
			response_payload = $5,
			updated_at = now()
		WHERE teacher_id = $1 AND idempotency_key = $2
	`, teacherID, key, trialID, statusCode, response)
	return err
}

func (r *ScheduleRepository) selectIdempotencyForUpdate(ctx context.Context, tx pgx.Tx, teacherID, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var responseText string
	err := tx.QueryRow(ctx, `
		SELECT teacher_id::text,
			idempotency_key,
			COALESCE(trial_id::text, ''),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM trial_idempotency_keys
		WHERE teacher_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, teacherID, key).Scan(
		&rec.TeacherID,
		&rec.IdempotencyKey,
		&rec.TrialID,
		&rec.StatusCode,
		&responseText,
	)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}
