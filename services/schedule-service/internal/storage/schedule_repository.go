package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nayeem-islam/linguadesk/libs/db"
	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/model"
)

type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

func (r *ScheduleRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// ReplaceAvailability swaps a teacher's declared windows for one weekday.
// Windows are stored whole-day-at-a-time; the caller validated ordering and
// non-overlap.
func (r *ScheduleRepository) ReplaceAvailability(ctx context.Context, tx pgx.Tx, teacherID string, weekday int, windows []model.AvailabilityWindow) error {
	if _, err := tx.Exec(ctx, `
		DELETE FROM availability_windows
		WHERE teacher_id = $1 AND weekday = $2
	`, teacherID, weekday); err != nil {
		return err
	}
	for _, w := range windows {
		if _, err := tx.Exec(ctx, `
			INSERT INTO availability_windows (teacher_id, weekday, start_minute, end_minute)
			VALUES ($1, $2, $3, $4)
		`, teacherID, weekday, w.StartMinute, w.EndMinute); err != nil {
			return err
		}
	}
	return nil
}

// ListAvailability returns all recurring windows for a teacher, keyed by
// weekday (1=Sunday..7=Saturday).
func (r *ScheduleRepository) ListAvailability(ctx context.Context, teacherID string) (map[int][]model.AvailabilityWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT teacher_id, weekday, start_minute, end_minute
		FROM availability_windows
		WHERE teacher_id = $1
		ORDER BY weekday, start_minute
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDay := map[int][]model.AvailabilityWindow{}
	for rows.Next() {
		var w model.AvailabilityWindow
		if err := rows.Scan(&w.TeacherID, &w.Weekday, &w.StartMinute, &w.EndMinute); err != nil {
			return nil, err
		}
		byDay[w.Weekday] = append(byDay[w.Weekday], w)
	}
	return byDay, rows.Err()
}

func (r *ScheduleRepository) ListClassesInRange(ctx context.Context, teacherID string, from, to time.Time) ([]model.Class, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, teacher_id, student_id, course_id, class_date, start_minute, end_minute, status, created_at
		FROM classes
		WHERE teacher_id = $1
			AND class_date >= $2
			AND class_date < $3
			AND status <> 'cancelled'
		ORDER BY class_date, start_minute
	`, teacherID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []model.Class
	for rows.Next() {
		var c model.Class
		if err := rows.Scan(&c.ID, &c.TeacherID, &c.StudentID, &c.CourseID, &c.Date, &c.StartMinute, &c.EndMinute, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

func (r *ScheduleRepository) ListTrialsInRange(ctx context.Context, teacherID string, from, to time.Time) ([]model.Trial, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, teacher_id, course_id, COALESCE(student_id, ''), student_name,
			COALESCE(student_email, ''), COALESCE(student_whatsapp, ''), COALESCE(student_country, ''),
			trial_date, start_minute, end_minute, status, COALESCE(notes, ''), created_at
		FROM trials
		WHERE teacher_id = $1
			AND trial_date >= $2
			AND trial_date < $3
			AND status <> 'cancelled'
		ORDER BY trial_date, start_minute
	`, teacherID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trials []model.Trial
	for rows.Next() {
		var t model.Trial
		if err := rows.Scan(&t.ID, &t.TeacherID, &t.CourseID, &t.StudentID, &t.StudentName,
			&t.StudentEmail, &t.StudentWhatsapp, &t.StudentCountry,
			&t.Date, &t.StartMinute, &t.EndMinute, &t.Status, &t.Notes, &t.CreatedAt); err != nil {
			return nil, err
		}
		trials = append(trials, t)
	}
	return trials, rows.Err()
}

func (r *ScheduleRepository) CreateClass(ctx context.Context, tx pgx.Tx, c *model.Class) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO classes (teacher_id, student_id, course_id, class_date, start_minute, end_minute, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, c.TeacherID, c.StudentID, c.CourseID, c.Date, c.StartMinute, c.EndMinute, c.Status).Scan(&id)
	return id, err
}

func (r *ScheduleRepository) CreateTrial(ctx context.Context, tx pgx.Tx, t *model.Trial) (string, error) {
	var id string
	var studentID any
	if t.StudentID != "" {
		studentID = t.StudentID
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO trials
			(teacher_id, course_id, student_id, student_name, student_email, student_whatsapp, student_country,
			 trial_date, start_minute, end_minute, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, t.TeacherID, t.CourseID, studentID, t.StudentName, t.StudentEmail, t.StudentWhatsapp, t.StudentCountry,
		t.Date, t.StartMinute, t.EndMinute, t.Status, t.Notes).Scan(&id)
	return id, err
}

// LockSlot serializes concurrent bookings for one teacher-day. Classes and
// trials live in separate tables, so a cross-table overlap check needs the
// advisory lock; the per-table exclusion constraints remain as a backstop.
func (r *ScheduleRepository) LockSlot(ctx context.Context, tx pgx.Tx, teacherID string, date time.Time) error {
	_, err := tx.Exec(ctx, `
		SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))
	`, teacherID, date.Format("2006-01-02"))
	return err
}

// CountOverlapping counts non-cancelled classes and trials intersecting the
// half-open minute range on the given teacher-day.
func (r *ScheduleRepository) CountOverlapping(ctx context.Context, tx pgx.Tx, teacherID string, date time.Time, startMinute, endMinute int) (int, error) {
	var count int
	err := tx.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM classes
			 WHERE teacher_id = $1 AND class_date = $2 AND status <> 'cancelled'
			   AND start_minute < $4 AND end_minute > $3)
			+
			(SELECT COUNT(*) FROM trials
			 WHERE teacher_id = $1 AND trial_date = $2 AND status <> 'cancelled'
			   AND start_minute < $4 AND end_minute > $3)
	`, teacherID, date, startMinute, endMinute).Scan(&count)
	return count, err
}

// IsConflict reports an exclusion-constraint violation: two bookings claimed
// overlapping minutes for the same teacher and date.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
