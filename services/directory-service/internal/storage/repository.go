package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/nayeem-islam/linguadesk/libs/db"
	"github.com/nayeem-islam/linguadesk/services/directory-service/internal/model"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// GetOrCreateProfile seeds a default profile on first read so a fresh tenant
// works before the owner fills in settings.
func (r *Repository) GetOrCreateProfile(ctx context.Context, schoolID string) (model.SchoolProfile, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO school_profiles (school_id)
		VALUES ($1)
		ON CONFLICT (school_id) DO NOTHING
	`, schoolID)
	if err != nil {
		return model.SchoolProfile{}, err
	}

	var p model.SchoolProfile
	err = r.pool.QueryRow(ctx, `
		SELECT school_id::text, name, timezone, day_start_minute, day_end_minute, slot_step_minutes
		FROM school_profiles
		WHERE school_id = $1
	`, schoolID).Scan(&p.SchoolID, &p.Name, &p.Timezone, &p.DayStartMinute, &p.DayEndMinute, &p.SlotStepMinutes)
	return p, err
}

func (r *Repository) UpdateProfile(ctx context.Context, p model.SchoolProfile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO school_profiles (school_id, name, timezone, day_start_minute, day_end_minute, slot_step_minutes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (school_id) DO UPDATE
		SET name = EXCLUDED.name,
			timezone = EXCLUDED.timezone,
			day_start_minute = EXCLUDED.day_start_minute,
			day_end_minute = EXCLUDED.day_end_minute,
			slot_step_minutes = EXCLUDED.slot_step_minutes,
			updated_at = now()
	`, p.SchoolID, p.Name, p.Timezone, p.DayStartMinute, p.DayEndMinute, p.SlotStepMinutes)
	return err
}

func (r *Repository) CreateTeacher(ctx context.Context, tx pgx.Tx, t *model.Teacher) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO teachers (school_id, name, timezone, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text
	`, t.SchoolID, t.Name, t.Timezone, t.Active).Scan(&id)
	return id, err
}

func (r *Repository) ListTeachers(ctx context.Context, schoolID string, limit int) ([]model.Teacher, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, school_id::text, name, timezone, active, created_at
		FROM teachers
		WHERE school_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, schoolID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Teacher
	for rows.Next() {
		var t model.Teacher
		if err := rows.Scan(&t.ID, &t.SchoolID, &t.Name, &t.Timezone, &t.Active, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) CreateCourse(ctx context.Context, tx pgx.Tx, c *model.Course) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO courses (school_id, name, duration_minutes)
		VALUES ($1, $2, $3)
		RETURNING id::text
	`, c.SchoolID, c.Name, c.DurationMinutes).Scan(&id)
	return id, err
}

func (r *Repository) ListCourses(ctx context.Context, schoolID string, limit int) ([]model.Course, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, school_id::text, name, duration_minutes, created_at
		FROM courses
		WHERE school_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, schoolID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.SchoolID, &c.Name, &c.DurationMinutes, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) CreateStudent(ctx context.Context, tx pgx.Tx, s *model.Student) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO students (school_id, full_name, email, whatsapp, country)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text
	`, s.SchoolID, s.FullName, s.Email, s.Whatsapp, s.Country).Scan(&id)
	return id, err
}

// SearchStudents matches the free-text query against name and email with a
// case-insensitive substring search. An empty query lists most recent first.
func (r *Repository) SearchStudents(ctx context.Context, schoolID, query string, limit, offset int) ([]model.Student, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	pattern := "%" + strings.ReplaceAll(strings.ReplaceAll(query, "%", `\%`), "_", `\_`) + "%"
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, school_id::text, full_name, COALESCE(email, ''), COALESCE(whatsapp, ''), COALESCE(country, ''), created_at
		FROM students
		WHERE school_id = $1
			AND ($2 = '%%' OR full_name ILIKE $2 OR email ILIKE $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, schoolID, pattern, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Student
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.SchoolID, &s.FullName, &s.Email, &s.Whatsapp, &s.Country, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FindStudentByContact looks for an existing student by email (preferred) or
// whatsapp number. Used when materializing inline-intake students from trial
// events so repeat bookings don't multiply profiles.
func (r *Repository) FindStudentByContact(ctx context.Context, tx pgx.Tx, schoolID, email, whatsapp string) (string, bool, error) {
	var id string
	var err error
	switch {
	case email != "":
		err = tx.QueryRow(ctx, `
			SELECT id::text FROM students
			WHERE school_id = $1 AND email = $2
			LIMIT 1
		`, schoolID, email).Scan(&id)
	case whatsapp != "":
		err = tx.QueryRow(ctx, `
			SELECT id::text FROM students
			WHERE school_id = $1 AND whatsapp = $2
			LIMIT 1
		`, schoolID, whatsapp).Scan(&id)
	default:
		return "", false, nil
	}
	if err != nil {
		if IsNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return id, true, nil
}

// SchoolForTeacher resolves the tenant of a teacher referenced by an event
// that doesn't carry school scope itself.
func (r *Repository) SchoolForTeacher(ctx context.Context, tx pgx.Tx, teacherID string) (string, error) {
	var schoolID string
	err := tx.QueryRow(ctx, `
		SELECT school_id::text FROM teachers WHERE id = $1
	`, teacherID).Scan(&schoolID)
	return schoolID, err
}
