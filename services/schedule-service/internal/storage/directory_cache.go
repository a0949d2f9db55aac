package storage

import (
	"context"

	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/model"
)

// Local read models of directory-service data, maintained from its
// directory.*.upserted.v1 events. Snapshot building and trial validation read
// these instead of calling directory-service per request.

func (r *ScheduleRepository) UpsertTeacher(ctx context.Context, t model.Teacher) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO teacher_cache (teacher_id, name, timezone, active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (teacher_id)
		DO UPDATE SET name = EXCLUDED.name,
		              timezone = EXCLUDED.timezone,
		              active = EXCLUDED.active,
		              updated_at = now()
	`, t.ID, t.Name, t.Timezone, t.Active)
	return err
}

func (r *ScheduleRepository) GetTeacher(ctx context.Context, teacherID string) (model.Teacher, bool, error) {
	var t model.Teacher
	err := r.pool.QueryRow(ctx, `
		SELECT teacher_id::text, name, timezone, active
		FROM teacher_cache
		WHERE teacher_id = $1
	`, teacherID).Scan(&t.ID, &t.Name, &t.Timezone, &t.Active)
	if err != nil {
		if IsNotFound(err) {
			return model.Teacher{}, false, nil
		}
		return model.Teacher{}, false, err
	}
	return t, true, nil
}

func (r *ScheduleRepository) UpsertStudent(ctx context.Context, s model.Student) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO student_cache (student_id, full_name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (student_id)
		DO UPDATE SET full_name = EXCLUDED.full_name,
		              email = EXCLUDED.email,
		              updated_at = now()
	`, s.ID, s.FullName, s.Email)
	return err
}

func (r *ScheduleRepository) GetStudent(ctx context.Context, studentID string) (model.Student, bool, error) {
	var s model.Student
	err := r.pool.QueryRow(ctx, `
		SELECT student_id::text, full_name, email
		FROM student_cache
		WHERE student_id = $1
	`, studentID).Scan(&s.ID, &s.FullName, &s.Email)
	if err != nil {
		if IsNotFound(err) {
			return model.Student{}, false, nil
		}
		return model.Student{}, false, err
	}
	return s, true, nil
}

func (r *ScheduleRepository) UpsertCourse(ctx context.Context, c model.Course) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO course_cache (course_id, name, duration_minutes)
		VALUES ($1, $2, $3)
		ON CONFLICT (course_id)
		DO UPDATE SET name = EXCLUDED.name,
		              duration_minutes = EXCLUDED.duration_minutes,
		              updated_at = now()
	`, c.ID, c.Name, c.DurationMinutes)
	return err
}

func (r *ScheduleRepository) GetCourse(ctx context.Context, courseID string) (model.Course, bool, error) {
	var c model.Course
	err := r.pool.QueryRow(ctx, `
		SELECT course_id::text, name, duration_minutes
		FROM course_cache
		WHERE course_id = $1
	`, courseID).Scan(&c.ID, &c.Name, &c.DurationMinutes)
	if err != nil {
		if IsNotFound(err) {
			return model.Course{}, false, nil
		}
		return model.Course{}, false, err
	}
	return c, true, nil
}

// ListStudentNames resolves display names for snapshot rows in one query.
func (r *ScheduleRepository) ListStudentNames(ctx context.Context, studentIDs []string) (map[string]string, error) {
	if len(studentIDs) == 0 {
		return map[string]string{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT student_id::text, full_name
		FROM student_cache
		WHERE student_id = ANY($1)
	`, studentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := map[string]string{}
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

// ListCourseNames resolves course display names for snapshot rows.
func (r *ScheduleRepository) ListCourseNames(ctx context.Context, courseIDs []string) (map[string]string, error) {
	if len(courseIDs) == 0 {
		return map[string]string{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT course_id::text, name
		FROM course_cache
		WHERE course_id = ANY($1)
	`, courseIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := map[string]string{}
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}
