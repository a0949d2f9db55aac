package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nayeem-islam/linguadesk/libs/eventbox"
	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/model"
	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

// Handlers that fold directory-service upsert events into the local cache
// tables. Malformed payloads are logged and dropped rather than retried; the
// next upsert of the same entity repairs the cache.

func TeacherUpserted(repo *storage.ScheduleRepository, logger *slog.Logger) eventbox.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			TeacherID string `json:"teacher_id"`
			Name      string `json:"name"`
			Timezone  string `json:"timezone"`
			Active    bool   `json:"active"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid teacher upsert payload", "err", err)
			return nil
		}
		if payload.TeacherID == "" || payload.Name == "" {
			logger.Error("missing teacher upsert fields")
			return nil
		}
		if payload.Timezone == "" {
			payload.Timezone = "UTC"
		}
		return repo.UpsertTeacher(ctx, model.Teacher{
			ID:       payload.TeacherID,
			Name:     payload.Name,
			Timezone: payload.Timezone,
			Active:   payload.Active,
		})
	}
}

func StudentUpserted(repo *storage.ScheduleRepository, logger *slog.Logger) eventbox.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			StudentID string `json:"student_id"`
			FullName  string `json:"full_name"`
			Email     string `json:"email"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid student upsert payload", "err", err)
			return nil
		}
		if payload.StudentID == "" || payload.FullName == "" {
			logger.Error("missing student upsert fields")
			return nil
		}
		return repo.UpsertStudent(ctx, model.Student{
			ID:       payload.StudentID,
			FullName: payload.FullName,
			Email:    payload.Email,
		})
	}
}

func CourseUpserted(repo *storage.ScheduleRepository, logger *slog.Logger) eventbox.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			CourseID        string `json:"course_id"`
			Name            string `json:"name"`
			DurationMinutes int    `json:"duration_minutes"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid course upsert payload", "err", err)
			return nil
		}
		if payload.CourseID == "" || payload.Name == "" {
			logger.Error("missing course upsert fields")
			return nil
		}
		if payload.DurationMinutes <= 0 {
			payload.DurationMinutes = 60
		}
		return repo.UpsertCourse(ctx, model.Course{
			ID:              payload.CourseID,
			Name:            payload.Name,
			DurationMinutes: payload.DurationMinutes,
		})
	}
}
