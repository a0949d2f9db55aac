package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nayeem-islam/linguadesk/libs/eventbox"
	"github.com/nayeem-islam/linguadesk/services/directory-service/internal/model"
	"github.com/nayeem-islam/linguadesk/services/directory-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

// TrialCreated materializes students booked through the inline intake path.
// When the trial already references a directory student there is nothing to
// do; otherwise we match by contact details first so repeat bookings from the
// same person don't multiply profiles, and create a record only when no match
// exists. Either way a student upsert event goes out so caches converge.
func TrialCreated(repo *storage.Repository, outboxRepo *eventbox.OutboxRepository, logger *slog.Logger) eventbox.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			TrialID         string `json:"trial_id"`
			TeacherID       string `json:"teacher_id"`
			StudentID       string `json:"student_id"`
			StudentName     string `json:"student_name"`
			StudentEmail    string `json:"student_email"`
			StudentWhatsapp string `json:"student_whatsapp"`
			StudentCountry  string `json:"student_country"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid trial created payload", "err", err)
			return nil
		}
		if payload.StudentID != "" || payload.StudentName == "" {
			return nil
		}

		tx, err := repo.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		school, err := repo.SchoolForTeacher(ctx, tx, payload.TeacherID)
		if err != nil {
			if storage.IsNotFound(err) {
				logger.Error("trial references unknown teacher", "teacher_id", payload.TeacherID, "trial_id", payload.TrialID)
				return nil
			}
			return err
		}

		studentID, found, err := repo.FindStudentByContact(ctx, tx, school, payload.StudentEmail, payload.StudentWhatsapp)
		if err != nil {
			return err
		}
		if !found {
			studentID, err = repo.CreateStudent(ctx, tx, &model.Student{
				SchoolID: school,
				FullName: payload.StudentName,
				Email:    payload.StudentEmail,
				Whatsapp: payload.StudentWhatsapp,
				Country:  payload.StudentCountry,
			})
			if err != nil {
				return err
			}
			logger.Info("student materialized from trial intake", "student_id", studentID, "trial_id", payload.TrialID)
		}

		evtPayload, err := json.Marshal(map[string]any{
			"student_id": studentID,
			"school_id":  school,
			"full_name":  payload.StudentName,
			"email":      payload.StudentEmail,
		})
		if err != nil {
			return err
		}
		if err := outboxRepo.Insert(ctx, tx, eventbox.Event{
			AggregateType: "student",
			AggregateID:   studentID,
			EventType:     "directory.student.upserted.v1",
			Payload:       evtPayload,
		}); err != nil {
			return err
		}

		return tx.Commit(ctx)
	}
}
