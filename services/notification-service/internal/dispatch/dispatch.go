package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nayeem-islam/linguadesk/libs/db"
	"github.com/nayeem-islam/linguadesk/libs/eventbox"
	"github.com/nayeem-islam/linguadesk/services/notification-service/internal/email"
	"github.com/nayeem-islam/linguadesk/services/notification-service/internal/storage"
	"github.com/nayeem-islam/linguadesk/services/notification-service/internal/whatsapp"
	"github.com/segmentio/kafka-go"
)

// Dispatcher turns schedule events into outbound messages. Every attempt is
// persisted to the notifications table and a notification.sent.v1 or
// notification.failed.v1 event goes out so downstream consumers can track
// delivery.
type Dispatcher struct {
	pool          *db.Pool
	notifications *storage.Repository
	outbox        *eventbox.OutboxRepository
	email         email.Sender
	whatsapp      whatsapp.Sender
	logger        *slog.Logger

	// FailSuffix forces a simulated delivery failure for recipients ending
	// with the suffix. Used by integration tests against a live stack.
	failSuffix string
}

type Config struct {
	FailSuffix string
}

func NewDispatcher(pool *db.Pool, notifications *storage.Repository, outboxRepo *eventbox.OutboxRepository, emailSender email.Sender, whatsappSender whatsapp.Sender, logger *slog.Logger, cfg Config) *Dispatcher {
	return &Dispatcher{
		pool:          pool,
		notifications: notifications,
		outbox:        outboxRepo,
		email:         emailSender,
		whatsapp:      whatsappSender,
		logger:        logger,
		failSuffix:    cfg.FailSuffix,
	}
}

type reminderPayload struct {
	TrialID      string         `json:"trial_id"`
	TeacherID    string         `json:"teacher_id"`
	Channel      string         `json:"channel"`
	Recipient    string         `json:"recipient"`
	RemindAt     string         `json:"remind_at"`
	TemplateData map[string]any `json:"template_data"`
}

// ReminderDue handles schedule.reminder.due.v1. Malformed payloads are
// dropped; delivery failures are recorded, not retried, since the schedule
// side enqueues each reminder once.
func (d *Dispatcher) ReminderDue(ctx context.Context, msg kafka.Message) error {
	var payload reminderPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		d.logger.Error("invalid reminder payload", "err", err)
		return nil
	}
	if payload.TrialID == "" || payload.Channel == "" || payload.Recipient == "" || payload.RemindAt == "" {
		d.logger.Error("missing reminder fields")
		return nil
	}
	if _, err := time.Parse(time.RFC3339, payload.RemindAt); err != nil {
		d.logger.Error("invalid remind_at", "err", err)
		return nil
	}

	body := buildReminderBody(payload.TemplateData)
	return d.deliver(ctx, delivery{
		trialID:   payload.TrialID,
		teacherID: payload.TeacherID,
		kind:      "reminder",
		channel:   strings.ToLower(payload.Channel),
		recipient: payload.Recipient,
		subject:   "Trial lesson reminder",
		body:      body,
		data:      payload.TemplateData,
	})
}

type trialCreatedPayload struct {
	TrialID         string `json:"trial_id"`
	TeacherID       string `json:"teacher_id"`
	StudentName     string `json:"student_name"`
	StudentEmail    string `json:"student_email"`
	StudentWhatsapp string `json:"student_whatsapp"`
	TrialDate       string `json:"trial_date"`
	StartTime       string `json:"start_time"`
}

// TrialCreated handles schedule.trial.created.v1 and sends an immediate
// booking confirmation on every channel the student left contact details for.
func (d *Dispatcher) TrialCreated(ctx context.Context, msg kafka.Message) error {
	var payload trialCreatedPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		d.logger.Error("invalid trial created payload", "err", err)
		return nil
	}
	if payload.TrialID == "" {
		d.logger.Error("missing trial id")
		return nil
	}

	body := buildConfirmationBody(payload.StudentName, payload.TrialDate, payload.StartTime)
	data := map[string]any{
		"student_name": payload.StudentName,
		"trial_date":   payload.TrialDate,
		"start_time":   payload.StartTime,
	}

	if payload.StudentEmail != "" {
		if err := d.deliver(ctx, delivery{
			trialID:   payload.TrialID,
			teacherID: payload.TeacherID,
			kind:      "confirmation",
			channel:   "email",
			recipient: payload.StudentEmail,
			subject:   "Trial lesson booked",
			body:      body,
			data:      data,
		}); err != nil {
			return err
		}
	}
	if payload.StudentWhatsapp != "" {
		if err := d.deliver(ctx, delivery{
			trialID:   payload.TrialID,
			teacherID: payload.TeacherID,
			kind:      "confirmation",
			channel:   "whatsapp",
			recipient: payload.StudentWhatsapp,
			body:      body,
			data:      data,
		}); err != nil {
			return err
		}
	}
	return nil
}

type delivery struct {
	trialID   string
	teacherID string
	kind      string
	channel   string
	recipient string
	subject   string
	body      string
	data      map[string]any
}

func (d *Dispatcher) deliver(ctx context.Context, dl delivery) error {
	status := "sent"
	failureReason := ""
	providerID := ""

	if d.failSuffix != "" && strings.HasSuffix(dl.recipient, d.failSuffix) {
		status = "failed"
		failureReason = "simulated failure"
	}

	if status == "sent" {
		switch dl.channel {
		case "email":
			if err := d.email.Send(dl.recipient, dl.subject, dl.body); err != nil {
				status = "failed"
				failureReason = err.Error()
				d.logger.Error("email send failed", "err", err, "recipient", dl.recipient)
			} else {
				providerID = "smtp"
			}
		case "whatsapp":
			if err := d.whatsapp.Send(ctx, dl.recipient, dl.body); err != nil {
				status = "failed"
				failureReason = err.Error()
				d.logger.Error("whatsapp send failed", "err", err, "recipient", dl.recipient)
			} else {
				providerID = d.whatsapp.ProviderID()
			}
		default:
			status = "failed"
			failureReason = "unsupported channel: " + dl.channel
			d.logger.Error("unsupported channel", "channel", dl.channel)
		}
	}

	if err := d.notifications.Insert(ctx, storage.Notification{
		TrialID:   dl.trialID,
		TeacherID: dl.teacherID,
		Kind:      dl.kind,
		Channel:   dl.channel,
		Recipient: dl.recipient,
		Payload:   dl.data,
		Status:    status,
	}); err != nil {
		d.logger.Error("failed to persist notification", "err", err)
		return err
	}

	if status == "failed" {
		return d.writeOutcome(ctx, dl, "notification.failed.v1", map[string]any{
			"trial_id":     dl.trialID,
			"teacher_id":   dl.teacherID,
			"kind":         dl.kind,
			"channel":      dl.channel,
			"error_reason": failureReason,
			"failed_at":    time.Now().UTC().Format(time.RFC3339),
		})
	}
	if providerID == "" {
		providerID = "unknown"
	}
	d.logger.Info("notification delivered", "trial_id", dl.trialID, "kind", dl.kind, "channel", dl.channel)
	return d.writeOutcome(ctx, dl, "notification.sent.v1", map[string]any{
		"trial_id":    dl.trialID,
		"teacher_id":  dl.teacherID,
		"kind":        dl.kind,
		"channel":     dl.channel,
		"provider_id": providerID,
		"sent_at":     time.Now().UTC().Format(time.RFC3339),
	})
}

func (d *Dispatcher) writeOutcome(ctx context.Context, dl delivery, eventType string, payload map[string]any) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := d.outbox.Insert(ctx, tx, eventbox.Event{
		AggregateType: "notification",
		AggregateID:   dl.trialID,
		EventType:     eventType,
		Payload:       raw,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func buildReminderBody(data map[string]any) string {
	name, _ := data["student_name"].(string)
	date, _ := data["trial_date"].(string)
	start, _ := data["start_time"].(string)
	body := fmt.Sprintf("Reminder: your trial lesson is on %s at %s.", date, start)
	if name != "" {
		body = fmt.Sprintf("Hi %s! %s", name, body)
	}
	return body
}

func buildConfirmationBody(name, date, start string) string {
	body := fmt.Sprintf("Your trial lesson is booked for %s at %s.", date, start)
	if name != "" {
		body = fmt.Sprintf("Hi %s! %s", name, body)
	}
	return body
}
