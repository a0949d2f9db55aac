package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nayeem-islam/linguadesk/libs/eventbox"
	"github.com/nayeem-islam/linguadesk/services/directory-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

// SchoolRegistered seeds the tenant profile when auth registers a new school,
// carrying the name the owner typed at signup. The rest of the profile keeps
// its defaults until the owner edits settings.
func SchoolRegistered(repo *storage.Repository, logger *slog.Logger) eventbox.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			SchoolID   string `json:"school_id"`
			SchoolName string `json:"school_name"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid school registered payload", "err", err)
			return nil
		}
		if payload.SchoolID == "" {
			logger.Error("missing school id")
			return nil
		}

		profile, err := repo.GetOrCreateProfile(ctx, payload.SchoolID)
		if err != nil {
			return err
		}
		if payload.SchoolName == "" || profile.Name == payload.SchoolName {
			return nil
		}
		profile.Name = payload.SchoolName
		return repo.UpdateProfile(ctx, profile)
	}
}
