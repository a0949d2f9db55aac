//go:build !protogen

package main

import (
	"context"
	"log/slog"

	"github.com/nayeem-islam/linguadesk/libs/db"
	"github.com/nayeem-islam/linguadesk/services/directory-service/internal/storage"
)

func startGrpcServer(_ context.Context, _ *slog.Logger, _ *db.Pool, _ *storage.Repository) error {
	return nil
}
