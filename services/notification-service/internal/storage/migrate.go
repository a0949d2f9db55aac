package storage

import (
	"context"
	"embed"

	"github.com/nayeem-islam/linguadesk/libs/db"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func Migrate(ctx context.Context, pool *db.Pool) error {
	return db.Migrate(ctx, pool, migrationsFS, "migrations")
}
