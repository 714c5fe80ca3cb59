package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cascadehq/cascade/pkg/persistence"
	"github.com/cascadehq/cascade/pkg/persistence/file"
	"github.com/cascadehq/cascade/pkg/persistence/postgresql"
)

// NewPersistence selects a storage backend from the database URL scheme:
// postgres:// for PostgreSQL, anything else is treated as a root directory
// for the file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize postgresql persistence: %w", err))
		}

		return store
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parseProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}
