package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/google/uuid"
)

// AlertRepository stores deduplicated alerts, one file per dedup key.
type AlertRepository struct {
	store *Persistence
}

func (r *AlertRepository) dir() string {
	return filepath.Join(r.store.root, "alerts")
}

func alertFileName(alert *models.Alert) string {
	// Dedup keys carry arbitrary scope values; hash them into a safe name.
	sum := sha256.Sum256([]byte(alert.DedupKey()))

	return hex.EncodeToString(sum[:16])
}

// Upsert inserts the alert or bumps the existing row for the same dedup key.
func (r *AlertRepository) Upsert(_ context.Context, alert *models.Alert) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now().UTC()
	path := filepath.Join(r.dir(), alertFileName(alert)+".json")

	var existing models.Alert

	found, err := readJSON(path, &existing)
	if err != nil {
		return err
	}

	if found {
		existing.Occurrences++
		existing.LastSeenAt = now
		existing.Severity = alert.Severity
		existing.Title = alert.Title
		existing.Description = alert.Description
		existing.Context = alert.Context

		*alert = existing

		return writeJSON(path, &existing)
	}

	if alert.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate alert ID: %w", err)
		}

		alert.ID = id.String()
	}

	alert.Occurrences = 1
	alert.FirstSeenAt = now
	alert.LastSeenAt = now

	return writeJSON(path, alert)
}

// List returns alerts ordered by last-seen, newest first.
func (r *AlertRepository) List(_ context.Context, limit int) ([]*models.Alert, error) {
	names, err := listJSONFiles(r.dir())
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	alerts := make([]*models.Alert, 0, len(names))

	for _, name := range names {
		var alert models.Alert

		if _, err := readJSON(filepath.Join(r.dir(), name+".json"), &alert); err != nil {
			return nil, err
		}

		alerts = append(alerts, &alert)
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].LastSeenAt.After(alerts[j].LastSeenAt)
	})

	if limit > 0 && len(alerts) > limit {
		alerts = alerts[:limit]
	}

	return alerts, nil
}
