package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/google/uuid"
)

// AlertRepository stores deduplicated alerts.
type AlertRepository struct {
	db *sql.DB
}

// Upsert inserts the alert or bumps the existing row for the same dedup key.
func (r *AlertRepository) Upsert(ctx context.Context, alert *models.Alert) error {
	if alert.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate alert ID: %w", err)
		}

		alert.ID = id.String()
	}

	scopeJSON, err := json.Marshal(alert.Scope)
	if err != nil {
		return fmt.Errorf("failed to marshal alert scope: %w", err)
	}

	contextJSON, err := json.Marshal(alert.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal alert context: %w", err)
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO alerts (id, dedup_key, alert_type, scope, severity, title, description, context,
			occurrences, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $9)
		ON CONFLICT (dedup_key) DO UPDATE SET
			severity = EXCLUDED.severity,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			context = EXCLUDED.context,
			occurrences = alerts.occurrences + 1,
			last_seen_at = EXCLUDED.last_seen_at
		RETURNING id, occurrences, first_seen_at, last_seen_at
	`

	row := r.db.QueryRowContext(ctx, query,
		alert.ID, alert.DedupKey(), alert.Type, scopeJSON,
		alert.Severity, alert.Title, alert.Description, contextJSON, now,
	)

	err = row.Scan(&alert.ID, &alert.Occurrences, &alert.FirstSeenAt, &alert.LastSeenAt)
	if err != nil {
		return fmt.Errorf("failed to upsert alert: %w", err)
	}

	return nil
}

// List returns alerts ordered by last-seen, newest first.
func (r *AlertRepository) List(ctx context.Context, limit int) ([]*models.Alert, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, alert_type, scope, severity, title, description, context,
			occurrences, first_seen_at, last_seen_at
		FROM alerts
		ORDER BY last_seen_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	alerts := make([]*models.Alert, 0)

	for rows.Next() {
		var (
			alert                  models.Alert
			scopeJSON, contextJSON []byte
		)

		err := rows.Scan(
			&alert.ID, &alert.Type, &scopeJSON, &alert.Severity,
			&alert.Title, &alert.Description, &contextJSON,
			&alert.Occurrences, &alert.FirstSeenAt, &alert.LastSeenAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}

		if err := json.Unmarshal(scopeJSON, &alert.Scope); err != nil {
			return nil, fmt.Errorf("failed to unmarshal alert scope: %w", err)
		}

		if contextJSON != nil {
			if err := json.Unmarshal(contextJSON, &alert.Context); err != nil {
				return nil, fmt.Errorf("failed to unmarshal alert context: %w", err)
			}
		}

		alerts = append(alerts, &alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}
