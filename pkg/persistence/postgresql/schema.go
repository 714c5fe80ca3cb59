package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/persistence"
	"github.com/google/uuid"
)

// SchemaRepository stores shared-schema definitions and tenant field values.
type SchemaRepository struct {
	db *sql.DB
}

// Domains returns every schema domain.
func (r *SchemaRepository) Domains(ctx context.Context) ([]*models.SchemaDomain, error) {
	query := `SELECT id, name, levels, description FROM schema_domains ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query schema domains: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	domains := make([]*models.SchemaDomain, 0)

	for rows.Next() {
		var (
			domain     models.SchemaDomain
			levelsJSON []byte
		)

		if err := rows.Scan(&domain.ID, &domain.Name, &levelsJSON, &domain.Description); err != nil {
			return nil, fmt.Errorf("failed to scan schema domain: %w", err)
		}

		if err := json.Unmarshal(levelsJSON, &domain.Levels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal domain levels: %w", err)
		}

		domains = append(domains, &domain)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schema domains: %w", err)
	}

	return domains, nil
}

// FieldDefs returns the field definitions of one domain, ordered by level
// then path so consumers can group by level in one pass.
func (r *SchemaRepository) FieldDefs(ctx context.Context, domain string) ([]*models.SchemaFieldDef, error) {
	query := `SELECT id, domain, level, path, description FROM schema_field_defs WHERE domain = $1 ORDER BY level, path`

	rows, err := r.db.QueryContext(ctx, query, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to query field defs: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	defs := make([]*models.SchemaFieldDef, 0)

	for rows.Next() {
		var def models.SchemaFieldDef

		if err := rows.Scan(&def.ID, &def.Domain, &def.Level, &def.Path, &def.Description); err != nil {
			return nil, fmt.Errorf("failed to scan field def: %w", err)
		}

		defs = append(defs, &def)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating field defs: %w", err)
	}

	return defs, nil
}

// SaveFieldDef upserts a field definition.
func (r *SchemaRepository) SaveFieldDef(ctx context.Context, def *models.SchemaFieldDef) error {
	if def.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate field def ID: %w", err)
		}

		def.ID = id.String()
	}

	query := `
		INSERT INTO schema_field_defs (id, domain, level, path, description)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (domain, level, path) DO UPDATE SET
			description = EXCLUDED.description
	`

	_, err := r.db.ExecContext(ctx, query, def.ID, def.Domain, def.Level, def.Path, def.Description)
	if err != nil {
		return fmt.Errorf("failed to save field def: %w", err)
	}

	return nil
}

// FieldValues returns a tenant's current values in one domain.
func (r *SchemaRepository) FieldValues(ctx context.Context, tenantID, domain string) ([]*models.FieldValue, error) {
	query := `
		SELECT tenant_id, domain, level, path, value, version, source, updated_at
		FROM schema_field_values
		WHERE tenant_id = $1 AND domain = $2
		ORDER BY level, path
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to query field values: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	values := make([]*models.FieldValue, 0)

	for rows.Next() {
		var value models.FieldValue

		err := rows.Scan(
			&value.TenantID, &value.Domain, &value.Level, &value.Path,
			&value.Value, &value.Version, &value.Source, &value.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan field value: %w", err)
		}

		values = append(values, &value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating field values: %w", err)
	}

	return values, nil
}

// GetFieldValue returns the current value of one field.
func (r *SchemaRepository) GetFieldValue(ctx context.Context, tenantID, domain, level, path string) (*models.FieldValue, error) {
	query := `
		SELECT tenant_id, domain, level, path, value, version, source, updated_at
		FROM schema_field_values
		WHERE tenant_id = $1 AND domain = $2 AND level = $3 AND path = $4
	`

	var value models.FieldValue

	err := r.db.QueryRowContext(ctx, query, tenantID, domain, level, path).Scan(
		&value.TenantID, &value.Domain, &value.Level, &value.Path,
		&value.Value, &value.Version, &value.Source, &value.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrFieldValueNotFound
		}

		return nil, fmt.Errorf("failed to scan field value: %w", err)
	}

	return &value, nil
}

// SaveFieldValue writes a value, archiving the prior version in the same
// transaction.
func (r *SchemaRepository) SaveFieldValue(ctx context.Context, value *models.FieldValue) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	archiveQuery := `
		INSERT INTO schema_field_value_history (tenant_id, domain, level, path, value, version, source)
		SELECT tenant_id, domain, level, path, value, version, source
		FROM schema_field_values
		WHERE tenant_id = $1 AND domain = $2 AND level = $3 AND path = $4
	`

	_, err = tx.ExecContext(ctx, archiveQuery, value.TenantID, value.Domain, value.Level, value.Path)
	if err != nil {
		return fmt.Errorf("failed to archive field value: %w", err)
	}

	upsertQuery := `
		INSERT INTO schema_field_values (tenant_id, domain, level, path, value, version, source, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6, NOW())
		ON CONFLICT (tenant_id, domain, level, path) DO UPDATE SET
			value = EXCLUDED.value,
			version = schema_field_values.version + 1,
			source = EXCLUDED.source,
			updated_at = EXCLUDED.updated_at
		RETURNING version, updated_at
	`

	err = tx.QueryRowContext(ctx, upsertQuery,
		value.TenantID, value.Domain, value.Level, value.Path, value.Value, value.Source,
	).Scan(&value.Version, &value.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert field value: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit field value: %w", err)
	}

	return nil
}
