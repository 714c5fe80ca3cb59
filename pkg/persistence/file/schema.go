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
	"github.com/cascadehq/cascade/pkg/persistence"
	"github.com/google/uuid"
)

// SchemaRepository stores shared-schema definitions and tenant field values.
type SchemaRepository struct {
	store *Persistence
}

func (r *SchemaRepository) domainsDir() string {
	return filepath.Join(r.store.root, "schema", "domains")
}

func (r *SchemaRepository) defsDir(domain string) string {
	return filepath.Join(r.store.root, "schema", "defs", domain)
}

func (r *SchemaRepository) valuesDir(tenantID, domain string) string {
	return filepath.Join(r.store.root, "schema", "values", tenantID, domain)
}

func (r *SchemaRepository) historyDir(tenantID, domain string) string {
	return filepath.Join(r.store.root, "schema", "history", tenantID, domain)
}

// pathName hashes a field path into a safe file name; paths carry dots and
// slashes.
func pathName(level, path string) string {
	sum := sha256.Sum256([]byte(level + "|" + path))

	return hex.EncodeToString(sum[:16])
}

// Domains returns every schema domain.
func (r *SchemaRepository) Domains(_ context.Context) ([]*models.SchemaDomain, error) {
	ids, err := listJSONFiles(r.domainsDir())
	if err != nil {
		return nil, fmt.Errorf("failed to list schema domains: %w", err)
	}

	domains := make([]*models.SchemaDomain, 0, len(ids))

	for _, id := range ids {
		var domain models.SchemaDomain

		if _, err := readJSON(filepath.Join(r.domainsDir(), id+".json"), &domain); err != nil {
			return nil, err
		}

		domains = append(domains, &domain)
	}

	return domains, nil
}

// FieldDefs returns the field definitions of one domain, ordered by level
// then path so consumers can group by level in one pass.
func (r *SchemaRepository) FieldDefs(_ context.Context, domain string) ([]*models.SchemaFieldDef, error) {
	names, err := listJSONFiles(r.defsDir(domain))
	if err != nil {
		return nil, fmt.Errorf("failed to list field defs: %w", err)
	}

	defs := make([]*models.SchemaFieldDef, 0, len(names))

	for _, name := range names {
		var def models.SchemaFieldDef

		if _, err := readJSON(filepath.Join(r.defsDir(domain), name+".json"), &def); err != nil {
			return nil, err
		}

		defs = append(defs, &def)
	}

	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Level != defs[j].Level {
			return defs[i].Level < defs[j].Level
		}

		return defs[i].Path < defs[j].Path
	})

	return defs, nil
}

// SaveFieldDef stores a field definition.
func (r *SchemaRepository) SaveFieldDef(_ context.Context, def *models.SchemaFieldDef) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if def.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate field def ID: %w", err)
		}

		def.ID = id.String()
	}

	path := filepath.Join(r.defsDir(def.Domain), pathName(def.Level, def.Path)+".json")

	return writeJSON(path, def)
}

// FieldValues returns a tenant's current values in one domain.
func (r *SchemaRepository) FieldValues(_ context.Context, tenantID, domain string) ([]*models.FieldValue, error) {
	names, err := listJSONFiles(r.valuesDir(tenantID, domain))
	if err != nil {
		return nil, fmt.Errorf("failed to list field values: %w", err)
	}

	values := make([]*models.FieldValue, 0, len(names))

	for _, name := range names {
		var value models.FieldValue

		if _, err := readJSON(filepath.Join(r.valuesDir(tenantID, domain), name+".json"), &value); err != nil {
			return nil, err
		}

		values = append(values, &value)
	}

	return values, nil
}

// GetFieldValue returns the current value of one field or
// persistence.ErrFieldValueNotFound.
func (r *SchemaRepository) GetFieldValue(_ context.Context, tenantID, domain, level, path string) (*models.FieldValue, error) {
	var value models.FieldValue

	file := filepath.Join(r.valuesDir(tenantID, domain), pathName(level, path)+".json")

	found, err := readJSON(file, &value)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrFieldValueNotFound
	}

	return &value, nil
}

// SaveFieldValue writes a value, archiving the prior version.
func (r *SchemaRepository) SaveFieldValue(ctx context.Context, value *models.FieldValue) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	name := pathName(value.Level, value.Path)
	current := filepath.Join(r.valuesDir(value.TenantID, value.Domain), name+".json")

	var prior models.FieldValue

	found, err := readJSON(current, &prior)
	if err != nil {
		return err
	}

	if found {
		archived := filepath.Join(r.historyDir(value.TenantID, value.Domain),
			fmt.Sprintf("%s-v%d.json", name, prior.Version))
		if err := writeJSON(archived, &prior); err != nil {
			return fmt.Errorf("failed to archive field value: %w", err)
		}

		value.Version = prior.Version + 1
	} else {
		value.Version = 1
	}

	value.UpdatedAt = time.Now().UTC()

	return writeJSON(current, value)
}
