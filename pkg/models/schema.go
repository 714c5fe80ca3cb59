package models

import "time"

// SchemaDomain is one domain of the tenant-scoped shared-schema ("master
// data") store.
type SchemaDomain struct {
	ID          string   `json:"id"`
	Name        string   `json:"name" validate:"required"`
	Levels      []string `json:"levels,omitempty"`
	Description string   `json:"description,omitempty"`
}

// SchemaFieldDef describes one field of a domain.
type SchemaFieldDef struct {
	ID          string `json:"id"`
	Domain      string `json:"domain" validate:"required"`
	Level       string `json:"level,omitempty"`
	Path        string `json:"path"   validate:"required"`
	Description string `json:"description,omitempty"`
}

// FieldValue is a tenant's current value for one shared-schema field. Writes
// version the prior value rather than discarding it.
type FieldValue struct {
	TenantID string `json:"tenant_id"`
	Domain   string `json:"domain"`
	Level    string `json:"level,omitempty"`
	Path     string `json:"path"`

	Value   string `json:"value"`
	Version int    `json:"version"`

	// Source is "workflow:node" provenance for engine-written values.
	Source string `json:"source,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Framework is a stored scoring/rubric artifact a framework node injects
// into prompts. Schema holds the raw stored JSON and may be unparseable, in
// which case executors degrade to the raw text.
type Framework struct {
	ID          string    `json:"id"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description,omitempty"`
	Schema      string    `json:"schema"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
