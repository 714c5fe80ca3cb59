// Package models defines the core domain models for multi-tenant cascade execution.
package models

// NodeType is the closed set of node kinds a workflow can contain.
type NodeType string

const (
	NodeTypePrompt    NodeType = "prompt"
	NodeTypeFragment  NodeType = "prompt_fragment"
	NodeTypeDataset   NodeType = "dataset"
	NodeTypeIngest    NodeType = "ingest"
	NodeTypeVariable  NodeType = "variable"
	NodeTypeFramework NodeType = "framework"
	NodeTypeAgent     NodeType = "agent"
	NodeTypeWebFetch  NodeType = "web_integration"

	// Decorative kinds are stored for the canvas but never execute.
	NodeTypeNote  NodeType = "note"
	NodeTypeGroup NodeType = "group"
)

// Executable reports whether nodes of this type participate in cascades.
func (t NodeType) Executable() bool {
	switch t {
	case NodeTypePrompt, NodeTypeFragment, NodeTypeDataset, NodeTypeIngest,
		NodeTypeVariable, NodeTypeFramework, NodeTypeAgent, NodeTypeWebFetch:
		return true
	case NodeTypeNote, NodeTypeGroup:
		return false
	default:
		return false
	}
}

// Node is a single typed processing step in a workflow graph.
type Node struct {
	ID    string   `json:"id"    validate:"required"`
	Type  NodeType `json:"type"  validate:"required"`
	Label string   `json:"label" validate:"required,min=1"`

	// Paused excludes the node and its transitive dependents from cascades.
	Paused bool `json:"paused"`

	// LiveFetch marks the node's output as volatile. Dependents never track
	// its content hash; the node itself re-executes on every cascade.
	LiveFetch bool `json:"live_fetch"`

	Config NodeConfig   `json:"config"`
	Sync   SyncSettings `json:"sync"`

	PositionX int `json:"position_x"`
	PositionY int `json:"position_y"`
}

// NodeConfig carries exactly one kind-specific configuration, matching
// Node.Type. Unused slots stay nil.
type NodeConfig struct {
	Prompt    *PromptConfig    `json:"prompt,omitempty"`
	Fragment  *FragmentConfig  `json:"fragment,omitempty"`
	Dataset   *DatasetConfig   `json:"dataset,omitempty"`
	Ingest    *IngestConfig    `json:"ingest,omitempty"`
	Variable  *VariableConfig  `json:"variable,omitempty"`
	Framework *FrameworkConfig `json:"framework,omitempty"`
	Agent     *AgentConfig     `json:"agent,omitempty"`
	WebFetch  *WebFetchConfig  `json:"web_fetch,omitempty"`
}

// PartKind distinguishes the pieces a prompt is assembled from.
type PartKind string

const (
	PartKindText       PartKind = "text"
	PartKindVariable   PartKind = "variable"
	PartKindDependency PartKind = "dependency"
)

// PromptPart is one ordered piece of a prompt or fragment body. Dependency
// parts are the source of logical graph edges; cosmetic canvas edges are
// never consulted.
type PromptPart struct {
	Kind PartKind `json:"kind" validate:"required"`

	// Text for PartKindText, variable name for PartKindVariable.
	Text     string `json:"text,omitempty"`
	Variable string `json:"variable,omitempty"`

	// Dependency reference. WorkflowID is set only for cross-workflow
	// references, which are resolved by store lookup rather than ordering.
	NodeID     string `json:"node_id,omitempty"`
	WorkflowID string `json:"workflow_id,omitempty"`

	// TriggerDisabled opts this dependency out of dirtiness checks: a change
	// in the referenced node's output does not mark the consumer dirty.
	TriggerDisabled bool `json:"trigger_disabled,omitempty"`
}

// PromptConfig configures a completion-provider call.
type PromptConfig struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	WebSearch bool         `json:"web_search"`
	Parts     []PromptPart `json:"parts"`

	// EvaluationDisabled skips quality scoring for this node's outputs.
	EvaluationDisabled bool `json:"evaluation_disabled"`
}

// FragmentConfig is pure concatenation, no external call.
type FragmentConfig struct {
	Parts []PromptPart `json:"parts"`
}

// DatasetMode selects what a dataset node snapshots.
type DatasetMode string

const (
	DatasetModeAggregate      DatasetMode = "aggregate"       // outputs of a referenced node bundle
	DatasetModeSchemaSnapshot DatasetMode = "schema_snapshot" // live shared-schema description
	DatasetModeSharedCache    DatasetMode = "shared_cache"    // recent entries of a named cache
)

// DatasetConfig configures a dataset node.
type DatasetConfig struct {
	Mode    DatasetMode `json:"mode"`
	NodeIDs []string    `json:"node_ids,omitempty"` // aggregate mode
	Domain  string      `json:"domain,omitempty"`   // schema_snapshot mode
	Cache   string      `json:"cache,omitempty"`    // shared_cache mode
	Limit   int         `json:"limit,omitempty"`
}

// IngestConfig configures the workflow's submission entry point.
type IngestConfig struct {
	// Sources restricts which submission source classifications feed this
	// node. Empty means all sources.
	Sources []string `json:"sources,omitempty"`
}

// SchemaMapping maps a path inside a source node's output to a shared-schema
// field. The source node is a logical dependency of the variable node.
type SchemaMapping struct {
	NodeID string `json:"node_id" validate:"required"`
	Path   string `json:"path"`
	Domain string `json:"domain"  validate:"required"`
	Level  string `json:"level"`
	Field  string `json:"field"   validate:"required"`
}

// VariableConfig configures a variable node: either a static lookup by name
// or a schema-mapping transform.
type VariableConfig struct {
	Name     string          `json:"name,omitempty"`
	Mappings []SchemaMapping `json:"mappings,omitempty"`
}

// FrameworkConfig points at a stored scoring/rubric artifact.
type FrameworkConfig struct {
	FrameworkID string `json:"framework_id" validate:"required"`
}

// AgentApplyMode controls how a validated change plan is applied.
type AgentApplyMode string

const (
	AgentApplySchemaOnly AgentApplyMode = "schema_only"
	AgentApplyDataWrite  AgentApplyMode = "data_write"
)

// AgentConfig configures a schema-mapping agent node.
type AgentConfig struct {
	SourceNodeID string         `json:"source_node_id" validate:"required"`
	Mode         AgentApplyMode `json:"mode"`
	AutoApprove  bool           `json:"auto_approve"`
}

// WebCapability is the operation a web-integration node performs.
type WebCapability string

const (
	WebCapabilityFetchPage WebCapability = "fetch_page"
	WebCapabilitySearch    WebCapability = "search"
	WebCapabilityMapSite   WebCapability = "map_site"
	WebCapabilityCrawlSite WebCapability = "crawl_site"
)

// WebFetchConfig configures a web-retrieval call.
type WebFetchConfig struct {
	Capability WebCapability `json:"capability"`
	URL        string        `json:"url,omitempty"`
	Query      string        `json:"query,omitempty"`
	Limit      int           `json:"limit,omitempty"`
}
