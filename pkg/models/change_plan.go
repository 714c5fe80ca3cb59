package models

// ProposedChange is one entry of an agent's change plan.
type ProposedChange struct {
	Domain string `json:"domain"`
	Level  string `json:"level,omitempty"`
	Path   string `json:"path"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// ChangePlan is the structured output of a schema-mapping agent: a summary
// plus validated changes to existing fields and/or additions of new
// structure. A plan needs a summary and at least one of the two lists to be
// applied.
type ChangePlan struct {
	Summary          []string         `json:"summary"`
	ValidatedChanges []ProposedChange `json:"validated_changes,omitempty"`
	NewStructure     []ProposedChange `json:"new_structure,omitempty"`
}

// ApplyReport summarizes what a change-plan application did.
type ApplyReport struct {
	Applied int `json:"applied"`
	Pending int `json:"pending"`
	Skipped int `json:"skipped"`
}
