// Package ticket defines the canonical ticket schema shared by the
// validation pipeline, the store, and the CLI.
package ticket

import "fmt"

// Citation points a ticket at a chunk of a source document.
type Citation struct {
	DocumentID string `json:"document_id"`
	ChunkID    string `json:"chunk_id"`
	LineStart  *int   `json:"line_start,omitempty"`
	LineEnd    *int   `json:"line_end,omitempty"`
}

// Key returns the derived citation key for the citation.
func (c Citation) Key() string {
	return fmt.Sprintf("%s:%s", c.DocumentID, c.ChunkID)
}

// SetupRequirement is a precondition a ticket depends on before work can start.
type SetupRequirement struct {
	Description string `json:"description"`
	Type        string `json:"type"`
	Resolved    bool   `json:"resolved"`
}

// Ticket is the canonical work item. Every ticket returned by the
// validation pipeline satisfies the invariants documented on each field.
type Ticket struct {
	ID       string `json:"id"`
	ObjectID string `json:"objectID"`

	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`

	AcceptanceCriteria []string           `json:"acceptance_criteria"`
	KnownEdgeCases     []string           `json:"known_edge_cases"`
	OpenQuestions      []string           `json:"open_questions"`
	SetupRequirements  []SetupRequirement `json:"setup_requirements"`
	Dependencies       []string           `json:"dependencies"`

	EstimatedEffort   string   `json:"estimated_effort"`
	Priority          string   `json:"priority"`
	Labels            []string `json:"labels"`
	SuggestedAssignee string   `json:"suggested_assignee"`

	Confidence   float64    `json:"confidence"`
	Citations    []Citation `json:"citations"`
	CitationKeys []string   `json:"citation_keys"`
	SourceMode   string     `json:"source_mode"`

	Stakeholders          []string `json:"stakeholders,omitempty"`
	SuggestedDependencies []string `json:"suggested_dependencies,omitempty"`
	IsDerived             bool     `json:"is_derived,omitempty"`
	DerivedRationale      string   `json:"derived_rationale,omitempty"`
	Readiness             string   `json:"readiness,omitempty"`
	ReadinessReason       string   `json:"readiness_reason,omitempty"`
	SourceDocs            []string `json:"source_docs,omitempty"`
	WorkspaceID           string   `json:"workspace_id,omitempty"`
	OwnerUID              string   `json:"owner_uid,omitempty"`
}

// CitationKeys derives the "{document_id}:{chunk_id}" key list for citations.
func CitationKeys(citations []Citation) []string {
	keys := make([]string, 0, len(citations))
	for _, c := range citations {
		keys = append(keys, c.Key())
	}
	return keys
}
