package validate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tickethq/ticketforge/internal/ticket"
)

func groundedContext() Context {
	return Context{SourceDocIDs: []string{"doc_1"}, HasDocuments: true}
}

func TestValidateAndRepairDropsCandidateWithoutTitle(t *testing.T) {
	t.Parallel()

	res := ValidateAndRepair([]map[string]any{
		{"title": ""},
		{"title": "   "},
		{"description": "no title at all"},
	}, Context{})

	require.Empty(t, res.Tickets)
	require.Equal(t, 3, res.Log.TotalInput)
	require.Equal(t, 0, res.Log.TotalOutput)
	require.Equal(t, 3, res.Log.Dropped)
	require.Len(t, res.Log.Reasons, 3)
}

func TestValidateAndRepairPromotesInsufficientAcceptanceCriteria(t *testing.T) {
	t.Parallel()

	res := ValidateAndRepair([]map[string]any{
		{"title": "Add login", "acceptance_criteria": []any{"Works"}, "type": "feature"},
	}, groundedContext())

	require.Len(t, res.Tickets, 1)
	got := res.Tickets[0]

	require.Equal(t, ticket.TypeDecision, got.Type)
	require.Equal(t, []string{
		"Document the decision outcome",
		"Communicate decision to affected stakeholders",
	}, got.AcceptanceCriteria)
	require.Contains(t, got.OpenQuestions, "[Needs clarification] Works")
	require.Equal(t, []ticket.Citation{{DocumentID: "doc_1", ChunkID: "inferred"}}, got.Citations)
	require.Equal(t, []string{"doc_1:inferred"}, got.CitationKeys)
	require.Equal(t, ticket.SourceModeGrounded, got.SourceMode)
	require.GreaterOrEqual(t, got.Confidence, 0.4)
	require.LessOrEqual(t, got.Confidence, 0.75)

	require.Equal(t, 1, res.Log.PromotedToDecision)
	require.Equal(t, 1, res.Log.CitationsInjected)
	require.Equal(t, 1, res.Log.Repaired)
}

func TestValidateAndRepairNormalizesEnumsWithExactPenalties(t *testing.T) {
	t.Parallel()

	res := ValidateAndRepair([]map[string]any{{
		"title":               "Fix bug",
		"type":                "FIX",
		"priority":            "urgent",
		"estimated_effort":    "sm",
		"acceptance_criteria": []any{"A", "B"},
		"citations":           []any{map[string]any{"document_id": "doc_2", "chunk_id": "c1"}},
	}}, Context{})

	require.Len(t, res.Tickets, 1)
	got := res.Tickets[0]

	require.Equal(t, ticket.TypeBug, got.Type)
	require.Equal(t, ticket.PriorityCritical, got.Priority)
	require.Equal(t, ticket.EffortS, got.EstimatedEffort)
	// 0.75 default minus 0.05 (type) + 0.03 (priority) + 0.10 (effort).
	require.Equal(t, 0.57, got.Confidence)
}

func TestValidateAndRepairCanonicalEnumsIncurNoPenalty(t *testing.T) {
	t.Parallel()

	res := ValidateAndRepair([]map[string]any{{
		"title":               "Tune cache",
		"type":                "task",
		"priority":            "high",
		"estimated_effort":    "L",
		"acceptance_criteria": []any{"A", "B"},
	}}, Context{})

	require.Len(t, res.Tickets, 1)
	require.Equal(t, 0.75, res.Tickets[0].Confidence)
}

func TestValidateAndRepairAbsentEffortIsPenalized(t *testing.T) {
	t.Parallel()

	res := ValidateAndRepair([]map[string]any{{
		"title":               "Size me",
		"acceptance_criteria": []any{"A", "B"},
	}}, Context{})

	require.Len(t, res.Tickets, 1)
	got := res.Tickets[0]
	require.Equal(t, ticket.EffortM, got.EstimatedEffort)
	require.Equal(t, 0.65, got.Confidence)
}

func TestValidateAndRepairDerivedPenalty(t *testing.T) {
	t.Parallel()

	res := ValidateAndRepair([]map[string]any{{
		"title":               "Inferred work",
		"type":                "task",
		"estimated_effort":    "M",
		"acceptance_criteria": []any{"A", "B"},
		"confidence":          0.9,
		"is_derived":          true,
		"derived_rationale":   "implied by the auth flow",
	}}, Context{})

	require.Len(t, res.Tickets, 1)
	got := res.Tickets[0]
	require.True(t, got.IsDerived)
	require.Equal(t, "implied by the auth flow", got.DerivedRationale)
	require.Equal(t, 0.8, got.Confidence)
}

func TestValidateAndRepairDecisionConfidenceBand(t *testing.T) {
	t.Parallel()

	// Very low model confidence is lifted to the decision floor.
	res := ValidateAndRepair([]map[string]any{{
		"title":      "Pick a queue",
		"confidence": 0.2,
	}}, Context{})
	require.Len(t, res.Tickets, 1)
	require.Equal(t, ticket.TypeDecision, res.Tickets[0].Type)
	require.Equal(t, 0.4, res.Tickets[0].Confidence)

	// High model confidence on an explicit decision is capped.
	res = ValidateAndRepair([]map[string]any{{
		"title":               "Choose storage engine",
		"type":                "decision",
		"estimated_effort":    "M",
		"acceptance_criteria": []any{"A", "B"},
		"confidence":          0.98,
	}}, Context{})
	require.Len(t, res.Tickets, 1)
	require.Equal(t, ticket.TypeDecision, res.Tickets[0].Type)
	require.Equal(t, 0.75, res.Tickets[0].Confidence)
}

func TestValidateAndRepairConfidenceBoundsHoldForMalformedBatch(t *testing.T) {
	t.Parallel()

	candidates := []map[string]any{
		{"title": "A", "confidence": "not a number"},
		{"title": "B", "confidence": 7.5},
		{"title": "C", "confidence": -3.0, "is_derived": true},
		{"title": "D", "acceptance_criteria": []any{"x", "y"}, "type": "mystery", "priority": "whatever", "estimated_effort": "??", "is_derived": true},
	}
	res := ValidateAndRepair(candidates, groundedContext())

	require.Len(t, res.Tickets, len(candidates))
	for _, got := range res.Tickets {
		require.GreaterOrEqual(t, got.Confidence, 0.0)
		require.LessOrEqual(t, got.Confidence, 1.0)
		if got.Type == ticket.TypeDecision {
			require.GreaterOrEqual(t, got.Confidence, 0.4)
			require.LessOrEqual(t, got.Confidence, 0.75)
		}
	}
}

func TestValidateAndRepairRejectsBareStringCitations(t *testing.T) {
	t.Parallel()

	res := ValidateAndRepair([]map[string]any{{
		"title":               "Citations",
		"acceptance_criteria": []any{"A", "B"},
		"citations": []any{
			"doc_1",
			map[string]any{"document_id": "doc_1", "chunk_id": "c2", "line_start": float64(3), "line_end": float64(9)},
			map[string]any{"document_id": 5, "chunk_id": "c3"},
			map[string]any{"document_id": "doc_1"},
		},
	}}, groundedContext())

	require.Len(t, res.Tickets, 1)
	got := res.Tickets[0]
	require.Len(t, got.Citations, 1)
	require.Equal(t, "doc_1", got.Citations[0].DocumentID)
	require.Equal(t, "c2", got.Citations[0].ChunkID)
	require.NotNil(t, got.Citations[0].LineStart)
	require.Equal(t, 3, *got.Citations[0].LineStart)
	require.Equal(t, []string{"doc_1:c2"}, got.CitationKeys)
	// A structured citation survived, so nothing is injected.
	require.Equal(t, 0, res.Log.CitationsInjected)
}

func TestValidateAndRepairGroundingInvariant(t *testing.T) {
	t.Parallel()

	ctx := Context{SourceDocIDs: []string{"doc_a", "doc_b"}, HasDocuments: true}
	res := ValidateAndRepair([]map[string]any{
		{"title": "One", "acceptance_criteria": []any{"A", "B"}},
		{"title": "Two", "acceptance_criteria": []any{"A", "B"}, "citations": []any{"junk"}},
	}, ctx)

	require.Len(t, res.Tickets, 2)
	for _, got := range res.Tickets {
		require.NotEmpty(t, got.Citations)
		require.Equal(t, "doc_a", got.Citations[0].DocumentID)
		require.Equal(t, "inferred", got.Citations[0].ChunkID)
		require.Equal(t, ticket.SourceModeGrounded, got.SourceMode)
	}
	require.Equal(t, 2, res.Log.CitationsInjected)
}

func TestValidateAndRepairSyntheticRunsGetNoCitations(t *testing.T) {
	t.Parallel()

	res := ValidateAndRepair([]map[string]any{
		{"title": "Free floating", "acceptance_criteria": []any{"A", "B"}},
	}, Context{})

	require.Len(t, res.Tickets, 1)
	got := res.Tickets[0]
	require.Empty(t, got.Citations)
	require.Empty(t, got.CitationKeys)
	require.Equal(t, ticket.SourceModeSynthetic, got.SourceMode)
}

func TestValidateAndRepairEdgeCasePolicy(t *testing.T) {
	t.Parallel()

	// Non-decision work with no edge cases gets the default placeholder.
	res := ValidateAndRepair([]map[string]any{{
		"title":               "Research spike",
		"type":                "spike",
		"estimated_effort":    "M",
		"acceptance_criteria": []any{"A", "B"},
		"known_edge_cases":    []any{},
	}}, Context{})
	require.Len(t, res.Tickets, 1)
	require.Equal(t, ticket.TypeSpike, res.Tickets[0].Type)
	require.Equal(t, []string{"Handle basic success case"}, res.Tickets[0].KnownEdgeCases)

	// A decision whose edge cases are placeholder noise is cleared.
	res = ValidateAndRepair([]map[string]any{{
		"title":               "Choose auth provider",
		"type":                "decision",
		"estimated_effort":    "M",
		"acceptance_criteria": []any{"A", "B"},
		"known_edge_cases":    []any{"Handle basic success case"},
	}}, Context{})
	require.Len(t, res.Tickets, 1)
	require.Empty(t, res.Tickets[0].KnownEdgeCases)

	// Real edge-case content on a decision is kept.
	res = ValidateAndRepair([]map[string]any{{
		"title":               "Choose auth provider",
		"type":                "decision",
		"estimated_effort":    "M",
		"acceptance_criteria": []any{"A", "B"},
		"known_edge_cases":    []any{"SSO tenants with custom domains"},
	}}, Context{})
	require.Len(t, res.Tickets, 1)
	require.Equal(t, []string{"SSO tenants with custom domains"}, res.Tickets[0].KnownEdgeCases)
}

func TestValidateAndRepairAcceptsLegacyFieldNames(t *testing.T) {
	t.Parallel()

	res := ValidateAndRepair([]map[string]any{
		{
			"title":               "Fix bug",
			"type":                "bug",
			"estimated_effort":    "S",
			"acceptance_criteria": []any{"A", "B"},
		},
		{
			"title":               "Ship feature",
			"type":                "task",
			"estimated_effort":    "M",
			"acceptance_criteria": []any{"A", "B"},
			"depends_on":          []any{"Fix bug"},
			"assignee_role":       "Backend Engineer",
			"edge_cases":          []any{"slow network"},
		},
	}, Context{})

	require.Len(t, res.Tickets, 2)
	got := res.Tickets[1]
	require.Equal(t, []string{"Fix bug"}, got.Dependencies)
	require.Equal(t, "Backend Engineer", got.SuggestedAssignee)
	require.Equal(t, []string{"slow network"}, got.KnownEdgeCases)
}

func TestValidateAndRepairCoercesSetupRequirements(t *testing.T) {
	t.Parallel()

	res := ValidateAndRepair([]map[string]any{{
		"title":               "Wire payments",
		"type":                "task",
		"estimated_effort":    "M",
		"acceptance_criteria": []any{"A", "B"},
		"setup_requirements": []any{
			map[string]any{"description": "payment sandbox", "type": "external_system", "resolved": true},
			map[string]any{"description": "schema migration", "type": "bogus", "resolved": "yes"},
			"a bare string requirement",
		},
	}}, Context{})

	require.Len(t, res.Tickets, 1)
	reqs := res.Tickets[0].SetupRequirements
	require.Len(t, reqs, 3)

	require.Equal(t, ticket.SetupExternalSystem, reqs[0].Type)
	require.True(t, reqs[0].Resolved)

	require.Equal(t, ticket.SetupOther, reqs[1].Type)
	require.False(t, reqs[1].Resolved)

	require.Equal(t, "a bare string requirement", reqs[2].Description)
	require.Equal(t, ticket.SetupOther, reqs[2].Type)
	require.False(t, reqs[2].Resolved)
}

func TestValidateAndRepairPreservesSuppliedIdentity(t *testing.T) {
	t.Parallel()

	res := ValidateAndRepair([]map[string]any{
		{"title": "Keep me", "objectID": "obj-42", "acceptance_criteria": []any{"A", "B"}},
		{"title": "Generate me", "acceptance_criteria": []any{"A", "B"}},
	}, Context{})

	require.Len(t, res.Tickets, 2)
	require.Equal(t, "obj-42", res.Tickets[0].ID)
	require.Equal(t, "obj-42", res.Tickets[0].ObjectID)
	require.NotEmpty(t, res.Tickets[1].ID)
	require.Equal(t, res.Tickets[1].ID, res.Tickets[1].ObjectID)
	require.NotEqual(t, res.Tickets[0].ID, res.Tickets[1].ID)
}

func TestValidateAndRepairSchemaCompleteness(t *testing.T) {
	t.Parallel()

	res := ValidateAndRepair([]map[string]any{
		{"title": "Bare minimum"},
	}, Context{})

	require.Len(t, res.Tickets, 1)
	got := res.Tickets[0]

	require.NotNil(t, got.AcceptanceCriteria)
	require.NotNil(t, got.KnownEdgeCases)
	require.NotNil(t, got.OpenQuestions)
	require.NotNil(t, got.SetupRequirements)
	require.NotNil(t, got.Dependencies)
	require.NotNil(t, got.Labels)
	require.NotNil(t, got.Citations)
	require.NotNil(t, got.CitationKeys)
	require.Equal(t, "Unassigned", got.SuggestedAssignee)
	require.Equal(t, "", got.Description)
	require.NotEmpty(t, got.ID)
}

func TestValidateAndRepairIdempotentOnCanonicalInput(t *testing.T) {
	t.Parallel()

	first := ValidateAndRepair([]map[string]any{{
		"title":               "Add login",
		"acceptance_criteria": []any{"Works"},
		"type":                "feature",
		"labels":              []any{"auth"},
	}}, groundedContext())
	require.Len(t, first.Tickets, 1)

	firstJSON, err := json.Marshal(first.Tickets[0])
	require.NoError(t, err)

	var candidate map[string]any
	require.NoError(t, json.Unmarshal(firstJSON, &candidate))

	second := ValidateAndRepair([]map[string]any{candidate}, groundedContext())
	require.Len(t, second.Tickets, 1)

	secondJSON, err := json.Marshal(second.Tickets[0])
	require.NoError(t, err)
	require.Equal(t, string(firstJSON), string(secondJSON))
	require.Equal(t, 0, second.Log.Repaired)
	require.Equal(t, 0, second.Log.PromotedToDecision)
	require.Equal(t, 0, second.Log.CitationsInjected)
}

func TestValidateAndRepairLogCountsRepairsOncePerTicket(t *testing.T) {
	t.Parallel()

	res := ValidateAndRepair([]map[string]any{
		// Multiple defects, one ticket: counts once in repaired.
		{"title": "Messy", "type": "FIX", "priority": "urgent"},
		// Fully canonical except generated id: no repair events beyond fills.
		{
			"title":               "Clean",
			"description":         "",
			"type":                "task",
			"priority":            "medium",
			"estimated_effort":    "M",
			"acceptance_criteria": []any{"A", "B"},
			"known_edge_cases":    []any{"x"},
			"open_questions":      []any{},
			"setup_requirements":  []any{},
			"dependencies":        []any{},
			"labels":              []any{},
			"suggested_assignee":  "QA",
			"confidence":          0.5,
		},
	}, Context{})

	require.Len(t, res.Tickets, 2)
	require.Equal(t, 1, res.Log.Repaired)
	require.Equal(t, 2, res.Log.TotalInput)
	require.Equal(t, 2, res.Log.TotalOutput)
	for _, reason := range res.Log.Reasons {
		require.Contains(t, reason, "Messy")
	}
}

func TestValidateAndRepairNeverPanicsOnGarbage(t *testing.T) {
	t.Parallel()

	res := ValidateAndRepair([]map[string]any{
		nil,
		{"title": 42},
		{"title": "OK", "acceptance_criteria": "not an array", "citations": "nope", "setup_requirements": 13, "labels": map[string]any{}},
	}, groundedContext())

	// Only the candidate with a usable title survives.
	require.Len(t, res.Tickets, 1)
	require.Equal(t, "OK", res.Tickets[0].Title)
	require.Equal(t, 2, res.Log.Dropped)
}
