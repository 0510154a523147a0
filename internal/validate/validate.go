// Package validate repairs batches of ticket-shaped records produced by an
// LLM so that every ticket handed back conforms to the canonical schema.
// The pipeline is a pure function of its inputs aside from generating
// missing identifiers: no I/O, no persistence, no model calls. Every defect
// is repaired in place and logged; a candidate without a usable title is the
// only hard rejection.
package validate

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/tickethq/ticketforge/internal/ticket"
)

// Fixed repair content.
const (
	decisionCriterionOutcome     = "Document the decision outcome"
	decisionCriterionCommunicate = "Communicate decision to affected stakeholders"
	defaultEdgeCase              = "Handle basic success case"
	clarificationPrefix          = "[Needs clarification] "
	defaultAssignee              = "Unassigned"
	inferredChunkID              = "inferred"
)

// Confidence model. Penalties are additive and applied in a fixed order so
// repeated validation of the same input reproduces the same number.
const (
	defaultConfidence      = 0.75
	promotedConfidenceCap  = 0.60
	decisionConfidenceMin  = 0.40
	decisionConfidenceMax  = 0.75
	penaltyUnknownType     = 0.05
	penaltyUnknownPriority = 0.03
	penaltyUnknownEffort   = 0.10
	penaltyDerived         = 0.10
	penaltyInjectedCite    = 0.05
)

// edgeCasePlaceholders are phrases that carry no information; a decision
// ticket whose edge cases are nothing but these is treated as having none.
var edgeCasePlaceholders = map[string]bool{
	"handle basic success case": true,
	"none":                      true,
	"n/a":                       true,
	"tbd":                       true,
	"no edge cases":             true,
}

// Context describes the generation run the candidates came from.
type Context struct {
	SourceDocIDs []string `json:"source_doc_ids"`
	HasDocuments bool     `json:"has_documents"`
}

// Log aggregates what the pipeline had to fix across one batch. It is
// observational only and never feeds back into the returned tickets.
type Log struct {
	TotalInput         int      `json:"total_input"`
	TotalOutput        int      `json:"total_output"`
	Repaired           int      `json:"repaired"`
	Dropped            int      `json:"dropped"`
	PromotedToDecision int      `json:"promoted_to_decision"`
	CitationsInjected  int      `json:"citations_injected"`
	Reasons            []string `json:"reasons"`
}

func (l *Log) reason(format string, args ...any) {
	l.Reasons = append(l.Reasons, fmt.Sprintf(format, args...))
}

// Result is the outcome of one validation call.
type Result struct {
	Tickets []ticket.Ticket `json:"tickets"`
	Log     Log             `json:"log"`
}

// ValidateAndRepair validates each candidate independently and returns the
// schema-complete tickets plus the validation log. It never returns an
// error: malformed input is repaired, and only a candidate with no usable
// title is dropped.
func ValidateAndRepair(candidates []map[string]any, ctx Context) Result {
	res := Result{
		Tickets: []ticket.Ticket{},
		Log:     Log{TotalInput: len(candidates), Reasons: []string{}},
	}
	for i, raw := range candidates {
		if raw == nil {
			raw = map[string]any{}
		}
		t, repaired, ok := repairCandidate(raw, ctx, i, &res.Log)
		if !ok {
			continue
		}
		if repaired {
			res.Log.Repaired++
		}
		res.Tickets = append(res.Tickets, t)
	}
	res.Log.TotalOutput = len(res.Tickets)
	return res
}

// repairCandidate runs the per-candidate steps in order. Later steps depend
// on earlier decisions (confidence capping and edge-case clearing key off
// the decision promotion), so the order is part of the contract.
func repairCandidate(raw map[string]any, ctx Context, index int, lg *Log) (ticket.Ticket, bool, bool) {
	events := 0

	// Step 1: title gate. The only hard rejection.
	title := strings.TrimSpace(stringField(raw, "title"))
	if title == "" {
		lg.Dropped++
		lg.reason("candidate %d dropped: missing title", index)
		return ticket.Ticket{}, false, false
	}

	// Step 2: acceptance-criteria sufficiency. A ticket without at least
	// two verifiable success conditions is an unresolved decision, not
	// actionable work.
	criteria := nonEmptyStrings(stringSlice(raw["acceptance_criteria"]))
	openQuestions := nonEmptyStrings(stringSlice(raw["open_questions"]))
	promoted := false
	if len(criteria) < 2 {
		promoted = true
		for _, c := range criteria {
			openQuestions = append(openQuestions, clarificationPrefix+c)
		}
		criteria = []string{decisionCriterionOutcome, decisionCriterionCommunicate}
		lg.PromotedToDecision++
		lg.reason("%q: promoted to decision (fewer than 2 acceptance criteria)", title)
		events++
	}

	// Step 3: enum normalization. The changed flag, not mere presence,
	// drives the confidence penalty: an already-canonical value passes
	// through for free.
	rawType := strings.TrimSpace(stringField(raw, "type"))
	typ := ticket.TypeDecision
	typePenalized := false
	if !promoted {
		var changed bool
		typ, changed = ticket.NormalizeEnum(rawType, ticket.TypeAliases, ticket.TypeTask)
		typePenalized = rawType != "" && changed
		if typePenalized {
			lg.reason("%q: normalized type %q to %q", title, rawType, typ)
			events++
		}
	}

	rawPriority := strings.TrimSpace(stringField(raw, "priority"))
	priority, priorityChanged := ticket.NormalizeEnum(rawPriority, ticket.PriorityAliases, ticket.PriorityMedium)
	priorityPenalized := rawPriority != "" && priorityChanged
	if priorityPenalized {
		lg.reason("%q: normalized priority %q to %q", title, rawPriority, priority)
		events++
	}

	rawEffort := strings.TrimSpace(stringField(raw, "estimated_effort"))
	effort, effortPenalized := ticket.NormalizeEnum(rawEffort, ticket.EffortAliases, ticket.EffortM)
	if effortPenalized && rawEffort != "" {
		lg.reason("%q: normalized estimated_effort %q to %q", title, rawEffort, effort)
		events++
	}

	isDecision := typ == ticket.TypeDecision
	isDerived := boolField(raw, "is_derived")

	// Step 4: confidence. Start from the model's own number when sane.
	confidence := defaultConfidence
	if f, ok := floatField(raw, "confidence"); ok && f >= 0 && f <= 1 {
		confidence = f
	}
	if promoted && confidence > promotedConfidenceCap {
		confidence = promotedConfidenceCap
	}
	if typePenalized {
		confidence -= penaltyUnknownType
	}
	if priorityPenalized {
		confidence -= penaltyUnknownPriority
	}
	if effortPenalized {
		confidence -= penaltyUnknownEffort
	}
	if isDecision && len(openQuestions) > 0 && confidence > decisionConfidenceMax {
		confidence = decisionConfidenceMax
	}
	if isDerived {
		confidence -= penaltyDerived
	}

	// Step 5: citations and grounding. Only structured citation objects
	// survive; a document-backed run must point at something, so a missing
	// citation is synthesized from the first source document.
	citations := parseCitations(raw["citations"])
	if ctx.HasDocuments && len(ctx.SourceDocIDs) > 0 && len(citations) == 0 {
		citations = []ticket.Citation{{DocumentID: ctx.SourceDocIDs[0], ChunkID: inferredChunkID}}
		confidence -= penaltyInjectedCite
		lg.CitationsInjected++
		lg.reason("%q: injected citation from source document %q", title, ctx.SourceDocIDs[0])
		events++
	}
	sourceMode := ticket.SourceModeSynthetic
	if ctx.HasDocuments {
		sourceMode = ticket.SourceModeGrounded
	}

	// Decisions are inherently less certain than concrete work and must
	// never report near-1.0 confidence. The band clamp runs after every
	// penalty so it holds for all output tickets.
	if isDecision {
		confidence = math.Min(math.Max(confidence, decisionConfidenceMin), decisionConfidenceMax)
	}
	confidence = math.Max(confidence, 0)
	confidence = math.Round(confidence*100) / 100

	// Step 6: known edge cases. Decisions carry none unless something real
	// was supplied; work tickets are expected to at least gesture at one.
	edgeCases := nonEmptyStrings(firstSlice(raw, "known_edge_cases", "edge_cases"))
	filled := false
	if isDecision {
		if len(edgeCases) > 0 && allPlaceholderEdgeCases(edgeCases) {
			edgeCases = []string{}
			lg.reason("%q: cleared placeholder edge cases", title)
			events++
		}
	} else if len(edgeCases) == 0 {
		edgeCases = []string{defaultEdgeCase}
		filled = true
	}

	// Step 7: structural defaulting. Every remaining field gets a concrete
	// value; arrays are never nil on output.
	description := stringField(raw, "description")
	if _, ok := raw["description"].(string); !ok {
		filled = true
	}

	setupRequirements, coerced := parseSetupRequirements(raw["setup_requirements"])
	if coerced {
		filled = true
	}

	dependencies := firstSlice(raw, "dependencies", "depends_on")
	if dependencies == nil {
		dependencies = []string{}
		filled = true
	}

	labels := stringSlice(raw["labels"])
	if labels == nil {
		labels = []string{}
		filled = true
	}

	assignee := strings.TrimSpace(firstString(raw, "suggested_assignee", "assignee_role", "assignee"))
	if assignee == "" {
		assignee = defaultAssignee
		filled = true
	}

	if filled {
		lg.reason("%q: filled missing schema fields", title)
		events++
	}

	// Step 8: identity. Preserve the supplied identifier; both id and
	// objectID carry the same value for storage-layer compatibility.
	id := strings.TrimSpace(firstString(raw, "objectID", "id"))
	if id == "" {
		id = uuid.NewString()
	}

	t := ticket.Ticket{
		ID:                 id,
		ObjectID:           id,
		Title:              title,
		Description:        description,
		Type:               typ,
		AcceptanceCriteria: criteria,
		KnownEdgeCases:     edgeCases,
		OpenQuestions:      openQuestions,
		SetupRequirements:  setupRequirements,
		Dependencies:       dependencies,
		EstimatedEffort:    effort,
		Priority:           priority,
		Labels:             labels,
		SuggestedAssignee:  assignee,
		Confidence:         confidence,
		Citations:          citations,
		CitationKeys:       ticket.CitationKeys(citations),
		SourceMode:         sourceMode,

		Stakeholders:          nonEmptyStrings(stringSlice(raw["stakeholders"])),
		SuggestedDependencies: nonEmptyStrings(stringSlice(raw["suggested_dependencies"])),
		IsDerived:             isDerived,
		DerivedRationale:      strings.TrimSpace(stringField(raw, "derived_rationale")),
		Readiness:             strings.TrimSpace(stringField(raw, "readiness")),
		ReadinessReason:       strings.TrimSpace(stringField(raw, "readiness_reason")),
		SourceDocs:            nonEmptyStrings(stringSlice(raw["source_docs"])),
		WorkspaceID:           strings.TrimSpace(stringField(raw, "workspace_id")),
		OwnerUID:              strings.TrimSpace(stringField(raw, "owner_uid")),
	}
	if len(t.Stakeholders) == 0 {
		t.Stakeholders = nil
	}
	if len(t.SuggestedDependencies) == 0 {
		t.SuggestedDependencies = nil
	}
	if len(t.SourceDocs) == 0 {
		t.SourceDocs = nil
	}

	return t, events > 0, true
}

// parseCitations accepts only structured citation objects. Bare strings and
// malformed entries are discarded, not coerced.
func parseCitations(v any) []ticket.Citation {
	items, ok := v.([]any)
	if !ok {
		return []ticket.Citation{}
	}
	out := make([]ticket.Citation, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		docID, okDoc := m["document_id"].(string)
		chunkID, okChunk := m["chunk_id"].(string)
		if !okDoc || !okChunk || strings.TrimSpace(docID) == "" || strings.TrimSpace(chunkID) == "" {
			continue
		}
		c := ticket.Citation{DocumentID: docID, ChunkID: chunkID}
		if n, ok := intValue(m["line_start"]); ok {
			c.LineStart = &n
		}
		if n, ok := intValue(m["line_end"]); ok {
			c.LineEnd = &n
		}
		out = append(out, c)
	}
	return out
}

// parseSetupRequirements coerces malformed entries to {type: other,
// resolved: false} instead of dropping them. The coerced result reports
// whether anything had to change.
func parseSetupRequirements(v any) ([]ticket.SetupRequirement, bool) {
	items, ok := v.([]any)
	if !ok {
		return []ticket.SetupRequirement{}, v != nil
	}
	out := make([]ticket.SetupRequirement, 0, len(items))
	coerced := false
	for _, item := range items {
		switch entry := item.(type) {
		case map[string]any:
			req := ticket.SetupRequirement{
				Description: strings.TrimSpace(stringField(entry, "description")),
				Type:        strings.TrimSpace(stringField(entry, "type")),
			}
			if !ticket.ValidSetupType(req.Type) {
				req.Type = ticket.SetupOther
				coerced = true
			}
			if b, ok := entry["resolved"].(bool); ok {
				req.Resolved = b
			} else if _, present := entry["resolved"]; present {
				coerced = true
			}
			out = append(out, req)
		case string:
			out = append(out, ticket.SetupRequirement{
				Description: strings.TrimSpace(entry),
				Type:        ticket.SetupOther,
			})
			coerced = true
		default:
			coerced = true
		}
	}
	return out, coerced
}

func allPlaceholderEdgeCases(items []string) bool {
	for _, item := range items {
		if !edgeCasePlaceholders[strings.ToLower(strings.TrimSpace(item))] {
			return false
		}
	}
	return true
}
