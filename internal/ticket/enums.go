package ticket

import "strings"

// Canonical ticket types.
const (
	TypeUserStory      = "user_story"
	TypeTask           = "task"
	TypeBug            = "bug"
	TypeSpike          = "spike"
	TypeInfrastructure = "infrastructure"
	TypeDecision       = "decision"
)

// Canonical effort sizes.
const (
	EffortXS = "XS"
	EffortS  = "S"
	EffortM  = "M"
	EffortL  = "L"
	EffortXL = "XL"
)

// Canonical priorities.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// Source modes.
const (
	SourceModeGrounded  = "grounded"
	SourceModeSynthetic = "synthetic"
)

// Setup requirement types.
const (
	SetupExternalSystem = "external_system"
	SetupPriorTicket    = "prior_ticket"
	SetupDecision       = "decision"
	SetupSchema         = "schema"
	SetupOther          = "other"
)

// TypeAliases maps lower-cased type spellings to canonical ticket types.
var TypeAliases = map[string]string{
	"user_story":     TypeUserStory,
	"user story":     TypeUserStory,
	"user-story":     TypeUserStory,
	"story":          TypeUserStory,
	"feature":        TypeUserStory,
	"task":           TypeTask,
	"chore":          TypeTask,
	"todo":           TypeTask,
	"bug":            TypeBug,
	"bugfix":         TypeBug,
	"fix":            TypeBug,
	"defect":         TypeBug,
	"issue":          TypeBug,
	"spike":          TypeSpike,
	"research":       TypeSpike,
	"investigation":  TypeSpike,
	"infrastructure": TypeInfrastructure,
	"infra":          TypeInfrastructure,
	"devops":         TypeInfrastructure,
	"ops":            TypeInfrastructure,
	"platform":       TypeInfrastructure,
	"decision":       TypeDecision,
	"adr":            TypeDecision,
}

// PriorityAliases maps lower-cased priority spellings to canonical priorities.
var PriorityAliases = map[string]string{
	"critical":     PriorityCritical,
	"urgent":       PriorityCritical,
	"blocker":      PriorityCritical,
	"highest":      PriorityCritical,
	"p0":           PriorityCritical,
	"high":         PriorityHigh,
	"important":    PriorityHigh,
	"p1":           PriorityHigh,
	"medium":       PriorityMedium,
	"med":          PriorityMedium,
	"normal":       PriorityMedium,
	"moderate":     PriorityMedium,
	"p2":           PriorityMedium,
	"low":          PriorityLow,
	"minor":        PriorityLow,
	"trivial":      PriorityLow,
	"nice to have": PriorityLow,
	"p3":           PriorityLow,
}

// EffortAliases maps lower-cased effort spellings to canonical T-shirt sizes.
var EffortAliases = map[string]string{
	"xs":          EffortXS,
	"extra small": EffortXS,
	"extra-small": EffortXS,
	"tiny":        EffortXS,
	"s":           EffortS,
	"sm":          EffortS,
	"small":       EffortS,
	"m":           EffortM,
	"med":         EffortM,
	"medium":      EffortM,
	"l":           EffortL,
	"lg":          EffortL,
	"large":       EffortL,
	"xl":          EffortXL,
	"extra large": EffortXL,
	"extra-large": EffortXL,
	"huge":        EffortXL,
}

// setupTypes is the closed set of setup requirement types.
var setupTypes = map[string]bool{
	SetupExternalSystem: true,
	SetupPriorTicket:    true,
	SetupDecision:       true,
	SetupSchema:         true,
	SetupOther:          true,
}

// ValidSetupType reports whether raw is a canonical setup requirement type.
func ValidSetupType(raw string) bool {
	return setupTypes[raw]
}

// NormalizeEnum resolves raw against an alias table, falling back when the
// value is unrecognized. The changed result reports that the trimmed raw
// value was not already exactly the canonical spelling; callers use it to
// decide whether normalization cost anything (an already-canonical value
// passes through for free).
func NormalizeEnum(raw string, aliases map[string]string, fallback string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback, true
	}
	canonical, ok := aliases[strings.ToLower(trimmed)]
	if !ok {
		return fallback, true
	}
	return canonical, trimmed != canonical
}
