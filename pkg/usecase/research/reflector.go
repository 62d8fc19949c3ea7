package research

import (
	"github.com/probeworks/scout/pkg/model"
)

// reflector scores profile completeness and is the sole termination
// authority: the orchestrator embeds no stopping logic of its own.
type reflector struct {
	cfg Config
}

func newReflector(cfg Config) *reflector {
	return &reflector{cfg: cfg}
}

type reflectInput struct {
	Profile         *model.CompanyProfile
	ReflectionsDone int
	LastGenerated   int
}

type reflection struct {
	Score  float64
	Stop   bool
	Reason model.TerminalReason
	// Focus lists the fields still missing or thin, ordered as in
	// model.OptionalFields, for the next generation round.
	Focus []string
}

// Reflect computes the completeness score and decides continue/stop. The
// score is the fraction of the six optional fields that are adequately
// filled; name is always present and excluded from the denominator.
func (r *reflector) Reflect(input reflectInput) reflection {
	var filled int
	var focus []string
	for _, field := range model.OptionalFields {
		if r.filled(input.Profile, field) {
			filled++
		} else {
			focus = append(focus, field)
		}
	}
	score := float64(filled) / float64(len(model.OptionalFields))

	switch {
	case score >= r.cfg.CompletenessThreshold:
		return reflection{Score: score, Stop: true, Reason: model.TerminalReasonThresholdMet}
	case input.ReflectionsDone >= r.cfg.Budgets.MaxReflections:
		return reflection{Score: score, Stop: true, Reason: model.TerminalReasonBudgetExhausted}
	case input.LastGenerated == 0:
		return reflection{Score: score, Stop: true, Reason: model.TerminalReasonNoNovelQueries}
	default:
		// A spent query budget is not checked here: the generator's quota
		// clamp makes the next round come back empty, which ends the session
		// as natural completion without any further external calls.
		return reflection{Score: score, Focus: focus}
	}
}

// filled reports whether a field holds adequate content. Text fields must
// reach MinFieldChars to guard against degenerate one-word answers; a set
// founding year always counts.
func (r *reflector) filled(p *model.CompanyProfile, field string) bool {
	n := p.FieldLen(field)
	if n == 0 {
		return false
	}
	if field == model.FieldFoundingYear {
		return true
	}
	return n >= r.cfg.MinFieldChars
}
