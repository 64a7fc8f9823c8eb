package domain

import "fmt"

// Flag marks one ingredient occurrence that needs a resolution.
// Allergens lists every requested allergen the text matched, in
// request order; an ingredient is flagged at most once no matter how
// many allergens it trips.
type Flag struct {
	Period          string     `bson:"period" json:"period"`
	DishIndex       int        `bson:"dish_index" json:"dish_index"`
	IngredientIndex int        `bson:"ingredient_index" json:"ingredient_index"`
	Allergens       []Allergen `bson:"allergens" json:"allergens"`
	Text            string     `bson:"text" json:"text"`
}

type OutcomeStatus string

const (
	OutcomeCustomRule   OutcomeStatus = "custom_rule"
	OutcomeAISuggestion OutcomeStatus = "ai_suggestion"
	OutcomeUnresolved   OutcomeStatus = "unresolved"
)

// ResolutionOutcome records how one flag was settled, with provenance
// for downstream review.
type ResolutionOutcome struct {
	Flag        Flag              `bson:"flag" json:"flag"`
	Status      OutcomeStatus     `bson:"status" json:"status"`
	Replacement string            `bson:"replacement,omitempty" json:"replacement,omitempty"`
	Rationale   string            `bson:"rationale,omitempty" json:"rationale,omitempty"`
	Rule        *SubstitutionRule `bson:"rule,omitempty" json:"rule,omitempty"`
	NeedsReview bool              `bson:"needs_review" json:"needs_review"`
}

// ResolvedMenu is a rewritten copy of the parsed document plus the
// per-flag outcomes in document order. The original document is never
// mutated.
type ResolvedMenu struct {
	Document *MenuDocument       `bson:"document" json:"document"`
	Outcomes []ResolutionOutcome `bson:"outcomes" json:"outcomes"`
	Changes  []string            `bson:"changes" json:"changes"`
}

func (r *ResolvedMenu) Unresolved() []ResolutionOutcome {
	var out []ResolutionOutcome
	for _, o := range r.Outcomes {
		if o.Status == OutcomeUnresolved {
			out = append(out, o)
		}
	}
	return out
}

// ChangeNote formats the human-readable change-log entry for an applied
// substitution, matching the wording users see in review.
func ChangeNote(original, replacement, period string) string {
	return fmt.Sprintf("Changed '%s' to '%s' in %s", original, replacement, period)
}
