package domain

// SuggestionBatch is one request to the external suggestion service:
// the flagged ingredients of a single meal period, each item carrying
// an explicit tag so responses map back regardless of order.
type SuggestionBatch struct {
	Tag    string           `json:"batch_tag"`
	Period string           `json:"period"`
	Items  []SuggestionItem `json:"items"`
}

type SuggestionItem struct {
	Tag        string   `json:"tag"`
	Allergen   Allergen `json:"allergen"`
	Ingredient string   `json:"ingredient"`
}

// SuggestionResult maps item tags to suggested replacements. Items the
// service dropped simply have no entry.
type SuggestionResult struct {
	BatchTag    string                `json:"batch_tag"`
	Suggestions map[string]Suggestion `json:"suggestions"`
}

type Suggestion struct {
	Replacement string `json:"replacement"`
	Rationale   string `json:"rationale,omitempty"`
}
