package lexicon

import (
	"fmt"
	"os"
	"strings"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
	"gopkg.in/yaml.v3"
)

// TermSet describes how one allergen category is recognized in
// ingredient text. Terms match whole tokens (multi-word terms match
// consecutive token runs); Stems match token prefixes for known
// compounds, e.g. "soy" catching "soybean".
type TermSet struct {
	Terms []string `yaml:"terms"`
	Stems []string `yaml:"stems"`
}

// Lexicon maps allergen categories to their term sets. The table is
// policy, not algorithm: callers inject it, and deployments can replace
// categories wholesale from a YAML file.
type Lexicon struct {
	sets map[domain.Allergen]TermSet
}

func (l *Lexicon) TermSet(a domain.Allergen) (TermSet, bool) {
	set, ok := l.sets[a]
	return set, ok
}

// Default returns the built-in term table for the six supported
// allergen categories.
func Default() *Lexicon {
	return &Lexicon{sets: map[domain.Allergen]TermSet{
		domain.AllergenGluten: {
			Terms: []string{
				"bread", "pasta", "noodles", "flour", "wheat", "crackers",
				"cereal", "breadcrumbs", "flour tortilla", "pretzel", "bagel",
				"couscous", "barley", "rye", "pancake", "waffle", "muffin",
				"biscuit", "cookie", "cake", "pizza", "macaroni", "spaghetti",
				"bun", "toast", "graham", "rolls",
			},
			Stems: []string{"bread", "wheat"},
		},
		domain.AllergenDairy: {
			Terms: []string{
				"milk", "cheese", "yogurt", "butter", "cream", "ice cream",
				"custard", "pudding", "mozzarella", "cheddar", "parmesan",
				"queso", "alfredo",
			},
			Stems: []string{"milk", "cheese", "butter", "cream"},
		},
		domain.AllergenNuts: {
			Terms: []string{
				"peanut", "almond", "cashew", "walnut", "pecan", "hazelnut",
				"pistachio", "macadamia", "nutella", "praline",
			},
		},
		domain.AllergenEgg: {
			Terms: []string{
				"egg", "mayonnaise", "mayo", "meringue", "custard", "pancake",
				"waffle", "muffin", "french toast", "quiche", "frittata",
				"omelet", "omelette",
			},
			// no stems: "egg" as a prefix would catch eggplant
		},
		domain.AllergenSoy: {
			Terms: []string{"soy", "tofu", "edamame", "miso", "tempeh"},
			Stems: []string{"soy"},
		},
		domain.AllergenFish: {
			Terms: []string{
				"fish", "tuna", "salmon", "cod", "tilapia", "anchovy",
				"sardine", "seafood", "shrimp", "crab", "swordfish", "catfish",
			},
		},
	}}
}

// Load reads a YAML policy file and overlays it on the defaults.
// Categories present in the file replace the built-in set for that
// allergen; absent categories keep their defaults.
func Load(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Lexicon, error) {
	var file map[string]TermSet
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon yaml: %w", err)
	}

	lex := Default()
	for name, set := range file {
		allergen, err := domain.ParseAllergen(strings.ToLower(strings.TrimSpace(name)))
		if err != nil {
			return nil, fmt.Errorf("lexicon: %w", err)
		}
		lex.sets[allergen] = normalizeSet(set)
	}
	return lex, nil
}

func normalizeSet(set TermSet) TermSet {
	out := TermSet{
		Terms: make([]string, 0, len(set.Terms)),
		Stems: make([]string, 0, len(set.Stems)),
	}
	for _, t := range set.Terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out.Terms = append(out.Terms, t)
		}
	}
	for _, s := range set.Stems {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out.Stems = append(out.Stems, s)
		}
	}
	return out
}
