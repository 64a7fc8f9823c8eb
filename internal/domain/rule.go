package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubstitutionRule is an organization-authored replacement mapping. It
// always takes precedence over AI suggestions. Lookup key is
// (Allergen, NormalizeIngredient(Original)); duplicate keys resolve
// most-recent-CreatedAt wins.
type SubstitutionRule struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Allergen    Allergen           `bson:"allergen" json:"allergen"`
	Original    string             `bson:"original" json:"original"`
	Replacement string             `bson:"replacement" json:"replacement"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// NormalizeIngredient folds an ingredient string into its rule-lookup
// form: lowercase, trimmed, inner whitespace collapsed.
func NormalizeIngredient(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// DefaultRules is the built-in substitution table shipped with the
// converter. Zero CreatedAt keeps every stored rule newer, so custom
// rules silently override these on key conflict.
func DefaultRules() []SubstitutionRule {
	table := map[Allergen][][2]string{
		AllergenGluten: {
			{"bread", "gluten-free bread"},
			{"pasta", "gluten-free pasta"},
			{"flour tortilla", "corn tortilla"},
			{"breadcrumbs", "gluten-free breadcrumbs"},
			{"wheat flour", "almond flour"},
			{"pizza crust", "gluten-free pizza crust"},
			{"rolls", "gluten-free rolls"},
			{"crackers", "gluten-free crackers"},
		},
		AllergenDairy: {
			{"milk", "almond milk"},
			{"cheese", "dairy-free cheese"},
			{"yogurt", "coconut yogurt"},
			{"butter", "plant-based butter"},
			{"cream", "coconut cream"},
			{"sour cream", "dairy-free sour cream"},
		},
		AllergenNuts: {
			{"peanut butter", "sunflower seed butter"},
			{"almond", "seeds"},
			{"cashew", "seeds"},
			{"walnut", "seeds"},
			{"pecan", "seeds"},
		},
		AllergenEgg: {
			{"egg", "egg substitute"},
			{"mayonnaise", "vegan mayonnaise"},
			{"egg noodles", "rice noodles"},
		},
		AllergenSoy: {
			{"soy sauce", "coconut aminos"},
			{"tofu", "chickpeas"},
			{"edamame", "green peas"},
			{"soy milk", "oat milk"},
		},
		AllergenFish: {
			{"fish sticks", "veggie nuggets"},
			{"tuna", "chickpea salad"},
			{"salmon", "grilled chicken"},
		},
	}

	var rules []SubstitutionRule
	for _, allergen := range Allergens {
		for _, pair := range table[allergen] {
			rules = append(rules, SubstitutionRule{
				Allergen:    allergen,
				Original:    pair[0],
				Replacement: pair[1],
			})
		}
	}
	return rules
}
