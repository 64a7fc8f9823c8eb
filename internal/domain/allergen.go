package domain

import "fmt"

type Allergen string

const (
	AllergenGluten Allergen = "gluten"
	AllergenDairy  Allergen = "dairy"
	AllergenNuts   Allergen = "nuts"
	AllergenEgg    Allergen = "egg"
	AllergenSoy    Allergen = "soy"
	AllergenFish   Allergen = "fish"
)

// Allergens is the fixed domain of categories the converter understands.
var Allergens = []Allergen{
	AllergenGluten,
	AllergenDairy,
	AllergenNuts,
	AllergenEgg,
	AllergenSoy,
	AllergenFish,
}

func ParseAllergen(s string) (Allergen, error) {
	for _, a := range Allergens {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown allergen: %q", s)
}

// AllergenSet keeps the caller's order and drops duplicates. An empty
// set means conversion is a no-op.
type AllergenSet struct {
	items []Allergen
}

func NewAllergenSet(names ...string) (AllergenSet, error) {
	var set AllergenSet
	for _, name := range names {
		a, err := ParseAllergen(name)
		if err != nil {
			return AllergenSet{}, err
		}
		set.Add(a)
	}
	return set, nil
}

// MustAllergenSet is NewAllergenSet for known-good literals; it panics
// on an unknown name.
func MustAllergenSet(names ...string) AllergenSet {
	set, err := NewAllergenSet(names...)
	if err != nil {
		panic(err)
	}
	return set
}

func (s *AllergenSet) Add(a Allergen) {
	if s.Contains(a) {
		return
	}
	s.items = append(s.items, a)
}

func (s AllergenSet) Contains(a Allergen) bool {
	for _, item := range s.items {
		if item == a {
			return true
		}
	}
	return false
}

func (s AllergenSet) Items() []Allergen {
	out := make([]Allergen, len(s.items))
	copy(out, s.items)
	return out
}

func (s AllergenSet) Len() int { return len(s.items) }

func (s AllergenSet) IsEmpty() bool { return len(s.items) == 0 }

func (s AllergenSet) Strings() []string {
	out := make([]string, 0, len(s.items))
	for _, a := range s.items {
		out = append(out, string(a))
	}
	return out
}
