package matcher

import (
	"strings"
	"unicode"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/lexicon"
)

// Matcher tests ingredient strings against the allergen lexicon. All
// matching is case-insensitive and token-bounded: a term hits whole
// tokens (or consecutive token runs for phrases), never arbitrary
// substrings, so "almond" cannot hit "salmon". Stems extend a term to
// known compounds by token prefix ("soy" -> "soybean").
type Matcher struct {
	lex *lexicon.Lexicon
}

func New(lex *lexicon.Lexicon) *Matcher {
	return &Matcher{lex: lex}
}

// Match returns the requested allergens the ingredient carries, in the
// request's order. Unmatched input is a normal empty result, not an
// error.
func (m *Matcher) Match(ingredient string, set domain.AllergenSet) []domain.Allergen {
	tokens := Tokenize(ingredient)
	if len(tokens) == 0 {
		return nil
	}

	var hits []domain.Allergen
	for _, allergen := range set.Items() {
		terms, ok := m.lex.TermSet(allergen)
		if !ok {
			continue
		}
		if matchesTermSet(tokens, terms) {
			hits = append(hits, allergen)
		}
	}
	return hits
}

// Tokenize lowercases the input and splits it on every rune that is
// neither a letter nor a digit.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func matchesTermSet(tokens []string, set lexicon.TermSet) bool {
	for _, term := range set.Terms {
		if phrase := strings.Fields(term); len(phrase) > 1 {
			if containsPhrase(tokens, phrase) {
				return true
			}
			continue
		}
		for _, tok := range tokens {
			if tokenEquals(tok, term) {
				return true
			}
		}
	}
	for _, stem := range set.Stems {
		for _, tok := range tokens {
			if len(tok) > len(stem) && strings.HasPrefix(tok, stem) {
				return true
			}
		}
	}
	return false
}

// tokenEquals tolerates trivial plurals in either direction.
func tokenEquals(tok, term string) bool {
	return tok == term || tok == term+"s" || tok+"s" == term
}

func containsPhrase(tokens, phrase []string) bool {
	if len(phrase) > len(tokens) {
		return false
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		matched := true
		for j, word := range phrase {
			if !tokenEquals(tokens[i+j], word) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}
