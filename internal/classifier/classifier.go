// Package classifier decides whether a form control is a payment-card
// field. Classification is a pure function of the element's attributes
// at call time: no I/O, no storage, safe to run synchronously inside a
// focus event handler.
package classifier

import (
	"strings"

	"github.com/spendshield/spendshield/internal/page"
)

// FieldRule is a single detection rule in the classifier.
type FieldRule struct {
	// ID identifies the rule in scan output and tests.
	ID string

	// Authority marks rules whose match is definitive on its own
	// (the autocomplete attribute is spec-mandated metadata, not a
	// heuristic). Kept for rule-table introspection; evaluation order
	// already encodes precedence.
	Authority bool

	// Match reports whether the rule fires for the element.
	Match func(el *page.Element) bool
}

// Classifier evaluates an ordered rule table against form controls.
// Rules are evaluated in order and the first match wins; a table with
// zero matching rules classifies the element as not a card field.
// Each Classifier owns its pattern table, so packs loaded into one
// instance never leak into another.
type Classifier struct {
	rules  []FieldRule
	groups []patternGroup
	tokens []string
}

// New creates a classifier with the built-in rule table.
func New() *Classifier {
	c := &Classifier{
		groups: defaultGroups(),
		tokens: append([]string(nil), cardAutocompleteTokens...),
	}
	c.rules = c.builtinRules()
	return c
}

// Rules returns the rule table (for inspection/testing).
func (c *Classifier) Rules() []FieldRule { return c.rules }

// IsCardField reports whether el looks like a payment-card input.
func (c *Classifier) IsCardField(el *page.Element) bool {
	_, ok := c.MatchRule(el)
	return ok
}

// MatchRule returns the first rule that fires for el.
func (c *Classifier) MatchRule(el *page.Element) (FieldRule, bool) {
	for _, r := range c.rules {
		if r.Match(el) {
			return r, true
		}
	}
	return FieldRule{}, false
}

func (c *Classifier) builtinRules() []FieldRule {
	return []FieldRule{
		{
			ID:        "autocomplete-token",
			Authority: true,
			Match:     c.matchAutocomplete,
		},
		{
			ID:    "text-heuristic",
			Match: c.matchTextHeuristics,
		},
		{
			ID:    "length-type-fallback",
			Match: matchLengthType,
		},
	}
}

// cardAutocompleteTokens are the WHATWG autofill tokens for payment
// cards. Substring membership is deliberate: pages write values like
// "section-blue cc-number" and "cc-exp-month".
var cardAutocompleteTokens = []string{
	"cc-number",
	"cc-exp",
	"cc-exp-month",
	"cc-exp-year",
	"cc-csc",
	"cc-name",
	"cc-type",
}

func (c *Classifier) matchAutocomplete(el *page.Element) bool {
	ac := strings.ToLower(el.Attr("autocomplete"))
	if ac == "" {
		return false
	}
	for _, token := range c.tokens {
		if strings.Contains(ac, token) {
			return true
		}
	}
	return false
}

// haystack joins the attributes a page author is likely to label a card
// field through. Category identity is not retained: a hit in any group
// is enough.
func haystack(el *page.Element) string {
	parts := []string{
		el.Attr("name"),
		el.Attr("id"),
		el.Attr("placeholder"),
		el.Attr("aria-label"),
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func (c *Classifier) matchTextHeuristics(el *page.Element) bool {
	hay := haystack(el)
	if strings.TrimSpace(hay) == "" {
		return false
	}
	for _, group := range c.groups {
		for _, re := range group.patterns {
			if re.MatchString(hay) {
				return true
			}
		}
	}
	return false
}

// cardMaxLengths are common card-number lengths, with and without
// separator characters.
var cardMaxLengths = map[string]bool{"16": true, "19": true}

var cardInputTypes = map[string]bool{"text": true, "tel": true, "number": true}

func matchLengthType(el *page.Element) bool {
	if !cardMaxLengths[el.Attr("maxlength")] {
		return false
	}
	typ := strings.ToLower(el.Attr("type"))
	if typ == "" {
		typ = "text" // browser default for <input>
	}
	return cardInputTypes[typ]
}
