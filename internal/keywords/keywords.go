// Package keywords resolves a card's effective meaning from its base keywords
// and the user's per-card additions and removals.
package keywords

import (
	"strings"

	"github.com/samber/lo"

	"echotarot/internal/domain"
)

// Separator joins keywords in an effective meaning.
const Separator = ", "

// Parse splits a comma-separated meaning into trimmed, non-empty keywords.
func Parse(meaning string) []string {
	parts := strings.Split(meaning, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Resolve returns the keyword list for one orientation: base keywords minus
// removed ones, followed by non-blank added ones in insertion order.
func Resolve(card domain.Card, reversed bool, c domain.CardKeywordCustomization) []string {
	added, removed := lists(c, reversed)
	base := lo.Reject(Parse(card.Meaning(reversed)), func(k string, _ int) bool {
		return lo.Contains(removed, k)
	})
	for _, k := range added {
		if trimmed := strings.TrimSpace(k); trimmed != "" {
			base = append(base, trimmed)
		}
	}
	return base
}

// Effective is Resolve joined for display and narration.
func Effective(card domain.Card, reversed bool, c domain.CardKeywordCustomization) string {
	return strings.Join(Resolve(card, reversed, c), Separator)
}

// Add returns c with keyword added to the orientation's list. Adding a
// keyword the user had removed restores it instead. Blank keywords and
// keywords already in the effective list are rejected (changed == false).
func Add(card domain.Card, reversed bool, c domain.CardKeywordCustomization, keyword string) (domain.CardKeywordCustomization, bool) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return c, false
	}

	added, removed := lists(c, reversed)
	if lo.Contains(removed, keyword) {
		removed = lo.Without(removed, keyword)
		return with(c, reversed, added, removed), true
	}
	if lo.Contains(Resolve(card, reversed, c), keyword) {
		return c, false
	}

	added = append(append([]string{}, added...), keyword)
	return with(c, reversed, added, removed), true
}

// Remove returns c with keyword taken out of the effective list. A user-added
// keyword is dropped from the added list; a base keyword is recorded as
// removed. Anything else is a no-op (changed == false).
func Remove(card domain.Card, reversed bool, c domain.CardKeywordCustomization, keyword string) (domain.CardKeywordCustomization, bool) {
	keyword = strings.TrimSpace(keyword)
	added, removed := lists(c, reversed)

	if lo.Contains(added, keyword) {
		return with(c, reversed, lo.Without(added, keyword), removed), true
	}
	if lo.Contains(Parse(card.Meaning(reversed)), keyword) && !lo.Contains(removed, keyword) {
		removed = append(append([]string{}, removed...), keyword)
		return with(c, reversed, added, removed), true
	}
	return c, false
}

func lists(c domain.CardKeywordCustomization, reversed bool) (added, removed []string) {
	if reversed {
		return c.AddedReversed, c.RemovedReversed
	}
	return c.AddedUpright, c.RemovedUpright
}

func with(c domain.CardKeywordCustomization, reversed bool, added, removed []string) domain.CardKeywordCustomization {
	if len(added) == 0 {
		added = nil
	}
	if len(removed) == 0 {
		removed = nil
	}
	if reversed {
		c.AddedReversed, c.RemovedReversed = added, removed
	} else {
		c.AddedUpright, c.RemovedUpright = added, removed
	}
	return c
}
