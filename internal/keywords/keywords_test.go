package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"echotarot/internal/domain"
)

var strength = domain.Card{
	ID:              "major_arcana.08",
	Name:            "Strength",
	UprightMeaning:  "Strength, Courage, Growth",
	ReversedMeaning: "Self-doubt, Weakness , , Insecurity",
}

func TestParseTrimsAndDropsBlanks(t *testing.T) {
	assert.Equal(t, []string{"Self-doubt", "Weakness", "Insecurity"}, Parse(strength.ReversedMeaning))
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse(" , ,"))
}

func TestEffectiveAppliesRemovalsThenAdditions(t *testing.T) {
	c := domain.CardKeywordCustomization{
		RemovedUpright: []string{"Courage"},
		AddedUpright:   []string{"Confidence"},
	}
	assert.Equal(t, "Strength, Growth, Confidence", Effective(strength, false, c))
	assert.Equal(t, "Self-doubt, Weakness, Insecurity", Effective(strength, true, c))
}

func TestEffectiveSkipsBlankAdditions(t *testing.T) {
	c := domain.CardKeywordCustomization{AddedReversed: []string{"  ", "Fear", ""}}
	assert.Equal(t, "Self-doubt, Weakness, Insecurity, Fear", Effective(strength, true, c))
}

func TestAddPolicy(t *testing.T) {
	c, changed := Add(strength, false, domain.CardKeywordCustomization{}, "  Patience ")
	assert.True(t, changed)
	assert.Equal(t, []string{"Patience"}, c.AddedUpright)

	_, changed = Add(strength, false, c, "Patience")
	assert.False(t, changed, "duplicate of an added keyword")

	_, changed = Add(strength, false, c, "Courage")
	assert.False(t, changed, "duplicate of a base keyword")

	_, changed = Add(strength, false, c, "   ")
	assert.False(t, changed, "blank keyword")
}

func TestAddRestoresRemovedBaseKeyword(t *testing.T) {
	c, changed := Remove(strength, false, domain.CardKeywordCustomization{}, "Courage")
	assert.True(t, changed)
	assert.Equal(t, []string{"Courage"}, c.RemovedUpright)

	c, changed = Add(strength, false, c, "Courage")
	assert.True(t, changed)
	assert.Empty(t, c.RemovedUpright)
	assert.Empty(t, c.AddedUpright)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, "Strength, Courage, Growth", Effective(strength, false, c))
}

func TestRemovePolicy(t *testing.T) {
	c, _ := Add(strength, true, domain.CardKeywordCustomization{}, "Fear")

	c, changed := Remove(strength, true, c, "Fear")
	assert.True(t, changed)
	assert.Empty(t, c.AddedReversed)
	assert.Empty(t, c.RemovedReversed, "user-added keywords are deleted, not recorded as removed")

	c, changed = Remove(strength, true, c, "Weakness")
	assert.True(t, changed)
	assert.Equal(t, []string{"Weakness"}, c.RemovedReversed)

	_, changed = Remove(strength, true, c, "Weakness")
	assert.False(t, changed, "already removed")

	_, changed = Remove(strength, true, c, "Unknown")
	assert.False(t, changed, "neither base nor added")
}

func TestNeverAddedAndRemovedAtOnce(t *testing.T) {
	c := domain.CardKeywordCustomization{}
	ops := []struct {
		add bool
		kw  string
	}{
		{false, "Growth"}, {true, "Growth"}, {true, "Focus"}, {false, "Focus"},
		{false, "Strength"}, {true, "Bravery"}, {true, "Strength"}, {false, "Courage"},
	}
	for _, op := range ops {
		if op.add {
			c, _ = Add(strength, false, c, op.kw)
		} else {
			c, _ = Remove(strength, false, c, op.kw)
		}
		for _, k := range c.AddedUpright {
			assert.NotContains(t, c.RemovedUpright, k)
		}
	}
	assert.Equal(t, "Strength, Growth, Bravery", Effective(strength, false, c))
}

func TestResetRestoresPristineMeaning(t *testing.T) {
	c := domain.CardKeywordCustomization{}
	c, _ = Remove(strength, false, c, "Growth")
	c, _ = Add(strength, false, c, "Resolve")
	c, _ = Remove(strength, true, c, "Insecurity")
	assert.NotEqual(t, strength.UprightMeaning, Effective(strength, false, c))

	// Reset drops the whole override.
	c = domain.CardKeywordCustomization{}
	assert.Equal(t, strength.UprightMeaning, Effective(strength, false, c))
	assert.Equal(t, "Self-doubt, Weakness, Insecurity", Effective(strength, true, c))
}
