package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func generateEveryTypeOnce() []Status {
	return []Status{
		{Name: "A", Type: Added},
		{Name: "C", Type: Changed},
		{Name: "M", Type: Moved},
		{Name: "R", Type: Removed},
		{Name: "Sa", Type: Same},
		{Name: "Sk", Type: Skipped},
	}
}

func TestSummary(t *testing.T) {
	t.Run("summary without changes is empty", func(t *testing.T) {
		assert.Equal(t, "", Summary(nil, All))
	})

	t.Run("summary shows every type once", func(t *testing.T) {
		assert.Equal(t, `added   (  1): ["A"]
changed (  1): ["C"]
moved   (  1): ["M"]
removed (  1): ["R"]
same    (  1): ["Sa"]
skipped (  1): ["Sk"]`, Summary(generateEveryTypeOnce(), All))
	})

	t.Run("summary shows interesting types once", func(t *testing.T) {
		assert.Equal(t, `added   (  1): ["A"]
changed (  1): ["C"]
moved   (  1): ["M"]
removed (  1): ["R"]`, Summary(generateEveryTypeOnce(), Interesting))
	})

	t.Run("names are sorted case insensitive", func(t *testing.T) {
		statuses := []Status{{Name: "bob", Type: Same}, {Name: "Carl", Type: Same}, {Name: "ann", Type: Same}}
		assert.Equal(t, `same    (  3): ["ann", "bob", "Carl"]`, Summary(statuses, All))
	})
}

func TestChangeTypeString(t *testing.T) {
	assert.Equal(t, "moved", Moved.String())
	assert.Equal(t, "ChangeType(42)", ChangeType(42).String())
}
