package log

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValuePairs(t *testing.T) {
	hook := test.NewLocal(Logger())
	defer hook.Reset()

	t.Run("pairs become fields", func(t *testing.T) {
		hook.Reset()
		Info("calendar written", "recipient", int64(42), "file", "42-abc.ics")

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.InfoLevel, entry.Level)
		assert.Equal(t, "calendar written", entry.Message)
		assert.Equal(t, int64(42), entry.Data["recipient"])
		assert.Equal(t, "42-abc.ics", entry.Data["file"])
	})

	t.Run("odd trailing value and non-string keys are ignored", func(t *testing.T) {
		hook.Reset()
		Info("odd", 12, "skipped", "key", "value", "dangling")

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Len(t, entry.Data, 1)
		assert.Equal(t, "value", entry.Data["key"])
	})

	t.Run("error is attached", func(t *testing.T) {
		hook.Reset()
		Error("build failed", errors.New("boom"), "recipient", 1)

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.ErrorLevel, entry.Level)
		assert.EqualError(t, entry.Data[logrus.ErrorKey].(error), "boom")
	})
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	assert.NoError(t, err)
	assert.Equal(t, LevelDebug, level)

	level, err = ParseLevel("")
	assert.NoError(t, err)
	assert.Equal(t, LevelInfo, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestSetLevelFiltersDebug(t *testing.T) {
	hook := test.NewLocal(Logger())
	defer hook.Reset()
	defer SetLevel(LevelInfo)

	SetLevel(LevelInfo)
	Debug("hidden")
	assert.Empty(t, hook.AllEntries())

	SetLevel(LevelDebug)
	Debug("shown")
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "shown", hook.LastEntry().Message)
}
