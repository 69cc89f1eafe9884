package build

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icsbuild/internal/ics"
	"icsbuild/internal/model"
	"icsbuild/internal/storage"
	"icsbuild/internal/userconfig"
)

func ptr[T any](v T) *T {
	return &v
}

func lecture(day int) model.Event {
	return model.Event{
		Name:        "BTI5-VS",
		DisplayName: "BTI5-VS",
		Status:      model.StatusConfirmed,
		Start:       time.Date(2020, 5, day, 8, 15, 0, 0, ics.Location),
		End:         time.Date(2020, 5, day, 11, 15, 0, 0, ics.Location),
	}
}

func recipient(id int64, name, suffix string, groups ...string) userconfig.File {
	events := make(map[string]model.EventDetails, len(groups))
	for _, g := range groups {
		events[g] = model.EventDetails{}
	}
	return userconfig.File{
		Chat:   userconfig.Chat{ID: id, FirstName: name},
		Config: userconfig.Config{CalendarfileSuffix: suffix, Events: events},
	}
}

type fixture struct {
	store   *storage.Memory
	source  *StubSource
	builder *Builder
}

func newFixture() fixture {
	store := storage.NewMemory()
	source := NewStubSource()
	source.Groups["BTI5-VS"] = []model.Event{lecture(14), lecture(7)}
	return fixture{
		store:   store,
		source:  source,
		builder: New(store, source, ics.DefaultRenderer(), ics.Location),
	}
}

func TestOne(t *testing.T) {
	t.Run("New recipient is added", func(t *testing.T) {
		fx := newFixture()

		status, err := fx.builder.One(recipient(1, "Peter", "abc", "BTI5-VS"))

		require.NoError(t, err)
		assert.Equal(t, Status{Name: "Peter", Type: Added}, status)
		assert.Equal(t, []string{"write 1-abc.ics"}, fx.store.Ops)

		data, ok := fx.store.Get("1-abc.ics")
		require.True(t, ok)
		events, err := ics.ParseArtifact(data)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.True(t, events[0].Start.Before(events[1].Start), "events are sorted by start")
	})

	t.Run("Identical content is same and not written", func(t *testing.T) {
		fx := newFixture()
		f := recipient(1, "Peter", "abc", "BTI5-VS")
		_, err := fx.builder.One(f)
		require.NoError(t, err)
		fx.store.Ops = nil

		status, err := fx.builder.One(f)

		require.NoError(t, err)
		assert.Equal(t, Same, status.Type)
		assert.Empty(t, fx.store.Ops)
	})

	t.Run("Different content is changed and overwritten", func(t *testing.T) {
		fx := newFixture()
		fx.store.Put("1-abc.ics", []byte("stale"))

		status, err := fx.builder.One(recipient(1, "Peter", "abc", "BTI5-VS"))

		require.NoError(t, err)
		assert.Equal(t, Changed, status.Type)
		assert.Equal(t, []string{"write 1-abc.ics"}, fx.store.Ops)
		data, _ := fx.store.Get("1-abc.ics")
		assert.NotEqual(t, "stale", string(data))
	})

	t.Run("Suffix change renames the artifact", func(t *testing.T) {
		fx := newFixture()
		f := recipient(1, "Peter", "old", "BTI5-VS")
		_, err := fx.builder.One(f)
		require.NoError(t, err)
		fx.store.Ops = nil

		f.Config.CalendarfileSuffix = "new"
		status, err := fx.builder.One(f)

		require.NoError(t, err)
		assert.Equal(t, Moved, status.Type)
		assert.Equal(t, []string{"rename 1-old.ics 1-new.ics"}, fx.store.Ops)
	})

	t.Run("Renamed artifact with stale content is changed", func(t *testing.T) {
		fx := newFixture()
		fx.store.Put("1-old.ics", []byte("stale"))

		status, err := fx.builder.One(recipient(1, "Peter", "new", "BTI5-VS"))

		require.NoError(t, err)
		assert.Equal(t, Changed, status.Type)
		assert.Equal(t, []string{"rename 1-old.ics 1-new.ics", "write 1-new.ics"}, fx.store.Ops)
	})

	t.Run("Several artifacts of one recipient are all replaced", func(t *testing.T) {
		fx := newFixture()
		fx.store.Put("1-a.ics", []byte("a"))
		fx.store.Put("1-b.ics", []byte("b"))
		fx.store.Put("12-x.ics", []byte("other recipient"))

		status, err := fx.builder.One(recipient(1, "Peter", "a", "BTI5-VS"))

		require.NoError(t, err)
		assert.Equal(t, Added, status.Type)
		assert.Equal(t, []string{"delete 1-a.ics", "delete 1-b.ics", "write 1-a.ics"}, fx.store.Ops)
		_, ok := fx.store.Get("12-x.ics")
		assert.True(t, ok)
	})

	t.Run("No events and an existing artifact is removed", func(t *testing.T) {
		fx := newFixture()
		fx.store.Put("1-abc.ics", []byte("old"))

		status, err := fx.builder.One(recipient(1, "Peter", "abc"))

		require.NoError(t, err)
		assert.Equal(t, Removed, status.Type)
		assert.Equal(t, []string{"delete 1-abc.ics"}, fx.store.Ops)
	})

	t.Run("Renamed artifact without events is removed", func(t *testing.T) {
		fx := newFixture()
		fx.store.Put("1-old.ics", []byte("old"))

		status, err := fx.builder.One(recipient(1, "Peter", "new"))

		require.NoError(t, err)
		assert.Equal(t, Removed, status.Type)
		assert.Equal(t, []string{"rename 1-old.ics 1-new.ics", "delete 1-new.ics"}, fx.store.Ops)
		names, err := fx.store.List("")
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("No events and no artifact is skipped", func(t *testing.T) {
		fx := newFixture()

		status, err := fx.builder.One(recipient(1, "Peter", "abc", "missing-group"))

		require.NoError(t, err)
		assert.Equal(t, Skipped, status.Type)
		assert.Empty(t, fx.store.Ops)
	})

	t.Run("Failing groups are skipped", func(t *testing.T) {
		fx := newFixture()

		status, err := fx.builder.One(recipient(1, "Peter", "abc", "BTI5-VS", "missing-group"))

		require.NoError(t, err)
		assert.Equal(t, Added, status.Type)
		assert.Equal(t, []string{"BTI5-VS", "missing-group"}, fx.source.Loads)
	})

	t.Run("Changes and details are applied", func(t *testing.T) {
		fx := newFixture()
		f := recipient(1, "Peter", "abc", "BTI5-VS")
		f.Config.RemovedEvents = model.RemovalRemoved
		f.Config.Events["BTI5-VS"] = model.EventDetails{AlertMinutesBefore: ptr(10), Notes: ptr("bring laptop")}
		f.Config.Changes = []model.Change{
			// 2020-05-14 08:15 CEST
			{Name: "BTI5-VS", Date: "2020-05-14T06:15", Remove: true},
			{Add: true, Name: "Extra", Date: "2020-05-01T08:00", EndTime: ptr("11:00")},
		}

		_, err := fx.builder.One(f)
		require.NoError(t, err)

		data, _ := fx.store.Get("1-abc.ics")
		events, err := ics.ParseArtifact(data)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "Extra", events[0].Summary)
		assert.Empty(t, events[0].Alarm)
		assert.Equal(t, "BTI5-VS", events[1].Summary)
		assert.Equal(t, 7, events[1].Start.Day())
		assert.Equal(t, "-PT10M", events[1].Alarm)
	})

	t.Run("Invalid change fails the recipient without writing", func(t *testing.T) {
		fx := newFixture()
		f := recipient(1, "Peter", "abc", "BTI5-VS")
		f.Config.Changes = []model.Change{{Add: true, Name: "Extra", Date: "2020-05-01T08:00"}}

		_, err := fx.builder.One(f)

		assert.ErrorContains(t, err, "failed to apply changes")
		assert.Empty(t, fx.store.Ops)
	})

	t.Run("Write failures are returned", func(t *testing.T) {
		fx := newFixture()
		fx.store.Fail["write"] = errors.New("disk full")

		_, err := fx.builder.One(recipient(1, "Peter", "abc", "BTI5-VS"))

		assert.ErrorContains(t, err, "disk full")
	})
}

func TestAll(t *testing.T) {
	t.Run("Orphans are removed and failures isolated", func(t *testing.T) {
		fx := newFixture()
		fx.store.Put("9-gone.ics", []byte("deleted recipient"))
		fx.store.Put("2-bad.ics", []byte("failing recipient"))

		broken := recipient(2, "Broken", "bad", "BTI5-VS")
		broken.Config.Changes = []model.Change{{Name: "BTI5-VS", Date: "not a date"}}
		files := []userconfig.File{
			recipient(1, "Peter", "abc", "BTI5-VS"),
			broken,
			recipient(3, "Empty", "e"),
		}

		statuses, err := fx.builder.All(files)

		require.NoError(t, err)
		assert.ElementsMatch(t, []Status{
			{Name: "Peter", Type: Added},
			{Name: "Empty", Type: Skipped},
			{Name: "2-bad.ics", Type: Removed},
			{Name: "9-gone.ics", Type: Removed},
		}, statuses)

		names, err := fx.store.List("")
		require.NoError(t, err)
		assert.Equal(t, []string{"1-abc.ics"}, names)
	})

	t.Run("Second pass reports same", func(t *testing.T) {
		fx := newFixture()
		files := []userconfig.File{recipient(1, "Peter", "abc", "BTI5-VS")}
		_, err := fx.builder.All(files)
		require.NoError(t, err)

		statuses, err := fx.builder.All(files)

		require.NoError(t, err)
		assert.Equal(t, []Status{{Name: "Peter", Type: Same}}, statuses)
	})

	t.Run("Listing failure aborts the pass", func(t *testing.T) {
		fx := newFixture()
		fx.store.Fail["list"] = errors.New("gone")

		_, err := fx.builder.All([]userconfig.File{recipient(1, "Peter", "abc", "BTI5-VS")})

		assert.ErrorContains(t, err, "failed to read calendars dir for cleanup")
	})

	t.Run("Orphan delete failures are logged and skipped", func(t *testing.T) {
		fx := newFixture()
		fx.store.Put("9-gone.ics", []byte("x"))
		fx.store.Fail["delete"] = errors.New("read only")

		statuses, err := fx.builder.All(nil)

		require.NoError(t, err)
		assert.Empty(t, statuses)
	})
}
