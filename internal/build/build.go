package build

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"time"

	"github.com/google/uuid"

	"icsbuild/internal/changes"
	"icsbuild/internal/ics"
	appLog "icsbuild/internal/log"
	"icsbuild/internal/model"
	"icsbuild/internal/storage"
	"icsbuild/internal/userconfig"
)

// EventSource supplies the events of one event group.
type EventSource interface {
	Load(group string) ([]model.Event, error)
}

// Builder turns recipient configurations into published artifacts.
//
// It is not safe for concurrent use; builds are meant to run one at a time
// against the output directory.
type Builder struct {
	store    storage.Store
	source   EventSource
	renderer ics.Renderer
	loc      *time.Location
}

// New returns a Builder. loc is the zone change dates are interpreted in.
func New(store storage.Store, source EventSource, renderer ics.Renderer, loc *time.Location) *Builder {
	if loc == nil {
		loc = ics.Location
	}
	return &Builder{store: store, source: source, renderer: renderer, loc: loc}
}

type result struct {
	status   Status
	filename string
}

// One builds a single recipient.
func (b *Builder) One(f userconfig.File) (Status, error) {
	r, err := b.one(f)
	if err != nil {
		return Status{}, fmt.Errorf("failed to build calendar for %d: %w", f.Chat.ID, err)
	}
	return r.status, nil
}

// All builds every recipient and then removes every artifact that no
// recipient produced in this pass. A failing recipient is logged and
// skipped, which also makes its artifact an orphan. Only a failure to list
// the output directory fails the pass.
func (b *Builder) All(files []userconfig.File) ([]Status, error) {
	pass := uuid.NewString()
	appLog.Debug("build pass started", "pass", pass, "recipients", len(files))

	statuses := make([]Status, 0, len(files))
	produced := make(map[string]bool, len(files))

	for _, f := range files {
		r, err := b.one(f)
		if err != nil {
			appLog.Error("failed to build calendar", err, "pass", pass, "recipient", f.Chat.ID, "name", f.Chat.FirstName)
			continue
		}
		statuses = append(statuses, r.status)
		produced[r.filename] = true
	}

	existing, err := b.store.List("")
	if err != nil {
		return statuses, fmt.Errorf("failed to read calendars dir for cleanup: %w", err)
	}

	for _, filename := range existing {
		if produced[filename] {
			continue
		}
		if err := b.store.Delete(filename); err != nil {
			appLog.Error("failed to remove superfluous calendar file", err, "pass", pass, "file", filename)
			continue
		}
		statuses = append(statuses, Status{Name: filename, Type: Removed})
	}

	appLog.Debug("build pass finished", "pass", pass, "statuses", len(statuses))
	return statuses, nil
}

func (b *Builder) one(f userconfig.File) (result, error) {
	name := f.Chat.FirstName
	filename := f.ArtifactName()
	changeType := Same

	existing, err := b.store.List(f.ArtifactPrefix())
	if err != nil {
		return result{}, fmt.Errorf("failed to read existing calendars of user: %w", err)
	}

	switch len(existing) {
	case 0:
	case 1:
		if existing[0] != filename {
			if err := b.store.Rename(existing[0], filename); err != nil {
				return result{}, fmt.Errorf("failed to rename old calendar: %w", err)
			}
			changeType = Moved
		}
	default:
		// More than one artifact for one recipient is never produced by a build; start over.
		for _, old := range existing {
			if err := b.store.Delete(old); err != nil {
				return result{}, fmt.Errorf("failed to remove superfluous calendars of user: %w", err)
			}
		}
		changeType = Removed
	}

	var events []model.Event
	for _, group := range f.Groups() {
		loaded, err := b.source.Load(group)
		if err != nil {
			appLog.Error("skip event group", err, "recipient", f.Chat.ID, "group", group)
			continue
		}
		events = append(events, loaded...)
	}

	if len(events) == 0 {
		exists, err := b.exists(filename)
		if err != nil {
			return result{}, err
		}
		if exists {
			if err := b.store.Delete(filename); err != nil {
				return result{}, fmt.Errorf("failed to remove calendar with now 0 events: %w", err)
			}
			changeType = Removed
		} else {
			changeType = Skipped
		}
		return result{status: Status{Name: name, Type: changeType}, filename: filename}, nil
	}

	events, report, err := changes.Apply(events, f.Config.Changes, f.Config.RemovedEvents, b.loc)
	if err != nil {
		return result{}, fmt.Errorf("failed to apply changes: %w", err)
	}
	for _, change := range report.Unmatched {
		appLog.Info("change matches no event", "recipient", f.Chat.ID, "name", change.Name, "date", change.Date)
	}

	for i := range events {
		// Missing details are fine, e.g. after an event was renamed in its group.
		if details, ok := f.Config.Events[events[i].Name]; ok {
			changes.Enrich(&events[i], details)
		}
	}

	slices.SortStableFunc(events, func(x, y model.Event) int {
		return x.Start.Compare(y.Start)
	})
	content := []byte(b.renderer.Render(name, events))

	current, err := b.store.Read(filename)
	switch {
	case err == nil:
		if !bytes.Equal(current, content) {
			changeType = Changed
		}
	case errors.Is(err, fs.ErrNotExist):
		changeType = Added
	default:
		return result{}, fmt.Errorf("failed to read current calendar: %w", err)
	}

	if changeType == Added || changeType == Changed {
		if err := b.store.Write(filename, content); err != nil {
			return result{}, fmt.Errorf("failed to write ics file content: %w", err)
		}
	}

	appLog.Debug("calendar built", "recipient", f.Chat.ID, "file", filename, "events", len(events), "change", changeType.String())
	return result{status: Status{Name: name, Type: changeType}, filename: filename}, nil
}

func (b *Builder) exists(filename string) (bool, error) {
	_, err := b.store.Read(filename)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to check current calendar: %w", err)
	}
}
