package userconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"icsbuild/internal/model"
)

// File is one recipient configuration file.
type File struct {
	Chat   Chat   `json:"chat"`
	Config Config `json:"config"`
}

// Chat identifies the recipient. Other fields of the chat object are ignored.
type Chat struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
}

type Config struct {
	CalendarfileSuffix string `json:"calendarfileSuffix"`
	// Changes are applied in order.
	Changes []model.Change `json:"changes"`
	// Events maps names to details. The keys are also the subscribed event groups.
	Events map[string]model.EventDetails `json:"events"`
	// RemovedEvents is "cancelled" when absent.
	RemovedEvents model.RemovalPolicy `json:"removedEvents"`
}

var ErrMissingSuffix = errors.New("calendarfileSuffix is missing")

// Parse decodes and validates a recipient configuration.
func Parse(data []byte) (File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, err
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

func (f File) Validate() error {
	if f.Config.CalendarfileSuffix == "" {
		return ErrMissingSuffix
	}
	for _, name := range f.Groups() {
		if alert := f.Config.Events[name].AlertMinutesBefore; alert != nil && *alert < 0 {
			return fmt.Errorf("event %s: alertMinutesBefore must not be negative, got %d", name, *alert)
		}
	}
	return nil
}

// ArtifactPrefix is shared by every artifact this recipient ever had.
func (f File) ArtifactPrefix() string {
	return strconv.FormatInt(f.Chat.ID, 10) + "-"
}

// ArtifactName is the file name of the recipient's current artifact.
func (f File) ArtifactName() string {
	return fmt.Sprintf("%s%s.ics", f.ArtifactPrefix(), f.Config.CalendarfileSuffix)
}

// Groups returns the subscribed event groups in sorted order.
func (f File) Groups() []string {
	groups := make([]string, 0, len(f.Config.Events))
	for name := range f.Config.Events {
		groups = append(groups, name)
	}
	sort.Strings(groups)
	return groups
}
