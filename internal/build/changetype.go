package build

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ChangeType classifies what a build pass did to one artifact.
type ChangeType int

const (
	Added ChangeType = iota
	Changed
	Moved
	Removed
	Same
	Skipped
)

var (
	// All lists every ChangeType in summary order.
	All = []ChangeType{Added, Changed, Moved, Removed, Same, Skipped}
	// Interesting lists the types that touched the output directory.
	Interesting = []ChangeType{Added, Changed, Moved, Removed}
)

func (c ChangeType) String() string {
	switch c {
	case Added:
		return "added"
	case Changed:
		return "changed"
	case Moved:
		return "moved"
	case Removed:
		return "removed"
	case Same:
		return "same"
	case Skipped:
		return "skipped"
	}
	return fmt.Sprintf("ChangeType(%d)", int(c))
}

// Status is the outcome for one recipient or one orphaned artifact.
type Status struct {
	// Name is the recipient's display name, or the file name of a removed orphan.
	Name string
	Type ChangeType
}

// Summary renders one line per type in show that occurred, e.g.
//
//	added   (  2): ["Ann", "bob"]
//
// Names are sorted case-insensitively. No statuses yield an empty string.
func Summary(statuses []Status, show []ChangeType) string {
	byType := make(map[ChangeType][]string)
	for _, s := range statuses {
		byType[s.Type] = append(byType[s.Type], s.Name)
	}

	lines := make([]string, 0, len(show))
	for _, ct := range show {
		names, ok := byType[ct]
		if !ok {
			continue
		}
		sort.SliceStable(names, func(i, j int) bool {
			return strings.ToLower(names[i]) < strings.ToLower(names[j])
		})
		quoted := make([]string, len(names))
		for i, name := range names {
			quoted[i] = strconv.Quote(name)
		}
		lines = append(lines, fmt.Sprintf("%-7s (%3d): [%s]", ct, len(names), strings.Join(quoted, ", ")))
	}

	return strings.Join(lines, "\n")
}
