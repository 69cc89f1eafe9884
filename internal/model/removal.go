package model

import "fmt"

// RemovalPolicy selects how a "remove" change manifests in the output.
type RemovalPolicy int

const (
	// RemovalCancelled keeps the event but marks it CANCELLED.
	RemovalCancelled RemovalPolicy = iota
	// RemovalRemoved drops the event from the calendar.
	RemovalRemoved
	// RemovalEmoji keeps the event and prefixes its display name with a warning glyph.
	RemovalEmoji
)

func ParseRemovalPolicy(s string) (RemovalPolicy, error) {
	switch s {
	case "", "cancelled":
		return RemovalCancelled, nil
	case "removed":
		return RemovalRemoved, nil
	case "emoji":
		return RemovalEmoji, nil
	default:
		return RemovalCancelled, fmt.Errorf("could not parse removed events %s", s)
	}
}

func (p RemovalPolicy) String() string {
	switch p {
	case RemovalCancelled:
		return "cancelled"
	case RemovalRemoved:
		return "removed"
	case RemovalEmoji:
		return "emoji"
	}
	return fmt.Sprintf("RemovalPolicy(%d)", int(p))
}

func (p RemovalPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *RemovalPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseRemovalPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
