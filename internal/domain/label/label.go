package label

import (
	"fmt"
	"strconv"
	"strings"
)

// Label is the annotation class of an account. Values match the integer
// codes stored by the clustering pipeline.
type Label int

// Label values.
const (
	Unlabeled Label = 0
	Human     Label = 1
	Bot       Label = 2
)

// IsValid checks if the label is one of the supported values.
func (l Label) IsValid() bool {
	return l == Unlabeled || l == Human || l == Bot
}

// String returns the lowercase name.
func (l Label) String() string {
	switch l {
	case Unlabeled:
		return "unlabeled"
	case Human:
		return "human"
	case Bot:
		return "bot"
	default:
		return "label(" + strconv.Itoa(int(l)) + ")"
	}
}

// Parse accepts a label name (case-insensitive) or its integer code.
func Parse(s string) (Label, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "unlabeled", "":
		return Unlabeled, nil
	case "human":
		return Human, nil
	case "bot":
		return Bot, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || !Label(n).IsValid() {
		return Unlabeled, fmt.Errorf("unknown label %q", s)
	}
	return Label(n), nil
}

// MarshalText encodes the label by name.
func (l Label) MarshalText() ([]byte, error) {
	if !l.IsValid() {
		return nil, fmt.Errorf("invalid label %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText decodes a label name or integer code.
func (l *Label) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
