package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// EventType classifies an event. The same closed set is used for event
// classification, list filters and user preferences.
type EventType string

const (
	TypeAcademic   EventType = "Academic"
	TypeSocial     EventType = "Social"
	TypeSports     EventType = "Sports"
	TypeCultural   EventType = "Cultural"
	TypeWorkshop   EventType = "Workshop"
	TypeConference EventType = "Conference"
)

// ErrUnknownEventType is returned when a value is not part of the enumeration.
var ErrUnknownEventType = errors.New("unknown event type")

var allTypes = [...]EventType{
	TypeAcademic,
	TypeSocial,
	TypeSports,
	TypeCultural,
	TypeWorkshop,
	TypeConference,
}

// AllTypes returns every EventType in canonical order.
func AllTypes() []EventType {
	out := make([]EventType, len(allTypes))
	copy(out, allTypes[:])
	return out
}

// ParseEventType matches s case-insensitively against the enumeration.
func ParseEventType(s string) (EventType, error) {
	trimmed := strings.TrimSpace(s)
	for _, t := range allTypes {
		if strings.EqualFold(string(t), trimmed) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEventType, s)
}

func (t EventType) Valid() bool {
	return t.rank() >= 0
}

func (t EventType) String() string {
	return string(t)
}

func (t EventType) rank() int {
	for i, candidate := range allTypes {
		if candidate == t {
			return i
		}
	}
	return -1
}

// UnmarshalJSON canonicalizes known values and keeps unknown ones verbatim,
// so a payload carrying a type this client does not know still decodes.
// Valid reports whether the value is part of the enumeration.
func (t *EventType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if parsed, err := ParseEventType(s); err == nil {
		*t = parsed
		return nil
	}
	*t = EventType(s)
	return nil
}

// Types is a set of EventType kept in canonical order without duplicates.
// The zero value is the empty set. An empty set used as a filter means
// "no filter", never "match nothing".
type Types []EventType

// NewTypes builds a normalized set. Values outside the enumeration are dropped.
func NewTypes(values ...EventType) Types {
	seen := make(map[EventType]bool, len(values))
	out := make(Types, 0, len(values))
	for _, v := range values {
		if !v.Valid() || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].rank() < out[j].rank() })
	return out
}

// ParseTypes parses a comma-separated list such as "academic, Social".
// Empty input yields the empty set.
func ParseTypes(s string) (Types, error) {
	if strings.TrimSpace(s) == "" {
		return Types{}, nil
	}
	parts := strings.Split(s, ",")
	values := make([]EventType, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		t, err := ParseEventType(part)
		if err != nil {
			return nil, err
		}
		values = append(values, t)
	}
	return NewTypes(values...), nil
}

func (ts Types) Contains(t EventType) bool {
	for _, v := range ts {
		if v == t {
			return true
		}
	}
	return false
}

func (ts Types) IsEmpty() bool {
	return len(ts) == 0
}

// Toggle returns a copy of the set with t added if absent, removed if present.
func (ts Types) Toggle(t EventType) Types {
	if ts.Contains(t) {
		out := make(Types, 0, len(ts))
		for _, v := range ts {
			if v != t {
				out = append(out, v)
			}
		}
		return out
	}
	return NewTypes(append(append([]EventType{}, ts...), t)...)
}

// Match reports whether an event of type t passes the filter.
func (ts Types) Match(t EventType) bool {
	return ts.IsEmpty() || ts.Contains(t)
}

// Join renders the set the way the events API expects the types query value.
func (ts Types) Join() string {
	return strings.Join(ts.Strings(), ",")
}

func (ts Types) Strings() []string {
	out := make([]string, len(ts))
	for i, v := range ts {
		out[i] = string(v)
	}
	return out
}

func (ts Types) MarshalJSON() ([]byte, error) {
	if ts == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]EventType(ts))
}

// UnmarshalJSON drops values outside the enumeration.
func (ts *Types) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*ts = Types{}
		return nil
	}
	var values []EventType
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*ts = NewTypes(values...)
	return nil
}
