package ids

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ulidRegex = regexp.MustCompile(`(?i)^[0-9A-HJKMNP-TV-Z]{26}$`)

	ErrInvalidULID = errors.New("invalid ULID")
	ErrEmptyID     = errors.New("empty identifier")
)

// ID is a server-assigned identifier. The events service has shipped both
// numeric and string (Mongo ObjectId / ULID) identifiers, so ID accepts either
// JSON form and always re-encodes as a string.
type ID string

func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the identifier is empty.
func (id ID) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}

// Validate rejects empty identifiers and identifiers containing path separators,
// since IDs are interpolated into request paths.
func (id ID) Validate() error {
	if id.IsZero() {
		return ErrEmptyID
	}
	if strings.ContainsAny(string(id), "/?#") {
		return fmt.Errorf("invalid identifier %q", string(id))
	}
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// First returns the first non-empty identifier. Used when a payload may carry
// either "id" or "_id".
func First(candidates ...ID) ID {
	for _, c := range candidates {
		if !c.IsZero() {
			return c
		}
	}
	return ""
}

// NewULID generates a new ULID string.
func NewULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// IsULID reports whether value is a well-formed ULID.
func IsULID(value string) bool {
	return ulidRegex.MatchString(strings.TrimSpace(value))
}

func ValidateULID(value string) error {
	if !IsULID(value) {
		return ErrInvalidULID
	}
	return nil
}
