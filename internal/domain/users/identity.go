package users

import (
	"encoding/json"
	"strings"

	"github.com/Togather-Foundation/campus/internal/domain/events"
	"github.com/Togather-Foundation/campus/internal/domain/ids"
)

// Role is the authorization level of an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// NormalizeRole maps arbitrary input onto a known role, defaulting to RoleUser.
func NormalizeRole(role string) Role {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case string(RoleAdmin):
		return RoleAdmin
	default:
		return RoleUser
	}
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Identity is the authenticated user as known to the client.
type Identity struct {
	ID          ids.ID       `json:"id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Role        Role         `json:"role"`
	Preferences events.Types `json:"preferences"`
}

func (i *Identity) UnmarshalJSON(data []byte) error {
	type plain Identity
	var raw struct {
		plain
		MongoID ids.ID `json:"_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*i = Identity(raw.plain)
	i.ID = ids.First(raw.plain.ID, raw.MongoID)
	return nil
}

// Normalize guarantees the invariants callers rely on: a known role and a
// non-nil, canonical preference set.
func (i Identity) Normalize() Identity {
	i.Role = NormalizeRole(string(i.Role))
	i.Preferences = events.NewTypes(i.Preferences...)
	return i
}

func (i Identity) IsAdmin() bool {
	return i.Role.IsAdmin()
}

// Credentials is the login form.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration is the sign-up form.
type Registration struct {
	Name        string       `json:"name" validate:"required,max=100"`
	Email       string       `json:"email" validate:"required,email"`
	Password    string       `json:"password" validate:"required,min=6"`
	Role        Role         `json:"role" validate:"omitempty,oneof=user admin"`
	Preferences events.Types `json:"preferences"`
}

// ProfileUpdate carries the editable profile fields. Empty fields are left
// unchanged by the server.
type ProfileUpdate struct {
	Name  string `json:"name,omitempty" validate:"omitempty,max=100"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}
