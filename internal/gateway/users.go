package gateway

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/Togather-Foundation/campus/internal/domain/events"
	"github.com/Togather-Foundation/campus/internal/domain/users"
	"github.com/Togather-Foundation/campus/internal/validation"
)

// Profile returns the caller's profile.
func (c *Client) Profile(ctx context.Context) (users.Identity, error) {
	return c.identity(ctx, call{
		op:       "profile",
		method:   http.MethodGet,
		path:     "/users/profile",
		fallback: "failed to fetch profile",
	})
}

// UpdateProfile changes the caller's name and/or email and returns the
// updated identity.
func (c *Client) UpdateProfile(ctx context.Context, update users.ProfileUpdate) (users.Identity, error) {
	const op = "update profile"
	if update.Name == "" && update.Email == "" {
		return users.Identity{}, validationError(op, errors.New("nothing to update"))
	}
	if err := validation.Struct(update); err != nil {
		return users.Identity{}, validationError(op, err)
	}
	return c.identity(ctx, call{
		op:       op,
		method:   http.MethodPut,
		path:     "/users/profile",
		body:     update,
		fallback: "failed to update profile",
	})
}

// UpdatePreferences replaces the caller's preference set and returns the set
// the server stored. The response may be {"preferences": [...]} or the whole
// updated identity.
func (c *Client) UpdatePreferences(ctx context.Context, prefs events.Types) (events.Types, error) {
	const op = "update preferences"
	body, err := c.do(ctx, call{
		op:       op,
		method:   http.MethodPut,
		path:     "/users/preferences",
		body:     map[string]events.Types{"preferences": events.NewTypes(prefs...)},
		fallback: "failed to update preferences",
	})
	if err != nil {
		return nil, err
	}
	return decodePreferences(op, body)
}

func decodePreferences(op string, body []byte) (events.Types, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var stored events.Types
		if err := decode(op, trimmed, "", &stored); err != nil {
			return nil, err
		}
		return events.NewTypes(stored...), nil
	}
	var payload struct {
		Preferences *events.Types   `json:"preferences"`
		User        *users.Identity `json:"user"`
	}
	if err := decode(op, trimmed, "", &payload); err != nil {
		return nil, err
	}
	switch {
	case payload.Preferences != nil:
		return events.NewTypes(*payload.Preferences...), nil
	case payload.User != nil:
		return payload.User.Normalize().Preferences, nil
	}
	return nil, decodeError(op, errors.New("response carried no preferences"))
}

// UserEvents lists events associated with the caller.
func (c *Client) UserEvents(ctx context.Context) ([]events.Event, error) {
	return c.eventList(ctx, call{
		op:       "user events",
		method:   http.MethodGet,
		path:     "/users/events",
		fallback: "failed to fetch your events",
	})
}

func (c *Client) identity(ctx context.Context, cl call) (users.Identity, error) {
	body, err := c.do(ctx, cl)
	if err != nil {
		return users.Identity{}, err
	}
	var identity users.Identity
	if err := decode(cl.op, body, "user", &identity); err != nil {
		return users.Identity{}, err
	}
	return identity.Normalize(), nil
}
