package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/Togather-Foundation/campus/internal/domain/events"
	"github.com/Togather-Foundation/campus/internal/domain/users"
	"github.com/Togather-Foundation/campus/internal/validation"
)

// AuthResult is returned by a successful login or registration.
type AuthResult struct {
	Token string         `json:"token"`
	User  users.Identity `json:"user"`
}

// Login exchanges credentials for a bearer credential and identity. The
// request never carries an existing credential.
func (c *Client) Login(ctx context.Context, creds users.Credentials) (AuthResult, error) {
	const op = "login"
	if err := validation.Struct(creds); err != nil {
		return AuthResult{}, validationError(op, err)
	}
	body, err := c.do(ctx, call{
		op:        op,
		method:    http.MethodPost,
		path:      "/auth/login",
		body:      creds,
		anonymous: true,
		fallback:  "invalid email or password",
	})
	if err != nil {
		return AuthResult{}, err
	}
	return decodeAuth(op, body)
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, reg users.Registration) (AuthResult, error) {
	const op = "register"
	if reg.Role == "" {
		reg.Role = users.RoleUser
	}
	if err := validation.Struct(reg); err != nil {
		return AuthResult{}, validationError(op, err)
	}
	reg.Preferences = events.NewTypes(reg.Preferences...)
	body, err := c.do(ctx, call{
		op:        op,
		method:    http.MethodPost,
		path:      "/auth/register",
		body:      reg,
		anonymous: true,
		fallback:  "registration failed",
	})
	if err != nil {
		return AuthResult{}, err
	}
	return decodeAuth(op, body)
}

// Me re-validates the current credential and returns its identity.
func (c *Client) Me(ctx context.Context) (users.Identity, error) {
	const op = "me"
	body, err := c.do(ctx, call{op: op, method: http.MethodGet, path: "/auth/me"})
	if err != nil {
		return users.Identity{}, err
	}
	var identity users.Identity
	if err := decode(op, body, "user", &identity); err != nil {
		return users.Identity{}, err
	}
	return identity.Normalize(), nil
}

func decodeAuth(op string, body []byte) (AuthResult, error) {
	var result AuthResult
	if err := decode(op, body, "", &result); err != nil {
		return AuthResult{}, err
	}
	if result.Token == "" {
		return AuthResult{}, decodeError(op, errors.New("response carried no token"))
	}
	result.User = result.User.Normalize()
	return result, nil
}
