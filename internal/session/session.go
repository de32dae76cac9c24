// Package session owns the signed-in state of the client: the bearer
// credential and the identity it was last validated as.
//
// The Store is the only writer of the credential. The gateway may clear it
// through Invalidate when the server rejects it, and nothing else.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Togather-Foundation/campus/internal/domain/events"
	"github.com/Togather-Foundation/campus/internal/domain/users"
	"github.com/Togather-Foundation/campus/internal/gateway"
	"github.com/Togather-Foundation/campus/internal/storage"
)

var (
	// ErrNotAuthenticated is returned by operations that need a signed-in user.
	ErrNotAuthenticated = errors.New("not signed in")
	// ErrNotAdmin is returned by RequireAdmin for signed-in non-admin users.
	ErrNotAdmin = errors.New("admin access required")
)

// Gateway is the subset of the API client the session depends on.
type Gateway interface {
	SetCredentials(creds gateway.Credentials)
	Login(ctx context.Context, creds users.Credentials) (gateway.AuthResult, error)
	Register(ctx context.Context, reg users.Registration) (gateway.AuthResult, error)
	Me(ctx context.Context) (users.Identity, error)
	UpdatePreferences(ctx context.Context, prefs events.Types) (events.Types, error)
	UpdateProfile(ctx context.Context, update users.ProfileUpdate) (users.Identity, error)
}

// Store holds the current credential and identity. The identity is only ever
// present together with the credential it was obtained with.
type Store struct {
	gw        Gateway
	persisted *storage.Credentials
	navigator Navigator
	logger    zerolog.Logger

	init singleflight.Group

	// writeMu orders credential changes so memory and persistent storage
	// always agree on which credential was written last. Taken before mu.
	writeMu sync.Mutex

	mu       sync.RWMutex
	token    string
	identity *users.Identity
}

// Option configures a Store.
type Option func(*Store)

// WithNavigator sets where session changes are announced.
func WithNavigator(nav Navigator) Option {
	return func(s *Store) {
		if nav != nil {
			s.navigator = nav
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Store and binds it to gw as the credential provider.
func New(gw Gateway, persisted *storage.Credentials, opts ...Option) *Store {
	s := &Store{
		gw:        gw,
		persisted: persisted,
		navigator: nopNavigator{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "session").Logger()
	gw.SetCredentials(s)
	return s
}

// Initialize restores a persisted credential and re-validates it with the
// server. Any failure signs the user out rather than being returned; only the
// caller's own context errors are reported. Concurrent calls share a single
// validation request.
func (s *Store) Initialize(ctx context.Context) error {
	// The shared validation outlives any single waiter.
	work := context.WithoutCancel(ctx)
	ch := s.init.DoChan("initialize", func() (any, error) {
		s.initialize(work)
		return nil, nil
	})
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) initialize(ctx context.Context) {
	// Read and install under writeMu so a concurrent sign-in is either seen
	// here or applied after.
	s.writeMu.Lock()
	token, err := s.persisted.Load(ctx)
	if err == nil {
		s.mu.Lock()
		s.token = token
		s.identity = nil
		s.mu.Unlock()
	}
	s.writeMu.Unlock()
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read stored credential")
		s.discard(ctx, "")
		return
	}
	if token == "" {
		return
	}

	identity, err := s.gw.Me(ctx)
	if err != nil {
		s.logger.Info().Str("kind", string(gateway.KindOf(err))).Msg("stored credential rejected, signing out")
		s.discard(ctx, token)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != token {
		// Signed out or replaced while validating.
		return
	}
	identity = identity.Normalize()
	s.identity = &identity
	s.logger.Debug().Str("user_id", identity.ID.String()).Str("role", string(identity.Role)).Msg("session restored")
}

// discard drops token (or whatever is held when token is empty) from memory
// and persistent storage without navigating. A credential installed since
// token was read is left alone in both places.
func (s *Store) discard(ctx context.Context, token string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if token != "" && s.token != token {
		s.mu.Unlock()
		return
	}
	s.token = ""
	s.identity = nil
	s.mu.Unlock()

	if err := s.persisted.Clear(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to clear stored credential")
	}
}

// Login signs in. On failure the session is left exactly as it was.
func (s *Store) Login(ctx context.Context, email, password string) (users.Identity, error) {
	result, err := s.gw.Login(ctx, users.Credentials{Email: email, Password: password})
	if err != nil {
		return users.Identity{}, err
	}
	if err := s.establish(ctx, result); err != nil {
		return users.Identity{}, err
	}
	s.navigator.Navigate(AfterLogin(result.User.Role))
	return result.User, nil
}

// Register creates an account and signs it in.
func (s *Store) Register(ctx context.Context, reg users.Registration) (users.Identity, error) {
	result, err := s.gw.Register(ctx, reg)
	if err != nil {
		return users.Identity{}, err
	}
	if err := s.establish(ctx, result); err != nil {
		return users.Identity{}, err
	}
	s.navigator.Navigate(AfterRegister(result.User.Role))
	return result.User, nil
}

// establish persists and installs a fresh credential. A result that arrives
// after the caller gave up is dropped.
func (s *Store) establish(ctx context.Context, result gateway.AuthResult) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.persisted.Save(ctx, result.Token); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	identity := result.User.Normalize()

	s.mu.Lock()
	s.token = result.Token
	s.identity = &identity
	s.mu.Unlock()

	s.logger.Info().Str("user_id", identity.ID.String()).Str("role", string(identity.Role)).Msg("signed in")
	return nil
}

// Logout signs out unconditionally. The server is not contacted. The
// returned error only reports a failure to erase the persisted credential;
// the in-memory session is cleared regardless.
func (s *Store) Logout(ctx context.Context) error {
	s.writeMu.Lock()
	s.mu.Lock()
	s.token = ""
	s.identity = nil
	s.mu.Unlock()
	err := s.persisted.Clear(ctx)
	s.writeMu.Unlock()

	s.navigator.Navigate(RouteLogin)
	if err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// Token returns the credential to attach to requests, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Invalidate signs out if token is still the current credential. It is
// called by the gateway on a 401 and is idempotent: of several concurrent
// rejections of the same credential only the first one clears it and
// redirects to the login route.
func (s *Store) Invalidate(ctx context.Context, token string) bool {
	s.writeMu.Lock()
	s.mu.Lock()
	if token == "" || token != s.token {
		s.mu.Unlock()
		s.writeMu.Unlock()
		return false
	}
	signedIn := s.identity != nil
	s.token = ""
	s.identity = nil
	s.mu.Unlock()

	if err := s.persisted.Clear(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to clear stored credential")
	}
	s.writeMu.Unlock()
	s.logger.Info().Msg("credential rejected by server, signed out")
	// A credential that never produced an identity (Initialize) has no
	// visible session to leave.
	if signedIn {
		s.navigator.Navigate(RouteLogin)
	}
	return true
}

// Identity returns the signed-in identity.
func (s *Store) Identity() (users.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return users.Identity{}, false
	}
	identity := *s.identity
	identity.Preferences = append(events.Types{}, s.identity.Preferences...)
	return identity, true
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil
}

func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil && s.identity.IsAdmin()
}

// RequireAdmin guards admin-only flows.
func (s *Store) RequireAdmin() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.identity == nil:
		return ErrNotAuthenticated
	case !s.identity.IsAdmin():
		return ErrNotAdmin
	}
	return nil
}

// UpdatePreferences replaces the preference set and returns the identity
// carrying the set the server stored.
func (s *Store) UpdatePreferences(ctx context.Context, prefs events.Types) (users.Identity, error) {
	token := s.Token()
	if !s.IsAuthenticated() {
		return users.Identity{}, ErrNotAuthenticated
	}
	stored, err := s.gw.UpdatePreferences(ctx, prefs)
	if err != nil {
		return users.Identity{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil || s.token != token {
		return users.Identity{}, ErrNotAuthenticated
	}
	updated := *s.identity
	updated.Preferences = events.NewTypes(stored...)
	s.identity = &updated
	return updated, nil
}

// UpdateProfile edits the profile and replaces the identity with the one the
// server returned.
func (s *Store) UpdateProfile(ctx context.Context, update users.ProfileUpdate) (users.Identity, error) {
	token := s.Token()
	if !s.IsAuthenticated() {
		return users.Identity{}, ErrNotAuthenticated
	}
	identity, err := s.gw.UpdateProfile(ctx, update)
	if err != nil {
		return users.Identity{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil || s.token != token {
		return users.Identity{}, ErrNotAuthenticated
	}
	identity = identity.Normalize()
	if identity.ID.IsZero() {
		identity.ID = s.identity.ID
	}
	s.identity = &identity
	return identity, nil
}
