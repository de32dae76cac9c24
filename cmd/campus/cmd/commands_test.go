package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Togather-Foundation/campus/internal/domain/events"
	"github.com/Togather-Foundation/campus/internal/session"
	"github.com/Togather-Foundation/campus/internal/storage"
	"github.com/Togather-Foundation/campus/internal/storage/file"
	"github.com/Togather-Foundation/campus/internal/stubserver"
)

const (
	adminEmail    = "admin@campus.edu"
	adminPassword = "admin-pass"
)

// startStub serves a seeded stub API and points the CLI at it with a
// per-test credential file. It returns the credential file path.
func startStub(t *testing.T) string {
	t.Helper()

	srv, err := stubserver.New(stubserver.Config{
		JWTSecret:     "cli-test-secret",
		AdminEmail:    adminEmail,
		AdminPassword: adminPassword,
		SeedEvents:    true,
		BcryptCost:    bcrypt.MinCost,
	}, zerolog.Nop())
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	credFile := filepath.Join(t.TempDir(), "credentials.yaml")
	t.Setenv("CAMPUS_API_URL", ts.URL+"/api")
	t.Setenv("CAMPUS_CREDENTIAL_BACKEND", "file")
	t.Setenv("CAMPUS_CREDENTIAL_FILE", credFile)
	t.Setenv("CAMPUS_RETRIES", "0")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("TRACING_ENABLED", "false")
	return credFile
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "campus %v\n%s", args, out)
	return out
}

func listEvents(t *testing.T, args ...string) []events.Event {
	t.Helper()
	out := mustRun(t, append([]string{"events", "list", "--format", "json"}, args...)...)
	var list []events.Event
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	return list
}

func findEvent(t *testing.T, list []events.Event, title string) events.Event {
	t.Helper()
	for _, e := range list {
		if e.Title == title {
			return e
		}
	}
	t.Fatalf("event %q not listed", title)
	return events.Event{}
}

func TestUserJourney(t *testing.T) {
	startStub(t)

	out := mustRun(t, "register", "--name", "Alice", "--email", "alice@campus.edu", "--password", "secret1", "--prefs", "academic")
	assert.Contains(t, out, "Signed in as Alice (user).")
	assert.Contains(t, out, "Next: campus profile show")

	// The saved credential is picked up by a fresh invocation.
	out = mustRun(t, "whoami")
	assert.Contains(t, out, "alice@campus.edu")
	assert.Contains(t, out, "Preferences: Academic")
	assert.Contains(t, out, "Session:     expires")

	all := listEvents(t)
	assert.Len(t, all, 5)

	sports := listEvents(t, "--types", "sports")
	require.Len(t, sports, 1)
	assert.Equal(t, "Intramural Soccer Final", sports[0].Title)

	preferred := listEvents(t, "--preferred")
	require.Len(t, preferred, 1)
	assert.Equal(t, events.TypeAcademic, preferred[0].Type)

	mixer := findEvent(t, all, "Welcome Week Mixer")
	out = mustRun(t, "events", "rsvp", mixer.ID.String())
	assert.Contains(t, out, "Registered for event")

	out = mustRun(t, "events", "registered")
	assert.Contains(t, out, "Welcome Week Mixer")

	out = mustRun(t, "events", "show", mixer.ID.String())
	assert.Contains(t, out, "You are registered for this event.")

	_, err := run(t, "events", "rsvp", mixer.ID.String())
	require.Error(t, err)
	assert.Equal(t, "Already registered for this event", errorMessage(err))

	out = mustRun(t, "profile", "events")
	assert.Contains(t, out, "Upcoming")
	assert.Contains(t, out, "Welcome Week Mixer")

	mustRun(t, "events", "cancel", mixer.ID.String())
	_, err = run(t, "events", "cancel", mixer.ID.String())
	require.Error(t, err)
	assert.Equal(t, "Not registered for this event", errorMessage(err))

	out = mustRun(t, "logout")
	assert.Contains(t, out, "Signed out.")

	_, err = run(t, "whoami")
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
	assert.Equal(t, "not signed in, run `campus login` first", errorMessage(err))
}

func TestLoginFailures(t *testing.T) {
	startStub(t)

	_, err := run(t, "login", "--email", adminEmail, "--password", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", errorMessage(err))

	_, err = run(t, "login", "--email", "not-an-email", "--password", "x")
	require.Error(t, err)

	_, err = run(t, "whoami")
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestLoginPasswordFromStdin(t *testing.T) {
	startStub(t)

	root := newRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(bytes.NewBufferString(adminPassword + "\n"))
	root.SetArgs([]string{"login", "--email", adminEmail, "--password-stdin"})
	require.NoError(t, root.Execute())

	assert.Contains(t, buf.String(), "Signed in as Administrator (admin).")
	assert.Contains(t, buf.String(), "Next: campus admin dashboard")
}

func TestStaleCredentialIsDiscarded(t *testing.T) {
	credFile := startStub(t)

	store, err := file.Open(credFile)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), storage.CredentialKey, "not-a-valid-token"))

	_, err = run(t, "whoami")
	require.ErrorIs(t, err, session.ErrNotAuthenticated)

	_, err = store.Get(context.Background(), storage.CredentialKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAdminCommandsRequireAdmin(t *testing.T) {
	startStub(t)

	_, err := run(t, "admin", "dashboard")
	require.ErrorIs(t, err, session.ErrNotAuthenticated)

	mustRun(t, "register", "--name", "Bob", "--email", "bob@campus.edu", "--password", "secret1")

	for _, args := range [][]string{
		{"admin", "dashboard"},
		{"admin", "events"},
		{"admin", "registrations"},
		{"events", "delete", "01J9Z8Q6W3X4Y5Z6A7B8C9D0EF"},
	} {
		_, err := run(t, args...)
		require.ErrorIs(t, err, session.ErrNotAdmin, "campus %v", args)
		assert.Equal(t, "this command requires an admin account", errorMessage(err))
	}
}

func TestAdminEventLifecycle(t *testing.T) {
	startStub(t)
	mustRun(t, "login", "--email", adminEmail, "--password", adminPassword)

	out := mustRun(t, "admin", "create",
		"--title", "Compilers Reading Group",
		"--date", "2026-12-01",
		"--time", "10:00",
		"--location", "Room 7",
		"--capacity", "2",
		"--type", "academic",
		"--format", "json",
	)
	var created events.Event
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.False(t, created.ID.IsZero())
	assert.Equal(t, "2026-12-01", created.Date)
	assert.Equal(t, "10:00", created.Time)

	out = mustRun(t, "admin", "update", created.ID.String(), "--capacity", "5", "--format", "json")
	var updated events.Event
	require.NoError(t, json.Unmarshal([]byte(out), &updated))
	assert.Equal(t, 5, updated.Capacity)
	assert.Equal(t, "Compilers Reading Group", updated.Title)
	assert.Equal(t, events.TypeAcademic, updated.Type)

	out = mustRun(t, "admin", "registrations", created.ID.String())
	assert.Contains(t, out, "No registrations found.")

	out = mustRun(t, "admin", "dashboard")
	assert.Contains(t, out, "Total events:")

	out = mustRun(t, "admin", "events")
	assert.Contains(t, out, "Compilers Reading Group")

	mustRun(t, "admin", "delete", created.ID.String())
	_, err := run(t, "events", "show", created.ID.String())
	require.Error(t, err)
}

func TestAdminCancelRegistration(t *testing.T) {
	startStub(t)

	mustRun(t, "register", "--name", "Carol", "--email", "carol@campus.edu", "--password", "secret1")
	festival := findEvent(t, listEvents(t), "Lantern Festival")
	mustRun(t, "events", "rsvp", festival.ID.String())
	mustRun(t, "logout")

	mustRun(t, "login", "--email", adminEmail, "--password", adminPassword)
	out := mustRun(t, "admin", "registrations", festival.ID.String(), "--format", "json")
	var regs []events.Registration
	require.NoError(t, json.Unmarshal([]byte(out), &regs))
	require.Len(t, regs, 1)
	assert.Equal(t, "Carol", regs[0].User.Name)

	mustRun(t, "admin", "cancel", festival.ID.String(), regs[0].User.ID.String())

	out = mustRun(t, "admin", "registrations", festival.ID.String())
	assert.Contains(t, out, "No registrations found.")
}

func TestProfileCommands(t *testing.T) {
	startStub(t)
	mustRun(t, "register", "--name", "Dana", "--email", "dana@campus.edu", "--password", "secret1", "--prefs", "academic")

	out := mustRun(t, "profile", "prefs", "--toggle", "sports")
	assert.Contains(t, out, "Preferences: Academic, Sports")

	out = mustRun(t, "profile", "prefs", "workshop,social")
	assert.Contains(t, out, "Preferences: Social, Workshop")

	out = mustRun(t, "profile", "prefs", "")
	assert.Contains(t, out, "Preferences cleared.")

	_, err := run(t, "profile", "prefs", "juggling")
	require.ErrorIs(t, err, events.ErrUnknownEventType)

	out = mustRun(t, "profile", "update", "--name", "Dana Scully")
	assert.Contains(t, out, "Name:        Dana Scully")

	out = mustRun(t, "profile", "show", "--format", "json")
	assert.Contains(t, out, `"name": "Dana Scully"`)
}

func TestEventsCalendar(t *testing.T) {
	startStub(t)

	out := mustRun(t, "events", "calendar")
	assert.Contains(t, out, "Welcome Week Mixer")
	assert.NotContains(t, out, "Intramural Soccer Final")

	out = mustRun(t, "events", "calendar", "--all")
	assert.Contains(t, out, "Intramural Soccer Final")
}

func TestInvalidFormat(t *testing.T) {
	startStub(t)

	_, err := run(t, "events", "list", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestParseWhen(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

	day, clock, err := parseWhen("2026-11-05", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-11-05", day)
	assert.Empty(t, clock)

	day, _, err = parseWhen("tomorrow", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", day)

	_, _, err = parseWhen("the twelfth of never", now)
	assert.Error(t, err)
}

func TestEventFormApply(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	base := events.EventInput{
		Title:    "Chess Night",
		Date:     "2026-11-01",
		Time:     "19:00",
		Location: "Union",
		Capacity: 20,
		Type:     events.TypeSocial,
	}
	form := eventForm{capacity: 40, title: "ignored", clock: "20:15"}
	changed := func(name string) bool { return name == "capacity" || name == "time" }

	got, err := form.apply(base, changed, now)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Capacity)
	assert.Equal(t, "Chess Night", got.Title)
	assert.Equal(t, "20:15", got.Time)
	assert.Equal(t, "2026-11-01", got.Date)

	form = eventForm{eventType: "knitting"}
	_, err = form.apply(base, func(name string) bool { return name == "type" }, now)
	assert.ErrorIs(t, err, events.ErrUnknownEventType)
}

type closeRecorder struct {
	*storage.MemoryStore
	closed int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

func TestFailedCommandReleasesResources(t *testing.T) {
	store := &closeRecorder{MemoryStore: storage.NewMemoryStore()}
	a := &app{store: store}
	failing := errors.New("boom")

	root := &cobra.Command{Use: "campus", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(&cobra.Command{
		Use:  "fail",
		RunE: func(*cobra.Command, []string) error { return failing },
	})
	closeOnError(root, a)
	root.SetArgs([]string{"fail"})

	err := root.Execute()
	require.ErrorIs(t, err, failing)
	assert.Equal(t, 1, store.closed)
	require.NoError(t, a.close(root))
	assert.Equal(t, 1, store.closed, "close runs once")
}

func TestFailedCommandPrintsMetrics(t *testing.T) {
	startStub(t)

	out, err := run(t, "--print-metrics", "events", "show", "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	require.Error(t, err)
	assert.Contains(t, out, "campus_api_requests_total")
}
