package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Togather-Foundation/campus/internal/domain/events"
	"github.com/Togather-Foundation/campus/internal/domain/ids"
	"github.com/Togather-Foundation/campus/internal/domain/users"
)

func TestClient_Login_Alice(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice@example.com", body["email"])
		assert.Equal(t, "secret", body["password"])

		writeJSON(w, http.StatusOK, map[string]any{
			"token": "t1",
			"user":  map[string]any{"id": 1, "name": "Alice", "role": "user"},
		})
	})

	result, err := client.Login(context.Background(), users.Credentials{Email: "alice@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "t1", result.Token)
	assert.Equal(t, ids.ID("1"), result.User.ID)
	assert.Equal(t, users.RoleUser, result.User.Role)
	assert.NotNil(t, result.User.Preferences)
	assert.Empty(t, result.User.Preferences)
}

func TestClient_Login_Rejected(t *testing.T) {
	client, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
	})
	creds.token = "kept"

	_, err := client.Login(context.Background(), users.Credentials{Email: "alice@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, KindAuthentication, KindOf(err))
	assert.Equal(t, "Invalid credentials", Message(err))
	assert.Equal(t, 0, creds.invalidations)
	assert.Equal(t, "kept", creds.Token())
}

func TestClient_Login_MissingToken(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"id": "u1"}})
	})

	_, err := client.Login(context.Background(), users.Credentials{Email: "alice@example.com", Password: "secret"})
	assert.Equal(t, KindDecode, KindOf(err))
}

func TestClient_Register_AdminWithoutPreferences(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/register", r.URL.Path)
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"Root","email":"root@example.com","password":"hunter22","role":"admin","preferences":[]}`, string(raw))

		// Server omits preferences entirely.
		writeJSON(w, http.StatusCreated, map[string]any{
			"token": "t2",
			"user":  map[string]any{"_id": "abc", "name": "Root", "email": "root@example.com", "role": "admin"},
		})
	})

	result, err := client.Register(context.Background(), users.Registration{
		Name:     "Root",
		Email:    "root@example.com",
		Password: "hunter22",
		Role:     users.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, ids.ID("abc"), result.User.ID)
	assert.True(t, result.User.IsAdmin())
	require.NotNil(t, result.User.Preferences)
	assert.Empty(t, result.User.Preferences)
}

func TestClient_Me_Envelopes(t *testing.T) {
	bodies := map[string]any{
		"bare":    map[string]any{"id": "u1", "name": "Alice", "role": "user", "preferences": []string{"Social"}},
		"wrapped": map[string]any{"user": map[string]any{"id": "u1", "name": "Alice", "role": "user", "preferences": []string{"Social"}}},
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			client, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/auth/me", r.URL.Path)
				writeJSON(w, http.StatusOK, body)
			})
			creds.token = "t1"

			identity, err := client.Me(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "Alice", identity.Name)
			assert.Equal(t, events.Types{events.TypeSocial}, identity.Preferences)
		})
	}
}

func TestClient_ListEvents_Envelopes(t *testing.T) {
	event := map[string]any{"_id": "e1", "title": "Hack Night", "type": "Workshop", "capacity": 10}
	bodies := map[string]any{
		"bare array": []any{event},
		"wrapped":    map[string]any{"events": []any{event}},
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, body)
			})

			list, err := client.ListEvents(context.Background(), nil)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, ids.ID("e1"), list[0].ID)
			assert.Equal(t, events.TypeWorkshop, list[0].Type)
		})
	}
}

func TestClient_UnknownTypesStillDecode(t *testing.T) {
	client, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/events":
			writeJSON(w, http.StatusOK, []any{
				map[string]any{"_id": "e1", "type": "Academic"},
				map[string]any{"_id": "e2", "type": "Seminar"},
			})
		case "/api/auth/me":
			writeJSON(w, http.StatusOK, map[string]any{"id": "u1", "name": "Alice", "role": "user", "preferences": []string{"Seminar", "Social"}})
		}
	})
	creds.token = "t1"
	ctx := context.Background()

	list, err := client.ListEvents(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, events.EventType("Seminar"), list[1].Type)
	assert.False(t, list[1].Type.Valid())

	identity, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, events.Types{events.TypeSocial}, identity.Preferences)
}

func TestClient_ListEvents_Malformed(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"events": "nope"})
	})

	_, err := client.ListEvents(context.Background(), nil)
	assert.Equal(t, KindDecode, KindOf(err))
}

func TestClient_RegistrationConflicts(t *testing.T) {
	client, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			writeJSON(w, http.StatusConflict, map[string]string{"message": "Already registered for this event"})
		case http.MethodDelete:
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not registered for this event"})
		}
	})
	creds.token = "t1"
	ctx := context.Background()

	err := client.RegisterForEvent(ctx, "e1")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "Already registered for this event", Message(err))

	err = client.CancelRegistration(ctx, "e1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "t1", creds.Token())
}

func TestClient_UpdatePreferences_Responses(t *testing.T) {
	bodies := map[string]any{
		"preferences key": map[string]any{"preferences": []string{"Sports", "Academic"}},
		"identity":        map[string]any{"user": map[string]any{"id": "u1", "preferences": []string{"Academic", "Sports"}}},
		"bare array":      []string{"Sports", "Academic", "Sports"},
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			client, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPut, r.Method)
				assert.Equal(t, "/api/users/preferences", r.URL.Path)
				raw, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				assert.JSONEq(t, `{"preferences":["Academic","Sports"]}`, string(raw))
				writeJSON(w, http.StatusOK, body)
			})
			creds.token = "t1"

			got, err := client.UpdatePreferences(context.Background(), events.Types{events.TypeSports, events.TypeAcademic})
			require.NoError(t, err)
			assert.Equal(t, events.Types{events.TypeAcademic, events.TypeSports}, got)
		})
	}
}

func TestClient_AdminOperations(t *testing.T) {
	var seen []string
	client, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		switch {
		case r.URL.Path == "/api/admin/dashboard":
			writeJSON(w, http.StatusOK, map[string]any{"totalEvents": 3, "totalUsers": 5, "totalRegistrations": 7, "upcomingEvents": 2, "activeToday": 1})
		case r.URL.Path == "/api/admin/registrations":
			writeJSON(w, http.StatusOK, map[string]any{"registrations": []any{
				map[string]any{"user": map[string]any{"_id": "u1", "name": "Alice"}, "event": map[string]any{"_id": "e1", "title": "Hack Night"}},
			}})
		case r.Method == http.MethodPut:
			writeJSON(w, http.StatusOK, map[string]any{"event": map[string]any{"id": "e1", "title": "Renamed"}})
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	creds.token = "admin"
	ctx := context.Background()

	stats, err := client.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalEvents)
	assert.Equal(t, 7, stats.TotalRegistrations)
	assert.Contains(t, stats.Extra, "activeToday")

	regs, err := client.AllRegistrations(ctx)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, ids.ID("u1"), regs[0].User.ID)
	require.NotNil(t, regs[0].Event)
	assert.Equal(t, "Hack Night", regs[0].Event.Title)

	updated, err := client.AdminUpdateEvent(ctx, "e1", events.EventInput{
		Title:    "Renamed",
		Date:     "2026-11-02",
		Time:     "18:30",
		Location: "Library",
		Capacity: 20,
		Type:     events.TypeSocial,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	require.NoError(t, client.AdminCancelRegistration(ctx, "e1", "u1"))
	require.NoError(t, client.AdminDeleteEvent(ctx, "e1"))
	require.NoError(t, client.DeleteEvent(ctx, "e2"))

	assert.Equal(t, []string{
		"GET /api/admin/dashboard",
		"GET /api/admin/registrations",
		"PUT /api/admin/events/e1",
		"DELETE /api/admin/events/e1/registrations/u1",
		"DELETE /api/admin/events/e1",
		"DELETE /api/events/admin/e2",
	}, seen)
}
