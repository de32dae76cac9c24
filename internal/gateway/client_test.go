package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Togather-Foundation/campus/internal/domain/events"
	"github.com/Togather-Foundation/campus/internal/domain/users"
)

// memCreds is a compare-and-clear credential holder for tests.
type memCreds struct {
	mu            sync.Mutex
	token         string
	invalidations int
}

func (m *memCreds) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *memCreds) Invalidate(_ context.Context, token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token == "" || token != m.token {
		return false
	}
	m.token = ""
	m.invalidations++
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *memCreds) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(server.URL+"/api", opts...)
	creds := &memCreds{}
	client.SetCredentials(creds)
	return client, creds
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth, gotRequestID string
	client, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		assert.Equal(t, "/api/events/registered", r.URL.Path)
		writeJSON(w, http.StatusOK, []any{})
	})
	creds.token = "t1"

	list, err := client.RegisteredEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)
	assert.Equal(t, "Bearer t1", gotAuth)
	assert.NotEmpty(t, gotRequestID)
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"events": []any{}})
	})

	_, err := client.ListEvents(context.Background(), nil)
	require.NoError(t, err)
}

func TestClient_LoginNeverSendsExistingToken(t *testing.T) {
	client, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"token": "fresh",
			"user":  map[string]any{"id": 1, "name": "Alice", "role": "user"},
		})
	})
	creds.token = "stale"

	_, err := client.Login(context.Background(), users.Credentials{Email: "alice@example.com", Password: "secret"})
	require.NoError(t, err)
}

func TestClient_ListEvents_TypesParameter(t *testing.T) {
	tests := []struct {
		name    string
		types   events.Types
		present bool
		want    string
	}{
		{name: "nil filter omits parameter", types: nil},
		{name: "empty filter omits parameter", types: events.Types{}},
		{name: "single type", types: events.Types{events.TypeSocial}, present: true, want: "Social"},
		{
			name:    "canonical order",
			types:   events.Types{events.TypeSports, events.TypeAcademic, events.TypeSports},
			present: true,
			want:    "Academic,Sports",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				values, ok := r.URL.Query()["types"]
				assert.Equal(t, tt.present, ok, "types parameter presence")
				if tt.present {
					assert.Equal(t, []string{tt.want}, values)
				}
				writeJSON(w, http.StatusOK, []any{})
			})

			_, err := client.ListEvents(context.Background(), tt.types)
			require.NoError(t, err)
		})
	}
}

func TestClient_401InvalidatesOnceUnderConcurrency(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	client, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
	})
	creds.token = "t1"

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.RegisteredEvents(context.Background())
		}(i)
	}
	// Both requests must be in flight with the token before either fails.
	require.Eventually(t, func() bool { return hits.Load() == 2 }, 2*time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnauthorized))
		assert.Equal(t, KindAuthorization, KindOf(err))
	}
	assert.Equal(t, 1, creds.invalidations)
	assert.Empty(t, creds.Token())
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_401NotRetried(t *testing.T) {
	var paths []string
	var mu sync.Mutex
	client, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
	}, WithRetries(3))
	creds.token = "t1"

	err := client.RegisterForEvent(context.Background(), "42")
	require.Error(t, err)
	assert.Equal(t, KindAuthorization, KindOf(err))
	assert.Empty(t, creds.Token())
	assert.Equal(t, []string{"POST /api/events/42/register"}, paths, "no retry and no follow-up /auth/me")
}

func TestClient_401WithoutTokenDoesNotInvalidate(t *testing.T) {
	client, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "no token"})
	})

	_, err := client.Me(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindAuthorization, KindOf(err))
	assert.Equal(t, 0, creds.invalidations)
}

func TestClient_StaleTokenNotCleared(t *testing.T) {
	// A 401 for an old credential must not sign out a newer one.
	creds := &memCreds{token: "new"}
	assert.False(t, creds.Invalidate(context.Background(), "old"))
	assert.Equal(t, "new", creds.Token())
}

func TestClient_RetriesGetOnServerError(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "busy"})
			return
		}
		writeJSON(w, http.StatusOK, []any{})
	}, WithRetries(1))

	_, err := client.AdminEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_DoesNotRetryWrites(t *testing.T) {
	var hits atomic.Int32
	client, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "boom"})
	}, WithRetries(3))
	creds.token = "t1"

	err := client.RegisterForEvent(context.Background(), "7")
	require.Error(t, err)
	assert.Equal(t, KindServer, KindOf(err))
	assert.Equal(t, "boom", Message(err))
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(url)
	_, err := client.ListEvents(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Equal(t, TransportMessage, Message(err))
}

func TestClient_ValidationBeforeRequest(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	ctx := context.Background()

	_, err := client.Login(ctx, users.Credentials{Email: "not-an-email", Password: "x"})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = client.Register(ctx, users.Registration{Name: "Bob", Email: "bob@example.com", Password: "123"})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = client.GetEvent(ctx, "")
	assert.Equal(t, KindValidation, KindOf(err))

	err = client.CancelRegistration(ctx, "a/b")
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = client.AdminCreateEvent(ctx, events.EventInput{Title: "x"})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = client.SearchEvents(ctx, "   ")
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = client.UpdateProfile(ctx, users.ProfileUpdate{})
	assert.Equal(t, KindValidation, KindOf(err))

	assert.Equal(t, int32(0), hits.Load())
}

type recordingObserver struct {
	mu        sync.Mutex
	requests  []RequestInfo
	responses []ResponseInfo
}

func (r *recordingObserver) RequestSent(_ context.Context, req RequestInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
}

func (r *recordingObserver) ResponseReceived(_ context.Context, _ RequestInfo, res ResponseInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, res)
}

func TestClient_Observer(t *testing.T) {
	obs := &recordingObserver{}
	client, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Event not found"})
	}, WithObserver(obs))
	creds.token = "t1"

	_, err := client.GetEvent(context.Background(), "99")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.Len(t, obs.requests, 1)
	require.Len(t, obs.responses, 1)
	assert.Equal(t, "get event", obs.requests[0].Op)
	assert.True(t, obs.requests[0].TokenAttached)
	assert.Equal(t, http.StatusNotFound, obs.responses[0].Status)
}
