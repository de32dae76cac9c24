package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Togather-Foundation/campus/internal/domain/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventUnmarshalMongoShape(t *testing.T) {
	payload := `{
		"_id": "65a1",
		"title": "Robotics Expo",
		"date": "2026-11-02T00:00:00.000Z",
		"time": "18:30",
		"location": "Hall B",
		"capacity": 3,
		"type": "Workshop",
		"registrations": ["u1", {"_id": "u2", "name": "Bo"}],
		"creator": {"_id": "admin1", "name": "Ada"}
	}`

	var e Event
	require.NoError(t, json.Unmarshal([]byte(payload), &e))

	assert.Equal(t, ids.ID("65a1"), e.ID)
	assert.Equal(t, TypeWorkshop, e.Type)
	require.Len(t, e.Registrations, 2)
	assert.Equal(t, ids.ID("u1"), e.Registrations[0].ID)
	assert.Equal(t, "Bo", e.Registrations[1].Name)
	require.NotNil(t, e.Creator)
	assert.Equal(t, ids.ID("admin1"), e.Creator.ID)
	assert.Equal(t, 1, e.SeatsAvailable())
	assert.False(t, e.IsFull())
	assert.True(t, e.HasAttendee("u2"))
}

func TestEventUnmarshalNumericID(t *testing.T) {
	var e Event
	require.NoError(t, json.Unmarshal([]byte(`{"id": 42, "title": "Chess", "type": ""}`), &e))
	assert.Equal(t, ids.ID("42"), e.ID)
	assert.Equal(t, EventType(""), e.Type)
}

func TestSeatsAvailableNeverNegative(t *testing.T) {
	e := Event{Capacity: 1, Registrations: []Person{{ID: "a"}, {ID: "b"}}}
	assert.Equal(t, 0, e.SeatsAvailable())
	assert.True(t, e.IsFull())
}

func TestStartsAt(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name  string
		event Event
		want  time.Time
		ok    bool
	}{
		{
			name:  "calendar day with time",
			event: Event{Date: "2026-11-02", Time: "18:30"},
			want:  time.Date(2026, 11, 2, 18, 30, 0, 0, loc),
			ok:    true,
		},
		{
			name:  "calendar day without time",
			event: Event{Date: "2026-11-02"},
			want:  time.Date(2026, 11, 2, 0, 0, 0, 0, loc),
			ok:    true,
		},
		{
			name:  "rfc3339 timestamp",
			event: Event{Date: "2026-11-02T09:15:00Z", Time: "18:30"},
			want:  time.Date(2026, 11, 2, 9, 15, 0, 0, loc),
			ok:    true,
		},
		{
			name:  "garbage",
			event: Event{Date: "next week"},
			ok:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.event.StartsAt(loc)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
			}
		})
	}
}

func TestPartition(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	list := []Event{
		{ID: "past", Date: "2026-10-01"},
		{ID: "later-today", Date: "2026-10-15", Time: "18:00"},
		{ID: "undated"},
	}

	upcoming, past := Partition(list, now)

	require.Len(t, past, 1)
	assert.Equal(t, ids.ID("past"), past[0].ID)
	require.Len(t, upcoming, 2)
	assert.Equal(t, ids.ID("later-today"), upcoming[0].ID)
}

func TestGroupByDay(t *testing.T) {
	list := []Event{
		{ID: "b", Date: "2026-11-03"},
		{ID: "x"},
		{ID: "a1", Date: "2026-11-02", Time: "09:00"},
		{ID: "a2", Date: "2026-11-02T15:00:00Z"},
	}

	groups := GroupByDay(list, time.UTC)

	require.Len(t, groups, 3)
	assert.Equal(t, "2026-11-02", groups[0].Day)
	assert.Len(t, groups[0].Events, 2)
	assert.Equal(t, "2026-11-03", groups[1].Day)
	assert.Equal(t, "", groups[2].Day)
}

func TestFilter(t *testing.T) {
	list := []Event{{ID: "1", Type: TypeAcademic}, {ID: "2", Type: TypeSports}}

	assert.Len(t, Filter(list, nil), 2)
	assert.Len(t, Filter(list, Types{}), 2)
	got := Filter(list, NewTypes(TypeSports))
	require.Len(t, got, 1)
	assert.Equal(t, ids.ID("2"), got[0].ID)
}

func TestDashboardStatsKeepsUnknownCounters(t *testing.T) {
	var stats DashboardStats
	require.NoError(t, json.Unmarshal([]byte(`{"totalEvents": 4, "totalUsers": 9, "popularType": "Social"}`), &stats))

	assert.Equal(t, 4, stats.TotalEvents)
	assert.Equal(t, 9, stats.TotalUsers)
	require.Contains(t, stats.Extra, "popularType")
	assert.JSONEq(t, `"Social"`, string(stats.Extra["popularType"]))
}
