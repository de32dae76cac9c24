package events

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/Togather-Foundation/campus/internal/domain/ids"
)

const (
	// DateLayout is the calendar-day layout used by the API for event dates.
	DateLayout = "2006-01-02"
	// TimeLayout is the wall-clock layout used by the API for event start times.
	TimeLayout = "15:04"
)

// Person is a lightweight user reference embedded in event payloads. The API
// sends either a bare identifier or a populated object.
type Person struct {
	ID    ids.ID `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (p *Person) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var id ids.ID
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*p = Person{ID: id}
		return nil
	}
	var raw struct {
		ID      ids.ID `json:"id"`
		MongoID ids.ID `json:"_id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Person{ID: ids.First(raw.ID, raw.MongoID), Name: raw.Name, Email: raw.Email}
	return nil
}

// Event is a campus event as returned by the events service.
type Event struct {
	ID            ids.ID    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Date          string    `json:"date"`
	Time          string    `json:"time,omitempty"`
	Location      string    `json:"location,omitempty"`
	Capacity      int       `json:"capacity"`
	Type          EventType `json:"type"`
	Registrations []Person  `json:"registrations,omitempty"`
	Creator       *Person   `json:"creator,omitempty"`
}

func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	var raw struct {
		plain
		MongoID ids.ID `json:"_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Event(raw.plain)
	e.ID = ids.First(raw.plain.ID, raw.MongoID)
	return nil
}

// Registered returns the number of attendees currently registered.
func (e Event) Registered() int {
	return len(e.Registrations)
}

// SeatsAvailable never goes below zero, even if the server over-allocates.
func (e Event) SeatsAvailable() int {
	if left := e.Capacity - e.Registered(); left > 0 {
		return left
	}
	return 0
}

func (e Event) IsFull() bool {
	return e.Capacity > 0 && e.Registered() >= e.Capacity
}

// HasAttendee reports whether the given user appears in the registration list.
func (e Event) HasAttendee(userID ids.ID) bool {
	for _, p := range e.Registrations {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// StartsAt resolves the event start. Date may be a calendar day or a full
// RFC 3339 timestamp; when it is a calendar day the Time field is applied in loc.
func (e Event) StartsAt(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	date := strings.TrimSpace(e.Date)
	if date == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339, date); err == nil {
		return ts.In(loc), true
	}
	if len(date) > len(DateLayout) {
		date = date[:len(DateLayout)]
	}
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, false
	}
	if clock, err := time.Parse(TimeLayout, strings.TrimSpace(e.Time)); err == nil {
		day = day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)
	}
	return day, true
}

// Day returns the calendar day of the event in loc, formatted with DateLayout.
func (e Event) Day(loc *time.Location) string {
	start, ok := e.StartsAt(loc)
	if !ok {
		return ""
	}
	return start.Format(DateLayout)
}

// Partition splits events into upcoming (start >= now) and past. Events with an
// unparseable date are treated as upcoming so they stay visible.
func Partition(list []Event, now time.Time) (upcoming, past []Event) {
	for _, e := range list {
		start, ok := e.StartsAt(now.Location())
		if ok && start.Before(now) {
			past = append(past, e)
			continue
		}
		upcoming = append(upcoming, e)
	}
	return upcoming, past
}

// DayGroup is a calendar bucket of events sharing a start day.
type DayGroup struct {
	Day    string
	Events []Event
}

// GroupByDay buckets events by start day in ascending order. Undated events
// are collected under an empty Day at the end.
func GroupByDay(list []Event, loc *time.Location) []DayGroup {
	buckets := make(map[string][]Event)
	for _, e := range list {
		day := e.Day(loc)
		buckets[day] = append(buckets[day], e)
	}
	days := make([]string, 0, len(buckets))
	for day := range buckets {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool {
		if days[i] == "" || days[j] == "" {
			return days[j] == ""
		}
		return days[i] < days[j]
	})
	groups := make([]DayGroup, 0, len(days))
	for _, day := range days {
		groups = append(groups, DayGroup{Day: day, Events: buckets[day]})
	}
	return groups
}

// Filter applies a type filter locally. An empty filter returns the list unchanged.
func Filter(list []Event, types Types) []Event {
	if types.IsEmpty() {
		return list
	}
	out := make([]Event, 0, len(list))
	for _, e := range list {
		if types.Match(e.Type) {
			out = append(out, e)
		}
	}
	return out
}

// EventInput is the payload for creating or updating an event.
type EventInput struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=5000"`
	Date        string    `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string    `json:"time" validate:"required,datetime=15:04"`
	Location    string    `json:"location" validate:"required"`
	Capacity    int       `json:"capacity" validate:"gte=1"`
	Type        EventType `json:"type" validate:"required,eventtype"`
}

// Registration links an attendee to an event in the admin views. Event is
// only populated by the all-registrations listing.
type Registration struct {
	User         Person `json:"user"`
	Event        *Event `json:"event,omitempty"`
	RegisteredAt string `json:"registeredAt,omitempty"`
}

// DashboardStats are the aggregate counters shown on the admin dashboard.
// Counters the client does not know about are kept in Extra.
type DashboardStats struct {
	TotalEvents        int                        `json:"totalEvents"`
	TotalUsers         int                        `json:"totalUsers"`
	TotalRegistrations int                        `json:"totalRegistrations"`
	UpcomingEvents     int                        `json:"upcomingEvents"`
	Extra              map[string]json.RawMessage `json:"-"`
}

func (s *DashboardStats) UnmarshalJSON(data []byte) error {
	type plain DashboardStats
	var known plain
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, key := range []string{"totalEvents", "totalUsers", "totalRegistrations", "upcomingEvents"} {
		delete(all, key)
	}
	*s = DashboardStats(known)
	if len(all) > 0 {
		s.Extra = all
	}
	return nil
}
