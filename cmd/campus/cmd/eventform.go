package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
	"github.com/markusmobius/go-dateparser/date"
	"github.com/spf13/cobra"

	"github.com/Togather-Foundation/campus/internal/domain/events"
)

// eventForm binds the create/update flags shared by the events and admin
// commands.
type eventForm struct {
	title       string
	description string
	date        string
	clock       string
	location    string
	capacity    int
	eventType   string
}

func (f *eventForm) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.title, "title", "", "event title")
	flags.StringVar(&f.description, "description", "", "event description")
	flags.StringVar(&f.date, "date", "", `start date, e.g. "2026-11-05", "next friday 6pm" or "in 3 days"`)
	flags.StringVar(&f.clock, "time", "", "start time (HH:MM), overrides a time given in --date")
	flags.StringVar(&f.location, "location", "", "where the event takes place")
	flags.IntVar(&f.capacity, "capacity", 0, "maximum number of attendees")
	flags.StringVar(&f.eventType, "type", "", "event type (Academic, Social, Sports, Cultural, Workshop, Conference)")
}

// input builds a complete payload for create.
func (f *eventForm) input(now time.Time) (events.EventInput, error) {
	return f.apply(events.EventInput{}, nil, now)
}

// apply overlays the flags the user actually set onto base. A nil changed
// func treats every flag as set.
func (f *eventForm) apply(base events.EventInput, changed func(string) bool, now time.Time) (events.EventInput, error) {
	set := func(name string) bool { return changed == nil || changed(name) }
	in := base

	if set("title") {
		in.Title = strings.TrimSpace(f.title)
	}
	if set("description") {
		in.Description = strings.TrimSpace(f.description)
	}
	if set("location") {
		in.Location = strings.TrimSpace(f.location)
	}
	if set("capacity") {
		in.Capacity = f.capacity
	}
	if set("type") {
		t, err := events.ParseEventType(f.eventType)
		if err != nil {
			return events.EventInput{}, err
		}
		in.Type = t
	}
	if set("date") {
		day, clock, err := parseWhen(f.date, now)
		if err != nil {
			return events.EventInput{}, err
		}
		in.Date = day
		if clock != "" {
			in.Time = clock
		}
	}
	if set("time") && f.clock != "" {
		clock, err := time.Parse(events.TimeLayout, strings.TrimSpace(f.clock))
		if err != nil {
			return events.EventInput{}, fmt.Errorf("invalid --time %q (want HH:MM)", f.clock)
		}
		in.Time = clock.Format(events.TimeLayout)
	}
	return in, nil
}

// parseWhen resolves an absolute or relative date. clock is empty when the
// input named a day but no time of day.
func parseWhen(value string, now time.Time) (day, clock string, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", "", nil
	}
	if t, err := time.ParseInLocation(events.DateLayout, value, now.Location()); err == nil {
		return t.Format(events.DateLayout), "", nil
	}

	cfg := &dateparser.Configuration{
		CurrentTime:         now,
		PreferredDateSource: dateparser.Future,
		ReturnTimeAsPeriod:  true,
	}
	dt, err := dateparser.Parse(cfg, value)
	if err != nil || dt.Time.IsZero() {
		return "", "", fmt.Errorf("could not understand date %q", value)
	}
	day = dt.Time.Format(events.DateLayout)
	switch dt.Period {
	case date.Hour, date.Minute, date.Second:
		clock = dt.Time.Format(events.TimeLayout)
	}
	return day, clock, nil
}
