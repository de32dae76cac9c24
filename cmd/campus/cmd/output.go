package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Togather-Foundation/campus/internal/domain/events"
	"github.com/Togather-Foundation/campus/internal/domain/users"
	"github.com/Togather-Foundation/campus/internal/gateway"
	"github.com/Togather-Foundation/campus/internal/sanitize"
	"github.com/Togather-Foundation/campus/internal/session"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

// errorMessage is what the user sees for a failed command. Server-supplied
// text is reduced to a single printable line.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return "not signed in, run `campus login` first"
	case errors.Is(err, session.ErrNotAdmin):
		return "this command requires an admin account"
	case gateway.KindOf(err) != "":
		return sanitize.Line(gateway.Message(err))
	}
	return err.Error()
}

func checkFormat(format string) error {
	if format != formatTable && format != formatJSON {
		return fmt.Errorf("invalid format %q (must be table or json)", format)
	}
	return nil
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format JSON: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// nextStep suggests the command matching a post-auth destination.
func nextStep(route session.Route) string {
	switch route {
	case session.RouteEvents:
		return "campus events list"
	case session.RouteProfile:
		return "campus profile show"
	case session.RouteAdminDashboard:
		return "campus admin dashboard"
	case session.RouteLogin:
		return "campus login"
	}
	return ""
}

func seats(e events.Event) string {
	if e.Capacity <= 0 {
		return "-"
	}
	if e.IsFull() {
		return "full"
	}
	return fmt.Sprintf("%d/%d", e.SeatsAvailable(), e.Capacity)
}

func printEvents(out io.Writer, list []events.Event, format string) error {
	if format == formatJSON {
		if list == nil {
			list = []events.Event{}
		}
		return printJSON(out, list)
	}
	if len(list) == 0 {
		_, err := fmt.Fprintln(out, "No events found.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTIME\tTYPE\tTITLE\tLOCATION\tSEATS")
	for _, e := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID,
			sanitize.Line(e.Date),
			sanitize.Line(e.Time),
			e.Type,
			truncate(sanitize.Line(e.Title), 40),
			truncate(sanitize.Line(e.Location), 30),
			seats(e),
		)
	}
	return w.Flush()
}

func printEventDetail(out io.Writer, e events.Event, format string) error {
	if format == formatJSON {
		return printJSON(out, e)
	}
	fmt.Fprintf(out, "%s\n", sanitize.Line(e.Title))
	fmt.Fprintf(out, "   ID:          %s\n", e.ID)
	fmt.Fprintf(out, "   Type:        %s\n", e.Type)
	fmt.Fprintf(out, "   Date:        %s %s\n", sanitize.Line(e.Date), sanitize.Line(e.Time))
	if e.Location != "" {
		fmt.Fprintf(out, "   Location:    %s\n", sanitize.Line(e.Location))
	}
	fmt.Fprintf(out, "   Seats:       %s (%d registered)\n", seats(e), e.Registered())
	if e.Creator != nil && e.Creator.Name != "" {
		fmt.Fprintf(out, "   Organizer:   %s\n", sanitize.Line(e.Creator.Name))
	}
	if desc := sanitize.Display(e.Description); desc != "" {
		fmt.Fprintf(out, "\n%s\n", desc)
	}
	return nil
}

func printCalendar(out io.Writer, list []events.Event, loc *time.Location) error {
	groups := events.GroupByDay(list, loc)
	if len(groups) == 0 {
		_, err := fmt.Fprintln(out, "No events found.")
		return err
	}
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(out)
		}
		day := g.Day
		if day == "" {
			day = "Undated"
		} else if t, err := time.ParseInLocation(events.DateLayout, day, loc); err == nil {
			day = t.Format("Monday, January 2 2006")
		}
		fmt.Fprintln(out, day)
		for _, e := range g.Events {
			fmt.Fprintf(out, "  %-5s  %s (%s)\n", sanitize.Line(e.Time), sanitize.Line(e.Title), e.Type)
		}
	}
	return nil
}

func printIdentity(out io.Writer, id users.Identity, format string) error {
	if format == formatJSON {
		return printJSON(out, id)
	}
	prefs := "none"
	if !id.Preferences.IsEmpty() {
		prefs = strings.Join(id.Preferences.Strings(), ", ")
	}
	fmt.Fprintf(out, "Name:        %s\n", sanitize.Line(id.Name))
	fmt.Fprintf(out, "Email:       %s\n", sanitize.Line(id.Email))
	fmt.Fprintf(out, "Role:        %s\n", id.Role)
	fmt.Fprintf(out, "Preferences: %s\n", prefs)
	return nil
}

func printRegistrations(out io.Writer, list []events.Registration, format string) error {
	if format == formatJSON {
		if list == nil {
			list = []events.Registration{}
		}
		return printJSON(out, list)
	}
	if len(list) == 0 {
		_, err := fmt.Fprintln(out, "No registrations found.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USER ID\tNAME\tEMAIL\tEVENT\tREGISTERED")
	for _, r := range list {
		event := "-"
		if r.Event != nil {
			event = truncate(sanitize.Line(r.Event.Title), 40)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.User.ID,
			sanitize.Line(r.User.Name),
			sanitize.Line(r.User.Email),
			event,
			sanitize.Line(r.RegisteredAt),
		)
	}
	return w.Flush()
}

func printStats(out io.Writer, stats events.DashboardStats, format string) error {
	if format == formatJSON {
		return printJSON(out, stats)
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Total events:\t%d\n", stats.TotalEvents)
	fmt.Fprintf(w, "Upcoming events:\t%d\n", stats.UpcomingEvents)
	fmt.Fprintf(w, "Total users:\t%d\n", stats.TotalUsers)
	fmt.Fprintf(w, "Total registrations:\t%d\n", stats.TotalRegistrations)

	keys := make([]string, 0, len(stats.Extra))
	for k := range stats.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s:\t%s\n", k, sanitize.Line(string(stats.Extra[k])))
	}
	return w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
