package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Togather-Foundation/campus/internal/domain/events"
	"github.com/Togather-Foundation/campus/internal/domain/ids"
	"github.com/Togather-Foundation/campus/internal/sanitize"
)

func newEventsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Browse and register for campus events",
		Long: `Browse, search and register for campus events.

Examples:
  # List every event
  campus events list

  # Only academic and social events
  campus events list --types academic,social

  # Events matching your saved preferences
  campus events list --preferred

  # Register for an event
  campus events rsvp 01J9Z8Q6W3X4Y5Z6A7B8C9D0EF`,
	}

	cmd.AddCommand(
		newEventsListCommand(a),
		newEventsSearchCommand(a),
		newEventsShowCommand(a),
		newEventsRegisteredCommand(a),
		newEventsRSVPCommand(a),
		newEventsCancelCommand(a),
		newEventsCalendarCommand(a),
		newEventsCreateCommand(a),
		newEventsDeleteCommand(a),
	)
	return cmd
}

// typeFilter resolves --types and --preferred into the filter sent to the
// server. An empty result means no filter.
func (a *app) typeFilter(cmd *cobra.Command, raw string, preferred bool) (events.Types, error) {
	types, err := events.ParseTypes(raw)
	if err != nil {
		return nil, err
	}
	if !preferred {
		return types, nil
	}
	sess, err := a.signedIn(cmd.Context())
	if err != nil {
		return nil, err
	}
	id, _ := sess.Identity()
	return events.NewTypes(append(types, id.Preferences...)...), nil
}

func newEventsListCommand(a *app) *cobra.Command {
	var (
		types     string
		preferred bool
		format    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events, optionally filtered by type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			filter, err := a.typeFilter(cmd, types, preferred)
			if err != nil {
				return err
			}
			if _, err := a.session(cmd.Context()); err != nil {
				return err
			}
			list, err := a.gw.ListEvents(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printEvents(cmd.OutOrStdout(), list, format)
		},
	}

	cmd.Flags().StringVar(&types, "types", "", "comma-separated event types to include (default: all)")
	cmd.Flags().BoolVar(&preferred, "preferred", false, "include the event types from your preferences")
	cmd.Flags().StringVar(&format, "format", formatTable, "output format (table, json)")
	return cmd
}

func newEventsSearchCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search events by keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if _, err := a.session(cmd.Context()); err != nil {
				return err
			}
			list, err := a.gw.SearchEvents(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printEvents(cmd.OutOrStdout(), list, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "output format (table, json)")
	return cmd
}

func newEventsShowCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			e, err := a.gw.GetEvent(cmd.Context(), ids.ID(args[0]))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := printEventDetail(out, e, format); err != nil {
				return err
			}
			if id, ok := sess.Identity(); ok && format == formatTable && e.HasAttendee(id.ID) {
				fmt.Fprintln(out, "\nYou are registered for this event.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "output format (table, json)")
	return cmd
}

func newEventsRegisteredCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "registered",
		Short: "List the events you are registered for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if _, err := a.signedIn(cmd.Context()); err != nil {
				return err
			}
			list, err := a.gw.RegisteredEvents(cmd.Context())
			if err != nil {
				return err
			}
			return printEvents(cmd.OutOrStdout(), list, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "output format (table, json)")
	return cmd
}

func newEventsRSVPCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rsvp <id>",
		Aliases: []string{"join"},
		Short:   "Register for an event",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.signedIn(cmd.Context()); err != nil {
				return err
			}
			if err := a.gw.RegisterForEvent(cmd.Context(), ids.ID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered for event %s.\n", args[0])
			return nil
		},
	}
}

func newEventsCancelCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel your registration for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.signedIn(cmd.Context()); err != nil {
				return err
			}
			if err := a.gw.CancelRegistration(cmd.Context(), ids.ID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registration for event %s cancelled.\n", args[0])
			return nil
		},
	}
}

func newEventsCalendarCommand(a *app) *cobra.Command {
	var (
		types     string
		preferred bool
		all       bool
	)

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show events grouped by day",
		Long: `Show events grouped by calendar day in local time. Past events are hidden
unless --all is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := a.typeFilter(cmd, types, preferred)
			if err != nil {
				return err
			}
			if _, err := a.session(cmd.Context()); err != nil {
				return err
			}
			list, err := a.gw.ListEvents(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if !all {
				list, _ = events.Partition(list, a.now())
			}
			return printCalendar(cmd.OutOrStdout(), list, time.Local)
		},
	}

	cmd.Flags().StringVar(&types, "types", "", "comma-separated event types to include (default: all)")
	cmd.Flags().BoolVar(&preferred, "preferred", false, "include the event types from your preferences")
	cmd.Flags().BoolVar(&all, "all", false, "include past events")
	return cmd
}

func newEventsCreateCommand(a *app) *cobra.Command {
	var (
		form   eventForm
		format string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event (admin)",
		Long: `Create an event. Requires an admin account.

Examples:
  campus events create --title "Intro to Go" --date "next tuesday 18:00" \
    --location "Room 101" --capacity 40 --type workshop`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			input, err := form.input(a.now())
			if err != nil {
				return err
			}
			if _, err := a.admin(cmd.Context()); err != nil {
				return err
			}
			e, err := a.gw.CreateEvent(cmd.Context(), input)
			if err != nil {
				return err
			}
			return printCreated(cmd, e, format)
		},
	}

	form.bind(cmd)
	cmd.Flags().StringVar(&format, "format", formatTable, "output format (table, json)")
	return cmd
}

func newEventsDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an event (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.admin(cmd.Context()); err != nil {
				return err
			}
			if err := a.gw.DeleteEvent(cmd.Context(), ids.ID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Event %s deleted.\n", args[0])
			return nil
		},
	}
}

func printCreated(cmd *cobra.Command, e events.Event, format string) error {
	if format == formatJSON {
		return printJSON(cmd.OutOrStdout(), e)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created event %s: %s\n", e.ID, sanitize.Line(e.Title))
	return nil
}
