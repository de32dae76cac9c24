package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Togather-Foundation/campus/internal/domain/events"
	"github.com/Togather-Foundation/campus/internal/domain/ids"
)

func newAdminCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage events and registrations (admin accounts)",
		Long: `Administration commands. Every subcommand restores the saved session and
refuses to run unless the signed-in account is an admin.

Examples:
  campus admin dashboard
  campus admin registrations 01J9Z8Q6W3X4Y5Z6A7B8C9D0EF
  campus admin update 01J9Z8Q6W3X4Y5Z6A7B8C9D0EF --capacity 80`,
	}

	cmd.AddCommand(
		newAdminEventsCommand(a),
		newAdminRegistrationsCommand(a),
		newAdminCancelCommand(a),
		newAdminCreateCommand(a),
		newAdminUpdateCommand(a),
		newAdminDeleteCommand(a),
		newAdminDashboardCommand(a),
	)
	return cmd
}

func newAdminEventsCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List all events with their registrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if _, err := a.admin(cmd.Context()); err != nil {
				return err
			}
			list, err := a.gw.AdminEvents(cmd.Context())
			if err != nil {
				return err
			}
			return printEvents(cmd.OutOrStdout(), list, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "output format (table, json)")
	return cmd
}

func newAdminRegistrationsCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "registrations [event-id]",
		Short: "List registrations for one event, or for all events",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if _, err := a.admin(cmd.Context()); err != nil {
				return err
			}
			var (
				list []events.Registration
				err  error
			)
			if len(args) == 1 {
				list, err = a.gw.EventRegistrations(cmd.Context(), ids.ID(args[0]))
			} else {
				list, err = a.gw.AllRegistrations(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printRegistrations(cmd.OutOrStdout(), list, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "output format (table, json)")
	return cmd
}

func newAdminCancelCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <event-id> <user-id>",
		Short: "Cancel a user's registration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.admin(cmd.Context()); err != nil {
				return err
			}
			if err := a.gw.AdminCancelRegistration(cmd.Context(), ids.ID(args[0]), ids.ID(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registration of user %s for event %s cancelled.\n", args[1], args[0])
			return nil
		},
	}
}

func newAdminCreateCommand(a *app) *cobra.Command {
	var (
		form   eventForm
		format string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if _, err := a.admin(cmd.Context()); err != nil {
				return err
			}
			input, err := form.input(a.now())
			if err != nil {
				return err
			}
			e, err := a.gw.AdminCreateEvent(cmd.Context(), input)
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

func newAdminUpdateCommand(a *app) *cobra.Command {
	var (
		form   eventForm
		format string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an event; only the flags given are changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if _, err := a.admin(cmd.Context()); err != nil {
				return err
			}
			id := ids.ID(args[0])
			current, err := a.gw.GetEvent(cmd.Context(), id)
			if err != nil {
				return err
			}
			input, err := form.apply(inputOf(current), cmd.Flags().Changed, a.now())
			if err != nil {
				return err
			}
			e, err := a.gw.AdminUpdateEvent(cmd.Context(), id, input)
			if err != nil {
				return err
			}
			return printEventDetail(cmd.OutOrStdout(), e, format)
		},
	}

	form.bind(cmd)
	cmd.Flags().StringVar(&format, "format", formatTable, "output format (table, json)")
	return cmd
}

func newAdminDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.admin(cmd.Context()); err != nil {
				return err
			}
			if err := a.gw.AdminDeleteEvent(cmd.Context(), ids.ID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Event %s deleted.\n", args[0])
			return nil
		},
	}
}

func newAdminDashboardCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show event and registration totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if _, err := a.admin(cmd.Context()); err != nil {
				return err
			}
			stats, err := a.gw.DashboardStats(cmd.Context())
			if err != nil {
				return err
			}
			return printStats(cmd.OutOrStdout(), stats, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "output format (table, json)")
	return cmd
}

// inputOf turns a fetched event back into an update payload. Dates sent as
// full timestamps are cut down to the calendar day.
func inputOf(e events.Event) events.EventInput {
	date := e.Date
	if len(date) > len(events.DateLayout) {
		date = date[:len(events.DateLayout)]
	}
	return events.EventInput{
		Title:       e.Title,
		Description: e.Description,
		Date:        date,
		Time:        e.Time,
		Location:    e.Location,
		Capacity:    e.Capacity,
		Type:        e.Type,
	}
}
