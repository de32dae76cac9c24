package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Togather-Foundation/campus/internal/domain/events"
	"github.com/Togather-Foundation/campus/internal/domain/users"
)

func newProfileCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View and edit your profile and preferences",
	}

	cmd.AddCommand(
		newProfileShowCommand(a),
		newProfileUpdateCommand(a),
		newProfilePrefsCommand(a),
		newProfileEventsCommand(a),
	)
	return cmd
}

func newProfileShowCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if _, err := a.signedIn(cmd.Context()); err != nil {
				return err
			}
			id, err := a.gw.Profile(cmd.Context())
			if err != nil {
				return err
			}
			return printIdentity(cmd.OutOrStdout(), id, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "output format (table, json)")
	return cmd
}

func newProfileUpdateCommand(a *app) *cobra.Command {
	var (
		update users.ProfileUpdate
		format string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change your name or email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			sess, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			update.Name = strings.TrimSpace(update.Name)
			update.Email = strings.TrimSpace(update.Email)
			id, err := sess.UpdateProfile(cmd.Context(), update)
			if err != nil {
				return err
			}
			return printIdentity(cmd.OutOrStdout(), id, format)
		},
	}

	cmd.Flags().StringVar(&update.Name, "name", "", "new display name")
	cmd.Flags().StringVar(&update.Email, "email", "", "new email")
	cmd.Flags().StringVar(&format, "format", formatTable, "output format (table, json)")
	return cmd
}

func newProfilePrefsCommand(a *app) *cobra.Command {
	var toggle []string

	cmd := &cobra.Command{
		Use:   "prefs [types]",
		Short: "Replace or toggle your preferred event types",
		Long: `Replace your preferred event types with a comma-separated list, or flip
single types with --toggle. An empty list clears your preferences.

Examples:
  campus profile prefs academic,workshop
  campus profile prefs --toggle sports
  campus profile prefs ""`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(toggle) == 0 {
				return fmt.Errorf("give a list of event types or use --toggle")
			}
			sess, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}

			var prefs events.Types
			if len(args) == 1 {
				if prefs, err = events.ParseTypes(args[0]); err != nil {
					return err
				}
			} else {
				current, _ := sess.Identity()
				prefs = current.Preferences
			}
			for _, raw := range toggle {
				t, err := events.ParseEventType(raw)
				if err != nil {
					return err
				}
				prefs = prefs.Toggle(t)
			}

			id, err := sess.UpdatePreferences(cmd.Context(), prefs)
			if err != nil {
				return err
			}
			if id.Preferences.IsEmpty() {
				fmt.Fprintln(cmd.OutOrStdout(), "Preferences cleared.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Preferences: %s\n", strings.Join(id.Preferences.Strings(), ", "))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&toggle, "toggle", nil, "event type to add or remove (repeatable)")
	return cmd
}

func newProfileEventsCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show your upcoming and past events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if _, err := a.signedIn(cmd.Context()); err != nil {
				return err
			}
			list, err := a.gw.UserEvents(cmd.Context())
			if err != nil {
				return err
			}
			upcoming, past := events.Partition(list, a.now())

			out := cmd.OutOrStdout()
			if format == formatJSON {
				return printJSON(out, map[string][]events.Event{
					"upcoming": nonNil(upcoming),
					"past":     nonNil(past),
				})
			}
			fmt.Fprintln(out, "Upcoming")
			if err := printEvents(out, upcoming, format); err != nil {
				return err
			}
			fmt.Fprintln(out, "\nPast")
			return printEvents(out, past, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "output format (table, json)")
	return cmd
}

func nonNil(list []events.Event) []events.Event {
	if list == nil {
		return []events.Event{}
	}
	return list
}
