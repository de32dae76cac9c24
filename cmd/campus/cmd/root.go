package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newRootCommand assembles the full command tree. A fresh tree is built per
// invocation so tests never share flag state.
func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "campus",
		Short: "Campus events client - browse, register for and manage campus events",
		Long: `campus is a command-line client for the campus events service.

It supports:
- Signing in, registering and restoring a saved session
- Browsing, searching and filtering events by type
- Registering for events and managing your registrations
- Profile and event-type preferences
- Event administration and the admin dashboard (admin accounts)
- A local development server with in-memory data`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close(cmd)
		},
	}

	// Global flags available to all subcommands
	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file path (optional, uses env vars by default)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error) (default: warn)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format (json, console) (default: console)")
	flags.StringVar(&a.apiURL, "api-url", "", "events API base URL (default: http://localhost:5000/api)")
	flags.StringVar(&a.backend, "credential-backend", "", "where the session credential is kept (file, sqlite, redis, memory)")
	flags.BoolVar(&a.printMetrics, "print-metrics", false, "print client metrics in Prometheus text format on exit")

	root.AddCommand(
		newLoginCommand(a),
		newRegisterCommand(a),
		newLogoutCommand(a),
		newWhoamiCommand(a),
		newEventsCommand(a),
		newProfileCommand(a),
		newAdminCommand(a),
		newStubCommand(a),
		newVersionCommand(),
	)
	closeOnError(root, a)
	return root
}

// closeOnError releases the app's resources when a command fails. Cobra
// skips post-run hooks after a RunE error.
func closeOnError(cmd *cobra.Command, a *app) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(c *cobra.Command, args []string) error {
			err := run(c, args)
			if err == nil {
				return nil
			}
			if closeErr := a.close(c); closeErr != nil {
				return errors.Join(err, closeErr)
			}
			return err
		}
	}
	for _, sub := range cmd.Commands() {
		closeOnError(sub, a)
	}
}

// Execute runs the CLI. This is called by main.main().
func Execute() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
		os.Exit(1)
	}
}
