package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Togather-Foundation/campus/internal/stubserver"
)

func newStubCommand(a *app) *cobra.Command {
	var (
		host string
		port int
		seed bool
	)

	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Run a local events API with in-memory data",
		Long: `Run a development events API on the configured host and port. All data is
kept in memory and lost on exit. Set STUB_ADMIN_EMAIL and STUB_ADMIN_PASSWORD
to create an admin account at startup.

Examples:
  campus stub --seed
  STUB_ADMIN_EMAIL=admin@campus.edu STUB_ADMIN_PASSWORD=secret campus stub --port 5050`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Stub
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			server, err := stubserver.New(stubserver.Config{
				JWTSecret:     cfg.JWTSecret,
				JWTExpiry:     cfg.JWTExpiry,
				AdminEmail:    cfg.AdminEmail,
				AdminPassword: cfg.AdminPassword,
				SeedEvents:    seed,
			}, a.logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
			fmt.Fprintf(cmd.OutOrStdout(), "Serving events API on http://%s/api (Ctrl+C to stop)\n", addr)
			return server.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (default: STUB_HOST or 127.0.0.1)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default: STUB_PORT or 5000)")
	cmd.Flags().BoolVar(&seed, "seed", false, "start with sample events")
	return cmd
}

