package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Togather-Foundation/campus/internal/auth"
	"github.com/Togather-Foundation/campus/internal/domain/events"
	"github.com/Togather-Foundation/campus/internal/domain/users"
	"github.com/Togather-Foundation/campus/internal/sanitize"
)

func newLoginCommand(a *app) *cobra.Command {
	var email, password string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		Long: `Sign in with email and password. The session credential is saved to the
configured credential backend and reused by later commands.

Examples:
  campus login --email alice@campus.edu --password secret
  echo "$PASSWORD" | campus login --email alice@campus.edu --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if passwordStdin {
				pw, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = pw
			}
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			id, err := sess.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			return signedInMessage(cmd, a, id)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func newRegisterCommand(a *app) *cobra.Command {
	var (
		reg   users.Registration
		role  string
		prefs string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Long: `Create a new account. Regular users may pick the event types they are
interested in; admin accounts are created without preferences.

Examples:
  campus register --name Alice --email alice@campus.edu --password secret --prefs academic,workshop
  campus register --name Ops --email ops@campus.edu --password secret --role admin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			types, err := events.ParseTypes(prefs)
			if err != nil {
				return err
			}
			reg.Role = users.Role(strings.ToLower(strings.TrimSpace(role)))
			reg.Preferences = types

			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			id, err := sess.Register(cmd.Context(), reg)
			if err != nil {
				return err
			}
			return signedInMessage(cmd, a, id)
		},
	}

	cmd.Flags().StringVar(&reg.Name, "name", "", "display name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "account email")
	cmd.Flags().StringVar(&reg.Password, "password", "", "password (at least 6 characters)")
	cmd.Flags().StringVar(&role, "role", string(users.RoleUser), "account role (user, admin)")
	cmd.Flags().StringVar(&prefs, "prefs", "", "comma-separated preferred event types")
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := sess.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			sess, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			id, _ := sess.Identity()
			out := cmd.OutOrStdout()
			if err := printIdentity(out, id, format); err != nil {
				return err
			}
			if format == formatTable {
				if exp, ok := auth.ExpiresAt(sess.Token()); ok {
					fmt.Fprintf(out, "Session:     expires %s (in %s)\n",
						exp.Local().Format(time.RFC1123), exp.Sub(a.now()).Round(time.Minute))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "output format (table, json)")
	return cmd
}

func signedInMessage(cmd *cobra.Command, a *app, id users.Identity) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Signed in as %s (%s).\n", sanitize.Line(id.Name), id.Role)
	if next := nextStep(a.route); next != "" {
		fmt.Fprintf(out, "Next: %s\n", next)
	}
	return nil
}

func readPassword(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
