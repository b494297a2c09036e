package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bookstore/internal/guard"
	"bookstore/internal/oauth"
	"bookstore/internal/session"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "signs in with username and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			username = strings.TrimSpace(username)
			if username == "" || password == "" {
				return errors.New("username and password are required")
			}

			m, _, err := opts.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.Login(cmd.Context(), username, password); err != nil {
				return err
			}
			if err := m.WaitProfile(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(opts.out, "Signed in as %s\n", displayName(m.State()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (or BOOKSTORE_PASSWORD)")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "forgets the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := opts.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			m.Logout(cmd.Context())
			fmt.Fprintln(opts.out, "Signed out")
			return nil
		},
	}
}

type statusOutput struct {
	Authenticated bool           `json:"authenticated"`
	Name          string         `json:"name,omitempty"`
	Roles         []string       `json:"roles"`
	Profile       map[string]any `json:"profile,omitempty"`
	ExpiresAt     *time.Time     `json:"expiresAt,omitempty"`
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "shows who is signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := opts.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.WaitProfile(cmd.Context()); err != nil {
				return err
			}
			state := m.State()

			out := statusOutput{
				Authenticated: state.Authenticated,
				Name:          displayName(state),
				Roles:         state.Roles,
				Profile:       state.Profile,
			}
			if out.Roles == nil {
				out.Roles = []string{}
			}
			if !state.ExpiresAt.IsZero() {
				expires := state.ExpiresAt.UTC()
				out.ExpiresAt = &expires
			}

			if asJSON {
				enc := json.NewEncoder(opts.out)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			fmt.Fprintf(opts.out, "authenticated: %t\n", out.Authenticated)
			if state.Token == "" {
				return nil
			}
			fmt.Fprintf(opts.out, "name: %s\n", out.Name)
			fmt.Fprintf(opts.out, "roles: %s\n", strings.Join(out.Roles, ", "))
			if out.ExpiresAt != nil {
				fmt.Fprintf(opts.out, "expires: %s\n", out.ExpiresAt.Format(time.RFC3339))
			} else {
				fmt.Fprintln(opts.out, "expires: never")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the status as JSON")
	return cmd
}

func newOAuthCompleteCmd(opts *rootOptions) *cobra.Command {
	var landing string

	cmd := &cobra.Command{
		Use:   "oauth-complete FRAGMENT",
		Short: "stores the token from a Google sign-in redirect fragment",
		Long: `Paste the fragment of the address the browser landed on after Google
sign-in, for example '#token=eyJ...'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := opts.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			nav := guard.NavigatorFunc(func(path string) {
				fmt.Fprintf(opts.out, "navigate %s\n", path)
			})
			completer := oauth.NewCompleter(m.Store(), m.Reload, oauth.WithLandingPath(landing))
			if err := completer.Complete(cmd.Context(), args[0], nav); err != nil {
				return err
			}
			if m.Token() == "" {
				return errors.New("sign-in did not return a token")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&landing, "landing", oauth.DefaultLandingPath, "path reported after a successful sign-in")
	return cmd
}

func displayName(state session.State) string {
	if state.Profile != nil {
		if name := state.Profile.DisplayName(); name != "" {
			return name
		}
	}
	if name := state.Claims.Name(); name != "" {
		return name
	}
	return "unknown user"
}
