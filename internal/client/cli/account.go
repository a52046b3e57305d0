package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/tasktracker/internal/client/api"
	"github.com/iudanet/tasktracker/internal/client/storage"
	pkgapi "github.com/iudanet/tasktracker/pkg/api"
)

func (c *Cli) newSignupCmd() *cobra.Command {
	var name, email string
	var age int

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runSignup(cmd.Context(), name, email, age)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (prompted if empty)")
	cmd.Flags().StringVar(&email, "email", "", "email (prompted if empty)")
	cmd.Flags().IntVar(&age, "age", 0, "age")

	return cmd
}

func (c *Cli) runSignup(ctx context.Context, name, email string, age int) error {
	c.io.Println("=== Sign up ===")

	var err error
	if name == "" {
		if name, err = c.io.ReadInput("Name: "); err != nil {
			return fmt.Errorf("failed to read name: %w", err)
		}
	}
	if email == "" {
		if email, err = c.io.ReadInput("Email: "); err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := c.io.ReadPassword("Repeat password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	client := api.NewClient(c.serverURL)
	resp, err := client.Signup(ctx, pkgapi.SignupRequest{
		Name:     name,
		Email:    email,
		Password: password,
		Age:      age,
	})
	if err != nil {
		return err
	}

	if err := c.saveSession(ctx, client.BaseURL(), resp); err != nil {
		return err
	}

	c.io.Println("✓ Account created!")
	c.io.Printf("Logged in as %s <%s>\n", resp.User.Name, resp.User.Email)
	return nil
}

func (c *Cli) newLoginCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runLogin(cmd.Context(), email)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email (prompted if empty)")

	return cmd
}

func (c *Cli) runLogin(ctx context.Context, email string) error {
	c.io.Println("=== Login ===")

	var err error
	if email == "" {
		if email, err = c.io.ReadInput("Email: "); err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	client := api.NewClient(c.serverURL)
	resp, err := client.Login(ctx, pkgapi.LoginRequest{Email: email, Password: password})
	if err != nil {
		if api.IsUnauthorized(err) {
			return fmt.Errorf("invalid email or password")
		}
		return err
	}

	if err := c.saveSession(ctx, client.BaseURL(), resp); err != nil {
		return err
	}

	c.io.Println("✓ Login successful!")
	c.io.Printf("Logged in as %s <%s>\n", resp.User.Name, resp.User.Email)
	return nil
}

func (c *Cli) saveSession(ctx context.Context, serverURL string, resp *pkgapi.AuthResponse) error {
	err := c.store.SaveSession(ctx, &storage.Session{
		CreatedAt: time.Now().UTC(),
		ServerURL: serverURL,
		UserID:    resp.User.ID,
		Name:      resp.User.Name,
		Email:     resp.User.Email,
		Token:     resp.Token,
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (c *Cli) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out of the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runLogout(cmd.Context(), false)
		},
	}
}

func (c *Cli) newLogoutAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout-all",
		Short: "Log out of every session of the account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runLogout(cmd.Context(), true)
		},
	}
}

// runLogout закрывает сессию на сервере и удаляет ее локально.
// Если сервер уже не принимает токен, локальная сессия удаляется все равно.
func (c *Cli) runLogout(ctx context.Context, all bool) error {
	sess, client, err := c.session(ctx)
	if err != nil {
		return err
	}

	var resp *pkgapi.LogoutResponse
	if all {
		resp, err = client.LogoutAll(ctx, sess.Token)
	} else {
		resp, err = client.Logout(ctx, sess.Token)
	}
	if err != nil && !api.IsUnauthorized(err) {
		return err
	}

	if derr := c.store.DeleteSession(ctx); derr != nil && !errors.Is(derr, storage.ErrSessionNotFound) {
		return fmt.Errorf("failed to delete local session: %w", derr)
	}

	c.io.Println("✓ Logout successful!")
	if resp != nil && all {
		c.io.Printf("Sessions closed: %d\n", resp.Revoked)
	}
	return nil
}

func (c *Cli) newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			sess, client, err := c.session(ctx)
			if err != nil {
				return err
			}

			user, err := client.Me(ctx, sess.Token)
			if err != nil {
				return c.checkAuth(ctx, err)
			}

			c.io.Printf("ID:      %s\n", user.ID)
			c.io.Printf("Name:    %s\n", user.Name)
			c.io.Printf("Email:   %s\n", user.Email)
			c.io.Printf("Age:     %d\n", user.Age)
			c.io.Printf("Avatar:  %s\n", yesNo(user.HasAvatar))
			c.io.Printf("Server:  %s\n", client.BaseURL())
			c.io.Printf("Since:   %s\n", user.CreatedAt.Local().Format(time.RFC3339))
			return nil
		},
	}
}

func (c *Cli) newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List open sessions of the account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			sess, client, err := c.session(ctx)
			if err != nil {
				return err
			}

			sessions, err := client.Sessions(ctx, sess.Token)
			if err != nil {
				return c.checkAuth(ctx, err)
			}

			w := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "\tCREATED\tCLIENT\tID")
			for _, s := range sessions {
				marker := ""
				if s.Current {
					marker = "*"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					marker, s.CreatedAt.Local().Format(time.DateTime), s.UserAgent, s.ID)
			}
			return w.Flush()
		},
	}
}

func (c *Cli) newDeleteAccountCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Delete the account with all its tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			sess, client, err := c.session(ctx)
			if err != nil {
				return err
			}

			if !yes {
				answer, err := c.io.ReadInput(fmt.Sprintf("Delete account %s and all tasks? [y/N]: ", sess.Email))
				if err != nil {
					return fmt.Errorf("failed to read answer: %w", err)
				}
				if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
					c.io.Println("Aborted.")
					return nil
				}
			}

			if _, err := client.DeleteMe(ctx, sess.Token); err != nil {
				return c.checkAuth(ctx, err)
			}

			if err := c.store.DeleteSession(ctx); err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
				return fmt.Errorf("failed to delete local session: %w", err)
			}

			c.io.Println("✓ Account deleted.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
