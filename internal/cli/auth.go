package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/teamtrack/internal/identity"
	"github.com/nhle/teamtrack/internal/model"
	"github.com/nhle/teamtrack/internal/theme"
)

func signupCmd(a *app) *cobra.Command {
	var email, password, first, last string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Long: `Create an account and log in.

Missing flags are prompted for interactively.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" || first == "" {
				fields := []huh.Field{}
				if email == "" {
					fields = append(fields, emailInput(&email))
				}
				if password == "" {
					fields = append(fields, passwordInput(&password))
				}
				if first == "" {
					fields = append(fields,
						huh.NewInput().Title("First name").Value(&first).Validate(required("first name")),
						huh.NewInput().Title("Last name").Value(&last),
					)
				}
				if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
					return err
				}
			}

			e, err := a.open()
			if err != nil {
				return err
			}
			defer e.Close()

			sess, err := e.auth.SignUp(context.Background(), email, password, first, last)
			if err != nil {
				return err
			}
			if err := a.saveSession(e, sess); err != nil {
				return err
			}

			printf(cmd.OutOrStdout(), "%s %s\n",
				theme.SuccessStyle.Render("Signed up as"), describeSession(sess))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (at least 6 characters)")
	cmd.Flags().StringVar(&first, "first-name", "", "first name")
	cmd.Flags().StringVar(&last, "last-name", "", "last name")

	return cmd
}

func loginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to an existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				fields := []huh.Field{}
				if email == "" {
					fields = append(fields, emailInput(&email))
				}
				if password == "" {
					fields = append(fields, passwordInput(&password))
				}
				if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
					return err
				}
			}

			e, err := a.open()
			if err != nil {
				return err
			}
			defer e.Close()

			sess, err := e.auth.SignIn(context.Background(), email, password)
			if err != nil {
				return err
			}
			if err := a.saveSession(e, sess); err != nil {
				return err
			}

			printf(cmd.OutOrStdout(), "%s %s\n",
				theme.SuccessStyle.Render("Logged in as"), describeSession(sess))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")

	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.openVault()
			if err != nil {
				return err
			}
			if err := v.Clear(); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", theme.SuccessStyle.Render("Logged out"))
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(_ context.Context, _ *env, sess identity.Session) error {
				printf(cmd.OutOrStdout(), "%s\n", describeSession(sess))
				return nil
			})
		},
	}
}

func describeSession(sess identity.Session) string {
	if sess.DisplayName == "" {
		return fmt.Sprintf("%s %s", sess.Email, theme.MutedStyle.Render(string(sess.UserID)))
	}
	return fmt.Sprintf("%s <%s> %s", sess.DisplayName, sess.Email, theme.MutedStyle.Render(string(sess.UserID)))
}

func emailInput(value *string) *huh.Input {
	return huh.NewInput().
		Title("Email").
		Value(value).
		Validate(func(s string) error {
			_, err := model.ParseEmail(s)
			return err
		})
}

func passwordInput(value *string) *huh.Input {
	return huh.NewInput().
		Title("Password").
		EchoMode(huh.EchoModePassword).
		Value(value).
		Validate(required("password"))
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(name + " is required")
		}
		return nil
	}
}
