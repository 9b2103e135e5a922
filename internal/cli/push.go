package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nhle/teamtrack/internal/identity"
	"github.com/nhle/teamtrack/internal/theme"
)

func pushCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Manage push notification delivery",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "register <device-token>",
		Short: "Register this device's push token for your account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(ctx context.Context, e *env, sess identity.Session) error {
				if err := e.dispatcher.RegisterToken(ctx, sess.UserID, args[0]); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%s\n", theme.SuccessStyle.Render("Push token registered"))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "dead-letters",
		Short: "List share notifications that could not be delivered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(ctx context.Context, e *env, _ identity.Session) error {
				letters, err := e.dispatcher.DeadLetters(ctx)
				if err != nil {
					return err
				}
				renderDeadLetters(cmd.OutOrStdout(), letters)
				return nil
			})
		},
	})

	return cmd
}
