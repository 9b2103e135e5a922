package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/teamtrack/internal/identity"
	"github.com/nhle/teamtrack/internal/model"
	"github.com/nhle/teamtrack/internal/project"
	"github.com/nhle/teamtrack/internal/theme"
)

func projectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects", "p"},
		Short:   "Create, list and share projects",
	}

	cmd.AddCommand(projectListCmd(a))
	cmd.AddCommand(projectCreateCmd(a))
	cmd.AddCommand(projectShowCmd(a))
	cmd.AddCommand(projectMembersCmd(a))
	cmd.AddCommand(projectShareCmd(a))
	cmd.AddCommand(projectUnshareCmd(a))

	return cmd
}

func projectListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List projects you created or that are shared with you",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(ctx context.Context, e *env, sess identity.Session) error {
				projects, err := e.projects.FetchProjectsForSession(ctx, sess)
				if err != nil {
					return err
				}
				renderProjectList(cmd.OutOrStdout(), projects)
				return nil
			})
		},
	}
}

func projectCreateCmd(a *app) *cobra.Command {
	var (
		description string
		shareWith   []string
		due         string
		attach      []string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Long: `Create a project owned by the logged-in user.

Invitees given with --share are notified by push, or by mail when they
have no account yet and mail is configured. --due defaults to today.`,
		Example: `  teamtrack project create Launch --share bob@x.com,carol@x.com --due 2024-03-01
  teamtrack project create Launch --attach brief.pdf=https://files/brief.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attachments, err := parseAttachments(attach)
			if err != nil {
				return err
			}

			return a.withSession(func(ctx context.Context, e *env, sess identity.Session) error {
				id, err := e.projects.CreateProject(ctx, sess, project.CreateInput{
					Name:        args[0],
					Description: description,
					SharedWith:  shareWith,
					DueDate:     due,
					Attachments: attachments,
				})
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%s %s\n",
					theme.SuccessStyle.Render("Created project"), id)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "project description")
	cmd.Flags().StringSliceVarP(&shareWith, "share", "s", nil, "emails to share the project with")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&attach, "attach", nil, "attachment as name=url (repeatable)")

	return cmd
}

func projectShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project and its members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(ctx context.Context, e *env, sess identity.Session) error {
				p, err := e.memberProject(ctx, sess, args[0])
				if err != nil {
					return err
				}
				members, err := e.projects.FetchProjectMembers(ctx, p.ID)
				if err != nil {
					return err
				}
				renderProject(cmd.OutOrStdout(), p, members)
				return nil
			})
		},
	}
}

func projectMembersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "members <project-id>",
		Short: "List the registered members of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(ctx context.Context, e *env, sess identity.Session) error {
				if _, err := e.memberProject(ctx, sess, args[0]); err != nil {
					return err
				}
				members, err := e.projects.FetchProjectMembers(ctx, args[0])
				if err != nil {
					return err
				}
				renderMembers(cmd.OutOrStdout(), members)
				return nil
			})
		},
	}
}

func projectShareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "share <project-id> <email>...",
		Short: "Share a project with more people",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(ctx context.Context, e *env, sess identity.Session) error {
				added, err := e.projects.ShareProject(ctx, sess, args[0], args[1:]...)
				if err != nil {
					return err
				}
				if len(added) == 0 {
					printf(cmd.OutOrStdout(), "%s\n", theme.MutedStyle.Render("Already shared with everyone listed."))
					return nil
				}
				printf(cmd.OutOrStdout(), "%s %s\n",
					theme.SuccessStyle.Render("Shared with"), joinEmails(added))
				return nil
			})
		},
	}
}

func projectUnshareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unshare <project-id> <email>",
		Short: "Stop sharing a project with someone",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(ctx context.Context, e *env, sess identity.Session) error {
				if err := e.projects.UnshareProject(ctx, sess, args[0], args[1]); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%s %s\n",
					theme.SuccessStyle.Render("Unshared"), args[1])
				return nil
			})
		},
	}
}

// parseAttachments reads name=url pairs. The type is guessed from the
// name's extension.
func parseAttachments(raw []string) ([]model.Attachment, error) {
	var out []model.Attachment
	for _, r := range raw {
		name, url, ok := strings.Cut(r, "=")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(url) == "" {
			return nil, usageError("attachment %q must be name=url", r)
		}
		name = strings.TrimSpace(name)
		out = append(out, model.Attachment{
			Name: name,
			URL:  strings.TrimSpace(url),
			Type: contentType(name),
		})
	}
	return out, nil
}

func joinEmails(emails []model.Email) string {
	parts := make([]string, len(emails))
	for i, e := range emails {
		parts[i] = string(e)
	}
	return strings.Join(parts, ", ")
}
