package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/teamtrack/internal/activity"
	"github.com/nhle/teamtrack/internal/files"
	"github.com/nhle/teamtrack/internal/identity"
	"github.com/nhle/teamtrack/internal/model"
	"github.com/nhle/teamtrack/internal/theme"
)

func activityCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "activity",
		Aliases: []string{"feed"},
		Short:   "Post to and read the activity feed",
	}

	cmd.AddCommand(activityAddCmd(a))
	cmd.AddCommand(activityListCmd(a))

	return cmd
}

func activityAddCmd(a *app) *cobra.Command {
	var (
		taskID   string
		typ      string
		fileURL  string
		fileName string
		upload   string
	)

	cmd := &cobra.Command{
		Use:   "add <project-id> [content]...",
		Short: "Post an entry to a project's activity feed",
		Long: `Post an entry to a project's activity feed.

Message entries need content. Image, document and file entries need
--url and take the file name from --name. --file uploads a local file
first and records it; the type is picked from its content unless --type
is given.`,
		Example: `  teamtrack activity add <project-id> shipped the beta
  teamtrack activity add <project-id> --type document --url https://files/brief.pdf --name brief.pdf
  teamtrack activity add <project-id> --file ./mockup.png new mockup`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(ctx context.Context, e *env, sess identity.Session) error {
				if _, err := e.memberProject(ctx, sess, args[0]); err != nil {
					return err
				}
				entryType := model.ActivityType(strings.ToLower(typ))
				var uploaded *model.File
				if upload != "" {
					f, err := e.uploadFile(ctx, sess, args[0], upload)
					if err != nil {
						return err
					}
					uploaded = &f
					fileURL = e.files.URL(f)
					if fileName == "" {
						fileName = f.Name
					}
					if !cmd.Flags().Changed("type") {
						entryType = files.ActivityType(f.ContentType)
					}
				}
				id, err := e.activities.AddActivity(ctx, args[0], taskID, activity.Input{
					Type:     entryType,
					Content:  strings.Join(args[1:], " "),
					FileURL:  fileURL,
					FileName: fileName,
					UserID:   sess.UserID,
				})
				if err != nil {
					if uploaded != nil {
						e.files.Delete(ctx, sess, uploaded.ID)
					}
					return err
				}
				printf(cmd.OutOrStdout(), "%s %s\n", theme.SuccessStyle.Render("Posted"), id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&taskID, "task", "", "task the entry is about")
	cmd.Flags().StringVar(&typ, "type", string(model.ActivityMessage), "message, image, document or file")
	cmd.Flags().StringVar(&fileURL, "url", "", "file URL for non-message entries")
	cmd.Flags().StringVar(&fileName, "name", "", "file name for non-message entries")
	cmd.Flags().StringVar(&upload, "file", "", "local file to upload and attach")
	cmd.MarkFlagsMutuallyExclusive("file", "url")

	return cmd
}

func activityListCmd(a *app) *cobra.Command {
	var (
		projectID string
		taskID    string
		max       int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show recent activity for a project, a task or yourself",
		Long: `Show recent activity, newest first.

With neither --project nor --task, your own entries are listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID != "" && taskID != "" {
				return usageError("use only one of --project and --task")
			}

			return a.withSession(func(ctx context.Context, e *env, sess identity.Session) error {
				scope := activity.UserScope(sess.UserID)
				switch {
				case projectID != "":
					if _, err := e.memberProject(ctx, sess, projectID); err != nil {
						return err
					}
					scope = activity.ProjectScope(projectID)
				case taskID != "":
					if _, err := e.memberTask(ctx, sess, taskID); err != nil {
						return err
					}
					scope = activity.TaskScope(taskID)
				}

				activities, err := e.activities.FetchRecentActivities(ctx, scope, max)
				if err != nil {
					return err
				}
				renderActivities(cmd.OutOrStdout(), activities)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "project to show")
	cmd.Flags().StringVar(&taskID, "task", "", "task to show")
	cmd.Flags().IntVarP(&max, "max", "n", activity.DefaultMax, "maximum number of entries")

	return cmd
}
