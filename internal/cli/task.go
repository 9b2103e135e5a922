package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/teamtrack/internal/identity"
	"github.com/nhle/teamtrack/internal/model"
	"github.com/nhle/teamtrack/internal/task"
	"github.com/nhle/teamtrack/internal/theme"
)

func taskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks", "t"},
		Short:   "Create and work on tasks and subtasks",
	}

	cmd.AddCommand(taskCreateCmd(a))
	cmd.AddCommand(taskListCmd(a))
	cmd.AddCommand(taskShowCmd(a))
	cmd.AddCommand(taskCompleteCmd(a))
	cmd.AddCommand(taskAttachCmd(a))
	cmd.AddCommand(taskMessageCmd(a))

	return cmd
}

func taskCreateCmd(a *app) *cobra.Command {
	var (
		due      string
		owner    string
		subtasks []string
	)

	cmd := &cobra.Command{
		Use:   "create <project-id> <name>",
		Short: "Create a task with its subtasks",
		Long: `Create a task in a project.

Each --subtask is name[:priority[:due]]. Priority is Low, Medium or High
and defaults to Medium; the due date defaults to the task's. Subtasks
are numbered subtask1, subtask2, ... in the order given.`,
		Example: `  teamtrack task create <project-id> Design --due 2024-01-01 --subtask Wireframe --subtask Mockup:High`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := parseSubtasks(subtasks)
			if err != nil {
				return err
			}

			return a.withSession(func(ctx context.Context, e *env, sess identity.Session) error {
				if _, err := e.memberProject(ctx, sess, args[0]); err != nil {
					return err
				}

				ownerID := sess.UserID
				if owner != "" {
					addr, err := model.ParseEmail(owner)
					if err != nil {
						return usageError("%v", err)
					}
					u, err := e.store.GetUserByEmail(ctx, addr)
					if err != nil {
						return err
					}
					ownerID = u.ID
				}

				id, err := e.tasks.CreateTaskWithSubtasks(ctx, task.CreateInput{
					ProjectID: args[0],
					Name:      args[1],
					DueDate:   due,
					OwnerID:   ownerID,
					Subtasks:  inputs,
				})
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%s %s\n", theme.SuccessStyle.Render("Created task"), id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&owner, "owner", "", "owner's email (default: you)")
	cmd.Flags().StringArrayVar(&subtasks, "subtask", nil, "subtask as name[:priority[:due]] (repeatable)")

	return cmd
}

func taskListCmd(a *app) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List a project's tasks, or the tasks you own",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(ctx context.Context, e *env, sess identity.Session) error {
				var (
					tasks []model.Task
					err   error
				)
				if projectID != "" {
					if _, err := e.memberProject(ctx, sess, projectID); err != nil {
						return err
					}
					tasks, err = e.tasks.FetchTasksByProject(ctx, projectID)
				} else {
					tasks, err = e.tasks.FetchTasksByOwner(ctx, sess.UserID)
				}
				if err != nil {
					return err
				}
				renderTaskList(cmd.OutOrStdout(), tasks)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "list this project's tasks instead of yours")

	return cmd
}

func taskShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task with its subtasks, attachments and messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(ctx context.Context, e *env, sess identity.Session) error {
				t, err := e.memberTask(ctx, sess, args[0])
				if err != nil {
					return err
				}
				renderTask(cmd.OutOrStdout(), t)
				return nil
			})
		},
	}
}

func taskCompleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <task-id> <subtask-id>",
		Short: "Mark a subtask complete",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(ctx context.Context, e *env, sess identity.Session) error {
				if _, err := e.memberTask(ctx, sess, args[0]); err != nil {
					return err
				}
				if err := e.tasks.MarkSubtaskComplete(ctx, args[0], args[1]); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%s %s\n",
					theme.SuccessStyle.Render("Completed"), task.Target{TaskID: args[0], SubtaskID: args[1]})
				return nil
			})
		},
	}
}

func taskAttachCmd(a *app) *cobra.Command {
	var subtaskID, typ string

	cmd := &cobra.Command{
		Use:   "attach <task-id> <name> <url>",
		Short: "Attach a file to a task or one of its subtasks",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := task.Target{TaskID: args[0], SubtaskID: subtaskID}
			attachment := model.Attachment{Name: args[1], URL: args[2], Type: typ}
			if attachment.Type == "" {
				attachment.Type = contentType(attachment.Name)
			}

			return a.withSession(func(ctx context.Context, e *env, sess identity.Session) error {
				if _, err := e.memberTask(ctx, sess, target.TaskID); err != nil {
					return err
				}
				if err := e.tasks.AddAttachment(ctx, target, attachment); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%s %s to %s\n",
					theme.SuccessStyle.Render("Attached"), attachment.Name, target)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&subtaskID, "subtask", "", "subtask id to attach to instead of the task")
	cmd.Flags().StringVar(&typ, "type", "", "MIME type (guessed from the name by default)")

	return cmd
}

func taskMessageCmd(a *app) *cobra.Command {
	var subtaskID string

	cmd := &cobra.Command{
		Use:   "message <task-id> <text>...",
		Short: "Post a message on a task or one of its subtasks",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := task.Target{TaskID: args[0], SubtaskID: subtaskID}
			text := strings.Join(args[1:], " ")

			return a.withSession(func(ctx context.Context, e *env, sess identity.Session) error {
				if _, err := e.memberTask(ctx, sess, target.TaskID); err != nil {
					return err
				}
				err := e.tasks.AddMessage(ctx, target, model.Message{Text: text, UserID: sess.UserID})
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%s %s\n", theme.SuccessStyle.Render("Posted to"), target)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&subtaskID, "subtask", "", "subtask id to post to instead of the task")

	return cmd
}

// parseSubtasks reads name[:priority[:due]] values.
func parseSubtasks(raw []string) ([]task.SubtaskInput, error) {
	out := make([]task.SubtaskInput, 0, len(raw))
	for _, r := range raw {
		parts := strings.SplitN(r, ":", 3)
		in := task.SubtaskInput{Name: strings.TrimSpace(parts[0])}
		if in.Name == "" {
			return nil, usageError("subtask %q has no name", r)
		}
		if len(parts) > 1 {
			in.Priority = normalizePriority(parts[1])
		}
		if len(parts) > 2 {
			in.DueDate = strings.TrimSpace(parts[2])
		}
		out = append(out, in)
	}
	return out, nil
}

// normalizePriority accepts priorities in any case. Unknown values are
// passed through and rejected by the repository.
func normalizePriority(raw string) model.Priority {
	raw = strings.TrimSpace(raw)
	for _, p := range []model.Priority{model.PriorityLow, model.PriorityMedium, model.PriorityHigh} {
		if strings.EqualFold(raw, string(p)) {
			return p
		}
	}
	return model.Priority(raw)
}
