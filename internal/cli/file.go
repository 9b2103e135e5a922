package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nhle/teamtrack/internal/identity"
	"github.com/nhle/teamtrack/internal/model"
	"github.com/nhle/teamtrack/internal/theme"
)

func fileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "file",
		Aliases: []string{"files"},
		Short:   "Upload, download and remove project files",
	}

	cmd.AddCommand(fileListCmd(a))
	cmd.AddCommand(fileUploadCmd(a))
	cmd.AddCommand(fileGetCmd(a))
	cmd.AddCommand(fileRemoveCmd(a))

	return cmd
}

func fileListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list <project-id>",
		Aliases: []string{"ls"},
		Short:   "List a project's files",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(ctx context.Context, e *env, sess identity.Session) error {
				if _, err := e.memberProject(ctx, sess, args[0]); err != nil {
					return err
				}
				list, err := e.files.List(ctx, args[0])
				if err != nil {
					return err
				}
				renderFiles(cmd.OutOrStdout(), list)
				return nil
			})
		},
	}
}

func fileUploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <project-id> <path>",
		Short: "Upload a local file to a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(ctx context.Context, e *env, sess identity.Session) error {
				if _, err := e.memberProject(ctx, sess, args[0]); err != nil {
					return err
				}
				f, err := e.uploadFile(ctx, sess, args[0], args[1])
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%s %s %s\n",
					theme.SuccessStyle.Render("Uploaded"), f.ID, theme.MutedStyle.Render(e.files.URL(f)))
				return nil
			})
		},
	}
}

func fileGetCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <file-id>",
		Short: "Download a file",
		Long: `Download a file into the current directory under its uploaded name,
or to --output. Use --output - to write to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(ctx context.Context, e *env, sess identity.Session) error {
				f, err := e.memberFile(ctx, sess, args[0])
				if err != nil {
					return err
				}
				src, err := e.files.Open(f)
				if err != nil {
					return err
				}
				defer src.Close()

				if output == "-" {
					_, err := io.Copy(cmd.OutOrStdout(), src)
					return err
				}
				dst := output
				if dst == "" {
					dst = f.Name
				}
				out, err := os.Create(dst)
				if err != nil {
					return fmt.Errorf("creating %s: %w", dst, err)
				}
				if _, err := io.Copy(out, src); err != nil {
					out.Close()
					return fmt.Errorf("writing %s: %w", dst, err)
				}
				if err := out.Close(); err != nil {
					return err
				}
				printf(cmd.ErrOrStderr(), "%s %s\n", theme.SuccessStyle.Render("Saved"), dst)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "destination path")

	return cmd
}

func fileRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <file-id>",
		Aliases: []string{"remove"},
		Short:   "Delete a file you uploaded",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(ctx context.Context, e *env, sess identity.Session) error {
				f, err := e.memberFile(ctx, sess, args[0])
				if err != nil {
					return err
				}
				if err := e.files.Delete(ctx, sess, f.ID); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%s %s\n", theme.SuccessStyle.Render("Deleted"), f.Name)
				return nil
			})
		},
	}
}

// uploadFile stores the local file at path in the project.
func (e *env) uploadFile(ctx context.Context, sess identity.Session, projectID, path string) (model.File, error) {
	src, err := os.Open(path)
	if err != nil {
		return model.File{}, usageError("opening %s: %v", path, err)
	}
	defer src.Close()
	return e.files.Upload(ctx, sess, projectID, filepath.Base(path), src)
}

// memberFile loads a file belonging to one of the session user's projects.
func (e *env) memberFile(ctx context.Context, sess identity.Session, id string) (*model.File, error) {
	f, err := e.files.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := e.memberProject(ctx, sess, f.ProjectID); err != nil {
		return nil, err
	}
	return f, nil
}
