package cli

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/teamtrack/internal/identity"
	"github.com/nhle/teamtrack/internal/keys"
	"github.com/nhle/teamtrack/internal/model"
	"github.com/nhle/teamtrack/internal/ui/board"
)

// boardSource serves the board from the repositories as one user.
type boardSource struct {
	env  *env
	sess identity.Session
}

func (s boardSource) Projects(ctx context.Context) ([]model.Project, error) {
	return s.env.projects.FetchProjectsForSession(ctx, s.sess)
}

func (s boardSource) Tasks(ctx context.Context, projectID string) ([]model.Task, error) {
	if _, err := s.env.memberProject(ctx, s.sess, projectID); err != nil {
		return nil, err
	}
	return s.env.tasks.FetchTasksByProject(ctx, projectID)
}

func boardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Browse your projects and tasks interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(_ context.Context, e *env, sess identity.Session) error {
				detail := func(t model.Task) string {
					var b strings.Builder
					renderTask(&b, &t)
					return b.String()
				}
				m := board.New(boardSource{env: e, sess: sess}, detail, keys.DefaultKeyMap(), 80, 24)
				_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
				return err
			})
		},
	}
}
