// Package board is an interactive browser over the user's projects, their
// tasks and task details.
package board

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/teamtrack/internal/keys"
	"github.com/nhle/teamtrack/internal/model"
	"github.com/nhle/teamtrack/internal/theme"
)

var (
	rowStyle      = lipgloss.NewStyle().PaddingLeft(2)
	selectedStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(theme.ColorBlue).
			Foreground(theme.ColorWhite)
)

// Source loads what the board shows. Implementations are bound to the
// signed-in user.
type Source interface {
	Projects(ctx context.Context) ([]model.Project, error)
	Tasks(ctx context.Context, projectID string) ([]model.Task, error)
}

// DetailFunc renders a task for the detail pane.
type DetailFunc func(t model.Task) string

// ProjectsLoadedMsg is sent when projects have been loaded.
type ProjectsLoadedMsg struct {
	Projects []model.Project
	Err      error
}

// TasksLoadedMsg is sent when a project's tasks have been loaded.
type TasksLoadedMsg struct {
	ProjectID string
	Tasks     []model.Task
	Err       error
}

type screen int

const (
	screenProjects screen = iota
	screenTasks
	screenDetail
)

// Model is the root board model.
type Model struct {
	src    Source
	detail DetailFunc
	keys   *keys.KeyMap

	screen   screen
	projects list.Model
	tasks    list.Model
	viewport viewport.Model
	help     help.Model

	project *model.Project
	err     error
	width   int
	height  int
}

// New creates a board. width and height are replaced by the first
// tea.WindowSizeMsg.
func New(src Source, detail DetailFunc, k *keys.KeyMap, width, height int) Model {
	projects := list.New([]list.Item{}, list.NewDefaultDelegate(), width, height-2)
	projects.Title = "Projects"
	projects.SetShowHelp(false)
	projects.Styles.Title = theme.HeaderStyle

	tasks := list.New([]list.Item{}, taskDelegate{}, width, height-2)
	tasks.SetShowHelp(false)
	tasks.Styles.Title = theme.HeaderStyle

	return Model{
		src:      src,
		detail:   detail,
		keys:     k,
		projects: projects,
		tasks:    tasks,
		viewport: viewport.New(width, height-2),
		help:     help.New(),
		width:    width,
		height:   height,
	}
}

// Init loads the project list.
func (m Model) Init() tea.Cmd {
	return m.loadProjects()
}

// Update handles messages for every screen.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case ProjectsLoadedMsg:
		m.err = msg.Err
		items := make([]list.Item, len(msg.Projects))
		for i, p := range msg.Projects {
			items[i] = ProjectItem{Project: p}
		}
		return m, m.projects.SetItems(items)

	case TasksLoadedMsg:
		if m.project == nil || m.project.ID != msg.ProjectID {
			return m, nil
		}
		m.err = msg.Err
		items := make([]list.Item, len(msg.Tasks))
		for i, t := range msg.Tasks {
			items[i] = TaskItem{Task: t}
		}
		return m, m.tasks.SetItems(items)

	case tea.KeyMsg:
		if m.filtering() {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Back):
			return m.back()
		case key.Matches(msg, m.keys.Refresh):
			return m, m.refresh()
		case key.Matches(msg, m.keys.Select):
			return m.open()
		}
	}

	var cmd tea.Cmd
	switch m.screen {
	case screenProjects:
		m.projects, cmd = m.projects.Update(msg)
	case screenTasks:
		m.tasks, cmd = m.tasks.Update(msg)
	case screenDetail:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// filtering reports whether the active list is taking text input.
func (m Model) filtering() bool {
	switch m.screen {
	case screenProjects:
		return m.projects.FilterState() == list.Filtering
	case screenTasks:
		return m.tasks.FilterState() == list.Filtering
	}
	return false
}

func (m Model) open() (tea.Model, tea.Cmd) {
	switch m.screen {
	case screenProjects:
		item, ok := m.projects.SelectedItem().(ProjectItem)
		if !ok {
			return m, nil
		}
		p := item.Project
		m.project = &p
		m.screen = screenTasks
		m.tasks.Title = p.Name
		cmd := m.tasks.SetItems(nil)
		return m, tea.Batch(cmd, m.loadTasks(p.ID))

	case screenTasks:
		item, ok := m.tasks.SelectedItem().(TaskItem)
		if !ok {
			return m, nil
		}
		m.screen = screenDetail
		m.viewport.SetContent(m.detail(item.Task))
		m.viewport.GotoTop()
	}
	return m, nil
}

func (m Model) back() (tea.Model, tea.Cmd) {
	switch m.screen {
	case screenDetail:
		m.screen = screenTasks
	case screenTasks:
		m.screen = screenProjects
		m.project = nil
	}
	return m, nil
}

func (m Model) refresh() tea.Cmd {
	if m.screen == screenProjects || m.project == nil {
		return m.loadProjects()
	}
	return m.loadTasks(m.project.ID)
}

// View renders the active screen with the help line below it.
func (m Model) View() string {
	var body string
	switch m.screen {
	case screenProjects:
		body = m.projects.View()
	case screenTasks:
		body = m.tasks.View()
	case screenDetail:
		body = m.viewport.View()
	}

	footer := m.help.View(m.keys)
	if m.err != nil {
		footer = theme.ErrorStyle.Render(fmt.Sprintf("error: %v", m.err))
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, footer)
}

func (m *Model) setSize(width, height int) {
	m.width = width
	m.height = height
	m.projects.SetSize(width, height-2)
	m.tasks.SetSize(width, height-2)
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.help.Width = width
}

// loadProjects returns a tea.Cmd that fetches the user's projects.
func (m Model) loadProjects() tea.Cmd {
	src := m.src
	return func() tea.Msg {
		projects, err := src.Projects(context.Background())
		return ProjectsLoadedMsg{Projects: projects, Err: err}
	}
}

// loadTasks returns a tea.Cmd that fetches a project's tasks.
func (m Model) loadTasks(projectID string) tea.Cmd {
	src := m.src
	return func() tea.Msg {
		tasks, err := src.Tasks(context.Background(), projectID)
		return TasksLoadedMsg{ProjectID: projectID, Tasks: tasks, Err: err}
	}
}
