package board

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/teamtrack/internal/keys"
	"github.com/nhle/teamtrack/internal/model"
)

type fakeSource struct {
	projects []model.Project
	tasks    map[string][]model.Task
}

func (f fakeSource) Projects(context.Context) ([]model.Project, error) {
	return f.projects, nil
}

func (f fakeSource) Tasks(_ context.Context, projectID string) ([]model.Task, error) {
	return f.tasks[projectID], nil
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm, cmd
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func TestBoardNavigation(t *testing.T) {
	src := fakeSource{
		projects: []model.Project{{ID: "p1", Name: "Launch"}},
		tasks: map[string][]model.Task{
			"p1": {{ID: "t1", ProjectID: "p1", Name: "Design", Subtasks: []model.Subtask{{ID: "subtask1", Completed: true}}}},
		},
	}
	detail := func(task model.Task) string { return "DETAIL:" + task.Name }
	m := New(src, detail, keys.DefaultKeyMap(), 80, 24)

	msg := m.Init()()
	loaded, ok := msg.(ProjectsLoadedMsg)
	if !ok || len(loaded.Projects) != 1 {
		t.Fatalf("Init produced %#v", msg)
	}
	m, _ = update(t, m, loaded)

	m, cmd := update(t, m, enter)
	if m.screen != screenTasks || m.project == nil || m.project.ID != "p1" {
		t.Fatalf("after enter: screen=%v project=%v", m.screen, m.project)
	}
	if cmd == nil {
		t.Fatal("opening a project should load its tasks")
	}

	tasks, _ := src.Tasks(context.Background(), "p1")
	m, _ = update(t, m, TasksLoadedMsg{ProjectID: "p1", Tasks: tasks})
	if len(m.tasks.Items()) != 1 {
		t.Fatalf("task list has %d items", len(m.tasks.Items()))
	}

	m, _ = update(t, m, enter)
	if m.screen != screenDetail {
		t.Fatalf("screen = %v, want detail", m.screen)
	}
	if !strings.Contains(m.View(), "DETAIL:Design") {
		t.Errorf("detail view = %q", m.View())
	}

	m, _ = update(t, m, esc)
	if m.screen != screenTasks {
		t.Errorf("esc from detail: screen = %v", m.screen)
	}
	m, _ = update(t, m, esc)
	if m.screen != screenProjects || m.project != nil {
		t.Errorf("esc from tasks: screen = %v project = %v", m.screen, m.project)
	}
}

func TestStaleTaskLoadIsIgnored(t *testing.T) {
	src := fakeSource{projects: []model.Project{{ID: "p1", Name: "Launch"}}}
	m := New(src, func(model.Task) string { return "" }, keys.DefaultKeyMap(), 80, 24)
	m, _ = update(t, m, ProjectsLoadedMsg{Projects: src.projects})
	m, _ = update(t, m, enter)

	m, _ = update(t, m, TasksLoadedMsg{ProjectID: "other", Tasks: []model.Task{{ID: "t9", Name: "Elsewhere"}}})
	if len(m.tasks.Items()) != 0 {
		t.Errorf("tasks from another project were shown: %d items", len(m.tasks.Items()))
	}
}

func TestQuit(t *testing.T) {
	m := New(fakeSource{}, func(model.Task) string { return "" }, keys.DefaultKeyMap(), 80, 24)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestTaskItemProgress(t *testing.T) {
	item := TaskItem{Task: model.Task{Subtasks: []model.Subtask{
		{ID: "subtask1", Completed: true},
		{ID: "subtask2"},
	}}}
	done, total := item.progress()
	if done != 1 || total != 2 {
		t.Errorf("progress = %d/%d, want 1/2", done, total)
	}
}
