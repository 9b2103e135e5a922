package board

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/teamtrack/internal/model"
	"github.com/nhle/teamtrack/internal/theme"
)

// ProjectItem wraps a model.Project so it can be used in a bubbles/list.
type ProjectItem struct {
	Project model.Project
}

// FilterValue returns the string used for fuzzy filtering.
func (i ProjectItem) FilterValue() string { return i.Project.Name }

// Title returns the project name for the list.
func (i ProjectItem) Title() string { return i.Project.Name }

// Description returns a short summary line for the list.
func (i ProjectItem) Description() string {
	parts := []string{"due " + i.Project.DueDate.Format("Jan 02 2006")}
	if n := len(i.Project.SharedWith); n > 0 {
		parts = append(parts, fmt.Sprintf("shared with %d", n))
	}
	if i.Project.Description != "" {
		parts = append(parts, i.Project.Description)
	}
	return strings.Join(parts, " | ")
}

// TaskItem wraps a model.Task so it can be used in a bubbles/list.
type TaskItem struct {
	Task model.Task
}

// FilterValue returns the string used for fuzzy filtering.
func (i TaskItem) FilterValue() string { return i.Task.Name }

// progress returns the number of completed subtasks and the total.
func (i TaskItem) progress() (done, total int) {
	for _, st := range i.Task.Subtasks {
		if st.Completed {
			done++
		}
	}
	return done, len(i.Task.Subtasks)
}

// taskDelegate implements list.ItemDelegate for one-line task rows.
type taskDelegate struct{}

func (d taskDelegate) Height() int                             { return 1 }
func (d taskDelegate) Spacing() int                            { return 0 }
func (d taskDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// Render draws a single task line.
func (d taskDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TaskItem)
	if !ok {
		return
	}

	done, total := ti.progress()
	complete := total > 0 && done == total

	prefix := "○"
	if complete {
		prefix = "✓"
	}

	due := ""
	if ti.Task.DueDate != nil {
		due = theme.MutedStyle.Render(" " + ti.Task.DueDate.Format("Jan 02"))
	}

	line := fmt.Sprintf("%s %s %s%s",
		theme.CompletionStyle(complete).Render(prefix),
		ti.Task.Name,
		theme.MutedStyle.Render(fmt.Sprintf("%d/%d", done, total)),
		due,
	)

	if index == m.Index() {
		line = selectedStyle.Render(line)
	} else {
		line = rowStyle.Render(line)
	}
	fmt.Fprint(w, line)
}
