package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nhle/teamtrack/internal/model"
	"github.com/nhle/teamtrack/internal/theme"
)

const dateLayout = "2006-01-02"

func renderProjectList(w io.Writer, projects []model.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(w, theme.MutedStyle.Render("No projects."))
		return
	}
	for _, p := range projects {
		fmt.Fprintf(w, "%s  %s  %s\n",
			theme.MutedStyle.Render(p.ID),
			theme.LabelStyle.Render(p.Name),
			"due "+p.DueDate.Format(dateLayout))
	}
}

func renderProject(w io.Writer, p *model.Project, members []model.User) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", theme.HeaderStyle.Render(p.Name))
	field(&b, "ID", p.ID)
	if p.Description != "" {
		field(&b, "Description", p.Description)
	}
	field(&b, "Created by", string(p.CreatedBy))
	field(&b, "Due", p.DueDate.Format(dateLayout))

	shared := make([]string, len(p.SharedWith))
	for i, e := range p.SharedWith {
		shared[i] = string(e)
	}
	field(&b, "Shared with", orNone(strings.Join(shared, ", ")))

	if len(members) > 0 {
		names := make([]string, len(members))
		for i, u := range members {
			names[i] = memberName(u)
		}
		field(&b, "Members", strings.Join(names, ", "))
	}
	for _, a := range p.Attachments {
		field(&b, "Attachment", fmt.Sprintf("%s %s", a.Name, theme.MutedStyle.Render(a.URL)))
	}

	fmt.Fprintln(w, theme.PanelStyle.Render(strings.TrimRight(b.String(), "\n")))
}

func renderMembers(w io.Writer, members []model.User) {
	if len(members) == 0 {
		fmt.Fprintln(w, theme.MutedStyle.Render("No registered members."))
		return
	}
	for _, u := range members {
		fmt.Fprintf(w, "%s  %s\n", theme.MutedStyle.Render(string(u.ID)), memberName(u))
	}
}

func renderTaskList(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, theme.MutedStyle.Render("No tasks."))
		return
	}
	for _, t := range tasks {
		done := 0
		for _, st := range t.Subtasks {
			if st.Completed {
				done++
			}
		}
		fmt.Fprintf(w, "%s  %s  %d/%d done  %s\n",
			theme.MutedStyle.Render(t.ID),
			theme.LabelStyle.Render(t.Name),
			done, len(t.Subtasks),
			"due "+optionalDate(t.DueDate))
	}
}

func renderTask(w io.Writer, t *model.Task) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", theme.HeaderStyle.Render(t.Name))
	field(&b, "ID", t.ID)
	field(&b, "Project", t.ProjectID)
	field(&b, "Owner", string(t.Owner))
	field(&b, "Due", optionalDate(t.DueDate))
	renderItems(&b, "", t.Attachments, t.Messages)

	for _, st := range t.Subtasks {
		mark := "[ ]"
		if st.Completed {
			mark = "[x]"
		}
		fmt.Fprintf(&b, "\n%s %s %s %s  %s\n",
			theme.CompletionStyle(st.Completed).Render(mark),
			theme.MutedStyle.Render(st.ID),
			st.Name,
			theme.PriorityStyle(st.Priority).Render(string(st.Priority)),
			"due "+optionalDate(st.DueDate))
		if st.CompletionDate != nil {
			fmt.Fprintf(&b, "    %s\n", theme.MutedStyle.Render("completed "+st.CompletionDate.Format(time.RFC3339)))
		}
		renderItems(&b, "    ", st.Attachments, st.Messages)
	}

	fmt.Fprintln(w, theme.PanelStyle.Render(strings.TrimRight(b.String(), "\n")))
}

func renderItems(b *strings.Builder, indent string, attachments []model.Attachment, messages []model.Message) {
	for _, a := range attachments {
		fmt.Fprintf(b, "%s%s %s %s\n", indent,
			theme.LabelStyle.Render("Attachment:"), a.Name, theme.MutedStyle.Render(a.URL))
	}
	for _, m := range messages {
		fmt.Fprintf(b, "%s%s %s %s\n", indent,
			theme.LabelStyle.Render(string(m.UserID)+":"), m.Text,
			theme.MutedStyle.Render(m.Timestamp.Format(time.RFC3339)))
	}
}

func renderActivities(w io.Writer, activities []model.Activity) {
	if len(activities) == 0 {
		fmt.Fprintln(w, theme.MutedStyle.Render("No activity."))
		return
	}
	for _, a := range activities {
		content := a.Content
		if a.FileURL != nil {
			name := *a.FileURL
			if a.FileName != nil {
				name = *a.FileName
			}
			content = strings.TrimSpace(content + " " + theme.MutedStyle.Render(name))
		}
		fmt.Fprintf(w, "%s %s %s %s\n",
			theme.MutedStyle.Render(a.Timestamp.Local().Format("2006-01-02 15:04")),
			theme.ActivityStyle(a.Type).Render(string(a.Type)),
			theme.LabelStyle.Render(string(a.UserID)),
			content)
	}
}

func renderFiles(w io.Writer, list []model.File) {
	if len(list) == 0 {
		fmt.Fprintln(w, theme.MutedStyle.Render("No files."))
		return
	}
	for _, f := range list {
		fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
			theme.MutedStyle.Render(f.ID),
			theme.LabelStyle.Render(f.Name),
			humanize.Bytes(uint64(f.Size)),
			theme.MutedStyle.Render(f.ContentType),
			humanize.Time(f.CreatedAt))
	}
}

func renderDeadLetters(w io.Writer, letters []model.DeadLetter) {
	if len(letters) == 0 {
		fmt.Fprintln(w, theme.MutedStyle.Render("No undelivered notifications."))
		return
	}
	for _, d := range letters {
		fmt.Fprintf(w, "%s  %s  %d tokens after %d attempts: %s\n",
			theme.MutedStyle.Render(d.CreatedAt.Local().Format("2006-01-02 15:04")),
			theme.LabelStyle.Render(d.ProjectName),
			len(d.Tokens), d.Attempts,
			theme.ErrorStyle.Render(d.LastError))
	}
}

func field(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%s %s\n", theme.LabelStyle.Render(label+":"), value)
}

func memberName(u model.User) string {
	if u.DisplayName == "" {
		return string(u.Email)
	}
	return fmt.Sprintf("%s <%s>", u.DisplayName, u.Email)
}

func optionalDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
