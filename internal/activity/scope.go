package activity

import "github.com/nhle/teamtrack/internal/model"

type scopeKind int

const (
	scopeUser scopeKind = iota + 1
	scopeProject
	scopeTask
)

// Scope selects which feed FetchRecentActivities reads.
type Scope struct {
	kind scopeKind
	id   string
}

// UserScope selects the entries written by one user.
func UserScope(id model.UserID) Scope {
	return Scope{kind: scopeUser, id: string(id)}
}

// ProjectScope selects the entries of one project, including task entries.
func ProjectScope(projectID string) Scope {
	return Scope{kind: scopeProject, id: projectID}
}

// TaskScope selects the entries of one task.
func TaskScope(taskID string) Scope {
	return Scope{kind: scopeTask, id: taskID}
}

func (s Scope) String() string {
	switch s.kind {
	case scopeUser:
		return "user:" + s.id
	case scopeProject:
		return "project:" + s.id
	case scopeTask:
		return "task:" + s.id
	}
	return "unknown"
}
