package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nhle/teamtrack/internal/activity"
	"github.com/nhle/teamtrack/internal/apperr"
	"github.com/nhle/teamtrack/internal/identity"
	"github.com/nhle/teamtrack/internal/model"
	"github.com/nhle/teamtrack/internal/project"
	"github.com/nhle/teamtrack/internal/task"
)

// === Auth ===

type sessionResponse struct {
	Token   string           `json:"token"`
	Session identity.Session `json:"user"`
}

// SignUp registers an account and returns a session token.
func (h *Handler) SignUp(c *gin.Context) {
	var req struct {
		Email     string `json:"email" binding:"required"`
		Password  string `json:"password" binding:"required"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sess, err := h.Auth.SignUp(c.Request.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		fail(c, err)
		return
	}
	h.respondWithToken(c, http.StatusCreated, sess)
}

// Login checks credentials and returns a session token.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sess, err := h.Auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	h.respondWithToken(c, http.StatusOK, sess)
}

func (h *Handler) respondWithToken(c *gin.Context, status int, sess identity.Session) {
	token, err := h.Tokens.Issue(sess)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(status, sessionResponse{Token: token, Session: sess})
}

// Me returns the caller's session.
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, session(c))
}

// RegisterPushToken stores the caller's device token.
func (h *Handler) RegisterPushToken(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.Push.RegisterToken(c.Request.Context(), session(c).UserID, req.Token); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// === Projects ===

// ListProjects returns every project the caller created or was shared into.
func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.Projects.FetchProjectsForSession(c.Request.Context(), session(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// CreateProject creates a project owned by the caller.
func (h *Handler) CreateProject(c *gin.Context) {
	var req struct {
		Name        string             `json:"name"`
		Description string             `json:"description"`
		SharedWith  []string           `json:"shared_with"`
		DueDate     string             `json:"due_date"`
		Attachments []model.Attachment `json:"attachments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id, err := h.Projects.CreateProject(c.Request.Context(), session(c), project.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		SharedWith:  req.SharedWith,
		DueDate:     req.DueDate,
		Attachments: req.Attachments,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// GetProject returns one project the caller is a member of.
func (h *Handler) GetProject(c *gin.Context) {
	p, err := h.memberProject(c)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListMembers returns the project's registered members.
func (h *Handler) ListMembers(c *gin.Context) {
	p, err := h.memberProject(c)
	if err != nil {
		fail(c, err)
		return
	}
	members, err := h.Projects.FetchProjectMembers(c.Request.Context(), p.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// ListMemberIDs returns the project's member user ids, creator first.
func (h *Handler) ListMemberIDs(c *gin.Context) {
	p, err := h.memberProject(c)
	if err != nil {
		fail(c, err)
		return
	}
	ids, err := h.Projects.FetchProjectUserIDs(c.Request.Context(), p.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ids)
}

// ShareProject adds invitee emails to a project.
func (h *Handler) ShareProject(c *gin.Context) {
	var req struct {
		Emails []string `json:"emails" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	added, err := h.Projects.ShareProject(c.Request.Context(), session(c), c.Param("id"), req.Emails...)
	if err != nil {
		fail(c, err)
		return
	}
	if added == nil {
		added = []model.Email{}
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

// UnshareProject removes one invitee email from a project.
func (h *Handler) UnshareProject(c *gin.Context) {
	err := h.Projects.UnshareProject(c.Request.Context(), session(c), c.Param("id"), c.Param("email"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// memberProject loads the :id project and checks the caller may see it.
func (h *Handler) memberProject(c *gin.Context) (*model.Project, error) {
	return h.memberProjectByID(c, c.Param("id"))
}

func (h *Handler) memberProjectByID(c *gin.Context, id string) (*model.Project, error) {
	sess := session(c)
	p, err := h.Projects.GetProject(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if !p.IsMember(sess.Member()) {
		return nil, apperr.E(apperr.Forbidden, "reading project", "not a member of project %s", p.ID)
	}
	return p, nil
}

// === Tasks ===

type subtaskRequest struct {
	Name     string         `json:"name"`
	Owner    model.UserID   `json:"owner"`
	Priority model.Priority `json:"priority"`
	DueDate  string         `json:"due_date"`
}

// CreateTask creates a task with its subtasks in the :id project.
func (h *Handler) CreateTask(c *gin.Context) {
	p, err := h.memberProject(c)
	if err != nil {
		fail(c, err)
		return
	}

	var req struct {
		Name        string             `json:"name"`
		DueDate     string             `json:"due_date"`
		Owner       model.UserID       `json:"owner"`
		Subtasks    []subtaskRequest   `json:"subtasks"`
		Attachments []model.Attachment `json:"attachments"`
		Messages    []string           `json:"messages"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sess := session(c)
	in := task.CreateInput{
		ProjectID:   p.ID,
		Name:        req.Name,
		DueDate:     req.DueDate,
		OwnerID:     req.Owner,
		Attachments: req.Attachments,
	}
	if in.OwnerID == "" {
		in.OwnerID = sess.UserID
	}
	for _, st := range req.Subtasks {
		in.Subtasks = append(in.Subtasks, task.SubtaskInput(st))
	}
	for _, text := range req.Messages {
		in.Messages = append(in.Messages, model.Message{Text: text, UserID: sess.UserID})
	}

	id, err := h.Tasks.CreateTaskWithSubtasks(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// ListProjectTasks returns the tasks of the :id project.
func (h *Handler) ListProjectTasks(c *gin.Context) {
	p, err := h.memberProject(c)
	if err != nil {
		fail(c, err)
		return
	}
	tasks, err := h.Tasks.FetchTasksByProject(c.Request.Context(), p.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// ListMyTasks returns the tasks owned by the caller.
func (h *Handler) ListMyTasks(c *gin.Context) {
	tasks, err := h.Tasks.FetchTasksByOwner(c.Request.Context(), session(c).UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GetTask returns one task of a project the caller is a member of.
func (h *Handler) GetTask(c *gin.Context) {
	t, err := h.memberTask(c)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// CompleteSubtask marks the :subtask of the :id task done.
func (h *Handler) CompleteSubtask(c *gin.Context) {
	t, err := h.memberTask(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.Tasks.MarkSubtaskComplete(c.Request.Context(), t.ID, c.Param("subtask")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddAttachment attaches a file to the task, or to :subtask when present.
func (h *Handler) AddAttachment(c *gin.Context) {
	t, err := h.memberTask(c)
	if err != nil {
		fail(c, err)
		return
	}

	var a model.Attachment
	if err := c.ShouldBindJSON(&a); err != nil {
		badRequest(c, err)
		return
	}

	target := task.Target{TaskID: t.ID, SubtaskID: c.Param("subtask")}
	if err := h.Tasks.AddAttachment(c.Request.Context(), target, a); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// AddMessage posts a message on the task, or on :subtask when present.
func (h *Handler) AddMessage(c *gin.Context) {
	t, err := h.memberTask(c)
	if err != nil {
		fail(c, err)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	target := task.Target{TaskID: t.ID, SubtaskID: c.Param("subtask")}
	msg := model.Message{Text: req.Text, UserID: session(c).UserID}
	if err := h.Tasks.AddMessage(c.Request.Context(), target, msg); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// memberTask loads the :id task and checks the caller is a member of its
// project or owns it.
func (h *Handler) memberTask(c *gin.Context) (*model.Task, error) {
	sess := session(c)
	t, err := h.Tasks.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if t.Owner == sess.UserID {
		return t, nil
	}

	p, err := h.Projects.GetProject(c.Request.Context(), t.ProjectID)
	if err != nil && !apperr.Is(err, apperr.NotFound) {
		return nil, err
	}
	if p == nil || !p.IsMember(sess.Member()) {
		return nil, apperr.E(apperr.Forbidden, "reading task", "not a member of task %s", t.ID)
	}
	return t, nil
}

// === Activities ===

// AddActivity appends an entry to the :id project's feed.
func (h *Handler) AddActivity(c *gin.Context) {
	p, err := h.memberProject(c)
	if err != nil {
		fail(c, err)
		return
	}

	var req struct {
		TaskID    string             `json:"task_id"`
		Type      model.ActivityType `json:"type"`
		Content   string             `json:"content"`
		FileURL   string             `json:"file_url"`
		FileName  string             `json:"file_name"`
		Timestamp time.Time          `json:"timestamp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id, err := h.Activities.AddActivity(c.Request.Context(), p.ID, req.TaskID, activity.Input{
		Type:      req.Type,
		Content:   req.Content,
		FileURL:   req.FileURL,
		FileName:  req.FileName,
		Timestamp: req.Timestamp,
		UserID:    session(c).UserID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// ListProjectActivities returns the :id project's recent feed.
func (h *Handler) ListProjectActivities(c *gin.Context) {
	p, err := h.memberProject(c)
	if err != nil {
		fail(c, err)
		return
	}
	h.listActivities(c, activity.ProjectScope(p.ID))
}

// ListTaskActivities returns the :id task's recent feed.
func (h *Handler) ListTaskActivities(c *gin.Context) {
	t, err := h.memberTask(c)
	if err != nil {
		fail(c, err)
		return
	}
	h.listActivities(c, activity.TaskScope(t.ID))
}

// ListMyActivities returns the caller's own recent entries.
func (h *Handler) ListMyActivities(c *gin.Context) {
	h.listActivities(c, activity.UserScope(session(c).UserID))
}

func (h *Handler) listActivities(c *gin.Context, scope activity.Scope) {
	max := 0
	if raw := c.Query("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fail(c, apperr.E(apperr.InvalidInput, "listing activities", "max must be a number"))
			return
		}
		max = n
	}

	activities, err := h.Activities.FetchRecentActivities(c.Request.Context(), scope, max)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, activities)
}

// === Files ===

// fileResponse is a file record with its download URL.
type fileResponse struct {
	model.File
	URL string `json:"url"`
}

// UploadFile stores the multipart "file" field in the :id project.
func (h *Handler) UploadFile(c *gin.Context) {
	p, err := h.memberProject(c)
	if err != nil {
		fail(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		fail(c, apperr.E(apperr.InvalidInput, "uploading file", "multipart field \"file\" is required"))
		return
	}
	src, err := header.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer src.Close()

	f, err := h.Files.Upload(c.Request.Context(), session(c), p.ID, header.Filename, src)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, fileResponse{File: f, URL: h.Files.URL(f)})
}

// ListFiles returns the :id project's uploaded files.
func (h *Handler) ListFiles(c *gin.Context) {
	p, err := h.memberProject(c)
	if err != nil {
		fail(c, err)
		return
	}

	list, err := h.Files.List(c.Request.Context(), p.ID)
	if err != nil {
		fail(c, err)
		return
	}
	resp := make([]fileResponse, 0, len(list))
	for _, f := range list {
		resp = append(resp, fileResponse{File: f, URL: h.Files.URL(f)})
	}
	c.JSON(http.StatusOK, resp)
}

// DownloadFile streams the :id file to a member of its project.
func (h *Handler) DownloadFile(c *gin.Context) {
	f, err := h.Files.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if _, err := h.memberProjectByID(c, f.ProjectID); err != nil {
		fail(c, err)
		return
	}

	rc, err := h.Files.Open(f)
	if err != nil {
		fail(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(f.Name))
	c.DataFromReader(http.StatusOK, f.Size, f.ContentType, rc, nil)
}

// DeleteFile removes the :id file. Only its uploader may do so.
func (h *Handler) DeleteFile(c *gin.Context) {
	f, err := h.Files.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if _, err := h.memberProjectByID(c, f.ProjectID); err != nil {
		fail(c, err)
		return
	}
	if err := h.Files.Delete(c.Request.Context(), session(c), f.ID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// === Notifications ===

// ListDeadLetters returns share notifications that could not be delivered.
func (h *Handler) ListDeadLetters(c *gin.Context) {
	letters, err := h.Push.DeadLetters(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if letters == nil {
		letters = []model.DeadLetter{}
	}
	c.JSON(http.StatusOK, letters)
}
