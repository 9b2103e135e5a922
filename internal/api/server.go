// Package api exposes the repositories over a JSON HTTP API.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nhle/teamtrack/internal/activity"
	"github.com/nhle/teamtrack/internal/files"
	"github.com/nhle/teamtrack/internal/identity"
	"github.com/nhle/teamtrack/internal/model"
	"github.com/nhle/teamtrack/internal/project"
	"github.com/nhle/teamtrack/internal/task"
)

// Limiter is a fixed-window request counter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}

// Push registers device tokens and exposes undelivered notifications.
type Push interface {
	RegisterToken(ctx context.Context, userID model.UserID, token string) error
	DeadLetters(ctx context.Context) ([]model.DeadLetter, error)
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Auth       *identity.Authenticator
	Tokens     *identity.TokenIssuer
	Projects   *project.Repository
	Tasks      *task.Repository
	Activities *activity.Repository
	Files      *files.Service
	Push       Push

	// Limiter is optional; when set, the auth endpoints allow
	// AuthRateLimit requests per client per minute.
	Limiter       Limiter
	AuthRateLimit int
}

// Handler holds the dependencies shared by all routes.
type Handler struct {
	Deps
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	h := &Handler{Deps: deps}

	auth := router.Group("/auth")
	if deps.Limiter != nil && deps.AuthRateLimit > 0 {
		auth.Use(RateLimitMiddleware(deps.Limiter, "auth", deps.AuthRateLimit, time.Minute))
	}
	{
		auth.POST("/signup", h.SignUp)
		auth.POST("/login", h.Login)
	}

	api := router.Group("/")
	api.Use(AuthMiddleware(deps.Tokens))
	{
		api.GET("/me", h.Me)
		api.PUT("/me/push-token", h.RegisterPushToken)

		api.GET("/projects", h.ListProjects)
		api.POST("/projects", h.CreateProject)
		api.GET("/projects/:id", h.GetProject)
		api.GET("/projects/:id/members", h.ListMembers)
		api.GET("/projects/:id/user-ids", h.ListMemberIDs)
		api.POST("/projects/:id/shares", h.ShareProject)
		api.DELETE("/projects/:id/shares/:email", h.UnshareProject)
		api.GET("/projects/:id/tasks", h.ListProjectTasks)
		api.POST("/projects/:id/tasks", h.CreateTask)
		api.GET("/projects/:id/activities", h.ListProjectActivities)
		api.POST("/projects/:id/activities", h.AddActivity)
		api.GET("/projects/:id/files", h.ListFiles)
		api.POST("/projects/:id/files", h.UploadFile)

		api.GET("/tasks", h.ListMyTasks)
		api.GET("/tasks/:id", h.GetTask)
		api.GET("/tasks/:id/activities", h.ListTaskActivities)
		api.POST("/tasks/:id/attachments", h.AddAttachment)
		api.POST("/tasks/:id/messages", h.AddMessage)
		api.POST("/tasks/:id/subtasks/:subtask/complete", h.CompleteSubtask)
		api.POST("/tasks/:id/subtasks/:subtask/attachments", h.AddAttachment)
		api.POST("/tasks/:id/subtasks/:subtask/messages", h.AddMessage)

		api.GET("/files/:id", h.DownloadFile)
		api.DELETE("/files/:id", h.DeleteFile)

		api.GET("/activities", h.ListMyActivities)
		api.GET("/notifications/dead-letters", h.ListDeadLetters)
	}

	return router
}
