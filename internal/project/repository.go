// Package project creates projects, shares them by email and resolves
// who may see them.
package project

import (
	"context"
	"strings"
	"time"

	"github.com/nhle/teamtrack/internal/apperr"
	"github.com/nhle/teamtrack/internal/identity"
	"github.com/nhle/teamtrack/internal/model"
)

// Store is the persistence the repository needs.
type Store interface {
	CreateProject(ctx context.Context, project model.Project) (model.Project, error)
	GetProjectByID(ctx context.Context, id string) (*model.Project, error)
	GetProjectsCreatedBy(ctx context.Context, userID model.UserID) ([]model.Project, error)
	GetProjectsSharedWith(ctx context.Context, email model.Email) ([]model.Project, error)
	AddProjectShares(ctx context.Context, projectID string, emails []model.Email) ([]model.Email, error)
	RemoveProjectShare(ctx context.Context, projectID string, email model.Email) error
	GetUserByID(ctx context.Context, id model.UserID) (*model.User, error)
	GetUsersByEmails(ctx context.Context, emails []model.Email) ([]model.User, error)
}

// Notifier is told about newly shared emails. It must not block and
// cannot fail the share.
type Notifier interface {
	NotifyShare(ctx context.Context, emails []model.Email, projectName string)
}

type nopNotifier struct{}

func (nopNotifier) NotifyShare(context.Context, []model.Email, string) {}

// Repository implements the project operations.
type Repository struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

// NewRepository creates a repository. A nil notifier disables share
// notifications.
func NewRepository(s Store, n Notifier) *Repository {
	if n == nil {
		n = nopNotifier{}
	}
	return &Repository{store: s, notifier: n, now: time.Now}
}

// SetClock overrides the clock used for defaulted due dates.
func (r *Repository) SetClock(now func() time.Time) {
	r.now = now
}

// CreateInput is the caller-supplied part of a new project.
type CreateInput struct {
	Name        string
	Description string
	// SharedWith holds invitee emails; each entry may itself be a comma
	// or whitespace separated list.
	SharedWith []string
	// DueDate is a calendar date or RFC 3339 timestamp. Empty means now.
	DueDate string
	// CreatedBy defaults to the session's user.
	CreatedBy   model.UserID
	Attachments []model.Attachment
}

// CreateProject validates and persists a project on behalf of sess and
// returns its id. Invitees are notified after the project is stored.
func (r *Repository) CreateProject(ctx context.Context, sess identity.Session, in CreateInput) (string, error) {
	const op = "creating project"
	if err := sess.Require(op); err != nil {
		return "", err
	}

	createdBy := in.CreatedBy
	if createdBy == "" {
		createdBy = sess.UserID
	}
	if createdBy != sess.UserID {
		return "", apperr.E(apperr.Forbidden, op, "cannot create a project on behalf of %s", createdBy)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", apperr.E(apperr.InvalidInput, op, "project name must not be empty")
	}

	due := r.now().UTC()
	if strings.TrimSpace(in.DueDate) != "" {
		d, err := model.ParseDate(in.DueDate)
		if err != nil {
			return "", apperr.Wrap(apperr.InvalidInput, op, err)
		}
		due = d
	}

	shared, err := model.ParseEmailList(in.SharedWith...)
	if err != nil {
		return "", apperr.Wrap(apperr.InvalidInput, op, err)
	}
	shared = without(shared, sess.Email)

	for _, a := range in.Attachments {
		if err := validateAttachment(op, a); err != nil {
			return "", err
		}
	}

	project, err := r.store.CreateProject(ctx, model.Project{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   createdBy,
		SharedWith:  shared,
		DueDate:     due,
		Attachments: in.Attachments,
	})
	if err != nil {
		return "", err
	}

	if len(shared) > 0 {
		r.notifier.NotifyShare(ctx, shared, project.Name)
	}
	return project.ID, nil
}

// FetchProjectsForUser returns every project the user created or was
// shared into. Ownership is matched by user id and sharing by email, so
// the two sets are queried separately and merged by project id. email is
// normalised before matching.
func (r *Repository) FetchProjectsForUser(
	ctx context.Context,
	userID model.UserID,
	email model.Email,
) ([]model.Project, error) {
	email = email.Normalize()
	projects := []model.Project{}
	seen := make(map[string]bool)
	add := func(ps []model.Project) {
		for _, p := range ps {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			projects = append(projects, p)
		}
	}

	if userID != "" {
		created, err := r.store.GetProjectsCreatedBy(ctx, userID)
		if err != nil {
			return nil, err
		}
		add(created)
	}

	if email != "" {
		shared, err := r.store.GetProjectsSharedWith(ctx, email)
		if err != nil {
			return nil, err
		}
		add(shared)
	}

	return projects, nil
}

// FetchProjectsForSession is FetchProjectsForUser for the session's user.
func (r *Repository) FetchProjectsForSession(ctx context.Context, sess identity.Session) ([]model.Project, error) {
	if err := sess.Require("fetching projects"); err != nil {
		return nil, err
	}
	return r.FetchProjectsForUser(ctx, sess.UserID, sess.Email)
}

// GetProject returns a single project.
func (r *Repository) GetProject(ctx context.Context, id string) (*model.Project, error) {
	return r.store.GetProjectByID(ctx, id)
}

// FetchProjectUserIDs returns the project's members as user ids: the
// creator first, then every registered user whose email is shared, in
// share order. Invitees who have not signed up yet are skipped.
func (r *Repository) FetchProjectUserIDs(ctx context.Context, projectID string) ([]model.UserID, error) {
	project, err := r.store.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	shared, err := r.sharedUsers(ctx, project)
	if err != nil {
		return nil, err
	}

	ids := []model.UserID{project.CreatedBy}
	for _, u := range shared {
		if u.ID != project.CreatedBy {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

// FetchProjectMembers returns the same members as FetchProjectUserIDs as
// user records.
func (r *Repository) FetchProjectMembers(ctx context.Context, projectID string) ([]model.User, error) {
	project, err := r.store.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	members := []model.User{}
	owner, err := r.store.GetUserByID(ctx, project.CreatedBy)
	switch {
	case err == nil:
		members = append(members, *owner)
	case !apperr.Is(err, apperr.NotFound):
		return nil, err
	}

	shared, err := r.sharedUsers(ctx, project)
	if err != nil {
		return nil, err
	}
	for _, u := range shared {
		if u.ID != project.CreatedBy {
			members = append(members, u)
		}
	}
	return members, nil
}

// sharedUsers resolves the project's shared emails to registered users,
// preserving share order.
func (r *Repository) sharedUsers(ctx context.Context, project *model.Project) ([]model.User, error) {
	users, err := r.store.GetUsersByEmails(ctx, project.SharedWith)
	if err != nil {
		return nil, err
	}

	byEmail := make(map[model.Email]model.User, len(users))
	for _, u := range users {
		byEmail[u.Email] = u
	}

	var ordered []model.User
	for _, e := range project.SharedWith {
		if u, ok := byEmail[e]; ok {
			ordered = append(ordered, u)
		}
	}
	return ordered, nil
}

// ShareProject adds emails to a project the session's user is a member
// of, and notifies only the emails that were not shared before. It
// returns the newly shared emails.
func (r *Repository) ShareProject(
	ctx context.Context,
	sess identity.Session,
	projectID string,
	emails ...string,
) ([]model.Email, error) {
	const op = "sharing project"
	if err := sess.Require(op); err != nil {
		return nil, err
	}

	parsed, err := model.ParseEmailList(emails...)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, op, err)
	}
	if len(parsed) == 0 {
		return nil, apperr.E(apperr.InvalidInput, op, "no emails to share with")
	}

	project, err := r.store.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.IsMember(sess.Member()) {
		return nil, apperr.E(apperr.Forbidden, op, "%s is not a member of project %s", sess.Email, projectID)
	}

	creatorEmail, err := r.creatorEmail(ctx, sess, project)
	if err != nil {
		return nil, err
	}

	added, err := r.store.AddProjectShares(ctx, projectID, without(parsed, creatorEmail))
	if err != nil {
		return nil, err
	}

	if len(added) > 0 {
		r.notifier.NotifyShare(ctx, added, project.Name)
	}
	return added, nil
}

// UnshareProject removes one email from a project. Only the creator may
// do this.
func (r *Repository) UnshareProject(
	ctx context.Context,
	sess identity.Session,
	projectID string,
	email string,
) error {
	const op = "unsharing project"
	if err := sess.Require(op); err != nil {
		return err
	}

	addr, err := model.ParseEmail(email)
	if err != nil {
		return apperr.Wrap(apperr.InvalidInput, op, err)
	}

	project, err := r.store.GetProjectByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project.CreatedBy != sess.UserID {
		return apperr.E(apperr.Forbidden, op, "only the creator can unshare project %s", projectID)
	}

	return r.store.RemoveProjectShare(ctx, projectID, addr)
}

// creatorEmail returns the project creator's email, or "" when the
// creator is not a registered user.
func (r *Repository) creatorEmail(ctx context.Context, sess identity.Session, project *model.Project) (model.Email, error) {
	if project.CreatedBy == sess.UserID {
		return sess.Email, nil
	}
	u, err := r.store.GetUserByID(ctx, project.CreatedBy)
	if apperr.Is(err, apperr.NotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

func validateAttachment(op string, a model.Attachment) error {
	if strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.URL) == "" {
		return apperr.E(apperr.InvalidInput, op, "attachment needs a name and a url")
	}
	return nil
}

// without returns emails minus drop, preserving order.
func without(emails []model.Email, drop model.Email) []model.Email {
	if drop == "" {
		return emails
	}
	out := emails[:0:0]
	for _, e := range emails {
		if e != drop {
			out = append(out, e)
		}
	}
	return out
}
