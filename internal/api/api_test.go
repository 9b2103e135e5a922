package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/nhle/teamtrack/internal/activity"
	"github.com/nhle/teamtrack/internal/api"
	"github.com/nhle/teamtrack/internal/files"
	"github.com/nhle/teamtrack/internal/identity"
	"github.com/nhle/teamtrack/internal/model"
	"github.com/nhle/teamtrack/internal/notify"
	"github.com/nhle/teamtrack/internal/project"
	"github.com/nhle/teamtrack/internal/task"
	"github.com/nhle/teamtrack/tests/testutil"
)

type nopGateway struct{}

func (nopGateway) Send(context.Context, model.ShareNotification) error { return nil }

func newTestRouter(t *testing.T, limiter api.Limiter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := testutil.NewTestStore(t)
	tokens, err := identity.NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	dispatcher := notify.NewDispatcher(s, nopGateway{}, notify.Options{})
	dispatcher.Start()
	t.Cleanup(dispatcher.Stop)

	return api.NewRouter(api.Deps{
		Auth:          identity.NewAuthenticator(s).WithCost(bcrypt.MinCost),
		Tokens:        tokens,
		Projects:      project.NewRepository(s, dispatcher),
		Tasks:         task.NewRepository(s),
		Activities:    activity.NewRepository(s),
		Files:         files.NewService(s, t.TempDir(), "", 1<<20),
		Push:          dispatcher,
		Limiter:       limiter,
		AuthRateLimit: 2,
	})
}

// call performs a JSON request and decodes the response into out when
// out is non-nil.
func call(t *testing.T, r http.Handler, method, path, token string, body, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if out != nil && w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decoding %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code
}

func signUp(t *testing.T, r http.Handler, email string) string {
	t.Helper()

	var resp struct {
		Token string `json:"token"`
	}
	code := call(t, r, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": email, "password": "secret1", "first_name": "Test", "last_name": "User",
	}, &resp)
	if code != http.StatusCreated || resp.Token == "" {
		t.Fatalf("signup %s: status %d", email, code)
	}
	return resp.Token
}

func TestProjectSharingFlow(t *testing.T) {
	r := newTestRouter(t, nil)
	alice := signUp(t, r, "alice@x.com")
	bob := signUp(t, r, "bob@x.com")
	carol := signUp(t, r, "carol@x.com")

	var created struct {
		ID string `json:"id"`
	}
	code := call(t, r, http.MethodPost, "/projects", alice, map[string]any{
		"name": "Launch", "shared_with": []string{"bob@x.com"}, "due_date": "2024-03-01",
	}, &created)
	if code != http.StatusCreated || created.ID == "" {
		t.Fatalf("create project: status %d", code)
	}

	var projects []model.Project
	if code := call(t, r, http.MethodGet, "/projects", bob, nil, &projects); code != http.StatusOK {
		t.Fatalf("bob list: status %d", code)
	}
	if len(projects) != 1 || projects[0].Name != "Launch" {
		t.Fatalf("bob sees %+v", projects)
	}

	if code := call(t, r, http.MethodGet, "/projects", carol, nil, &projects); code != http.StatusOK || len(projects) != 0 {
		t.Fatalf("carol list: status %d, %d projects", code, len(projects))
	}
	if code := call(t, r, http.MethodGet, "/projects/"+created.ID, carol, nil, nil); code != http.StatusForbidden {
		t.Errorf("carol get: status %d, want 403", code)
	}

	var ids []model.UserID
	if code := call(t, r, http.MethodGet, "/projects/"+created.ID+"/user-ids", bob, nil, &ids); code != http.StatusOK {
		t.Fatalf("user ids: status %d", code)
	}
	if len(ids) != 2 {
		t.Errorf("user ids = %v, want creator and bob", ids)
	}

	var shared struct {
		Added []model.Email `json:"added"`
	}
	code = call(t, r, http.MethodPost, "/projects/"+created.ID+"/shares", bob,
		map[string]any{"emails": []string{"carol@x.com"}}, &shared)
	if code != http.StatusOK || len(shared.Added) != 1 {
		t.Fatalf("share: status %d, added %v", code, shared.Added)
	}

	if code := call(t, r, http.MethodDelete, "/projects/"+created.ID+"/shares/carol@x.com", bob, nil, nil); code != http.StatusForbidden {
		t.Errorf("bob unshare: status %d, want 403", code)
	}
	if code := call(t, r, http.MethodDelete, "/projects/"+created.ID+"/shares/carol@x.com", alice, nil, nil); code != http.StatusNoContent {
		t.Errorf("alice unshare: status %d, want 204", code)
	}
}

func TestTaskAndActivityFlow(t *testing.T) {
	r := newTestRouter(t, nil)
	alice := signUp(t, r, "alice@x.com")

	var created struct {
		ID string `json:"id"`
	}
	call(t, r, http.MethodPost, "/projects", alice, map[string]any{"name": "Launch"}, &created)
	projectID := created.ID

	code := call(t, r, http.MethodPost, "/projects/"+projectID+"/tasks", alice, map[string]any{
		"name": "Design", "due_date": "2024-01-01",
		"subtasks": []map[string]string{{"name": "Wireframe"}},
	}, &created)
	if code != http.StatusCreated {
		t.Fatalf("create task: status %d", code)
	}
	taskID := created.ID

	if code := call(t, r, http.MethodPost, "/tasks/"+taskID+"/subtasks/subtask1/complete", alice, nil, nil); code != http.StatusNoContent {
		t.Fatalf("complete: status %d", code)
	}
	if code := call(t, r, http.MethodPost, "/tasks/"+taskID+"/subtasks/subtask1/messages", alice,
		map[string]string{"text": "done"}, nil); code != http.StatusCreated {
		t.Fatalf("message: status %d", code)
	}
	if code := call(t, r, http.MethodPost, "/tasks/"+taskID+"/subtasks/subtask9/messages", alice,
		map[string]string{"text": "lost"}, nil); code != http.StatusNotFound {
		t.Errorf("message to missing subtask: status %d, want 404", code)
	}

	var got model.Task
	if code := call(t, r, http.MethodGet, "/tasks/"+taskID, alice, nil, &got); code != http.StatusOK {
		t.Fatalf("get task: status %d", code)
	}
	st, ok := got.Subtask("subtask1")
	if !ok || !st.Completed || len(st.Messages) != 1 || st.Priority != model.PriorityMedium {
		t.Errorf("subtask1 = %+v", st)
	}

	code = call(t, r, http.MethodPost, "/projects/"+projectID+"/activities", alice, map[string]any{
		"type": "message", "content": "hi",
	}, nil)
	if code != http.StatusCreated {
		t.Fatalf("add activity: status %d", code)
	}
	var feed []model.Activity
	if code := call(t, r, http.MethodGet, "/projects/"+projectID+"/activities?max=3", alice, nil, &feed); code != http.StatusOK {
		t.Fatalf("feed: status %d", code)
	}
	if len(feed) != 1 || feed[0].Content != "hi" {
		t.Errorf("feed = %+v", feed)
	}

	if code := call(t, r, http.MethodPost, "/projects/"+projectID+"/tasks", alice,
		map[string]any{"name": ""}, nil); code != http.StatusBadRequest {
		t.Errorf("empty task name: status %d, want 400", code)
	}
}

func TestActivityForTaskInAnotherProjectIsRejected(t *testing.T) {
	r := newTestRouter(t, nil)
	alice := signUp(t, r, "alice@x.com")
	mallory := signUp(t, r, "mallory@x.com")

	var created struct {
		ID string `json:"id"`
	}
	call(t, r, http.MethodPost, "/projects", alice, map[string]any{"name": "Launch"}, &created)
	aliceProject := created.ID
	call(t, r, http.MethodPost, "/projects/"+aliceProject+"/tasks", alice, map[string]any{"name": "Design"}, &created)
	aliceTask := created.ID
	call(t, r, http.MethodPost, "/projects", mallory, map[string]any{"name": "Side"}, &created)
	malloryProject := created.ID

	code := call(t, r, http.MethodPost, "/projects/"+malloryProject+"/activities", mallory, map[string]any{
		"task_id": aliceTask, "type": "message", "content": "injected",
	}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("cross-project activity: status %d, want 400", code)
	}

	var feed []model.Activity
	if code := call(t, r, http.MethodGet, "/tasks/"+aliceTask+"/activities?max=10", alice, nil, &feed); code != http.StatusOK {
		t.Fatalf("task feed: status %d", code)
	}
	if len(feed) != 0 {
		t.Errorf("task feed = %+v, want empty", feed)
	}

	code = call(t, r, http.MethodPost, "/projects/"+aliceProject+"/activities", alice, map[string]any{
		"task_id": aliceTask, "type": "message", "content": "on track",
	}, nil)
	if code != http.StatusCreated {
		t.Fatalf("same-project activity: status %d, want 201", code)
	}
}

// upload posts content as the multipart "file" field.
func upload(t *testing.T, r http.Handler, path, token, name string, content []byte, out any) int {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if out != nil && w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("upload %s: decoding %q: %v", path, w.Body.String(), err)
		}
	}
	return w.Code
}

func TestFileUploadAndDownload(t *testing.T) {
	r := newTestRouter(t, nil)
	alice := signUp(t, r, "alice@x.com")
	bob := signUp(t, r, "bob@x.com")

	var created struct {
		ID string `json:"id"`
	}
	call(t, r, http.MethodPost, "/projects", alice, map[string]any{"name": "Launch"}, &created)
	projectID := created.ID

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	var uploaded struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		ContentType string `json:"content_type"`
		URL         string `json:"url"`
	}
	if code := upload(t, r, "/projects/"+projectID+"/files", alice, "screen.png", png, &uploaded); code != http.StatusCreated {
		t.Fatalf("upload: status %d", code)
	}
	if uploaded.ContentType != "image/png" || uploaded.URL != "/files/"+uploaded.ID {
		t.Errorf("uploaded = %+v", uploaded)
	}
	if code := upload(t, r, "/projects/"+projectID+"/files", bob, "x.png", png, nil); code != http.StatusForbidden {
		t.Errorf("non-member upload: status %d, want 403", code)
	}

	code := call(t, r, http.MethodPost, "/projects/"+projectID+"/activities", alice, map[string]any{
		"type": "image", "content": "mockup", "file_url": uploaded.URL, "file_name": uploaded.Name,
	}, nil)
	if code != http.StatusCreated {
		t.Fatalf("image activity: status %d", code)
	}

	req := httptest.NewRequest(http.MethodGet, uploaded.URL, nil)
	req.Header.Set("Authorization", "Bearer "+alice)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !bytes.Equal(w.Body.Bytes(), png) {
		t.Fatalf("download: status %d, %d bytes", w.Code, w.Body.Len())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}

	if code := call(t, r, http.MethodGet, uploaded.URL, bob, nil, nil); code != http.StatusForbidden {
		t.Errorf("non-member download: status %d, want 403", code)
	}
	if code := call(t, r, http.MethodDelete, uploaded.URL, bob, nil, nil); code != http.StatusForbidden {
		t.Errorf("non-member delete: status %d, want 403", code)
	}
	if code := call(t, r, http.MethodDelete, uploaded.URL, alice, nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete: status %d", code)
	}
	if code := call(t, r, http.MethodGet, uploaded.URL, alice, nil, nil); code != http.StatusNotFound {
		t.Errorf("download after delete: status %d, want 404", code)
	}
}

func TestAuthRequired(t *testing.T) {
	r := newTestRouter(t, nil)

	if code := call(t, r, http.MethodGet, "/projects", "", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("no token: status %d, want 401", code)
	}
	if code := call(t, r, http.MethodGet, "/projects", "garbage", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("bad token: status %d, want 401", code)
	}

	signUp(t, r, "alice@x.com")
	code := call(t, r, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@x.com", "password": "wrong-pass",
	}, nil)
	if code != http.StatusUnauthorized {
		t.Errorf("wrong password: status %d, want 401", code)
	}
}

func TestRegisterPushToken(t *testing.T) {
	r := newTestRouter(t, nil)
	alice := signUp(t, r, "alice@x.com")

	if code := call(t, r, http.MethodPut, "/me/push-token", alice, map[string]string{"token": "tok"}, nil); code != http.StatusNoContent {
		t.Errorf("register: status %d, want 204", code)
	}
	if code := call(t, r, http.MethodPut, "/me/push-token", alice, map[string]string{"token": ""}, nil); code != http.StatusBadRequest {
		t.Errorf("empty token: status %d, want 400", code)
	}
}

// countingLimiter allows the first n requests.
type countingLimiter struct {
	n     int
	count int
	err   error
}

func (l *countingLimiter) Allow(context.Context, string, int, time.Duration) (bool, int, error) {
	if l.err != nil {
		return false, 0, l.err
	}
	l.count++
	return l.count <= l.n, l.count, nil
}

func TestAuthRateLimit(t *testing.T) {
	r := newTestRouter(t, &countingLimiter{n: 2})
	body := map[string]string{"email": "alice@x.com", "password": "whatever"}

	for i := 0; i < 2; i++ {
		if code := call(t, r, http.MethodPost, "/auth/login", "", body, nil); code == http.StatusTooManyRequests {
			t.Fatalf("request %d was rate limited", i+1)
		}
	}
	if code := call(t, r, http.MethodPost, "/auth/login", "", body, nil); code != http.StatusTooManyRequests {
		t.Fatalf("third request: status %d, want 429", code)
	}

	r = newTestRouter(t, &countingLimiter{err: errors.New("redis down")})
	if code := call(t, r, http.MethodPost, "/auth/login", "", body, nil); code != http.StatusInternalServerError {
		t.Fatalf("limiter failure: status %d, want 500", code)
	}
}
