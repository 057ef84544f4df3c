package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"legal-timer/internal/repository"
	"legal-timer/internal/service"
)

var testDBSeq int

func newTestServer(t *testing.T) *Server {
	t.Helper()
	testDBSeq++
	dsn := fmt.Sprintf("file:apitest%d?mode=memory&cache=shared", testDBSeq)
	db, err := repository.NewDB(dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	users := repository.NewUserRepository(db)
	categories := repository.NewCategoryRepository(db)
	tasks := repository.NewTaskRepository(db)
	ledger := repository.NewSessionRepository(db)

	auth := service.NewAuthService(users, "test-secret", time.Hour, nil)
	taskSvc := service.NewTaskService(tasks, categories, ledger, nil)
	timer := service.NewTimerService(db, tasks, ledger, nil)
	reports := service.NewReportService(tasks, categories, ledger, nil)

	return NewServer(":0", auth, taskSvc, timer, reports, users, categories, nil)
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func registerAndLogin(t *testing.T, s *Server, email string) string {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "password": "correct-horse", "full_name": "Test User",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, s, http.MethodPost, "/auth/login", "", map[string]string{
		"email": email, "password": "correct-horse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	decodeBody(t, rec, &resp)
	return resp.AccessToken
}

func createTask(t *testing.T, s *Server, token, title string) uint {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/tasks", token, map[string]string{"title": title})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create task: status %d, body %s", rec.Code, rec.Body.String())
	}
	var task struct {
		ID uint `json:"id"`
	}
	decodeBody(t, rec, &task)
	return task.ID
}

func TestTimerFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "jane@example.com")
	taskA := createTask(t, s, token, "Task A")
	taskB := createTask(t, s, token, "Task B")

	rec := doJSON(t, s, http.MethodPost, fmt.Sprintf("/tasks/%d/start", taskA), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start A: status %d, body %s", rec.Code, rec.Body.String())
	}
	var startResp struct {
		StoppedTask *struct {
			ID    uint   `json:"id"`
			Title string `json:"title"`
		} `json:"stopped_task"`
	}
	decodeBody(t, rec, &startResp)
	if startResp.StoppedTask != nil {
		t.Errorf("first start must not report a stopped task")
	}

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/tasks/%d/start", taskB), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start B: status %d, body %s", rec.Code, rec.Body.String())
	}
	startResp.StoppedTask = nil
	decodeBody(t, rec, &startResp)
	if startResp.StoppedTask == nil || startResp.StoppedTask.ID != taskA {
		t.Errorf("expected start B to report A auto-stopped, got %+v", startResp.StoppedTask)
	}

	rec = doJSON(t, s, http.MethodGet, "/tasks/active", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("active: status %d", rec.Code)
	}
	var active struct {
		ID        uint `json:"id"`
		IsRunning bool `json:"is_running"`
	}
	decodeBody(t, rec, &active)
	if active.ID != taskB || !active.IsRunning {
		t.Errorf("expected task B active, got %+v", active)
	}

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/tasks/%d/stop", taskB), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop B: status %d, body %s", rec.Code, rec.Body.String())
	}

	// Stopping again distinguishes nothing-running as a 404.
	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/tasks/%d/stop", taskB), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for double stop, got %d", rec.Code)
	}
}

func TestErrorKinds(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "jane@example.com")

	cases := []struct {
		name       string
		method     string
		path       string
		token      string
		body       any
		wantStatus int
		wantKind   string
	}{
		{"no token", http.MethodGet, "/tasks", "", nil, http.StatusUnauthorized, "unauthenticated"},
		{"bad token", http.MethodGet, "/tasks", "garbage", nil, http.StatusUnauthorized, "unauthenticated"},
		{"missing task", http.MethodPost, "/tasks/999/start", token, nil, http.StatusNotFound, "not_found"},
		{"empty title", http.MethodPost, "/tasks", token, map[string]string{"title": ""}, http.StatusBadRequest, "invalid_input"},
		{"bad status filter", http.MethodGet, "/tasks?status=archived", token, nil, http.StatusBadRequest, "invalid_input"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, s, tc.method, tc.path, tc.token, tc.body)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status %d, want %d, body %s", rec.Code, tc.wantStatus, rec.Body.String())
			}
			var resp struct {
				Kind string `json:"kind"`
			}
			decodeBody(t, rec, &resp)
			if resp.Kind != tc.wantKind {
				t.Errorf("kind %q, want %q", resp.Kind, tc.wantKind)
			}
		})
	}
}

func TestOwnershipHiddenAsNotFound(t *testing.T) {
	s := newTestServer(t)
	janeToken := registerAndLogin(t, s, "jane@example.com")
	bobToken := registerAndLogin(t, s, "bob@example.com")
	janesTask := createTask(t, s, janeToken, "Jane's matter")

	rec := doJSON(t, s, http.MethodPost, fmt.Sprintf("/tasks/%d/start", janesTask), bobToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for foreign task, got %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/tasks/%d/complete", janesTask), bobToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for foreign complete, got %d", rec.Code)
	}
}

func TestCategoriesSeeded(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/categories", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("categories: status %d", rec.Code)
	}
	var categories []struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	decodeBody(t, rec, &categories)
	if len(categories) != 5 {
		t.Fatalf("expected 5 seeded categories, got %d", len(categories))
	}
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "jane@example.com")
	task := createTask(t, s, token, "Export me")

	rec := doJSON(t, s, http.MethodPost, fmt.Sprintf("/tasks/%d/start", task), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: status %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/tasks/%d/stop", task), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop: status %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/export/csv", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %q", ct)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("Export me")) {
		t.Errorf("expected exported task in body:\n%s", rec.Body.String())
	}
}
