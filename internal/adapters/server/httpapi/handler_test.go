package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/evanschultz/taskflow/internal/adapters/server/common"
	"github.com/evanschultz/taskflow/internal/adapters/storage/memory"
	"github.com/evanschultz/taskflow/internal/app"
	"github.com/evanschultz/taskflow/internal/domain"
	"github.com/evanschultz/taskflow/internal/report"
)

// failingBoard wraps a real adapter and fails every call with err.
type failingBoard struct {
	common.BoardService
	err error
}

// Board returns the configured error.
func (f failingBoard) Board(context.Context) (common.BoardView, error) {
	return common.BoardView{}, f.err
}

// newSeededHandler builds one handler over a seeded in-memory board with a fixed clock.
func newSeededHandler(t *testing.T) *Handler {
	t.Helper()
	return NewHandler(newSeededBoard(t))
}

// newSeededBoard builds one seeded board service.
func newSeededBoard(t *testing.T) common.BoardService {
	t.Helper()
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	n := 0
	svc := app.NewService(memory.New(), func() string {
		n++
		return "gen-" + strconv.Itoa(n)
	}, func() time.Time {
		return now
	}, app.ServiceConfig{})
	if err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	return common.NewAppServiceAdapter(svc, domain.Assignee{Name: "Alex Johnson"})
}

// serve runs one request through handler and returns the recorder.
func serve(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// decodeBody decodes one JSON response body into the requested type.
func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return out
}

// TestHandlerBoard verifies GET /board returns columns, tasks and the summary.
func TestHandlerBoard(t *testing.T) {
	rec := serve(newSeededHandler(t), http.MethodGet, "/board", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("content-type = %q", got)
	}
	view := decodeBody[common.BoardView](t, rec)
	if len(view.Columns) != 3 || view.Columns[2].ID != domain.StatusDone {
		t.Fatalf("unexpected columns %#v", view.Columns)
	}
	if view.Summary.CompletionRate != 33 || view.Summary.Total != 3 {
		t.Fatalf("unexpected summary %#v", view.Summary)
	}
}

// TestHandlerTaskLifecycle verifies create, get, patch, move and delete round trips.
func TestHandlerTaskLifecycle(t *testing.T) {
	handler := newSeededHandler(t)

	rec := serve(handler, http.MethodPost, "/tasks", `{"title":"Ship release","priority":"high","assignee":"Bob Smith"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[domain.Task](t, rec)
	if created.Status != domain.StatusTodo || created.Progress != 0 || !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("unexpected created task %#v", created)
	}

	rec = serve(handler, http.MethodGet, "/tasks/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = serve(handler, http.MethodPatch, "/tasks/"+created.ID, `{"progress":40,"description":"cut the tag"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", rec.Code, rec.Body.String())
	}
	patched := decodeBody[domain.Task](t, rec)
	if patched.Progress != 40 || patched.Title != "Ship release" || patched.ID != created.ID {
		t.Fatalf("unexpected patched task %#v", patched)
	}

	rec = serve(handler, http.MethodPost, "/tasks/"+created.ID+"/move", `{"status":"in-progress"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("move status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if moved := decodeBody[domain.Task](t, rec); moved.Status != domain.StatusInProgress {
		t.Fatalf("status = %q, want in-progress", moved.Status)
	}

	for range 2 {
		rec = serve(handler, http.MethodDelete, "/tasks/"+created.ID, "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("delete status = %d", rec.Code)
		}
	}
	rec = serve(handler, http.MethodGet, "/tasks/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
}

// TestHandlerListTasksAndColumns verifies list envelopes and column creation.
func TestHandlerListTasksAndColumns(t *testing.T) {
	handler := newSeededHandler(t)

	rec := serve(handler, http.MethodGet, "/tasks", "")
	tasks := decodeBody[map[string][]domain.Task](t, rec)
	if len(tasks["tasks"]) != 3 {
		t.Fatalf("expected 3 tasks, got %#v", tasks)
	}

	rec = serve(handler, http.MethodPost, "/columns", `{"title":"Backlog","color":"from-green-500 to-green-600"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create column status = %d, body = %s", rec.Code, rec.Body.String())
	}
	column := decodeBody[domain.Column](t, rec)
	if column.Order != 3 || column.Title != "Backlog" {
		t.Fatalf("unexpected column %#v", column)
	}

	rec = serve(handler, http.MethodGet, "/columns", "")
	columns := decodeBody[map[string][]domain.Column](t, rec)
	if got := columns["columns"]; len(got) != 4 || got[3].ID != column.ID {
		t.Fatalf("expected new column last, got %#v", got)
	}
}

// TestHandlerSummaryAndActivity verifies derived views.
func TestHandlerSummaryAndActivity(t *testing.T) {
	handler := newSeededHandler(t)

	rec := serve(handler, http.MethodGet, "/reports/summary", "")
	summary := decodeBody[report.Summary](t, rec)
	if summary.Done != 1 || summary.AverageProgress != 58 {
		t.Fatalf("unexpected summary %#v", summary)
	}

	_ = serve(handler, http.MethodPost, "/tasks/1/move", `{"status":"in-progress"}`)
	rec = serve(handler, http.MethodGet, "/activity", "")
	feed := decodeBody[common.ActivityFeed](t, rec)
	if feed.Source != "recorded" || len(feed.Entries) != 1 || feed.Entries[0].Type != report.EntryMoved {
		t.Fatalf("unexpected recorded feed %#v", feed)
	}

	rec = serve(handler, http.MethodGet, "/activity?source=synthesized&limit=1", "")
	feed = decodeBody[common.ActivityFeed](t, rec)
	if feed.Source != "synthesized" || len(feed.Entries) != 1 {
		t.Fatalf("unexpected synthesized feed %#v", feed)
	}
}

// TestHandlerErrorMapping verifies structured status mapping for failures.
func TestHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		method   string
		target   string
		body     string
		wantCode int
		wantErr  string
	}{
		{"empty title", http.MethodPost, "/tasks", `{"title":"  "}`, http.StatusBadRequest, "invalid_request"},
		{"unknown field", http.MethodPost, "/tasks", `{"title":"x","owner":"me"}`, http.StatusBadRequest, "invalid_request"},
		{"trailing json", http.MethodPost, "/tasks", `{"title":"x"}{}`, http.StatusBadRequest, "invalid_request"},
		{"bad progress", http.MethodPatch, "/tasks/1", `{"progress":150}`, http.StatusBadRequest, "invalid_request"},
		{"unknown column", http.MethodPost, "/tasks/1/move", `{"status":"archive"}`, http.StatusBadRequest, "invalid_request"},
		{"missing task", http.MethodPatch, "/tasks/404", `{"title":"x"}`, http.StatusNotFound, "not_found"},
		{"bad source", http.MethodGet, "/activity?source=gossip", "", http.StatusBadRequest, "invalid_request"},
		{"bad limit", http.MethodGet, "/activity?limit=-3", "", http.StatusBadRequest, "invalid_request"},
		{"unknown route", http.MethodGet, "/projects", "", http.StatusNotFound, "not_found"},
		{"unknown task action", http.MethodPost, "/tasks/1/archive", "", http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(newSeededHandler(t), tc.method, tc.target, tc.body)
			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.wantCode, rec.Body.String())
			}
			envelope := decodeBody[ErrorEnvelope](t, rec)
			if envelope.Error.Code != tc.wantErr {
				t.Fatalf("code = %q, want %q", envelope.Error.Code, tc.wantErr)
			}
		})
	}
}

// TestHandlerInternalError verifies unexpected failures map to 500.
func TestHandlerInternalError(t *testing.T) {
	handler := NewHandler(failingBoard{BoardService: newSeededBoard(t), err: errors.New("disk on fire")})
	rec := serve(handler, http.MethodGet, "/board", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	envelope := decodeBody[ErrorEnvelope](t, rec)
	if envelope.Error.Code != "internal_error" || !strings.Contains(envelope.Error.Message, "disk on fire") {
		t.Fatalf("unexpected envelope %#v", envelope)
	}
}

// TestHandlerMethodNotAllowed verifies 405 responses carry Allow headers.
func TestHandlerMethodNotAllowed(t *testing.T) {
	handler := newSeededHandler(t)
	cases := map[string]struct {
		method string
		target string
		allow  string
	}{
		"board":   {http.MethodPost, "/board", "GET"},
		"tasks":   {http.MethodPut, "/tasks", "GET, POST"},
		"task":    {http.MethodPost, "/tasks/1", "GET, PATCH, DELETE"},
		"move":    {http.MethodGet, "/tasks/1/move", "POST"},
		"summary": {http.MethodDelete, "/reports/summary", "GET"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := serve(handler, tc.method, tc.target, "")
			if rec.Code != http.StatusMethodNotAllowed {
				t.Fatalf("status = %d, want 405", rec.Code)
			}
			if got := rec.Header().Get("Allow"); got != tc.allow {
				t.Fatalf("Allow = %q, want %q", got, tc.allow)
			}
		})
	}
}

// TestHandlerWithoutBoard verifies a nil service fails closed.
func TestHandlerWithoutBoard(t *testing.T) {
	rec := serve(NewHandler(nil), http.MethodGet, "/board", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

// TestRouteLabel verifies task ids collapse into a placeholder.
func TestRouteLabel(t *testing.T) {
	cases := map[string]string{
		"/tasks/abc-123":      "tasks/{id}",
		"/tasks/abc-123/move": "tasks/{id}/move",
		"/tasks":              "tasks",
		"/board/":             "board",
	}
	for in, want := range cases {
		if got := RouteLabel(in); got != want {
			t.Fatalf("RouteLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
