package handle_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"github.com/yeisme/postvault/pkg/configs"
	ctxPkg "github.com/yeisme/postvault/pkg/context"
	"github.com/yeisme/postvault/pkg/internal/autosave"
	"github.com/yeisme/postvault/pkg/internal/handle"
	"github.com/yeisme/postvault/pkg/internal/model"
	"github.com/yeisme/postvault/pkg/internal/publisher"
	"github.com/yeisme/postvault/pkg/internal/router"
	"github.com/yeisme/postvault/pkg/internal/service"
	"github.com/yeisme/postvault/pkg/internal/storage"
	"github.com/yeisme/postvault/pkg/internal/storage/db"
	"github.com/yeisme/postvault/pkg/internal/types"
	"github.com/yeisme/postvault/pkg/middleware"
)

const alice = "alice@example.com"

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type server struct {
	engine *gin.Engine
	clock  *clockwork.FakeClock
	calls  *atomic.Int32
}

func newServer(t *testing.T) *server {
	t.Helper()

	gin.SetMode(gin.TestMode)
	configs.LoadDefaults()

	ctx := context.Background()

	c, err := db.OpenMemory(ctx, t.Name())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	t.Cleanup(func() { _ = c.Close() })

	mgr := &storage.Manager{DB: c}
	clock := clockwork.NewFakeClockAt(epoch)
	baseCtx := ctxPkg.WithClock(ctxPkg.WithStorageManager(ctx, mgr), clock)

	calls := &atomic.Int32{}
	reg := publisher.NewRegistry(&configs.PublisherConfig{}, publisher.Deps{})
	reg.Register("reddit", publisher.Func(func(_ context.Context, req publisher.Request) (publisher.Result, error) {
		calls.Add(1)

		return publisher.Result{RemoteID: "t3_" + req.FileID, RemoteURL: "https://reddit.example/" + req.FileID}, nil
	}), 0, 0)

	coord := autosave.New(service.NewFileService(baseCtx), autosave.WithClock(clock), autosave.WithBaseContext(baseCtx))
	t.Cleanup(func() { _ = coord.Close(ctx) })

	e := gin.New()
	e.Use(
		middleware.IdentityMiddleware(false, "/api/v1/health"),
		middleware.StorageMiddleware(mgr),
		middleware.LifecycleMiddleware(middleware.Lifecycle{Publishers: reg, Autosave: coord, Clock: clock}),
	)
	router.Register(e.Group("/api/v1"), router.Options{})

	return &server{engine: e, clock: clock, calls: calls}
}

func (s *server) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer

	if body != nil {
		b, err := sonic.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}

		buf.Write(b)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", alice)

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := sonic.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}

	return out
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()

	if w.Code != want {
		t.Fatalf("status = %d, want %d, body: %s", w.Code, want, w.Body.String())
	}
}

func (s *server) seed(t *testing.T, title string) (model.Project, model.File) {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/v1/projects", map[string]any{"name": "Launch", "budget": "99.95"})
	expectStatus(t, w, http.StatusCreated)
	p := decode[model.Project](t, w)

	w = s.do(t, http.MethodPost, "/api/v1/files", types.CreateFileRequest{
		ProjectID: p.ID,
		Name:      "post.md",
		Content:   "body",
		Platform:  "reddit",
		Title:     title,
	})
	expectStatus(t, w, http.StatusCreated)

	return p, decode[model.File](t, w)
}

func TestMissingUserIsUnauthorized(t *testing.T) {
	s := newServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	expectStatus(t, w, http.StatusUnauthorized)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	expectStatus(t, w, http.StatusOK)
}

func TestHealthComponents(t *testing.T) {
	s := newServer(t)

	cases := map[string]int{
		"/api/v1/health/db":   http.StatusOK,
		"/api/v1/health/s3":   http.StatusServiceUnavailable,
		"/api/v1/health/nope": http.StatusNotFound,
	}

	for path, want := range cases {
		w := httptest.NewRecorder()
		s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		expectStatus(t, w, want)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	report := decode[handle.HealthReport](t, w)
	if report.Components["db"].Status != "ok" || report.Components["kv"].Status != "disabled" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/projects", map[string]any{"name": "   "})
	expectStatus(t, w, http.StatusUnprocessableEntity)

	resp := decode[handle.ErrorResponse](t, w)
	if resp.Fields["name"] == "" {
		t.Fatalf("expected name field error, got %+v", resp)
	}
}

func TestProjectTrashRoundTrip(t *testing.T) {
	s := newServer(t)
	p, f := s.seed(t, "Hello")

	w := s.do(t, http.MethodDelete, "/api/v1/projects/"+p.ID, nil)
	expectStatus(t, w, http.StatusOK)
	snap := decode[types.RestoreResponse](t, w)

	expectStatus(t, s.do(t, http.MethodGet, "/api/v1/projects/"+p.ID, nil), http.StatusNotFound)
	expectStatus(t, s.do(t, http.MethodGet, "/api/v1/files/"+f.ID, nil), http.StatusNotFound)

	w = s.do(t, http.MethodGet, "/api/v1/trash/projects", nil)
	expectStatus(t, w, http.StatusOK)

	list := decode[types.DeletedProjectsResponse](t, w)
	if list.Total != 1 || list.Items[0].DeletedBy != alice || len(list.Items[0].AssociatedFiles) != 1 {
		t.Fatalf("unexpected deleted projects: %+v", list)
	}

	w = s.do(t, http.MethodGet, "/api/v1/trash/stats", nil)
	expectStatus(t, w, http.StatusOK)

	if stats := decode[types.TrashStats](t, w); stats.ProjectCount != 1 || stats.FileCount != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	w = s.do(t, http.MethodPost, "/api/v1/trash/projects/"+snap.ID+"/restore", nil)
	expectStatus(t, w, http.StatusOK)

	restored := decode[types.RestoreResponse](t, w)
	if restored.ID == "" || restored.ID == p.ID {
		t.Fatalf("restored project should get a fresh id, got %q", restored.ID)
	}

	w = s.do(t, http.MethodGet, "/api/v1/projects/"+restored.ID+"/files", nil)
	expectStatus(t, w, http.StatusOK)

	if files := decode[types.FileListResponse](t, w); files.Total != 1 || files.Items[0].Name != f.Name {
		t.Fatalf("unexpected restored files: %+v", files)
	}

	// 快照已消费
	expectStatus(t, s.do(t, http.MethodPost, "/api/v1/trash/projects/"+snap.ID+"/restore", nil), http.StatusNotFound)
}

func TestRestoreFileIntoMissingProjectConflicts(t *testing.T) {
	s := newServer(t)
	_, f := s.seed(t, "Hello")

	w := s.do(t, http.MethodDelete, "/api/v1/files/"+f.ID, map[string]string{"deleted_by": "moderator"})
	expectStatus(t, w, http.StatusOK)
	snap := decode[types.RestoreResponse](t, w)

	w = s.do(t, http.MethodGet, "/api/v1/trash/files?user_id=moderator", nil)
	expectStatus(t, w, http.StatusOK)

	if got := decode[types.DeletedFilesResponse](t, w); got.Total != 1 {
		t.Fatalf("deleted files total = %d, want 1", got.Total)
	}

	w = s.do(t, http.MethodPost, "/api/v1/trash/files/"+snap.ID+"/restore", types.RestoreFileRequest{TargetProjectID: "missing"})
	expectStatus(t, w, http.StatusConflict)

	expectStatus(t, s.do(t, http.MethodDelete, "/api/v1/trash/files/"+snap.ID, nil), http.StatusNoContent)
	expectStatus(t, s.do(t, http.MethodDelete, "/api/v1/trash/files/"+snap.ID, nil), http.StatusNotFound)
}

func TestSubmitInvalidPostReturnsFields(t *testing.T) {
	s := newServer(t)
	_, f := s.seed(t, "")

	w := s.do(t, http.MethodPost, "/api/v1/publish/"+f.ID+"/submit", nil)
	expectStatus(t, w, http.StatusUnprocessableEntity)

	if resp := decode[handle.ErrorResponse](t, w); resp.Fields["title"] == "" {
		t.Fatalf("expected title field error, got %+v", resp)
	}

	if n := s.calls.Load(); n != 0 {
		t.Fatalf("platform called %d times", n)
	}
}

func TestSubmitAndScheduleAfterPosted(t *testing.T) {
	s := newServer(t)
	_, f := s.seed(t, "Hello")

	w := s.do(t, http.MethodPost, "/api/v1/publish/"+f.ID+"/submit", nil)
	expectStatus(t, w, http.StatusOK)

	posted := decode[model.File](t, w)
	if posted.Status != model.StatusPosted || posted.PostID != "t3_"+f.ID {
		t.Fatalf("unexpected file after submit: %+v", posted)
	}

	w = s.do(t, http.MethodPost, "/api/v1/publish/"+f.ID+"/schedule", types.SchedulePostRequest{
		ScheduledAt: epoch.Add(time.Hour).Format(time.RFC3339),
	})
	expectStatus(t, w, http.StatusConflict)
}

func TestDraftSessionFlush(t *testing.T) {
	s := newServer(t)
	_, f := s.seed(t, "Hello")

	path := "/api/v1/drafts/" + f.ID

	// 未加载前的编辑被拒绝
	expectStatus(t, s.do(t, http.MethodPatch, path, map[string]string{"content": "early"}), http.StatusConflict)

	expectStatus(t, s.do(t, http.MethodPost, path+"/open", nil), http.StatusOK)

	w := s.do(t, http.MethodPatch, path, map[string]string{"content": "first"})
	expectStatus(t, w, http.StatusAccepted)
	expectStatus(t, s.do(t, http.MethodPatch, path, map[string]string{"content": "second", "title": "New"}), http.StatusAccepted)

	if st := decode[handle.DraftState](t, w); !st.Loaded || !st.Pending {
		t.Fatalf("unexpected draft state: %+v", st)
	}

	w = s.do(t, http.MethodPost, path+"/flush", nil)
	expectStatus(t, w, http.StatusOK)

	if st := decode[handle.DraftState](t, w); st.Pending {
		t.Fatalf("still pending after flush: %+v", st)
	}

	w = s.do(t, http.MethodGet, "/api/v1/files/"+f.ID, nil)
	expectStatus(t, w, http.StatusOK)

	if got := decode[model.File](t, w); got.Content != "second" || got.Title != "New" {
		t.Fatalf("draft not persisted: content=%q title=%q", got.Content, got.Title)
	}

	expectStatus(t, s.do(t, http.MethodDelete, path, nil), http.StatusNoContent)
}

func TestDeleteProjectDropsDraftSessions(t *testing.T) {
	s := newServer(t)
	p, f := s.seed(t, "Hello")

	path := "/api/v1/drafts/" + f.ID

	expectStatus(t, s.do(t, http.MethodPost, path+"/open", nil), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodPatch, path, map[string]string{"content": "unsaved"}), http.StatusAccepted)

	expectStatus(t, s.do(t, http.MethodDelete, "/api/v1/projects/"+p.ID, nil), http.StatusOK)

	w := s.do(t, http.MethodGet, path, nil)
	expectStatus(t, w, http.StatusOK)

	if st := decode[handle.DraftState](t, w); st.Loaded || st.Pending {
		t.Fatalf("draft session survived project deletion: %+v", st)
	}
}

func TestReconcileRequiresPositiveWindow(t *testing.T) {
	s := newServer(t)

	expectStatus(t, s.do(t, http.MethodPost, "/api/v1/publish/reconcile", map[string]int{"older_than_minutes": 0}), http.StatusUnprocessableEntity)

	w := s.do(t, http.MethodPost, "/api/v1/publish/reconcile", map[string]int{"older_than_minutes": 10})
	expectStatus(t, w, http.StatusOK)

	if got := decode[types.TrashActionResponse](t, w); got.Affected != 0 {
		t.Fatalf("affected = %d, want 0", got.Affected)
	}
}

func TestSchedulerUnavailable(t *testing.T) {
	s := newServer(t)

	expectStatus(t, s.do(t, http.MethodGet, "/api/v1/scheduler/jobs", nil), http.StatusServiceUnavailable)
}
