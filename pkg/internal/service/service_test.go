package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/yeisme/postvault/pkg/configs"
	ctxPkg "github.com/yeisme/postvault/pkg/context"
	"github.com/yeisme/postvault/pkg/internal/model"
	"github.com/yeisme/postvault/pkg/internal/publisher"
	"github.com/yeisme/postvault/pkg/internal/service"
	"github.com/yeisme/postvault/pkg/internal/storage"
	"github.com/yeisme/postvault/pkg/internal/storage/db"
	"github.com/yeisme/postvault/pkg/internal/types"
)

const day = 24 * time.Hour

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// env 一个测试用的完整运行环境：内存 sqlite、假时钟与存储管理器.
type env struct {
	ctx   context.Context
	mgr   *storage.Manager
	db    *db.Client
	clock *clockwork.FakeClock
}

func newEnv(t *testing.T) *env {
	t.Helper()

	configs.LoadDefaults()

	ctx := context.Background()

	c, err := db.OpenMemory(ctx, t.Name())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	t.Cleanup(func() { _ = c.Close() })

	e := &env{mgr: &storage.Manager{DB: c}, db: c, clock: clockwork.NewFakeClockAt(epoch)}
	e.ctx = ctxPkg.WithClock(ctxPkg.WithStorageManager(ctx, e.mgr), e.clock)

	return e
}

// withPublishers 注册以平台名路由的适配器.
func (e *env) withPublishers(pubs map[string]publisher.Publisher) {
	reg := publisher.NewRegistry(&configs.PublisherConfig{}, publisher.Deps{})
	for name, p := range pubs {
		reg.Register(name, p, 0, 0)
	}

	e.ctx = ctxPkg.WithPublishers(e.ctx, reg)
}

func (e *env) project(t *testing.T, owner, name string) *model.Project {
	t.Helper()

	p, err := service.NewProjectService(e.ctx).Create(e.ctx, owner, types.CreateProjectRequest{
		Name:   name,
		Status: "active",
		Budget: decimal.RequireFromString("1250.50"),
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	return p
}

func (e *env) file(t *testing.T, owner, projectID, name string, mod func(r *types.CreateFileRequest)) *model.File {
	t.Helper()

	req := types.CreateFileRequest{
		ProjectID: projectID,
		Name:      name,
		Content:   "hello " + name,
		Platform:  "reddit",
		Title:     "About " + name,
	}
	if mod != nil {
		mod(&req)
	}

	f, err := service.NewFileService(e.ctx).Create(e.ctx, owner, req)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}

	return f
}

func count[T any](t *testing.T, e *env, q db.Query) int64 {
	t.Helper()

	n, err := db.Count[T](e.ctx, e.db, q)
	if err != nil {
		t.Fatalf("count %T: %v", *new(T), err)
	}

	return n
}

func reload(t *testing.T, e *env, id string) *model.File {
	t.Helper()

	f, err := db.Get[model.File](e.ctx, e.db, id)
	if err != nil {
		t.Fatalf("get file %s: %v", id, err)
	}

	return f
}
