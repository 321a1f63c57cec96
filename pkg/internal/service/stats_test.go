package service_test

import (
	"testing"
	"time"

	"github.com/yeisme/postvault/pkg/internal/model"
	"github.com/yeisme/postvault/pkg/internal/publisher"
	"github.com/yeisme/postvault/pkg/internal/service"
	"github.com/yeisme/postvault/pkg/internal/types"
)

func TestStatsOverview(t *testing.T) {
	e := newEnv(t)
	e.withPublishers(map[string]publisher.Publisher{"reddit": &fakePlatform{}})

	p := e.project(t, "alice", "Launch")
	posted := e.file(t, "alice", p.ID, "a.md", func(r *types.CreateFileRequest) { r.Content = "1234" })
	e.file(t, "alice", p.ID, "b.md", func(r *types.CreateFileRequest) { r.Content = "12"; r.Platform = "" })
	gone := e.file(t, "alice", p.ID, "c.md", func(r *types.CreateFileRequest) { r.Content = "123" })
	e.project(t, "bob", "Elsewhere")

	if _, err := service.NewPublishService(e.ctx).Submit(e.ctx, posted.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := service.NewTrashService(e.ctx).DeleteFile(e.ctx, gone.ID, ""); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := service.NewStatsService(e.ctx).Overview(e.ctx, "alice")
	if err != nil {
		t.Fatalf("overview: %v", err)
	}

	if got.Projects != 1 || got.Files != 2 || got.TotalSize != 6 {
		t.Fatalf("unexpected totals %+v", got)
	}

	wantStatus := []types.StatsGroupItem{
		{Key: string(model.StatusDraft), Count: 1, Size: 2},
		{Key: string(model.StatusPosted), Count: 1, Size: 4},
	}
	if len(got.ByStatus) != len(wantStatus) || got.ByStatus[0] != wantStatus[0] || got.ByStatus[1] != wantStatus[1] {
		t.Fatalf("expected %+v, got %+v", wantStatus, got.ByStatus)
	}

	wantPlatform := []types.StatsGroupItem{
		{Key: "reddit", Count: 1, Size: 4},
		{Key: "unknown", Count: 1, Size: 2},
	}
	if len(got.ByPlatform) != len(wantPlatform) || got.ByPlatform[0] != wantPlatform[0] || got.ByPlatform[1] != wantPlatform[1] {
		t.Fatalf("expected %+v, got %+v", wantPlatform, got.ByPlatform)
	}

	if got.Trash.FileCount != 1 || got.Trash.TotalSize != 3 {
		t.Fatalf("unexpected trash stats %+v", got.Trash)
	}

	all, err := service.NewStatsService(e.ctx).Overview(e.ctx, "")
	if err != nil || all.Projects != 2 {
		t.Fatalf("expected both projects globally, got %+v %v", all, err)
	}
}

func TestPostedTrend(t *testing.T) {
	e := newEnv(t)
	e.withPublishers(map[string]publisher.Publisher{"reddit": &fakePlatform{}})

	p := e.project(t, "alice", "Launch")
	svc := service.NewPublishService(e.ctx)

	for i := range 3 {
		f := e.file(t, "alice", p.ID, "post.md", nil)
		if _, err := svc.Submit(e.ctx, f.ID); err != nil {
			t.Fatalf("submit: %v", err)
		}

		if i == 0 {
			e.clock.Advance(24 * time.Hour)
		}
	}

	trend, err := service.NewStatsService(e.ctx).PostedTrend(e.ctx, "alice", 3)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}

	want := []types.StatsTrendPoint{
		{Date: "2026-02-28", Count: 0},
		{Date: "2026-03-01", Count: 1},
		{Date: "2026-03-02", Count: 2},
	}

	if len(trend) != len(want) {
		t.Fatalf("expected %d points, got %+v", len(want), trend)
	}

	for i := range want {
		if trend[i] != want[i] {
			t.Fatalf("point %d: expected %+v, got %+v", i, want[i], trend[i])
		}
	}
}
