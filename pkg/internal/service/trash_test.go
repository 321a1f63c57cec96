package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	ctxPkg "github.com/yeisme/postvault/pkg/context"
	"github.com/yeisme/postvault/pkg/internal/model"
	"github.com/yeisme/postvault/pkg/internal/service"
	"github.com/yeisme/postvault/pkg/internal/storage"
	"github.com/yeisme/postvault/pkg/internal/storage/db"
	"github.com/yeisme/postvault/pkg/internal/storage/kv"
	"github.com/yeisme/postvault/pkg/internal/storage/mq"
	"github.com/yeisme/postvault/pkg/internal/types"
	"github.com/yeisme/postvault/pkg/queue"
)

func TestDeleteAndRestoreProject(t *testing.T) {
	e := newEnv(t)
	trash := service.NewTrashService(e.ctx)

	p := e.project(t, "alice", "Launch")
	e.file(t, "alice", p.ID, "A.md", nil)
	e.file(t, "alice", p.ID, "B.png", nil)

	snapID, err := trash.DeleteProject(e.ctx, p.ID, "")
	if err != nil {
		t.Fatalf("delete project: %v", err)
	}

	snap, err := db.Get[model.TrashedProject](e.ctx, e.db, snapID)
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}

	if len(snap.AssociatedFiles) != 2 {
		t.Fatalf("expected 2 associated files, got %d", len(snap.AssociatedFiles))
	}

	if snap.DeletedBy != "alice" || snap.OriginalID != p.ID || !snap.DeletedAt.Equal(epoch) {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if n := count[model.File](t, e, db.Query{Index: "project_id", Value: p.ID}); n != 0 {
		t.Fatalf("expected no live files, got %d", n)
	}

	if n := count[model.Project](t, e, db.Query{}); n != 0 {
		t.Fatalf("expected no live projects, got %d", n)
	}

	trashed, err := db.Find[model.TrashedFile](e.ctx, e.db, db.Query{})
	if err != nil {
		t.Fatalf("find trashed files: %v", err)
	}

	if len(trashed) != 2 {
		t.Fatalf("expected 2 trashed files, got %d", len(trashed))
	}

	for _, tf := range trashed {
		if tf.ProjectID != p.ID || tf.ParentProjectName != "Launch" {
			t.Fatalf("trashed file lost its project reference: %+v", tf)
		}
	}

	e.clock.Advance(time.Hour)

	newID, err := trash.RestoreProject(e.ctx, snapID)
	if err != nil {
		t.Fatalf("restore project: %v", err)
	}

	if newID == p.ID {
		t.Fatal("restored project must get a new id")
	}

	restored, err := db.Get[model.Project](e.ctx, e.db, newID)
	if err != nil {
		t.Fatalf("get restored project: %v", err)
	}

	if restored.Name != "Launch" || restored.Status != "active" || !restored.Budget.Equal(p.Budget) {
		t.Fatalf("restored project fields differ: %+v", restored.ProjectFields)
	}

	if !restored.UpdatedAt.Equal(epoch.Add(time.Hour)) {
		t.Fatalf("expected updated_at to be the restore time, got %v", restored.UpdatedAt)
	}

	if n := count[model.File](t, e, db.Query{Index: "project_id", Value: newID}); n != 2 {
		t.Fatalf("expected 2 files under the new project, got %d", n)
	}

	if n := count[model.TrashedProject](t, e, db.Query{}); n != 0 {
		t.Fatalf("expected empty project trash, got %d", n)
	}

	if n := count[model.TrashedFile](t, e, db.Query{}); n != 0 {
		t.Fatalf("expected empty file trash, got %d", n)
	}
}

func TestDeleteProjectNotFound(t *testing.T) {
	e := newEnv(t)

	_, err := service.NewTrashService(e.ctx).DeleteProject(e.ctx, "missing", "alice")
	if !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteFileWithoutParent(t *testing.T) {
	e := newEnv(t)
	trash := service.NewTrashService(e.ctx)

	p := e.project(t, "alice", "Launch")
	f := e.file(t, "alice", p.ID, "A.md", nil)

	// 父项目被直接移除，文件仍可删除，使用占位名称
	if err := db.Delete[model.Project](e.ctx, e.db, p.ID); err != nil {
		t.Fatalf("delete project row: %v", err)
	}

	snapID, err := trash.DeleteFile(e.ctx, f.ID, "bob")
	if err != nil {
		t.Fatalf("delete file: %v", err)
	}

	snap, err := db.Get[model.TrashedFile](e.ctx, e.db, snapID)
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}

	if snap.ParentProjectName != "Unknown Project" || snap.DeletedBy != "bob" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestRestoreFileTargetMissing(t *testing.T) {
	e := newEnv(t)
	trash := service.NewTrashService(e.ctx)

	p := e.project(t, "alice", "Launch")
	keep := e.project(t, "alice", "Keep")
	f := e.file(t, "alice", p.ID, "A.md", nil)

	snapID, err := trash.DeleteFile(e.ctx, f.ID, "alice")
	if err != nil {
		t.Fatalf("delete file: %v", err)
	}

	if _, err := trash.DeleteProject(e.ctx, p.ID, "alice"); err != nil {
		t.Fatalf("delete project: %v", err)
	}

	// 原项目已在回收站中
	if _, err := trash.RestoreFile(e.ctx, snapID, ""); !errors.Is(err, service.ErrTargetMissing) {
		t.Fatalf("expected ErrTargetMissing, got %v", err)
	}

	if _, err := db.Get[model.TrashedFile](e.ctx, e.db, snapID); err != nil {
		t.Fatalf("snapshot must stay in trash: %v", err)
	}

	fileID, err := trash.RestoreFile(e.ctx, snapID, keep.ID)
	if err != nil {
		t.Fatalf("restore into other project: %v", err)
	}

	if got := reload(t, e, fileID); got.ProjectID != keep.ID || got.Name != "A.md" {
		t.Fatalf("unexpected restored file %+v", got.FileFields)
	}
}

func TestPermanentDeleteThenRestore(t *testing.T) {
	e := newEnv(t)
	trash := service.NewTrashService(e.ctx)

	p := e.project(t, "alice", "Launch")
	f := e.file(t, "alice", p.ID, "A.md", nil)

	snapID, err := trash.DeleteFile(e.ctx, f.ID, "alice")
	if err != nil {
		t.Fatalf("delete file: %v", err)
	}

	if err := trash.PermanentlyDeleteFile(e.ctx, snapID); err != nil {
		t.Fatalf("purge file: %v", err)
	}

	if _, err := trash.RestoreFile(e.ctx, snapID, p.ID); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := trash.PermanentlyDeleteFile(e.ctx, snapID); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second purge, got %v", err)
	}
}

func TestPermanentlyDeleteProjectCascades(t *testing.T) {
	e := newEnv(t)
	trash := service.NewTrashService(e.ctx)

	p := e.project(t, "alice", "Launch")
	e.file(t, "alice", p.ID, "A.md", nil)
	e.file(t, "alice", p.ID, "B.md", nil)

	snapID, err := trash.DeleteProject(e.ctx, p.ID, "alice")
	if err != nil {
		t.Fatalf("delete project: %v", err)
	}

	if err := trash.PermanentlyDeleteProject(e.ctx, snapID); err != nil {
		t.Fatalf("purge project: %v", err)
	}

	if n := count[model.TrashedFile](t, e, db.Query{}); n != 0 {
		t.Fatalf("expected file snapshots purged with the project, got %d", n)
	}
}

func TestCleanupExpiredTrash(t *testing.T) {
	e := newEnv(t)
	trash := service.NewTrashService(e.ctx)

	p := e.project(t, "alice", "Launch")
	old := e.file(t, "alice", p.ID, "old.md", nil)
	young := e.file(t, "alice", p.ID, "young.md", nil)

	oldSnap, err := trash.DeleteFile(e.ctx, old.ID, "alice")
	if err != nil {
		t.Fatalf("delete old: %v", err)
	}

	e.clock.Advance(2 * day)

	youngSnap, err := trash.DeleteFile(e.ctx, young.ID, "alice")
	if err != nil {
		t.Fatalf("delete young: %v", err)
	}

	// old 已删除 31 天，young 29 天
	e.clock.Advance(29 * day)

	res, err := trash.CleanupExpiredTrash(e.ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if res.DeletedFiles != 1 || res.DeletedProjects != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	if _, err := db.Get[model.TrashedFile](e.ctx, e.db, oldSnap); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected 31-day-old snapshot removed, got %v", err)
	}

	if _, err := db.Get[model.TrashedFile](e.ctx, e.db, youngSnap); err != nil {
		t.Fatalf("expected 29-day-old snapshot retained: %v", err)
	}

	again, err := trash.CleanupExpiredTrash(e.ctx)
	if err != nil || again.DeletedFiles != 0 {
		t.Fatalf("second cleanup should be a no-op: %+v %v", again, err)
	}
}

func TestCleanupExactlyThirtyDaysIsKept(t *testing.T) {
	e := newEnv(t)
	trash := service.NewTrashService(e.ctx)

	p := e.project(t, "alice", "Launch")
	e.file(t, "alice", p.ID, "A.md", nil)

	snapID, err := trash.DeleteProject(e.ctx, p.ID, "alice")
	if err != nil {
		t.Fatalf("delete project: %v", err)
	}

	e.clock.Advance(30 * day)

	res, err := trash.CleanupExpiredTrash(e.ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if res.DeletedProjects != 0 || res.DeletedFiles != 0 {
		t.Fatalf("item aged exactly 30 days must not expire, got %+v", res)
	}

	e.clock.Advance(time.Millisecond)

	res, err = trash.CleanupExpiredTrash(e.ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if res.DeletedProjects != 1 || res.DeletedFiles != 1 {
		t.Fatalf("expected project and its file purged, got %+v", res)
	}

	if _, err := db.Get[model.TrashedProject](e.ctx, e.db, snapID); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected snapshot removed, got %v", err)
	}
}

func TestEmptyTrash(t *testing.T) {
	e := newEnv(t)
	trash := service.NewTrashService(e.ctx)

	a := e.project(t, "alice", "A")
	b := e.project(t, "bob", "B")
	e.file(t, "alice", a.ID, "a.md", nil)
	bf := e.file(t, "bob", b.ID, "b.md", nil)

	if _, err := trash.DeleteProject(e.ctx, a.ID, ""); err != nil {
		t.Fatalf("delete a: %v", err)
	}

	if _, err := trash.DeleteFile(e.ctx, bf.ID, ""); err != nil {
		t.Fatalf("delete b file: %v", err)
	}

	if _, err := trash.EmptyTrash(e.ctx, ""); !errors.Is(err, service.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	res, err := trash.EmptyTrash(e.ctx, "alice")
	if err != nil {
		t.Fatalf("empty trash: %v", err)
	}

	if res.DeletedProjects != 1 || res.DeletedFiles != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	if n := count[model.TrashedFile](t, e, db.Query{}); n != 1 {
		t.Fatalf("bob's snapshot must survive, got %d", n)
	}
}

func TestGetDeletedFilesFilterPrecedence(t *testing.T) {
	e := newEnv(t)
	trash := service.NewTrashService(e.ctx)

	p := e.project(t, "alice", "Launch")
	q := e.project(t, "alice", "Other")
	f1 := e.file(t, "alice", p.ID, "1.md", nil)
	f2 := e.file(t, "alice", p.ID, "2.md", nil)
	f3 := e.file(t, "alice", q.ID, "3.md", nil)

	for _, del := range []struct{ id, by string }{{f1.ID, "alice"}, {f2.ID, "bob"}, {f3.ID, "alice"}} {
		if _, err := trash.DeleteFile(e.ctx, del.id, del.by); err != nil {
			t.Fatalf("delete %s: %v", del.id, err)
		}

		e.clock.Advance(time.Minute)
	}

	tests := []struct {
		name  string
		query types.TrashListQuery
		want  []string
	}{
		{"global", types.TrashListQuery{}, []string{f3.ID, f2.ID, f1.ID}},
		{"project", types.TrashListQuery{ProjectID: p.ID}, []string{f2.ID, f1.ID}},
		{"user", types.TrashListQuery{UserID: "alice"}, []string{f3.ID, f1.ID}},
		// 两者都给出时只按用户过滤
		{"user wins", types.TrashListQuery{UserID: "bob", ProjectID: q.ID}, []string{f2.ID}},
		{"limit", types.TrashListQuery{Limit: 1}, []string{f3.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := trash.GetDeletedFiles(e.ctx, tt.query)
			if err != nil {
				t.Fatalf("list: %v", err)
			}

			if len(got) != len(tt.want) {
				t.Fatalf("expected %d rows, got %d", len(tt.want), len(got))
			}

			for i := range got {
				if got[i].OriginalID != tt.want[i] {
					t.Fatalf("row %d: expected %s, got %s", i, tt.want[i], got[i].OriginalID)
				}
			}
		})
	}
}

func TestGetDeletedProjectsOrder(t *testing.T) {
	e := newEnv(t)
	trash := service.NewTrashService(e.ctx)

	first := e.project(t, "alice", "first")
	second := e.project(t, "bob", "second")

	if _, err := trash.DeleteProject(e.ctx, first.ID, ""); err != nil {
		t.Fatalf("delete first: %v", err)
	}

	e.clock.Advance(time.Minute)

	if _, err := trash.DeleteProject(e.ctx, second.ID, ""); err != nil {
		t.Fatalf("delete second: %v", err)
	}

	all, err := trash.GetDeletedProjects(e.ctx, "", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(all) != 2 || all[0].Name != "second" || all[1].Name != "first" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	mine, err := trash.GetDeletedProjects(e.ctx, "alice", 0)
	if err != nil {
		t.Fatalf("list alice: %v", err)
	}

	if len(mine) != 1 || mine[0].Name != "first" {
		t.Fatalf("expected alice's project only, got %+v", mine)
	}
}

func TestTrashStatsNearExpiry(t *testing.T) {
	e := newEnv(t)
	trash := service.NewTrashService(e.ctx)

	p := e.project(t, "alice", "Launch")
	f := e.file(t, "alice", p.ID, "A.md", func(r *types.CreateFileRequest) { r.Content = "12345" })

	if _, err := trash.DeleteFile(e.ctx, f.ID, "alice"); err != nil {
		t.Fatalf("delete file: %v", err)
	}

	e.clock.Advance(25*day - time.Minute)

	stats, err := trash.GetTrashStats(e.ctx, "alice")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	want := types.TrashStats{FileCount: 1, TotalSize: 5, OldestItemAgeDays: 24}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}

	e.clock.Advance(time.Minute)

	stats, err = trash.GetTrashStats(e.ctx, "alice")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if stats.ItemsNearExpiryCount != 1 || stats.OldestItemAgeDays != 25 {
		t.Fatalf("expected one item near expiry at 25 days, got %+v", stats)
	}

	other, err := trash.GetTrashStats(e.ctx, "bob")
	if err != nil {
		t.Fatalf("stats bob: %v", err)
	}

	if other != (types.TrashStats{}) {
		t.Fatalf("expected empty stats for bob, got %+v", other)
	}
}

func TestTrashStatsCacheInvalidation(t *testing.T) {
	e := newEnv(t)

	store, err := kv.NewMemoryKV(e.ctx, nil)
	if err != nil {
		t.Fatalf("memory kv: %v", err)
	}

	e.mgr.KV = &kv.Client{KVStore: store}
	trash := service.NewTrashService(e.ctx)

	p := e.project(t, "alice", "Launch")
	a := e.file(t, "alice", p.ID, "a.md", nil)
	b := e.file(t, "alice", p.ID, "b.md", nil)

	if _, err := trash.DeleteFile(e.ctx, a.ID, ""); err != nil {
		t.Fatalf("delete a: %v", err)
	}

	stats, err := trash.GetTrashStats(e.ctx, "")
	if err != nil || stats.FileCount != 1 {
		t.Fatalf("expected 1 file, got %+v %v", stats, err)
	}

	keys, err := store.Keys(e.ctx, "trash-stats.*")
	if err != nil || len(keys) != 1 {
		t.Fatalf("expected one cached entry, got %v %v", keys, err)
	}

	// 同一分钟内的删除也必须反映到统计中
	if _, err := trash.DeleteFile(e.ctx, b.ID, ""); err != nil {
		t.Fatalf("delete b: %v", err)
	}

	stats, err = trash.GetTrashStats(e.ctx, "")
	if err != nil || stats.FileCount != 2 {
		t.Fatalf("expected 2 files after invalidation, got %+v %v", stats, err)
	}
}

func TestTrashEvents(t *testing.T) {
	e := newEnv(t)

	ps := mq.NewMemoryPubSub(nil)
	t.Cleanup(func() { _ = ps.Close() })

	e.mgr.MQ = mq.NewWithPubSub(ps, ps)

	ctx, cancel := context.WithCancel(e.ctx)
	defer cancel()

	msgs, err := e.mgr.MQ.Subscribe(ctx, queue.TopicProjectTrashed)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	p := e.project(t, "alice", "Launch")
	e.file(t, "alice", p.ID, "A.md", nil)
	e.file(t, "alice", p.ID, "B.md", nil)

	snapID, err := service.NewTrashService(e.ctx).DeleteProject(e.ctx, p.ID, "")
	if err != nil {
		t.Fatalf("delete project: %v", err)
	}

	var msg *message.Message

	select {
	case msg = <-msgs:
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("no project trashed event")
	}

	ev, err := queue.ProjectTrashed.Parse(msg)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if ev.Payload.SnapshotID != snapID || len(ev.Payload.FileIDs) != 2 || ev.Payload.DeletedBy != "alice" {
		t.Fatalf("unexpected payload %+v", ev.Payload)
	}

	if !ev.Header.OccurredAt.Equal(epoch) {
		t.Fatalf("expected event time from the injected clock, got %v", ev.Header.OccurredAt)
	}
}

func TestNoStorage(t *testing.T) {
	ctx := ctxPkg.WithStorageManager(context.Background(), &storage.Manager{})

	if _, err := service.NewTrashService(ctx).GetTrashStats(ctx, ""); !errors.Is(err, service.ErrNoStorage) {
		t.Fatalf("expected ErrNoStorage, got %v", err)
	}
}
