package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/postvault/pkg/internal/model"
	"github.com/yeisme/postvault/pkg/internal/storage/db"
)

func openDB(t *testing.T) *db.Client {
	t.Helper()

	c, err := db.OpenMemory(context.Background(), t.Name())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	t.Cleanup(func() { _ = c.Close() })

	return c
}

func file(id, project string, size int64) *model.File {
	return &model.File{ID: id, FileFields: model.FileFields{
		Name:      id + ".md",
		ProjectID: project,
		Size:      size,
		Status:    model.StatusDraft,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
}

func TestCRUD(t *testing.T) {
	ctx := context.Background()
	c := openDB(t)

	if _, err := db.Get[model.File](ctx, c, "nope"); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	for _, f := range []*model.File{file("a", "p1", 10), file("b", "p1", 20), file("c", "p2", 30)} {
		if err := db.Insert(ctx, c, f); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := db.Get[model.File](ctx, c, "b")
	if err != nil || got.Size != 20 {
		t.Fatalf("get = %+v, %v", got, err)
	}

	rows, err := db.Find[model.File](ctx, c, db.Query{Index: "project_id", Value: "p1", Order: "size DESC"})
	if err != nil || len(rows) != 2 || rows[0].ID != "b" {
		t.Fatalf("find = %+v, %v", rows, err)
	}

	n, _ := db.Count[model.File](ctx, c, db.Query{Where: "size > ?", Args: []any{15}})
	if n != 2 {
		t.Fatalf("count = %d", n)
	}

	if err := db.Delete[model.File](ctx, c, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if err := db.Delete[model.File](ctx, c, "a"); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}

	if _, err := db.First[model.File](ctx, c, db.Query{Index: "project_id", Value: "p9"}); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("first on empty set = %v", err)
	}
}

func TestConditionalUpdate(t *testing.T) {
	ctx := context.Background()
	c := openDB(t)

	_ = db.Insert(ctx, c, file("a", "p1", 1))

	claim := db.Query{Index: "id", Value: "a", Where: "status IN ?", Args: []any{[]model.PublishStatus{model.StatusDraft}}}

	n, err := db.Update[model.File](ctx, c, claim, map[string]any{"status": model.StatusPosting})
	if err != nil || n != 1 {
		t.Fatalf("first claim = %d, %v", n, err)
	}

	n, _ = db.Update[model.File](ctx, c, claim, map[string]any{"status": model.StatusPosting})
	if n != 0 {
		t.Fatalf("second claim must not match, got %d", n)
	}
}

func TestTxRollback(t *testing.T) {
	ctx := context.Background()
	c := openDB(t)

	boom := errors.New("boom")

	err := c.Tx(ctx, func(tx *db.Client) error {
		if err := db.Insert(ctx, tx, file("a", "p1", 1)); err != nil {
			return err
		}

		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := db.Get[model.File](ctx, c, "a"); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("insert should be rolled back, got %v", err)
	}

	removed, err := db.DeleteWhere[model.File](ctx, c, db.Query{Index: "project_id", Value: "p1"})
	if err != nil || removed != 0 {
		t.Fatalf("DeleteWhere = %d, %v", removed, err)
	}
}

func TestSaveAndSum(t *testing.T) {
	ctx := context.Background()
	c := openDB(t)

	f := file("a", "p1", 10)
	_ = db.Insert(ctx, c, f)
	_ = db.Insert(ctx, c, file("b", "p1", 32))

	f.PlatformSettings = model.PlatformSettings{Kind: model.KindLink, URL: "https://example.com"}
	f.Title = "hello"

	n, err := db.Save(ctx, c, db.Query{}, f, "title", "platform_settings")
	if err != nil || n != 1 {
		t.Fatalf("save = %d, %v", n, err)
	}

	got, _ := db.Get[model.File](ctx, c, "a")
	if got.Title != "hello" || got.PlatformSettings.URL != "https://example.com" {
		t.Fatalf("saved columns not persisted: %+v", got)
	}

	total, err := db.Sum[model.File](ctx, c, db.Query{Index: "project_id", Value: "p1"}, "size")
	if err != nil || total != 42 {
		t.Fatalf("sum = %d, %v", total, err)
	}

	none, _ := db.Sum[model.File](ctx, c, db.Query{Index: "project_id", Value: "zz"}, "size")
	if none != 0 {
		t.Fatalf("empty sum = %d", none)
	}
}
