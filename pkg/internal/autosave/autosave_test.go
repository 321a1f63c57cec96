package autosave_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yeisme/postvault/pkg/internal/autosave"
	"github.com/yeisme/postvault/pkg/internal/model"
	"github.com/yeisme/postvault/pkg/internal/types"
)

type write struct {
	fileID string
	draft  types.FileDraft
}

// recorder 记录每次写入，并通过 channel 通知测试.
type recorder struct {
	mu     sync.Mutex
	writes []write
	ch     chan write
	err    error
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan write, 16)}
}

func (r *recorder) SaveDraft(_ context.Context, fileID string, d types.FileDraft) error {
	r.mu.Lock()
	r.writes = append(r.writes, write{fileID, d})
	err := r.err
	r.mu.Unlock()

	r.ch <- write{fileID, d}

	return err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.writes)
}

func (r *recorder) wait(t *testing.T) write {
	t.Helper()

	select {
	case w := <-r.ch:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for autosave write")
	}

	return write{}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()

	select {
	case w := <-r.ch:
		t.Fatalf("unexpected write: %+v", w)
	case <-time.After(50 * time.Millisecond):
	}
}

func str(s string) *string { return &s }

func newCoordinator(r *recorder) (*autosave.Coordinator, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	c := autosave.New(r, autosave.WithClock(clock), autosave.WithQuietPeriod(time.Second))

	return c, clock
}

// TestEditBeforeLoadIsRejected 未加载完成前的编辑不会触发写入.
func TestEditBeforeLoadIsRejected(t *testing.T) {
	r := newRecorder()
	c, clock := newCoordinator(r)

	if err := c.Edit("f1", types.FileDraft{Content: str("")}); !errors.Is(err, autosave.ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}

	clock.Advance(5 * time.Second)
	r.none(t)

	if c.Pending("f1") {
		t.Fatal("rejected edit must not be buffered")
	}
}

// TestBurstCoalescesToOneWrite 静默期内的多次编辑只产生一次写入，内容为最新值.
func TestBurstCoalescesToOneWrite(t *testing.T) {
	r := newRecorder()
	c, clock := newCoordinator(r)
	c.MarkLoaded("f1")

	for _, v := range []string{"a", "ab", "abc"} {
		if err := c.Edit("f1", types.FileDraft{Content: str(v)}); err != nil {
			t.Fatalf("edit: %v", err)
		}

		clock.Advance(500 * time.Millisecond)
	}

	r.none(t)

	clock.Advance(499 * time.Millisecond)
	r.none(t)

	clock.Advance(time.Millisecond)

	w := r.wait(t)
	if w.fileID != "f1" || w.draft.Content == nil || *w.draft.Content != "abc" {
		t.Fatalf("unexpected write %+v", w)
	}

	clock.Advance(10 * time.Second)
	r.none(t)

	if r.count() != 1 {
		t.Fatalf("expected exactly one write, got %d", r.count())
	}
}

// TestFieldsMergeLastWriteWins 不同字段的编辑合并为一次写入.
func TestFieldsMergeLastWriteWins(t *testing.T) {
	r := newRecorder()
	c, clock := newCoordinator(r)
	c.MarkLoaded("f1")

	settings := &model.PlatformSettings{Kind: model.KindLink, URL: "https://example.com"}

	_ = c.Edit("f1", types.FileDraft{Title: str("draft title")})
	_ = c.Edit("f1", types.FileDraft{Content: str("body")})
	_ = c.Edit("f1", types.FileDraft{Title: str("final title"), PlatformSettings: settings})

	clock.Advance(time.Second)

	w := r.wait(t)
	if *w.draft.Title != "final title" || *w.draft.Content != "body" || w.draft.PlatformSettings.URL != settings.URL {
		t.Fatalf("unexpected merged draft %+v", w.draft)
	}
}

// TestFlushWritesImmediately Flush 立即写入并取消计时器.
func TestFlushWritesImmediately(t *testing.T) {
	r := newRecorder()
	c, clock := newCoordinator(r)
	c.MarkLoaded("f1")

	_ = c.Edit("f1", types.FileDraft{Content: str("now")})

	if err := c.Flush(context.Background(), "f1"); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if w := r.wait(t); *w.draft.Content != "now" {
		t.Fatalf("unexpected write %+v", w)
	}

	clock.Advance(2 * time.Second)
	r.none(t)

	// 没有待写内容时 Flush 不写
	if err := c.Flush(context.Background(), "f1"); err != nil {
		t.Fatalf("flush: %v", err)
	}

	r.none(t)
}

// TestSessionsAreIndependent 不同文件的计时器互不影响.
func TestSessionsAreIndependent(t *testing.T) {
	r := newRecorder()
	c, clock := newCoordinator(r)
	c.MarkLoaded("f1")
	c.MarkLoaded("f2")

	_ = c.Edit("f1", types.FileDraft{Content: str("one")})

	clock.Advance(600 * time.Millisecond)
	_ = c.Edit("f2", types.FileDraft{Content: str("two")})

	clock.Advance(400 * time.Millisecond)

	if w := r.wait(t); w.fileID != "f1" {
		t.Fatalf("expected f1 first, got %s", w.fileID)
	}

	clock.Advance(600 * time.Millisecond)

	if w := r.wait(t); w.fileID != "f2" {
		t.Fatalf("expected f2, got %s", w.fileID)
	}
}

// TestForgetDropsPending Forget 丢弃未写入的编辑.
func TestForgetDropsPending(t *testing.T) {
	r := newRecorder()
	c, clock := newCoordinator(r)
	c.MarkLoaded("f1")

	_ = c.Edit("f1", types.FileDraft{Content: str("lost")})
	c.Forget("f1")

	clock.Advance(2 * time.Second)
	r.none(t)

	if c.Loaded("f1") {
		t.Fatal("forgotten session should need reloading")
	}
}

// TestWriteErrorReported 写入失败时回调收到错误.
func TestWriteErrorReported(t *testing.T) {
	r := newRecorder()
	r.err = errors.New("disk full")

	got := make(chan error, 1)
	clock := clockwork.NewFakeClock()
	c := autosave.New(r, autosave.WithClock(clock), autosave.WithOnWrite(func(_ string, err error) { got <- err }))
	c.MarkLoaded("f1")

	_ = c.Edit("f1", types.FileDraft{Content: str("x")})
	clock.Advance(c.QuietPeriod())
	r.wait(t)

	select {
	case err := <-got:
		if err == nil {
			t.Fatal("expected write error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onWrite not called")
	}
}

// TestCloseFlushesAndRejects Close 写入剩余编辑，之后拒绝新编辑.
func TestCloseFlushesAndRejects(t *testing.T) {
	r := newRecorder()
	c, _ := newCoordinator(r)
	c.MarkLoaded("f1")

	_ = c.Edit("f1", types.FileDraft{Title: str("bye")})

	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	if w := r.wait(t); *w.draft.Title != "bye" {
		t.Fatalf("unexpected write %+v", w)
	}

	if err := c.Edit("f1", types.FileDraft{Title: str("again")}); !errors.Is(err, autosave.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
