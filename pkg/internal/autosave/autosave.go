// Package autosave 把高频编辑合并为防抖后的单次写入.
//
// 每个文件一个会话：编辑在静默期内不断重置计时器，计时器到期后把缓冲区中
// 每个字段的最新值写入一次（后写覆盖，不回放中间状态）. 文件内容加载完成
// （MarkLoaded）之前的编辑会被拒绝，避免用空白初始值覆盖已保存内容.
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/yeisme/postvault/pkg/internal/types"
	nlog "github.com/yeisme/postvault/pkg/log"
)

var (
	// ErrNotLoaded 文件尚未加载完成，编辑被丢弃.
	ErrNotLoaded = errors.New("autosave: file content not loaded")
	// ErrClosed 协调器已关闭.
	ErrClosed = errors.New("autosave: coordinator closed")
)

const (
	DefaultQuietPeriod  = time.Second
	DefaultWriteTimeout = 5 * time.Second
)

// Persister 把草稿写入存储.
type Persister interface {
	SaveDraft(ctx context.Context, fileID string, draft types.FileDraft) error
}

// PersisterFunc 允许普通函数作为 Persister.
type PersisterFunc func(ctx context.Context, fileID string, draft types.FileDraft) error

// SaveDraft 实现 Persister.
func (f PersisterFunc) SaveDraft(ctx context.Context, fileID string, draft types.FileDraft) error {
	return f(ctx, fileID, draft)
}

// Option 配置 Coordinator.
type Option func(*Coordinator)

// WithQuietPeriod 设置静默期.
func WithQuietPeriod(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.quiet = d
		}
	}
}

// WithWriteTimeout 设置单次后台写入超时.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithClock 注入时钟，测试中使用 clockwork.NewFakeClock.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// WithBaseContext 后台写入使用的根 context（携带存储管理器等依赖）.
func WithBaseContext(ctx context.Context) Option {
	return func(c *Coordinator) { c.baseCtx = ctx }
}

// WithOnWrite 每次写入完成后的回调，用于指标.
func WithOnWrite(fn func(fileID string, err error)) Option {
	return func(c *Coordinator) { c.onWrite = fn }
}

type session struct {
	loaded  bool
	pending types.FileDraft
	timer   clockwork.Timer
	gen     uint64
	writeMu sync.Mutex // 同一文件的写入串行执行，保证后写的值最后落盘
}

// Coordinator 自动保存协调器.
type Coordinator struct {
	persister    Persister
	clock        clockwork.Clock
	quiet        time.Duration
	writeTimeout time.Duration
	baseCtx      context.Context
	onWrite      func(fileID string, err error)
	logger       zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
	inflight sync.WaitGroup
}

// New 创建协调器.
func New(p Persister, opts ...Option) *Coordinator {
	c := &Coordinator{
		persister:    p,
		clock:        clockwork.NewRealClock(),
		quiet:        DefaultQuietPeriod,
		writeTimeout: DefaultWriteTimeout,
		baseCtx:      context.Background(),
		sessions:     make(map[string]*session),
		logger:       nlog.Component("autosave"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// QuietPeriod 返回静默期.
func (c *Coordinator) QuietPeriod() time.Duration {
	return c.quiet
}

// MarkLoaded 标记文件初始内容已加载，此后的编辑才会被保存.
func (c *Coordinator) MarkLoaded(fileID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.sessions[fileID]
	if s == nil {
		s = &session{}
		c.sessions[fileID] = s
	}

	s.loaded = true
}

// Loaded 文件是否已加载.
func (c *Coordinator) Loaded(fileID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.sessions[fileID]

	return s != nil && s.loaded
}

// Pending 文件是否有尚未写入的编辑.
func (c *Coordinator) Pending(fileID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.sessions[fileID]

	return s != nil && !s.pending.Empty()
}

// Edit 缓冲一次编辑并重新开始静默期计时.
func (c *Coordinator) Edit(fileID string, draft types.FileDraft) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	s := c.sessions[fileID]
	if s == nil || !s.loaded {
		return ErrNotLoaded
	}

	if draft.Empty() {
		return nil
	}

	s.pending = s.pending.Merge(draft)
	s.gen++

	if s.timer != nil {
		s.timer.Stop()
	}

	gen := s.gen
	s.timer = c.clock.AfterFunc(c.quiet, func() { c.fire(fileID, gen) })

	return nil
}

// fire 计时器到期：若期间没有新的编辑，则写入缓冲区.
func (c *Coordinator) fire(fileID string, gen uint64) {
	c.mu.Lock()
	s := c.sessions[fileID]

	if s == nil || s.gen != gen {
		c.mu.Unlock()

		return
	}

	c.inflight.Add(1)
	c.mu.Unlock()

	defer c.inflight.Done()

	ctx, cancel := context.WithTimeout(c.baseCtx, c.writeTimeout)
	defer cancel()

	_ = c.writeLatest(ctx, fileID, s)
}

// writeLatest 在会话写锁内取出最新缓冲并写入.
func (c *Coordinator) writeLatest(ctx context.Context, fileID string, s *session) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	c.mu.Lock()
	draft := s.pending
	s.pending = types.FileDraft{}
	c.mu.Unlock()

	if draft.Empty() {
		return nil
	}

	err := c.persister.SaveDraft(ctx, fileID, draft)
	if err != nil {
		c.logger.Error().Err(err).Str("file_id", fileID).Msg("autosave write failed")
	} else {
		c.logger.Debug().Str("file_id", fileID).Msg("autosave written")
	}

	if c.onWrite != nil {
		c.onWrite(fileID, err)
	}

	return err
}

// Flush 取消计时器并立即写入缓冲区，没有待写内容时直接返回.
func (c *Coordinator) Flush(ctx context.Context, fileID string) error {
	c.mu.Lock()
	s := c.sessions[fileID]

	if s == nil {
		c.mu.Unlock()

		return nil
	}

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	s.gen++
	c.mu.Unlock()

	return c.writeLatest(ctx, fileID, s)
}

// Release 写入剩余编辑并结束会话，之后需要重新 MarkLoaded.
func (c *Coordinator) Release(ctx context.Context, fileID string) error {
	err := c.Flush(ctx, fileID)

	c.mu.Lock()
	delete(c.sessions, fileID)
	c.mu.Unlock()

	return err
}

// Forget 丢弃会话与未写入的编辑（例如文件被移入回收站）.
func (c *Coordinator) Forget(fileID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s := c.sessions[fileID]; s != nil {
		if s.timer != nil {
			s.timer.Stop()
		}

		s.gen++
		delete(c.sessions, fileID)
	}
}

// Close 写入所有会话的剩余编辑并拒绝之后的编辑.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true

	ids := make([]string, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	var errs []error

	for _, id := range ids {
		if err := c.Flush(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}

	c.inflight.Wait()

	return errors.Join(errs...)
}
