// Package service 实现内容生命周期的业务逻辑：项目与文件、回收站、发布状态机编排.
//
// 服务从 context 中取得存储管理器、时钟与发布注册表（见 pkg/context），
// 与 HTTP 处理器、定时任务共用同一套构造方式:
//
//	ctx = ctxPkg.WithStorageManager(ctx, mgr)
//	snapID, err := service.NewTrashService(ctx).DeleteProject(ctx, projectID, user)
package service

import (
	crand "crypto/rand"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/postvault/pkg/cache"
	"github.com/yeisme/postvault/pkg/configs"
	ctxPkg "github.com/yeisme/postvault/pkg/context"
	"github.com/yeisme/postvault/pkg/internal/storage/db"
	"github.com/yeisme/postvault/pkg/internal/storage/mq"
	nlog "github.com/yeisme/postvault/pkg/log"
	"github.com/yeisme/postvault/pkg/queue"
)

var (
	// ErrTargetMissing 恢复目标项目不存在.
	ErrTargetMissing = errors.New("restore target project does not exist")
	// ErrSubmissionInFlight 相同内容的提交正在进行中.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrInvalidArgument 参数缺失或非法.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNoStorage 上下文中没有数据库客户端.
	ErrNoStorage = errors.New("storage not initialized")
)

const statsNamespace = "trash-stats"

// 全局 ULID 熵源，单调递增保证同一毫秒内的排序稳定；Monotonic 非并发安全，需加锁.
var (
	ulidMu      sync.Mutex
	ulidEntropy = ulid.Monotonic(crand.Reader, 0)
)

// newID 以 t 的毫秒时间戳生成 ULID.
func newID(t time.Time) string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), ulidEntropy).String()
}

// base 各服务共用的依赖.
type base struct {
	db     *db.Client
	mq     *mq.Client
	stats  *cache.Cache
	clock  clockwork.Clock
	lc     configs.LifecycleConfig
	events configs.EventsConfig
}

func newBase(c context.Context) base {
	cfg := configs.GetConfig()

	b := base{
		db:     ctxPkg.GetDBClient(c),
		mq:     ctxPkg.GetMQClient(c),
		clock:  ctxPkg.GetClock(c),
		lc:     cfg.Lifecycle,
		events: cfg.Events,
	}

	if kvc := ctxPkg.GetKVClient(c); kvc != nil {
		b.stats = cache.NewCache(kvc.KVStore, statsNamespace)
	}

	return b
}

// now 当前 UTC 时间，截断到毫秒以便各数据库一致比较.
func (b *base) now() time.Time {
	return b.clock.Now().UTC().Truncate(time.Millisecond)
}

func (b *base) ready() error {
	if b.db == nil {
		return ErrNoStorage
	}

	return nil
}

// invalidateStats 回收站内容变化后清除统计缓存.
func (b *base) invalidateStats(ctx context.Context) {
	if err := b.stats.Clear(ctx); err != nil {
		nlog.Logger().Warn().Err(err).Msg("invalidate trash stats cache failed")
	}
}

// emit 在操作提交成功后尽力发布事件，失败只记录日志.
func emit[T any](ctx context.Context, b *base, enabled bool, topic queue.Topic[T], payload T) {
	if b.mq == nil || !b.events.Enabled || !enabled {
		return
	}

	err := topic.Publish(ctx, b.mq, payload,
		queue.WithProducer("postvault"),
		queue.WithOccurredAt(b.now()),
		queue.WithTraceID(traceID(ctx)),
	)
	if err != nil {
		nlog.Logger().Warn().Err(err).Str("topic", topic.Name).Msg("publish event failed")
	}
}

func traceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}

	return ""
}
