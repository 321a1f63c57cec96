package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"github.com/yeisme/postvault/pkg/context"
	"github.com/yeisme/postvault/pkg/internal/autosave"
	"github.com/yeisme/postvault/pkg/internal/publisher"
	"github.com/yeisme/postvault/pkg/internal/storage"
	"github.com/yeisme/postvault/pkg/scheduler"
)

// StorageMiddleware 将存储管理器注入请求 context.
func StorageMiddleware(manager *storage.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithStorageManager(c.Request.Context(), manager)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Lifecycle 请求处理所需的运行期组件，零值字段不注入.
type Lifecycle struct {
	Publishers *publisher.Registry
	Autosave   *autosave.Coordinator
	Scheduler  *scheduler.Scheduler
	Clock      clockwork.Clock
}

// LifecycleMiddleware 将发布注册表、自动保存协调器、调度器与时钟注入请求 context.
func LifecycleMiddleware(lc Lifecycle) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if lc.Publishers != nil {
			ctx = context.WithPublishers(ctx, lc.Publishers)
		}

		if lc.Autosave != nil {
			ctx = context.WithAutosave(ctx, lc.Autosave)
		}

		if lc.Scheduler != nil {
			ctx = context.WithScheduler(ctx, lc.Scheduler)
		}

		if lc.Clock != nil {
			ctx = context.WithClock(ctx, lc.Clock)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
