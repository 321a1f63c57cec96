package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/postvault/pkg/internal/service"
)

const defaultTrendDays = 14

// doStats 是一个通用封装：
//  1. 统一抽取用户
//  2. 创建 StatsService
//  3. 统一错误处理与 JSON 输出
//
// 回调 fn 中负责具体业务逻辑与返回数据.
func doStats(c *gin.Context, errLogMsg string, fn func(svc *service.StatsService, user string) (any, error)) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	data, err := fn(service.NewStatsService(c.Request.Context()), user)
	if err != nil {
		respondError(c, errLogMsg, err)
		return
	}

	c.JSON(http.StatusOK, data)
}

// GetStatsOverview 项目、文件与回收站的汇总.
//
//	@Summary	统计汇总
//	@Tags		统计
//	@Produce	json
//	@Success	200	{object}	types.StatsOverview
//	@Router		/api/v1/stats/overview [get]
func GetStatsOverview(c *gin.Context) {
	doStats(c, "stats overview failed", func(svc *service.StatsService, user string) (any, error) {
		return svc.Overview(c.Request.Context(), user)
	})
}

// GetPostedTrend 最近 N 天每日发布数量.
//
//	@Summary	发布趋势
//	@Tags		统计
//	@Produce	json
//	@Param		days	query		int	false	"天数(默认14, 最大90)"
//	@Success	200		{array}		types.StatsTrendPoint
//	@Router		/api/v1/stats/trend [get]
func GetPostedTrend(c *gin.Context) {
	doStats(c, "posted trend failed", func(svc *service.StatsService, user string) (any, error) {
		return svc.PostedTrend(c.Request.Context(), user, intQuery(c, "days", defaultTrendDays))
	})
}
