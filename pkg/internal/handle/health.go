package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/postvault/pkg/context"
	"github.com/yeisme/postvault/pkg/internal/storage"
)

const probeTimeout = 2 * time.Second

// ComponentHealth 单个组件的检查结果.
type ComponentHealth struct {
	Status    string `json:"status"` // ok、unhealthy、disabled
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

// HealthReport 健康检查汇总.
type HealthReport struct {
	Status     string                     `json:"status"` // ok 或 degraded
	Components map[string]ComponentHealth `json:"components"`
}

func runProbe(ctx context.Context, p storage.Probe) ComponentHealth {
	if !p.Enabled {
		return ComponentHealth{Status: "disabled"}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	err := p.Check(ctx)
	h := ComponentHealth{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}

	if err != nil {
		h.Status = "unhealthy"
		h.Error = err.Error()
	}

	return h
}

func probes(c *gin.Context) []storage.Probe {
	mgr := ctxPkg.GetManager(c.Request.Context())
	if mgr == nil {
		return nil
	}

	return mgr.Probes()
}

// Health godoc
// @Summary      健康检查
// @Description  检查全部已启用的存储组件，任一异常时返回 503
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthReport
// @Failure      503  {object}  HealthReport
// @Router       /health [get]
func Health(c *gin.Context) {
	report := HealthReport{Status: "ok", Components: map[string]ComponentHealth{}}

	ps := probes(c)
	if len(ps) == 0 {
		report.Status = "degraded"
	}

	for _, p := range ps {
		h := runProbe(c.Request.Context(), p)
		report.Components[p.Name] = h

		if h.Status == "unhealthy" {
			report.Status = "degraded"
		}
	}

	code := http.StatusOK
	if report.Status != "ok" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, report)
}

// HealthComponent godoc
// @Summary      单组件健康检查
// @Tags         health
// @Produce      json
// @Param        component  path  string  true  "db、kv、mq 或 s3"
// @Success      200  {object}  ComponentHealth
// @Failure      404  {object}  ErrorResponse
// @Failure      503  {object}  ComponentHealth
// @Router       /health/{component} [get]
func HealthComponent(c *gin.Context) {
	name := c.Param("component")

	for _, p := range probes(c) {
		if p.Name != name {
			continue
		}

		h := runProbe(c.Request.Context(), p)
		if h.Status != "ok" {
			c.JSON(http.StatusServiceUnavailable, h)
			return
		}

		c.JSON(http.StatusOK, h)

		return
	}

	c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown component " + name})
}
