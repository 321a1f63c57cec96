package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/postvault/pkg/context"
	"github.com/yeisme/postvault/pkg/scheduler"
)

func schedulerOrAbort(c *gin.Context) (*scheduler.Scheduler, bool) {
	sched := ctxPkg.GetScheduler(c.Request.Context())
	if sched == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "scheduler not running"})
		return nil, false
	}

	return sched, true
}

func schedulerError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, scheduler.ErrJobNotFound) {
		code = http.StatusNotFound
	}

	c.AbortWithStatusJSON(code, ErrorResponse{Error: err.Error()})
}

// SchedulerJobs 返回所有调度器任务信息.
func SchedulerJobs(c *gin.Context) {
	sched, ok := schedulerOrAbort(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": sched.GetJobInfos()})
}

// SchedulerJob 返回单个任务信息.
func SchedulerJob(c *gin.Context) {
	sched, ok := schedulerOrAbort(c)
	if !ok {
		return
	}

	info, err := sched.GetJobInfoByName(c.Param("name"))
	if err != nil {
		schedulerError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// SchedulerRunJob 立即触发一次任务.
func SchedulerRunJob(c *gin.Context) {
	sched, ok := schedulerOrAbort(c)
	if !ok {
		return
	}

	if err := sched.RunNow(c.Param("name")); err != nil {
		schedulerError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "job triggered"})
}

// SchedulerRemoveJob 根据名称删除任务.
func SchedulerRemoveJob(c *gin.Context) {
	sched, ok := schedulerOrAbort(c)
	if !ok {
		return
	}

	if err := sched.RemoveJobByName(c.Param("name")); err != nil {
		schedulerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "job removed"})
}
