package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simholt/hyrax/pkg/middleware"
	"github.com/simholt/hyrax/pkg/scheduler"
)

func schedulerOrAbort(c *gin.Context) *scheduler.Scheduler {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not running"})
	}

	return sched
}

// SchedulerJobs 返回所有调度器任务信息.
//
//	@Summary	定时任务列表
//	@Tags		调度
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/api/v1/scheduler/jobs [get]
func SchedulerJobs(c *gin.Context) {
	sched := schedulerOrAbort(c)
	if sched == nil {
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": sched.GetJobInfos()})
}

// SchedulerRunJob 立即运行一次指定任务.
//
//	@Summary	立即运行任务
//	@Tags		调度
//	@Produce	json
//	@Param		name	path		string	true	"任务名称"
//	@Success	202		{object}	map[string]string
//	@Failure	404		{object}	map[string]string
//	@Router		/api/v1/scheduler/jobs/{name}/run [post]
func SchedulerRunJob(c *gin.Context) {
	sched := schedulerOrAbort(c)
	if sched == nil {
		return
	}

	if err := sched.RunNow(c.Param("name")); err != nil {
		schedulerError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "job triggered"})
}

// SchedulerRemoveJob 根据名称删除任务.
//
//	@Summary	删除任务
//	@Tags		调度
//	@Produce	json
//	@Param		name	path		string	true	"任务名称"
//	@Success	200		{object}	map[string]string
//	@Failure	404		{object}	map[string]string
//	@Router		/api/v1/scheduler/jobs/{name} [delete]
func SchedulerRemoveJob(c *gin.Context) {
	sched := schedulerOrAbort(c)
	if sched == nil {
		return
	}

	if err := sched.RemoveJobByName(c.Param("name")); err != nil {
		schedulerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "job removed"})
}

func schedulerError(c *gin.Context, err error) {
	if errors.Is(err, scheduler.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
