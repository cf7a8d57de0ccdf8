package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/clipvault/pkg/internal/handle"
)

// RegisterSchedulerRoutes 注册维护任务相关路由.
func RegisterSchedulerRoutes(g *gin.RouterGroup) {
	g.GET("/jobs", handle.Jobs)
	g.POST("/jobs/:name/run", handle.RunJob)
}
