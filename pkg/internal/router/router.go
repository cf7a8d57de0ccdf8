// Package router 管理路由配置，用于设置HTTP服务的路由.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/clipvault/pkg/internal/handle"
)

// EventsPath SSE 通知流的完整路径，限流、熔断与压缩中间件需要豁免它.
const EventsPath = "/api/v1/events"

// RegisterClipRoutes 绑定剪贴板相关路由：
//
//	POST /ingest         -> 采集信封写入
//	GET  /actions        -> 可用动作列表
//	POST /actions/:name  -> 执行查询动作
//	GET  /events         -> SSE 广播流
func RegisterClipRoutes(g *gin.RouterGroup) {
	g.POST("/ingest", handle.Ingest)
	g.GET("/actions", handle.Actions)
	g.POST("/actions/:name", handle.Action)
	g.GET("/events", handle.Events)
}
