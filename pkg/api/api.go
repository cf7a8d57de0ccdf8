// Package api 组装对外暴露的 HTTP 接口.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/clipvault/pkg/internal/router"
)

// Prefix API 路由前缀.
const Prefix = "/api/v1"

// RegisterGroup 将所有 API 路由注册到传入的 gin 引擎.
func RegisterGroup(e *gin.Engine) *gin.Engine {
	v1 := e.Group(Prefix)

	router.RegisterClipRoutes(v1)
	router.RegisterHealthCheckRoute(v1)
	router.RegisterSchedulerRoutes(v1)

	e.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	return e
}
