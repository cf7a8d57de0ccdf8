// Package middleware 提供 gin 中间件：请求日志、跨域、追踪、监控、限流、熔断与运行期组件注入.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/clipvault/pkg/context"
	"github.com/yeisme/clipvault/pkg/internal/storage"
)

// StorageMiddleware 将存储资源注入到请求 context 中，manager 为 nil 时不注入.
func StorageMiddleware(manager *storage.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if manager != nil {
			ctx := context.WithStorageManager(c.Request.Context(), manager)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()
	}
}

// RuntimeMiddleware 将剪贴板服务组件注入到请求 context 中.
func RuntimeMiddleware(rt *context.Runtime) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithRuntime(c.Request.Context(), rt)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
