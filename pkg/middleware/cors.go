package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/clipvault/pkg/configs"
)

// CORSMiddleware CORS中间件，仅调试模式允许任意来源.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowWildcard = true
	config.AllowOrigins = []string{"http://localhost", "http://127.0.0.1", "http://localhost:*", "http://127.0.0.1:*"}
	config.AllowHeaders = append(config.AllowHeaders, "Last-Event-ID")
	config.ExposeHeaders = []string{"Content-Type"}

	if cfg.Debug {
		config.AllowOrigins = nil
		config.AllowAllOrigins = true
	}

	return cors.New(config)
}
