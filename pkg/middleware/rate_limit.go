package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/clipvault/pkg/configs"
)

// RateLimitMiddleware 返回一个基于配置的限流中间件，cfg.Exempt 中的路径前缀不参与限流.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limit := newLimiter(cfg)

	return func(c *gin.Context) {
		if exempt(c.Request.URL.Path, cfg.Exempt) {
			c.Next()
			return
		}

		limit(c)
	}
}

func newLimiter(cfg configs.RateLimitConfig) gin.HandlerFunc {
	// 选择 key 维度
	keyMode := strings.ToLower(strings.TrimSpace(cfg.Key))
	// 全局 limiter
	if keyMode == "global" || keyMode == "" {
		limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)

		return func(c *gin.Context) {
			if !limiter.Allow() {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
				return
			}

			c.Next()
		}
	}

	// 多键 limiter，记录最近访问时间以便清理闲置项
	type entry struct {
		lim  *rate.Limiter
		seen time.Time
	}

	var (
		mu       sync.Mutex
		limiters = map[string]*entry{}
	)

	getLimiter := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		e, ok := limiters[key]
		if !ok {
			e = &entry{lim: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)}
			limiters[key] = e
		}

		e.seen = time.Now()

		return e.lim
	}

	go func() {
		const (
			cleanupInterval = 10 * time.Minute
			idleTimeout     = 30 * time.Minute
		)

		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for now := range ticker.C {
			mu.Lock()

			for k, e := range limiters {
				if now.Sub(e.seen) > idleTimeout {
					delete(limiters, k)
				}
			}

			mu.Unlock()
		}
	}()

	header, byHeader := strings.CutPrefix(keyMode, "header:")

	return func(c *gin.Context) {
		key := ""
		if byHeader {
			key = c.GetHeader(header)
		}

		if key == "" {
			key = clientIP(c)
		}

		if key == "" {
			key = "unknown"
		}

		if !getLimiter(key).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				gin.H{"error": "rate limit exceeded, request too frequent, please try again later"})

			return
		}

		c.Next()
	}
}

func exempt(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		// 进一步尝试从 RemoteAddr
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err == nil {
			ip = host
		} else {
			ip = c.Request.RemoteAddr
		}
	}

	return ip
}
