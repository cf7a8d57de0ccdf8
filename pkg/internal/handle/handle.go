// Package handle 提供 HTTP 请求处理器的实现，依赖通过中间件注入到请求 context 中.
package handle

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/clipvault/pkg/configs"
	"github.com/yeisme/clipvault/pkg/internal/action"
	"github.com/yeisme/clipvault/pkg/internal/ingest"
	"github.com/yeisme/clipvault/pkg/internal/store"
	"github.com/yeisme/clipvault/pkg/log"
)

// StatusOf 将业务错误映射为 HTTP 状态码.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, action.ErrUnknownAction), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrNameConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrSystemTag):
		return http.StatusForbidden
	case errors.Is(err, action.ErrInvalidParams),
		errors.Is(err, store.ErrNameRequired),
		errors.Is(err, store.ErrInvalidColor),
		errors.Is(err, store.ErrInvalidEvent),
		errors.Is(err, ingest.ErrMalformed):
		return http.StatusBadRequest
	case errors.Is(err, ingest.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail 记录错误并返回 {"error": ...}.
func fail(c *gin.Context, op string, err error) {
	status := StatusOf(err)

	l := log.WithTrace(c.Request.Context(), log.Component("http"))
	if status >= http.StatusInternalServerError {
		l.Error().Err(err).Str("op", op).Msg("request failed")
	} else {
		l.Debug().Err(err).Str("op", op).Int("status", status).Msg("request rejected")
	}

	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

// unavailable 依赖组件未注入.
func unavailable(c *gin.Context, component string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": component + " not initialized"})
}

// submitTimeout 写入类请求等待结果的超时.
func submitTimeout() time.Duration {
	if d := configs.GetConfig().Ingest.SubmitTimeout; d > 0 {
		return d
	}

	return configs.DefaultIngestSubmitTimeout
}
