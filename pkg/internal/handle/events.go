package handle

import (
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/clipvault/pkg/context"
	"github.com/yeisme/clipvault/pkg/log"
)

const heartbeatInterval = 15 * time.Second

// Events 以 SSE 推送广播通知.
//
// 首先发送 ready 事件（携带订阅者 ID），之后每条通知的 event 字段即 SSE 事件名，
// data 为完整信封 JSON. 订阅者被广播中心剔除时流结束，客户端应重连并重新拉取历史.
func Events(c *gin.Context) {
	h := ctxPkg.GetHub(c.Request.Context())
	if h == nil {
		unavailable(c, "broadcast hub")
		return
	}

	sub := h.Subscribe()
	defer sub.Close()

	l := log.WithTrace(c.Request.Context(), log.Component("sse")).With().Str("subscriber", sub.ID()).Logger()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("ready", gin.H{"subscriber": sub.ID()})
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()

	c.Stream(func(w io.Writer) bool {
		select {
		case n, ok := <-sub.C():
			if !ok {
				l.Debug().Msg("subscription closed by hub")
				return false
			}

			data, err := sonic.MarshalString(n)
			if err != nil {
				l.Error().Err(err).Str("event", n.Event).Msg("encode notification")
				return true
			}

			c.SSEvent(n.Event, data)

			return true
		case <-heartbeat.C:
			_, err := io.WriteString(w, ": ping\n\n")
			return err == nil
		case <-ctx.Done():
			return false
		}
	})
}
