package handle

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/clipvault/pkg/context"
	"github.com/yeisme/clipvault/pkg/internal/action"
	"github.com/yeisme/clipvault/pkg/internal/types"
)

// commands 查询动作命令表.
var commands = action.Commands()

// Ingest 接收一个采集信封并写入，返回 {"id", "was_new", "item"}.
func Ingest(c *gin.Context) {
	gw := ctxPkg.GetGateway(c.Request.Context())
	if gw == nil {
		unavailable(c, "ingest gateway")
		return
	}

	// 多读一个字节，超限时交给网关按格式错误拒绝
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, gw.MaxPayloadBytes()+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), submitTimeout())
	defer cancel()

	res, err := gw.SubmitRaw(ctx, body)
	if err != nil {
		fail(c, "ingest", err)
		return
	}

	c.JSON(http.StatusOK, types.IngestResponse{
		ID:     res.Item.ID,
		WasNew: res.WasNew,
		Item:   types.NewHistoryItem(res.Item),
	})
}

// Action 执行 :name 指定的查询动作，请求体为 JSON 参数（可以为空）.
func Action(c *gin.Context) {
	svc := ctxPkg.GetClipService(c.Request.Context())
	if svc == nil {
		unavailable(c, "clip service")
		return
	}

	name := c.Param("name")

	params, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), submitTimeout())
	defer cancel()

	out, err := commands.Dispatch(ctx, svc, name, params)
	if err != nil {
		fail(c, name, err)
		return
	}

	c.JSON(http.StatusOK, out)
}

// Actions 列出可用的动作名.
func Actions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"actions": commands.Names()})
}
