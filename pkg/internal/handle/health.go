package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/clipvault/pkg/context"
)

const timeout = 2 * time.Second

// componentHealth 单个组件的健康状态.
type componentHealth struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

func checkDB(ctx context.Context) componentHealth {
	dbc := ctxPkg.GetDBClient(ctx)
	if dbc == nil || dbc.DB == nil {
		return componentHealth{Component: "db", Status: "unhealthy", Error: "db client not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := dbc.Ping(ctx); err != nil {
		return componentHealth{Component: "db", Status: "unhealthy", Error: err.Error()}
	}

	return componentHealth{Component: "db", Status: "ok"}
}

func checkS3(ctx context.Context) componentHealth {
	s3c := ctxPkg.GetS3Client(ctx)
	if s3c == nil || s3c.Client == nil {
		return componentHealth{Component: "s3", Status: "unhealthy", Error: "s3 client not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s3c.HealthCheck(ctx); err != nil {
		return componentHealth{Component: "s3", Status: "unhealthy", Error: err.Error()}
	}

	return componentHealth{Component: "s3", Status: "ok"}
}

func checkMQ(ctx context.Context) componentHealth {
	if ctxPkg.GetMQClient(ctx) == nil {
		return componentHealth{Component: "mq", Status: "unhealthy", Error: "mq client not initialized"}
	}

	return componentHealth{Component: "mq", Status: "ok"}
}

func respond(c *gin.Context, h componentHealth) {
	status := http.StatusOK
	if h.Status != "ok" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, h)
}

// Health 汇总健康检查：数据库必检，S3 与消息队列在启用时检查.
func Health(c *gin.Context) {
	ctx := c.Request.Context()
	checks := []componentHealth{checkDB(ctx)}

	if ctxPkg.GetS3Client(ctx) != nil {
		checks = append(checks, checkS3(ctx))
	}

	if ctxPkg.GetMQClient(ctx) != nil {
		checks = append(checks, checkMQ(ctx))
	}

	status, overall := http.StatusOK, "ok"

	for _, h := range checks {
		if h.Status != "ok" {
			status, overall = http.StatusServiceUnavailable, "unhealthy"
		}
	}

	c.JSON(status, gin.H{"status": overall, "components": checks})
}

// HealthDB 数据库健康检查.
func HealthDB(c *gin.Context) { respond(c, checkDB(c.Request.Context())) }

// HealthS3 S3/对象存储健康检查.
func HealthS3(c *gin.Context) { respond(c, checkS3(c.Request.Context())) }

// HealthMQ 消息队列健康检查.
func HealthMQ(c *gin.Context) { respond(c, checkMQ(c.Request.Context())) }
