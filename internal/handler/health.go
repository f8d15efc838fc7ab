package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/clove/commerce-core/internal/store"
)

// HealthHandler reports liveness and readiness. The redis client and the
// amqp connection are nil when the corresponding driver is not configured.
type HealthHandler struct {
	st          store.Store
	redisClient *redis.Client
	amqpConn    *amqp.Connection
}

func NewHealthHandler(st store.Store, redisClient *redis.Client, amqpConn *amqp.Connection) *HealthHandler {
	return &HealthHandler{st: st, redisClient: redisClient, amqpConn: amqpConn}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.st.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "store": "unavailable"})
		return
	}
	if h.redisClient != nil {
		if err := h.redisClient.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "redis": "unavailable"})
			return
		}
	}
	if h.amqpConn != nil && h.amqpConn.IsClosed() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "rabbitmq": "unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": "connected"})
}
