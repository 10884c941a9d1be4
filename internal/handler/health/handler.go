package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/llevisouza/gestao-cobrancas/internal/messenger"
)

// Pinger reports broker reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	db      *sqlx.DB
	broker  Pinger
	channel messenger.Messenger
}

func NewHandler(db *sqlx.DB, broker Pinger, channel messenger.Messenger) *Handler {
	return &Handler{db: db, broker: broker, channel: channel}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/health", h.Health)
}

func (h *Handler) Health(c *gin.Context) {
	checks := gin.H{}
	healthy := true

	if err := h.db.PingContext(c.Request.Context()); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if h.broker != nil {
		if err := h.broker.Ping(c.Request.Context()); err != nil {
			checks["broker"] = err.Error()
			healthy = false
		} else {
			checks["broker"] = "ok"
		}
	}

	// A disconnected send channel degrades the service but does not take
	// the API down, so it never flips healthy.
	if conn, err := h.channel.CheckConnection(c.Request.Context()); err != nil {
		checks["send_channel"] = err.Error()
	} else {
		checks["send_channel"] = conn.State
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"healthy":   healthy,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	})
}
