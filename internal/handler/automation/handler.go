package automation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/llevisouza/gestao-cobrancas/internal/model"
	"github.com/llevisouza/gestao-cobrancas/internal/repository"
	"github.com/llevisouza/gestao-cobrancas/internal/service/automation"
	"github.com/llevisouza/gestao-cobrancas/pkg/httputil"
	"github.com/llevisouza/gestao-cobrancas/pkg/messaging"
)

const defaultLogLimit = 50

type Handler struct {
	runner     *automation.Runner
	runLogs    repository.RunLogRepository
	deliveries repository.DeliveryLogRepository
	broker     messaging.Broker
}

func NewHandler(
	runner *automation.Runner,
	runLogs repository.RunLogRepository,
	deliveries repository.DeliveryLogRepository,
	broker messaging.Broker,
) *Handler {
	return &Handler{
		runner:     runner,
		runLogs:    runLogs,
		deliveries: deliveries,
		broker:     broker,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	grp := r.Group("/automation")
	{
		grp.POST("/start", h.Start)
		grp.POST("/stop", h.Stop)
		grp.POST("/manual-cycle", h.ManualCycle)
		grp.GET("/status", h.Status)
		grp.GET("/stream", h.Stream)
		grp.GET("/logs", h.Logs)
		grp.GET("/deliveries", h.Deliveries)
		grp.POST("/config", h.UpdateConfig)
		grp.POST("/reset", h.Reset)
	}
}

func (h *Handler) Start(c *gin.Context) {
	if err := h.runner.Start(c.Request.Context()); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "automation started")
}

func (h *Handler) Stop(c *gin.Context) {
	if err := h.runner.Stop(c.Request.Context()); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "automation stopped")
}

func (h *Handler) ManualCycle(c *gin.Context) {
	result := h.runner.RunManualCycle(c.Request.Context())
	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.runner.Status(c.Request.Context()))
}

// Stream pushes the status payload as server-sent events whenever the
// runner publishes a state change. Clients that lose the stream fall back
// to polling GET /automation/status.
func (h *Handler) Stream(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	updates, err := h.broker.Subscribe(ctx, automation.StatusChannel)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// Send the current snapshot first so subscribers never start blind.
	c.SSEvent("status", h.runner.Status(ctx))
	c.Writer.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case payload, ok := <-updates:
			if !ok {
				return false
			}
			var status automation.Status
			if err := json.Unmarshal(payload, &status); err != nil {
				return true
			}
			c.SSEvent("status", status)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().Unix())
			return true
		}
	})
}

func (h *Handler) Logs(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))
	entries, err := h.runLogs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, entries)
}

func (h *Handler) Deliveries(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))
	entries, err := h.deliveries.ListRecent(c.Request.Context(), limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, entries)
}

func (h *Handler) UpdateConfig(c *gin.Context) {
	var patch model.AutomationConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	cfg, err := h.runner.UpdateConfig(c.Request.Context(), patch)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, cfg)
}

func (h *Handler) Reset(c *gin.Context) {
	if err := h.runner.Reset(c.Request.Context()); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "automation reset")
}

func parseLimit(raw string) int {
	if raw == "" {
		return defaultLogLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return defaultLogLimit
	}
	return limit
}
