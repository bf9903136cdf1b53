package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/credit_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/credit_ledger/internal/core/ports/services"
	"github.com/SscSPs/credit_ledger/internal/dto"
	"github.com/SscSPs/credit_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// webhookHandler receives provider notifications.
type webhookHandler struct {
	notificationService portssvc.NotificationSvc
}

func newWebhookHandler(ns portssvc.NotificationSvc) *webhookHandler {
	return &webhookHandler{
		notificationService: ns,
	}
}

func registerWebhookRoutes(r *gin.Engine, webhookSecret string, ns portssvc.NotificationSvc) {
	h := newWebhookHandler(ns)

	webhooks := r.Group("/webhooks", middleware.WebhookSecretMiddleware(webhookSecret))
	webhooks.POST("/provider", h.receiveProviderEvent)
}

// receiveProviderEvent godoc
// @Summary Receive a provider notification
// @Description Applies video.completed and video.failed events at most once per job and type. Duplicates and unknown types are acknowledged with 200.
// @Tags webhooks
// @Accept  json
// @Produce  json
// @Param   event body dto.WebhookEvent true "Provider event"
// @Success 200 {object} dto.WebhookAck
// @Failure 400 {object} dto.ErrorResponse "Malformed event"
// @Failure 401 {object} dto.ErrorResponse "Invalid webhook secret"
// @Failure 500 {object} dto.ErrorResponse "Failed to process event, retry"
// @Failure 502 {object} dto.ErrorResponse "Provider check failed, retry"
// @Router /webhooks/provider [post]
func (h *webhookHandler) receiveProviderEvent(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var event dto.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		badRequest(c, "Invalid webhook payload", err)
		return
	}

	logger = logger.With(
		slog.String("event_id", event.ID),
		slog.String("event_type", event.Type),
		slog.String("provider_job_id", event.Data.ID))

	terminal, ok := event.ToTerminalEvent()
	if !ok {
		logger.Info("Ignoring provider event type")
		c.JSON(http.StatusOK, dto.WebhookAck{Received: true, Outcome: domain.OutcomeIgnored})
		return
	}

	ctx := middleware.WithLogger(c.Request.Context(), logger)
	outcome, err := h.notificationService.HandleTerminalEvent(ctx, terminal)
	if err != nil {
		respondError(c, err, "Failed to process provider event")
		return
	}

	logger.Info("Provider event handled", slog.String("outcome", string(outcome)))
	c.JSON(http.StatusOK, dto.WebhookAck{Received: true, Outcome: outcome})
}
