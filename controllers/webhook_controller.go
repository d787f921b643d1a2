package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	apperrors "checkout-service/common/errors"
	"checkout-service/common/logger"
	"checkout-service/common/middleware"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SignatureHeader carries the provider's HMAC over the raw body.
const SignatureHeader = "Stripe-Signature"

// MsgWebhookFailed is returned when an authenticated event cannot be processed.
const MsgWebhookFailed = "Erreur traitement webhook"

// WebhookProcessingTimeout bounds event handling once it is detached from the
// provider's connection.
const WebhookProcessingTimeout = 30 * time.Second

type WebhookController struct {
	webhookService services.WebhookService
	logger         *zap.Logger
}

func NewWebhookController(svc services.WebhookService, logger *zap.Logger) *WebhookController {
	return &WebhookController{webhookService: svc, logger: logger}
}

// HandleWebhook handles POST /webhook. It must be mounted behind the raw body
// middleware: the signature covers the exact bytes sent.
func (wc *WebhookController) HandleWebhook(c *gin.Context) {
	log := logger.For(c, wc.logger)

	payload, ok := middleware.RawBodyFrom(c)
	if !ok {
		log.Error("webhook route mounted without raw body capability")
		c.JSON(http.StatusInternalServerError, gin.H{"error": MsgWebhookFailed})
		return
	}

	// A dropped connection must not cut the admin email off after the
	// customer one went out.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), WebhookProcessingTimeout)
	defer cancel()

	outcome, err := wc.webhookService.HandleEvent(ctx, payload, c.GetHeader(SignatureHeader))
	if err != nil {
		if errors.Is(err, apperrors.ErrSignature) {
			c.String(http.StatusBadRequest, "Webhook Error: %s", apperrors.Cause(err).Error())
			return
		}
		log.Error("webhook processing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": MsgWebhookFailed})
		return
	}

	log.Debug("webhook acknowledged",
		zap.String("event_type", outcome.EventType),
		zap.String("action", string(outcome.Action)),
	)
	c.JSON(http.StatusOK, gin.H{"received": true})
}
