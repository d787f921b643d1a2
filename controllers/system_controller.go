package controllers

import (
	"net/http"

	"checkout-service/common/logger"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	MsgTestEmailSent   = "Email de test envoyé !"
	MsgTestEmailFailed = "Échec de l'envoi de l'email de test"
)

type SystemController struct {
	notificationService services.NotificationService
	storeName           string
	logger              *zap.Logger
}

func NewSystemController(svc services.NotificationService, storeName string, logger *zap.Logger) *SystemController {
	return &SystemController{notificationService: svc, storeName: storeName, logger: logger}
}

// Health handles GET /health.
func (sc *SystemController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Serveur " + sc.storeName + " opérationnel"})
}

// TestEmail handles POST /test-email by sending a fixed message to the shop.
func (sc *SystemController) TestEmail(c *gin.Context) {
	if err := sc.notificationService.SendTestEmail(c.Request.Context()); err != nil {
		logger.For(c, sc.logger).Error("test email failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": MsgTestEmailFailed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": MsgTestEmailSent})
}
