package controllers

import (
	"net/http"

	apperrors "checkout-service/common/errors"
	"checkout-service/common/logger"
	"checkout-service/models"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CheckoutController struct {
	checkoutService services.CheckoutService
	logger          *zap.Logger
}

func NewCheckoutController(svc services.CheckoutService, logger *zap.Logger) *CheckoutController {
	return &CheckoutController{checkoutService: svc, logger: logger}
}

// CreateCheckoutSession handles POST /create-checkout-session.
func (cc *CheckoutController) CreateCheckoutSession(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.For(c, cc.logger).Info("checkout request rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": models.InvalidCartMessage})
		return
	}

	result, err := cc.checkoutService.CreateSession(c.Request.Context(), &req)
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"message": apperrors.PublicMessage(err)})
		return
	}

	c.JSON(http.StatusOK, models.CheckoutSessionResponse{URL: result.URL})
}

// GetCheckoutSession handles GET /checkout-session/:id.
func (cc *CheckoutController) GetCheckoutSession(c *gin.Context) {
	status, err := cc.checkoutService.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"message": apperrors.PublicMessage(err)})
		return
	}
	c.JSON(http.StatusOK, status)
}
