package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apperrors "checkout-service/common/errors"
	"checkout-service/common/logger"
	"checkout-service/models"
	awspkg "checkout-service/pkg/aws"

	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// Client-facing messages for provider failures.
const (
	MsgSessionCreateFailed = "Erreur création session paiement"
	MsgSessionNotFound     = "Session de paiement introuvable"
	MsgSessionFetchFailed  = "Erreur récupération session paiement"
)

// CheckoutSettings are the shop-level values every session is created with.
type CheckoutSettings struct {
	Currency    string
	StoreName   string
	FrontendURL string
}

// SuccessURL is where the provider sends the buyer after paying. The
// placeholder is substituted by the provider.
func (s CheckoutSettings) SuccessURL() string {
	return strings.TrimRight(s.FrontendURL, "/") + "/#/success?session_id={CHECKOUT_SESSION_ID}"
}

func (s CheckoutSettings) CancelURL() string {
	return strings.TrimRight(s.FrontendURL, "/") + "/#/cancel"
}

type CheckoutResult struct {
	SessionID string
	URL       string
}

type CheckoutService interface {
	CreateSession(ctx context.Context, req *models.CheckoutRequest) (*CheckoutResult, error)
	GetSession(ctx context.Context, sessionID string) (*models.SessionStatusResponse, error)
}

type checkoutService struct {
	provider PaymentProvider
	settings CheckoutSettings
	metrics  MetricsRecorder
	logger   *zap.Logger
}

func NewCheckoutService(provider PaymentProvider, settings CheckoutSettings, metrics MetricsRecorder, logger *zap.Logger) CheckoutService {
	if settings.Currency == "" {
		settings.Currency = string(stripe.CurrencyEUR)
	}
	return &checkoutService{
		provider: provider,
		settings: settings,
		metrics:  metrics,
		logger:   logger,
	}
}

// CreateSession validates the cart and opens a hosted payment session for its
// total. Invalid carts never reach the provider.
func (s *checkoutService) CreateSession(ctx context.Context, req *models.CheckoutRequest) (*CheckoutResult, error) {
	log := logger.For(ctx, s.logger)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	params, err := s.sessionParams(req)
	if err != nil {
		log.Warn("cart cannot be stored on session", zap.Error(err))
		return nil, apperrors.Validation(models.InvalidCartMessage)
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, params)
	if err != nil {
		log.Error("checkout session creation failed",
			zap.String("amount", req.TotalAmount.StringFixed(2)),
			zap.Error(err),
		)
		recordCount(ctx, s.metrics, s.logger, awspkg.MetricCheckoutSessionsFailed, nil)
		return nil, apperrors.Provider(MsgSessionCreateFailed, err)
	}

	log.Info("checkout session created",
		zap.String("session_id", sess.ID),
		zap.Int64("amount", req.MinorUnits()),
		zap.Int("items", len(req.Items)),
	)
	recordCount(ctx, s.metrics, s.logger, awspkg.MetricCheckoutSessionsCreated, nil)

	return &CheckoutResult{SessionID: sess.ID, URL: sess.URL}, nil
}

func (s *checkoutService) sessionParams(req *models.CheckoutRequest) (*stripe.CheckoutSessionParams, error) {
	md, err := EncodeOrderMetadata(req)
	if err != nil {
		return nil, err
	}

	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String("Commande " + s.settings.StoreName),
	}
	if d := strings.TrimSpace(req.Description); d != "" {
		product.Description = stripe.String(d)
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(s.settings.Currency),
					ProductData: product,
					UnitAmount:  stripe.Int64(req.MinorUnits()),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata:   md,
		SuccessURL: stripe.String(s.settings.SuccessURL()),
		CancelURL:  stripe.String(s.settings.CancelURL()),
	}
	if email := req.Customer().Email; email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	return params, nil
}

// GetSession reports the payment state of a session for the storefront's
// success page.
func (s *checkoutService) GetSession(ctx context.Context, sessionID string) (*models.SessionStatusResponse, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperrors.Validation("session id requis")
	}

	sess, err := s.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, apperrors.NotFound(MsgSessionNotFound, err)
		}
		logger.For(ctx, s.logger).Error("checkout session lookup failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return nil, apperrors.Provider(MsgSessionFetchFailed, err)
	}

	resp := &models.SessionStatusResponse{
		ID:            sess.ID,
		Status:        string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
		CustomerEmail: sess.CustomerEmail,
	}
	if resp.CustomerEmail == "" && sess.CustomerDetails != nil {
		resp.CustomerEmail = sess.CustomerDetails.Email
	}
	return resp, nil
}
