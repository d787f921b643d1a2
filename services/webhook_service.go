package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	apperrors "checkout-service/common/errors"
	"checkout-service/common/logger"
	"checkout-service/models"
	awspkg "checkout-service/pkg/aws"
	"checkout-service/repository"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// Event types handled by the receiver.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentIntentSucceeded   = "payment_intent.succeeded"
	EventPaymentIntentFailed      = "payment_intent.payment_failed"
)

// WebhookAction says what the receiver did with an authenticated event.
type WebhookAction string

const (
	ActionNotified        WebhookAction = "notified"
	ActionDuplicate       WebhookAction = "duplicate"
	ActionInvalidMetadata WebhookAction = "invalid_metadata"
	ActionLogged          WebhookAction = "logged"
)

// WebhookOutcome is returned for every authenticated event. Report is only set
// when notifications were attempted.
type WebhookOutcome struct {
	EventID   string
	EventType string
	SessionID string
	Action    WebhookAction
	Report    *NotificationReport
}

type WebhookService interface {
	HandleEvent(ctx context.Context, payload []byte, signatureHeader string) (*WebhookOutcome, error)
}

type webhookService struct {
	provider      PaymentProvider
	notifications NotificationService
	processed     repository.ProcessedSessionRepository
	publisher     awspkg.SNSPublisher
	topicArn      string
	metrics       MetricsRecorder
	logger        *zap.Logger
}

// WebhookDeps groups the collaborators of the webhook receiver. Publisher and
// Metrics are optional.
type WebhookDeps struct {
	Provider      PaymentProvider
	Notifications NotificationService
	Processed     repository.ProcessedSessionRepository
	Publisher     awspkg.SNSPublisher
	TopicArn      string
	Metrics       MetricsRecorder
	Logger        *zap.Logger
}

func NewWebhookService(deps WebhookDeps) WebhookService {
	return &webhookService{
		provider:      deps.Provider,
		notifications: deps.Notifications,
		processed:     deps.Processed,
		publisher:     deps.Publisher,
		topicArn:      deps.TopicArn,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
	}
}

// HandleEvent authenticates payload against the signature header and acts on
// the event. Only a signature failure or an undecodable session is returned as
// an error; notification failures are reported in the outcome.
func (s *webhookService) HandleEvent(ctx context.Context, payload []byte, signatureHeader string) (*WebhookOutcome, error) {
	log := logger.For(ctx, s.logger)

	event, err := s.provider.ConstructEvent(payload, signatureHeader)
	if err != nil {
		log.Warn("webhook signature verification failed", zap.Error(err))
		recordCount(ctx, s.metrics, s.logger, awspkg.MetricWebhookRejected, nil)
		return nil, apperrors.Signature(err)
	}

	eventType := string(event.Type)
	log = log.With(zap.String("event_id", event.ID), zap.String("event_type", eventType))
	log.Info("processing webhook event")
	recordCount(ctx, s.metrics, s.logger, awspkg.MetricWebhookEvents, map[string]string{"EventType": eventType})

	outcome := &WebhookOutcome{EventID: event.ID, EventType: eventType, Action: ActionLogged}

	switch eventType {
	case EventCheckoutSessionCompleted:
		return s.handleCheckoutCompleted(ctx, log, event, outcome)
	case EventPaymentIntentSucceeded, EventPaymentIntentFailed:
		s.logPaymentIntent(log, event)
	default:
		log.Info("unhandled webhook event type")
	}
	return outcome, nil
}

func (s *webhookService) handleCheckoutCompleted(ctx context.Context, log *zap.Logger, event stripe.Event, outcome *WebhookOutcome) (*WebhookOutcome, error) {
	var sess stripe.CheckoutSession
	if event.Data == nil {
		return nil, apperrors.Internal("checkout session missing from event", nil)
	}
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		log.Error("failed to unmarshal checkout session", zap.Error(err))
		return nil, apperrors.Internal("checkout session could not be decoded", err)
	}
	outcome.SessionID = sess.ID
	log = log.With(zap.String("session_id", sess.ID))

	order, err := PaidOrderFromSession(&sess)
	if err != nil {
		log.Error("order metadata unreadable, acknowledging without notification",
			zap.Any("metadata", sess.Metadata),
			zap.Error(err),
		)
		outcome.Action = ActionInvalidMetadata
		return outcome, nil
	}

	claimed, err := s.processed.Claim(ctx, sess.ID)
	if err != nil {
		// Without the store, notify without de-duplication.
		log.Warn("processed-session store unavailable", zap.Error(err))
		claimed = true
	}
	if !claimed {
		log.Info("checkout session already processed, skipping notifications")
		outcome.Action = ActionDuplicate
		return outcome, nil
	}

	report := s.notifications.NotifyOrderPaid(ctx, order)
	outcome.Action = ActionNotified
	outcome.Report = &report

	if report.AllFailed() {
		if err := s.processed.Release(ctx, sess.ID); err != nil {
			log.Warn("failed to release processed session", zap.Error(err))
		}
	}

	log.Info("checkout session completed",
		zap.Int64("amount_total", order.AmountTotal),
		zap.String("customer_email_status", string(report.Customer.Status)),
		zap.String("admin_email_status", string(report.Admin.Status)),
	)

	s.publishOrderPaid(ctx, log, order)
	return outcome, nil
}

// PaidOrderFromSession rebuilds the order from a completed session. Customer
// fields missing from metadata fall back to what the payment page collected.
func PaidOrderFromSession(sess *stripe.CheckoutSession) (*models.PaidOrder, error) {
	meta, err := DecodeOrderMetadata(sess.Metadata)
	if err != nil {
		return nil, err
	}

	customer := meta.Customer
	if details := sess.CustomerDetails; details != nil {
		customer.Email = firstNonEmpty(customer.Email, details.Email)
		customer.FullName = firstNonEmpty(customer.FullName, details.Name)
		customer.Phone = firstNonEmpty(customer.Phone, details.Phone)
	}
	customer.Email = firstNonEmpty(customer.Email, sess.CustomerEmail)

	return &models.PaidOrder{
		SessionID:   sess.ID,
		Items:       meta.Items,
		Delivery:    meta.Delivery,
		Discount:    meta.Discount,
		AmountTotal: sess.AmountTotal,
		Currency:    string(sess.Currency),
		Customer:    customer,
	}, nil
}

func (s *webhookService) logPaymentIntent(log *zap.Logger, event stripe.Event) {
	var pi stripe.PaymentIntent
	if event.Data == nil || json.Unmarshal(event.Data.Raw, &pi) != nil {
		log.Warn("payment intent could not be decoded")
		return
	}
	fields := []zap.Field{
		zap.String("payment_intent_id", pi.ID),
		zap.Int64("amount", pi.Amount),
		zap.String("status", string(pi.Status)),
	}
	if pi.LastPaymentError != nil {
		fields = append(fields, zap.String("failure", pi.LastPaymentError.Msg))
	}
	log.Info("payment intent event", fields...)
}

func (s *webhookService) publishOrderPaid(ctx context.Context, log *zap.Logger, order *models.PaidOrder) {
	if s.publisher == nil || s.topicArn == "" {
		return
	}

	evt := models.OrderPaidEvent{
		EventID:       uuid.NewString(),
		Type:          models.EventTypeOrderPaid,
		SessionID:     order.SessionID,
		AmountTotal:   order.AmountTotal,
		Currency:      order.Currency,
		CustomerEmail: order.Customer.Email,
		CustomerName:  order.Customer.FullName,
		Items:         order.Items,
		Timestamp:     time.Now().UTC(),
	}
	body, err := json.Marshal(evt)
	if err != nil {
		log.Error("failed to marshal order event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, s.topicArn, body); err != nil {
		log.Error("failed to publish order event", zap.Error(err))
		return
	}
	log.Info("order event published", zap.String("event_id", evt.EventID))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
