package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "checkout-service/common/errors"
	"checkout-service/common/logger"
	"checkout-service/models"
	awspkg "checkout-service/pkg/aws"
	"checkout-service/sender"
	"checkout-service/templates"

	"go.uber.org/zap"
)

// DeliveryStatus is the outcome of one notification.
type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliverySkipped DeliveryStatus = "skipped"
)

// DeliveryResult describes what happened to one recipient's email.
type DeliveryResult struct {
	Recipient string
	Status    DeliveryStatus
	MessageID string
	Err       error
}

// NotificationReport holds one result per audience.
type NotificationReport struct {
	Customer DeliveryResult
	Admin    DeliveryResult
}

// Attempted reports how many sends were tried (skipped ones excluded).
func (r NotificationReport) Attempted() int {
	n := 0
	for _, d := range []DeliveryResult{r.Customer, r.Admin} {
		if d.Status != DeliverySkipped {
			n++
		}
	}
	return n
}

// AllFailed is true when at least one send was attempted and none succeeded.
func (r NotificationReport) AllFailed() bool {
	return r.Attempted() > 0 && r.Customer.Status != DeliverySent && r.Admin.Status != DeliverySent
}

// MetricsRecorder is the subset of the CloudWatch client used by services.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

type NotificationService interface {
	NotifyOrderPaid(ctx context.Context, order *models.PaidOrder) NotificationReport
	SendTestEmail(ctx context.Context) error
}

type notificationService struct {
	emailSender sender.EmailSender
	renderer    *templates.Renderer
	storeName   string
	adminEmail  string
	metrics     MetricsRecorder
	logger      *zap.Logger
}

func NewNotificationService(
	emailSender sender.EmailSender,
	renderer *templates.Renderer,
	storeName, adminEmail string,
	metrics MetricsRecorder,
	logger *zap.Logger,
) NotificationService {
	return &notificationService{
		emailSender: emailSender,
		renderer:    renderer,
		storeName:   storeName,
		adminEmail:  adminEmail,
		metrics:     metrics,
		logger:      logger,
	}
}

func CustomerSubject(storeName string) string {
	return "Confirmation de commande - " + storeName
}

func AdminSubject(order *models.PaidOrder) string {
	return "Nouvelle commande - " + order.Total().StringFixed(2) + templates.CurrencySymbol(order.Currency)
}

// NotifyOrderPaid emails the customer, then the shop. Failures are reported
// per recipient and never returned as an error.
func (s *notificationService) NotifyOrderPaid(ctx context.Context, order *models.PaidOrder) NotificationReport {
	log := logger.For(ctx, s.logger).With(zap.String("session_id", order.SessionID))
	data := templates.NewEmailData(order, s.storeName)

	var report NotificationReport

	customerEmail := strings.TrimSpace(order.Customer.Email)
	if customerEmail == "" {
		log.Warn("no customer email on order, skipping confirmation")
		report.Customer = DeliveryResult{Status: DeliverySkipped}
	} else {
		report.Customer = s.deliver(ctx, log, "customer", customerEmail, CustomerSubject(s.storeName), func() (string, error) {
			return s.renderer.RenderCustomer(data)
		})
	}

	report.Admin = s.deliver(ctx, log, "admin", s.adminEmail, AdminSubject(order), func() (string, error) {
		return s.renderer.RenderAdmin(data)
	})

	return report
}

func (s *notificationService) deliver(
	ctx context.Context,
	log *zap.Logger,
	audience, to, subject string,
	render func() (string, error),
) DeliveryResult {
	result := DeliveryResult{Recipient: to}

	body, err := render()
	if err == nil {
		var sent sender.SendResult
		sent, err = s.emailSender.SendEmail(ctx, to, subject, body)
		result.MessageID = sent.MessageID
	}

	dims := map[string]string{"Audience": audience}
	if err != nil {
		result.Status = DeliveryFailed
		result.Err = apperrors.Notification(audience, err)
		log.Warn("order email failed",
			zap.String("audience", audience),
			zap.String("to", to),
			zap.Error(err),
		)
		recordCount(ctx, s.metrics, s.logger, awspkg.MetricNotificationsFailed, dims)
		return result
	}

	result.Status = DeliverySent
	log.Info("order email sent",
		zap.String("audience", audience),
		zap.String("to", to),
		zap.String("message_id", result.MessageID),
	)
	recordCount(ctx, s.metrics, s.logger, awspkg.MetricNotificationsSent, dims)
	return result
}

// SendTestEmail sends a fixed message to the shop address to check the mail
// provider configuration.
func (s *notificationService) SendTestEmail(ctx context.Context) error {
	subject := "Test de configuration - " + s.storeName
	body := "<h1>Configuration email opérationnelle</h1>"
	if _, err := s.emailSender.SendEmail(ctx, s.adminEmail, subject, body); err != nil {
		return fmt.Errorf("test email to %s: %w", s.adminEmail, err)
	}
	logger.For(ctx, s.logger).Info("test email sent", zap.String("to", s.adminEmail))
	return nil
}

// metricsTimeout bounds one background metric write.
const metricsTimeout = 5 * time.Second

// recordCount sends a business metric from a goroutine so the request path
// never waits on CloudWatch.
func recordCount(ctx context.Context, m MetricsRecorder, log *zap.Logger, name string, dims map[string]string) {
	if m == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, metricsTimeout)
		defer cancel()
		if err := m.RecordCount(ctx, name, dims); err != nil {
			log.Debug("metric not recorded", zap.String("metric", name), zap.Error(err))
		}
	}()
}
