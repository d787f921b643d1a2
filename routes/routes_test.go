package routes_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"checkout-service/common/middleware"
	"checkout-service/controllers"
	"checkout-service/repository"
	"checkout-service/routes"
	"checkout-service/sender"
	"checkout-service/services"
	"checkout-service/templates"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80/webhook"
	"go.uber.org/zap"
)

const webhookSecret = "whsec_routes_test"

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingSender struct {
	mu sync.Mutex
	to []string
}

func (s *recordingSender) SendEmail(_ context.Context, to, _, _ string) (sender.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.to = append(s.to, to)
	return sender.SendResult{MessageID: "m"}, nil
}

func (s *recordingSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.to...)
}

func newTestRouter(t *testing.T) (*gin.Engine, *recordingSender) {
	t.Helper()
	log := zap.NewNop()
	mail := &recordingSender{}

	stripeSvc := services.NewStripeService("sk_test_123", webhookSecret, nil)
	notifications := services.NewNotificationService(mail, templates.MustNewRenderer(), "Mama Food's", "admin@mamafoods.fr", nil, log)
	checkout := services.NewCheckoutService(stripeSvc, services.CheckoutSettings{StoreName: "Mama Food's", FrontendURL: "https://shop.example.com"}, nil, log)
	webhookSvc := services.NewWebhookService(services.WebhookDeps{
		Provider:      stripeSvc,
		Notifications: notifications,
		Processed:     repository.NewMemoryProcessedSessionRepository(time.Hour),
		Logger:        log,
	})

	r := gin.New()
	routes.RegisterRoutes(r, routes.Controllers{
		Checkout: controllers.NewCheckoutController(checkout, log),
		Webhook:  controllers.NewWebhookController(webhookSvc, log),
		System:   controllers.NewSystemController(notifications, "Mama Food's", log),
	}, routes.Options{AllowedOrigins: []string{"https://shop.example.com"}, ServiceName: "checkout-service"}, log)
	return r, mail
}

func TestTable_OnlyWebhookGetsRawBody(t *testing.T) {
	table := routes.Table(routes.Controllers{})

	var raw []string
	seen := map[string]bool{}
	for _, route := range table {
		key := route.Method + " " + route.Path
		assert.False(t, seen[key], "duplicate route %s", key)
		seen[key] = true
		if route.Body == middleware.BodyRaw {
			raw = append(raw, key)
		}
		if route.Method == http.MethodPost && route.Path != "/webhook" {
			assert.Equal(t, middleware.BodyJSON, route.Body, key)
		}
	}
	assert.Equal(t, []string{"POST /webhook"}, raw)

	for _, key := range []string{"POST /create-checkout-session", "POST /webhook", "POST /test-email", "GET /health", "GET /checkout-session/:id"} {
		assert.True(t, seen[key], "missing %s", key)
	}
}

func TestRouter_WebhookVerifiesExactBytes(t *testing.T) {
	r, mail := newTestRouter(t)

	// Whitespace and key order must survive untouched for the signature to match.
	payload := []byte(`{
  "id": "evt_routes_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {"object": {"id": "cs_routes_1", "object": "checkout.session", "amount_total": 2350, "currency": "eur",
    "metadata": {"items": "[{\"name\":\"Plat A\",\"quantity\":2}]", "delivery": "3", "discount": "0", "customerEmail": "a@b.com"}}}
}`)
	header := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload, Secret: webhookSecret, Timestamp: time.Now(),
	}).Header

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(controllers.SignatureHeader, header)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
	assert.Equal(t, []string{"a@b.com", "admin@mamafoods.fr"}, mail.recipients())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_WebhookRejectsBadSignature(t *testing.T) {
	r, mail := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"id":"evt_1","object":"event"}`))
	req.Header.Set(controllers.SignatureHeader, "t=1,v1=deadbeef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "Webhook Error: "))
	assert.Empty(t, mail.recipients())
}

func TestRouter_CheckoutRejectsNonJSON(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/create-checkout-session", strings.NewReader("totalAmount=10"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/create-checkout-session", strings.NewReader(`{"totalAmount":0,"items":[]}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Données panier invalides", body["message"])
}

func TestRouter_HealthAndCORS(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	req := httptest.NewRequest(http.MethodOptions, "/create-checkout-session", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
