package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"checkout-service/sender"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v80"
)

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []sentEmail
	failTo map[string]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{failTo: map[string]bool{}}
}

func (f *fakeSender) SendEmail(_ context.Context, to, subject, htmlBody string) (sender.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{To: to, Subject: subject, Body: htmlBody})
	if f.failTo[to] {
		return sender.SendResult{}, errors.New("mailbox unavailable")
	}
	return sender.SendResult{MessageID: "msg-" + to}, nil
}

func (f *fakeSender) calls() []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEmail(nil), f.sent...)
}

type fakeProvider struct {
	createCalls int
	lastParams  *stripe.CheckoutSessionParams
	createErr   error
	session     *stripe.CheckoutSession
	getErr      error
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.createCalls++
	f.lastParams = params
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.session, nil
}

func (f *fakeProvider) GetCheckoutSession(_ context.Context, id string) (*stripe.CheckoutSession, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.session, nil
}

func (f *fakeProvider) ConstructEvent([]byte, string) (stripe.Event, error) {
	return stripe.Event{}, errors.New("not used")
}

type fakeMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{counts: map[string]int{}}
}

func (f *fakeMetrics) RecordCount(_ context.Context, name string, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[name]++
	return nil
}

func (f *fakeMetrics) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[name]
}

// assertCount waits for background metric writes to land.
func (f *fakeMetrics) assertCount(t *testing.T, name string, want int) {
	t.Helper()
	assert.Eventually(t, func() bool { return f.count(name) == want }, time.Second, 5*time.Millisecond, "metric %s", name)
}

type fakePublisher struct {
	topics   []string
	messages [][]byte
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, topicArn string, message []byte) error {
	f.topics = append(f.topics, topicArn)
	f.messages = append(f.messages, message)
	return f.err
}
