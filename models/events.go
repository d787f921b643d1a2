package models

import "time"

const (
	EventTypeOrderPaid = "order_paid"
)

// OrderPaidEvent is published once a checkout session completes.
type OrderPaidEvent struct {
	EventID       string     `json:"event_id"`
	Type          string     `json:"type"`
	SessionID     string     `json:"session_id"`
	AmountTotal   int64      `json:"amount_total"`
	Currency      string     `json:"currency"`
	CustomerEmail string     `json:"customer_email,omitempty"`
	CustomerName  string     `json:"customer_name,omitempty"`
	Items         []CartItem `json:"items"`
	Timestamp     time.Time  `json:"timestamp"`
}
