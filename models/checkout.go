package models

import (
	"strings"

	apperrors "checkout-service/common/errors"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"
)

// notblank is shared with gin's binding engine so ShouldBindJSON and Validate
// enforce the same tags.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("notblank", validators.NotBlank)
	}
}

// CartItem is one line of the storefront cart.
type CartItem struct {
	Name        string `json:"name" binding:"required,notblank"`
	Description string `json:"description,omitempty"`
	Quantity    int    `json:"quantity" binding:"min=1"`
}

type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

// IsZero reports whether no address field is set.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Lines returns the non-empty address parts in display order.
func (a Address) Lines() []string {
	var lines []string
	if s := strings.TrimSpace(a.Street); s != "" {
		lines = append(lines, s)
	}
	city := strings.TrimSpace(strings.TrimSpace(a.PostalCode) + " " + strings.TrimSpace(a.City))
	if city != "" {
		lines = append(lines, city)
	}
	if s := strings.TrimSpace(a.Country); s != "" {
		lines = append(lines, s)
	}
	return lines
}

// CheckoutRequest is the payload posted by the storefront to start a payment.
type CheckoutRequest struct {
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Description     string          `json:"description"`
	Delivery        decimal.Decimal `json:"delivery"`
	Discount        decimal.Decimal `json:"discount"`
	Items           []CartItem      `json:"items" binding:"required,min=1,dive"`
	CustomerEmail   string          `json:"customerEmail"`
	CustomerName    string          `json:"customerName"`
	CustomerPhone   string          `json:"customerPhone"`
	CustomerAddress Address         `json:"customerAddress"`
}

// InvalidCartMessage is returned to the storefront for any rejected cart.
const InvalidCartMessage = "Données panier invalides"

// Validate rejects carts that cannot be charged. Structural rules come from
// the binding tags; amounts are checked here. The returned error is always a
// validation error.
func (r *CheckoutRequest) Validate() error {
	if r == nil || len(r.Items) == 0 {
		return apperrors.Validation(InvalidCartMessage)
	}
	if err := binding.Validator.ValidateStruct(r); err != nil {
		return apperrors.Validation(InvalidCartMessage)
	}
	// A total that rounds to zero cents cannot be charged.
	if !r.TotalAmount.IsPositive() || r.MinorUnits() < 1 {
		return apperrors.Validation(InvalidCartMessage)
	}
	if r.Delivery.IsNegative() || r.Discount.IsNegative() {
		return apperrors.Validation(InvalidCartMessage)
	}
	return nil
}

// MinorUnits converts the order total to the integer amount charged by the
// payment provider (cents), rounding half away from zero.
func (r *CheckoutRequest) MinorUnits() int64 {
	return r.TotalAmount.Shift(2).Round(0).IntPart()
}

// Customer returns the customer fields captured at checkout.
func (r *CheckoutRequest) Customer() CustomerInfo {
	return CustomerInfo{
		FullName: strings.TrimSpace(r.CustomerName),
		Email:    strings.TrimSpace(r.CustomerEmail),
		Phone:    strings.TrimSpace(r.CustomerPhone),
		Address:  r.CustomerAddress,
	}
}

// CustomerInfo is reconstructed from the payment session when it completes.
type CustomerInfo struct {
	FullName string
	Email    string
	Phone    string
	Address  Address
}

// PaidOrder is everything known about an order once its payment completed.
// AmountTotal is the amount the provider actually charged, in minor units.
type PaidOrder struct {
	SessionID   string
	Items       []CartItem
	Delivery    decimal.Decimal
	Discount    decimal.Decimal
	AmountTotal int64
	Currency    string
	Customer    CustomerInfo
}

// Total returns the charged amount in major units.
func (o *PaidOrder) Total() decimal.Decimal {
	return decimal.New(o.AmountTotal, -2)
}

// CheckoutSessionResponse is returned by POST /create-checkout-session.
type CheckoutSessionResponse struct {
	URL string `json:"url"`
}

// SessionStatusResponse is returned by GET /checkout-session/:id.
type SessionStatusResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
	AmountTotal   int64  `json:"amountTotal"`
	Currency      string `json:"currency"`
	CustomerEmail string `json:"customerEmail,omitempty"`
}
