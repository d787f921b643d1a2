// Package templates renders the order emails. Rendering is pure: the same
// EmailData always produces the same bytes.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"checkout-service/models"
)

//go:embed html/*.html
var files embed.FS

const (
	customerTemplate = "customer_order.html"
	adminTemplate    = "admin_order.html"
)

// NotProvided is shown in the admin email for unknown customer fields.
const NotProvided = "Non renseigné"

// EmailData is the view model shared by both templates. Amounts are already
// formatted with two decimals.
type EmailData struct {
	StoreName     string
	SessionID     string
	Items         []models.CartItem
	Delivery      string
	Discount      string
	HasDiscount   bool
	Total         string
	Currency      string
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	AddressLines  []string
	Missing       string
}

// NewEmailData builds the view model for order. The total is the amount
// charged by the provider, never recomputed from the items.
func NewEmailData(order *models.PaidOrder, storeName string) EmailData {
	return EmailData{
		StoreName:     storeName,
		SessionID:     order.SessionID,
		Items:         order.Items,
		Delivery:      order.Delivery.StringFixed(2),
		Discount:      order.Discount.StringFixed(2),
		HasDiscount:   order.Discount.IsPositive(),
		Total:         order.Total().StringFixed(2),
		Currency:      CurrencySymbol(order.Currency),
		CustomerName:  orMissing(order.Customer.FullName),
		CustomerPhone: orMissing(order.Customer.Phone),
		CustomerEmail: orMissing(order.Customer.Email),
		AddressLines:  order.Customer.Address.Lines(),
		Missing:       NotProvided,
	}
}

// CurrencySymbol returns the suffix printed after amounts.
func CurrencySymbol(currency string) string {
	switch strings.ToLower(currency) {
	case "", "eur":
		return "€"
	case "usd":
		return "$"
	case "gbp":
		return "£"
	case "chf":
		return " CHF"
	default:
		return " " + strings.ToUpper(currency)
	}
}

// Renderer holds the parsed email templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(files, "html/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// MustNewRenderer is NewRenderer for package initialisation and tests.
func MustNewRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// RenderCustomer renders the confirmation sent to the buyer.
func (r *Renderer) RenderCustomer(data EmailData) (string, error) {
	return r.render(customerTemplate, data)
}

// RenderAdmin renders the new-order notification sent to the shop.
func (r *Renderer) RenderAdmin(data EmailData) (string, error) {
	return r.render(adminTemplate, data)
}

func (r *Renderer) render(name string, data EmailData) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("template %s render failed: %w", name, err)
	}
	return buf.String(), nil
}

func orMissing(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotProvided
	}
	return s
}
