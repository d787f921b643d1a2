package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"checkout-service/models"

	"github.com/shopspring/decimal"
)

// Metadata keys written on every checkout session.
const (
	MetaDelivery   = "delivery"
	MetaDiscount   = "discount"
	MetaItems      = "items"
	MetaItemsParts = "items_parts"

	MetaCustomerName       = "customerName"
	MetaCustomerEmail      = "customerEmail"
	MetaCustomerPhone      = "customerPhone"
	MetaCustomerStreet     = "customerStreet"
	MetaCustomerCity       = "customerCity"
	MetaCustomerPostalCode = "customerPostalCode"
	MetaCustomerCountry    = "customerCountry"
)

// MaxMetadataValueLen is the provider's limit for a single metadata value.
const MaxMetadataValueLen = 500

// maxItemParts keeps the item list within the provider's 50-key budget
// alongside the fixed keys above.
const maxItemParts = 40

// OrderMetadata is the order content carried by a session's metadata.
type OrderMetadata struct {
	Items    []models.CartItem
	Delivery decimal.Decimal
	Discount decimal.Decimal
	Customer models.CustomerInfo
}

// EncodeOrderMetadata flattens a checkout request into the string-only
// metadata bag of a payment session.
func EncodeOrderMetadata(req *models.CheckoutRequest) (map[string]string, error) {
	md := map[string]string{
		MetaDelivery: req.Delivery.String(),
		MetaDiscount: req.Discount.String(),
	}

	parts, err := EncodeItems(req.Items)
	if err != nil {
		return nil, err
	}
	if len(parts) == 1 {
		md[MetaItems] = parts[0]
	} else {
		md[MetaItemsParts] = strconv.Itoa(len(parts))
		for i, p := range parts {
			md[itemPartKey(i)] = p
		}
	}

	customer := req.Customer()
	setIfPresent(md, MetaCustomerName, customer.FullName)
	setIfPresent(md, MetaCustomerEmail, customer.Email)
	setIfPresent(md, MetaCustomerPhone, customer.Phone)
	setIfPresent(md, MetaCustomerStreet, customer.Address.Street)
	setIfPresent(md, MetaCustomerCity, customer.Address.City)
	setIfPresent(md, MetaCustomerPostalCode, customer.Address.PostalCode)
	setIfPresent(md, MetaCustomerCountry, customer.Address.Country)

	return md, nil
}

// DecodeOrderMetadata rebuilds the order content from a session's metadata.
// Missing delivery or discount decode as zero; missing customer fields stay empty.
func DecodeOrderMetadata(md map[string]string) (*OrderMetadata, error) {
	items, err := decodeItemsFromMetadata(md)
	if err != nil {
		return nil, err
	}

	delivery, err := parseAmount(md, MetaDelivery)
	if err != nil {
		return nil, err
	}
	discount, err := parseAmount(md, MetaDiscount)
	if err != nil {
		return nil, err
	}

	return &OrderMetadata{
		Items:    items,
		Delivery: delivery,
		Discount: discount,
		Customer: models.CustomerInfo{
			FullName: md[MetaCustomerName],
			Email:    md[MetaCustomerEmail],
			Phone:    md[MetaCustomerPhone],
			Address: models.Address{
				Street:     md[MetaCustomerStreet],
				City:       md[MetaCustomerCity],
				PostalCode: md[MetaCustomerPostalCode],
				Country:    md[MetaCustomerCountry],
			},
		},
	}, nil
}

// EncodeItems serializes items to JSON and splits the result, on rune
// boundaries, into values no longer than MaxMetadataValueLen bytes.
func EncodeItems(items []models.CartItem) ([]string, error) {
	if items == nil {
		items = []models.CartItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}

	parts := splitRunes(string(raw), MaxMetadataValueLen)
	if len(parts) > maxItemParts {
		return nil, fmt.Errorf("encode items: %d bytes exceed metadata capacity", len(raw))
	}
	return parts, nil
}

// DecodeItems joins the parts produced by EncodeItems and parses them.
func DecodeItems(parts []string) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := json.Unmarshal([]byte(strings.Join(parts, "")), &items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return items, nil
}

func decodeItemsFromMetadata(md map[string]string) ([]models.CartItem, error) {
	if rawParts, ok := md[MetaItemsParts]; ok {
		n, err := strconv.Atoi(rawParts)
		if err != nil || n < 1 || n > maxItemParts {
			return nil, fmt.Errorf("decode items: invalid %s %q", MetaItemsParts, rawParts)
		}
		parts := make([]string, n)
		for i := range parts {
			p, ok := md[itemPartKey(i)]
			if !ok {
				return nil, fmt.Errorf("decode items: missing %s", itemPartKey(i))
			}
			parts[i] = p
		}
		return DecodeItems(parts)
	}

	raw, ok := md[MetaItems]
	if !ok {
		return nil, fmt.Errorf("decode items: metadata has no %s", MetaItems)
	}
	return DecodeItems([]string{raw})
}

func parseAmount(md map[string]string, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(md[key])
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode %s: %w", key, err)
	}
	return d, nil
}

func itemPartKey(i int) string {
	return MetaItems + "_" + strconv.Itoa(i)
}

func setIfPresent(md map[string]string, key, value string) {
	if value != "" {
		md[key] = splitRunes(value, MaxMetadataValueLen)[0]
	}
}

// splitRunes cuts s into chunks of at most max bytes without splitting a
// UTF-8 sequence.
func splitRunes(s string, max int) []string {
	if len(s) <= max {
		return []string{s}
	}
	var parts []string
	for len(s) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		parts = append(parts, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}
