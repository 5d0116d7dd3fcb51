// Package shopify holds the inbound webhook contract: payload shapes for
// orders/create and fulfillments/create and the HMAC body signature check.
package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const HeaderHMAC = "X-Shopify-Hmac-Sha256"

// VerifyHMAC checks base64(HMAC-SHA256(secret, body)) against the header value
// in constant time.
func VerifyHMAC(secret string, body []byte, header string) error {
	if strings.TrimSpace(secret) == "" {
		return fmt.Errorf("webhook secret not configured")
	}
	if strings.TrimSpace(header) == "" {
		return fmt.Errorf("hmac header required")
	}
	got, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header))
	if err != nil {
		return fmt.Errorf("hmac header not base64: %w", err)
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return fmt.Errorf("hmac mismatch")
	}
	return nil
}

// Sign returns the header value Shopify would send for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	City      string `json:"city"`
}

func (a *Address) fullName() string {
	if a == nil {
		return ""
	}
	if n := strings.TrimSpace(a.Name); n != "" {
		return n
	}
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type LineItem struct {
	Title        string `json:"title"`
	VariantTitle string `json:"variant_title"`
	Quantity     int    `json:"quantity"`
}

type Order struct {
	ID                  int64      `json:"id"`
	Name                string     `json:"name"`
	OrderNumber         int64      `json:"order_number"`
	Phone               string     `json:"phone"`
	TotalPrice          string     `json:"total_price"`
	Currency            string     `json:"currency"`
	FinancialStatus     string     `json:"financial_status"`
	Gateway             string     `json:"gateway"`
	PaymentGatewayNames []string   `json:"payment_gateway_names"`
	Tags                string     `json:"tags"`
	Customer            *Customer  `json:"customer"`
	ShippingAddress     *Address   `json:"shipping_address"`
	BillingAddress      *Address   `json:"billing_address"`
	LineItems           []LineItem `json:"line_items"`
}

// RawPhone picks the first phone present, preferring the shipping address.
func (o Order) RawPhone() string {
	cands := []string{}
	if o.ShippingAddress != nil {
		cands = append(cands, o.ShippingAddress.Phone)
	}
	if o.Customer != nil {
		cands = append(cands, o.Customer.Phone)
	}
	if o.BillingAddress != nil {
		cands = append(cands, o.BillingAddress.Phone)
	}
	cands = append(cands, o.Phone)
	for _, c := range cands {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}

func (o Order) CustomerName() string {
	if n := o.ShippingAddress.fullName(); n != "" {
		return n
	}
	if o.Customer != nil {
		if n := strings.TrimSpace(o.Customer.FirstName + " " + o.Customer.LastName); n != "" {
			return n
		}
	}
	if n := o.BillingAddress.fullName(); n != "" {
		return n
	}
	return "Customer"
}

// DisplayID is the merchant-visible order id, e.g. "#1001".
func (o Order) DisplayID() string {
	if n := strings.TrimSpace(o.Name); n != "" {
		return n
	}
	if o.OrderNumber > 0 {
		return "#" + strconv.FormatInt(o.OrderNumber, 10)
	}
	return strconv.FormatInt(o.ID, 10)
}

// ItemsSummary renders line items as "2x Case (Black), 1x Charger".
func (o Order) ItemsSummary() string {
	parts := make([]string, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		title := strings.TrimSpace(li.Title)
		if v := strings.TrimSpace(li.VariantTitle); v != "" {
			title += " (" + v + ")"
		}
		q := li.Quantity
		if q <= 0 {
			q = 1
		}
		parts = append(parts, strconv.Itoa(q)+"x "+title)
	}
	return strings.Join(parts, ", ")
}

var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// FormattedTotal renders total_price with the currency symbol, e.g. "₹499.00".
func (o Order) FormattedTotal() string {
	total := strings.TrimSpace(o.TotalPrice)
	if f, err := strconv.ParseFloat(total, 64); err == nil {
		total = strconv.FormatFloat(f, 'f', 2, 64)
	}
	cur := strings.ToUpper(strings.TrimSpace(o.Currency))
	if sym, ok := currencySymbols[cur]; ok {
		return sym + total
	}
	if cur == "" {
		return total
	}
	return cur + " " + total
}

type Fulfillment struct {
	ID             int64    `json:"id"`
	OrderID        int64    `json:"order_id"`
	Name           string   `json:"name"`
	TrackingNumber string   `json:"tracking_number"`
	TrackingURL    string   `json:"tracking_url"`
	Destination    *Address `json:"destination"`
}

func (f Fulfillment) RawPhone() string {
	if f.Destination == nil {
		return ""
	}
	return f.Destination.Phone
}

func (f Fulfillment) CustomerName() string {
	return f.Destination.fullName()
}

// OrderName strips the fulfillment suffix: "#1001.1" -> "#1001".
func (f Fulfillment) OrderName() string {
	n := strings.TrimSpace(f.Name)
	if i := strings.LastIndexByte(n, '.'); i > 0 {
		return n[:i]
	}
	return n
}
