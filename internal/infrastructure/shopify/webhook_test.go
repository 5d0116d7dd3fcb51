package shopify

import (
	"encoding/json"
	"testing"
)

func TestVerifyHMAC(t *testing.T) {
	body := []byte(`{"id":1}`)
	h := Sign("shh", body)
	if err := VerifyHMAC("shh", body, h); err != nil {
		t.Fatalf("valid hmac rejected: %v", err)
	}
	if err := VerifyHMAC("shh", []byte(`{"id":2}`), h); err == nil {
		t.Fatal("tampered body accepted")
	}
	if err := VerifyHMAC("", body, h); err == nil {
		t.Fatal("empty secret accepted")
	}
	if err := VerifyHMAC("shh", body, "%%%"); err == nil {
		t.Fatal("garbage header accepted")
	}
}

func TestOrderHelpers(t *testing.T) {
	raw := `{
		"id": 5551234,
		"name": "#1001",
		"total_price": "499",
		"currency": "INR",
		"customer": {"first_name": "Asha", "last_name": "Rao", "phone": "+91 98765 43210"},
		"shipping_address": {"first_name": "Asha", "last_name": "R", "phone": ""},
		"line_items": [{"title": "Phone Case", "variant_title": "Black", "quantity": 2}, {"title": "Charger", "quantity": 0}]
	}`
	var o Order
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if o.RawPhone() != "+91 98765 43210" {
		t.Fatalf("phone fallback: %q", o.RawPhone())
	}
	if o.CustomerName() != "Asha R" {
		t.Fatalf("name: %q", o.CustomerName())
	}
	if o.DisplayID() != "#1001" {
		t.Fatalf("display id: %q", o.DisplayID())
	}
	if o.FormattedTotal() != "₹499.00" {
		t.Fatalf("total: %q", o.FormattedTotal())
	}
	if got := o.ItemsSummary(); got != "2x Phone Case (Black), 1x Charger" {
		t.Fatalf("items: %q", got)
	}
}

func TestFulfillmentOrderName(t *testing.T) {
	f := Fulfillment{Name: "#1001.1"}
	if f.OrderName() != "#1001" {
		t.Fatalf("got %q", f.OrderName())
	}
	if (Fulfillment{}).RawPhone() != "" {
		t.Fatal("nil destination should give empty phone")
	}
}
