package domain

import "time"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderCODPending OrderStatus = "cod_pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderRejected   OrderStatus = "rejected"
)

type PaymentClass string

const (
	PaymentCOD     PaymentClass = "cod"
	PaymentPrepaid PaymentClass = "prepaid"
)

// InitialStatus is the status an order starts in for its payment class.
func InitialStatus(pc PaymentClass) OrderStatus {
	if pc == PaymentCOD {
		return OrderCODPending
	}
	return OrderPending
}

type ReplyIntent string

const (
	ReplyConfirm ReplyIntent = "confirm"
	ReplyReject  ReplyIntent = "reject"
	ReplyOther   ReplyIntent = "other"
)

// Terminal reports whether no reply can move the order anymore.
func (s OrderStatus) Terminal() bool {
	return s == OrderConfirmed || s == OrderRejected
}

// NextStatus applies a reply intent to the current status. Terminal states
// absorb every intent, so a repeated confirm on a confirmed order is a no-op.
func NextStatus(cur OrderStatus, intent ReplyIntent) OrderStatus {
	if cur.Terminal() {
		return cur
	}
	switch intent {
	case ReplyConfirm:
		return OrderConfirmed
	case ReplyReject:
		return OrderRejected
	default:
		return cur
	}
}

type Order struct {
	ID             string       `json:"id"`
	OrderID        string       `json:"orderId"`
	ExternalID     int64        `json:"externalId"`
	Phone          string       `json:"phone"`
	Name           string       `json:"name"`
	Total          string       `json:"total"`
	Items          string       `json:"items"`
	PaymentClass   PaymentClass `json:"paymentClass"`
	Status         OrderStatus  `json:"status"`
	LastReply      string       `json:"lastReply,omitempty"`
	TrackingNumber string       `json:"trackingNumber,omitempty"`
	TrackingURL    string       `json:"trackingUrl,omitempty"`
	ShippedAt      *time.Time   `json:"shippedAt,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// OrderPatch carries what a reply may change. The store resolves Intent
// against the status it holds at write time, so the transition is decided
// under the same lock that applies it. An empty Intent or a nil LastReply
// leaves that field untouched.
type OrderPatch struct {
	Intent    ReplyIntent
	LastReply *string
}

// Apply writes the patch onto o and bumps UpdatedAt.
func (p OrderPatch) Apply(o *Order, now time.Time) {
	if p.Intent != "" {
		o.Status = NextStatus(o.Status, p.Intent)
	}
	if p.LastReply != nil {
		o.LastReply = *p.LastReply
	}
	o.UpdatedAt = now
}

// Shipment is what a fulfillment event records on an order.
type Shipment struct {
	TrackingNumber string
	TrackingURL    string
	ShippedAt      time.Time
}
