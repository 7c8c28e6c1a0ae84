package entity

import "strings"

// OrderStatus is the lifecycle status of an upstream order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusOnHold     OrderStatus = "on-hold"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
	StatusRefunded   OrderStatus = "refunded"
	StatusFailed     OrderStatus = "failed"
)

// labelByStatus maps upstream statuses to the localized labels shown on
// exported rows. Unmapped statuses pass through unchanged.
var labelByStatus = map[OrderStatus]string{
	StatusCompleted:  "Terminée",
	StatusProcessing: "En cours",
	StatusRefunded:   "Remboursée",
	StatusCancelled:  "Annulée",
	StatusFailed:     "Échouée",
	StatusOnHold:     "En attente",
	StatusPending:    "En attente",
}

// Label returns the localized display label for the status.
func (s OrderStatus) Label() string {
	if l, ok := labelByStatus[s]; ok {
		return l
	}
	return string(s)
}

// Billing carries the contact fields used on exported rows.
type Billing struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	City      string `json:"city"`
}

// OrderRefundSummary is the refund stub embedded in an order payload.
// A present but empty refunds array means the order has no refunds and
// no per-order refund lookup is needed.
type OrderRefundSummary struct {
	ID     int    `json:"id"`
	Reason string `json:"reason"`
	Total  string `json:"total"`
}

// Order is the upstream order payload, read-only. Monetary fields are
// decimal strings as received on the wire.
type Order struct {
	ID                 int                  `json:"id"`
	Number             string               `json:"number"`
	Status             OrderStatus          `json:"status"`
	Currency           string               `json:"currency"`
	Total              string               `json:"total"`
	ShippingTotal      string               `json:"shipping_total"`
	DiscountTotal      string               `json:"discount_total"`
	DateCreated        string               `json:"date_created"`
	PaymentMethodTitle string               `json:"payment_method_title"`
	Billing            Billing              `json:"billing"`
	Refunds            []OrderRefundSummary `json:"refunds"`
}

// Refund is one refund attached to an order. The amount sign is ambiguous
// upstream and must be normalized by the caller.
type Refund struct {
	ID          int    `json:"id"`
	Amount      string `json:"amount"`
	DateCreated string `json:"date_created"`
	Reason      string `json:"reason"`
}

// NormalizeTimestamp rewrites an upstream ISO 8601 timestamp to the
// local-naive "2006-01-02 15:04:05" form: the T separator becomes a space
// and any trailing Z or sub-second precision is dropped. No timezone
// conversion is applied beyond what the source already did.
func NormalizeTimestamp(ts string) string {
	ts = strings.TrimSuffix(ts, "Z")
	if i := strings.IndexByte(ts, '.'); i >= 0 {
		ts = ts[:i]
	}
	return strings.Replace(ts, "T", " ", 1)
}
