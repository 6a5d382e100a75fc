package models

import "time"

type PaymentMethod string

const (
	PaymentMethodVenmo PaymentMethod = "Venmo"
	PaymentMethodZelle PaymentMethod = "Zelle"
)

type RequestStatus string

// Every submitted order and craft request starts out Requested; later stages
// are tracked by hand, not by this service.
const StatusRequested RequestStatus = "Requested"

// CartLine is one configured, quantified addition of a product to the cart.
// Lines are never merged: re-adding the same product yields a new line with
// a fresh LineID.
type CartLine struct {
	LineID     string            `json:"lineId"`
	ProductID  string            `json:"productId"`
	Qty        int               `json:"qty"`
	Selections map[string]string `json:"selections"`
}

// CheckoutForm holds the buyer-entered fields. It lives in memory only and
// is snapshotted into an Order at submission.
type CheckoutForm struct {
	FirstName     string        `json:"firstName"`
	ClassTeacher  string        `json:"classTeacher"`
	Note          string        `json:"note"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

// Order is an immutable record of a submitted purchase request awaiting
// manual payment and fulfillment.
type Order struct {
	OrderCode     string        `json:"orderCode"`
	CreatedAt     time.Time     `json:"createdAt"`
	FirstName     string        `json:"firstName"`
	ClassTeacher  string        `json:"classTeacher"`
	Note          string        `json:"note"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Lines         []CartLine    `json:"lines"`
	Status        RequestStatus `json:"status"`
}

// CraftRequest is a custom-item ask submitted from the craft view. It shares
// the append-only log contract with orders but has no cart attached.
type CraftRequest struct {
	ID           string        `json:"id"`
	CreatedAt    time.Time     `json:"createdAt"`
	Name         string        `json:"name"`
	ClassTeacher string        `json:"classTeacher"`
	Request      string        `json:"request"`
	Status       RequestStatus `json:"status"`
}
