package app

// Event types emitted after state mutations.
const (
	EventCartChanged    = "cart_changed"
	EventOrderSubmitted = "order_submitted"
	EventCraftRequested = "craft_requested"
)

// Event is the notification payload consumed by subscribers (the UI layer
// and the Kafka publisher).
type Event struct {
	Type      string `json:"event_type"`
	CartCount int    `json:"cart_count"`
	OrderCode string `json:"order_code,omitempty"`
	CraftID   string `json:"craft_id,omitempty"`
	Total     int    `json:"total,omitempty"`
}

// Subscriber receives events synchronously after the mutation that produced
// them has been persisted.
type Subscriber func(Event)
