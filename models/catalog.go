package models

// Catalog is the static product listing plus shop and payment metadata.
// It is loaded once at startup and never mutated afterwards.
type Catalog struct {
	Shop     ShopInfo    `json:"shop"`
	Payment  PaymentInfo `json:"payment"`
	Products []Product   `json:"products"`
}

type ShopInfo struct {
	Tagline   string `json:"tagline"`
	FinePrint string `json:"finePrint"`
}

// PaymentInfo carries the manual payment targets. NoteFormat is a template
// with {ORDER_CODE} and {FIRST_NAME} placeholders substituted per order.
type PaymentInfo struct {
	VenmoHandle string `json:"venmoHandle"`
	ZelleTarget string `json:"zelleTarget"`
	NoteFormat  string `json:"noteFormat"`
}

type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       int      `json:"price"`
	ShortCode   string   `json:"shortCode,omitempty"`
	Description string   `json:"description"`
	StatsLine   string   `json:"statsLine,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Badge       *Badge   `json:"badge,omitempty"`
	Images      Images   `json:"images"`
	Options     []Option `json:"options,omitempty"`
}

type Badge struct {
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

type Images struct {
	Card string `json:"card"`
	Hero string `json:"hero"`
}

// Option is one configurable axis of a product. Values is non-empty for
// every option present on a product; the catalog loader enforces this.
type Option struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Values []OptionValue `json:"values"`
}

type OptionValue struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Swatch string `json:"swatch,omitempty"`
}
