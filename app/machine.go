package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeadland/liam-loot-storefront/catalog"
	"github.com/jeadland/liam-loot-storefront/models"
	"github.com/jeadland/liam-loot-storefront/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Validation failures surfaced to the user. The messages are the exact
// strings shown in the storefront toast.
var (
	ErrFirstNameRequired     = errors.New("First name is required.")
	ErrPaymentMethodRequired = errors.New("Choose Venmo or Zelle.")
	ErrCraftFieldsRequired   = errors.New("Name and request are required.")
	ErrUnknownCheckoutField  = errors.New("unknown checkout field")
)

// IsValidationError reports whether err should be surfaced to the user as a
// retryable validation failure rather than an internal error. An unknown
// checkout field is a caller bug, not user input, so it is excluded.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrFirstNameRequired) ||
		errors.Is(err, ErrPaymentMethodRequired) ||
		errors.Is(err, ErrCraftFieldsRequired)
}

// FilterAll is the neutral filter: the set always contains it when no other
// filter is active.
const FilterAll = "all"

// DetailState is the in-progress configuration on the product view. It is
// reset whenever the viewed product changes.
type DetailState struct {
	ProductID  string            `json:"productId"`
	Selections map[string]string `json:"selections"`
	Qty        int               `json:"qty"`
}

// Machine owns all session state: catalog index, cart, active filters,
// product detail configuration, checkout form, and the last submitted order.
// Operations are serialized by a single mutex; each one runs to completion,
// persists, and then notifies subscribers.
type Machine struct {
	mu        sync.Mutex
	catalog   *models.Catalog
	index     catalog.Index
	store     *store.Store
	logger    *zap.Logger
	cart      []models.CartLine
	filters   map[string]bool
	detail    DetailState
	checkout  models.CheckoutForm
	lastOrder *models.Order
	subs      []Subscriber
}

// New builds the machine, rehydrating the cart from the persistence store.
func New(ctx context.Context, cat *models.Catalog, st *store.Store, logger *zap.Logger) *Machine {
	return &Machine{
		catalog: cat,
		index:   catalog.BuildIndex(cat.Products),
		store:   st,
		logger:  logger,
		cart:    st.LoadCart(ctx),
		filters: map[string]bool{FilterAll: true},
		detail:  DetailState{Qty: 1, Selections: map[string]string{}},
	}
}

// Subscribe registers a notification callback. Subscribers run synchronously
// after the mutation that produced the event.
func (m *Machine) Subscribe(fn Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

func (m *Machine) notify(ev Event) {
	m.mu.Lock()
	subs := append([]Subscriber(nil), m.subs...)
	m.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func (m *Machine) Catalog() *models.Catalog { return m.catalog }

// Lookup resolves a product id against the catalog index.
func (m *Machine) Lookup(id string) (models.Product, bool) {
	p, ok := m.index[id]
	return p, ok
}

// --- Filters ---

// SetFilter toggles a filter id. Selecting "all" clears everything else;
// selecting any other id removes "all" first; removing the last remaining
// filter re-adds "all" so the set is never empty.
func (m *Machine) SetFilter(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == FilterAll {
		m.filters = map[string]bool{FilterAll: true}
		return m.activeFiltersLocked()
	}

	delete(m.filters, FilterAll)
	if m.filters[id] {
		delete(m.filters, id)
	} else {
		m.filters[id] = true
	}
	if len(m.filters) == 0 {
		m.filters[FilterAll] = true
	}
	return m.activeFiltersLocked()
}

// Filters returns the active filter ids, sorted for stable output.
func (m *Machine) Filters() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeFiltersLocked()
}

func (m *Machine) activeFiltersLocked() []string {
	ids := make([]string, 0, len(m.filters))
	for id := range m.filters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FilteredProducts returns the catalog products surviving the active filter
// set, catalog order preserved. A product survives when any active filter
// matches one of its lower-cased tags, or the "new"/"bestSeller" filters
// match its badge text.
func (m *Machine) FilteredProducts() []models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.filters[FilterAll] || len(m.filters) == 0 {
		return m.catalog.Products
	}

	var out []models.Product
	for _, p := range m.catalog.Products {
		if m.matchesLocked(p) {
			out = append(out, p)
		}
	}
	return out
}

func (m *Machine) matchesLocked(p models.Product) bool {
	tags := make(map[string]bool, len(p.Tags))
	for _, t := range p.Tags {
		tags[strings.ToLower(t)] = true
	}

	badge := ""
	if p.Badge != nil {
		badge = p.Badge.Kind
		if badge == "" {
			badge = p.Badge.Label
		}
		badge = strings.ToLower(badge)
	}

	for id := range m.filters {
		if id == "new" && strings.Contains(badge, "new") {
			return true
		}
		if id == "bestSeller" && strings.Contains(badge, "best") {
			return true
		}
		if tags[id] {
			return true
		}
	}
	return false
}

// --- Cart ---

// Cart returns a copy of the cart lines in add order.
func (m *Machine) Cart() []models.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CartLine(nil), m.cart...)
}

func (m *Machine) CartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return store.Count(m.cart)
}

func (m *Machine) CartTotal() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return store.Total(m.cart, m.index)
}

// AddToCart appends a new line for the product. Lines are never merged; the
// same product added twice yields two lines with distinct ids. A nil
// selections map defaults to the first value of every option. Unknown
// product ids are a no-op. Returns the new cart count and whether a line
// was added.
func (m *Machine) AddToCart(ctx context.Context, productID string, qty int, selections map[string]string) (int, bool) {
	m.mu.Lock()

	p, ok := m.index[productID]
	if !ok {
		count := store.Count(m.cart)
		m.mu.Unlock()
		m.logger.Warn("Ignoring add to cart for unknown product", zap.String("product_id", productID))
		return count, false
	}

	if qty < 1 {
		qty = 1
	}
	sel := selections
	if sel == nil {
		sel = catalog.DefaultSelections(p)
	}

	line := models.CartLine{
		LineID:     uuid.NewString(),
		ProductID:  productID,
		Qty:        qty,
		Selections: sel,
	}
	m.cart = append(m.cart, line)
	m.persistCartLocked(ctx)
	count := store.Count(m.cart)
	m.mu.Unlock()

	m.logger.Info("Cart line added",
		zap.String("product_id", productID),
		zap.String("line_id", line.LineID),
		zap.Int("qty", qty),
	)
	m.notify(Event{Type: EventCartChanged, CartCount: count})
	return count, true
}

// RemoveLine deletes the line at the given position. Out-of-range indices
// are a silent no-op.
func (m *Machine) RemoveLine(ctx context.Context, index int) int {
	m.mu.Lock()

	if index < 0 || index >= len(m.cart) {
		count := store.Count(m.cart)
		m.mu.Unlock()
		return count
	}

	m.cart = append(m.cart[:index], m.cart[index+1:]...)
	m.persistCartLocked(ctx)
	count := store.Count(m.cart)
	m.mu.Unlock()

	m.notify(Event{Type: EventCartChanged, CartCount: count})
	return count
}

// ClearCart empties the cart and persists the empty list.
func (m *Machine) ClearCart(ctx context.Context) {
	m.mu.Lock()
	m.cart = []models.CartLine{}
	m.persistCartLocked(ctx)
	m.mu.Unlock()

	m.notify(Event{Type: EventCartChanged, CartCount: 0})
}

func (m *Machine) persistCartLocked(ctx context.Context) {
	if err := m.store.SaveCart(ctx, m.cart); err != nil {
		m.logger.Error("Failed to persist cart", zap.Error(err))
	}
}

// --- Product detail ---

// VisitProduct returns the product and detail state for the product view.
// The detail state resets to defaults exactly when the viewed product id
// differs from the one currently held.
func (m *Machine) VisitProduct(id string) (models.Product, DetailState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.index[id]
	if !ok {
		return models.Product{}, DetailState{}, false
	}
	if m.detail.ProductID != id {
		m.detail = DetailState{
			ProductID:  id,
			Selections: catalog.DefaultSelections(p),
			Qty:        1,
		}
	}
	return p, m.detailSnapshotLocked(), true
}

// Detail returns a copy of the current product detail state.
func (m *Machine) Detail() DetailState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detailSnapshotLocked()
}

func (m *Machine) detailSnapshotLocked() DetailState {
	sel := make(map[string]string, len(m.detail.Selections))
	for k, v := range m.detail.Selections {
		sel[k] = v
	}
	return DetailState{ProductID: m.detail.ProductID, Selections: sel, Qty: m.detail.Qty}
}

// SelectOption overwrites the chosen value for one option on the detail
// state. Transient; nothing is persisted until add-to-cart.
func (m *Machine) SelectOption(optionID, valueID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.detail.Selections == nil {
		m.detail.Selections = map[string]string{}
	}
	m.detail.Selections[optionID] = valueID
}

// AdjustQty applies a signed delta to the detail quantity, clamped at 1.
func (m *Machine) AdjustQty(delta int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detail.Qty += delta
	if m.detail.Qty < 1 {
		m.detail.Qty = 1
	}
	return m.detail.Qty
}

// --- Checkout ---

// UpdateCheckoutField overwrites one buyer-entered field.
func (m *Machine) UpdateCheckoutField(field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch field {
	case "firstName":
		m.checkout.FirstName = value
	case "classTeacher":
		m.checkout.ClassTeacher = value
	case "note":
		m.checkout.Note = value
	case "paymentMethod":
		m.checkout.PaymentMethod = models.PaymentMethod(value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCheckoutField, field)
	}
	return nil
}

// Checkout returns a copy of the in-progress checkout form.
func (m *Machine) Checkout() models.CheckoutForm {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkout
}

// SubmitOrder validates the checkout form, snapshots the cart into a new
// order, appends it to the persisted order log, clears the cart, and
// remembers the order for the confirmation view. The first-name check takes
// precedence over the payment-method check. On validation failure the cart
// and form are left untouched.
func (m *Machine) SubmitOrder(ctx context.Context) (*models.Order, error) {
	m.mu.Lock()

	firstName := strings.TrimSpace(m.checkout.FirstName)
	if firstName == "" {
		m.mu.Unlock()
		return nil, ErrFirstNameRequired
	}
	pm := m.checkout.PaymentMethod
	if pm != models.PaymentMethodVenmo && pm != models.PaymentMethodZelle {
		m.mu.Unlock()
		return nil, ErrPaymentMethodRequired
	}

	order := models.Order{
		OrderCode:     genOrderCode(),
		CreatedAt:     time.Now().UTC(),
		FirstName:     firstName,
		ClassTeacher:  strings.TrimSpace(m.checkout.ClassTeacher),
		Note:          strings.TrimSpace(m.checkout.Note),
		PaymentMethod: pm,
		Lines:         append([]models.CartLine(nil), m.cart...),
		Status:        models.StatusRequested,
	}

	if err := m.store.AppendOrder(ctx, order); err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to record order: %w", err)
	}

	m.lastOrder = &order
	m.cart = []models.CartLine{}
	m.persistCartLocked(ctx)
	m.mu.Unlock()

	m.logger.Info("Order submitted",
		zap.String("order_code", order.OrderCode),
		zap.String("payment_method", string(pm)),
		zap.Int("lines", len(order.Lines)),
	)
	m.notify(Event{Type: EventCartChanged, CartCount: 0})
	m.notify(Event{
		Type:      EventOrderSubmitted,
		OrderCode: order.OrderCode,
		Total:     store.Total(order.Lines, m.index),
	})
	return &order, nil
}

// LastOrder returns the order backing the confirmation view: the one
// submitted this session, else the newest entry of the persisted log.
func (m *Machine) LastOrder(ctx context.Context) (models.Order, bool) {
	m.mu.Lock()
	if m.lastOrder != nil {
		o := *m.lastOrder
		m.mu.Unlock()
		return o, true
	}
	m.mu.Unlock()

	orders := m.store.LoadOrders(ctx)
	if len(orders) == 0 {
		return models.Order{}, false
	}
	return orders[len(orders)-1], true
}

// --- Craft requests ---

// SubmitCraft validates and persists a custom-item request. Name and the
// request text are required; class/teacher is optional.
func (m *Machine) SubmitCraft(ctx context.Context, name, classTeacher, request string) (*models.CraftRequest, error) {
	name = strings.TrimSpace(name)
	request = strings.TrimSpace(request)
	if name == "" || request == "" {
		return nil, ErrCraftFieldsRequired
	}

	cr := models.CraftRequest{
		ID:           uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		Name:         name,
		ClassTeacher: strings.TrimSpace(classTeacher),
		Request:      request,
		Status:       models.StatusRequested,
	}
	if err := m.store.AppendCraft(ctx, cr); err != nil {
		return nil, fmt.Errorf("failed to record craft request: %w", err)
	}

	m.logger.Info("Craft request submitted", zap.String("craft_id", cr.ID))
	m.notify(Event{Type: EventCraftRequested, CraftID: cr.ID, CartCount: m.CartCount()})
	return &cr, nil
}

// genOrderCode draws a 4-digit code with the shop prefix. Codes are not
// checked for uniqueness against the log; a collision is possible.
func genOrderCode() string {
	return fmt.Sprintf("LL-%d", 1000+rand.IntN(9000))
}
