package app

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jeadland/liam-loot-storefront/models"
	"github.com/jeadland/liam-loot-storefront/store"

	"go.uber.org/zap/zaptest"
)

func testCatalog() *models.Catalog {
	return &models.Catalog{
		Shop: models.ShopInfo{Tagline: "tag", FinePrint: "fine"},
		Payment: models.PaymentInfo{
			VenmoHandle: "@ll",
			ZelleTarget: "ll@example.com",
			NoteFormat:  "{ORDER_CODE} - {FIRST_NAME}",
		},
		Products: []models.Product{
			{
				ID: "p1", Name: "One", Price: 12, Tags: []string{"Beads"},
				Options: []models.Option{{
					ID: "color", Name: "Color",
					Values: []models.OptionValue{
						{ID: "red", Label: "Red"},
						{ID: "blue", Label: "Blue"},
					},
				}},
			},
			{ID: "p2", Name: "Two", Price: 5, Tags: []string{"plush"}, Badge: &models.Badge{Kind: "new", Label: "NEW DROP"}},
			{ID: "p3", Name: "Three", Price: 8, Badge: &models.Badge{Label: "BEST SELLER"}},
		},
	}
}

func setupMachine(t *testing.T) (*Machine, *store.Store) {
	st := store.New(store.NewMemKV(), zaptest.NewLogger(t))
	m := New(context.Background(), testCatalog(), st, zaptest.NewLogger(t))
	return m, st
}

func TestMachine_New_WrongShapeCartSlotRehydratesEmpty(t *testing.T) {
	kv := store.NewMemKV()
	kv.Put("ll_cart", `[1,2,3]`)
	st := store.New(kv, zaptest.NewLogger(t))
	m := New(context.Background(), testCatalog(), st, zaptest.NewLogger(t))

	if got := m.CartCount(); got != 0 {
		t.Errorf("Expected cart count 0 after rehydrating bad slot, got %d", got)
	}
	if lines := m.Cart(); len(lines) != 0 {
		t.Errorf("Expected empty cart, got %d lines", len(lines))
	}
}

func TestMachine_SetFilter_AllResetsEverything(t *testing.T) {
	m, _ := setupMachine(t)

	m.SetFilter("beads")
	m.SetFilter("plush")
	filters := m.SetFilter(FilterAll)

	if len(filters) != 1 || filters[0] != FilterAll {
		t.Errorf("Expected {all}, got %v", filters)
	}
}

func TestMachine_SetFilter_NeverEmpty(t *testing.T) {
	m, _ := setupMachine(t)

	m.SetFilter("beads")
	filters := m.SetFilter("beads") // toggle off the last one

	if len(filters) != 1 || filters[0] != FilterAll {
		t.Errorf("Expected {all} after removing last filter, got %v", filters)
	}
}

func TestMachine_SetFilter_RemovesAllOnFirstSelection(t *testing.T) {
	m, _ := setupMachine(t)

	filters := m.SetFilter("beads")

	if len(filters) != 1 || filters[0] != "beads" {
		t.Errorf("Expected {beads}, got %v", filters)
	}
}

func TestMachine_FilteredProducts_AllPreservesOrder(t *testing.T) {
	m, _ := setupMachine(t)

	products := m.FilteredProducts()
	if len(products) != 3 {
		t.Fatalf("Expected all 3 products, got %d", len(products))
	}
	for i, id := range []string{"p1", "p2", "p3"} {
		if products[i].ID != id {
			t.Errorf("Position %d: expected %q, got %q", i, id, products[i].ID)
		}
	}
}

func TestMachine_FilteredProducts_TagMatchIsCaseInsensitive(t *testing.T) {
	m, _ := setupMachine(t)

	m.SetFilter("beads") // p1's tag is "Beads"
	products := m.FilteredProducts()

	if len(products) != 1 || products[0].ID != "p1" {
		t.Errorf("Expected [p1], got %v", productIDs(products))
	}
}

func TestMachine_FilteredProducts_BadgeFilters(t *testing.T) {
	m, _ := setupMachine(t)

	m.SetFilter("new")
	if products := m.FilteredProducts(); len(products) != 1 || products[0].ID != "p2" {
		t.Errorf("new filter: expected [p2], got %v", productIDs(products))
	}

	m.SetFilter("new") // off
	m.SetFilter("bestSeller")
	if products := m.FilteredProducts(); len(products) != 1 || products[0].ID != "p3" {
		t.Errorf("bestSeller filter: expected [p3], got %v", productIDs(products))
	}
}

func TestMachine_FilteredProducts_AnyMatch(t *testing.T) {
	m, _ := setupMachine(t)

	m.SetFilter("beads")
	m.SetFilter("plush")
	products := m.FilteredProducts()

	if len(products) != 2 {
		t.Errorf("Expected 2 products under OR matching, got %v", productIDs(products))
	}
}

func productIDs(products []models.Product) []string {
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids
}

func TestMachine_AddToCart_DefaultsQtyAndSelections(t *testing.T) {
	m, _ := setupMachine(t)

	count, added := m.AddToCart(context.Background(), "p1", 0, nil)
	if !added || count != 1 {
		t.Fatalf("Expected added=true count=1, got %v %d", added, count)
	}

	cart := m.Cart()
	if cart[0].Qty != 1 {
		t.Errorf("Expected default qty 1, got %d", cart[0].Qty)
	}
	if cart[0].Selections["color"] != "red" {
		t.Errorf("Expected default selection red, got %q", cart[0].Selections["color"])
	}
}

func TestMachine_AddToCart_AppendsNeverMerges(t *testing.T) {
	m, _ := setupMachine(t)
	ctx := context.Background()

	m.AddToCart(ctx, "p1", 1, nil)
	m.AddToCart(ctx, "p1", 1, nil)

	cart := m.Cart()
	if len(cart) != 2 {
		t.Fatalf("Expected 2 distinct lines, got %d", len(cart))
	}
	if cart[0].LineID == cart[1].LineID {
		t.Errorf("Expected distinct line ids, both were %q", cart[0].LineID)
	}
}

func TestMachine_AddToCart_UnknownProductIsNoOp(t *testing.T) {
	m, st := setupMachine(t)

	count, added := m.AddToCart(context.Background(), "ghost", 1, nil)
	if added || count != 0 {
		t.Errorf("Expected no-op, got added=%v count=%d", added, count)
	}
	if persisted := st.LoadCart(context.Background()); len(persisted) != 0 {
		t.Errorf("Expected nothing persisted, got %d lines", len(persisted))
	}
}

func TestMachine_AddToCart_PersistsEveryMutation(t *testing.T) {
	m, st := setupMachine(t)
	ctx := context.Background()

	m.AddToCart(ctx, "p1", 3, map[string]string{"color": "blue"})

	persisted := st.LoadCart(ctx)
	if len(persisted) != 1 {
		t.Fatalf("Expected 1 persisted line, got %d", len(persisted))
	}
	if persisted[0].Qty != 3 || persisted[0].Selections["color"] != "blue" {
		t.Errorf("Persisted line mismatch: %+v", persisted[0])
	}
}

func TestMachine_MixedLinesTotalAndCount(t *testing.T) {
	// Catalog has p1 priced 12 with color {red, blue}. One default add plus
	// a qty-3 blue add gives total 48 and count 4.
	m, _ := setupMachine(t)
	ctx := context.Background()

	m.AddToCart(ctx, "p1", 0, nil)
	m.AddToCart(ctx, "p1", 3, map[string]string{"color": "blue"})

	if total := m.CartTotal(); total != 48 {
		t.Errorf("CartTotal = %d, want 48", total)
	}
	if count := m.CartCount(); count != 4 {
		t.Errorf("CartCount = %d, want 4", count)
	}
}

func TestMachine_RemoveLine_RemovesAtPosition(t *testing.T) {
	m, _ := setupMachine(t)
	ctx := context.Background()

	m.AddToCart(ctx, "p1", 2, nil)
	m.AddToCart(ctx, "p2", 1, nil)

	count := m.RemoveLine(ctx, 0)
	if count != 1 {
		t.Errorf("Expected count 1 after removal, got %d", count)
	}
	if cart := m.Cart(); len(cart) != 1 || cart[0].ProductID != "p2" {
		t.Errorf("Expected [p2] to remain, got %+v", cart)
	}
}

func TestMachine_RemoveLine_OutOfRangeIsNoOp(t *testing.T) {
	m, _ := setupMachine(t)
	ctx := context.Background()

	m.AddToCart(ctx, "p1", 2, nil)

	for _, index := range []int{-1, 1, 99} {
		if count := m.RemoveLine(ctx, index); count != 2 {
			t.Errorf("RemoveLine(%d): expected cart untouched (count 2), got %d", index, count)
		}
	}
	if len(m.Cart()) != 1 {
		t.Error("Out-of-range removal corrupted the cart")
	}
}

func TestMachine_ClearCart(t *testing.T) {
	m, st := setupMachine(t)
	ctx := context.Background()

	m.AddToCart(ctx, "p1", 2, nil)
	m.ClearCart(ctx)

	if len(m.Cart()) != 0 {
		t.Error("Expected empty cart after clear")
	}
	if persisted := st.LoadCart(ctx); len(persisted) != 0 {
		t.Errorf("Expected empty persisted cart, got %d lines", len(persisted))
	}
}

func TestMachine_VisitProduct_ResetsOnProductChange(t *testing.T) {
	m, _ := setupMachine(t)

	m.VisitProduct("p1")
	m.SelectOption("color", "blue")
	m.AdjustQty(4)

	// Same product: state is kept.
	_, detail, _ := m.VisitProduct("p1")
	if detail.Qty != 5 || detail.Selections["color"] != "blue" {
		t.Errorf("Expected detail preserved for same product, got %+v", detail)
	}

	// Different product: state resets.
	_, detail, _ = m.VisitProduct("p2")
	if detail.Qty != 1 || len(detail.Selections) != 0 {
		t.Errorf("Expected fresh detail for new product, got %+v", detail)
	}
}

func TestMachine_VisitProduct_UnknownID(t *testing.T) {
	m, _ := setupMachine(t)
	if _, _, ok := m.VisitProduct("ghost"); ok {
		t.Error("Expected ok=false for unknown product")
	}
}

func TestMachine_AdjustQty_ClampsAtOne(t *testing.T) {
	m, _ := setupMachine(t)
	m.VisitProduct("p1")

	if qty := m.AdjustQty(-5); qty != 1 {
		t.Errorf("Expected qty clamped at 1, got %d", qty)
	}
	if qty := m.AdjustQty(3); qty != 4 {
		t.Errorf("Expected qty 4, got %d", qty)
	}
	if qty := m.AdjustQty(-10); qty != 1 {
		t.Errorf("Expected qty clamped back to 1, got %d", qty)
	}
}

func TestMachine_UpdateCheckoutField(t *testing.T) {
	m, _ := setupMachine(t)

	fields := map[string]string{
		"firstName":     "Liam",
		"classTeacher":  "Ms. Frizzle",
		"note":          "thanks!",
		"paymentMethod": "Venmo",
	}
	for field, value := range fields {
		if err := m.UpdateCheckoutField(field, value); err != nil {
			t.Errorf("UpdateCheckoutField(%q) failed: %v", field, err)
		}
	}

	form := m.Checkout()
	if form.FirstName != "Liam" || form.ClassTeacher != "Ms. Frizzle" ||
		form.Note != "thanks!" || form.PaymentMethod != models.PaymentMethodVenmo {
		t.Errorf("Unexpected checkout form: %+v", form)
	}
}

func TestMachine_UpdateCheckoutField_UnknownField(t *testing.T) {
	m, _ := setupMachine(t)
	err := m.UpdateCheckoutField("favoriteColor", "green")
	if !errors.Is(err, ErrUnknownCheckoutField) {
		t.Errorf("Expected ErrUnknownCheckoutField, got %v", err)
	}
	// A bad field name is a caller bug, not a user validation failure.
	if IsValidationError(err) {
		t.Errorf("Expected unknown-field error to not classify as validation")
	}
}

func TestMachine_SubmitOrder_BlankFirstName(t *testing.T) {
	m, st := setupMachine(t)
	ctx := context.Background()

	m.AddToCart(ctx, "p1", 1, nil)
	m.UpdateCheckoutField("firstName", "   ")
	m.UpdateCheckoutField("paymentMethod", "Venmo")

	_, err := m.SubmitOrder(ctx)
	if !errors.Is(err, ErrFirstNameRequired) {
		t.Fatalf("Expected ErrFirstNameRequired, got %v", err)
	}
	if len(m.Cart()) != 1 {
		t.Error("Cart changed on validation failure")
	}
	if orders := st.LoadOrders(ctx); len(orders) != 0 {
		t.Errorf("Order log grew on validation failure: %d", len(orders))
	}
}

func TestMachine_SubmitOrder_MissingPaymentMethod(t *testing.T) {
	m, _ := setupMachine(t)
	m.UpdateCheckoutField("firstName", "Liam")

	_, err := m.SubmitOrder(context.Background())
	if !errors.Is(err, ErrPaymentMethodRequired) {
		t.Errorf("Expected ErrPaymentMethodRequired, got %v", err)
	}
}

func TestMachine_SubmitOrder_FirstNameCheckTakesPrecedence(t *testing.T) {
	m, _ := setupMachine(t)

	// Both invalid: the first-name error must win.
	_, err := m.SubmitOrder(context.Background())
	if !errors.Is(err, ErrFirstNameRequired) {
		t.Errorf("Expected ErrFirstNameRequired when both fields invalid, got %v", err)
	}
}

func TestMachine_SubmitOrder_Success(t *testing.T) {
	m, st := setupMachine(t)
	ctx := context.Background()

	m.AddToCart(ctx, "p1", 1, nil)
	m.AddToCart(ctx, "p1", 3, map[string]string{"color": "blue"})
	preCart := m.Cart()

	m.UpdateCheckoutField("firstName", "  Liam  ")
	m.UpdateCheckoutField("paymentMethod", "Zelle")

	order, err := m.SubmitOrder(ctx)
	if err != nil {
		t.Fatalf("SubmitOrder failed: %v", err)
	}

	if matched, _ := regexp.MatchString(`^LL-\d{4}$`, order.OrderCode); !matched {
		t.Errorf("Unexpected order code format: %q", order.OrderCode)
	}
	if order.FirstName != "Liam" {
		t.Errorf("Expected trimmed first name, got %q", order.FirstName)
	}
	if order.Status != models.StatusRequested {
		t.Errorf("Expected status Requested, got %q", order.Status)
	}
	if len(order.Lines) != len(preCart) {
		t.Fatalf("Order snapshot has %d lines, want %d", len(order.Lines), len(preCart))
	}
	for i := range preCart {
		if order.Lines[i].LineID != preCart[i].LineID {
			t.Errorf("Snapshot line %d id mismatch", i)
		}
	}

	if len(m.Cart()) != 0 {
		t.Error("Expected live cart cleared after submit")
	}
	if persisted := st.LoadCart(ctx); len(persisted) != 0 {
		t.Error("Expected persisted cart cleared after submit")
	}

	orders := st.LoadOrders(ctx)
	if len(orders) != 1 {
		t.Fatalf("Expected order log to grow by exactly one, got %d", len(orders))
	}
	if orders[0].OrderCode != order.OrderCode {
		t.Errorf("Persisted order code %q != returned %q", orders[0].OrderCode, order.OrderCode)
	}

	last, ok := m.LastOrder(ctx)
	if !ok || last.OrderCode != order.OrderCode {
		t.Errorf("Expected last order %q, got %q (ok=%v)", order.OrderCode, last.OrderCode, ok)
	}
}

func TestMachine_LastOrder_FallsBackToPersistedLog(t *testing.T) {
	m, st := setupMachine(t)
	ctx := context.Background()

	if _, ok := m.LastOrder(ctx); ok {
		t.Fatal("Expected no last order initially")
	}

	st.AppendOrder(ctx, models.Order{OrderCode: "LL-1111"})
	st.AppendOrder(ctx, models.Order{OrderCode: "LL-2222"})

	last, ok := m.LastOrder(ctx)
	if !ok || last.OrderCode != "LL-2222" {
		t.Errorf("Expected newest persisted order, got %q (ok=%v)", last.OrderCode, ok)
	}
}

func TestMachine_SubmitCraft_RequiresNameAndRequest(t *testing.T) {
	m, _ := setupMachine(t)
	ctx := context.Background()

	for _, tc := range []struct{ name, request string }{
		{"", "a dragon"},
		{"Ana", "   "},
		{" ", ""},
	} {
		if _, err := m.SubmitCraft(ctx, tc.name, "", tc.request); !errors.Is(err, ErrCraftFieldsRequired) {
			t.Errorf("SubmitCraft(%q, %q): expected ErrCraftFieldsRequired, got %v", tc.name, tc.request, err)
		}
	}
}

func TestMachine_SubmitCraft_Success(t *testing.T) {
	m, _ := setupMachine(t)

	cr, err := m.SubmitCraft(context.Background(), " Ana ", " Rm 12 ", " a tiny dragon ")
	if err != nil {
		t.Fatalf("SubmitCraft failed: %v", err)
	}
	if cr.ID == "" {
		t.Error("Expected generated craft id")
	}
	if cr.Name != "Ana" || cr.ClassTeacher != "Rm 12" || cr.Request != "a tiny dragon" {
		t.Errorf("Expected trimmed fields, got %+v", cr)
	}
	if cr.Status != models.StatusRequested {
		t.Errorf("Expected status Requested, got %q", cr.Status)
	}
}

func TestMachine_Subscribe_ReceivesEvents(t *testing.T) {
	m, _ := setupMachine(t)
	ctx := context.Background()

	var events []Event
	m.Subscribe(func(ev Event) { events = append(events, ev) })

	m.AddToCart(ctx, "p1", 2, nil)
	m.UpdateCheckoutField("firstName", "Liam")
	m.UpdateCheckoutField("paymentMethod", "Venmo")
	m.SubmitOrder(ctx)

	if len(events) < 3 {
		t.Fatalf("Expected at least 3 events (add, submit, cart clear), got %d", len(events))
	}
	if events[0].Type != EventCartChanged || events[0].CartCount != 2 {
		t.Errorf("First event mismatch: %+v", events[0])
	}

	foundSubmit := false
	for _, ev := range events {
		if ev.Type == EventOrderSubmitted {
			foundSubmit = true
			if ev.Total != 24 {
				t.Errorf("Expected submitted total 24, got %d", ev.Total)
			}
		}
	}
	if !foundSubmit {
		t.Error("Expected an order_submitted event")
	}
}
