package dispatch

import (
	"context"
	"strings"

	"github.com/jeadland/liam-loot-storefront/app"
	"github.com/jeadland/liam-loot-storefront/models"
	"github.com/jeadland/liam-loot-storefront/router"
	"github.com/jeadland/liam-loot-storefront/store"
)

// Result is what the UI layer gets back for a resolved route: either a view
// payload or a redirect fragment for the soft-correction cases.
type Result struct {
	View     string `json:"view"`
	Redirect string `json:"redirect,omitempty"`
	Data     any    `json:"data,omitempty"`
}

type ShopPage struct {
	Shop      models.ShopInfo  `json:"shop"`
	Products  []models.Product `json:"products"`
	Filters   []string         `json:"filters"`
	CartCount int              `json:"cartCount"`
}

type ProductPage struct {
	Product   models.Product  `json:"product"`
	Detail    app.DetailState `json:"detail"`
	CartCount int             `json:"cartCount"`
}

type CartPage struct {
	Lines     []CartLineView `json:"lines"`
	Total     int            `json:"total"`
	CartCount int            `json:"cartCount"`
}

// CartLineView is the per-line display shape of the cart page.
type CartLineView struct {
	Name          string        `json:"name"`
	Qty           int           `json:"qty"`
	Badge         *models.Badge `json:"badge,omitempty"`
	ShortNum      string        `json:"shortNum"`
	OptionSummary string        `json:"optionSummary"`
	LineTotal     int           `json:"lineTotal"`
}

type CheckoutPage struct {
	Total   int                 `json:"total"`
	Values  models.CheckoutForm `json:"values"`
	Payment models.PaymentInfo  `json:"payment"`
}

type ConfirmPage struct {
	OrderCode     string               `json:"orderCode"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	PayTo         string               `json:"payTo"`
	NoteMemo      string               `json:"noteMemo"`
	Order         models.Order         `json:"order"`
}

type AboutPage struct {
	Shop models.ShopInfo `json:"shop"`
}

const shopFragment = "#/shop"

// Dispatch selects the data for the resolved route. Unknown product ids and
// the confirm view without any order redirect back to the shop instead of
// erroring.
func Dispatch(ctx context.Context, route router.Route, m *app.Machine) Result {
	switch route.Name {
	case router.ViewProduct:
		p, detail, ok := m.VisitProduct(route.ProductID)
		if !ok {
			return Result{View: router.ViewShop, Redirect: shopFragment}
		}
		return Result{View: router.ViewProduct, Data: ProductPage{
			Product:   p,
			Detail:    detail,
			CartCount: m.CartCount(),
		}}

	case router.ViewCart:
		cart := m.Cart()
		return Result{View: router.ViewCart, Data: CartPage{
			Lines:     buildLineViews(cart, m),
			Total:     m.CartTotal(),
			CartCount: store.Count(cart),
		}}

	case router.ViewCheckout:
		return Result{View: router.ViewCheckout, Data: CheckoutPage{
			Total:   m.CartTotal(),
			Values:  m.Checkout(),
			Payment: m.Catalog().Payment,
		}}

	case router.ViewConfirm:
		order, ok := m.LastOrder(ctx)
		if !ok {
			return Result{View: router.ViewShop, Redirect: shopFragment}
		}
		return Result{View: router.ViewConfirm, Data: buildConfirmPage(order, m.Catalog().Payment)}

	case router.ViewCraft:
		return Result{View: router.ViewCraft}

	case router.ViewAbout:
		return Result{View: router.ViewAbout, Data: AboutPage{Shop: m.Catalog().Shop}}

	default:
		return Result{View: router.ViewShop, Data: ShopPage{
			Shop:      m.Catalog().Shop,
			Products:  m.FilteredProducts(),
			Filters:   m.Filters(),
			CartCount: m.CartCount(),
		}}
	}
}

// buildLineViews resolves each cart line against the catalog. Lines whose
// product no longer exists are skipped, matching the total computation.
func buildLineViews(cart []models.CartLine, m *app.Machine) []CartLineView {
	views := make([]CartLineView, 0, len(cart))
	for _, line := range cart {
		p, ok := m.Lookup(line.ProductID)
		if !ok {
			continue
		}

		qty := line.Qty
		if qty < 1 {
			qty = 1
		}

		views = append(views, CartLineView{
			Name:          p.Name,
			Qty:           qty,
			Badge:         p.Badge,
			ShortNum:      shortNum(p.ID),
			OptionSummary: optionSummary(p, line.Selections),
			LineTotal:     p.Price * qty,
		})
	}
	return views
}

// shortNum takes the first two characters of the id's leading segment,
// upper-cased, for the "#XX" badge.
func shortNum(id string) string {
	seg, _, _ := strings.Cut(id, "-")
	if len(seg) > 2 {
		seg = seg[:2]
	}
	return strings.ToUpper(seg)
}

// optionSummary is the label of the chosen value, walking options in order
// so the last resolvable selection wins.
func optionSummary(p models.Product, selections map[string]string) string {
	summary := ""
	for _, opt := range p.Options {
		chosenID, ok := selections[opt.ID]
		if !ok {
			continue
		}
		for _, v := range opt.Values {
			if v.ID == chosenID {
				summary = v.Label
				break
			}
		}
	}
	return summary
}

func buildConfirmPage(order models.Order, payment models.PaymentInfo) ConfirmPage {
	firstName := order.FirstName
	if firstName == "" {
		firstName = "NAME"
	}
	memo := strings.Replace(payment.NoteFormat, "{ORDER_CODE}", order.OrderCode, 1)
	memo = strings.Replace(memo, "{FIRST_NAME}", firstName, 1)

	payTo := payment.ZelleTarget
	if order.PaymentMethod == models.PaymentMethodVenmo {
		payTo = payment.VenmoHandle
	}

	return ConfirmPage{
		OrderCode:     order.OrderCode,
		PaymentMethod: order.PaymentMethod,
		PayTo:         payTo,
		NoteMemo:      memo,
		Order:         order,
	}
}
