package router

import "strings"

// View names, one per page of the storefront.
const (
	ViewShop     = "shop"
	ViewProduct  = "product"
	ViewCart     = "cart"
	ViewCheckout = "checkout"
	ViewConfirm  = "confirm"
	ViewCraft    = "craft"
	ViewAbout    = "about"
)

// Route is the resolved (view name, optional product id) pair.
type Route struct {
	Name      string `json:"name"`
	ProductID string `json:"id,omitempty"`
}

// Resolve maps a location fragment like "#/product/abc-1" to a Route. It is
// total: every input yields a route, unknown or empty fragments fall back to
// the shop view.
func Resolve(fragment string) Route {
	h := strings.TrimPrefix(fragment, "#")

	var parts []string
	for _, seg := range strings.Split(h, "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}

	if len(parts) == 0 {
		return Route{Name: ViewShop}
	}

	switch parts[0] {
	case ViewShop:
		return Route{Name: ViewShop}
	case ViewProduct:
		if len(parts) > 1 {
			return Route{Name: ViewProduct, ProductID: parts[1]}
		}
	case ViewCart:
		return Route{Name: ViewCart}
	case ViewCheckout:
		return Route{Name: ViewCheckout}
	case ViewConfirm:
		return Route{Name: ViewConfirm}
	case ViewCraft:
		return Route{Name: ViewCraft}
	case ViewAbout:
		return Route{Name: ViewAbout}
	}

	return Route{Name: ViewShop}
}
