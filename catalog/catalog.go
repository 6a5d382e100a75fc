package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jeadland/liam-loot-storefront/models"

	"go.uber.org/zap"
)

// Index maps product id to product for O(1) lookups by cart lines and the
// product view.
type Index map[string]models.Product

// Load reads and validates the catalog document. Any failure here is fatal
// to startup; the caller does not retry.
func Load(path string, logger *zap.Logger) (*models.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var cat models.Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	if err := Validate(&cat); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}

	logger.Info("Catalog loaded",
		zap.String("path", path),
		zap.Int("products", len(cat.Products)),
	)
	return &cat, nil
}

// Validate checks catalog shape once at the load boundary so downstream code
// need not re-check it.
func Validate(cat *models.Catalog) error {
	seen := make(map[string]bool, len(cat.Products))
	for _, p := range cat.Products {
		if p.ID == "" {
			return fmt.Errorf("product %q has empty id", p.Name)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate product id %q", p.ID)
		}
		seen[p.ID] = true

		if p.Price < 0 {
			return fmt.Errorf("product %q has negative price %d", p.ID, p.Price)
		}
		for _, opt := range p.Options {
			if len(opt.Values) == 0 {
				return fmt.Errorf("product %q option %q has no values", p.ID, opt.ID)
			}
		}
	}
	return nil
}

// BuildIndex derives the id lookup from the product list. On duplicate ids
// the last one wins, matching overwrite-on-insert.
func BuildIndex(products []models.Product) Index {
	idx := make(Index, len(products))
	for _, p := range products {
		idx[p.ID] = p
	}
	return idx
}

// DefaultSelections picks the first value of every option on the product.
func DefaultSelections(p models.Product) map[string]string {
	sel := make(map[string]string, len(p.Options))
	for _, opt := range p.Options {
		sel[opt.ID] = opt.Values[0].ID
	}
	return sel
}
