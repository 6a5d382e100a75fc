package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jeadland/liam-loot-storefront/models"

	"go.uber.org/zap/zaptest"
)

func TestLoad_Success(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	doc := `{
		"shop": {"tagline": "tag", "finePrint": "fine"},
		"payment": {"venmoHandle": "@x", "zelleTarget": "x@y.z", "noteFormat": "{ORDER_CODE} - {FIRST_NAME}"},
		"products": [
			{"id": "p1", "name": "One", "price": 12, "options": [
				{"id": "color", "name": "Color", "values": [
					{"id": "red", "label": "Red"},
					{"id": "blue", "label": "Blue"}
				]}
			]}
		]
	}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("Failed to write catalog file: %v", err)
	}

	cat, err := Load(path, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cat.Products) != 1 || cat.Products[0].ID != "p1" {
		t.Errorf("Unexpected products: %+v", cat.Products)
	}
	if cat.Payment.VenmoHandle != "@x" {
		t.Errorf("Expected venmo handle @x, got %q", cat.Payment.VenmoHandle)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json"), zaptest.NewLogger(t)); err == nil {
		t.Error("Expected error for missing catalog file")
	}
}

func TestLoad_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("Failed to write catalog file: %v", err)
	}
	if _, err := Load(path, zaptest.NewLogger(t)); err == nil {
		t.Error("Expected error for corrupt catalog document")
	}
}

func TestValidate_RejectsEmptyOptionValues(t *testing.T) {
	cat := &models.Catalog{Products: []models.Product{
		{ID: "p1", Options: []models.Option{{ID: "color", Values: nil}}},
	}}
	if err := Validate(cat); err == nil {
		t.Error("Expected error for option with no values")
	}
}

func TestValidate_RejectsDuplicateIDs(t *testing.T) {
	cat := &models.Catalog{Products: []models.Product{{ID: "p1"}, {ID: "p1"}}}
	if err := Validate(cat); err == nil {
		t.Error("Expected error for duplicate product ids")
	}
}

func TestBuildIndex_LastSeenWins(t *testing.T) {
	idx := BuildIndex([]models.Product{
		{ID: "p1", Name: "First"},
		{ID: "p1", Name: "Second"},
		{ID: "p2", Name: "Other"},
	})
	if len(idx) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(idx))
	}
	if idx["p1"].Name != "Second" {
		t.Errorf("Expected last-seen product to win, got %q", idx["p1"].Name)
	}
}

func TestDefaultSelections_FirstValuePerOption(t *testing.T) {
	p := models.Product{Options: []models.Option{
		{ID: "color", Values: []models.OptionValue{{ID: "red"}, {ID: "blue"}}},
		{ID: "size", Values: []models.OptionValue{{ID: "small"}}},
	}}
	sel := DefaultSelections(p)
	if sel["color"] != "red" || sel["size"] != "small" {
		t.Errorf("Unexpected defaults: %v", sel)
	}
}

func TestDefaultSelections_NoOptions(t *testing.T) {
	if sel := DefaultSelections(models.Product{}); len(sel) != 0 {
		t.Errorf("Expected empty selections, got %v", sel)
	}
}
