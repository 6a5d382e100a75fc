package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jeadland/liam-loot-storefront/catalog"
	"github.com/jeadland/liam-loot-storefront/models"

	"go.uber.org/zap"
)

// Persistence slots. Each one holds a whole serialized value that is read
// and rewritten in full; there is no partial update.
const (
	cartKey   = "ll_cart"
	ordersKey = "ll_orders"
	craftsKey = "ll_crafts"
)

// KV is the external key-value persistence service. Redis in production,
// an in-memory fake in tests.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Store persists the cart slot and the order/craft logs.
type Store struct {
	kv     KV
	logger *zap.Logger
}

func New(kv KV, logger *zap.Logger) *Store {
	return &Store{
		kv:     kv,
		logger: logger,
	}
}

// LoadCart reads the persisted cart. Missing or corrupt data degrades to an
// empty cart rather than failing.
func (s *Store) LoadCart(ctx context.Context) []models.CartLine {
	cart := loadSlot[models.CartLine](ctx, s, cartKey)
	if cart == nil {
		cart = []models.CartLine{}
	}
	return cart
}

// SaveCart overwrites the persisted cart in full.
func (s *Store) SaveCart(ctx context.Context, cart []models.CartLine) error {
	return s.saveSlot(ctx, cartKey, cart)
}

// AppendOrder reads the order log, appends, and writes it back in full.
// This is not an atomic append: two writers racing on the slot can lose an
// entry. Acceptable under the single-user assumption.
func (s *Store) AppendOrder(ctx context.Context, order models.Order) error {
	orders := s.LoadOrders(ctx)
	orders = append(orders, order)
	return s.saveSlot(ctx, ordersKey, orders)
}

// LoadOrders reads the persisted order log, empty on absence or corruption.
func (s *Store) LoadOrders(ctx context.Context) []models.Order {
	orders := loadSlot[models.Order](ctx, s, ordersKey)
	if orders == nil {
		orders = []models.Order{}
	}
	return orders
}

// AppendCraft appends to the craft-request log, same read-modify-write
// contract as AppendOrder.
func (s *Store) AppendCraft(ctx context.Context, cr models.CraftRequest) error {
	crafts := loadSlot[models.CraftRequest](ctx, s, craftsKey)
	crafts = append(crafts, cr)
	return s.saveSlot(ctx, craftsKey, crafts)
}

// loadSlot reads and decodes one slot. Any failure, including valid JSON of
// the wrong shape, yields nil; a partial decode is never kept.
func loadSlot[T any](ctx context.Context, s *Store, key string) []T {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to read persistence slot, treating as empty",
			zap.String("key", key), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Warn("Corrupt persistence slot, treating as empty",
			zap.String("key", key), zap.Error(err))
		return nil
	}
	return items
}

func (s *Store) saveSlot(ctx context.Context, key string, val any) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("failed to marshal slot %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", key, err)
	}
	return nil
}

// Count sums line quantities, defaulting a zero qty to 1 for lines persisted
// before the qty field existed.
func Count(cart []models.CartLine) int {
	total := 0
	for _, line := range cart {
		total += lineQty(line)
	}
	return total
}

// Total sums unit price times quantity over lines whose product still
// resolves in the index. Dangling references are skipped, never an error.
func Total(cart []models.CartLine, idx catalog.Index) int {
	sum := 0
	for _, line := range cart {
		p, ok := idx[line.ProductID]
		if !ok {
			continue
		}
		sum += p.Price * lineQty(line)
	}
	return sum
}

func lineQty(line models.CartLine) int {
	if line.Qty < 1 {
		return 1
	}
	return line.Qty
}
