package inventoryrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/internal/pg"
)

const itemColumns = `id, sku, product_id, product_name, merchant_id, quantity, price::text, version, created_at, updated_at`

const (
	findBySKUQuery = `
		SELECT ` + itemColumns + `
		FROM inventory_items
		WHERE sku = $1
	`
	// A repeat add for the owning merchant only grows quantity; another
	// merchant's row is left untouched and nothing is returned.
	addStockQuery = `
		INSERT INTO inventory_items (sku, product_id, product_name, merchant_id, quantity, price, version)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, 0)
		ON CONFLICT (sku) DO UPDATE
		SET quantity = inventory_items.quantity + EXCLUDED.quantity,
			version = inventory_items.version + 1,
			updated_at = NOW()
		WHERE inventory_items.merchant_id = EXCLUDED.merchant_id
		RETURNING ` + itemColumns
	adjustQuantityQuery = `
		UPDATE inventory_items
		SET quantity = quantity + $2, version = version + 1, updated_at = NOW()
		WHERE sku = $1 AND version = $3 AND quantity + $2 >= 0
		RETURNING ` + itemColumns
	setPriceQuery = `
		UPDATE inventory_items
		SET price = $2::numeric, version = version + 1, updated_at = NOW()
		WHERE sku = $1 AND version = $3
		RETURNING ` + itemColumns
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

func scanItem(row pgx.Row) (*domain.InventoryItem, error) {
	var (
		item  domain.InventoryItem
		price string
	)
	err := row.Scan(&item.ID, &item.SKU, &item.ProductID, &item.ProductName, &item.MerchantID,
		&item.Quantity, &price, &item.Version, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("bad price %q: %w", price, err)
	}
	item.Price = p
	return &item, nil
}

func (r *Repository) FindBySKU(ctx context.Context, sku string) (*domain.InventoryItem, error) {
	item, err := scanItem(r.db.QueryRow(ctx, findBySKUQuery, sku))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find inventory item", zap.String("sku", sku), zap.Error(err))
		return nil, err
	}
	return item, nil
}

func (r *Repository) AddStock(ctx context.Context, item *domain.InventoryItem) (*domain.InventoryItem, error) {
	stored, err := scanItem(r.db.QueryRow(ctx, addStockQuery,
		item.SKU, item.ProductID, item.ProductName, item.MerchantID, item.Quantity, item.Price.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Validationf("sku %s belongs to another merchant", item.SKU)
	}
	if err != nil {
		zap.L().Error("can't add stock", zap.String("sku", item.SKU), zap.Error(err))
		return nil, err
	}
	return stored, nil
}

// AdjustQuantity applies delta only if the stored version still equals
// expectedVersion and quantity stays non-negative.
func (r *Repository) AdjustQuantity(ctx context.Context, sku string, delta, expectedVersion int) (*domain.InventoryItem, error) {
	item, err := scanItem(r.db.QueryRow(ctx, adjustQuantityQuery, sku, delta, expectedVersion))
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		zap.L().Error("can't adjust quantity", zap.String("sku", sku), zap.Error(err))
		return nil, err
	}

	current, err := r.classify(ctx, sku, expectedVersion)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("sku %s has %d, needs %d: %w", sku, current.Quantity, -delta, domain.ErrInsufficientStock)
}

func (r *Repository) SetPrice(ctx context.Context, sku string, price decimal.Decimal, expectedVersion int) (*domain.InventoryItem, error) {
	item, err := scanItem(r.db.QueryRow(ctx, setPriceQuery, sku, price.String(), expectedVersion))
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		zap.L().Error("can't set price", zap.String("sku", sku), zap.Error(err))
		return nil, err
	}
	if _, err := r.classify(ctx, sku, expectedVersion); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("sku %s: price update rejected: %w", sku, domain.ErrConcurrencyConflict)
}

// classify explains why a guarded update touched no row. It returns the
// current row when neither a missing row nor a version move is the cause.
func (r *Repository) classify(ctx context.Context, sku string, expectedVersion int) (*domain.InventoryItem, error) {
	current, err := r.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("sku %s: %w", sku, domain.ErrNotFound)
	}
	if current.Version != expectedVersion {
		return nil, fmt.Errorf("sku %s version %d, expected %d: %w",
			sku, current.Version, expectedVersion, domain.ErrConcurrencyConflict)
	}
	return current, nil
}
