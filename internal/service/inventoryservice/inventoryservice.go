package inventoryservice

//go:generate mockgen -source=inventoryservice.go -destination=mock_inventoryservice.go -package=inventoryservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/internal/optimistic"
)

type Repo interface {
	FindBySKU(ctx context.Context, sku string) (*domain.InventoryItem, error)
	AddStock(ctx context.Context, item *domain.InventoryItem) (*domain.InventoryItem, error)
	SetPrice(ctx context.Context, sku string, price decimal.Decimal, expectedVersion int) (*domain.InventoryItem, error)
}

type AccountRepo interface {
	FindByID(ctx context.Context, id int) (*domain.Account, error)
}

type Service struct {
	repo     Repo
	accounts AccountRepo
	policy   optimistic.Policy
}

func New(repo Repo, accounts AccountRepo, policy optimistic.Policy) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		policy:   policy,
	}
}

func (s *Service) GetItem(ctx context.Context, sku string) (*domain.InventoryItem, error) {
	item, err := s.repo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("sku %s: %w", sku, domain.ErrNotFound)
	}
	return item, nil
}

// AddStock creates the SKU for the merchant or grows its quantity. The price
// of an existing SKU is left as is; use SetPrice to change it.
func (s *Service) AddStock(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	item.SKU = strings.TrimSpace(item.SKU)
	item.ProductName = strings.TrimSpace(item.ProductName)
	switch {
	case item.SKU == "":
		return nil, domain.Validationf("sku is required")
	case item.ProductName == "":
		return nil, domain.Validationf("product name is required")
	case item.Quantity <= 0:
		return nil, domain.Validationf("quantity must be positive, got %d", item.Quantity)
	case item.Quantity > domain.MaxLineQuantity:
		return nil, domain.Validationf("quantity %d exceeds %d", item.Quantity, domain.MaxLineQuantity)
	}
	if err := validatePrice(item.Price); err != nil {
		return nil, err
	}

	merchant, err := s.accounts.FindByID(ctx, item.MerchantID)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, fmt.Errorf("merchant %d: %w", item.MerchantID, domain.ErrNotFound)
	}
	if merchant.Type != domain.AccountTypeMerchant {
		return nil, domain.Validationf("account %d is not a merchant", item.MerchantID)
	}

	stored, err := s.repo.AddStock(ctx, &item)
	if err != nil {
		return nil, err
	}
	zap.L().Info("stock added",
		zap.String("sku", stored.SKU), zap.Int("added", item.Quantity), zap.Int("quantity", stored.Quantity))
	return stored, nil
}

// SetPrice changes the price of a SKU owned by merchantID. Orders already
// placed keep their snapshot.
func (s *Service) SetPrice(ctx context.Context, merchantID int, sku string, price decimal.Decimal) (*domain.InventoryItem, error) {
	if err := validatePrice(price); err != nil {
		return nil, err
	}

	var updated *domain.InventoryItem
	err := optimistic.Retry(ctx, s.policy, "set price", func(ctx context.Context) error {
		item, err := s.GetItem(ctx, sku)
		if err != nil {
			return err
		}
		if item.MerchantID != merchantID {
			return domain.Validationf("sku %s belongs to another merchant", sku)
		}
		updated, err = s.repo.SetPrice(ctx, sku, price, item.Version)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return domain.Validationf("price must be positive, got %s", price.String())
	}
	if !domain.HasMoneyScale(price) {
		return domain.Validationf("price %s has more than %d fraction digits", price.String(), domain.MoneyScale)
	}
	return domain.CheckAmountRange("price", price)
}
