package orderservice

//go:generate mockgen -source=orderservice.go -destination=mock_orderservice.go -package=orderservice

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/internal/optimistic"
	"github.com/GlebRadaev/marketledger/internal/pg"
	"github.com/GlebRadaev/marketledger/pkg/ordernum"
)

type Repo interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id int) (*domain.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id int, from, to domain.OrderStatus, at time.Time) error
}

type InventoryRepo interface {
	FindBySKU(ctx context.Context, sku string) (*domain.InventoryItem, error)
}

type AccountRepo interface {
	FindByID(ctx context.Context, id int) (*domain.Account, error)
}

type NumberGenerator interface {
	Next() (string, error)
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	numberAttempts = 3
)

type Service struct {
	repo      Repo
	inventory InventoryRepo
	accounts  AccountRepo
	numbers   NumberGenerator
	policy    optimistic.Policy
	now       func() time.Time
}

func New(repo Repo, inventory InventoryRepo, accounts AccountRepo, numbers NumberGenerator, policy optimistic.Policy) *Service {
	return &Service{
		repo:      repo,
		inventory: inventory,
		accounts:  accounts,
		numbers:   numbers,
		policy:    policy,
		now:       time.Now,
	}
}

// PlaceOrder creates a PENDING order with a price snapshot of every line.
// Inventory and balances are untouched until payment.
func (s *Service) PlaceOrder(ctx context.Context, buyerID int, lines []domain.CartLine) (*domain.Order, error) {
	if len(lines) == 0 {
		return nil, domain.Validationf("order has no lines")
	}
	for _, line := range lines {
		if line.SKU == "" {
			return nil, domain.Validationf("line without sku")
		}
		if line.Quantity <= 0 {
			return nil, domain.Validationf("sku %s: quantity must be positive, got %d", line.SKU, line.Quantity)
		}
		if line.Quantity > domain.MaxLineQuantity {
			return nil, domain.Validationf("sku %s: quantity %d exceeds %d", line.SKU, line.Quantity, domain.MaxLineQuantity)
		}
	}

	buyer, err := s.accounts.FindByID(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if buyer == nil {
		return nil, fmt.Errorf("buyer %d: %w", buyerID, domain.ErrNotFound)
	}
	if buyer.Type != domain.AccountTypeUser {
		return nil, domain.Validationf("account %d is not a user", buyerID)
	}

	lines = domain.MergeCartLines(lines)
	for _, line := range lines {
		if line.Quantity > domain.MaxLineQuantity {
			return nil, domain.Validationf("sku %s: quantity %d exceeds %d", line.SKU, line.Quantity, domain.MaxLineQuantity)
		}
	}
	items := make([]domain.InventoryItem, 0, len(lines))
	for _, line := range lines {
		item, err := s.inventory.FindBySKU(ctx, line.SKU)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, fmt.Errorf("sku %s: %w", line.SKU, domain.ErrNotFound)
		}
		items = append(items, *item)
	}
	merchants := lo.Uniq(lo.Map(items, func(i domain.InventoryItem, _ int) int { return i.MerchantID }))
	if len(merchants) > 1 {
		return nil, domain.Validationf("order mixes items of merchants %v", merchants)
	}

	order := domain.NewOrder("", buyerID, items, lines, s.now().UTC())
	if err := domain.CheckAmountRange("order total", order.TotalAmount); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		number, err := s.numbers.Next()
		if err != nil {
			return nil, err
		}
		order.OrderNumber = number
		err = s.repo.Create(ctx, order)
		if err == nil {
			zap.L().Info("order placed",
				zap.Int("order_id", order.ID), zap.String("order_number", order.OrderNumber),
				zap.String("total", order.TotalAmount.StringFixed(domain.MoneyScale)))
			return order, nil
		}
		if !pg.IsUniqueViolation(err) || attempt == numberAttempts {
			return nil, err
		}
		zap.L().Warn("order number taken, drawing another", zap.String("order_number", number))
	}
}

func (s *Service) GetOrder(ctx context.Context, id int) (*domain.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	return order, nil
}

func (s *Service) GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	if !ordernum.IsValid(number) {
		return nil, domain.Validationf("order number %q is not valid", number)
	}
	order, err := s.repo.FindByOrderNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("order %s: %w", number, domain.ErrNotFound)
	}
	return order, nil
}

// ListOrders pages through orders newest first. A zero limit means DefaultPageSize.
func (s *Service) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	switch {
	case filter.Limit < 0 || filter.Limit > MaxPageSize:
		return nil, domain.Validationf("limit must be within 1..%d, got %d", MaxPageSize, filter.Limit)
	case filter.Offset < 0:
		return nil, domain.Validationf("offset must not be negative, got %d", filter.Offset)
	case filter.Limit == 0:
		filter.Limit = DefaultPageSize
	}
	if filter.Status != "" {
		if _, err := domain.ParseOrderStatus(string(filter.Status)); err != nil {
			return nil, err
		}
	}
	orders, err := s.repo.List(ctx, filter)
	if err != nil {
		zap.L().Error("failed to get orders", zap.Error(err))
		return nil, err
	}
	return orders, nil
}

func (s *Service) Ship(ctx context.Context, id int) (*domain.Order, error) {
	return s.transition(ctx, id, domain.StatusShipped)
}

func (s *Service) Complete(ctx context.Context, id int) (*domain.Order, error) {
	return s.transition(ctx, id, domain.StatusCompleted)
}

// Cancel needs no compensation: nothing is committed before payment.
func (s *Service) Cancel(ctx context.Context, id int) (*domain.Order, error) {
	return s.transition(ctx, id, domain.StatusCancelled)
}

func (s *Service) transition(ctx context.Context, id int, to domain.OrderStatus) (*domain.Order, error) {
	var order *domain.Order
	err := optimistic.Retry(ctx, s.policy, "order "+to.String(), func(ctx context.Context) error {
		var err error
		if order, err = s.GetOrder(ctx, id); err != nil {
			return err
		}
		from := order.Status
		if err := order.Transition(to, s.now().UTC()); err != nil {
			return err
		}
		return s.repo.UpdateStatus(ctx, id, from, to, order.UpdatedAt)
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("order status changed", zap.Int("order_id", id), zap.String("status", to.String()))
	return order, nil
}
