package paymentservice

//go:generate mockgen -source=paymentservice.go -destination=mock_paymentservice.go -package=paymentservice

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/mo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/internal/optimistic"
	"github.com/GlebRadaev/marketledger/internal/pg"
)

type AccountRepo interface {
	FindByID(ctx context.Context, id int) (*domain.Account, error)
	AdjustBalance(ctx context.Context, id int, delta decimal.Decimal, expectedVersion int) (*domain.Account, error)
}

type InventoryRepo interface {
	FindBySKU(ctx context.Context, sku string) (*domain.InventoryItem, error)
	AdjustQuantity(ctx context.Context, sku string, delta int, expectedVersion int) (*domain.InventoryItem, error)
}

type OrderRepo interface {
	FindByID(ctx context.Context, id int) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id int, from, to domain.OrderStatus, at time.Time) error
}

type LedgerRepo interface {
	Append(ctx context.Context, rec *domain.TransactionRecord) error
}

// Service moves money and stock for an order. Every attempt runs in one
// transaction; an attempt that loses a version race is rolled back and
// replayed from fresh reads, any other failure is returned as is.
type Service struct {
	txManager pg.TXManager
	accounts  AccountRepo
	inventory InventoryRepo
	orders    OrderRepo
	ledger    LedgerRepo
	policy    optimistic.Policy
	now       func() time.Time
}

func New(
	txManager pg.TXManager,
	accounts AccountRepo,
	inventory InventoryRepo,
	orders OrderRepo,
	ledger LedgerRepo,
	policy optimistic.Policy,
) *Service {
	return &Service{
		txManager: txManager,
		accounts:  accounts,
		inventory: inventory,
		orders:    orders,
		ledger:    ledger,
		policy:    policy,
		now:       time.Now,
	}
}

// ConfirmPayment takes stock, debits the buyer and credits the merchant for
// every line of a PENDING order, then marks it PAID.
func (s *Service) ConfirmPayment(ctx context.Context, orderID int) (*domain.Order, error) {
	var paid *domain.Order
	err := optimistic.Retry(ctx, s.policy, "confirm payment", func(ctx context.Context) error {
		return s.txManager.Begin(ctx, func(ctx context.Context) error {
			order, err := s.loadOrder(ctx, orderID, domain.StatusPaid)
			if err != nil {
				return err
			}
			buyer, merchant, err := s.loadParties(ctx, order)
			if err != nil {
				return err
			}

			at := s.now().UTC()
			for _, line := range order.Lines {
				item, err := s.inventory.FindBySKU(ctx, line.SKU)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("sku %s: %w", line.SKU, domain.ErrNotFound)
				}
				if _, err := s.inventory.AdjustQuantity(ctx, line.SKU, -line.Quantity, item.Version); err != nil {
					return fmt.Errorf("order %d line %d: %w", order.ID, line.LineNo, err)
				}
				if buyer, err = s.post(ctx, buyer, domain.TransactionPurchase, line.Subtotal, order.ID, at); err != nil {
					return fmt.Errorf("order %d line %d: %w", order.ID, line.LineNo, err)
				}
				if merchant, err = s.post(ctx, merchant, domain.TransactionSale, line.Subtotal, order.ID, at); err != nil {
					return fmt.Errorf("order %d line %d: %w", order.ID, line.LineNo, err)
				}
			}

			if err := s.advance(ctx, order, domain.StatusPaid, at); err != nil {
				return err
			}
			paid = order
			return nil
		})
	})
	if err != nil {
		zap.L().Warn("payment failed", zap.Int("order_id", orderID), zap.Error(err))
		return nil, err
	}

	zap.L().Info("payment confirmed",
		zap.Int("order_id", paid.ID), zap.String("amount", paid.TotalAmount.StringFixed(domain.MoneyScale)))
	return paid, nil
}

// Refund returns the money of a PAID or SHIPPED order to the buyer. Stock is
// not put back. A merchant that can no longer cover the refund fails the call
// without retry.
func (s *Service) Refund(ctx context.Context, orderID int) (*domain.Order, error) {
	var refunded *domain.Order
	err := optimistic.Retry(ctx, s.policy, "refund", func(ctx context.Context) error {
		return s.txManager.Begin(ctx, func(ctx context.Context) error {
			order, err := s.loadOrder(ctx, orderID, domain.StatusRefunded)
			if err != nil {
				return err
			}
			buyer, merchant, err := s.loadParties(ctx, order)
			if err != nil {
				return err
			}

			at := s.now().UTC()
			for _, line := range order.Lines {
				if merchant, err = s.post(ctx, merchant, domain.TransactionRefundOut, line.Subtotal, order.ID, at); err != nil {
					return fmt.Errorf("order %d line %d: %w", order.ID, line.LineNo, err)
				}
				if buyer, err = s.post(ctx, buyer, domain.TransactionRefundIn, line.Subtotal, order.ID, at); err != nil {
					return fmt.Errorf("order %d line %d: %w", order.ID, line.LineNo, err)
				}
			}

			if err := s.advance(ctx, order, domain.StatusRefunded, at); err != nil {
				return err
			}
			refunded = order
			return nil
		})
	})
	if err != nil {
		zap.L().Warn("refund failed", zap.Int("order_id", orderID), zap.Error(err))
		return nil, err
	}

	zap.L().Info("refund issued",
		zap.Int("order_id", refunded.ID), zap.String("amount", refunded.TotalAmount.StringFixed(domain.MoneyScale)))
	return refunded, nil
}

func (s *Service) loadOrder(ctx context.Context, id int, to domain.OrderStatus) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	if err := order.CheckTransition(to); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) loadParties(ctx context.Context, order *domain.Order) (buyer, merchant *domain.Account, err error) {
	if buyer, err = s.account(ctx, order.BuyerID); err != nil {
		return nil, nil, err
	}
	if merchant, err = s.account(ctx, order.MerchantID); err != nil {
		return nil, nil, err
	}
	return buyer, merchant, nil
}

func (s *Service) account(ctx context.Context, id int) (*domain.Account, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("account %d: %w", id, domain.ErrNotFound)
	}
	return account, nil
}

// post applies one signed balance change and its ledger record, returning
// the account as stored afterwards so the next change uses its new version.
func (s *Service) post(
	ctx context.Context,
	account *domain.Account,
	txType domain.TransactionType,
	amount decimal.Decimal,
	orderID int,
	at time.Time,
) (*domain.Account, error) {
	delta := amount
	if txType.Sign() < 0 {
		delta = amount.Neg()
	}
	updated, err := s.accounts.AdjustBalance(ctx, account.ID, delta, account.Version)
	if err != nil {
		return nil, err
	}
	rec, err := domain.NewTransactionRecord(updated, txType, amount, account.Balance, updated.Balance, mo.Some(orderID), at)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Append(ctx, rec); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) advance(ctx context.Context, order *domain.Order, to domain.OrderStatus, at time.Time) error {
	from := order.Status
	if err := order.Transition(to, at); err != nil {
		return err
	}
	return s.orders.UpdateStatus(ctx, order.ID, from, to, at)
}
