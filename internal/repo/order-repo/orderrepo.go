package orderrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/internal/pg"
)

const orderColumns = `id, order_number, buyer_id, merchant_id, total_amount::text, status, created_at, updated_at`

const (
	insertOrderQuery = `
		INSERT INTO orders (order_number, buyer_id, merchant_id, total_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $6)
		RETURNING id
	`
	insertLineQuery = `
		INSERT INTO order_lines (order_id, line_no, sku, product_name, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric)
		RETURNING id
	`
	findByIDQuery = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1
	`
	findByNumberQuery = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE order_number = $1
	`
	findLinesQuery = `
		SELECT id, order_id, line_no, sku, product_name, quantity, unit_price::text, subtotal::text
		FROM order_lines
		WHERE order_id = ANY($1)
		ORDER BY order_id, line_no
	`
	listQuery = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1::bigint = 0 OR buyer_id = $1)
			AND ($2::bigint = 0 OR merchant_id = $2)
			AND ($3::text = '' OR status = $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5
	`
	updateStatusQuery = `
		UPDATE orders
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`
	sumTotalsQuery = `
		SELECT COALESCE(SUM(total_amount), 0)::text
		FROM orders
		WHERE merchant_id = $1 AND status = $2 AND updated_at >= $3 AND updated_at < $4
	`
)

type Repository struct {
	db        pg.Database
	txManager pg.TXManager
}

func New(db pg.Database, txManager pg.TXManager) *Repository {
	return &Repository{
		db:        db,
		txManager: txManager,
	}
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		order domain.Order
		total string
	)
	err := row.Scan(&order.ID, &order.OrderNumber, &order.BuyerID, &order.MerchantID,
		&total, &order.Status, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if order.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("bad total %q: %w", total, err)
	}
	return &order, nil
}

// Create stores the order and its lines in one transaction and fills in the generated ids.
func (r *Repository) Create(ctx context.Context, order *domain.Order) error {
	return r.txManager.Begin(ctx, func(ctx context.Context) error {
		err := r.db.QueryRow(ctx, insertOrderQuery,
			order.OrderNumber, order.BuyerID, order.MerchantID, order.TotalAmount.String(), order.Status, order.CreatedAt,
		).Scan(&order.ID)
		if err != nil {
			zap.L().Error("can't save order", zap.String("order_number", order.OrderNumber), zap.Error(err))
			return err
		}

		for i := range order.Lines {
			line := &order.Lines[i]
			line.OrderID = order.ID
			err := r.db.QueryRow(ctx, insertLineQuery,
				order.ID, line.LineNo, line.SKU, line.ProductName, line.Quantity, line.UnitPrice.String(), line.Subtotal.String(),
			).Scan(&line.ID)
			if err != nil {
				zap.L().Error("can't save order line", zap.Int("order_id", order.ID), zap.Int("line_no", line.LineNo), zap.Error(err))
				return err
			}
		}
		return nil
	})
}

func (r *Repository) FindByID(ctx context.Context, id int) (*domain.Order, error) {
	return r.findOne(ctx, findByIDQuery, id)
}

func (r *Repository) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return r.findOne(ctx, findByNumberQuery, orderNumber)
}

func (r *Repository) findOne(ctx context.Context, query string, key any) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find order", zap.Any("key", key), zap.Error(err))
		return nil, err
	}
	orders := []domain.Order{*order}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *Repository) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, listQuery,
		filter.BuyerID, filter.MerchantID, string(filter.Status), filter.Limit, filter.Offset)
	if err != nil {
		zap.L().Error("can't list orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			zap.L().Error("can't scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *Repository) attachLines(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := lo.Map(orders, func(o domain.Order, _ int) int { return o.ID })
	rows, err := r.db.Query(ctx, findLinesQuery, ids)
	if err != nil {
		zap.L().Error("can't get order lines", zap.Error(err))
		return err
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var (
			line            domain.OrderLine
			price, subtotal string
		)
		err := rows.Scan(&line.ID, &line.OrderID, &line.LineNo, &line.SKU, &line.ProductName, &line.Quantity, &price, &subtotal)
		if err != nil {
			zap.L().Error("can't scan order line", zap.Error(err))
			return err
		}
		if line.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("bad unit price %q: %w", price, err)
		}
		if line.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
			return fmt.Errorf("bad subtotal %q: %w", subtotal, err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	byOrder := lo.GroupBy(lines, func(l domain.OrderLine) int { return l.OrderID })
	for i := range orders {
		orders[i].Lines = byOrder[orders[i].ID]
	}
	return nil
}

// UpdateStatus moves the order from one status to another. It fails with a
// conflict when the stored status is no longer from.
func (r *Repository) UpdateStatus(ctx context.Context, id int, from, to domain.OrderStatus, at time.Time) error {
	tag, err := r.db.Exec(ctx, updateStatusQuery, id, from, to, at)
	if err != nil {
		zap.L().Error("failed to update order status", zap.Int("order_id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d is no longer %s: %w", id, from, domain.ErrConcurrencyConflict)
	}
	return nil
}

// SumTotals adds up total_amount of the merchant's orders that reached status within [from, to).
func (r *Repository) SumTotals(ctx context.Context, merchantID int, status domain.OrderStatus, from, to time.Time) (decimal.Decimal, error) {
	var sum string
	if err := r.db.QueryRow(ctx, sumTotalsQuery, merchantID, status, from, to).Scan(&sum); err != nil {
		zap.L().Error("can't sum order totals", zap.Int("merchant_id", merchantID), zap.Error(err))
		return decimal.Zero, err
	}
	return decimal.NewFromString(sum)
}
