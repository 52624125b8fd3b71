package settlementrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/internal/pg"
)

const (
	createQuery = `
		INSERT INTO settlements (merchant_id, settlement_date, total_sales, total_refunds,
			net_amount, balance_change, discrepancy, status, created_at)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6::numeric, $7::numeric, $8, $9)
		ON CONFLICT (merchant_id, settlement_date) DO NOTHING
		RETURNING id
	`
	findByMerchantQuery = `
		SELECT id, merchant_id, settlement_date, total_sales::text, total_refunds::text,
			net_amount::text, balance_change::text, discrepancy::text, status, created_at
		FROM settlements
		WHERE merchant_id = $1 AND settlement_date >= $2 AND settlement_date <= $3
		ORDER BY settlement_date
	`
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

// Create inserts s unless the (merchant, date) pair is already settled, in
// which case the stored row is kept and ErrAlreadySettled is returned.
func (r *Repository) Create(ctx context.Context, s *domain.Settlement) error {
	err := r.db.QueryRow(ctx, createQuery,
		s.MerchantID, s.SettlementDate, s.TotalSales.String(), s.TotalRefunds.String(),
		s.NetAmount.String(), s.BalanceChange.String(), s.Discrepancy.String(), s.Status, s.CreatedAt,
	).Scan(&s.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("merchant %d on %s: %w", s.MerchantID, s.SettlementDate.Format(time.DateOnly), domain.ErrAlreadySettled)
	}
	if err != nil {
		zap.L().Error("can't save settlement", zap.Int("merchant_id", s.MerchantID), zap.Error(err))
		return err
	}
	return nil
}

// FindByMerchant returns the merchant's settlements dated within [from, to], both inclusive.
func (r *Repository) FindByMerchant(ctx context.Context, merchantID int, from, to time.Time) ([]domain.Settlement, error) {
	rows, err := r.db.Query(ctx, findByMerchantQuery, merchantID, from, to)
	if err != nil {
		zap.L().Error("can't get settlements", zap.Int("merchant_id", merchantID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var settlements []domain.Settlement
	for rows.Next() {
		var (
			s       domain.Settlement
			amounts [5]string
		)
		err := rows.Scan(&s.ID, &s.MerchantID, &s.SettlementDate, &amounts[0], &amounts[1],
			&amounts[2], &amounts[3], &amounts[4], &s.Status, &s.CreatedAt)
		if err != nil {
			zap.L().Error("can't scan settlement row", zap.Error(err))
			return nil, err
		}
		targets := []*decimal.Decimal{&s.TotalSales, &s.TotalRefunds, &s.NetAmount, &s.BalanceChange, &s.Discrepancy}
		for i, target := range targets {
			if *target, err = decimal.NewFromString(amounts[i]); err != nil {
				return nil, fmt.Errorf("bad settlement amount %q: %w", amounts[i], err)
			}
		}
		settlements = append(settlements, s)
	}
	return settlements, rows.Err()
}
