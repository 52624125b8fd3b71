package ledgerrepo

import (
	"context"
	"fmt"

	"github.com/samber/mo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/internal/pg"
)

// The transactions table has no update or delete path; a trigger rejects both.
const (
	appendQuery = `
		INSERT INTO transactions (transaction_id, account_type, account_id, type, amount,
			balance_before, balance_after, related_order_id, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8, $9)
		RETURNING id
	`
	findQuery = `
		SELECT id, transaction_id::text, account_type, account_id, type, amount::text,
			balance_before::text, balance_after::text, COALESCE(related_order_id, 0), created_at
		FROM transactions
		WHERE ($1::text = '' OR account_type = $1)
			AND ($2::bigint = 0 OR account_id = $2)
			AND ($3::text = '' OR type = $3)
			AND created_at >= $4 AND created_at < $5
		ORDER BY created_at, id
	`
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Append(ctx context.Context, rec *domain.TransactionRecord) error {
	var related *int
	if id, ok := rec.RelatedOrderID.Get(); ok {
		related = &id
	}
	err := r.db.QueryRow(ctx, appendQuery,
		rec.TransactionID, rec.AccountType, rec.AccountID, rec.Type, rec.Amount.String(),
		rec.BalanceBefore.String(), rec.BalanceAfter.String(), related, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		zap.L().Error("can't append ledger record",
			zap.Int("account_id", rec.AccountID), zap.String("type", string(rec.Type)), zap.Error(err))
		return err
	}
	return nil
}

// Find returns records matching filter in [From, To), oldest first. Empty
// string and zero fields of filter match everything.
func (r *Repository) Find(ctx context.Context, filter domain.LedgerFilter) ([]domain.TransactionRecord, error) {
	rows, err := r.db.Query(ctx, findQuery,
		string(filter.AccountType), filter.AccountID, string(filter.Type), filter.From, filter.To)
	if err != nil {
		zap.L().Error("can't query ledger", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var records []domain.TransactionRecord
	for rows.Next() {
		var (
			rec                   domain.TransactionRecord
			amount, before, after string
			related               int
		)
		err := rows.Scan(&rec.ID, &rec.TransactionID, &rec.AccountType, &rec.AccountID, &rec.Type,
			&amount, &before, &after, &related, &rec.CreatedAt)
		if err != nil {
			zap.L().Error("can't scan ledger row", zap.Error(err))
			return nil, err
		}
		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bad amount %q: %w", amount, err)
		}
		if rec.BalanceBefore, err = decimal.NewFromString(before); err != nil {
			return nil, fmt.Errorf("bad balance_before %q: %w", before, err)
		}
		if rec.BalanceAfter, err = decimal.NewFromString(after); err != nil {
			return nil, fmt.Errorf("bad balance_after %q: %w", after, err)
		}
		if related != 0 {
			rec.RelatedOrderID = mo.Some(related)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
