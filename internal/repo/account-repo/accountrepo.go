package accountrepo

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

const (
	createQuery = `
		INSERT INTO accounts (account_type, name, balance, version)
		VALUES ($1, $2, 0, 0)
		RETURNING id, account_type, name, balance::text, version, created_at, updated_at
	`
	findByIDQuery = `
		SELECT id, account_type, name, balance::text, version, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`
	listByTypeQuery = `
		SELECT id, account_type, name, balance::text, version, created_at, updated_at
		FROM accounts
		WHERE account_type = $1
		ORDER BY id
	`
	adjustBalanceQuery = `
		UPDATE accounts
		SET balance = balance + $2::numeric, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $3 AND balance + $2::numeric >= 0
		RETURNING id, account_type, name, balance::text, version, created_at, updated_at
	`
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account domain.Account
		balance string
	)
	if err := row.Scan(&account.ID, &account.Type, &account.Name, &balance, &account.Version, &account.CreatedAt, &account.UpdatedAt); err != nil {
		return nil, err
	}
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("bad balance %q: %w", balance, err)
	}
	account.Balance = b
	return &account, nil
}

func (r *Repository) Create(ctx context.Context, accountType domain.AccountType, name string) (*domain.Account, error) {
	account, err := scanAccount(r.db.QueryRow(ctx, createQuery, accountType, name))
	if err != nil {
		zap.L().Error("can't create account", zap.Error(err))
		return nil, err
	}
	return account, nil
}

func (r *Repository) FindByID(ctx context.Context, id int) (*domain.Account, error) {
	account, err := scanAccount(r.db.QueryRow(ctx, findByIDQuery, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find account", zap.Int("account_id", id), zap.Error(err))
		return nil, err
	}
	return account, nil
}

func (r *Repository) ListByType(ctx context.Context, accountType domain.AccountType) ([]domain.Account, error) {
	rows, err := r.db.Query(ctx, listByTypeQuery, accountType)
	if err != nil {
		zap.L().Error("can't list accounts", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			zap.L().Error("can't scan account row", zap.Error(err))
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

// AdjustBalance applies delta only if the stored version still equals
// expectedVersion and the result stays non-negative.
func (r *Repository) AdjustBalance(ctx context.Context, id int, delta decimal.Decimal, expectedVersion int) (*domain.Account, error) {
	account, err := scanAccount(r.db.QueryRow(ctx, adjustBalanceQuery, id, delta.String(), expectedVersion))
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		zap.L().Error("can't adjust balance", zap.Int("account_id", id), zap.Error(err))
		return nil, err
	}

	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case current == nil:
		return nil, fmt.Errorf("account %d: %w", id, domain.ErrNotFound)
	case current.Version != expectedVersion:
		return nil, fmt.Errorf("account %d version %d, expected %d: %w",
			id, current.Version, expectedVersion, domain.ErrConcurrencyConflict)
	default:
		return nil, fmt.Errorf("account %d has %s, needs %s: %w",
			id, current.Balance.StringFixed(domain.MoneyScale), delta.Neg().StringFixed(domain.MoneyScale), domain.ErrInsufficientBalance)
	}
}
