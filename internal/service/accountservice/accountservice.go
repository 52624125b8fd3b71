package accountservice

//go:generate mockgen -source=accountservice.go -destination=mock_accountservice.go -package=accountservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/internal/optimistic"
	"github.com/GlebRadaev/marketledger/internal/pg"
)

type Repo interface {
	Create(ctx context.Context, accountType domain.AccountType, name string) (*domain.Account, error)
	FindByID(ctx context.Context, id int) (*domain.Account, error)
	ListByType(ctx context.Context, accountType domain.AccountType) ([]domain.Account, error)
	AdjustBalance(ctx context.Context, id int, delta decimal.Decimal, expectedVersion int) (*domain.Account, error)
}

type LedgerRepo interface {
	Append(ctx context.Context, rec *domain.TransactionRecord) error
}

type Service struct {
	repo      Repo
	ledger    LedgerRepo
	txManager pg.TXManager
	policy    optimistic.Policy
	now       func() time.Time
}

func New(repo Repo, ledger LedgerRepo, txManager pg.TXManager, policy optimistic.Policy) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledger,
		txManager: txManager,
		policy:    policy,
		now:       time.Now,
	}
}

// Register opens a zero-balance account.
func (s *Service) Register(ctx context.Context, accountType domain.AccountType, name string) (*domain.Account, error) {
	if !accountType.Valid() {
		return nil, domain.Validationf("unknown account type %q", accountType)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validationf("account name is required")
	}
	account, err := s.repo.Create(ctx, accountType, name)
	if err != nil {
		return nil, err
	}
	zap.L().Info("account registered", zap.Int("account_id", account.ID), zap.String("type", string(account.Type)))
	return account, nil
}

func (s *Service) GetAccount(ctx context.Context, id int) (*domain.Account, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("account %d: %w", id, domain.ErrNotFound)
	}
	return account, nil
}

func (s *Service) ListMerchants(ctx context.Context) ([]domain.Account, error) {
	return s.repo.ListByType(ctx, domain.AccountTypeMerchant)
}

// Deposit credits a user account and records a DEPOSIT entry in the same transaction.
func (s *Service) Deposit(ctx context.Context, accountID int, amount decimal.Decimal) (*domain.TransactionRecord, error) {
	if err := domain.ValidatePositiveAmount(amount); err != nil {
		return nil, err
	}

	var rec *domain.TransactionRecord
	err := optimistic.Retry(ctx, s.policy, "deposit", func(ctx context.Context) error {
		return s.txManager.Begin(ctx, func(ctx context.Context) error {
			account, err := s.GetAccount(ctx, accountID)
			if err != nil {
				return err
			}
			if account.Type != domain.AccountTypeUser {
				return domain.Validationf("account %d is a %s, only users can deposit", accountID, account.Type)
			}

			updated, err := s.repo.AdjustBalance(ctx, accountID, amount, account.Version)
			if err != nil {
				return err
			}
			rec, err = domain.NewTransactionRecord(updated, domain.TransactionDeposit, amount,
				account.Balance, updated.Balance, mo.None[int](), s.now())
			if err != nil {
				return err
			}
			return s.ledger.Append(ctx, rec)
		})
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("deposit accepted",
		zap.Int("account_id", accountID), zap.String("amount", amount.StringFixed(domain.MoneyScale)))
	return rec, nil
}
