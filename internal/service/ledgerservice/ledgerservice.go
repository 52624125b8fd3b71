package ledgerservice

//go:generate mockgen -source=ledgerservice.go -destination=mock_ledgerservice.go -package=ledgerservice

import (
	"context"
	"time"

	"github.com/GlebRadaev/marketledger/internal/domain"
)

type Repo interface {
	Find(ctx context.Context, filter domain.LedgerFilter) ([]domain.TransactionRecord, error)
}

const DefaultHistoryWindow = 30 * 24 * time.Hour

type Service struct {
	repo Repo
	now  func() time.Time
}

func New(repo Repo) *Service {
	return &Service{repo: repo, now: time.Now}
}

// History lists an account's ledger records oldest first. Without To the
// window ends now; without From it starts DefaultHistoryWindow before To.
func (s *Service) History(ctx context.Context, filter domain.LedgerFilter) ([]domain.TransactionRecord, error) {
	if filter.AccountID <= 0 {
		return nil, domain.Validationf("account id is required")
	}
	if filter.Type != "" && filter.Type.Sign() == 0 {
		return nil, domain.Validationf("unknown transaction type %q", filter.Type)
	}
	if filter.To.IsZero() {
		filter.To = s.now()
	}
	if filter.From.IsZero() {
		filter.From = filter.To.Add(-DefaultHistoryWindow)
	}
	if !filter.From.Before(filter.To) {
		return nil, domain.Validationf("from %s is not before to %s",
			filter.From.Format(time.RFC3339), filter.To.Format(time.RFC3339))
	}
	return s.repo.Find(ctx, filter)
}
