// Package settlement reconciles each merchant's day of order revenue against
// the ledger and records the outcome.
package settlement

//go:generate mockgen -source=settlement.go -destination=mock_settlement.go -package=settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GlebRadaev/marketledger/internal/config"
	"github.com/GlebRadaev/marketledger/internal/domain"
)

const DefaultQueryWindow = 30 * 24 * time.Hour

type Repo interface {
	Create(ctx context.Context, s *domain.Settlement) error
	FindByMerchant(ctx context.Context, merchantID int, from, to time.Time) ([]domain.Settlement, error)
}

type OrderRepo interface {
	SumTotals(ctx context.Context, merchantID int, status domain.OrderStatus, from, to time.Time) (decimal.Decimal, error)
}

type LedgerRepo interface {
	Find(ctx context.Context, filter domain.LedgerFilter) ([]domain.TransactionRecord, error)
}

type AccountRepo interface {
	FindByID(ctx context.Context, id int) (*domain.Account, error)
	ListByType(ctx context.Context, accountType domain.AccountType) ([]domain.Account, error)
}

type Notifier interface {
	NotifyDiscrepancy(ctx context.Context, s *domain.Settlement) error
}

// Report summarizes one batch run. Merchants already settled for the date are skipped.
type Report struct {
	Date    time.Time
	Settled []domain.Settlement
	Skipped []int
	Failed  []int
}

type Service struct {
	repo           Repo
	orderRepo      OrderRepo
	ledgerRepo     LedgerRepo
	accountRepo    AccountRepo
	notifier       Notifier
	workerPool     WorkerPoolI
	updateInterval time.Duration
	inFlight       sync.Map
	now            func() time.Time
}

func New(cfg *config.Config, repo Repo, orderRepo OrderRepo, ledgerRepo LedgerRepo, accountRepo AccountRepo, notifier Notifier) *Service {
	return &Service{
		repo:           repo,
		orderRepo:      orderRepo,
		ledgerRepo:     ledgerRepo,
		accountRepo:    accountRepo,
		notifier:       notifier,
		workerPool:     NewWorkerPool(cfg.SettlementWorkers),
		updateInterval: cfg.SettlementInterval,
		now:            time.Now,
	}
}

// Start runs the scheduler until ctx is done. The returned channel is closed
// once the loop has returned, after which Close is safe.
func (s *Service) Start(ctx context.Context) <-chan struct{} {
	zap.L().Info("Settlement scheduler started", zap.Duration("interval", s.updateInterval))
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.run(ctx)
	}()
	return done
}

func (s *Service) run(ctx context.Context) {
	ticker := time.NewTicker(s.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Context canceled, stopping settlement scheduler")
			return
		case <-ticker.C:
			report, err := s.RunDailySettlement(ctx, s.previousDay())
			if err != nil {
				zap.L().Error("Daily settlement finished with failures", zap.Error(err))
			}
			zap.L().Info("Daily settlement finished",
				zap.Time("date", report.Date),
				zap.Int("settled", len(report.Settled)),
				zap.Int("skipped", len(report.Skipped)),
				zap.Int("failed", len(report.Failed)),
			)
		}
	}
}

func (s *Service) Close() {
	s.workerPool.Close()
}

func (s *Service) previousDay() time.Time {
	from, _ := domain.DayWindow(s.now())
	return from.AddDate(0, 0, -1)
}

// RunForMerchant settles one merchant for the UTC day containing date.
func (s *Service) RunForMerchant(ctx context.Context, merchantID int, date time.Time) (*domain.Settlement, error) {
	merchant, err := s.accountRepo.FindByID(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, fmt.Errorf("merchant %d: %w", merchantID, domain.ErrNotFound)
	}
	if merchant.Type != domain.AccountTypeMerchant {
		return nil, domain.Validationf("account %d is not a merchant", merchantID)
	}

	from, to := domain.DayWindow(date)

	sales, err := s.orderRepo.SumTotals(ctx, merchantID, domain.StatusCompleted, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to sum completed orders of merchant %d: %w", merchantID, err)
	}
	refunds, err := s.orderRepo.SumTotals(ctx, merchantID, domain.StatusRefunded, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to sum refunded orders of merchant %d: %w", merchantID, err)
	}
	change, err := s.balanceChange(ctx, merchantID, from, to)
	if err != nil {
		return nil, err
	}

	settlement := domain.NewSettlement(merchantID, from, sales, refunds, change, s.now())
	if err := s.repo.Create(ctx, settlement); err != nil {
		return nil, err
	}

	if settlement.Status == domain.SettlementDiscrepancy {
		zap.L().Warn("Settlement discrepancy",
			zap.Int("merchantID", merchantID),
			zap.String("date", from.Format(time.DateOnly)),
			zap.String("net", settlement.NetAmount.StringFixed(domain.MoneyScale)),
			zap.String("balanceChange", change.StringFixed(domain.MoneyScale)),
			zap.String("discrepancy", settlement.Discrepancy.StringFixed(domain.MoneyScale)),
		)
		if err := s.notifier.NotifyDiscrepancy(ctx, settlement); err != nil {
			zap.L().Error("Failed to report settlement discrepancy", zap.Int("merchantID", merchantID), zap.Error(err))
		}
	}
	return settlement, nil
}

// balanceChange nets SALE and REFUND_OUT entries. Other record types never touch a merchant account.
func (s *Service) balanceChange(ctx context.Context, merchantID int, from, to time.Time) (decimal.Decimal, error) {
	records, err := s.ledgerRepo.Find(ctx, domain.LedgerFilter{
		AccountType: domain.AccountTypeMerchant,
		AccountID:   merchantID,
		From:        from,
		To:          to,
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read ledger of merchant %d: %w", merchantID, err)
	}
	relevant := lo.Filter(records, func(r domain.TransactionRecord, _ int) bool {
		return r.Type == domain.TransactionSale || r.Type == domain.TransactionRefundOut
	})
	return lo.Reduce(relevant, func(sum decimal.Decimal, r domain.TransactionRecord, _ int) decimal.Decimal {
		return sum.Add(r.Delta())
	}, decimal.Zero), nil
}

// RunDailySettlement settles every merchant for date on the worker pool.
func (s *Service) RunDailySettlement(ctx context.Context, date time.Time) (Report, error) {
	day, _ := domain.DayWindow(date)
	report := Report{Date: day}

	merchants, err := s.accountRepo.ListByType(ctx, domain.AccountTypeMerchant)
	if err != nil {
		return report, fmt.Errorf("failed to list merchants: %w", err)
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		failures []error
		g        errgroup.Group
	)
	record := func(merchantID int, st *domain.Settlement, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err == nil:
			report.Settled = append(report.Settled, *st)
		case errors.Is(err, domain.ErrAlreadySettled):
			report.Skipped = append(report.Skipped, merchantID)
		default:
			report.Failed = append(report.Failed, merchantID)
			failures = append(failures, err)
		}
	}

	for _, merchant := range merchants {
		merchantID := merchant.ID
		key := fmt.Sprintf("%d:%s", merchantID, day.Format(time.DateOnly))
		if _, loaded := s.inFlight.LoadOrStore(key, struct{}{}); loaded {
			record(merchantID, nil, fmt.Errorf("merchant %d is being settled: %w", merchantID, domain.ErrAlreadySettled))
			continue
		}

		wg.Add(1)
		g.Go(func() error {
			err := s.workerPool.AddTask(ctx, func() error {
				defer wg.Done()
				defer s.inFlight.Delete(key)
				st, err := s.RunForMerchant(ctx, merchantID, day)
				record(merchantID, st, err)
				return nil
			})
			if err != nil {
				wg.Done()
				s.inFlight.Delete(key)
				record(merchantID, nil, fmt.Errorf("merchant %d not scheduled: %w", merchantID, err))
			}
			return err
		})
	}

	_ = g.Wait()
	wg.Wait()

	return report, errors.Join(failures...)
}

// RunSettlement settles one merchant when merchantID is set, otherwise all of
// them. The date defaults to the previous UTC day.
func (s *Service) RunSettlement(ctx context.Context, merchantID mo.Option[int], date mo.Option[time.Time]) (Report, error) {
	day := date.OrElse(s.previousDay())
	id, ok := merchantID.Get()
	if !ok {
		return s.RunDailySettlement(ctx, day)
	}

	from, _ := domain.DayWindow(day)
	report := Report{Date: from}
	st, err := s.RunForMerchant(ctx, id, from)
	if err != nil {
		return report, err
	}
	report.Settled = append(report.Settled, *st)
	return report, nil
}

// Settlements lists a merchant's settlements with dates in [from, to].
// Zero bounds default to the last DefaultQueryWindow.
func (s *Service) Settlements(ctx context.Context, merchantID int, from, to time.Time) ([]domain.Settlement, error) {
	if merchantID <= 0 {
		return nil, domain.Validationf("merchant id must be positive")
	}
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.Add(-DefaultQueryWindow)
	}
	if from.After(to) {
		return nil, domain.Validationf("from %s is after to %s", from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	return s.repo.FindByMerchant(ctx, merchantID, from, to)
}
