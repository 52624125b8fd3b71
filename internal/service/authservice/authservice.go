package authservice

//go:generate mockgen -source=authservice.go -destination=mock_authservice.go -package=authservice

import (
	"context"
	"fmt"
	"time"

	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/pkg/auth"
	"go.uber.org/zap"
)

const (
	DefaultTokenTTL = 24 * time.Hour
	MaxTokenTTL     = 30 * 24 * time.Hour
)

type Repo interface {
	FindByID(ctx context.Context, id int) (*domain.Account, error)
}

type Service struct {
	accountRepo Repo
	jwtService  auth.JWTServiceInterface
	now         func() time.Time
}

func New(repo Repo, jwtService auth.JWTServiceInterface) *Service {
	return &Service{
		accountRepo: repo,
		jwtService:  jwtService,
		now:         time.Now,
	}
}

// IssueToken signs a bearer token for an existing account. The role claim is
// the account type, so a buyer can never hold a merchant token.
func (s *Service) IssueToken(ctx context.Context, accountID int, ttl time.Duration) (string, error) {
	if accountID <= 0 {
		return "", domain.Validationf("account id must be positive")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if ttl > MaxTokenTTL {
		return "", domain.Validationf("token lifetime %s exceeds %s", ttl, MaxTokenTTL)
	}

	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		zap.L().Error("can't find account: ", zap.Error(err))
		return "", err
	}
	if account == nil {
		return "", fmt.Errorf("account %d: %w", accountID, domain.ErrNotFound)
	}

	token, err := s.jwtService.GenerateJWT(account.ID, string(account.Type), s.now().Add(ttl))
	if err != nil {
		zap.L().Error("can't generate token: ", zap.Error(err))
		return "", err
	}
	zap.L().Info("token issued", zap.Int("account_id", account.ID), zap.String("role", string(account.Type)))
	return token, nil
}
