package authservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/pkg/auth"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"
)

var fixedNow = time.Date(2026, 10, 17, 10, 30, 0, 0, time.UTC)

func NewMock(t *testing.T) (*Service, *MockRepo, *auth.MockJWTServiceInterface) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepo(ctrl)
	jwtService := auth.NewMockJWTServiceInterface(ctrl)

	service := New(repo, jwtService)
	service.now = func() time.Time { return fixedNow }
	return service, repo, jwtService
}

func TestIssueToken(t *testing.T) {
	service, accountRepo, jwtService := NewMock(t)
	ctx := context.Background()

	tests := []struct {
		name          string
		accountID     int
		ttl           time.Duration
		prepareMock   func()
		expectedToken string
		expectedError error
	}{
		{
			name:      "Merchant gets merchant role",
			accountID: 2,
			ttl:       time.Hour,
			prepareMock: func() {
				accountRepo.EXPECT().FindByID(ctx, 2).Return(&domain.Account{ID: 2, Type: domain.AccountTypeMerchant}, nil)
				jwtService.EXPECT().GenerateJWT(2, auth.RoleMerchant, fixedNow.Add(time.Hour)).Return("merchant-token", nil)
			},
			expectedToken: "merchant-token",
		},
		{
			name:      "Default lifetime",
			accountID: 1,
			prepareMock: func() {
				accountRepo.EXPECT().FindByID(ctx, 1).Return(&domain.Account{ID: 1, Type: domain.AccountTypeUser}, nil)
				jwtService.EXPECT().GenerateJWT(1, auth.RoleUser, fixedNow.Add(DefaultTokenTTL)).Return("user-token", nil)
			},
			expectedToken: "user-token",
		},
		{
			name:          "Invalid account id",
			accountID:     0,
			prepareMock:   func() {},
			expectedError: domain.ErrValidation,
		},
		{
			name:          "Lifetime too long",
			accountID:     1,
			ttl:           MaxTokenTTL + time.Hour,
			prepareMock:   func() {},
			expectedError: domain.ErrValidation,
		},
		{
			name:      "Unknown account",
			accountID: 9,
			prepareMock: func() {
				accountRepo.EXPECT().FindByID(ctx, 9).Return(nil, nil)
			},
			expectedError: domain.ErrNotFound,
		},
		{
			name:      "Repository error",
			accountID: 3,
			prepareMock: func() {
				accountRepo.EXPECT().FindByID(ctx, 3).Return(nil, errors.New("db down"))
			},
			expectedError: errors.New("db down"),
		},
		{
			name:      "Signing error",
			accountID: 1,
			prepareMock: func() {
				accountRepo.EXPECT().FindByID(ctx, 1).Return(&domain.Account{ID: 1, Type: domain.AccountTypeUser}, nil)
				jwtService.EXPECT().GenerateJWT(1, auth.RoleUser, gomock.Any()).Return("", errors.New("bad key"))
			},
			expectedError: errors.New("bad key"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			token, err := service.IssueToken(ctx, tt.accountID, tt.ttl)

			if tt.expectedError != nil {
				assert.Error(t, err)
				if errors.Is(tt.expectedError, domain.ErrValidation) || errors.Is(tt.expectedError, domain.ErrNotFound) {
					assert.ErrorIs(t, err, tt.expectedError)
				} else {
					assert.EqualError(t, err, tt.expectedError.Error())
				}
				assert.Empty(t, token)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedToken, token)
		})
	}
}
