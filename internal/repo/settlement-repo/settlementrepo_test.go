package settlementrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/marketledger/internal/domain"
)

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)
	return New(mockDB), mockDB
}

func TestRepository_Create(t *testing.T) {
	repo, mock := NewMock(t)
	date := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	tests := []struct {
		name      string
		mockSetup func()
		wantErr   error
		expectErr bool
	}{
		{
			name: "First run for the day",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(createQuery)).
					WithArgs(2, date, "300", "50", "250", "250", "0", domain.SettlementMatched, now).
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(5))
			},
		},
		{
			name: "Day already settled",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(createQuery)).
					WithArgs(2, date, "300", "50", "250", "250", "0", domain.SettlementMatched, now).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr:   domain.ErrAlreadySettled,
			expectErr: true,
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(createQuery)).
					WithArgs(2, date, "300", "50", "250", "250", "0", domain.SettlementMatched, now).
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			s := domain.NewSettlement(2, date, decimal.NewFromInt(300), decimal.NewFromInt(50), decimal.NewFromInt(250), now)
			err := repo.Create(context.Background(), s)
			if tt.expectErr {
				assert.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 5, s.ID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_FindByMerchant(t *testing.T) {
	repo, mock := NewMock(t)
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "merchant_id", "settlement_date", "total_sales", "total_refunds",
		"net_amount", "balance_change", "discrepancy", "status", "created_at"}

	mock.ExpectQuery(regexp.QuoteMeta(findByMerchantQuery)).
		WithArgs(2, from, to).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(5, 2, to, "300.00", "50.00", "250.00", "240.00", "10.00", domain.SettlementDiscrepancy, to))

	settlements, err := repo.FindByMerchant(context.Background(), 2, from, to)
	require.NoError(t, err)
	require.Len(t, settlements, 1)
	assert.Equal(t, domain.SettlementDiscrepancy, settlements[0].Status)
	assert.True(t, decimal.NewFromInt(10).Equal(settlements[0].Discrepancy))
	assert.NoError(t, mock.ExpectationsWereMet())
}
