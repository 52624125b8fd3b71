package orderrepo

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
	"go.uber.org/mock/gomock"

	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/internal/pg"
)

var (
	orderCols = []string{"id", "order_number", "buyer_id", "merchant_id", "total_amount", "status", "created_at", "updated_at"}
	lineCols  = []string{"id", "order_id", "line_no", "sku", "product_name", "quantity", "unit_price", "subtotal"}
)

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface, *pg.MockTXManager) {
	ctrl := gomock.NewController(t)
	mockTxManager := pg.NewMockTXManager(ctrl)

	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)

	return New(mockDB, mockTxManager), mockDB, mockTxManager
}

func passThrough(ctx context.Context, fn pg.TransactionalFn) error {
	return fn(ctx)
}

func TestRepository_Create(t *testing.T) {
	repo, mock, tx := NewMock(t)
	now := time.Now()

	newOrder := func() *domain.Order {
		return &domain.Order{
			OrderNumber: "202610170000001",
			BuyerID:     1,
			MerchantID:  2,
			TotalAmount: decimal.RequireFromString("254.50"),
			Status:      domain.StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
			Lines: []domain.OrderLine{
				{LineNo: 1, SKU: "SKU-1", ProductName: "Kettle", Quantity: 5,
					UnitPrice: decimal.RequireFromString("50.00"), Subtotal: decimal.RequireFromString("250.00")},
				{LineNo: 2, SKU: "SKU-2", ProductName: "Tea", Quantity: 1,
					UnitPrice: decimal.RequireFromString("4.50"), Subtotal: decimal.RequireFromString("4.50")},
			},
		}
	}

	tests := []struct {
		name      string
		mockSetup func()
		expectErr bool
	}{
		{
			name: "Order and lines saved",
			mockSetup: func() {
				tx.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(passThrough)
				mock.ExpectQuery(regexp.QuoteMeta(insertOrderQuery)).
					WithArgs("202610170000001", 1, 2, "254.5", domain.StatusPending, now).
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(10))
				mock.ExpectQuery(regexp.QuoteMeta(insertLineQuery)).
					WithArgs(10, 1, "SKU-1", "Kettle", 5, "50", "250").
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(100))
				mock.ExpectQuery(regexp.QuoteMeta(insertLineQuery)).
					WithArgs(10, 2, "SKU-2", "Tea", 1, "4.5", "4.5").
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(101))
			},
		},
		{
			name: "Line insert fails",
			mockSetup: func() {
				tx.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(passThrough)
				mock.ExpectQuery(regexp.QuoteMeta(insertOrderQuery)).
					WithArgs("202610170000001", 1, 2, "254.5", domain.StatusPending, now).
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(10))
				mock.ExpectQuery(regexp.QuoteMeta(insertLineQuery)).
					WithArgs(10, 1, "SKU-1", "Kettle", 5, "50", "250").
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			order := newOrder()
			err := repo.Create(context.Background(), order)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 10, order.ID)
				assert.Equal(t, 101, order.Lines[1].ID)
				assert.Equal(t, 10, order.Lines[1].OrderID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_FindByID(t *testing.T) {
	repo, mock, _ := NewMock(t)
	now := time.Now()

	tests := []struct {
		name      string
		mockSetup func()
		expectErr bool
		wantNil   bool
	}{
		{
			name: "Order with lines",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(findByIDQuery)).
					WithArgs(10).
					WillReturnRows(pgxmock.NewRows(orderCols).
						AddRow(10, "202610170000001", 1, 2, "250.00", domain.StatusPaid, now, now))
				mock.ExpectQuery(regexp.QuoteMeta(findLinesQuery)).
					WithArgs([]int{10}).
					WillReturnRows(pgxmock.NewRows(lineCols).
						AddRow(100, 10, 1, "SKU-1", "Kettle", 5, "50.00", "250.00"))
			},
		},
		{
			name: "Order does not exist",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(findByIDQuery)).
					WithArgs(10).
					WillReturnError(pgx.ErrNoRows)
			},
			wantNil: true,
		},
		{
			name: "Lines query fails",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(findByIDQuery)).
					WithArgs(10).
					WillReturnRows(pgxmock.NewRows(orderCols).
						AddRow(10, "202610170000001", 1, 2, "250.00", domain.StatusPaid, now, now))
				mock.ExpectQuery(regexp.QuoteMeta(findLinesQuery)).
					WithArgs([]int{10}).
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
			wantNil:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			order, err := repo.FindByID(context.Background(), 10)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, order)
			} else {
				require.NotNil(t, order)
				assert.Equal(t, domain.StatusPaid, order.Status)
				require.Len(t, order.Lines, 1)
				assert.True(t, decimal.NewFromInt(250).Equal(order.Lines[0].Subtotal))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_FindByOrderNumber(t *testing.T) {
	repo, mock, _ := NewMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(findByNumberQuery)).
		WithArgs("202610170000001").
		WillReturnError(pgx.ErrNoRows)

	order, err := repo.FindByOrderNumber(context.Background(), "202610170000001")
	assert.NoError(t, err)
	assert.Nil(t, order)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_List(t *testing.T) {
	repo, mock, _ := NewMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(listQuery)).
		WithArgs(1, 0, "PAID", 20, 0).
		WillReturnRows(pgxmock.NewRows(orderCols).
			AddRow(11, "n2", 1, 2, "10.00", domain.StatusPaid, now, now).
			AddRow(10, "n1", 1, 2, "20.00", domain.StatusPaid, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(findLinesQuery)).
		WithArgs([]int{11, 10}).
		WillReturnRows(pgxmock.NewRows(lineCols).
			AddRow(100, 10, 1, "SKU-1", "Kettle", 2, "10.00", "20.00").
			AddRow(101, 11, 1, "SKU-2", "Tea", 1, "10.00", "10.00"))

	orders, err := repo.List(context.Background(), domain.OrderFilter{BuyerID: 1, Status: domain.StatusPaid, Limit: 20})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "SKU-2", orders[0].Lines[0].SKU)
	assert.Equal(t, "SKU-1", orders[1].Lines[0].SKU)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateStatus(t *testing.T) {
	repo, mock, _ := NewMock(t)
	now := time.Now()

	tests := []struct {
		name      string
		mockSetup func()
		wantErr   error
		expectErr bool
	}{
		{
			name: "Status moved",
			mockSetup: func() {
				mock.ExpectExec(regexp.QuoteMeta(updateStatusQuery)).
					WithArgs(10, domain.StatusPending, domain.StatusPaid, now).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
		},
		{
			name: "Status changed concurrently",
			mockSetup: func() {
				mock.ExpectExec(regexp.QuoteMeta(updateStatusQuery)).
					WithArgs(10, domain.StatusPending, domain.StatusPaid, now).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			wantErr:   domain.ErrConcurrencyConflict,
			expectErr: true,
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectExec(regexp.QuoteMeta(updateStatusQuery)).
					WithArgs(10, domain.StatusPending, domain.StatusPaid, now).
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			err := repo.UpdateStatus(context.Background(), 10, domain.StatusPending, domain.StatusPaid, now)
			if tt.expectErr {
				assert.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_SumTotals(t *testing.T) {
	repo, mock, _ := NewMock(t)
	from := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	mock.ExpectQuery(regexp.QuoteMeta(sumTotalsQuery)).
		WithArgs(2, domain.StatusCompleted, from, to).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow("1250.75"))

	sum, err := repo.SumTotals(context.Background(), 2, domain.StatusCompleted, from, to)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1250.75").Equal(sum))
	assert.NoError(t, mock.ExpectationsWereMet())
}
