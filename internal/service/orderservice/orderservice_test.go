package orderservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/internal/optimistic"
)

type mocks struct {
	repo      *MockRepo
	inventory *MockInventoryRepo
	accounts  *MockAccountRepo
	numbers   *MockNumberGenerator
}

func NewMock(t *testing.T) (*Service, mocks) {
	ctrl := gomock.NewController(t)
	m := mocks{
		repo:      NewMockRepo(ctrl),
		inventory: NewMockInventoryRepo(ctrl),
		accounts:  NewMockAccountRepo(ctrl),
		numbers:   NewMockNumberGenerator(ctrl),
	}
	service := New(m.repo, m.inventory, m.accounts, m.numbers, optimistic.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond})
	service.now = func() time.Time { return time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC) }
	return service, m
}

var (
	buyer   = &domain.Account{ID: 1, Type: domain.AccountTypeUser}
	kettle  = &domain.InventoryItem{SKU: "SKU-1", ProductName: "Kettle", MerchantID: 2, Quantity: 100, Price: decimal.RequireFromString("50.00")}
	tea     = &domain.InventoryItem{SKU: "SKU-2", ProductName: "Tea", MerchantID: 2, Quantity: 10, Price: decimal.RequireFromString("4.50")}
	foreign = &domain.InventoryItem{SKU: "SKU-9", ProductName: "Lamp", MerchantID: 3, Quantity: 1, Price: decimal.NewFromInt(10)}
	yacht   = &domain.InventoryItem{SKU: "SKU-7", ProductName: "Yacht", MerchantID: 2, Quantity: 5000, Price: decimal.RequireFromString("9999999999.99")}
)

func TestPlaceOrder(t *testing.T) {
	service, m := NewMock(t)

	tests := []struct {
		name        string
		lines       []domain.CartLine
		prepareMock func()
		expectedErr error
		total       string
		lineCount   int
	}{
		{
			name:  "Duplicate skus are merged",
			lines: []domain.CartLine{{SKU: "SKU-1", Quantity: 2}, {SKU: "SKU-2", Quantity: 1}, {SKU: "SKU-1", Quantity: 3}},
			prepareMock: func() {
				m.accounts.EXPECT().FindByID(gomock.Any(), 1).Return(buyer, nil)
				m.inventory.EXPECT().FindBySKU(gomock.Any(), "SKU-1").Return(kettle, nil)
				m.inventory.EXPECT().FindBySKU(gomock.Any(), "SKU-2").Return(tea, nil)
				m.numbers.EXPECT().Next().Return("2026101700000427", nil)
				m.repo.EXPECT().Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, o *domain.Order) error {
						o.ID = 10
						return nil
					})
			},
			total:     "254.50",
			lineCount: 2,
		},
		{
			name:  "Taken number is redrawn",
			lines: []domain.CartLine{{SKU: "SKU-1", Quantity: 1}},
			prepareMock: func() {
				m.accounts.EXPECT().FindByID(gomock.Any(), 1).Return(buyer, nil)
				m.inventory.EXPECT().FindBySKU(gomock.Any(), "SKU-1").Return(kettle, nil)
				gomock.InOrder(
					m.numbers.EXPECT().Next().Return("2026101700000427", nil),
					m.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&pgconn.PgError{Code: "23505"}),
					m.numbers.EXPECT().Next().Return("2026101700000500", nil),
					m.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil),
				)
			},
			total:     "50",
			lineCount: 1,
		},
		{
			name:  "Mixed merchants",
			lines: []domain.CartLine{{SKU: "SKU-1", Quantity: 1}, {SKU: "SKU-9", Quantity: 1}},
			prepareMock: func() {
				m.accounts.EXPECT().FindByID(gomock.Any(), 1).Return(buyer, nil)
				m.inventory.EXPECT().FindBySKU(gomock.Any(), "SKU-1").Return(kettle, nil)
				m.inventory.EXPECT().FindBySKU(gomock.Any(), "SKU-9").Return(foreign, nil)
			},
			expectedErr: domain.ErrValidation,
		},
		{
			name:  "Unknown sku",
			lines: []domain.CartLine{{SKU: "NOPE", Quantity: 1}},
			prepareMock: func() {
				m.accounts.EXPECT().FindByID(gomock.Any(), 1).Return(buyer, nil)
				m.inventory.EXPECT().FindBySKU(gomock.Any(), "NOPE").Return(nil, nil)
			},
			expectedErr: domain.ErrNotFound,
		},
		{
			name:  "Merchant cannot buy",
			lines: []domain.CartLine{{SKU: "SKU-1", Quantity: 1}},
			prepareMock: func() {
				m.accounts.EXPECT().FindByID(gomock.Any(), 1).Return(&domain.Account{ID: 1, Type: domain.AccountTypeMerchant}, nil)
			},
			expectedErr: domain.ErrValidation,
		},
		{
			name:  "Total does not fit a money column",
			lines: []domain.CartLine{{SKU: "SKU-7", Quantity: 1001}},
			prepareMock: func() {
				m.accounts.EXPECT().FindByID(gomock.Any(), 1).Return(buyer, nil)
				m.inventory.EXPECT().FindBySKU(gomock.Any(), "SKU-7").Return(yacht, nil)
			},
			expectedErr: domain.ErrValidation,
		},
		{
			name:  "Merged quantity too large",
			lines: []domain.CartLine{{SKU: "SKU-1", Quantity: 600_000}, {SKU: "SKU-1", Quantity: 600_000}},
			prepareMock: func() {
				m.accounts.EXPECT().FindByID(gomock.Any(), 1).Return(buyer, nil)
			},
			expectedErr: domain.ErrValidation,
		},
		{
			name:        "Quantity too large",
			lines:       []domain.CartLine{{SKU: "SKU-1", Quantity: domain.MaxLineQuantity + 1}},
			expectedErr: domain.ErrValidation,
		},
		{name: "No lines", expectedErr: domain.ErrValidation},
		{name: "Zero quantity", lines: []domain.CartLine{{SKU: "SKU-1"}}, expectedErr: domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prepareMock != nil {
				tt.prepareMock()
			}
			order, err := service.PlaceOrder(context.Background(), 1, tt.lines)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, order)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.StatusPending, order.Status)
			assert.Equal(t, 2, order.MerchantID)
			assert.Len(t, order.Lines, tt.lineCount)
			assert.True(t, decimal.RequireFromString(tt.total).Equal(order.TotalAmount), order.TotalAmount.String())
		})
	}
}

func TestPlaceOrder_NumbersExhausted(t *testing.T) {
	service, m := NewMock(t)
	m.accounts.EXPECT().FindByID(gomock.Any(), 1).Return(buyer, nil)
	m.inventory.EXPECT().FindBySKU(gomock.Any(), "SKU-1").Return(kettle, nil)
	m.numbers.EXPECT().Next().Return("2026101700000427", nil).Times(numberAttempts)
	m.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&pgconn.PgError{Code: "23505"}).Times(numberAttempts)

	_, err := service.PlaceOrder(context.Background(), 1, []domain.CartLine{{SKU: "SKU-1", Quantity: 1}})
	assert.Error(t, err)
}

func TestListOrders(t *testing.T) {
	service, m := NewMock(t)

	tests := []struct {
		name        string
		filter      domain.OrderFilter
		prepareMock func()
		expectedErr error
	}{
		{
			name:   "Default page size",
			filter: domain.OrderFilter{BuyerID: 1},
			prepareMock: func() {
				m.repo.EXPECT().List(gomock.Any(), domain.OrderFilter{BuyerID: 1, Limit: DefaultPageSize}).
					Return([]domain.Order{{ID: 1}}, nil)
			},
		},
		{name: "Page too large", filter: domain.OrderFilter{Limit: 500}, expectedErr: domain.ErrValidation},
		{name: "Negative offset", filter: domain.OrderFilter{Offset: -1}, expectedErr: domain.ErrValidation},
		{name: "Unknown status", filter: domain.OrderFilter{Status: "LOST"}, expectedErr: domain.ErrValidation},
		{
			name:   "Repository error",
			filter: domain.OrderFilter{MerchantID: 2, Limit: 5},
			prepareMock: func() {
				m.repo.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, errors.New("some error"))
			},
			expectedErr: errors.New("some error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prepareMock != nil {
				tt.prepareMock()
			}
			orders, err := service.ListOrders(context.Background(), tt.filter)
			if tt.expectedErr != nil {
				assert.Error(t, err)
				if errors.Is(tt.expectedErr, domain.ErrValidation) {
					assert.ErrorIs(t, err, domain.ErrValidation)
				}
				return
			}
			assert.NoError(t, err)
			assert.Len(t, orders, 1)
		})
	}
}

func TestTransitions(t *testing.T) {
	service, m := NewMock(t)
	order := func(status domain.OrderStatus) *domain.Order {
		return &domain.Order{ID: 7, Status: status}
	}

	t.Run("Ship paid order", func(t *testing.T) {
		m.repo.EXPECT().FindByID(gomock.Any(), 7).Return(order(domain.StatusPaid), nil)
		m.repo.EXPECT().UpdateStatus(gomock.Any(), 7, domain.StatusPaid, domain.StatusShipped, gomock.Any()).Return(nil)

		shipped, err := service.Ship(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusShipped, shipped.Status)
	})

	t.Run("Complete twice", func(t *testing.T) {
		m.repo.EXPECT().FindByID(gomock.Any(), 7).Return(order(domain.StatusShipped), nil)
		m.repo.EXPECT().UpdateStatus(gomock.Any(), 7, domain.StatusShipped, domain.StatusCompleted, gomock.Any()).Return(nil)
		_, err := service.Complete(context.Background(), 7)
		require.NoError(t, err)

		m.repo.EXPECT().FindByID(gomock.Any(), 7).Return(order(domain.StatusCompleted), nil)
		_, err = service.Complete(context.Background(), 7)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		var te *domain.TransitionError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, domain.StatusCompleted, te.From)
	})

	t.Run("Cancel loses race against payment", func(t *testing.T) {
		gomock.InOrder(
			m.repo.EXPECT().FindByID(gomock.Any(), 7).Return(order(domain.StatusPending), nil),
			m.repo.EXPECT().UpdateStatus(gomock.Any(), 7, domain.StatusPending, domain.StatusCancelled, gomock.Any()).
				Return(domain.ErrConcurrencyConflict),
			m.repo.EXPECT().FindByID(gomock.Any(), 7).Return(order(domain.StatusPaid), nil),
		)
		_, err := service.Cancel(context.Background(), 7)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("Missing order", func(t *testing.T) {
		m.repo.EXPECT().FindByID(gomock.Any(), 8).Return(nil, nil)
		_, err := service.Ship(context.Background(), 8)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestGetOrderByNumber(t *testing.T) {
	service, m := NewMock(t)

	tests := []struct {
		name        string
		number      string
		prepareMock func()
		expectedID  int
		expectedErr error
	}{
		{
			name:   "Found",
			number: "2026101700000427",
			prepareMock: func() {
				m.repo.EXPECT().FindByOrderNumber(gomock.Any(), "2026101700000427").Return(&domain.Order{ID: 10}, nil)
			},
			expectedID: 10,
		},
		{
			name:   "Unknown number",
			number: "2026101700000419",
			prepareMock: func() {
				m.repo.EXPECT().FindByOrderNumber(gomock.Any(), "2026101700000419").Return(nil, nil)
			},
			expectedErr: domain.ErrNotFound,
		},
		{
			name:        "Bad check digit",
			number:      "2026101700000428",
			prepareMock: func() {},
			expectedErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			order, err := service.GetOrderByNumber(context.Background(), tt.number)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, order)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedID, order.ID)
		})
	}
}
