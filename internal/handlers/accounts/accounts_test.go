package accounts

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/pkg/auth"
)

func NewMock(t *testing.T) (*AccountHandler, *MockService, *MockLedgerService) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	ledger := NewMockLedgerService(ctrl)
	return New(service, ledger), service, ledger
}

func newRequest(method, target, body string, accountID int, role string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(auth.WithPrincipal(req.Context(), accountID, role))
}

func TestGetMeHandler(t *testing.T) {
	tests := []struct {
		name         string
		prepareMock  func(service *MockService)
		expectedCode int
		balance      string
	}{
		{
			name: "Account found",
			prepareMock: func(service *MockService) {
				service.EXPECT().GetAccount(gomock.Any(), 1).Return(&domain.Account{
					ID: 1, Type: domain.AccountTypeUser, Name: "alice", Balance: decimal.RequireFromString("750"), Version: 1,
				}, nil)
			},
			expectedCode: http.StatusOK,
			balance:      "750.00",
		},
		{
			name: "Account missing",
			prepareMock: func(service *MockService) {
				service.EXPECT().GetAccount(gomock.Any(), 1).Return(nil, domain.ErrNotFound)
			},
			expectedCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, service, _ := NewMock(t)
			tt.prepareMock(service)

			w := httptest.NewRecorder()
			handler.GetMe(w, newRequest(http.MethodGet, "/api/accounts/me", "", 1, auth.RoleUser))

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.balance != "" {
				assert.Equal(t, tt.balance, gjson.Get(w.Body.String(), "balance").String())
			}
		})
	}
}

func TestDepositHandler(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		prepareMock  func(service *MockService)
		expectedCode int
	}{
		{
			name: "Deposit accepted",
			body: `{"amount":"1000.00"}`,
			prepareMock: func(service *MockService) {
				service.EXPECT().Deposit(gomock.Any(), 1, decimal.RequireFromString("1000.00")).Return(&domain.TransactionRecord{
					TransactionID: "tx-1",
					Type:          domain.TransactionDeposit,
					Amount:        decimal.RequireFromString("1000"),
					BalanceBefore: decimal.Zero,
					BalanceAfter:  decimal.RequireFromString("1000"),
					CreatedAt:     time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
				}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:         "Not a number",
			body:         `{"amount":"lots"}`,
			prepareMock:  func(service *MockService) {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Broken body",
			body:         `{`,
			prepareMock:  func(service *MockService) {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "Rejected amount",
			body: `{"amount":"-5"}`,
			prepareMock: func(service *MockService) {
				service.EXPECT().Deposit(gomock.Any(), 1, gomock.Any()).Return(nil, domain.Validationf("amount must be positive"))
			},
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, service, _ := NewMock(t)
			tt.prepareMock(service)

			w := httptest.NewRecorder()
			handler.Deposit(w, newRequest(http.MethodPost, "/api/accounts/me/deposit", tt.body, 1, auth.RoleUser))

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedCode == http.StatusOK {
				body := w.Body.String()
				assert.Equal(t, "DEPOSIT", gjson.Get(body, "type").String())
				assert.Equal(t, "1000.00", gjson.Get(body, "balance_after").String())
				assert.False(t, gjson.Get(body, "related_order_id").Exists())
			}
		})
	}
}

func TestGetTransactionsHandler(t *testing.T) {
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		query        string
		prepareMock  func(ledger *MockLedgerService)
		expectedCode int
	}{
		{
			name:  "Filtered history",
			query: "?type=SALE&from=2026-10-01&to=2026-10-17",
			prepareMock: func(ledger *MockLedgerService) {
				ledger.EXPECT().History(gomock.Any(), domain.LedgerFilter{
					AccountType: domain.AccountTypeMerchant,
					AccountID:   2,
					Type:        domain.TransactionSale,
					From:        from,
					To:          to,
				}).Return([]domain.TransactionRecord{{
					Type:           domain.TransactionSale,
					Amount:         decimal.RequireFromString("250"),
					BalanceBefore:  decimal.Zero,
					BalanceAfter:   decimal.RequireFromString("250"),
					RelatedOrderID: mo.Some(10),
				}}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:         "Bad date",
			query:        "?from=someday",
			prepareMock:  func(ledger *MockLedgerService) {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:  "Ledger unavailable",
			query: "",
			prepareMock: func(ledger *MockLedgerService) {
				ledger.EXPECT().History(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _, ledger := NewMock(t)
			tt.prepareMock(ledger)

			w := httptest.NewRecorder()
			handler.GetTransactions(w, newRequest(http.MethodGet, "/api/accounts/me/transactions"+tt.query, "", 2, auth.RoleMerchant))

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedCode == http.StatusOK {
				assert.Equal(t, int64(10), gjson.Get(w.Body.String(), "0.related_order_id").Int())
			}
		})
	}
}
