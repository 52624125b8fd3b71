package settlements

import (
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
	"github.com/GlebRadaev/marketledger/internal/settlement"
	"github.com/GlebRadaev/marketledger/pkg/auth"
)

var day = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

func NewMock(t *testing.T) (*SettlementHandler, *MockService) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	return New(service), service
}

func newRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(auth.WithPrincipal(req.Context(), 2, auth.RoleMerchant))
}

func matched() domain.Settlement {
	return *domain.NewSettlement(2, day, decimal.RequireFromString("300"), decimal.RequireFromString("50"),
		decimal.RequireFromString("250"), day.Add(26*time.Hour))
}

func TestRunHandler(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		prepareMock  func(service *MockService)
		expectedCode int
	}{
		{
			name: "Explicit date",
			body: `{"date":"2026-10-16"}`,
			prepareMock: func(service *MockService) {
				service.EXPECT().RunSettlement(gomock.Any(), mo.Some(2), mo.Some(day)).
					Return(settlement.Report{Date: day, Settled: []domain.Settlement{matched()}}, nil)
			},
			expectedCode: http.StatusCreated,
		},
		{
			name: "Empty body settles yesterday",
			body: ``,
			prepareMock: func(service *MockService) {
				service.EXPECT().RunSettlement(gomock.Any(), mo.Some(2), mo.None[time.Time]()).
					Return(settlement.Report{Date: day, Settled: []domain.Settlement{matched()}}, nil)
			},
			expectedCode: http.StatusCreated,
		},
		{
			name:         "Bad date",
			body:         `{"date":"16.10.2026"}`,
			prepareMock:  func(service *MockService) {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "Already settled",
			body: `{"date":"2026-10-16"}`,
			prepareMock: func(service *MockService) {
				service.EXPECT().RunSettlement(gomock.Any(), mo.Some(2), mo.Some(day)).
					Return(settlement.Report{Date: day}, domain.ErrAlreadySettled)
			},
			expectedCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, service := NewMock(t)
			tt.prepareMock(service)

			w := httptest.NewRecorder()
			handler.Run(w, newRequest(http.MethodPost, "/api/settlements/run", tt.body))

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedCode == http.StatusCreated {
				body := w.Body.String()
				assert.Equal(t, "MATCHED", gjson.Get(body, "status").String())
				assert.Equal(t, "250.00", gjson.Get(body, "net_amount").String())
				assert.Equal(t, "2026-10-16", gjson.Get(body, "settlement_date").String())
			}
		})
	}
}

func TestGetSettlementsHandler(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		prepareMock  func(service *MockService)
		expectedCode int
		expectedLen  int
	}{
		{
			name:  "Range",
			query: "?from=2026-10-01&to=2026-10-16",
			prepareMock: func(service *MockService) {
				service.EXPECT().Settlements(gomock.Any(), 2, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), day).
					Return([]domain.Settlement{matched()}, nil)
			},
			expectedCode: http.StatusOK,
			expectedLen:  1,
		},
		{
			name:         "Bad from",
			query:        "?from=last-week",
			prepareMock:  func(service *MockService) {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:  "Inverted range",
			query: "?from=2026-10-16&to=2026-10-01",
			prepareMock: func(service *MockService) {
				service.EXPECT().Settlements(gomock.Any(), 2, gomock.Any(), gomock.Any()).
					Return(nil, domain.Validationf("from is after to"))
			},
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, service := NewMock(t)
			tt.prepareMock(service)

			w := httptest.NewRecorder()
			handler.GetSettlements(w, newRequest(http.MethodGet, "/api/settlements"+tt.query, ""))

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedCode == http.StatusOK {
				assert.Len(t, gjson.Parse(w.Body.String()).Array(), tt.expectedLen)
			}
		})
	}
}
