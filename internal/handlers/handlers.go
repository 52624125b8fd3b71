package handlers

//go:generate mockgen -source=handlers.go -destination=mock_handlers.go -package=handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/GlebRadaev/marketledger/docs"
	accountshandlers "github.com/GlebRadaev/marketledger/internal/handlers/accounts"
	inventoryhandlers "github.com/GlebRadaev/marketledger/internal/handlers/inventory"
	ordershandlers "github.com/GlebRadaev/marketledger/internal/handlers/orders"
	settlementshandlers "github.com/GlebRadaev/marketledger/internal/handlers/settlements"
	"github.com/GlebRadaev/marketledger/internal/service"
	"github.com/GlebRadaev/marketledger/pkg/auth"
)

type OrderHandler interface {
	PlaceOrder(w http.ResponseWriter, r *http.Request)
	GetOrders(w http.ResponseWriter, r *http.Request)
	GetOrder(w http.ResponseWriter, r *http.Request)
	GetOrderByNumber(w http.ResponseWriter, r *http.Request)
	Pay(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
	Ship(w http.ResponseWriter, r *http.Request)
	Complete(w http.ResponseWriter, r *http.Request)
	Refund(w http.ResponseWriter, r *http.Request)
}

type AccountHandler interface {
	GetMe(w http.ResponseWriter, r *http.Request)
	Deposit(w http.ResponseWriter, r *http.Request)
	GetTransactions(w http.ResponseWriter, r *http.Request)
}

type InventoryHandler interface {
	AddStock(w http.ResponseWriter, r *http.Request)
	GetItem(w http.ResponseWriter, r *http.Request)
	SetPrice(w http.ResponseWriter, r *http.Request)
}

type SettlementHandler interface {
	Run(w http.ResponseWriter, r *http.Request)
	GetSettlements(w http.ResponseWriter, r *http.Request)
}

type Authenticator interface {
	Middleware(next http.Handler) http.Handler
}

type Handlers struct {
	OrderHandler      OrderHandler
	AccountHandler    AccountHandler
	InventoryHandler  InventoryHandler
	SettlementHandler SettlementHandler
	Auth              Authenticator
}

func New(s *service.Services, authenticator Authenticator) *Handlers {
	return &Handlers{
		OrderHandler:      ordershandlers.New(s.OrderService, s.PaymentService),
		AccountHandler:    accountshandlers.New(s.AccountService, s.LedgerService),
		InventoryHandler:  inventoryhandlers.New(s.InventoryService),
		SettlementHandler: settlementshandlers.New(s.SettlementService),
		Auth:              authenticator,
	}
}

func (h *Handlers) InitRoutes(r chi.Router) chi.Router {
	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))

	user := auth.RequireRole(auth.RoleUser)
	merchant := auth.RequireRole(auth.RoleMerchant)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.Auth.Middleware)

		r.Route("/orders", func(r chi.Router) {
			r.With(user).Post("/", h.OrderHandler.PlaceOrder)
			r.Get("/", h.OrderHandler.GetOrders)
			r.Get("/by-number/{number}", h.OrderHandler.GetOrderByNumber)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.OrderHandler.GetOrder)
				r.With(user).Post("/pay", h.OrderHandler.Pay)
				r.With(user).Post("/cancel", h.OrderHandler.Cancel)
				r.With(merchant).Post("/ship", h.OrderHandler.Ship)
				r.With(merchant).Post("/complete", h.OrderHandler.Complete)
				r.Post("/refund", h.OrderHandler.Refund)
			})
		})
		r.Route("/accounts/me", func(r chi.Router) {
			r.Get("/", h.AccountHandler.GetMe)
			r.With(user).Post("/deposit", h.AccountHandler.Deposit)
			r.Get("/transactions", h.AccountHandler.GetTransactions)
		})
		r.Route("/inventory", func(r chi.Router) {
			r.With(merchant).Post("/", h.InventoryHandler.AddStock)
			r.Get("/{sku}", h.InventoryHandler.GetItem)
			r.With(merchant).Put("/{sku}/price", h.InventoryHandler.SetPrice)
		})
		r.Route("/settlements", func(r chi.Router) {
			r.Use(merchant)
			r.Post("/run", h.SettlementHandler.Run)
			r.Get("/", h.SettlementHandler.GetSettlements)
		})
	})

	return r
}
