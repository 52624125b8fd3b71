package service

import (
	"github.com/GlebRadaev/marketledger/internal/config"
	"github.com/GlebRadaev/marketledger/internal/handlers/accounts"
	"github.com/GlebRadaev/marketledger/internal/handlers/inventory"
	"github.com/GlebRadaev/marketledger/internal/handlers/orders"
	"github.com/GlebRadaev/marketledger/internal/handlers/settlements"
	"github.com/GlebRadaev/marketledger/internal/optimistic"
	"github.com/GlebRadaev/marketledger/internal/pg"
	"github.com/GlebRadaev/marketledger/internal/repo"
	"github.com/GlebRadaev/marketledger/internal/service/accountservice"
	"github.com/GlebRadaev/marketledger/internal/service/inventoryservice"
	"github.com/GlebRadaev/marketledger/internal/service/ledgerservice"
	"github.com/GlebRadaev/marketledger/internal/service/orderservice"
	"github.com/GlebRadaev/marketledger/internal/service/paymentservice"
	"github.com/GlebRadaev/marketledger/pkg/ordernum"
)

type Services struct {
	AccountService    accounts.Service
	LedgerService     accounts.LedgerService
	OrderService      orders.Service
	PaymentService    orders.PaymentService
	InventoryService  inventory.Service
	SettlementService settlements.Service
}

func New(cfg *config.Config, repo *repo.Repositories, txManager pg.TXManager, settlementService settlements.Service) *Services {
	policy := optimistic.FromConfig(cfg)

	return &Services{
		AccountService:    accountservice.New(repo.AccountRepo, repo.LedgerRepo, txManager, policy),
		LedgerService:     ledgerservice.New(repo.LedgerRepo),
		OrderService:      orderservice.New(repo.OrderRepo, repo.InventoryRepo, repo.AccountRepo, ordernum.NewGenerator(), policy),
		PaymentService:    paymentservice.New(txManager, repo.AccountRepo, repo.InventoryRepo, repo.OrderRepo, repo.LedgerRepo, policy),
		InventoryService:  inventoryservice.New(repo.InventoryRepo, repo.AccountRepo, policy),
		SettlementService: settlementService,
	}
}
