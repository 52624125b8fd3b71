package repo

import (
	"github.com/GlebRadaev/marketledger/internal/pg"
	accountrepo "github.com/GlebRadaev/marketledger/internal/repo/account-repo"
	inventoryrepo "github.com/GlebRadaev/marketledger/internal/repo/inventory-repo"
	ledgerrepo "github.com/GlebRadaev/marketledger/internal/repo/ledger-repo"
	orderrepo "github.com/GlebRadaev/marketledger/internal/repo/order-repo"
	settlementrepo "github.com/GlebRadaev/marketledger/internal/repo/settlement-repo"
)

type Repositories struct {
	AccountRepo    *accountrepo.Repository
	InventoryRepo  *inventoryrepo.Repository
	OrderRepo      *orderrepo.Repository
	LedgerRepo     *ledgerrepo.Repository
	SettlementRepo *settlementrepo.Repository
}

func New(conn pg.Database, txManager pg.TXManager) *Repositories {
	return &Repositories{
		AccountRepo:    accountrepo.New(conn),
		InventoryRepo:  inventoryrepo.New(conn),
		OrderRepo:      orderrepo.New(conn, txManager),
		LedgerRepo:     ledgerrepo.New(conn),
		SettlementRepo: settlementrepo.New(conn),
	}
}
