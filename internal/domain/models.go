package domain

import (
	"time"

	"github.com/samber/mo"
	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeUser     AccountType = "USER"
	AccountTypeMerchant AccountType = "MERCHANT"
)

func (t AccountType) Valid() bool {
	return t == AccountTypeUser || t == AccountTypeMerchant
}

type Account struct {
	ID        int             `db:"id"`
	Type      AccountType     `db:"account_type"`
	Name      string          `db:"name"`
	Balance   decimal.Decimal `db:"balance"`
	Version   int             `db:"version"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

type InventoryItem struct {
	ID          int             `db:"id"`
	SKU         string          `db:"sku"`
	ProductID   int             `db:"product_id"`
	ProductName string          `db:"product_name"`
	MerchantID  int             `db:"merchant_id"`
	Quantity    int             `db:"quantity"`
	Price       decimal.Decimal `db:"price"`
	Version     int             `db:"version"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

type Order struct {
	ID          int             `db:"id"`
	OrderNumber string          `db:"order_number"`
	BuyerID     int             `db:"buyer_id"`
	MerchantID  int             `db:"merchant_id"`
	TotalAmount decimal.Decimal `db:"total_amount"`
	Status      OrderStatus     `db:"status"`
	Lines       []OrderLine
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// OrderLine is the price snapshot taken when the order is placed.
type OrderLine struct {
	ID          int             `db:"id"`
	OrderID     int             `db:"order_id"`
	LineNo      int             `db:"line_no"`
	SKU         string          `db:"sku"`
	ProductName string          `db:"product_name"`
	Quantity    int             `db:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	Subtotal    decimal.Decimal `db:"subtotal"`
}

// CartLine is one (sku, quantity) pair handed over by the cart or a direct purchase.
type CartLine struct {
	SKU      string
	Quantity int
}

type OrderFilter struct {
	BuyerID    int
	MerchantID int
	Status     OrderStatus
	Limit      int
	Offset     int
}

type TransactionType string

const (
	TransactionDeposit   TransactionType = "DEPOSIT"
	TransactionPurchase  TransactionType = "PURCHASE"
	TransactionSale      TransactionType = "SALE"
	TransactionRefundOut TransactionType = "REFUND_OUT"
	TransactionRefundIn  TransactionType = "REFUND_IN"
)

// Sign is +1 for types that credit the account and -1 for types that debit it.
func (t TransactionType) Sign() int {
	switch t {
	case TransactionDeposit, TransactionSale, TransactionRefundIn:
		return 1
	case TransactionPurchase, TransactionRefundOut:
		return -1
	default:
		return 0
	}
}

type TransactionRecord struct {
	ID             int             `db:"id"`
	TransactionID  string          `db:"transaction_id"`
	AccountType    AccountType     `db:"account_type"`
	AccountID      int             `db:"account_id"`
	Type           TransactionType `db:"type"`
	Amount         decimal.Decimal `db:"amount"`
	BalanceBefore  decimal.Decimal `db:"balance_before"`
	BalanceAfter   decimal.Decimal `db:"balance_after"`
	RelatedOrderID mo.Option[int]  `db:"related_order_id"`
	CreatedAt      time.Time       `db:"created_at"`
}

type LedgerFilter struct {
	AccountType AccountType
	AccountID   int
	Type        TransactionType
	From        time.Time
	To          time.Time
}

type SettlementStatus string

const (
	SettlementMatched     SettlementStatus = "MATCHED"
	SettlementDiscrepancy SettlementStatus = "DISCREPANCY"
)

type Settlement struct {
	ID             int              `db:"id"`
	MerchantID     int              `db:"merchant_id"`
	SettlementDate time.Time        `db:"settlement_date"`
	TotalSales     decimal.Decimal  `db:"total_sales"`
	TotalRefunds   decimal.Decimal  `db:"total_refunds"`
	NetAmount      decimal.Decimal  `db:"net_amount"`
	BalanceChange  decimal.Decimal  `db:"balance_change"`
	Discrepancy    decimal.Decimal  `db:"discrepancy"`
	Status         SettlementStatus `db:"status"`
	CreatedAt      time.Time        `db:"created_at"`
}
