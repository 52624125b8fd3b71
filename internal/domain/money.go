package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fraction digits every stored amount carries.
const MoneyScale = 2

// MaxLineQuantity bounds the units of one SKU in an order or a stock change.
const MaxLineQuantity = 1_000_000

// MaxAmount is the largest value a NUMERIC(15,2) column holds.
var MaxAmount = decimal.RequireFromString("9999999999999.99")

// CheckAmountRange rejects amounts that do not fit the money columns.
func CheckAmountRange(what string, d decimal.Decimal) error {
	if d.Abs().GreaterThan(MaxAmount) {
		return Validationf("%s %s exceeds %s", what, d.StringFixed(MoneyScale), MaxAmount.StringFixed(MoneyScale))
	}
	return nil
}

// HasMoneyScale reports whether d fits NUMERIC(15,2) without rounding.
func HasMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}

func ValidatePositiveAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return Validationf("amount must be positive, got %s", amount.StringFixed(MoneyScale))
	}
	if !HasMoneyScale(amount) {
		return Validationf("amount %s has more than %d fraction digits", amount.String(), MoneyScale)
	}
	return CheckAmountRange("amount", amount)
}

// NewTransactionRecord builds a ledger entry and checks that balanceAfter = balanceBefore ± amount
// with the sign implied by the transaction type.
func NewTransactionRecord(
	account *Account,
	txType TransactionType,
	amount, balanceBefore, balanceAfter decimal.Decimal,
	relatedOrderID mo.Option[int],
	at time.Time,
) (*TransactionRecord, error) {
	if txType.Sign() == 0 {
		return nil, Validationf("unknown transaction type %q", txType)
	}
	if err := ValidatePositiveAmount(amount); err != nil {
		return nil, err
	}
	expected := balanceBefore.Add(amount.Mul(decimal.NewFromInt(int64(txType.Sign()))))
	if !expected.Equal(balanceAfter) {
		return nil, Validationf("%s on account %d: balance %s -> %s does not match amount %s",
			txType, account.ID, balanceBefore.StringFixed(MoneyScale), balanceAfter.StringFixed(MoneyScale), amount.StringFixed(MoneyScale))
	}
	return &TransactionRecord{
		TransactionID:  uuid.NewString(),
		AccountType:    account.Type,
		AccountID:      account.ID,
		Type:           txType,
		Amount:         amount,
		BalanceBefore:  balanceBefore,
		BalanceAfter:   balanceAfter,
		RelatedOrderID: relatedOrderID,
		CreatedAt:      at,
	}, nil
}

// Delta is the signed balance change this record documents.
func (r TransactionRecord) Delta() decimal.Decimal {
	return r.BalanceAfter.Sub(r.BalanceBefore)
}

// NewSettlement classifies a merchant day: MATCHED only when order-derived net equals the ledger delta exactly.
func NewSettlement(merchantID int, date time.Time, totalSales, totalRefunds, balanceChange decimal.Decimal, at time.Time) *Settlement {
	net := totalSales.Sub(totalRefunds)
	discrepancy := net.Sub(balanceChange)
	status := SettlementMatched
	if !discrepancy.IsZero() {
		status = SettlementDiscrepancy
	}
	return &Settlement{
		MerchantID:     merchantID,
		SettlementDate: date,
		TotalSales:     totalSales,
		TotalRefunds:   totalRefunds,
		NetAmount:      net,
		BalanceChange:  balanceChange,
		Discrepancy:    discrepancy,
		Status:         status,
		CreatedAt:      at,
	}
}

// DayWindow returns [date 00:00, date+1 00:00) in UTC.
func DayWindow(date time.Time) (time.Time, time.Time) {
	y, m, d := date.UTC().Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 0, 1)
}
