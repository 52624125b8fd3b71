package domain

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// MergeCartLines folds repeated SKUs into one line, keeping first-seen order.
func MergeCartLines(lines []CartLine) []CartLine {
	grouped := lo.GroupBy(lines, func(l CartLine) string { return l.SKU })
	skus := lo.Uniq(lo.Map(lines, func(l CartLine, _ int) string { return l.SKU }))
	return lo.Map(skus, func(sku string, _ int) CartLine {
		return CartLine{
			SKU:      sku,
			Quantity: lo.SumBy(grouped[sku], func(l CartLine) int { return l.Quantity }),
		}
	})
}

// NewOrder snapshots name and price of every item and fixes the total.
func NewOrder(number string, buyerID int, items []InventoryItem, lines []CartLine, at time.Time) *Order {
	order := &Order{
		OrderNumber: number,
		BuyerID:     buyerID,
		TotalAmount: decimal.Zero,
		Status:      StatusPending,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	for i, line := range lines {
		item := items[i]
		subtotal := item.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		order.MerchantID = item.MerchantID
		order.Lines = append(order.Lines, OrderLine{
			LineNo:      i + 1,
			SKU:         item.SKU,
			ProductName: item.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   item.Price,
			Subtotal:    subtotal,
		})
		order.TotalAmount = order.TotalAmount.Add(subtotal)
	}
	return order
}
