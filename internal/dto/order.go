package dto

import (
	"time"

	"github.com/samber/lo"

	"github.com/GlebRadaev/marketledger/internal/domain"
)

type PlaceOrderLineDTO struct {
	SKU      string `json:"sku" example:"KETTLE-01"`
	Quantity int    `json:"quantity" example:"5"`
}

type PlaceOrderRequestDTO struct {
	Lines []PlaceOrderLineDTO `json:"lines"`
}

type OrderLineDTO struct {
	LineNo      int    `json:"line_no" example:"1"`
	SKU         string `json:"sku" example:"KETTLE-01"`
	ProductName string `json:"product_name" example:"Electric kettle"`
	Quantity    int    `json:"quantity" example:"5"`
	UnitPrice   string `json:"unit_price" example:"50.00"`
	Subtotal    string `json:"subtotal" example:"250.00"`
}

type OrderResponseDTO struct {
	ID          int            `json:"id" example:"10"`
	Number      string         `json:"number" example:"2026101700000427"`
	BuyerID     int            `json:"buyer_id" example:"1"`
	MerchantID  int            `json:"merchant_id" example:"2"`
	TotalAmount string         `json:"total_amount" example:"250.00"`
	Status      string         `json:"status" example:"PAID"`
	Final       bool           `json:"final" example:"false"`
	Lines       []OrderLineDTO `json:"lines"`
	CreatedAt   string         `json:"created_at" example:"2026-10-17T12:00:00Z"`
	UpdatedAt   string         `json:"updated_at" example:"2026-10-17T12:05:00Z"`
}

func ToCartLines(lines []PlaceOrderLineDTO) []domain.CartLine {
	return lo.Map(lines, func(l PlaceOrderLineDTO, _ int) domain.CartLine {
		return domain.CartLine{SKU: l.SKU, Quantity: l.Quantity}
	})
}

func FromOrder(o *domain.Order) OrderResponseDTO {
	return OrderResponseDTO{
		ID:          o.ID,
		Number:      o.OrderNumber,
		BuyerID:     o.BuyerID,
		MerchantID:  o.MerchantID,
		TotalAmount: o.TotalAmount.StringFixed(domain.MoneyScale),
		Status:      o.Status.String(),
		Final:       o.Status.IsTerminal(),
		Lines: lo.Map(o.Lines, func(l domain.OrderLine, _ int) OrderLineDTO {
			return OrderLineDTO{
				LineNo:      l.LineNo,
				SKU:         l.SKU,
				ProductName: l.ProductName,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice.StringFixed(domain.MoneyScale),
				Subtotal:    l.Subtotal.StringFixed(domain.MoneyScale),
			}
		}),
		CreatedAt: o.CreatedAt.Format(time.RFC3339),
		UpdatedAt: o.UpdatedAt.Format(time.RFC3339),
	}
}
