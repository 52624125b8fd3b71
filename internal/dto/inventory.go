package dto

import "github.com/GlebRadaev/marketledger/internal/domain"

type AddStockRequestDTO struct {
	SKU         string `json:"sku" example:"KETTLE-01"`
	ProductID   int    `json:"product_id" example:"501"`
	ProductName string `json:"product_name" example:"Electric kettle"`
	Quantity    int    `json:"quantity" example:"100"`
	Price       string `json:"price" example:"50.00"`
}

type SetPriceRequestDTO struct {
	Price string `json:"price" example:"42.50"`
}

type InventoryItemResponseDTO struct {
	SKU         string `json:"sku" example:"KETTLE-01"`
	ProductID   int    `json:"product_id" example:"501"`
	ProductName string `json:"product_name" example:"Electric kettle"`
	MerchantID  int    `json:"merchant_id" example:"2"`
	Quantity    int    `json:"quantity" example:"95"`
	Price       string `json:"price" example:"50.00"`
	Version     int    `json:"version" example:"1"`
}

func FromInventoryItem(i *domain.InventoryItem) InventoryItemResponseDTO {
	return InventoryItemResponseDTO{
		SKU:         i.SKU,
		ProductID:   i.ProductID,
		ProductName: i.ProductName,
		MerchantID:  i.MerchantID,
		Quantity:    i.Quantity,
		Price:       i.Price.StringFixed(domain.MoneyScale),
		Version:     i.Version,
	}
}
