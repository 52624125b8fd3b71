package dto

import (
	"time"

	"github.com/GlebRadaev/marketledger/internal/domain"
)

type AccountResponseDTO struct {
	ID      int    `json:"id" example:"1"`
	Type    string `json:"type" example:"USER"`
	Name    string `json:"name" example:"alice"`
	Balance string `json:"balance" example:"750.00"`
	Version int    `json:"version" example:"3"`
}

type DepositRequestDTO struct {
	Amount string `json:"amount" example:"1000.00"`
}

type TransactionResponseDTO struct {
	TransactionID  string `json:"transaction_id" example:"0b6c7a36-3e77-4a43-9d0a-0f5f0c1f6a11"`
	Type           string `json:"type" example:"PURCHASE"`
	Amount         string `json:"amount" example:"250.00"`
	BalanceBefore  string `json:"balance_before" example:"1000.00"`
	BalanceAfter   string `json:"balance_after" example:"750.00"`
	RelatedOrderID *int   `json:"related_order_id,omitempty" example:"10"`
	CreatedAt      string `json:"created_at" example:"2026-10-17T12:05:00Z"`
}

func FromAccount(a *domain.Account) AccountResponseDTO {
	return AccountResponseDTO{
		ID:      a.ID,
		Type:    string(a.Type),
		Name:    a.Name,
		Balance: a.Balance.StringFixed(domain.MoneyScale),
		Version: a.Version,
	}
}

func FromTransaction(r domain.TransactionRecord) TransactionResponseDTO {
	return TransactionResponseDTO{
		TransactionID:  r.TransactionID,
		Type:           string(r.Type),
		Amount:         r.Amount.StringFixed(domain.MoneyScale),
		BalanceBefore:  r.BalanceBefore.StringFixed(domain.MoneyScale),
		BalanceAfter:   r.BalanceAfter.StringFixed(domain.MoneyScale),
		RelatedOrderID: r.RelatedOrderID.ToPointer(),
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
	}
}
