package dto

import (
	"time"

	"github.com/GlebRadaev/marketledger/internal/domain"
)

type RunSettlementRequestDTO struct {
	Date string `json:"date,omitempty" example:"2026-10-16"`
}

type SettlementResponseDTO struct {
	MerchantID     int    `json:"merchant_id" example:"2"`
	SettlementDate string `json:"settlement_date" example:"2026-10-16"`
	TotalSales     string `json:"total_sales" example:"300.00"`
	TotalRefunds   string `json:"total_refunds" example:"50.00"`
	NetAmount      string `json:"net_amount" example:"250.00"`
	BalanceChange  string `json:"balance_change" example:"250.00"`
	Discrepancy    string `json:"discrepancy" example:"0.00"`
	Status         string `json:"status" example:"MATCHED"`
}

func FromSettlement(s *domain.Settlement) SettlementResponseDTO {
	return SettlementResponseDTO{
		MerchantID:     s.MerchantID,
		SettlementDate: s.SettlementDate.Format(time.DateOnly),
		TotalSales:     s.TotalSales.StringFixed(domain.MoneyScale),
		TotalRefunds:   s.TotalRefunds.StringFixed(domain.MoneyScale),
		NetAmount:      s.NetAmount.StringFixed(domain.MoneyScale),
		BalanceChange:  s.BalanceChange.StringFixed(domain.MoneyScale),
		Discrepancy:    s.Discrepancy.StringFixed(domain.MoneyScale),
		Status:         string(s.Status),
	}
}
