package handlers

import (
	"time"

	"marketplace/internal/models"
	"marketplace/internal/services"

	"github.com/shopspring/decimal"
)

// Ledger rows keep full precision; everything below rounds to cents on the way out

type commissionResponse struct {
	ID                uint                    `json:"id"`
	OrderID           uint                    `json:"order_id"`
	OrderNumber       string                  `json:"order_number"`
	ProductID         uint                    `json:"product_id"`
	ProductName       string                  `json:"product_name"`
	Quantity          int                     `json:"quantity"`
	OrderItemAmount   decimal.Decimal         `json:"order_item_amount"`
	CommissionPercent decimal.Decimal         `json:"commission_percent"`
	CommissionAmount  decimal.Decimal         `json:"commission_amount"`
	Status            models.CommissionStatus `json:"status"`
	CreatedAt         time.Time               `json:"created_at"`
}

func presentCommission(v services.CommissionView) commissionResponse {
	return commissionResponse{
		ID:                v.ID,
		OrderID:           v.OrderID,
		OrderNumber:       v.OrderNumber,
		ProductID:         v.ProductID,
		ProductName:       v.ProductName,
		Quantity:          v.Quantity,
		OrderItemAmount:   v.OrderItemAmount.Round(2),
		CommissionPercent: v.CommissionPercent,
		CommissionAmount:  v.CommissionAmount.Round(2),
		Status:            v.Status,
		CreatedAt:         v.CreatedAt,
	}
}

func presentLedgerCommission(c models.Commission) models.Commission {
	c.OrderItemAmount = c.OrderItemAmount.Round(2)
	c.CommissionAmount = c.CommissionAmount.Round(2)
	return c
}

func presentLedgerCommissions(list []models.Commission) []models.Commission {
	out := make([]models.Commission, 0, len(list))
	for _, c := range list {
		out = append(out, presentLedgerCommission(c))
	}
	return out
}

func presentWithdrawal(w models.Withdrawal) models.Withdrawal {
	w.Amount = w.Amount.Round(2)
	return w
}

func presentPage[T, R any](p *models.Page[T], present func(T) R) models.Page[R] {
	items := make([]R, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, present(item))
	}
	return models.Page[R]{Items: items, Pagination: p.Pagination}
}

func presentEarnings(days []services.DailyEarnings) []services.DailyEarnings {
	out := make([]services.DailyEarnings, len(days))
	for i, d := range days {
		d.Amount = d.Amount.Round(2)
		out[i] = d
	}
	return out
}
