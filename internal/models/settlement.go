package models

import "github.com/shopspring/decimal"

type Settlement struct {
	ID        int64           `json:"id" db:"id"`
	GroupID   int64           `json:"group_id" db:"group_id"`
	PaidBy    int64           `json:"paid_by" db:"paid_by"`
	PaidTo    int64           `json:"paid_to" db:"paid_to"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Date      string          `json:"date" db:"date"`
	CreatedAt string          `json:"created_at" db:"created_at"`
}
