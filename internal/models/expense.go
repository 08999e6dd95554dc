package models

import "github.com/shopspring/decimal"

type Expense struct {
	ID          int64           `json:"id" db:"id"`
	GroupID     int64           `json:"group_id" db:"group_id"`
	Description string          `json:"description" db:"description"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	PaidBy      int64           `json:"paid_by" db:"paid_by"`
	Date        string          `json:"date" db:"date"`
	CreatedAt   string          `json:"created_at" db:"created_at"`
}

// ExpenseShare is what UserID owes toward ExpenseID.
type ExpenseShare struct {
	ID        int64           `json:"id" db:"id"`
	ExpenseID int64           `json:"expense_id" db:"expense_id"`
	UserID    int64           `json:"user_id" db:"user_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
}

// ExpenseWithShares is returned by expense creation.
type ExpenseWithShares struct {
	Expense
	Shares []ExpenseShare `json:"shares"`
}
