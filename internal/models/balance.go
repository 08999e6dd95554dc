package models

import "github.com/shopspring/decimal"

// Balance says Debtor owes Creditor Amount, always positive.
type Balance struct {
	Debtor   int64           `json:"debtor"`
	Creditor int64           `json:"creditor"`
	Amount   decimal.Decimal `json:"amount"`
}

// MemberNet is positive when the group owes the member money.
type MemberNet struct {
	UserID int64           `json:"user_id"`
	Net    decimal.Decimal `json:"net"`
}

type GroupBalances struct {
	GroupID   int64       `json:"group_id"`
	Balances  []Balance   `json:"balances"`
	Nets      []MemberNet `json:"nets"`
	Suggested []Balance   `json:"suggested_settlements"`
}
