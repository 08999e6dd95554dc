package ledger

import (
	"context"
	"database/sql"
	"sort"

	"billbuddy/internal/models"
	"billbuddy/internal/repositories/ledgerstore"

	"github.com/shopspring/decimal"
)

// pairKey orders the two users so each unordered pair has one entry.
type pairKey struct{ lo, hi int64 }

// pairLedger holds one signed amount per pair: positive means lo owes hi.
type pairLedger map[pairKey]decimal.Decimal

func (l pairLedger) addDebt(debtor, creditor int64, amount decimal.Decimal) {
	if debtor == creditor || amount.IsZero() {
		return
	}
	if debtor < creditor {
		k := pairKey{debtor, creditor}
		l[k] = l[k].Add(amount)
		return
	}
	k := pairKey{creditor, debtor}
	l[k] = l[k].Sub(amount)
}

// DeriveBalances nets shares and settlements into one balance per pair of
// users. Shares add what the member owes the payer, settlements subtract
// what the payer owed the payee. Settled pairs are omitted.
func DeriveBalances(shares []ledgerstore.GroupShare, settlements []models.Settlement) []models.Balance {
	ledger := pairLedger{}
	for _, sh := range shares {
		ledger.addDebt(sh.UserID, sh.PaidBy, sh.Amount)
	}
	for _, st := range settlements {
		ledger.addDebt(st.PaidBy, st.PaidTo, st.Amount.Neg())
	}

	balances := []models.Balance{}
	for k, v := range ledger {
		switch v.Sign() {
		case 1:
			balances = append(balances, models.Balance{Debtor: k.lo, Creditor: k.hi, Amount: v})
		case -1:
			balances = append(balances, models.Balance{Debtor: k.hi, Creditor: k.lo, Amount: v.Neg()})
		}
	}
	sortBalances(balances)
	return balances
}

// AmountOwed reports what debtor owes creditor. It is negative when the debt
// runs the other way.
func AmountOwed(balances []models.Balance, debtor, creditor int64) decimal.Decimal {
	for _, b := range balances {
		switch {
		case b.Debtor == debtor && b.Creditor == creditor:
			return b.Amount
		case b.Debtor == creditor && b.Creditor == debtor:
			return b.Amount.Neg()
		}
	}
	return decimal.Zero
}

// MemberNets sums each member's position. members are always listed, even
// when settled up.
func MemberNets(balances []models.Balance, members []int64) []models.MemberNet {
	nets := map[int64]decimal.Decimal{}
	for _, id := range members {
		nets[id] = decimal.Zero
	}
	for _, b := range balances {
		nets[b.Creditor] = nets[b.Creditor].Add(b.Amount)
		nets[b.Debtor] = nets[b.Debtor].Sub(b.Amount)
	}

	out := make([]models.MemberNet, 0, len(nets))
	for id, net := range nets {
		out = append(out, models.MemberNet{UserID: id, Net: net})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// SuggestSettlements pairs the largest debtor with the largest creditor
// until everyone is even. Ties are broken by user id.
func SuggestSettlements(nets []models.MemberNet) []models.Balance {
	var debtors, creditors []models.MemberNet
	for _, n := range nets {
		switch n.Net.Sign() {
		case 1:
			creditors = append(creditors, n)
		case -1:
			debtors = append(debtors, models.MemberNet{UserID: n.UserID, Net: n.Net.Neg()})
		}
	}
	byAmount := func(s []models.MemberNet) func(i, j int) bool {
		return func(i, j int) bool {
			if c := s[i].Net.Cmp(s[j].Net); c != 0 {
				return c > 0
			}
			return s[i].UserID < s[j].UserID
		}
	}
	sort.Slice(debtors, byAmount(debtors))
	sort.Slice(creditors, byAmount(creditors))

	suggested := []models.Balance{}
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amt := decimal.Min(debtors[i].Net, creditors[j].Net)
		suggested = append(suggested, models.Balance{
			Debtor:   debtors[i].UserID,
			Creditor: creditors[j].UserID,
			Amount:   amt,
		})
		debtors[i].Net = debtors[i].Net.Sub(amt)
		creditors[j].Net = creditors[j].Net.Sub(amt)
		if debtors[i].Net.IsZero() {
			i++
		}
		if creditors[j].Net.IsZero() {
			j++
		}
	}
	return suggested
}

func sortBalances(b []models.Balance) {
	sort.Slice(b, func(i, j int) bool {
		if b[i].Debtor != b[j].Debtor {
			return b[i].Debtor < b[j].Debtor
		}
		return b[i].Creditor < b[j].Creditor
	})
}

// ComputeBalances derives the group's balances for a member. Nothing is
// stored; every call reads one consistent snapshot.
func (s *Service) ComputeBalances(ctx context.Context, groupID, callerID int64) (models.GroupBalances, error) {
	var out models.GroupBalances
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.groups.GetGroup(ctx, tx, groupID); err != nil {
			return err
		}
		role, err := s.groups.Role(ctx, tx, groupID, callerID)
		if err != nil {
			return err
		}
		if err := canViewGroup(role); err != nil {
			return err
		}
		out, err = s.deriveGroup(ctx, tx, groupID)
		return err
	})
	return out, err
}

// GroupBalances is ComputeBalances without the caller check, for jobs.
func (s *Service) GroupBalances(ctx context.Context, groupID int64) (models.GroupBalances, error) {
	var out models.GroupBalances
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.groups.GetGroup(ctx, tx, groupID); err != nil {
			return err
		}
		var err error
		out, err = s.deriveGroup(ctx, tx, groupID)
		return err
	})
	return out, err
}

func (s *Service) deriveGroup(ctx context.Context, tx *sql.Tx, groupID int64) (models.GroupBalances, error) {
	shares, err := s.store.ListGroupShares(ctx, tx, groupID)
	if err != nil {
		return models.GroupBalances{}, err
	}
	settlements, err := s.store.ListSettlements(ctx, tx, groupID)
	if err != nil {
		return models.GroupBalances{}, err
	}
	members, err := s.groups.MemberIDs(ctx, tx, groupID)
	if err != nil {
		return models.GroupBalances{}, err
	}

	balances := DeriveBalances(shares, settlements)
	nets := MemberNets(balances, members)
	return models.GroupBalances{
		GroupID:   groupID,
		Balances:  balances,
		Nets:      nets,
		Suggested: SuggestSettlements(nets),
	}, nil
}

// ListGroupIDs exposes the directory's group ids to the reminder job.
func (s *Service) ListGroupIDs(ctx context.Context) ([]int64, error) {
	return s.groups.ListGroupIDs(ctx, s.db)
}

// User looks up a user for outbound email.
func (s *Service) User(ctx context.Context, userID int64) (models.User, error) {
	return s.users.GetByID(ctx, s.db, userID)
}

// Group looks up a group by id without a membership check.
func (s *Service) Group(ctx context.Context, groupID int64) (models.Group, error) {
	return s.groups.GetGroup(ctx, s.db, groupID)
}
