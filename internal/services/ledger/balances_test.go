package ledger

import (
	"testing"

	"billbuddy/internal/models"
	"billbuddy/internal/repositories/ledgerstore"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func share(user, payer int64, amount string) ledgerstore.GroupShare {
	return ledgerstore.GroupShare{
		ExpenseShare: models.ExpenseShare{UserID: user, Amount: d(amount)},
		PaidBy:       payer,
	}
}

func TestDeriveBalances(t *testing.T) {
	const a, b, c = 1, 2, 3

	// a pays 90.00 split three ways
	shares := []ledgerstore.GroupShare{
		share(a, a, "30.00"),
		share(b, a, "30.00"),
		share(c, a, "30.00"),
	}

	balances := DeriveBalances(shares, nil)
	if got := AmountOwed(balances, b, a); !got.Equal(d("30")) {
		t.Fatalf("b owes a %s, want 30.00", got)
	}
	if got := AmountOwed(balances, c, a); !got.Equal(d("30")) {
		t.Fatalf("c owes a %s, want 30.00", got)
	}

	settlements := []models.Settlement{{PaidBy: b, PaidTo: a, Amount: d("30.00")}}
	balances = DeriveBalances(shares, settlements)

	if got := AmountOwed(balances, b, a); !got.IsZero() {
		t.Fatalf("b owes a %s after settling, want 0", got)
	}
	if got := AmountOwed(balances, c, a); !got.Equal(d("30")) {
		t.Fatalf("c owes a %s, want 30.00", got)
	}
	if len(balances) != 1 {
		t.Fatalf("balances = %+v, want only c->a", balances)
	}
}

func TestDeriveBalancesNetsBothDirections(t *testing.T) {
	shares := []ledgerstore.GroupShare{
		share(2, 1, "25.00"), // 2 owes 1
		share(1, 2, "10.00"), // 1 owes 2
	}

	balances := DeriveBalances(shares, nil)
	want := []models.Balance{{Debtor: 2, Creditor: 1, Amount: d("15.00")}}
	if len(balances) != 1 || balances[0].Debtor != 2 || balances[0].Creditor != 1 || !balances[0].Amount.Equal(want[0].Amount) {
		t.Fatalf("balances = %+v, want %+v", balances, want)
	}
	if got := AmountOwed(balances, 1, 2); !got.Equal(d("-15")) {
		t.Fatalf("AmountOwed reversed = %s, want -15", got)
	}
}

func TestDeriveBalancesOverpaymentFlipsDirection(t *testing.T) {
	shares := []ledgerstore.GroupShare{share(2, 1, "20.00")}
	settlements := []models.Settlement{{PaidBy: 2, PaidTo: 1, Amount: d("25.00")}}

	balances := DeriveBalances(shares, settlements)
	if len(balances) != 1 {
		t.Fatalf("balances = %+v", balances)
	}
	if balances[0].Debtor != 1 || balances[0].Creditor != 2 || !balances[0].Amount.Equal(d("5")) {
		t.Fatalf("balance = %+v, want 1 owes 2 5.00", balances[0])
	}
}

func TestDeriveBalancesIsDeterministic(t *testing.T) {
	shares := []ledgerstore.GroupShare{
		share(3, 1, "5.00"),
		share(2, 1, "5.00"),
		share(4, 2, "1.50"),
		share(1, 4, "2.25"),
	}

	first := mustJSON(t, DeriveBalances(shares, nil))
	for i := 0; i < 20; i++ {
		if got := mustJSON(t, DeriveBalances(shares, nil)); got != first {
			t.Fatalf("run %d differs: %s vs %s", i, got, first)
		}
	}
}

func TestMemberNetsAndSuggestions(t *testing.T) {
	balances := []models.Balance{
		{Debtor: 2, Creditor: 1, Amount: d("30")},
		{Debtor: 3, Creditor: 1, Amount: d("30")},
		{Debtor: 3, Creditor: 2, Amount: d("10")},
	}

	nets := MemberNets(balances, []int64{1, 2, 3, 4})
	wantNets := map[int64]string{1: "60", 2: "-20", 3: "-40", 4: "0"}
	if len(nets) != 4 {
		t.Fatalf("nets = %+v", nets)
	}
	for _, n := range nets {
		if !n.Net.Equal(d(wantNets[n.UserID])) {
			t.Errorf("net[%d] = %s, want %s", n.UserID, n.Net, wantNets[n.UserID])
		}
	}

	suggested := SuggestSettlements(nets)
	if len(suggested) != 2 {
		t.Fatalf("suggested = %+v, want 2 transfers", suggested)
	}
	if suggested[0].Debtor != 3 || suggested[0].Creditor != 1 || !suggested[0].Amount.Equal(d("40")) {
		t.Errorf("first suggestion = %+v", suggested[0])
	}
	if suggested[1].Debtor != 2 || suggested[1].Creditor != 1 || !suggested[1].Amount.Equal(d("20")) {
		t.Errorf("second suggestion = %+v", suggested[1])
	}
}
