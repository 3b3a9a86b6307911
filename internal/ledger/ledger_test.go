package ledger

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"seafood-agent/internal/domain"
	"seafood-agent/internal/store"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestLedger(t *testing.T) (*Ledger, *store.Store) {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	l, err := New(db, nil)
	require.NoError(t, err)
	return l, db
}

func mustCustomer(t *testing.T, l *Ledger, name string) domain.Customer {
	t.Helper()
	c, err := l.CreateCustomer(context.Background(), name, "")
	require.NoError(t, err)
	return c
}

func purchase(lane domain.Lane, amount string, paid bool) domain.Transaction {
	t := domain.Transaction{Type: domain.TxPurchase, IsPaid: paid}
	t.SetAmount(domain.Simple(lane, dec(amount)))
	return t
}

func payment(lane domain.Lane, amount string) domain.Transaction {
	t := domain.Transaction{Type: domain.TxPayment}
	t.SetAmount(domain.Simple(lane, dec(amount)))
	return t
}

func dualPurchase(bcv, divisa string) domain.Transaction {
	t := domain.Transaction{Type: domain.TxPurchase}
	t.SetAmount(domain.Dual(dec(bcv), dec(divisa)))
	return t
}

func TestComputeBalance_Lanes(t *testing.T) {
	txs := []domain.Transaction{
		purchase(domain.LaneBCV, "20", false),
		purchase(domain.LaneBCV, "5", true),
		payment(domain.LaneBCV, "7.50"),
		purchase(domain.LaneDivisas, "10", false),
		purchase(domain.LaneEuroBCV, "3", false),
		dualPurchase("30", "25"),
	}
	b := ComputeBalance(txs)
	require.Equal(t, "42.50", b.BCV.StringFixed(2))
	require.Equal(t, "10.00", b.Divisas.StringFixed(2))
	require.Equal(t, "3.00", b.EuroBCV.StringFixed(2))
	require.Equal(t, "25.00", b.DualDivisas.StringFixed(2))
}

func TestComputeBalance_DualNeverLeaksIntoDivisas(t *testing.T) {
	b := ComputeBalance([]domain.Transaction{dualPurchase("12", "10")})
	require.True(t, b.Divisas.IsZero())
	require.Equal(t, "10.00", b.DualDivisas.StringFixed(2))
	require.Equal(t, "12.00", b.BCV.StringFixed(2))
}

func TestComputeBalance_PermutationInvariant(t *testing.T) {
	txs := []domain.Transaction{
		purchase(domain.LaneBCV, "20.10", false),
		payment(domain.LaneBCV, "3.33"),
		purchase(domain.LaneDivisas, "1.01", false),
		payment(domain.LaneDivisas, "0.50"),
		dualPurchase("9.99", "8.88"),
		purchase(domain.LaneEuroBCV, "4.44", true),
	}
	want := ComputeBalance(txs)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]domain.Transaction(nil), txs...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := ComputeBalance(shuffled)
		require.True(t, want.BCV.Equal(got.BCV))
		require.True(t, want.Divisas.Equal(got.Divisas))
		require.True(t, want.EuroBCV.Equal(got.EuroBCV))
		require.True(t, want.DualDivisas.Equal(got.DualDivisas))
	}
}

func TestResolveCustomer_DiacriticInsensitive(t *testing.T) {
	l, _ := newTestLedger(t)
	jose := mustCustomer(t, l, "José")

	for _, q := range []string{"jose", "José", "JOSE"} {
		c, err := l.ResolveCustomer(context.Background(), q)
		require.NoError(t, err, q)
		require.Equal(t, jose.ID, c.ID)
	}
}

func TestResolveCustomer_Suggestions(t *testing.T) {
	l, _ := newTestLedger(t)
	mustCustomer(t, l, "Delcy")
	mustCustomer(t, l, "Delia")

	_, err := l.ResolveCustomer(context.Background(), "Delmira")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	require.ElementsMatch(t, []string{"Delcy", "Delia"}, nf.Suggestions)
}

func TestCreateCustomer_Validation(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.CreateCustomer(ctx, "  ", "")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = l.CreateCustomer(ctx, "Ana", "12ab")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	c, err := l.CreateCustomer(ctx, "Ana", "0414-123 45 67")
	require.NoError(t, err)
	require.Equal(t, "04141234567", *c.Phone)

	_, err = l.CreateCustomer(ctx, "ANA", "")
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestFindOrCreateCustomer(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	mustCustomer(t, l, "Delcy")

	c, created, err := l.FindOrCreateCustomer(ctx, "delcy")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "Delcy", c.Name)

	c, created, err = l.FindOrCreateCustomer(ctx, "pedro perez")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "Pedro Perez", c.Name)

	// A near miss is not created implicitly.
	_, _, err = l.FindOrCreateCustomer(ctx, "delsy")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecord_PurchaseGoesToBCVLane(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	delcy := mustCustomer(t, l, "Delcy")

	tx, err := l.Record(ctx, Entry{
		CustomerID:  delcy.ID,
		Type:        domain.TxPurchase,
		Amount:      domain.Simple(domain.LaneBCV, dec("20")),
		Description: "calamar",
	})
	require.NoError(t, err)
	require.Equal(t, "calamar", tx.Description)
	require.False(t, tx.AmountSecondary.Valid)

	b, err := l.Balance(ctx, delcy.ID)
	require.NoError(t, err)
	require.Equal(t, "20.00", b.BCV.StringFixed(2))
	require.True(t, b.Divisas.IsZero())

	again, err := l.Balance(ctx, delcy.ID)
	require.NoError(t, err)
	require.True(t, b.BCV.Equal(again.BCV))
}

func TestRecord_Validation(t *testing.T) {
	l, _ := newTestLedger(t)
	_, err := l.Record(context.Background(), Entry{CustomerID: 1, Type: domain.TxPurchase, Amount: domain.Simple(domain.LaneBCV, decimal.Zero)})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = l.Record(context.Background(), Entry{CustomerID: 1, Type: "gift", Amount: domain.Simple(domain.LaneBCV, dec("1"))})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func newQuote(t *testing.T, db *store.Store, mode domain.PricingMode, total, secondary string) domain.Quote {
	t.Helper()
	q := domain.Quote{
		PricingMode:  mode,
		Date:         time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		TotalPrimary: dec(total),
		Items:        []domain.QuoteItem{},
	}
	if secondary != "" {
		q.TotalSecondary = decimal.NewNullDecimal(dec(secondary))
	}
	require.NoError(t, db.CreateQuote(context.Background(), &q))
	return q
}

func TestLinkQuote_SingleLinkInvariant(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()
	maria := mustCustomer(t, l, "Maria")
	q := newQuote(t, db, domain.PricingBCV, "25", "")

	tx, err := l.LinkQuote(ctx, q.ID, maria.ID)
	require.NoError(t, err)
	require.Equal(t, q.ID, *tx.LinkedQuoteID)
	require.Equal(t, domain.LaneBCV, tx.CurrencyLane)

	_, err = l.LinkQuote(ctx, q.ID, maria.ID)
	require.ErrorIs(t, err, domain.ErrConflict)

	txs, err := l.Movements(ctx, maria.ID, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, tx.ID, txs[0].ID)
}

func TestLinkQuote_DualQuoteCarriesBothAmounts(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()
	ana := mustCustomer(t, l, "Ana")
	q := newQuote(t, db, domain.PricingDual, "30", "24")

	tx, err := l.LinkQuote(ctx, q.ID, ana.ID)
	require.NoError(t, err)
	require.True(t, tx.Amount().IsDual())

	b, err := l.Balance(ctx, ana.ID)
	require.NoError(t, err)
	require.Equal(t, "30.00", b.BCV.StringFixed(2))
	require.Equal(t, "24.00", b.DualDivisas.StringFixed(2))
	require.True(t, b.Divisas.IsZero())
}

func TestSetPaid_TogglesLinkedQuote(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()
	maria := mustCustomer(t, l, "Maria")
	q := newQuote(t, db, domain.PricingBCV, "25", "")
	tx, err := l.LinkQuote(ctx, q.ID, maria.ID)
	require.NoError(t, err)

	_, err = l.SetPaid(ctx, tx.ID, true)
	require.NoError(t, err)
	got, err := db.GetQuote(ctx, q.ID)
	require.NoError(t, err)
	require.Equal(t, domain.QuotePaid, got.Status)
	b, err := l.Balance(ctx, maria.ID)
	require.NoError(t, err)
	require.True(t, b.BCV.IsZero())

	_, err = l.SetPaid(ctx, tx.ID, false)
	require.NoError(t, err)
	got, err = db.GetQuote(ctx, q.ID)
	require.NoError(t, err)
	require.Equal(t, domain.QuotePending, got.Status)

	_, err = l.SetPaid(ctx, 9999, true)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteTransaction_LeavesQuoteStatus(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()
	maria := mustCustomer(t, l, "Maria")
	q := newQuote(t, db, domain.PricingBCV, "25", "")
	tx, err := l.LinkQuote(ctx, q.ID, maria.ID)
	require.NoError(t, err)
	_, err = l.SetPaid(ctx, tx.ID, true)
	require.NoError(t, err)

	_, err = l.DeleteTransaction(ctx, tx.ID)
	require.NoError(t, err)

	got, err := db.GetQuote(ctx, q.ID)
	require.NoError(t, err)
	require.Equal(t, domain.QuotePaid, got.Status)
}

func TestShareToken_GenerateAndRevoke(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	l.newToken = func() string { return "tok-1" }
	c := mustCustomer(t, l, "Luis")

	token, err := l.ShareToken(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "tok-1", token)

	l.newToken = func() string { return "tok-2" }
	again, err := l.ShareToken(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "tok-1", again)

	shared, _, err := l.SharedAccount(ctx, "tok-1")
	require.NoError(t, err)
	require.Equal(t, c.ID, shared.ID)

	require.NoError(t, l.RevokeShareToken(ctx, c.ID))
	_, _, err = l.SharedAccount(ctx, "tok-1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeactivateCustomer(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	c := mustCustomer(t, l, "Luis")

	require.NoError(t, l.DeactivateCustomer(ctx, c.ID))
	_, err := l.ResolveCustomer(ctx, "luis")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = l.Customer(ctx, c.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRenameAndPhone(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	c := mustCustomer(t, l, "Luis")
	mustCustomer(t, l, "Pedro")

	_, err := l.RenameCustomer(ctx, c.ID, "pedro")
	require.ErrorIs(t, err, domain.ErrConflict)

	renamed, err := l.RenameCustomer(ctx, c.ID, "Luis Alberto")
	require.NoError(t, err)
	require.Equal(t, "Luis Alberto", renamed.Name)

	_, err = l.SetPhone(ctx, c.ID, "abc")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	withPhone, err := l.SetPhone(ctx, c.ID, "+58 414 1234567")
	require.NoError(t, err)
	require.Equal(t, "+584141234567", *withPhone.Phone)
}
