package ledger

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// memRepo is an in-memory RepositoryPort. WithTx runs the function directly;
// rollback semantics are not modelled, service tests assert happy paths and
// pre-write failures only.
type memRepo struct {
	accounts   map[string]*Account
	entries    []Entry
	paymentFor []PaymentFor
}

func newMemRepo() *memRepo {
	return &memRepo{accounts: make(map[string]*Account)}
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memRepo) GetAccount(_ context.Context, name string) (Account, error) {
	a, ok := r.accounts[name]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return *a, nil
}

func (r *memRepo) ListAccounts(context.Context) ([]Account, error) {
	out := make([]Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRepo) InsertAccount(_ context.Context, a Account) error {
	if _, ok := r.accounts[a.Name]; ok {
		return ErrDuplicateAccount
	}
	r.accounts[a.Name] = &a
	return nil
}

func (r *memRepo) AddToBalance(_ context.Context, name string, delta decimal.Decimal) error {
	a, ok := r.accounts[name]
	if !ok {
		return ErrAccountNotFound
	}
	a.Balance = a.Balance.Add(delta)
	return nil
}

func (r *memRepo) InsertEntries(_ context.Context, entries []Entry) error {
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *memRepo) ListEntries(_ context.Context, f EntryFilter) ([]Entry, error) {
	var out []Entry
	for _, e := range r.entries {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memRepo) MarkReverted(_ context.Context, ids []uuid.UUID) error {
	marked := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		marked[id] = true
	}
	for i := range r.entries {
		if marked[r.entries[i].ID] {
			r.entries[i].Reverted = true
		}
	}
	return nil
}

func (r *memRepo) ListPaymentFor(_ context.Context, paymentName string) ([]PaymentFor, error) {
	var out []PaymentFor
	for _, pf := range r.paymentFor {
		if pf.PaymentName == paymentName {
			out = append(out, pf)
		}
	}
	return out, nil
}

func (r *memRepo) InsertPaymentFor(_ context.Context, rows []PaymentFor) error {
	r.paymentFor = append(r.paymentFor, rows...)
	return nil
}

func seedAccounts(t *testing.T, repo *memRepo) {
	t.Helper()
	for _, a := range []Account{
		{Name: "Cash", RootType: RootTypeAsset, AccountType: AccountTypeCash},
		{Name: "Debtors", RootType: RootTypeAsset, AccountType: AccountTypeReceivable},
		{Name: "Sales", RootType: RootTypeIncome},
		{Name: "Output Tax", RootType: RootTypeLiability, AccountType: AccountTypeTax},
	} {
		require.NoError(t, repo.InsertAccount(context.Background(), a))
	}
}

func TestServicePostUpdatesBalances(t *testing.T) {
	repo := newMemRepo()
	seedAccounts(t, repo)
	svc := NewService(repo, nil)

	p := NewPoster(time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC),
		RefTypeJournalEntry, "JE-0001")
	require.NoError(t, p.Debit("Cash", dec("1000")))
	require.NoError(t, p.Credit("Sales", dec("1000")))

	entries, err := svc.Post(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	cash, err := repo.GetAccount(context.Background(), "Cash")
	require.NoError(t, err)
	require.True(t, cash.Balance.Equal(dec("1000")), "cash balance %s", cash.Balance)

	// Sales is credit-normal, so the credit raises its balance.
	sales, err := repo.GetAccount(context.Background(), "Sales")
	require.NoError(t, err)
	require.True(t, sales.Balance.Equal(dec("1000")), "sales balance %s", sales.Balance)
}

func TestServicePostRejectsUnbalanced(t *testing.T) {
	repo := newMemRepo()
	seedAccounts(t, repo)
	svc := NewService(repo, nil)

	p := NewPoster(time.Now(), RefTypeJournalEntry, "JE-0002")
	require.NoError(t, p.Debit("Cash", dec("100")))
	require.NoError(t, p.Credit("Sales", dec("90")))

	_, err := svc.Post(context.Background(), p)
	require.ErrorIs(t, err, ErrUnbalanced)
	require.Empty(t, repo.entries)
}

func TestServicePostUnknownAccount(t *testing.T) {
	repo := newMemRepo()
	seedAccounts(t, repo)
	svc := NewService(repo, nil)

	p := NewPoster(time.Now(), RefTypeJournalEntry, "JE-0003")
	require.NoError(t, p.Debit("Nowhere", dec("5")))
	require.NoError(t, p.Credit("Sales", dec("5")))

	_, err := svc.Post(context.Background(), p)
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestServiceReverseRestoresBalances(t *testing.T) {
	repo := newMemRepo()
	seedAccounts(t, repo)
	svc := NewService(repo, nil)

	p := NewPoster(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		RefTypeSalesInvoice, "SINV-0100").WithParty("Acme")
	require.NoError(t, p.Debit("Debtors", dec("1180")))
	require.NoError(t, p.Credit("Sales", dec("1000")))
	require.NoError(t, p.Credit("Output Tax", dec("180")))
	_, err := svc.Post(context.Background(), p)
	require.NoError(t, err)

	mirrors, err := svc.Reverse(context.Background(), "SINV-0100")
	require.NoError(t, err)
	require.Len(t, mirrors, 3)

	// Every balance returns to zero and nothing is deleted.
	for _, name := range []string{"Debtors", "Sales", "Output Tax"} {
		a, err := repo.GetAccount(context.Background(), name)
		require.NoError(t, err)
		require.True(t, a.Balance.IsZero(), "%s balance %s after reversal", name, a.Balance)
	}
	require.Len(t, repo.entries, 6)
	for _, e := range repo.entries {
		require.True(t, e.Reverted, "entry %s on %s left live", e.ID, e.Account)
	}
	for _, m := range mirrors {
		require.NotNil(t, m.Reverts)
	}
}

func TestServiceReverseNothingLive(t *testing.T) {
	repo := newMemRepo()
	seedAccounts(t, repo)
	svc := NewService(repo, nil)

	_, err := svc.Reverse(context.Background(), "SINV-MISSING")
	require.ErrorIs(t, err, ErrNothingToReverse)

	// A second reversal finds only reverted entries and fails the same way.
	p := NewPoster(time.Now(), RefTypeSalesInvoice, "SINV-0200")
	require.NoError(t, p.Debit("Cash", dec("10")))
	require.NoError(t, p.Credit("Sales", dec("10")))
	_, err = svc.Post(context.Background(), p)
	require.NoError(t, err)
	_, err = svc.Reverse(context.Background(), "SINV-0200")
	require.NoError(t, err)
	_, err = svc.Reverse(context.Background(), "SINV-0200")
	require.ErrorIs(t, err, ErrNothingToReverse)
}

func TestServiceCreateAccount(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	require.NoError(t, svc.CreateAccount(ctx, Account{Name: "Assets", RootType: RootTypeAsset, IsGroup: true}))

	parent := "Assets"
	require.NoError(t, svc.CreateAccount(ctx, Account{Name: "Bank", RootType: RootTypeAsset, AccountType: AccountTypeBank, ParentAccount: &parent}))

	err := svc.CreateAccount(ctx, Account{Name: "Bank", RootType: RootTypeAsset})
	require.ErrorIs(t, err, ErrDuplicateAccount)

	missing := "Nope"
	err = svc.CreateAccount(ctx, Account{Name: "Orphan", RootType: RootTypeAsset, ParentAccount: &missing})
	require.ErrorIs(t, err, ErrAccountNotFound)

	err = svc.CreateAccount(ctx, Account{Name: "Weird", RootType: "Mystery"})
	require.Error(t, err)
}

func TestServiceEntriesFilter(t *testing.T) {
	repo := newMemRepo()
	seedAccounts(t, repo)
	svc := NewService(repo, nil)
	ctx := context.Background()

	for i, ref := range []string{"JE-1", "JE-2"} {
		p := NewPoster(time.Date(2024, time.March, 1+i, 0, 0, 0, 0, time.UTC), RefTypeJournalEntry, ref)
		require.NoError(t, p.Debit("Cash", dec("10")))
		require.NoError(t, p.Credit("Sales", dec("10")))
		_, err := svc.Post(ctx, p)
		require.NoError(t, err)
	}

	entries, err := svc.Entries(ctx, EntryFilter{ReferenceName: "JE-2"})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	entries, err = svc.Entries(ctx, EntryFilter{Account: "Cash"})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	entries, err = svc.Entries(ctx, EntryFilter{To: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestServiceRecordPaymentFor(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	require.NoError(t, svc.RecordPaymentFor(ctx, nil))
	require.NoError(t, svc.RecordPaymentFor(ctx, []PaymentFor{
		{PaymentName: "PAY-1", InvoiceName: "SINV-1", Amount: dec("600")},
		{PaymentName: "PAY-1", InvoiceName: "SINV-2", Amount: dec("400")},
	}))
	rows, err := repo.ListPaymentFor(ctx, "PAY-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
}
