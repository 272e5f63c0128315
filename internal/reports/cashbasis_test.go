package reports

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quillbooks/quillbooks/internal/ledger"
)

type memAllocationSource struct {
	allocations map[string][]ledger.PaymentFor
	entries     map[string][]ledger.Entry
}

func (s *memAllocationSource) PaymentAllocations(_ context.Context, paymentName string) ([]ledger.PaymentFor, error) {
	return s.allocations[paymentName], nil
}

func (s *memAllocationSource) ReferenceEntries(_ context.Context, referenceName string) ([]ledger.Entry, error) {
	return s.entries[referenceName], nil
}

func cashBasisTree(t *testing.T) *AccountTree {
	t.Helper()
	accounts := []ledger.Account{
		{Name: "Bank", RootType: ledger.RootTypeAsset, AccountType: ledger.AccountTypeBank},
		{Name: "Debtors", RootType: ledger.RootTypeAsset, AccountType: ledger.AccountTypeReceivable},
		{Name: "Sales", RootType: ledger.RootTypeIncome},
		{Name: "Output Tax", RootType: ledger.RootTypeLiability, AccountType: ledger.AccountTypeTax},
	}
	tree, err := BuildTree(accounts, true)
	if err != nil {
		t.Fatal(err)
	}
	return tree
}

func paymentEntry(account, refName string, debit, credit string) ledger.Entry {
	return ledger.Entry{
		Account:       account,
		Date:          time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
		ReferenceType: ledger.RefTypePayment,
		ReferenceName: refName,
		Debit:         dec(debit),
		Credit:        dec(credit),
	}
}

// A 1000 payment settles two invoices (600 and 400). Invoice one splits
// 90/10 across Sales and Output Tax, invoice two is all Sales. The receivable
// credit must resolve to Sales 940 and Output Tax 60, summing exactly.
func TestResolvePaymentAcrossInvoices(t *testing.T) {
	tree := cashBasisTree(t)
	source := &memAllocationSource{
		allocations: map[string][]ledger.PaymentFor{
			"PAY-1": {
				{PaymentName: "PAY-1", InvoiceName: "SINV-1", Amount: dec("600")},
				{PaymentName: "PAY-1", InvoiceName: "SINV-2", Amount: dec("400")},
			},
		},
		entries: map[string][]ledger.Entry{
			"SINV-1": {
				{Account: "Debtors", Debit: dec("600"), Credit: decimal.Zero},
				{Account: "Sales", Debit: decimal.Zero, Credit: dec("540")},
				{Account: "Output Tax", Debit: decimal.Zero, Credit: dec("60")},
			},
			"SINV-2": {
				{Account: "Debtors", Debit: dec("400"), Credit: decimal.Zero},
				{Account: "Sales", Debit: decimal.Zero, Credit: dec("400")},
			},
		},
	}
	resolver := NewResolver(tree, source, nil)

	entries := []ledger.Entry{
		paymentEntry("Bank", "PAY-1", "1000", "0"),
		paymentEntry("Debtors", "PAY-1", "0", "1000"),
	}
	resolved, err := resolver.Resolve(context.Background(), entries)
	if err != nil {
		t.Fatal(err)
	}

	byAccount := make(map[string]decimal.Decimal)
	total := decimal.Zero
	for _, e := range resolved {
		if e.Account == "Bank" {
			t.Fatalf("cash line leaked into resolved output")
		}
		if !e.Debit.IsZero() {
			t.Fatalf("split on %s landed on the debit side", e.Account)
		}
		byAccount[e.Account] = byAccount[e.Account].Add(e.Credit)
		total = total.Add(e.Credit)
	}
	if !byAccount["Sales"].Equal(dec("940")) {
		t.Fatalf("Sales = %s, want 940", byAccount["Sales"])
	}
	if !byAccount["Output Tax"].Equal(dec("60")) {
		t.Fatalf("Output Tax = %s, want 60", byAccount["Output Tax"])
	}
	if !total.Equal(dec("1000")) {
		t.Fatalf("splits sum to %s, want exactly 1000", total)
	}
}

// Uneven thirds force rounding; the last split absorbs the drift so the
// total still matches the origin line exactly.
func TestResolveRoundingRemainder(t *testing.T) {
	tree := cashBasisTree(t)
	source := &memAllocationSource{
		allocations: map[string][]ledger.PaymentFor{
			"PAY-2": {{PaymentName: "PAY-2", InvoiceName: "SINV-3", Amount: dec("100")}},
		},
		entries: map[string][]ledger.Entry{
			"SINV-3": {
				{Account: "Debtors", Debit: dec("100"), Credit: decimal.Zero},
				{Account: "Sales", Debit: decimal.Zero, Credit: dec("33.33")},
				{Account: "Output Tax", Debit: decimal.Zero, Credit: dec("66.67")},
			},
		},
	}
	resolver := NewResolver(tree, source, nil)

	entries := []ledger.Entry{
		paymentEntry("Bank", "PAY-2", "100.01", "0"),
		paymentEntry("Debtors", "PAY-2", "0", "100.01"),
	}
	resolved, err := resolver.Resolve(context.Background(), entries)
	if err != nil {
		t.Fatal(err)
	}
	total := decimal.Zero
	for _, e := range resolved {
		total = total.Add(e.Credit)
	}
	if !total.Equal(dec("100.01")) {
		t.Fatalf("splits sum to %s, want 100.01", total)
	}
}

func TestResolveSkipsNonCashTransactions(t *testing.T) {
	tree := cashBasisTree(t)
	resolver := NewResolver(tree, &memAllocationSource{}, nil)

	// An accrual invoice posting touches no cash account.
	entries := []ledger.Entry{
		{Account: "Debtors", ReferenceType: ledger.RefTypeSalesInvoice, ReferenceName: "SINV-9", Debit: dec("500")},
		{Account: "Sales", ReferenceType: ledger.RefTypeSalesInvoice, ReferenceName: "SINV-9", Credit: dec("500")},
	}
	resolved, err := resolver.Resolve(context.Background(), entries)
	if err != nil {
		t.Fatal(err)
	}
	if len(resolved) != 0 {
		t.Fatalf("non-cash transaction produced %d lines", len(resolved))
	}
}

func TestResolveUnresolvedPassesThrough(t *testing.T) {
	tree := cashBasisTree(t)
	resolver := NewResolver(tree, &memAllocationSource{}, nil)

	entries := []ledger.Entry{
		paymentEntry("Bank", "PAY-3", "250", "0"),
		paymentEntry("Debtors", "PAY-3", "0", "250"),
	}
	resolved, err := resolver.Resolve(context.Background(), entries)
	if err != nil {
		t.Fatal(err)
	}
	// No allocation rows exist, so the contra line survives unchanged.
	if len(resolved) != 1 || resolved[0].Account != "Debtors" || !resolved[0].Credit.Equal(dec("250")) {
		t.Fatalf("unresolved line not passed through: %+v", resolved)
	}
}

func TestResolveNonContraLinesKept(t *testing.T) {
	tree := cashBasisTree(t)
	resolver := NewResolver(tree, &memAllocationSource{}, nil)

	// Cash sale: Bank against Sales directly, no contra account involved.
	entries := []ledger.Entry{
		{Account: "Bank", ReferenceType: ledger.RefTypePayment, ReferenceName: "PAY-4", Debit: dec("75")},
		{Account: "Sales", ReferenceType: ledger.RefTypePayment, ReferenceName: "PAY-4", Credit: dec("75")},
	}
	resolved, err := resolver.Resolve(context.Background(), entries)
	if err != nil {
		t.Fatal(err)
	}
	if len(resolved) != 1 || resolved[0].Account != "Sales" {
		t.Fatalf("direct income line lost: %+v", resolved)
	}
}
