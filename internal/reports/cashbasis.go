package reports

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/quillbooks/quillbooks/internal/ledger"
)

// AllocationSource supplies the documents the resolver needs: the
// payment-to-invoice join rows and an invoice's own ledger postings.
type AllocationSource interface {
	PaymentAllocations(ctx context.Context, paymentName string) ([]ledger.PaymentFor, error)
	ReferenceEntries(ctx context.Context, referenceName string) ([]ledger.Entry, error)
}

// Resolver rewrites accrual-basis receivable/payable lines as weighted
// splits against the income, expense and tax accounts the originating
// invoices touched.
//
// The rewrite is a best-effort reporting approximation, not ledger truth:
// multi-invoice, multi-payment netting can only be distributed
// proportionally, never traced causally. Lines that cannot be resolved pass
// through unchanged so totals never silently lose money.
type Resolver struct {
	tree   *AccountTree
	source AllocationSource
	logger *slog.Logger
}

// NewResolver builds a resolver over a reclassified account tree.
func NewResolver(tree *AccountTree, source AllocationSource, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{tree: tree, source: source, logger: logger}
}

type refKey struct {
	refType ledger.ReferenceType
	refName string
}

// Resolve selects the cash-impacting transactions among entries and returns
// the contra-side lines with receivable/payable movements replaced by their
// invoice-weighted splits. Cash lines themselves are omitted; the output is
// the "what did this cash movement buy or earn" view.
func (r *Resolver) Resolve(ctx context.Context, entries []ledger.Entry) ([]ledger.Entry, error) {
	groups := make(map[refKey][]ledger.Entry)
	var order []refKey
	for _, e := range entries {
		key := refKey{e.ReferenceType, e.ReferenceName}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}

	var out []ledger.Entry
	for _, key := range order {
		group := groups[key]
		if !r.touchesCash(group) {
			continue
		}
		for _, e := range group {
			if r.accountType(e.Account).IsCash() {
				continue
			}
			resolved, err := r.resolveLine(ctx, e)
			if err != nil {
				return nil, err
			}
			out = append(out, resolved...)
		}
	}
	return out, nil
}

func (r *Resolver) touchesCash(group []ledger.Entry) bool {
	for _, e := range group {
		if r.accountType(e.Account).IsCash() {
			return true
		}
	}
	return false
}

func (r *Resolver) accountType(name string) ledger.AccountType {
	if n, ok := r.tree.Nodes[name]; ok {
		return n.AccountType
	}
	return ledger.AccountTypeNone
}

func (r *Resolver) resolvable(e ledger.Entry) bool {
	contra := r.tree.ContraType(e.Account)
	if contra != ledger.AccountTypeReceivable && contra != ledger.AccountTypePayable {
		return false
	}
	switch e.ReferenceType {
	case ledger.RefTypePayment, ledger.RefTypeSalesInvoice, ledger.RefTypePurchaseInvoice:
		return true
	default:
		return false
	}
}

// resolveLine returns either the weighted splits for one contra line or the
// line itself when no allocation can be found.
func (r *Resolver) resolveLine(ctx context.Context, e ledger.Entry) ([]ledger.Entry, error) {
	if !r.resolvable(e) {
		return []ledger.Entry{e}, nil
	}

	allocations, err := r.allocationsFor(ctx, e)
	if err != nil {
		return nil, err
	}
	if len(allocations) == 0 {
		r.logger.Warn("cash basis: no allocation for line, keeping unresolved",
			slog.String("account", e.Account),
			slog.String("reference", e.ReferenceName))
		return []ledger.Entry{e}, nil
	}

	allocTotal := decimal.Zero
	for _, a := range allocations {
		allocTotal = allocTotal.Add(a.Amount)
	}
	if allocTotal.IsZero() {
		return []ledger.Entry{e}, nil
	}

	lineAmount := e.Debit.Sub(e.Credit).Abs()
	debitSide := e.Debit.GreaterThan(e.Credit)

	type split struct {
		account string
		amount  decimal.Decimal
	}
	var splits []split
	emitted := decimal.Zero
	for _, a := range allocations {
		ratios, err := r.invoiceRatios(ctx, a.InvoiceName)
		if err != nil {
			return nil, err
		}
		if len(ratios) == 0 {
			r.logger.Warn("cash basis: invoice has no distributable lines",
				slog.String("invoice", a.InvoiceName))
			continue
		}
		weight := a.Amount.Div(allocTotal)
		for _, ratio := range ratios {
			amount := lineAmount.Mul(weight).Mul(ratio.share).Round(2)
			splits = append(splits, split{account: ratio.account, amount: amount})
			emitted = emitted.Add(amount)
		}
	}
	if len(splits) == 0 {
		return []ledger.Entry{e}, nil
	}
	// Rounding drift lands on the last split so the emitted amounts sum to
	// the original line exactly.
	splits[len(splits)-1].amount = splits[len(splits)-1].amount.Add(lineAmount.Sub(emitted))

	out := make([]ledger.Entry, 0, len(splits))
	for _, s := range splits {
		synthetic := e
		synthetic.Account = s.account
		if debitSide {
			synthetic.Debit = s.amount
			synthetic.Credit = decimal.Zero
		} else {
			synthetic.Debit = decimal.Zero
			synthetic.Credit = s.amount
		}
		out = append(out, synthetic)
	}
	return out, nil
}

// allocationsFor maps a contra line onto the invoices it settles: directly
// for invoice references, via the payment_for join for payments.
func (r *Resolver) allocationsFor(ctx context.Context, e ledger.Entry) ([]ledger.PaymentFor, error) {
	if e.ReferenceType.IsInvoice() {
		return []ledger.PaymentFor{{
			InvoiceName: e.ReferenceName,
			Amount:      e.Debit.Sub(e.Credit).Abs(),
		}}, nil
	}
	return r.source.PaymentAllocations(ctx, e.ReferenceName)
}

type accountShare struct {
	account string
	share   decimal.Decimal
}

// invoiceRatios decomposes an invoice into its non-contra accounts'
// proportional shares: |debit+credit| over the invoice's distributable
// total. Shares sum to one per invoice.
func (r *Resolver) invoiceRatios(ctx context.Context, invoiceName string) ([]accountShare, error) {
	lines, err := r.source.ReferenceEntries(ctx, invoiceName)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	var shares []accountShare
	for _, line := range lines {
		contra := r.tree.ContraType(line.Account)
		if contra == ledger.AccountTypeReceivable || contra == ledger.AccountTypePayable {
			continue
		}
		magnitude := line.Debit.Add(line.Credit).Abs()
		if magnitude.IsZero() {
			continue
		}
		shares = append(shares, accountShare{account: line.Account, share: magnitude})
		total = total.Add(magnitude)
	}
	if total.IsZero() {
		return nil, nil
	}
	for i := range shares {
		shares[i].share = shares[i].share.Div(total)
	}
	return shares, nil
}
