package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/quillbooks/quillbooks/internal/ledger"
)

// GroupBy selects the grouping key for tabular reports.
type GroupBy string

const (
	GroupByNone      GroupBy = "none"
	GroupByAccount   GroupBy = "account"
	GroupByParty     GroupBy = "party"
	GroupByReference GroupBy = "referenceName"
)

// RowKind distinguishes entry rows from the synthetic summary rows.
type RowKind string

const (
	RowKindEntry   RowKind = "entry"
	RowKindTotal   RowKind = "total"
	RowKindClosing RowKind = "closing"
)

// Row is one line of a tabular report.
type Row struct {
	Kind          RowKind
	Group         string
	Account       string
	Party         string
	Date          string
	ReferenceType ledger.ReferenceType
	ReferenceName string
	Description   string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Balance       decimal.Decimal
	Reverted      bool
}

// RowOptions controls grouping and ordering.
type RowOptions struct {
	GroupBy    GroupBy
	Descending bool
}

func groupKey(e ledger.Entry, by GroupBy) string {
	switch by {
	case GroupByAccount:
		return e.Account
	case GroupByParty:
		return e.Party
	case GroupByReference:
		return e.ReferenceName
	default:
		return ""
	}
}

// BuildRows stable-partitions entries into groups, computes a running
// balance per group (bal += debit - credit), and appends a synthetic Total
// row per group plus one Closing row for the whole report. Entries are
// assumed ordered by (date, insertion); Descending flips the order within
// each group.
func BuildRows(entries []ledger.Entry, opts RowOptions) []Row {
	groups := make(map[string][]ledger.Entry)
	var order []string
	for _, e := range entries {
		key := groupKey(e, opts.GroupBy)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}

	var rows []Row
	grandDebit, grandCredit := decimal.Zero, decimal.Zero
	for _, key := range order {
		group := groups[key]
		if opts.Descending {
			reversed := make([]ledger.Entry, len(group))
			for i, e := range group {
				reversed[len(group)-1-i] = e
			}
			group = reversed
		}
		balance := decimal.Zero
		totalDebit, totalCredit := decimal.Zero, decimal.Zero
		for _, e := range group {
			balance = balance.Add(e.Debit).Sub(e.Credit)
			totalDebit = totalDebit.Add(e.Debit)
			totalCredit = totalCredit.Add(e.Credit)
			rows = append(rows, Row{
				Kind:          RowKindEntry,
				Group:         key,
				Account:       e.Account,
				Party:         e.Party,
				Date:          e.Date.Format("2006-01-02"),
				ReferenceType: e.ReferenceType,
				ReferenceName: e.ReferenceName,
				Description:   e.Description,
				Debit:         e.Debit,
				Credit:        e.Credit,
				Balance:       balance,
				Reverted:      e.Reverted,
			})
		}
		if opts.GroupBy != GroupByNone && opts.GroupBy != "" {
			rows = append(rows, Row{
				Kind:    RowKindTotal,
				Group:   key,
				Account: key,
				Debit:   totalDebit,
				Credit:  totalCredit,
				Balance: totalDebit.Sub(totalCredit),
			})
		}
		grandDebit = grandDebit.Add(totalDebit)
		grandCredit = grandCredit.Add(totalCredit)
	}
	rows = append(rows, Row{
		Kind:    RowKindClosing,
		Account: "Closing",
		Debit:   grandDebit,
		Credit:  grandCredit,
		Balance: grandDebit.Sub(grandCredit),
	})
	return rows
}

// SortEntries orders entries by (date, creation) ascending, the baseline
// ordering BuildRows expects.
func SortEntries(entries []ledger.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}

// BucketContributions accumulates each entry's signed period contribution
// (debit - credit, flipped for credit-normal root types) onto the account's
// tree node. Entries on accounts missing from the tree are skipped; the
// report renders without them rather than aborting.
func BucketContributions(t *AccountTree, entries []ledger.Entry, key func(ledger.Entry) string) {
	for _, e := range entries {
		n, ok := t.Nodes[e.Account]
		if !ok {
			continue
		}
		v := e.Debit.Sub(e.Credit)
		if !n.EffectiveRoot.DebitNormal() {
			v = v.Neg()
		}
		t.AddValue(e.Account, key(e), v)
	}
}
