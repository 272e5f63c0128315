package reports

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quillbooks/quillbooks/internal/ledger"
)

// TrialBalanceRow summarises one account's movement over the window.
type TrialBalanceRow struct {
	Account  string
	RootType ledger.RootType
	Opening  decimal.Decimal
	Debit    decimal.Decimal
	Credit   decimal.Decimal
	Closing  decimal.Decimal
}

// TrialBalance is the flat per-account debit/credit summary.
type TrialBalance struct {
	Rows        []TrialBalanceRow
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

// TrialBalanceRequest bounds the report window.
type TrialBalanceRequest struct {
	From time.Time
	To   time.Time
}

// TrialBalanceReport computes opening, in-window movement and closing per
// account. Group accounts carry no direct postings and are omitted.
func (s *Service) TrialBalanceReport(ctx context.Context, req TrialBalanceRequest) (TrialBalance, error) {
	var report TrialBalance
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx ledger.TxRepository) error {
		accounts, err := tx.ListAccounts(ctx)
		if err != nil {
			return err
		}
		entries, err := tx.ListEntries(ctx, ledger.EntryFilter{To: req.To})
		if err != nil {
			return err
		}
		rootTypes := make(map[string]ledger.RootType, len(accounts))
		for _, a := range accounts {
			rootTypes[a.Name] = a.RootType
		}
		type movement struct {
			opening, debit, credit decimal.Decimal
		}
		byAccount := make(map[string]*movement)
		for _, e := range entries {
			m, ok := byAccount[e.Account]
			if !ok {
				m = &movement{}
				byAccount[e.Account] = m
			}
			if e.Date.Before(req.From) {
				m.opening = m.opening.Add(e.Debit).Sub(e.Credit)
				continue
			}
			m.debit = m.debit.Add(e.Debit)
			m.credit = m.credit.Add(e.Credit)
		}
		names := make([]string, 0, len(byAccount))
		for name := range byAccount {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			m := byAccount[name]
			report.Rows = append(report.Rows, TrialBalanceRow{
				Account:  name,
				RootType: rootTypes[name],
				Opening:  m.opening,
				Debit:    m.debit,
				Credit:   m.credit,
				Closing:  m.opening.Add(m.debit).Sub(m.credit),
			})
			report.TotalDebit = report.TotalDebit.Add(m.debit)
			report.TotalCredit = report.TotalCredit.Add(m.credit)
		}
		return nil
	})
	return report, err
}
