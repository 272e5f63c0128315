package reports

import (
	"context"

	"github.com/quillbooks/quillbooks/internal/fiscal"
	"github.com/quillbooks/quillbooks/internal/ledger"
)

// CashFlow reconstructs the cash movement statement on a cash basis: only
// transactions that touched a bank or cash account count, and their contra
// lines are redistributed onto the real income and expense categories via
// invoice allocation ratios. Receivable and payable subtrees fold into
// Income and Expense so unresolved debtors/creditors still land in an
// operating section instead of vanishing.
func (s *Service) CashFlow(ctx context.Context, req StatementRequest) (Statement, error) {
	cols := fiscal.Columns(req.From, req.To, req.Periodicity, s.fy)
	keys := columnKeys(cols)

	var statement Statement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx ledger.TxRepository) error {
		accounts, err := tx.ListAccounts(ctx)
		if err != nil {
			return err
		}
		entries, err := tx.ListEntries(ctx, ledger.EntryFilter{From: req.From, To: req.To})
		if err != nil {
			return err
		}
		tree, err := BuildTree(accounts, true)
		if err != nil {
			return err
		}
		resolver := NewResolver(tree, txSource{tx: tx}, s.logger)
		resolved, err := resolver.Resolve(ctx, entries)
		if err != nil {
			return err
		}
		BucketContributions(tree, resolved, func(e ledger.Entry) string {
			return fiscal.PeriodKey(e.Date, req.Periodicity, s.fy)
		})
		tree.Aggregate()
		roots := tree.Pruned(ledger.RootTypeIncome, ledger.RootTypeExpense)

		inflow := flattenSection("Inflow", sectionFor(roots, ledger.RootTypeIncome), keys)
		outflow := flattenSection("Outflow", sectionFor(roots, ledger.RootTypeExpense), keys)
		statement = Statement{
			Columns:  cols,
			Sections: []StatementSection{inflow, outflow},
			Net:      netRow("Net Cash Movement", keys, inflow.Totals, outflow.Totals),
		}
		return nil
	})
	return statement, err
}
