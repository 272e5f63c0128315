package reports

import (
	"context"

	"github.com/quillbooks/quillbooks/internal/fiscal"
	"github.com/quillbooks/quillbooks/internal/ledger"
)

// ProfitAndLoss buckets income and expense postings into fiscal periods and
// rolls them up the account tree, closing with the derived net profit row.
func (s *Service) ProfitAndLoss(ctx context.Context, req StatementRequest) (Statement, error) {
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
		tree, err := BuildTree(accounts, false)
		if err != nil {
			return err
		}
		BucketContributions(tree, entries, func(e ledger.Entry) string {
			return fiscal.PeriodKey(e.Date, req.Periodicity, s.fy)
		})
		tree.Aggregate()
		roots := tree.Pruned(ledger.RootTypeIncome, ledger.RootTypeExpense)

		income := flattenSection("Income", sectionFor(roots, ledger.RootTypeIncome), keys)
		expense := flattenSection("Expense", sectionFor(roots, ledger.RootTypeExpense), keys)
		statement = Statement{
			Columns:  cols,
			Sections: []StatementSection{income, expense},
			Net:      netRow("Net Profit", keys, income.Totals, expense.Totals),
		}
		return nil
	})
	return statement, err
}
