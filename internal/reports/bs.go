package reports

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/quillbooks/quillbooks/internal/fiscal"
	"github.com/quillbooks/quillbooks/internal/ledger"
)

// BalanceSheet reports asset, liability and equity positions. Column values
// are closing balances at each period end, so history before the requested
// window folds into the first column and later columns accumulate.
func (s *Service) BalanceSheet(ctx context.Context, req StatementRequest) (Statement, error) {
	cols := fiscal.Columns(req.From, req.To, req.Periodicity, s.fy)
	if len(cols) == 0 {
		return Statement{}, errors.New("reports: empty date range")
	}
	keys := columnKeys(cols)

	var statement Statement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx ledger.TxRepository) error {
		accounts, err := tx.ListAccounts(ctx)
		if err != nil {
			return err
		}
		entries, err := tx.ListEntries(ctx, ledger.EntryFilter{To: req.To})
		if err != nil {
			return err
		}
		tree, err := BuildTree(accounts, false)
		if err != nil {
			return err
		}
		opening := cols[0]
		BucketContributions(tree, entries, func(e ledger.Entry) string {
			if e.Date.Before(opening.Range.From) {
				return opening.Key
			}
			return fiscal.PeriodKey(e.Date, req.Periodicity, s.fy)
		})
		tree.Aggregate()
		cumulate(tree, keys)
		roots := tree.Pruned(ledger.RootTypeAsset, ledger.RootTypeLiability, ledger.RootTypeEquity)

		assets := flattenSection("Assets", sectionFor(roots, ledger.RootTypeAsset), keys)
		liabilities := flattenSection("Liabilities", sectionFor(roots, ledger.RootTypeLiability), keys)
		equity := flattenSection("Equity", sectionFor(roots, ledger.RootTypeEquity), keys)
		statement = Statement{
			Columns:  cols,
			Sections: []StatementSection{assets, liabilities, equity},
		}
		return nil
	})
	return statement, err
}

// cumulate converts per-period values into running closing balances over the
// ordered column keys.
func cumulate(t *AccountTree, keys []string) {
	for _, n := range t.Nodes {
		running := decimal.Zero
		for _, key := range keys {
			running = running.Add(n.Values[key])
			n.Values[key] = running
		}
	}
}
