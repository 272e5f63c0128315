package reports

import (
	"context"
	"time"

	"github.com/quillbooks/quillbooks/internal/ledger"
)

// GLRequest filters and shapes the general ledger report.
type GLRequest struct {
	Account         string
	Party           string
	ReferenceType   ledger.ReferenceType
	ReferenceName   string
	From            time.Time
	To              time.Time
	GroupBy         GroupBy
	Descending      bool
	IncludeReverted bool
}

// GLReport is the tabular general ledger output.
type GLReport struct {
	Rows []Row
}

// GeneralLedger lists entries matching the request with running balances,
// per-group totals and the closing row.
func (s *Service) GeneralLedger(ctx context.Context, req GLRequest) (GLReport, error) {
	var entries []ledger.Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx ledger.TxRepository) error {
		var err error
		entries, err = tx.ListEntries(ctx, ledger.EntryFilter{
			Account:         req.Account,
			Party:           req.Party,
			ReferenceType:   req.ReferenceType,
			ReferenceName:   req.ReferenceName,
			From:            req.From,
			To:              req.To,
			IncludeReverted: req.IncludeReverted,
		})
		return err
	})
	if err != nil {
		return GLReport{}, err
	}
	SortEntries(entries)
	return GLReport{Rows: BuildRows(entries, RowOptions{GroupBy: req.GroupBy, Descending: req.Descending})}, nil
}
