package reports

import (
	"context"
	"log/slog"
	"time"

	"github.com/quillbooks/quillbooks/internal/fiscal"
	"github.com/quillbooks/quillbooks/internal/ledger"
)

// Service computes financial statements over the ledger store. Each report
// call runs inside one repository transaction, so every statement sees a
// consistent snapshot; the in-memory trees it builds are discarded after
// rendering, which keeps concurrent report calls independent.
type Service struct {
	repo   ledger.RepositoryPort
	logger *slog.Logger
	fy     fiscal.Year
}

// NewService constructs the reporting service.
func NewService(repo ledger.RepositoryPort, logger *slog.Logger, fy fiscal.Year) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, fy: fy}
}

// FiscalYear exposes the configured fiscal year definition.
func (s *Service) FiscalYear() fiscal.Year {
	return s.fy
}

// StatementRequest bounds a period-bucketed statement.
type StatementRequest struct {
	From        time.Time
	To          time.Time
	Periodicity fiscal.Periodicity
}

// txSource adapts a repository transaction to the resolver's needs so one
// report computation reads a single snapshot.
type txSource struct {
	tx ledger.TxRepository
}

func (s txSource) PaymentAllocations(ctx context.Context, paymentName string) ([]ledger.PaymentFor, error) {
	return s.tx.ListPaymentFor(ctx, paymentName)
}

func (s txSource) ReferenceEntries(ctx context.Context, referenceName string) ([]ledger.Entry, error) {
	return s.tx.ListEntries(ctx, ledger.EntryFilter{ReferenceName: referenceName})
}
