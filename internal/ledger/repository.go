package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryFilter narrows entry queries. Zero values mean "any"; From/To bound
// the entry date inclusively on both sides.
type EntryFilter struct {
	Account         string
	Party           string
	ReferenceType   ReferenceType
	ReferenceName   string
	From            time.Time
	To              time.Time
	IncludeReverted bool
}

// Matches reports whether an entry passes the filter.
func (f EntryFilter) Matches(e Entry) bool {
	if f.Account != "" && e.Account != f.Account {
		return false
	}
	if f.Party != "" && e.Party != f.Party {
		return false
	}
	if f.ReferenceType != "" && e.ReferenceType != f.ReferenceType {
		return false
	}
	if f.ReferenceName != "" && e.ReferenceName != f.ReferenceName {
		return false
	}
	if !f.From.IsZero() && e.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(f.To) {
		return false
	}
	if !f.IncludeReverted && e.Reverted {
		return false
	}
	return true
}

// TxRepository exposes the persistence operations available inside one
// transaction.
type TxRepository interface {
	GetAccount(ctx context.Context, name string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	InsertAccount(ctx context.Context, a Account) error
	AddToBalance(ctx context.Context, name string, delta decimal.Decimal) error
	InsertEntries(ctx context.Context, entries []Entry) error
	ListEntries(ctx context.Context, f EntryFilter) ([]Entry, error)
	MarkReverted(ctx context.Context, ids []uuid.UUID) error
	ListPaymentFor(ctx context.Context, paymentName string) ([]PaymentFor, error)
	InsertPaymentFor(ctx context.Context, rows []PaymentFor) error
}

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}
