package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quillbooks/quillbooks/internal/shared"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates posting and reversing ledger entries.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Post validates the poster and persists its entries together with the
// account balance deltas inside one transaction. A failure on any write
// rolls the whole posting back.
func (s *Service) Post(ctx context.Context, p *Poster) ([]Entry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	entries := p.Entries()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		accounts := make(map[string]Account, len(entries))
		for _, e := range entries {
			account, err := tx.GetAccount(ctx, e.Account)
			if err != nil {
				return fmt.Errorf("ledger: post %s: %w", e.Account, err)
			}
			accounts[e.Account] = account
		}
		if err := tx.InsertEntries(ctx, entries); err != nil {
			return err
		}
		for _, e := range entries {
			delta := e.Signed(accounts[e.Account].RootType)
			if err := tx.AddToBalance(ctx, e.Account, delta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "ledger.post", string(p.refType), p.refName, map[string]any{
		"entries": len(entries),
		"total":   p.TotalDebit().String(),
	})
	return entries, nil
}

// Reverse cancels every live entry posted under the reference by inserting a
// mirrored set and flipping the reverted flag on both, negating the balance
// deltas. Data is never deleted; the trail stays auditable.
func (s *Service) Reverse(ctx context.Context, referenceName string) ([]Entry, error) {
	if referenceName == "" {
		return nil, errors.New("ledger: reference name required")
	}
	var mirrors []Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		originals, err := tx.ListEntries(ctx, EntryFilter{ReferenceName: referenceName})
		if err != nil {
			return err
		}
		if len(originals) == 0 {
			return ErrNothingToReverse
		}
		now := s.now()
		ids := make([]uuid.UUID, 0, len(originals))
		mirrors = make([]Entry, 0, len(originals))
		for _, o := range originals {
			ids = append(ids, o.ID)
			reverts := o.ID
			mirrors = append(mirrors, Entry{
				ID:            uuid.New(),
				Account:       o.Account,
				Party:         o.Party,
				Date:          now,
				ReferenceType: o.ReferenceType,
				ReferenceName: o.ReferenceName,
				Description:   o.Description,
				Debit:         o.Credit,
				Credit:        o.Debit,
				Reverted:      true,
				Reverts:       &reverts,
			})
		}
		if err := tx.InsertEntries(ctx, mirrors); err != nil {
			return err
		}
		if err := tx.MarkReverted(ctx, ids); err != nil {
			return err
		}
		for _, o := range originals {
			account, err := tx.GetAccount(ctx, o.Account)
			if err != nil {
				return err
			}
			if err := tx.AddToBalance(ctx, o.Account, o.Signed(account.RootType).Neg()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "ledger.reverse", "reference", referenceName, map[string]any{
		"entries": len(mirrors),
	})
	return mirrors, nil
}

// CreateAccount adds a chart of accounts node.
func (s *Service) CreateAccount(ctx context.Context, a Account) error {
	if a.Name == "" {
		return errors.New("ledger: account name required")
	}
	switch a.RootType {
	case RootTypeAsset, RootTypeLiability, RootTypeEquity, RootTypeIncome, RootTypeExpense:
	default:
		return fmt.Errorf("ledger: unknown root type %q", a.RootType)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if a.ParentAccount != nil {
			if _, err := tx.GetAccount(ctx, *a.ParentAccount); err != nil {
				return fmt.Errorf("ledger: parent %s: %w", *a.ParentAccount, err)
			}
		}
		return tx.InsertAccount(ctx, a)
	})
}

// Accounts lists the chart of accounts.
func (s *Service) Accounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		accounts, err = tx.ListAccounts(ctx)
		return err
	})
	return accounts, err
}

// Entries lists ledger entries matching the filter.
func (s *Service) Entries(ctx context.Context, f EntryFilter) ([]Entry, error) {
	var entries []Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entries, err = tx.ListEntries(ctx, f)
		return err
	})
	return entries, err
}

// RecordPaymentFor stores the payment-to-invoice allocation rows produced by
// the payments collaborator.
func (s *Service) RecordPaymentFor(ctx context.Context, rows []PaymentFor) error {
	if len(rows) == 0 {
		return nil
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertPaymentFor(ctx, rows)
	})
}

func (s *Service) record(ctx context.Context, action, entity, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
		At:       s.now(),
	})
}
