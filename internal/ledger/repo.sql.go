package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/quillbooks/quillbooks/internal/platform/db"
)

// Repository persists ledger entities in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

const accountColumns = `name, root_type, account_type, is_group, parent_account, balance, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	var balance string
	if err := row.Scan(&a.Name, &a.RootType, &a.AccountType, &a.IsGroup, &a.ParentAccount, &balance, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Account{}, err
	}
	var err error
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return Account{}, fmt.Errorf("ledger: balance %q: %w", balance, err)
	}
	return a, nil
}

func (r *txRepository) GetAccount(ctx context.Context, name string) (Account, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE name=$1`, name)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *txRepository) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *txRepository) InsertAccount(ctx context.Context, a Account) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO accounts (name, root_type, account_type, is_group, parent_account, balance)
VALUES ($1,$2,$3,$4,$5,$6)`, a.Name, a.RootType, a.AccountType, a.IsGroup, a.ParentAccount, a.Balance.String())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateAccount
		}
		return err
	}
	return nil
}

func (r *txRepository) AddToBalance(ctx context.Context, name string, delta decimal.Decimal) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET balance = balance + $2::numeric, updated_at = NOW() WHERE name=$1`, name, delta.String())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

const entryColumns = `id, account, party, date, reference_type, reference_name, description, debit, credit, reverted, reverts, created_at`

func (r *txRepository) InsertEntries(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		if _, err := r.tx.Exec(ctx, `INSERT INTO ledger_entries (id, account, party, date, reference_type, reference_name, description, debit, credit, reverted, reverts)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			e.ID, e.Account, e.Party, e.Date, e.ReferenceType, e.ReferenceName, e.Description,
			e.Debit.String(), e.Credit.String(), e.Reverted, e.Reverts); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) ListEntries(ctx context.Context, f EntryFilter) ([]Entry, error) {
	where := []string{"1=1"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Account != "" {
		where = append(where, "account="+arg(f.Account))
	}
	if f.Party != "" {
		where = append(where, "party="+arg(f.Party))
	}
	if f.ReferenceType != "" {
		where = append(where, "reference_type="+arg(string(f.ReferenceType)))
	}
	if f.ReferenceName != "" {
		where = append(where, "reference_name="+arg(f.ReferenceName))
	}
	if !f.From.IsZero() {
		where = append(where, "date>="+arg(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "date<="+arg(f.To))
	}
	if !f.IncludeReverted {
		where = append(where, "reverted=false")
	}
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE ` + strings.Join(where, " AND ") + ` ORDER BY date ASC, created_at ASC`
	rows, err := r.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows pgx.Rows) (Entry, error) {
	var e Entry
	var debit, credit string
	var reverts *uuid.UUID
	if err := rows.Scan(&e.ID, &e.Account, &e.Party, &e.Date, &e.ReferenceType, &e.ReferenceName, &e.Description, &debit, &credit, &e.Reverted, &reverts, &e.CreatedAt); err != nil {
		return Entry{}, err
	}
	e.Reverts = reverts
	var err error
	if e.Debit, err = decimal.NewFromString(debit); err != nil {
		return Entry{}, fmt.Errorf("ledger: debit %q: %w", debit, err)
	}
	if e.Credit, err = decimal.NewFromString(credit); err != nil {
		return Entry{}, fmt.Errorf("ledger: credit %q: %w", credit, err)
	}
	return e, nil
}

func (r *txRepository) MarkReverted(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		cmd, err := r.tx.Exec(ctx, `UPDATE ledger_entries SET reverted=true WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrEntryNotFound
		}
	}
	return nil
}

func (r *txRepository) ListPaymentFor(ctx context.Context, paymentName string) ([]PaymentFor, error) {
	rows, err := r.tx.Query(ctx, `SELECT payment_name, invoice_name, amount FROM payment_for WHERE payment_name=$1 ORDER BY invoice_name`, paymentName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PaymentFor
	for rows.Next() {
		var pf PaymentFor
		var amount string
		if err := rows.Scan(&pf.PaymentName, &pf.InvoiceName, &amount); err != nil {
			return nil, err
		}
		if pf.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("ledger: allocation %q: %w", amount, err)
		}
		out = append(out, pf)
	}
	return out, rows.Err()
}

func (r *txRepository) InsertPaymentFor(ctx context.Context, rowsIn []PaymentFor) error {
	for _, pf := range rowsIn {
		if _, err := r.tx.Exec(ctx, `INSERT INTO payment_for (payment_name, invoice_name, amount) VALUES ($1,$2,$3)`,
			pf.PaymentName, pf.InvoiceName, pf.Amount.String()); err != nil {
			return err
		}
	}
	return nil
}
