// Package ledger implements double-entry posting against a chart of accounts.
package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RootType enumerates top-level chart of accounts categories.
type RootType string

const (
	RootTypeAsset     RootType = "Asset"
	RootTypeLiability RootType = "Liability"
	RootTypeEquity    RootType = "Equity"
	RootTypeIncome    RootType = "Income"
	RootTypeExpense   RootType = "Expense"
)

// DebitNormal reports whether a debit increases the account balance.
// Asset and Expense accounts are debit-normal; the rest are credit-normal.
func (t RootType) DebitNormal() bool {
	return t == RootTypeAsset || t == RootTypeExpense
}

// AccountType refines a root type for accounts with special behaviour.
type AccountType string

const (
	AccountTypeNone       AccountType = ""
	AccountTypeReceivable AccountType = "Receivable"
	AccountTypePayable    AccountType = "Payable"
	AccountTypeBank       AccountType = "Bank"
	AccountTypeCash       AccountType = "Cash"
	AccountTypeStock      AccountType = "Stock"
	AccountTypeTax        AccountType = "Tax"
	AccountTypeRoundOff   AccountType = "Round Off"
)

// IsCash reports whether postings on the account move cash.
func (t AccountType) IsCash() bool {
	return t == AccountTypeBank || t == AccountTypeCash
}

// ReferenceType identifies the business document behind a posting.
type ReferenceType string

const (
	RefTypeSalesInvoice    ReferenceType = "SalesInvoice"
	RefTypePurchaseInvoice ReferenceType = "PurchaseInvoice"
	RefTypePayment         ReferenceType = "Payment"
	RefTypeJournalEntry    ReferenceType = "JournalEntry"
)

// IsInvoice reports whether the reference is a sales or purchase invoice.
func (t ReferenceType) IsInvoice() bool {
	return t == RefTypeSalesInvoice || t == RefTypePurchaseInvoice
}

// Account models a chart of accounts node. Name is the unique key; Balance
// follows the debit-normal or credit-normal convention of the root type.
type Account struct {
	Name          string
	RootType      RootType
	AccountType   AccountType
	IsGroup       bool
	ParentAccount *string
	Balance       decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Entry is one side of a posting. Entries are append-only: a reversal
// inserts a mirrored entry and flips Reverted, nothing is ever rewritten.
type Entry struct {
	ID            uuid.UUID
	Account       string
	Party         string
	Date          time.Time
	ReferenceType ReferenceType
	ReferenceName string
	Description   string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Reverted      bool
	Reverts       *uuid.UUID
	CreatedAt     time.Time
}

// Signed returns the entry's contribution to its account balance given the
// account's root type.
func (e Entry) Signed(root RootType) decimal.Decimal {
	v := e.Debit.Sub(e.Credit)
	if root.DebitNormal() {
		return v
	}
	return v.Neg()
}

// PaymentFor links a payment to one invoice it settles. A payment may clear
// several invoices and an invoice may be cleared by several payments.
type PaymentFor struct {
	PaymentName string
	InvoiceName string
	Amount      decimal.Decimal
}

var (
	// ErrUnbalanced indicates total debit != total credit at posting time.
	ErrUnbalanced = errors.New("ledger: entries must balance")
	// ErrTooFewEntries indicates a posting with fewer than two sides.
	ErrTooFewEntries = errors.New("ledger: posting requires at least two entries")
	// ErrNegativeAmount indicates a negative debit or credit amount.
	ErrNegativeAmount = errors.New("ledger: amount must not be negative")
	// ErrAccountNotFound indicates a missing chart of accounts entry.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrEntryNotFound indicates no ledger entries for the reference.
	ErrEntryNotFound = errors.New("ledger: entries not found")
	// ErrDuplicateAccount indicates an account name collision.
	ErrDuplicateAccount = errors.New("ledger: account already exists")
	// ErrNothingToReverse indicates the reference has no live entries.
	ErrNothingToReverse = errors.New("ledger: no entries to reverse")
)
