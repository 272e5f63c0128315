package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RoundOffAllowance caps the imbalance a round-off entry may absorb. Larger
// differences are left for Validate to reject.
var RoundOffAllowance = decimal.NewFromFloat(0.5)

// Poster accumulates the debit and credit sides of one business transaction
// before it is committed as a balanced set of ledger entries.
type Poster struct {
	date        time.Time
	refType     ReferenceType
	refName     string
	party       string
	description string
	roundOff    string
	order       []string
	sides       map[string]*side
}

type side struct {
	debit  decimal.Decimal
	credit decimal.Decimal
}

// NewPoster starts a posting for the given business document.
func NewPoster(date time.Time, refType ReferenceType, refName string) *Poster {
	return &Poster{
		date:    date,
		refType: refType,
		refName: refName,
		sides:   make(map[string]*side),
	}
}

// WithParty tags every entry of the posting with a party reference.
func (p *Poster) WithParty(party string) *Poster {
	p.party = party
	return p
}

// WithDescription sets the narration carried on every entry.
func (p *Poster) WithDescription(desc string) *Poster {
	p.description = desc
	return p
}

// WithRoundOffAccount configures the account absorbing rounding differences.
func (p *Poster) WithRoundOffAccount(account string) *Poster {
	p.roundOff = account
	return p
}

func (p *Poster) sideFor(account string) *side {
	s, ok := p.sides[account]
	if !ok {
		s = &side{}
		p.sides[account] = s
		p.order = append(p.order, account)
	}
	return s
}

// Debit adds amount to the debit side of the account. Repeated calls for the
// same account accumulate into one entry rather than emitting duplicates.
func (p *Poster) Debit(account string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: debit %s on %s", ErrNegativeAmount, amount, account)
	}
	s := p.sideFor(account)
	s.debit = s.debit.Add(amount)
	return nil
}

// Credit adds amount to the credit side of the account.
func (p *Poster) Credit(account string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: credit %s on %s", ErrNegativeAmount, amount, account)
	}
	s := p.sideFor(account)
	s.credit = s.credit.Add(amount)
	return nil
}

// TotalDebit sums the debit side across all accounts.
func (p *Poster) TotalDebit() decimal.Decimal {
	total := decimal.Zero
	for _, s := range p.sides {
		total = total.Add(s.debit)
	}
	return total
}

// TotalCredit sums the credit side across all accounts.
func (p *Poster) TotalCredit() decimal.Decimal {
	total := decimal.Zero
	for _, s := range p.sides {
		total = total.Add(s.credit)
	}
	return total
}

// Validate enforces the balance invariant: total debit equals total credit
// exactly, over at least two sides.
func (p *Poster) Validate() error {
	if len(p.order) < 2 {
		return ErrTooFewEntries
	}
	debit, credit := p.TotalDebit(), p.TotalCredit()
	if !debit.Equal(credit) {
		return fmt.Errorf("%w: debit %s != credit %s (%s %s)",
			ErrUnbalanced, debit, credit, p.refType, p.refName)
	}
	return nil
}

// MakeRoundOffEntry absorbs a sub-allowance imbalance into a single entry on
// the configured round-off account: a debit when the book is credit-heavy,
// a credit otherwise. A zero difference is a no-op; a difference above the
// allowance is left untouched so Validate rejects the posting.
func (p *Poster) MakeRoundOffEntry() error {
	diff := p.TotalDebit().Sub(p.TotalCredit())
	if diff.IsZero() || diff.Abs().GreaterThan(RoundOffAllowance) {
		return nil
	}
	if p.roundOff == "" {
		return fmt.Errorf("ledger: round-off account not configured (%s %s)", p.refType, p.refName)
	}
	if diff.IsNegative() {
		return p.Debit(p.roundOff, diff.Abs())
	}
	return p.Credit(p.roundOff, diff)
}

// Entries materialises the accumulated sides into ledger entries, in the
// order accounts were first touched.
func (p *Poster) Entries() []Entry {
	out := make([]Entry, 0, len(p.order))
	for _, account := range p.order {
		s := p.sides[account]
		out = append(out, Entry{
			ID:            uuid.New(),
			Account:       account,
			Party:         p.party,
			Date:          p.date,
			ReferenceType: p.refType,
			ReferenceName: p.refName,
			Description:   p.description,
			Debit:         s.debit,
			Credit:        s.credit,
		})
	}
	return out
}
