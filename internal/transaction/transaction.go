package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type represents the type of transaction (income or expense).
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

func (t Type) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Uncategorized is the virtual category every transaction without one falls
// into. It is never stored as a category row.
const Uncategorized = "uncategorized"

// Transaction is a single ledger entry. Amount is signed: expenses are
// negative, incomes positive.
type Transaction struct {
	ID          uuid.UUID
	TrackerID   uuid.UUID
	Amount      decimal.Decimal
	Type        Type
	Time        time.Time
	CategoryID  string
	Name        string
	Description string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

func (t *Transaction) CategoryKey() string {
	return t.CategoryID
}

// Signed returns amount with the sign implied by typ.
func Signed(amount decimal.Decimal, typ Type) decimal.Decimal {
	if typ == TypeExpense {
		return amount.Abs().Neg()
	}

	return amount.Abs()
}
