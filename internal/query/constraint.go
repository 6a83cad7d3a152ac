// Package query builds ordered, store-agnostic read plans from filters.
//
// Constraints are always dispatched as: every equality and membership test,
// then range bounds on a single field, then exactly one ordering clause. Stores
// that reject any other order (and those that do not care) both accept this.
package query

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// ErrInfeasible is returned when a constraint list cannot be arranged into
// the equality, range, order precedence.
var ErrInfeasible = errors.New("constraint list is infeasible")

const (
	FieldType     = "type"
	FieldCategory = "category"
	FieldTime     = "time"
	FieldAmount   = "amount"
)

type Kind int

const (
	KindEquality Kind = iota
	KindMembership
	KindRange
	KindOrder
)

func (k Kind) String() string {
	switch k {
	case KindEquality:
		return "equality"
	case KindMembership:
		return "membership"
	case KindRange:
		return "range"
	case KindOrder:
		return "order"
	}

	return "unknown"
}

// rank groups kinds by dispatch precedence. Membership tests are equality
// tests as far as ordering is concerned.
func (k Kind) rank() int {
	switch k {
	case KindEquality, KindMembership:
		return 0
	case KindRange:
		return 1
	}

	return 2
}

type Op string

const (
	OpEq  Op = "=="
	OpIn  Op = "in"
	OpGte Op = ">="
	OpLte Op = "<="
	// OpDesc orders by value, largest first.
	OpDesc Op = "desc"
	// OpDescAbs orders by magnitude, largest first, ignoring sign.
	OpDescAbs Op = "desc_abs"
)

type Constraint struct {
	Kind  Kind
	Field string
	Op    Op
	Value any
}

func (c Constraint) String() string {
	if c.Kind == KindOrder {
		return fmt.Sprintf("order by %s %s", c.Field, c.Op)
	}

	return fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Value)
}

func Equal(field string, value any) Constraint {
	return Constraint{Kind: KindEquality, Field: field, Op: OpEq, Value: value}
}

func In(field string, values []string) Constraint {
	return Constraint{Kind: KindMembership, Field: field, Op: OpIn, Value: values}
}

func AtLeast(field string, value any) Constraint {
	return Constraint{Kind: KindRange, Field: field, Op: OpGte, Value: value}
}

func AtMost(field string, value any) Constraint {
	return Constraint{Kind: KindRange, Field: field, Op: OpLte, Value: value}
}

func OrderBy(field string, op Op) Constraint {
	return Constraint{Kind: KindOrder, Field: field, Op: op}
}

// Arrange returns cs stably reordered into dispatch precedence. It fails when
// there is more than one ordering clause or range bounds span several fields.
func Arrange(cs []Constraint) ([]Constraint, error) {
	out := slices.Clone(cs)
	slices.SortStableFunc(out, func(a, b Constraint) int {
		return cmp.Compare(a.Kind.rank(), b.Kind.rank())
	})

	var (
		orders     int
		rangeField string
	)

	for _, c := range out {
		switch c.Kind {
		case KindOrder:
			orders++
			if orders > 1 {
				return nil, fmt.Errorf("%w: more than one order clause", ErrInfeasible)
			}
		case KindRange:
			if rangeField != "" && rangeField != c.Field {
				return nil, fmt.Errorf("%w: range on %s and %s", ErrInfeasible, rangeField, c.Field)
			}

			rangeField = c.Field
		}
	}

	return out, nil
}
