package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/splitbook/internal/query"
	"github.com/MrJamesThe3rd/splitbook/internal/transaction"
)

var columns = map[string]string{
	query.FieldType:     "t.type",
	query.FieldCategory: "t.category_id",
	query.FieldTime:     "t.occurred_at",
	query.FieldAmount:   "t.amount",
}

// compile turns a plan into a SELECT over one tracker. Constraints are
// arranged first so the statement always follows equality, range, order.
func compile(trackerID uuid.UUID, plan query.Plan) (string, []any, error) {
	arranged, err := query.Arrange(plan.Constraints)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder

	sb.WriteString(`SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.tracker_id = $1`)

	args := []any{trackerID}
	orderBy := "t.occurred_at DESC"

	for _, c := range arranged {
		col, ok := columns[c.Field]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown field %q", query.ErrInfeasible, c.Field)
		}

		switch c.Kind {
		case query.KindEquality:
			args = append(args, c.Value)
			fmt.Fprintf(&sb, " AND %s = $%d", col, len(args))
		case query.KindMembership:
			args = append(args, c.Value)
			fmt.Fprintf(&sb, " AND %s = ANY($%d)", col, len(args))
		case query.KindRange:
			op := ">="
			if c.Op == query.OpLte {
				op = "<="
			}

			args = append(args, c.Value)
			fmt.Fprintf(&sb, " AND %s %s $%d", col, op, len(args))
		case query.KindOrder:
			if c.Op == query.OpDescAbs {
				orderBy = "ABS(" + col + ") DESC"
			} else {
				orderBy = col + " DESC"
			}
		}
	}

	sb.WriteString(" ORDER BY " + orderBy + ", t.created_at DESC")

	if limit := plan.ServerLimit(); limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	return sb.String(), args, nil
}

// Read runs plan against one tracker. The post filter is left to the caller.
func (s *Store) Read(ctx context.Context, trackerID uuid.UUID, plan query.Plan) ([]*transaction.Transaction, error) {
	q, args, err := compile(trackerID, plan)
	if err != nil {
		return nil, fmt.Errorf("compiling plan: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("reading transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}

	return txs, nil
}
