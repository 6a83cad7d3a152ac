package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/splitbook/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTransaction reads a transaction row from the scanner and returns a populated Transaction.
// Expected column order: id, tracker_id, amount, type, occurred_at, category_id, name, description,
// owner_id, created_at, updated_at
func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	var typeStr string

	if err := s.Scan(
		&tx.ID, &tx.TrackerID, &tx.Amount, &typeStr, &tx.Time,
		&tx.CategoryID, &tx.Name, &tx.Description, &tx.OwnerID,
		&tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tx.Type = transaction.Type(typeStr)

	return &tx, nil
}

const selectTransactionColumns = `
	t.id, t.tracker_id, t.amount, t.type, t.occurred_at, t.category_id, t.name, t.description,
	t.owner_id, t.created_at, t.updated_at
`

// CreateTransaction inserts tx and appends its id to the tracker's index in a
// single database transaction.
func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		INSERT INTO transactions (tracker_id, amount, type, occurred_at, category_id, name, description, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at
	`

	err = dbTx.QueryRowContext(ctx, query,
		tx.TrackerID,
		tx.Amount,
		tx.Type,
		tx.Time,
		tx.CategoryID,
		tx.Name,
		tx.Description,
		tx.OwnerID,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}

	res, err := dbTx.ExecContext(ctx,
		`UPDATE trackers SET transaction_ids = array_append(transaction_ids, $1) WHERE id = $2`,
		tx.ID.String(), tx.TrackerID,
	)
	if err != nil {
		return fmt.Errorf("indexing transaction: %w", err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("indexing transaction: %w", err)
	} else if n == 0 {
		return transaction.ErrTrackerNotFound
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.id = $1`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) HasCategory(ctx context.Context, trackerID uuid.UUID, categoryID string) (bool, error) {
	var ok bool

	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM trackers WHERE id = $1 AND $2 = ANY(category_ids))`,
		trackerID, categoryID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("checking category: %w", err)
	}

	return ok, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET amount = $1, type = $2, occurred_at = $3, category_id = $4, name = $5, description = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		tx.Amount,
		tx.Type,
		tx.Time,
		tx.CategoryID,
		tx.Name,
		tx.Description,
		tx.ID,
	).Scan(&tx.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transaction.ErrNotFound
		}

		return fmt.Errorf("updating transaction: %w", err)
	}

	return nil
}

// DeleteTransaction hard-deletes the row and drops it from the tracker's index.
func (s *Store) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	var trackerID uuid.UUID

	err = dbTx.QueryRowContext(ctx,
		`DELETE FROM transactions WHERE id = $1 RETURNING tracker_id`, id,
	).Scan(&trackerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transaction.ErrNotFound
		}

		return fmt.Errorf("deleting transaction: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx,
		`UPDATE trackers SET transaction_ids = array_remove(transaction_ids, $1) WHERE id = $2`,
		id.String(), trackerID,
	); err != nil {
		return fmt.Errorf("unindexing transaction: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
