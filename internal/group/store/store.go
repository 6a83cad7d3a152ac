package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/splitbook/internal/group"
	"github.com/MrJamesThe3rd/splitbook/internal/transaction"
)

type Store struct {
	db    *sql.DB
	types *pgtype.Map
}

func New(db *sql.DB) *Store {
	return &Store{db: db, types: pgtype.NewMap()}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectGroupColumns = `
	g.id, g.name, g.color, g.budget, g.owner_id, g.member_ids, g.permissions, tr.id,
	g.version, g.created_at, g.updated_at
`

// scanGroup expects selectGroupColumns order.
func (s *Store) scanGroup(sc scanner) (*group.Group, error) {
	var (
		g           group.Group
		budget      decimal.NullDecimal
		permissions []byte
	)

	if err := sc.Scan(
		&g.ID, &g.Name, &g.Color, &budget, &g.OwnerID, s.types.SQLScanner(&g.MemberIDs), &permissions, &g.TrackerID,
		&g.Version, &g.CreatedAt, &g.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if budget.Valid {
		g.Budget = &budget.Decimal
	}

	if err := json.Unmarshal(permissions, &g.Permissions); err != nil {
		return nil, fmt.Errorf("decoding permissions: %w", err)
	}

	return &g, nil
}

func nullBudget(b *decimal.Decimal) decimal.NullDecimal {
	if b == nil {
		return decimal.NullDecimal{}
	}

	return decimal.NewNullDecimal(*b)
}

// CreateGroup inserts the group and its tracker in one database transaction.
func (s *Store) CreateGroup(ctx context.Context, g *group.Group) error {
	permissions, err := json.Marshal(g.Permissions)
	if err != nil {
		return fmt.Errorf("encoding permissions: %w", err)
	}

	if g.MemberIDs == nil {
		g.MemberIDs = []string{}
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		INSERT INTO groups (name, color, budget, owner_id, member_ids, permissions, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, NOW())
		RETURNING id, version, created_at
	`

	err = dbTx.QueryRowContext(ctx, query,
		g.Name,
		g.Color,
		nullBudget(g.Budget),
		g.OwnerID,
		g.MemberIDs,
		permissions,
	).Scan(&g.ID, &g.Version, &g.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating group: %w", err)
	}

	if err := dbTx.QueryRowContext(ctx,
		`INSERT INTO trackers (group_id) VALUES ($1) RETURNING id`, g.ID,
	).Scan(&g.TrackerID); err != nil {
		return fmt.Errorf("creating tracker: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) GetGroup(ctx context.Context, id uuid.UUID) (*group.Group, error) {
	query := `SELECT ` + selectGroupColumns + `
		FROM groups g
		JOIN trackers tr ON tr.group_id = g.id
		WHERE g.id = $1`

	g, err := s.scanGroup(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, group.ErrNotFound
		}

		return nil, fmt.Errorf("getting group: %w", err)
	}

	return g, nil
}

func (s *Store) GetGroups(ctx context.Context, ids []uuid.UUID) ([]*group.Group, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	query := `SELECT ` + selectGroupColumns + `
		FROM groups g
		JOIN trackers tr ON tr.group_id = g.id
		WHERE g.id = ANY($1::uuid[])`

	return s.queryGroups(ctx, query, keys)
}

func (s *Store) ListGroups(ctx context.Context, userID string) ([]*group.Group, error) {
	query := `SELECT ` + selectGroupColumns + `
		FROM groups g
		JOIN trackers tr ON tr.group_id = g.id
		WHERE g.owner_id = $1 OR $1 = ANY(g.member_ids)
		ORDER BY g.created_at ASC`

	return s.queryGroups(ctx, query, userID)
}

func (s *Store) queryGroups(ctx context.Context, query string, args ...any) ([]*group.Group, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	defer rows.Close()

	var groups []*group.Group

	for rows.Next() {
		g, err := s.scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}

		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating group rows: %w", err)
	}

	return groups, nil
}

// DeleteGroup removes what the tracker indexes, the tracker, and the group.
func (s *Store) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	var (
		trackerID      uuid.UUID
		categoryIDs    []string
		transactionIDs []string
	)

	err = dbTx.QueryRowContext(ctx,
		`SELECT id, category_ids, transaction_ids FROM trackers WHERE group_id = $1 FOR UPDATE`, id,
	).Scan(&trackerID, s.types.SQLScanner(&categoryIDs), s.types.SQLScanner(&transactionIDs))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return group.ErrNotFound
		}

		return fmt.Errorf("loading tracker: %w", err)
	}

	steps := []struct {
		what  string
		query string
		args  []any
	}{
		{"transactions", `DELETE FROM transactions WHERE tracker_id = $1 OR id::text = ANY($2)`, []any{trackerID, transactionIDs}},
		{"categories", `DELETE FROM categories WHERE tracker_id = $1 OR id = ANY($2)`, []any{trackerID, categoryIDs}},
		{"wallet links", `DELETE FROM wallet_groups WHERE group_id = $1`, []any{id}},
		{"tracker", `DELETE FROM trackers WHERE id = $1`, []any{trackerID}},
		{"group", `DELETE FROM groups WHERE id = $1`, []any{id}},
	}

	for _, step := range steps {
		if _, err := dbTx.ExecContext(ctx, step.query, step.args...); err != nil {
			return fmt.Errorf("deleting %s: %w", step.what, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) UpdateBudget(ctx context.Context, id uuid.UUID, budget *decimal.Decimal, version int64) (int64, error) {
	query := `
		UPDATE groups
		SET budget = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING version
	`

	var next int64

	err := s.db.QueryRowContext(ctx, query, nullBudget(budget), id, version).Scan(&next)
	if err == nil {
		return next, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("updating budget: %w", err)
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM groups WHERE id = $1)`, id).Scan(&exists); err != nil {
		return 0, fmt.Errorf("checking group: %w", err)
	}

	if !exists {
		return 0, group.ErrNotFound
	}

	return 0, group.ErrConflict
}

func (s *Store) GetTracker(ctx context.Context, id uuid.UUID) (*group.Tracker, error) {
	var t group.Tracker

	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, category_ids, transaction_ids FROM trackers WHERE id = $1`, id,
	).Scan(&t.ID, &t.GroupID, s.types.SQLScanner(&t.CategoryIDs), s.types.SQLScanner(&t.TransactionIDs))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrTrackerNotFound
		}

		return nil, fmt.Errorf("getting tracker: %w", err)
	}

	return &t, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *group.Category) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx,
		`UPDATE trackers SET category_ids = array_append(category_ids, $1) WHERE id = $2`,
		c.ID, c.TrackerID,
	)
	if err != nil {
		return fmt.Errorf("indexing category: %w", err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("indexing category: %w", err)
	} else if n == 0 {
		return transaction.ErrTrackerNotFound
	}

	if _, err := dbTx.ExecContext(ctx,
		`INSERT INTO categories (id, tracker_id, name, color) VALUES ($1, $2, $3, $4)`,
		c.ID, c.TrackerID, c.Name, c.Color,
	); err != nil {
		return fmt.Errorf("creating category: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) ListCategories(ctx context.Context, trackerID uuid.UUID) ([]*group.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tracker_id, name, color FROM categories WHERE tracker_id = $1 ORDER BY name ASC`, trackerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []*group.Category

	for rows.Next() {
		var c group.Category
		if err := rows.Scan(&c.ID, &c.TrackerID, &c.Name, &c.Color); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}

		categories = append(categories, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category rows: %w", err)
	}

	return categories, nil
}

// DeleteCategory reassigns, deletes and unlinks in one database transaction,
// so no transaction is ever left pointing at a missing category.
func (s *Store) DeleteCategory(ctx context.Context, trackerID uuid.UUID, id string) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx,
		`UPDATE transactions SET category_id = $1, updated_at = NOW() WHERE tracker_id = $2 AND category_id = $3`,
		transaction.Uncategorized, trackerID, id,
	); err != nil {
		return fmt.Errorf("reassigning transactions: %w", err)
	}

	res, err := dbTx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1 AND tracker_id = $2`, id, trackerID)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("deleting category: %w", err)
	} else if n == 0 {
		return group.ErrCategoryNotFound
	}

	if _, err := dbTx.ExecContext(ctx,
		`UPDATE trackers SET category_ids = array_remove(category_ids, $1) WHERE id = $2`, id, trackerID,
	); err != nil {
		return fmt.Errorf("unindexing category: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) CreateWallet(ctx context.Context, w *group.Wallet) error {
	if w.MemberIDs == nil {
		w.MemberIDs = []string{}
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO wallets (name, owner_id, member_ids, created_at) VALUES ($1, $2, $3, NOW()) RETURNING id, created_at`,
		w.Name, w.OwnerID, w.MemberIDs,
	).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating wallet: %w", err)
	}

	return nil
}

func (s *Store) GetWallet(ctx context.Context, id uuid.UUID) (*group.Wallet, error) {
	var w group.Wallet

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, member_ids, created_at FROM wallets WHERE id = $1`, id,
	).Scan(&w.ID, &w.Name, &w.OwnerID, s.types.SQLScanner(&w.MemberIDs), &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, group.ErrWalletNotFound
		}

		return nil, fmt.Errorf("getting wallet: %w", err)
	}

	ids, err := s.walletGroupIDs(ctx, w.ID)
	if err != nil {
		return nil, err
	}

	w.GroupIDs = ids

	return &w, nil
}

func (s *Store) walletGroupIDs(ctx context.Context, walletID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id FROM wallet_groups WHERE wallet_id = $1 ORDER BY position ASC`, walletID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing wallet groups: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning wallet group: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating wallet group rows: %w", err)
	}

	return ids, nil
}

func (s *Store) AddGroupToWallet(ctx context.Context, walletID, groupID uuid.UUID) error {
	query := `
		INSERT INTO wallet_groups (wallet_id, group_id, position)
		SELECT w.id, $2, COALESCE((SELECT MAX(position) + 1 FROM wallet_groups WHERE wallet_id = w.id), 0)
		FROM wallets w
		WHERE w.id = $1
		ON CONFLICT (wallet_id, group_id) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, query, walletID, groupID); err != nil {
		return fmt.Errorf("adding group to wallet: %w", err)
	}

	if _, err := s.GetWallet(ctx, walletID); err != nil {
		return err
	}

	return nil
}

func (s *Store) ListWallets(ctx context.Context, userID string) ([]*group.Wallet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM wallets WHERE owner_id = $1 OR $1 = ANY(member_ids) ORDER BY created_at ASC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing wallets: %w", err)
	}

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning wallet: %w", err)
		}

		ids = append(ids, id)
	}

	rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating wallet rows: %w", err)
	}

	wallets := make([]*group.Wallet, 0, len(ids))

	for _, id := range ids {
		w, err := s.GetWallet(ctx, id)
		if err != nil {
			return nil, err
		}

		wallets = append(wallets, w)
	}

	return wallets, nil
}
