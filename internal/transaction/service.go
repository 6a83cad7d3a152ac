package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/splitbook/internal/filter"
	"github.com/MrJamesThe3rd/splitbook/internal/query"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	// CreateTransaction stores tx and appends it to its tracker's index.
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	// DeleteTransaction removes tx and its entry in the tracker's index.
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	// HasCategory reports whether categoryID is in the tracker's category index.
	HasCategory(ctx context.Context, trackerID uuid.UUID, categoryID string) (bool, error)

	// Read returns the rows of a tracker matching plan's constraints. It
	// honours plan.ServerLimit but never applies the post filter.
	Read(ctx context.Context, trackerID uuid.UUID, plan query.Plan) ([]*Transaction, error)
}

type Service struct {
	repo    Repository
	builder *query.Builder
}

func NewService(repo Repository, builder *query.Builder) *Service {
	return &Service{repo: repo, builder: builder}
}

type CreateParams struct {
	TrackerID   uuid.UUID
	Amount      decimal.Decimal
	Type        Type
	Time        time.Time
	CategoryID  string
	Name        string
	Description string
	OwnerID     string
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Transaction, error) {
	tx := &Transaction{
		TrackerID:   params.TrackerID,
		Amount:      params.Amount,
		Type:        params.Type,
		Time:        params.Time,
		CategoryID:  params.CategoryID,
		Name:        params.Name,
		Description: params.Description,
		OwnerID:     params.OwnerID,
	}

	if err := coerce(tx); err != nil {
		return nil, err
	}

	if err := s.checkCategory(ctx, tx); err != nil {
		return nil, err
	}

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

// Update persists an edited transaction, re-deriving the amount's sign from
// its type.
func (s *Service) Update(ctx context.Context, tx *Transaction) error {
	if err := coerce(tx); err != nil {
		return err
	}

	if err := s.checkCategory(ctx, tx); err != nil {
		return err
	}

	return s.repo.UpdateTransaction(ctx, tx)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteTransaction(ctx, id)
}

// List returns the bounded, ordered rows of a tracker selected by f.
func (s *Service) List(ctx context.Context, trackerID uuid.UUID, f filter.Filter, now time.Time) ([]*Transaction, error) {
	plan := s.builder.Build(f, now)

	rows, err := s.repo.Read(ctx, trackerID, plan)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	return query.Apply(plan, rows), nil
}

// checkCategory rejects categories of other trackers and unknown ids so that
// deleting a category can always reassign its transactions.
func (s *Service) checkCategory(ctx context.Context, tx *Transaction) error {
	if tx.CategoryID == Uncategorized {
		return nil
	}

	ok, err := s.repo.HasCategory(ctx, tx.TrackerID, tx.CategoryID)
	if err != nil {
		return fmt.Errorf("checking category: %w", err)
	}

	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, tx.CategoryID)
	}

	return nil
}

func coerce(tx *Transaction) error {
	if !tx.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, tx.Type)
	}

	if tx.Amount.IsZero() {
		return ErrInvalidAmount
	}

	tx.Amount = Signed(tx.Amount, tx.Type)

	if tx.CategoryID == "" {
		tx.CategoryID = Uncategorized
	}

	return nil
}
