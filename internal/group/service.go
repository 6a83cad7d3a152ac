package group

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxCategoryName = 20

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=group
type Repository interface {
	// CreateGroup stores g together with a new empty tracker.
	CreateGroup(ctx context.Context, g *Group) error
	GetGroup(ctx context.Context, id uuid.UUID) (*Group, error)
	GetGroups(ctx context.Context, ids []uuid.UUID) ([]*Group, error)
	ListGroups(ctx context.Context, userID string) ([]*Group, error)
	// DeleteGroup removes the group, its tracker and everything it indexes.
	DeleteGroup(ctx context.Context, id uuid.UUID) error
	// UpdateBudget writes budget if the stored version equals version and
	// returns the new version.
	UpdateBudget(ctx context.Context, id uuid.UUID, budget *decimal.Decimal, version int64) (int64, error)

	GetTracker(ctx context.Context, id uuid.UUID) (*Tracker, error)

	CreateCategory(ctx context.Context, c *Category) error
	ListCategories(ctx context.Context, trackerID uuid.UUID) ([]*Category, error)
	// DeleteCategory moves the category's transactions to the uncategorized
	// bucket, then removes it and its tracker backlink.
	DeleteCategory(ctx context.Context, trackerID uuid.UUID, id string) error

	CreateWallet(ctx context.Context, w *Wallet) error
	GetWallet(ctx context.Context, id uuid.UUID) (*Wallet, error)
	AddGroupToWallet(ctx context.Context, walletID, groupID uuid.UUID) error
	ListWallets(ctx context.Context, userID string) ([]*Wallet, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	Name      string
	Color     string
	Budget    *decimal.Decimal
	OwnerID   string
	MemberIDs []string
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Group, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name is empty", ErrInvalidName)
	}

	if err := validateBudget(params.Budget); err != nil {
		return nil, err
	}

	g := &Group{
		Name:        name,
		Color:       params.Color,
		Budget:      params.Budget,
		OwnerID:     params.OwnerID,
		MemberIDs:   params.MemberIDs,
		Permissions: map[string]string{params.OwnerID: "owner"},
	}

	if err := s.repo.CreateGroup(ctx, g); err != nil {
		return nil, err
	}

	return g, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Group, error) {
	return s.repo.GetGroup(ctx, id)
}

func (s *Service) List(ctx context.Context, userID string) ([]*Group, error) {
	return s.repo.ListGroups(ctx, userID)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteGroup(ctx, id)
}

// SetBudget replaces the group's budget, or clears it when budget is nil.
// version must match the group's current version.
func (s *Service) SetBudget(ctx context.Context, id uuid.UUID, budget *decimal.Decimal, version int64) (*Group, error) {
	if err := validateBudget(budget); err != nil {
		return nil, err
	}

	if _, err := s.repo.UpdateBudget(ctx, id, budget, version); err != nil {
		return nil, err
	}

	return s.repo.GetGroup(ctx, id)
}

func (s *Service) Tracker(ctx context.Context, id uuid.UUID) (*Tracker, error) {
	return s.repo.GetTracker(ctx, id)
}

type CategoryParams struct {
	TrackerID uuid.UUID
	Name      string
	Color     string
}

func (s *Service) CreateCategory(ctx context.Context, params CategoryParams) (*Category, error) {
	name := strings.TrimSpace(params.Name)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxCategoryName {
		return nil, fmt.Errorf("%w: category name must be 1 to %d characters", ErrInvalidName, maxCategoryName)
	}

	c := &Category{
		ID:        uuid.NewString(),
		TrackerID: params.TrackerID,
		Name:      name,
		Color:     params.Color,
	}

	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) ListCategories(ctx context.Context, trackerID uuid.UUID) ([]*Category, error) {
	return s.repo.ListCategories(ctx, trackerID)
}

func (s *Service) DeleteCategory(ctx context.Context, trackerID uuid.UUID, id string) error {
	return s.repo.DeleteCategory(ctx, trackerID, id)
}

type WalletParams struct {
	Name      string
	OwnerID   string
	MemberIDs []string
}

func (s *Service) CreateWallet(ctx context.Context, params WalletParams) (*Wallet, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: wallet name is empty", ErrInvalidName)
	}

	w := &Wallet{Name: name, OwnerID: params.OwnerID, MemberIDs: params.MemberIDs}
	if err := s.repo.CreateWallet(ctx, w); err != nil {
		return nil, err
	}

	return w, nil
}

func (s *Service) GetWallet(ctx context.Context, id uuid.UUID) (*Wallet, error) {
	return s.repo.GetWallet(ctx, id)
}

// WalletGroups returns the wallet's groups in the wallet's order.
func (s *Service) WalletGroups(ctx context.Context, w *Wallet) ([]*Group, error) {
	if len(w.GroupIDs) == 0 {
		return nil, nil
	}

	groups, err := s.repo.GetGroups(ctx, w.GroupIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*Group, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}

	out := make([]*Group, 0, len(w.GroupIDs))

	for _, id := range w.GroupIDs {
		if g, ok := byID[id]; ok {
			out = append(out, g)
		}
	}

	return out, nil
}

func (s *Service) AddGroupToWallet(ctx context.Context, walletID, groupID uuid.UUID) error {
	if _, err := s.repo.GetGroup(ctx, groupID); err != nil {
		return err
	}

	return s.repo.AddGroupToWallet(ctx, walletID, groupID)
}

func (s *Service) ListWallets(ctx context.Context, userID string) ([]*Wallet, error) {
	return s.repo.ListWallets(ctx, userID)
}

func validateBudget(b *decimal.Decimal) error {
	if b != nil && !b.IsPositive() {
		return ErrInvalidBudget
	}

	return nil
}
