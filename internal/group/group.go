package group

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Group is an expense-sharing unit. Version increases on every budget write
// and guards concurrent edits.
type Group struct {
	ID          uuid.UUID
	Name        string
	Color       string
	Budget      *decimal.Decimal
	OwnerID     string
	MemberIDs   []string
	Permissions map[string]string
	TrackerID   uuid.UUID
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// HasMember reports whether userID owns or belongs to the group.
func (g *Group) HasMember(userID string) bool {
	return g.OwnerID == userID || slices.Contains(g.MemberIDs, userID)
}

// Tracker is the ledger of a group. Its id lists index what a cascade
// delete must remove.
type Tracker struct {
	ID             uuid.UUID
	GroupID        uuid.UUID
	CategoryIDs    []string
	TransactionIDs []string
}

type Category struct {
	ID        string
	TrackerID uuid.UUID
	Name      string
	Color     string
}

// Wallet lists groups without owning them.
type Wallet struct {
	ID        uuid.UUID
	Name      string
	OwnerID   string
	MemberIDs []string
	GroupIDs  []uuid.UUID
	CreatedAt time.Time
}

func (w *Wallet) HasMember(userID string) bool {
	return w.OwnerID == userID || slices.Contains(w.MemberIDs, userID)
}
