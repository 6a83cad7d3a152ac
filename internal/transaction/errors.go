package transaction

import "errors"

var (
	ErrNotFound        = errors.New("transaction not found")
	ErrTrackerNotFound = errors.New("tracker not found")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidAmount   = errors.New("amount must not be zero")
	ErrInvalidCategory = errors.New("category does not belong to the tracker")
)
