package group

import "errors"

var (
	ErrNotFound         = errors.New("group not found")
	ErrWalletNotFound   = errors.New("wallet not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrConflict         = errors.New("group was modified concurrently")
	ErrInvalidBudget    = errors.New("budget must be greater than zero")
	ErrInvalidName      = errors.New("invalid name")
)
