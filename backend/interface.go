package backend

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Item represents a single entry of a list
type Item struct {
	ID     int64
	ListID int64 // Fixed at creation, items are never re-parented
	Label  string
	Active bool // false once the item has been ticked off
	Star   bool
}

// List represents a named list of items
type List struct {
	ID          int64
	Label       string
	TotalItems  int // Derived: number of items in the list
	ActiveItems int // Derived: number of items with Active set
}

// Store defines the durable storage operations the viewer drives.
// Implementations are called from a single goroutine and need no locking of
// their own beyond what their driver requires.
type Store interface {
	// List operations
	FetchLists(ctx context.Context) ([]List, error)
	CreateList(ctx context.Context, label string) error
	DeleteList(ctx context.Context, listID int64) error
	UpdateListLabel(ctx context.Context, listID int64, label string) error

	// Item operations
	FetchItems(ctx context.Context, listID int64) ([]Item, error)
	CreateItem(ctx context.Context, listID int64, label string) error
	DeleteItem(ctx context.Context, itemID int64) error
	DeleteInactive(ctx context.Context, listID int64) error
	UpdateItemLabel(ctx context.Context, itemID int64, label string) error
	UpdateItemActive(ctx context.Context, itemID int64, active bool) error
	UpdateItemStar(ctx context.Context, itemID int64, star bool) error

	// Connection management
	Close() error
}

// StorageError wraps a failure returned by a Store operation.
type StorageError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain support.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// WrapStorageError wraps err as a StorageError for op. A nil err stays nil.
func WrapStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// CountItems returns the total and active item counts of items.
func CountItems(items []Item) (total, active int) {
	for _, it := range items {
		if it.Active {
			active++
		}
	}
	return len(items), active
}

// FindList resolves a list by numeric ID or by label (case-insensitive).
// Returns nil if no match is found.
func FindList(lists []List, ref string) *List {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		for _, l := range lists {
			if l.ID == id {
				return &l
			}
		}
	}
	for _, l := range lists {
		if strings.EqualFold(l.Label, ref) {
			return &l
		}
	}
	return nil
}

// FindItem returns the item with the given ID, or nil.
func FindItem(items []Item, id int64) *Item {
	for _, it := range items {
		if it.ID == id {
			return &it
		}
	}
	return nil
}

// SortLists orders lists by label, case-insensitively, then by ID.
func SortLists(lists []List) {
	slices.SortFunc(lists, func(a, b List) int {
		if c := strings.Compare(strings.ToLower(a.Label), strings.ToLower(b.Label)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// SortItems orders items by label, case-insensitively, then by ID.
func SortItems(items []Item) {
	slices.SortFunc(items, func(a, b Item) int {
		if c := strings.Compare(strings.ToLower(a.Label), strings.ToLower(b.Label)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
