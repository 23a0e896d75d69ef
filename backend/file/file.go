// Package file implements a Store backend that keeps lists in one markdown file.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"dolist/backend"
	"dolist/internal/markdown"
)

// Config holds file backend configuration
type Config struct {
	FilePath string // Path to the list file
}

// Backend implements backend.Store for file-based storage. The file is read
// on every call so edits made outside the program are picked up.
type Backend struct {
	filePath string // Resolved absolute path
}

// New creates a new file backend
func New(cfg Config) (*Backend, error) {
	filePath := cfg.FilePath
	if filePath == "" {
		filePath = "lists.md"
	}

	// Resolve relative paths
	if !filepath.IsAbs(filePath) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		filePath = filepath.Join(wd, filePath)
	}

	return &Backend{filePath: filePath}, nil
}

// Path returns the resolved path of the list file
func (b *Backend) Path() string {
	return b.filePath
}

// Close closes the backend
func (b *Backend) Close() error {
	return nil
}

// =============================================================================
// List Operations
// =============================================================================

// FetchLists returns all lists ordered by label, with item counts
func (b *Backend) FetchLists(ctx context.Context) ([]backend.List, error) {
	doc, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	lists := make([]backend.List, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		l := s.List
		l.TotalItems, l.ActiveItems = backend.CountItems(s.Items)
		lists = append(lists, l)
	}
	backend.SortLists(lists)
	return lists, nil
}

// CreateList appends a new section to the file
func (b *Backend) CreateList(ctx context.Context, label string) error {
	return b.update(ctx, func(doc *markdown.Document) error {
		doc.NextListID++
		doc.Sections = append(doc.Sections, markdown.Section{
			List: backend.List{ID: doc.NextListID, Label: label},
		})
		return nil
	})
}

// DeleteList removes a section and all its items
func (b *Backend) DeleteList(ctx context.Context, listID int64) error {
	return b.update(ctx, func(doc *markdown.Document) error {
		doc.Sections = slices.DeleteFunc(doc.Sections, func(s markdown.Section) bool {
			return s.List.ID == listID
		})
		return nil
	})
}

// UpdateListLabel renames a section
func (b *Backend) UpdateListLabel(ctx context.Context, listID int64, label string) error {
	return b.update(ctx, func(doc *markdown.Document) error {
		if s := doc.Section(listID); s != nil {
			s.List.Label = label
		}
		return nil
	})
}

// =============================================================================
// Item Operations
// =============================================================================

// FetchItems returns the items of a list ordered by label
func (b *Backend) FetchItems(ctx context.Context, listID int64) ([]backend.Item, error) {
	doc, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	items := []backend.Item{}
	if s := doc.Section(listID); s != nil {
		items = append(items, s.Items...)
	}
	backend.SortItems(items)
	return items, nil
}

// CreateItem appends an active item to a list. The list must exist.
func (b *Backend) CreateItem(ctx context.Context, listID int64, label string) error {
	return b.update(ctx, func(doc *markdown.Document) error {
		s := doc.Section(listID)
		if s == nil {
			return fmt.Errorf("list not found: %d", listID)
		}
		doc.NextItemID++
		s.Items = append(s.Items, backend.Item{
			ID:     doc.NextItemID,
			ListID: listID,
			Label:  label,
			Active: true,
		})
		return nil
	})
}

// DeleteItem removes one item
func (b *Backend) DeleteItem(ctx context.Context, itemID int64) error {
	return b.update(ctx, func(doc *markdown.Document) error {
		if s, _ := doc.FindItem(itemID); s != nil {
			s.Items = slices.DeleteFunc(s.Items, func(it backend.Item) bool {
				return it.ID == itemID
			})
		}
		return nil
	})
}

// DeleteInactive removes the checked items of a list
func (b *Backend) DeleteInactive(ctx context.Context, listID int64) error {
	return b.update(ctx, func(doc *markdown.Document) error {
		if s := doc.Section(listID); s != nil {
			s.Items = slices.DeleteFunc(s.Items, func(it backend.Item) bool {
				return !it.Active
			})
		}
		return nil
	})
}

// UpdateItemLabel renames an item
func (b *Backend) UpdateItemLabel(ctx context.Context, itemID int64, label string) error {
	return b.updateItem(ctx, itemID, func(it *backend.Item) { it.Label = label })
}

// UpdateItemActive checks or unchecks an item
func (b *Backend) UpdateItemActive(ctx context.Context, itemID int64, active bool) error {
	return b.updateItem(ctx, itemID, func(it *backend.Item) { it.Active = active })
}

// UpdateItemStar sets the star flag of an item
func (b *Backend) UpdateItemStar(ctx context.Context, itemID int64, star bool) error {
	return b.updateItem(ctx, itemID, func(it *backend.Item) { it.Star = star })
}

func (b *Backend) updateItem(ctx context.Context, itemID int64, fn func(*backend.Item)) error {
	return b.update(ctx, func(doc *markdown.Document) error {
		if _, it := doc.FindItem(itemID); it != nil {
			fn(it)
		}
		return nil
	})
}

// =============================================================================
// File Operations
// =============================================================================

// load parses the file. A missing file is an empty document. Ids assigned
// to hand-written lines are saved right away so they stay stable.
func (b *Backend) load(ctx context.Context) (*markdown.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return &markdown.Document{}, nil
	}
	if err != nil {
		return nil, err
	}
	doc, changed := markdown.Parse(data)
	if changed {
		if err := b.save(doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// update loads the file, applies fn and writes the result.
func (b *Backend) update(ctx context.Context, fn func(*markdown.Document) error) error {
	doc, err := b.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return b.save(doc)
}

// save writes doc through a temp file and a rename
func (b *Backend) save(doc *markdown.Document) error {
	// Ensure parent directory exists
	dir := filepath.Dir(b.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".dolist-*.md")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(markdown.Format(doc)); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), b.filePath)
}

// Verify interface compliance at compile time
var _ backend.Store = (*Backend)(nil)
