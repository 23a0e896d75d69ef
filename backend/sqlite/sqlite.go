package sqlite

import (
	"context"
	"database/sql"

	"dolist/backend"

	_ "modernc.org/sqlite"
)

// Backend implements backend.Store using SQLite
type Backend struct {
	db *sql.DB
}

// New creates a new SQLite backend and initializes the database schema
func New(path string) (*Backend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases and the foreign_keys
	// pragma on one session.
	db.SetMaxOpenConns(1)

	b := &Backend{db: db}
	if err := b.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return b, nil
}

// initSchema creates the database tables if they don't exist
func (b *Backend) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS lists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			label TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			list_id INTEGER NOT NULL,
			label TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			star INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (list_id) REFERENCES lists(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_items_list_id ON items(list_id);
	`

	// Enable foreign keys
	if _, err := b.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}

	_, err := b.db.Exec(schema)
	return err
}

// FetchLists returns all lists ordered by label, with item counts
func (b *Backend) FetchLists(ctx context.Context) ([]backend.List, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT l.id, l.label, COUNT(i.id), COALESCE(SUM(i.active), 0)
		FROM lists l
		LEFT JOIN items i ON i.list_id = l.id
		GROUP BY l.id, l.label
		ORDER BY l.label COLLATE NOCASE, l.id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	lists := []backend.List{}
	for rows.Next() {
		var l backend.List
		if err := rows.Scan(&l.ID, &l.Label, &l.TotalItems, &l.ActiveItems); err != nil {
			return nil, err
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

// CreateList inserts a new list
func (b *Backend) CreateList(ctx context.Context, label string) error {
	_, err := b.db.ExecContext(ctx, "INSERT INTO lists (label) VALUES (?)", label)
	return err
}

// DeleteList removes a list; its items go with it through the foreign key.
// Deleting a missing list is not an error.
func (b *Backend) DeleteList(ctx context.Context, listID int64) error {
	_, err := b.db.ExecContext(ctx, "DELETE FROM lists WHERE id = ?", listID)
	return err
}

// UpdateListLabel renames a list
func (b *Backend) UpdateListLabel(ctx context.Context, listID int64, label string) error {
	_, err := b.db.ExecContext(ctx, "UPDATE lists SET label = ? WHERE id = ?", label, listID)
	return err
}

// scanItem scans the current row of an items query
func scanItem(rows *sql.Rows) (backend.Item, error) {
	var it backend.Item
	err := rows.Scan(&it.ID, &it.ListID, &it.Label, &it.Active, &it.Star)
	return it, err
}

// FetchItems returns the items of a list ordered by label
func (b *Backend) FetchItems(ctx context.Context, listID int64) ([]backend.Item, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT id, list_id, label, active, star
		FROM items
		WHERE list_id = ?
		ORDER BY label COLLATE NOCASE, id`, listID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []backend.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CreateItem inserts a new active item. The list must exist.
func (b *Backend) CreateItem(ctx context.Context, listID int64, label string) error {
	_, err := b.db.ExecContext(ctx,
		"INSERT INTO items (list_id, label, active, star) VALUES (?, ?, 1, 0)",
		listID, label,
	)
	return err
}

// DeleteItem removes one item
func (b *Backend) DeleteItem(ctx context.Context, itemID int64) error {
	_, err := b.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", itemID)
	return err
}

// DeleteInactive removes every inactive item of a list
func (b *Backend) DeleteInactive(ctx context.Context, listID int64) error {
	_, err := b.db.ExecContext(ctx, "DELETE FROM items WHERE list_id = ? AND active = 0", listID)
	return err
}

// UpdateItemLabel renames an item
func (b *Backend) UpdateItemLabel(ctx context.Context, itemID int64, label string) error {
	_, err := b.db.ExecContext(ctx, "UPDATE items SET label = ? WHERE id = ?", label, itemID)
	return err
}

// UpdateItemActive sets the active flag of an item
func (b *Backend) UpdateItemActive(ctx context.Context, itemID int64, active bool) error {
	_, err := b.db.ExecContext(ctx, "UPDATE items SET active = ? WHERE id = ?", boolToInt(active), itemID)
	return err
}

// UpdateItemStar sets the star flag of an item
func (b *Backend) UpdateItemStar(ctx context.Context, itemID int64, star bool) error {
	_, err := b.db.ExecContext(ctx, "UPDATE items SET star = ? WHERE id = ?", boolToInt(star), itemID)
	return err
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// Close closes the database connection
func (b *Backend) Close() error {
	return b.db.Close()
}

// Verify interface compliance at compile time
var _ backend.Store = (*Backend)(nil)
