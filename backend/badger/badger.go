package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"

	badgerdb "github.com/dgraph-io/badger/v4"

	"dolist/backend"
)

// Key namespace:
//
//	l:<listID>            list record (JSON)
//	i:<listID>:<itemID>   item record (JSON)
//	x:<itemID>            owning listID (uint64, big endian)
//	seq:list, seq:item    last issued ID (uint64, big endian)
const (
	prefixList      = "l:"
	prefixItem      = "i:"
	prefixItemIndex = "x:"
	keySeqList      = "seq:list"
	keySeqItem      = "seq:item"
)

func keyList(id int64) []byte {
	return []byte(prefixList + strconv.FormatInt(id, 10))
}

func keyItem(listID, itemID int64) []byte {
	return []byte(prefixItem + strconv.FormatInt(listID, 10) + ":" + strconv.FormatInt(itemID, 10))
}

// keyItemPrefix generates the range scan prefix for the items of a list: "i:<listID>:"
func keyItemPrefix(listID int64) []byte {
	return []byte(prefixItem + strconv.FormatInt(listID, 10) + ":")
}

func keyItemIndex(itemID int64) []byte {
	return []byte(prefixItemIndex + strconv.FormatInt(itemID, 10))
}

type listRecord struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

type itemRecord struct {
	ID     int64  `json:"id"`
	ListID int64  `json:"list_id"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
	Star   bool   `json:"star"`
}

func (r itemRecord) item() backend.Item {
	return backend.Item{ID: r.ID, ListID: r.ListID, Label: r.Label, Active: r.Active, Star: r.Star}
}

// Store implements backend.Store on an embedded Badger database
type Store struct {
	db *badgerdb.DB
}

// Open opens or creates a Badger database in dir. An empty dir keeps the
// database in memory.
func Open(dir string) (*Store, error) {
	opts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

// nextID increments and returns the counter stored under key.
func nextID(txn *badgerdb.Txn, key string) (int64, error) {
	var last uint64
	item, err := txn.Get([]byte(key))
	switch {
	case err == badgerdb.ErrKeyNotFound:
	case err != nil:
		return 0, err
	default:
		if err := item.Value(func(val []byte) error {
			last = binary.BigEndian.Uint64(val)
			return nil
		}); err != nil {
			return 0, err
		}
	}
	last++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, last)
	if err := txn.Set([]byte(key), buf); err != nil {
		return 0, err
	}
	return int64(last), nil
}

func getJSON(txn *badgerdb.Txn, key []byte, dst interface{}) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dst)
	})
}

func setJSON(txn *badgerdb.Txn, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return txn.Set(key, data)
}

// scanItems decodes every item under prefix.
func scanItems(txn *badgerdb.Txn, prefix []byte) ([]itemRecord, error) {
	opts := badgerdb.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var records []itemRecord
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var r itemRecord
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		}); err != nil {
			return nil, fmt.Errorf("failed to decode item %s: %w", it.Item().Key(), err)
		}
		records = append(records, r)
	}
	return records, nil
}

// lookupItem resolves an item through the index. It returns nil when the
// item does not exist.
func lookupItem(txn *badgerdb.Txn, itemID int64) (*itemRecord, error) {
	idx, err := txn.Get(keyItemIndex(itemID))
	if err == badgerdb.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var listID int64
	if err := idx.Value(func(val []byte) error {
		listID = int64(binary.BigEndian.Uint64(val))
		return nil
	}); err != nil {
		return nil, err
	}
	var r itemRecord
	if err := getJSON(txn, keyItem(listID, itemID), &r); err != nil {
		if err == badgerdb.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func deleteItem(txn *badgerdb.Txn, r itemRecord) error {
	if err := txn.Delete(keyItem(r.ListID, r.ID)); err != nil {
		return err
	}
	return txn.Delete(keyItemIndex(r.ID))
}

// FetchLists returns all lists ordered by label, with item counts
func (s *Store) FetchLists(ctx context.Context) ([]backend.List, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lists := []backend.List{}
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(prefixList)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var r listRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return fmt.Errorf("failed to decode list %s: %w", it.Item().Key(), err)
			}
			lists = append(lists, backend.List{ID: r.ID, Label: r.Label})
		}

		items, err := scanItems(txn, []byte(prefixItem))
		if err != nil {
			return err
		}
		for i := range lists {
			for _, r := range items {
				if r.ListID != lists[i].ID {
					continue
				}
				lists[i].TotalItems++
				if r.Active {
					lists[i].ActiveItems++
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	backend.SortLists(lists)
	return lists, nil
}

// CreateList inserts a new list
func (s *Store) CreateList(ctx context.Context, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		id, err := nextID(txn, keySeqList)
		if err != nil {
			return err
		}
		return setJSON(txn, keyList(id), listRecord{ID: id, Label: label})
	})
}

// DeleteList removes a list and all of its items
func (s *Store) DeleteList(ctx context.Context, listID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		items, err := scanItems(txn, keyItemPrefix(listID))
		if err != nil {
			return err
		}
		for _, r := range items {
			if err := deleteItem(txn, r); err != nil {
				return err
			}
		}
		return txn.Delete(keyList(listID))
	})
}

// UpdateListLabel renames a list
func (s *Store) UpdateListLabel(ctx context.Context, listID int64, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		var r listRecord
		err := getJSON(txn, keyList(listID), &r)
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		r.Label = label
		return setJSON(txn, keyList(listID), r)
	})
}

// FetchItems returns the items of a list ordered by label
func (s *Store) FetchItems(ctx context.Context, listID int64) ([]backend.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var records []itemRecord
	err := s.db.View(func(txn *badgerdb.Txn) error {
		var err error
		records, err = scanItems(txn, keyItemPrefix(listID))
		return err
	})
	if err != nil {
		return nil, err
	}
	items := make([]backend.Item, 0, len(records))
	for _, r := range records {
		items = append(items, r.item())
	}
	backend.SortItems(items)
	return items, nil
}

// CreateItem inserts a new active item. The list must exist.
func (s *Store) CreateItem(ctx context.Context, listID int64, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(keyList(listID)); err != nil {
			if err == badgerdb.ErrKeyNotFound {
				return fmt.Errorf("list %d not found", listID)
			}
			return err
		}
		id, err := nextID(txn, keySeqItem)
		if err != nil {
			return err
		}
		idx := make([]byte, 8)
		binary.BigEndian.PutUint64(idx, uint64(listID))
		if err := txn.Set(keyItemIndex(id), idx); err != nil {
			return err
		}
		return setJSON(txn, keyItem(listID, id), itemRecord{ID: id, ListID: listID, Label: label, Active: true})
	})
}

// DeleteItem removes one item
func (s *Store) DeleteItem(ctx context.Context, itemID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		r, err := lookupItem(txn, itemID)
		if err != nil || r == nil {
			return err
		}
		return deleteItem(txn, *r)
	})
}

// DeleteInactive removes every inactive item of a list
func (s *Store) DeleteInactive(ctx context.Context, listID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		items, err := scanItems(txn, keyItemPrefix(listID))
		if err != nil {
			return err
		}
		for _, r := range items {
			if r.Active {
				continue
			}
			if err := deleteItem(txn, r); err != nil {
				return err
			}
		}
		return nil
	})
}

// updateItem applies fn to an item and writes it back. Missing items are ignored.
func (s *Store) updateItem(ctx context.Context, itemID int64, fn func(*itemRecord)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		r, err := lookupItem(txn, itemID)
		if err != nil || r == nil {
			return err
		}
		fn(r)
		return setJSON(txn, keyItem(r.ListID, r.ID), r)
	})
}

// UpdateItemLabel renames an item
func (s *Store) UpdateItemLabel(ctx context.Context, itemID int64, label string) error {
	return s.updateItem(ctx, itemID, func(r *itemRecord) { r.Label = label })
}

// UpdateItemActive sets the active flag of an item
func (s *Store) UpdateItemActive(ctx context.Context, itemID int64, active bool) error {
	return s.updateItem(ctx, itemID, func(r *itemRecord) { r.Active = active })
}

// UpdateItemStar sets the star flag of an item
func (s *Store) UpdateItemStar(ctx context.Context, itemID int64, star bool) error {
	return s.updateItem(ctx, itemID, func(r *itemRecord) { r.Star = star })
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

var _ backend.Store = (*Store)(nil)
