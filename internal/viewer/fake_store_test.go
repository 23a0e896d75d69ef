package viewer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"dolist/backend"
)

// fakeStore is an in-memory backend.Store that records every call, can be
// paused, and can be told to fail selected methods.
type fakeStore struct {
	mu       sync.Mutex
	lists    []backend.List
	items    []backend.Item
	nextList int64
	nextItem int64
	calls    []string
	hold     chan struct{}
	fail     map[string]error

	inflight atomic.Int32
	overlap  atomic.Bool
}

var _ backend.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{nextList: 100, nextItem: 1000, fail: map[string]error{}}
}

func (s *fakeStore) seedList(id int64, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists = append(s.lists, backend.List{ID: id, Label: label})
}

func (s *fakeStore) seedItem(id, listID int64, label string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, backend.Item{ID: id, ListID: listID, Label: label, Active: active})
}

// pause makes every following call block until resume.
func (s *fakeStore) pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hold = make(chan struct{})
}

func (s *fakeStore) resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hold != nil {
		close(s.hold)
		s.hold = nil
	}
}

func (s *fakeStore) failOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[method] = err
}

func (s *fakeStore) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// recordedWithPrefix returns the recorded calls starting with prefix.
func (s *fakeStore) recordedWithPrefix(prefix string) []string {
	var out []string
	for _, c := range s.recorded() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (s *fakeStore) storedItem(id int64) (backend.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return backend.Item{}, false
}

// enter marks a call in flight, waits while paused, and records the call.
// The returned func must be deferred by the caller.
func (s *fakeStore) enter(ctx context.Context, method string, args ...interface{}) (func(), error) {
	if s.inflight.Add(1) > 1 {
		s.overlap.Store(true)
	}
	release := func() { s.inflight.Add(-1) }

	s.mu.Lock()
	hold := s.hold
	s.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return release, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	call := method
	if len(args) > 0 {
		call = fmt.Sprintf("%s%v", method, args)
	}
	s.calls = append(s.calls, call)
	return release, s.fail[method]
}

func (s *fakeStore) itemLocked(id int64) *backend.Item {
	for i := range s.items {
		if s.items[i].ID == id {
			return &s.items[i]
		}
	}
	return nil
}

func (s *fakeStore) FetchLists(ctx context.Context) ([]backend.List, error) {
	done, err := s.enter(ctx, "FetchLists")
	defer done()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]backend.List, 0, len(s.lists))
	for _, l := range s.lists {
		var mine []backend.Item
		for _, it := range s.items {
			if it.ListID == l.ID {
				mine = append(mine, it)
			}
		}
		l.TotalItems, l.ActiveItems = backend.CountItems(mine)
		out = append(out, l)
	}
	return out, nil
}

func (s *fakeStore) CreateList(ctx context.Context, label string) error {
	done, err := s.enter(ctx, "CreateList", label)
	defer done()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextList++
	s.lists = append(s.lists, backend.List{ID: s.nextList, Label: label})
	return nil
}

func (s *fakeStore) DeleteList(ctx context.Context, listID int64) error {
	done, err := s.enter(ctx, "DeleteList", listID)
	defer done()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lists := s.lists[:0]
	for _, l := range s.lists {
		if l.ID != listID {
			lists = append(lists, l)
		}
	}
	s.lists = lists
	items := s.items[:0]
	for _, it := range s.items {
		if it.ListID != listID {
			items = append(items, it)
		}
	}
	s.items = items
	return nil
}

func (s *fakeStore) UpdateListLabel(ctx context.Context, listID int64, label string) error {
	done, err := s.enter(ctx, "UpdateListLabel", listID, label)
	defer done()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lists {
		if s.lists[i].ID == listID {
			s.lists[i].Label = label
		}
	}
	return nil
}

func (s *fakeStore) FetchItems(ctx context.Context, listID int64) ([]backend.Item, error) {
	done, err := s.enter(ctx, "FetchItems", listID)
	defer done()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []backend.Item
	for _, it := range s.items {
		if it.ListID == listID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateItem(ctx context.Context, listID int64, label string) error {
	done, err := s.enter(ctx, "CreateItem", listID, label)
	defer done()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextItem++
	s.items = append(s.items, backend.Item{ID: s.nextItem, ListID: listID, Label: label, Active: true})
	return nil
}

func (s *fakeStore) DeleteItem(ctx context.Context, itemID int64) error {
	done, err := s.enter(ctx, "DeleteItem", itemID)
	defer done()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.items[:0]
	for _, it := range s.items {
		if it.ID != itemID {
			items = append(items, it)
		}
	}
	s.items = items
	return nil
}

func (s *fakeStore) DeleteInactive(ctx context.Context, listID int64) error {
	done, err := s.enter(ctx, "DeleteInactive", listID)
	defer done()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.items[:0]
	for _, it := range s.items {
		if it.ListID != listID || it.Active {
			items = append(items, it)
		}
	}
	s.items = items
	return nil
}

func (s *fakeStore) UpdateItemLabel(ctx context.Context, itemID int64, label string) error {
	done, err := s.enter(ctx, "UpdateItemLabel", itemID, label)
	defer done()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if it := s.itemLocked(itemID); it != nil {
		it.Label = label
	}
	return nil
}

func (s *fakeStore) UpdateItemActive(ctx context.Context, itemID int64, active bool) error {
	done, err := s.enter(ctx, "UpdateItemActive", itemID, active)
	defer done()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if it := s.itemLocked(itemID); it != nil {
		it.Active = active
	}
	return nil
}

func (s *fakeStore) UpdateItemStar(ctx context.Context, itemID int64, star bool) error {
	done, err := s.enter(ctx, "UpdateItemStar", itemID, star)
	defer done()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if it := s.itemLocked(itemID); it != nil {
		it.Star = star
	}
	return nil
}

func (s *fakeStore) Close() error {
	return nil
}

// recordLogger keeps log lines in memory.
type recordLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordLogger) add(level, msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.lines = append(l.lines, level+" "+msg)
}

func (l *recordLogger) Debug(msg string, args ...interface{}) { l.add("DEBUG", msg, args...) }
func (l *recordLogger) Warn(msg string, args ...interface{})  { l.add("WARN", msg, args...) }
func (l *recordLogger) Error(msg string, args ...interface{}) { l.add("ERROR", msg, args...) }

func (l *recordLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}
