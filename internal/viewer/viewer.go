// Package viewer keeps an in-memory view of lists and items in front of a
// backend.Store. Mutations are applied to the view immediately and written
// to the store later by a single worker goroutine, in submission order.
//
// Reads never touch the store. Synchronous operations (fetches, creates,
// selection changes, Flush) go through the same queue and wait for their
// tasks to finish.
package viewer

import (
	"context"
	"errors"
	"sync"

	"dolist/backend"
)

var (
	// ErrNotStarted is returned by operations submitted before Start.
	ErrNotStarted = errors.New("viewer: not started")
	// ErrClosed is returned by operations submitted after Close.
	ErrClosed = errors.New("viewer: closed")
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("viewer: already started")
	// ErrNoListSelected is returned by CreateItem without a selected list.
	ErrNoListSelected = errors.New("viewer: no list selected")
	// ErrUnknownTaskKind completes tasks the worker cannot dispatch.
	ErrUnknownTaskKind = errors.New("viewer: unknown task kind")
)

// Viewer is the write-behind cache. The zero value is not usable; call New.
type Viewer struct {
	store         backend.Store
	log           Logger
	onError       ErrorHandler
	unknownPolicy UnknownKindPolicy

	// mu guards everything below. cond is signalled with Broadcast on every
	// queue or task state change; all waiters re-check their own predicate.
	mu        sync.Mutex
	cond      *sync.Cond
	queue     []*task
	lists     []backend.List
	items     []backend.Item
	itemsList int64 // list the items belong to, 0 when none
	selected  *backend.List

	started bool
	running bool
	closing bool
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	exited chan struct{}
}

// New creates a Viewer over store. The worker does not run until Start.
func New(store backend.Store, opts ...Option) *Viewer {
	v := &Viewer{
		store:  store,
		log:    defaultLogger(),
		exited: make(chan struct{}),
	}
	v.cond = sync.NewCond(&v.mu)
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Start launches the worker goroutine.
func (v *Viewer) Start() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.closing {
		return ErrClosed
	}
	if v.started {
		return ErrAlreadyStarted
	}
	v.ctx, v.cancel = context.WithCancel(context.Background())
	v.started = true
	v.running = true
	go v.run()
	return nil
}

// Close waits for every queued task to finish, then stops the worker.
// The store itself is left open; it belongs to the caller.
func (v *Viewer) Close() error {
	v.mu.Lock()
	if v.closed || v.closing {
		v.mu.Unlock()
		return ErrClosed
	}
	if !v.started {
		v.closed = true
		v.mu.Unlock()
		return nil
	}
	v.closing = true
	// Background never ends, so the drain cannot be cut short.
	_ = v.waitLocked(context.Background(), v.queueEmptyLocked)
	v.running = false
	v.closed = true
	v.cond.Broadcast()
	v.mu.Unlock()

	v.cancel()
	<-v.exited
	v.log.Debug("viewer closed")
	return nil
}

// Flush blocks until the queue is empty.
func (v *Viewer) Flush(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkLocked(); err != nil {
		return err
	}
	return v.waitLocked(ctx, v.queueEmptyLocked)
}

// Pending returns the number of queued tasks, including the one in flight.
func (v *Viewer) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.queue)
}

// FetchLists reloads the lists from the store and waits for the result.
func (v *Viewer) FetchLists(ctx context.Context) error {
	return v.doAndWait(ctx, fetchListsTask())
}

// FetchItems reloads the items of listID from the store and waits for the
// result. The cached items are replaced even when listID is not selected.
func (v *Viewer) FetchItems(ctx context.Context, listID int64) error {
	return v.doAndWait(ctx, fetchItemsTask(listID))
}

// Refresh reloads the lists and the items of the selected list.
func (v *Viewer) Refresh(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkLocked(); err != nil {
		return err
	}
	tasks := []*task{fetchListsTask()}
	if v.selected != nil {
		tasks = append(tasks, fetchItemsTask(v.selected.ID))
	}
	return v.enqueueAndWaitLocked(ctx, tasks...)
}

// SetSelectedList waits for pending work, loads the items of list and makes
// it the selected list. A nil list clears the selection and the items.
// If loading fails the previous selection is kept.
func (v *Viewer) SetSelectedList(ctx context.Context, list *backend.List) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkLocked(); err != nil {
		return err
	}
	if err := v.waitLocked(ctx, v.queueEmptyLocked); err != nil {
		return err
	}
	// Close may have run while the lock was released.
	if err := v.checkLocked(); err != nil {
		return err
	}
	if list == nil {
		v.selected = nil
		v.items = nil
		v.itemsList = 0
		return nil
	}
	if err := v.enqueueAndWaitLocked(ctx, fetchItemsTask(list.ID)); err != nil {
		return err
	}
	sel := *list
	if cached := v.listLocked(list.ID); cached != nil {
		sel = *cached
	}
	v.selected = &sel
	v.updateListStatsLocked()
	return nil
}

// CreateList adds a list and waits until the lists have been reloaded.
func (v *Viewer) CreateList(ctx context.Context, label string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkLocked(); err != nil {
		return err
	}
	return v.enqueueAndWaitLocked(ctx, createListTask(label), fetchListsTask())
}

// CreateItem adds an item to the selected list and waits until the items
// have been reloaded.
func (v *Viewer) CreateItem(ctx context.Context, label string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkLocked(); err != nil {
		return err
	}
	if v.selected == nil {
		return ErrNoListSelected
	}
	listID := v.selected.ID
	if err := v.enqueueAndWaitLocked(ctx, createItemTask(listID, label), fetchItemsTask(listID)); err != nil {
		return err
	}
	v.updateListStatsLocked()
	return nil
}

// DeleteItem removes an item from the view and queues its deletion.
func (v *Viewer) DeleteItem(itemID int64) error {
	return v.submit(deleteItemTask(itemID))
}

// DeleteList removes a list from the view and queues its deletion. Deleting
// the selected list clears the selection.
func (v *Viewer) DeleteList(listID int64) error {
	return v.submit(deleteListTask(listID))
}

// DeleteInactive removes the inactive items of listID from the view and
// queues their deletion.
func (v *Viewer) DeleteInactive(listID int64) error {
	return v.submit(deleteInactiveTask(listID))
}

// UpdateItemLabel relabels an item in the view and queues the write.
func (v *Viewer) UpdateItemLabel(itemID int64, label string) error {
	return v.submit(updateItemLabelTask(itemID, label))
}

// UpdateListLabel relabels a list in the view and queues the write.
func (v *Viewer) UpdateListLabel(listID int64, label string) error {
	return v.submit(updateListLabelTask(listID, label))
}

// UpdateItemActive sets the active flag in the view and queues the write.
func (v *Viewer) UpdateItemActive(itemID int64, active bool) error {
	return v.submit(updateItemActiveTask(itemID, active))
}

// UpdateItemStar sets the star flag in the view and queues the write.
func (v *Viewer) UpdateItemStar(itemID int64, star bool) error {
	return v.submit(updateItemStarTask(itemID, star))
}

// Items returns a copy of the cached items.
func (v *Viewer) Items() []backend.Item {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]backend.Item, len(v.items))
	copy(out, v.items)
	return out
}

// Lists returns a copy of the cached lists.
func (v *Viewer) Lists() []backend.List {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]backend.List, len(v.lists))
	copy(out, v.lists)
	return out
}

// SelectedList returns a copy of the selected list, or nil.
func (v *Viewer) SelectedList() *backend.List {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selected == nil {
		return nil
	}
	sel := *v.selected
	return &sel
}

// submit queues t and applies its optimistic effect in one critical section.
func (v *Viewer) submit(t *task) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkLocked(); err != nil {
		return err
	}
	v.enqueueLocked(t)
	v.applyLocked(t)
	return nil
}

func (v *Viewer) doAndWait(ctx context.Context, t *task) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkLocked(); err != nil {
		return err
	}
	return v.enqueueAndWaitLocked(ctx, t)
}

// enqueueAndWaitLocked queues tasks back to back and waits for all of them.
// The returned error joins the task failures.
func (v *Viewer) enqueueAndWaitLocked(ctx context.Context, tasks ...*task) error {
	for _, t := range tasks {
		v.enqueueLocked(t)
	}
	err := v.waitLocked(ctx, func() bool {
		for _, t := range tasks {
			if !t.done {
				return false
			}
		}
		return true
	})
	if err != nil {
		return err
	}
	errs := make([]error, 0, len(tasks))
	for _, t := range tasks {
		errs = append(errs, t.err)
	}
	return errors.Join(errs...)
}

func (v *Viewer) checkLocked() error {
	switch {
	case v.closed:
		return ErrClosed
	case !v.started:
		return ErrNotStarted
	}
	return nil
}

func (v *Viewer) enqueueLocked(t *task) {
	v.queue = append(v.queue, t)
	v.log.Debug("queued task %s %s (pending %d)", t.short(), t.kind, len(v.queue))
	v.cond.Broadcast()
}

func (v *Viewer) queueEmptyLocked() bool {
	return len(v.queue) == 0
}

// waitLocked blocks until pred holds or ctx is done. v.mu must be held; it
// is released while waiting and held again on return.
func (v *Viewer) waitLocked(ctx context.Context, pred func() bool) error {
	if pred() {
		return nil
	}
	stop := context.AfterFunc(ctx, func() {
		v.mu.Lock()
		v.cond.Broadcast()
		v.mu.Unlock()
	})
	defer stop()
	for !pred() {
		if err := ctx.Err(); err != nil {
			return err
		}
		v.cond.Wait()
	}
	return nil
}
