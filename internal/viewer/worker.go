package viewer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dolist/backend"
)

// run is the worker loop. It executes the head task, then removes it, so a
// task counts as pending until its store call has returned.
func (v *Viewer) run() {
	defer close(v.exited)
	v.log.Debug("viewer worker started")
	for {
		t, ok := v.next()
		if !ok {
			v.log.Debug("viewer worker stopped")
			return
		}
		if !v.process(t) {
			v.log.Debug("viewer worker interrupted")
			return
		}
	}
}

// next waits for a task and returns the head of the queue without removing
// it. It reports false once the viewer has stopped and the queue is empty.
func (v *Viewer) next() (*task, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for len(v.queue) == 0 && v.running {
		v.cond.Wait()
	}
	if len(v.queue) == 0 {
		return nil, false
	}
	return v.queue[0], true
}

// process runs t against the store and retires it. It returns false when the
// store call was cut short by shutdown.
func (v *Viewer) process(t *task) bool {
	start := time.Now()
	ctx := v.ctx

	var err error
	complete := true
	switch t.kind {
	case KindFetchLists:
		lists, ferr := v.store.FetchLists(ctx)
		err = backend.WrapStorageError("fetch lists", ferr)
		v.mu.Lock()
		if err == nil {
			v.replaceListsLocked(lists)
		}
		v.mu.Unlock()
	case KindFetchItems:
		items, ferr := v.store.FetchItems(ctx, t.listID)
		err = backend.WrapStorageError("fetch items", ferr)
		v.mu.Lock()
		if err == nil {
			v.replaceItemsLocked(t.listID, items)
		}
		v.mu.Unlock()
	case KindCreateList:
		err = backend.WrapStorageError("create list", v.store.CreateList(ctx, t.label))
	case KindCreateItem:
		err = backend.WrapStorageError("create item", v.store.CreateItem(ctx, t.listID, t.label))
	case KindDeleteList:
		err = backend.WrapStorageError("delete list", v.store.DeleteList(ctx, t.listID))
	case KindDeleteItem:
		err = backend.WrapStorageError("delete item", v.store.DeleteItem(ctx, t.itemID))
	case KindDeleteInactive:
		err = backend.WrapStorageError("delete inactive", v.store.DeleteInactive(ctx, t.listID))
	case KindUpdateListLabel:
		err = backend.WrapStorageError("update list label", v.store.UpdateListLabel(ctx, t.listID, t.label))
	case KindUpdateItemLabel:
		err = backend.WrapStorageError("update item label", v.store.UpdateItemLabel(ctx, t.itemID, t.label))
	case KindUpdateItemActive:
		err = backend.WrapStorageError("update item active", v.store.UpdateItemActive(ctx, t.itemID, t.flag))
	case KindUpdateItemStar:
		err = backend.WrapStorageError("update item star", v.store.UpdateItemStar(ctx, t.itemID, t.flag))
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownTaskKind, t.kind)
		v.log.Warn("dropping task %s: %v", t.short(), err)
		complete = v.unknownPolicy == UnknownKindFail
	}

	v.mu.Lock()
	if complete {
		t.done = true
		t.err = err
	}
	v.queue[0] = nil
	v.queue = v.queue[1:]
	v.cond.Broadcast()
	v.mu.Unlock()

	if err == nil {
		v.log.Debug("task %s %s done in %v", t.short(), t.kind, time.Since(start))
		return true
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return false
	}
	if !errors.Is(err, ErrUnknownTaskKind) {
		v.log.Error("task %s %s failed: %v", t.short(), t.kind, err)
	}
	if v.onError != nil {
		v.onError(t.kind, err)
	}
	return true
}
