package viewer

import (
	"slices"

	"dolist/backend"
)

// applyLocked performs the optimistic effect of a mutation on the cache.
// Fetches and creates have no local effect.
func (v *Viewer) applyLocked(t *task) {
	switch t.kind {
	case KindDeleteItem:
		v.items = slices.DeleteFunc(v.items, func(it backend.Item) bool {
			return it.ID == t.itemID
		})
		v.updateListStatsLocked()
	case KindDeleteList:
		v.lists = slices.DeleteFunc(v.lists, func(l backend.List) bool {
			return l.ID == t.listID
		})
		if v.selected != nil && v.selected.ID == t.listID {
			v.selected = nil
			v.items = nil
			v.itemsList = 0
		}
	case KindDeleteInactive:
		v.items = slices.DeleteFunc(v.items, func(it backend.Item) bool {
			return it.ListID == t.listID && !it.Active
		})
		v.updateListStatsLocked()
	case KindUpdateItemLabel:
		if it := v.itemLocked(t.itemID); it != nil {
			it.Label = t.label
		}
	case KindUpdateListLabel:
		if l := v.listLocked(t.listID); l != nil {
			l.Label = t.label
		}
		if v.selected != nil && v.selected.ID == t.listID {
			v.selected.Label = t.label
		}
	case KindUpdateItemActive:
		if it := v.itemLocked(t.itemID); it != nil {
			it.Active = t.flag
		}
		v.updateListStatsLocked()
	case KindUpdateItemStar:
		if it := v.itemLocked(t.itemID); it != nil {
			it.Star = t.flag
		}
	}
}

// replaceListsLocked installs a fetch result for the lists. Effects of
// mutations still queued behind the fetch are applied again so the view
// keeps reading its own writes.
func (v *Viewer) replaceListsLocked(lists []backend.List) {
	v.lists = lists
	if v.selected != nil {
		if l := v.listLocked(v.selected.ID); l != nil {
			v.selected.Label = l.Label
		}
	}
	v.replayPendingLocked()
	v.updateListStatsLocked()
}

// replaceItemsLocked installs a fetch result for the items of listID.
func (v *Viewer) replaceItemsLocked(listID int64, items []backend.Item) {
	v.items = items
	v.itemsList = listID
	v.replayPendingLocked()
	v.updateListStatsLocked()
}

// replayPendingLocked re-applies queued mutations behind the head task.
func (v *Viewer) replayPendingLocked() {
	if len(v.queue) < 2 {
		return
	}
	for _, t := range v.queue[1:] {
		v.applyLocked(t)
	}
}

// updateListStatsLocked derives the selected list counters from the cached
// items and mirrors them into the matching lists entry. Nothing changes
// while the cached items belong to another list.
func (v *Viewer) updateListStatsLocked() {
	if v.selected == nil || v.itemsList != v.selected.ID {
		return
	}
	total, active := backend.CountItems(v.items)
	v.selected.TotalItems = total
	v.selected.ActiveItems = active
	if l := v.listLocked(v.selected.ID); l != nil {
		l.TotalItems = total
		l.ActiveItems = active
	}
}

func (v *Viewer) listLocked(id int64) *backend.List {
	for i := range v.lists {
		if v.lists[i].ID == id {
			return &v.lists[i]
		}
	}
	return nil
}

func (v *Viewer) itemLocked(id int64) *backend.Item {
	for i := range v.items {
		if v.items[i].ID == id {
			return &v.items[i]
		}
	}
	return nil
}
