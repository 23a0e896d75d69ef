package viewer

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind identifies the storage operation a queued task performs.
type Kind int

const (
	KindFetchLists Kind = iota
	KindFetchItems
	KindUpdateItemActive
	KindUpdateItemLabel
	KindUpdateListLabel
	KindDeleteList
	KindDeleteItem
	KindDeleteInactive
	KindCreateList
	KindCreateItem
	KindUpdateItemStar
)

// String returns the string representation of the task kind.
func (k Kind) String() string {
	switch k {
	case KindFetchLists:
		return "fetch-lists"
	case KindFetchItems:
		return "fetch-items"
	case KindUpdateItemActive:
		return "update-item-active"
	case KindUpdateItemLabel:
		return "update-item-label"
	case KindUpdateListLabel:
		return "update-list-label"
	case KindDeleteList:
		return "delete-list"
	case KindDeleteItem:
		return "delete-item"
	case KindDeleteInactive:
		return "delete-inactive"
	case KindCreateList:
		return "create-list"
	case KindCreateItem:
		return "create-item"
	case KindUpdateItemStar:
		return "update-item-star"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IsFetch reports whether the kind replaces cache contents on completion.
func (k Kind) IsFetch() bool {
	return k == KindFetchLists || k == KindFetchItems
}

// task is one queued storage operation. Only done and err change after
// creation, and only under the viewer lock.
type task struct {
	id     string
	kind   Kind
	listID int64
	itemID int64
	label  string
	flag   bool // active or star, depending on kind

	done bool
	err  error
}

func newTask(kind Kind) *task {
	return &task{id: uuid.NewString(), kind: kind}
}

func fetchListsTask() *task {
	return newTask(KindFetchLists)
}

func fetchItemsTask(listID int64) *task {
	t := newTask(KindFetchItems)
	t.listID = listID
	return t
}

func createListTask(label string) *task {
	t := newTask(KindCreateList)
	t.label = label
	return t
}

func createItemTask(listID int64, label string) *task {
	t := newTask(KindCreateItem)
	t.listID = listID
	t.label = label
	return t
}

func deleteListTask(listID int64) *task {
	t := newTask(KindDeleteList)
	t.listID = listID
	return t
}

func deleteItemTask(itemID int64) *task {
	t := newTask(KindDeleteItem)
	t.itemID = itemID
	return t
}

func deleteInactiveTask(listID int64) *task {
	t := newTask(KindDeleteInactive)
	t.listID = listID
	return t
}

func updateItemLabelTask(itemID int64, label string) *task {
	t := newTask(KindUpdateItemLabel)
	t.itemID = itemID
	t.label = label
	return t
}

func updateListLabelTask(listID int64, label string) *task {
	t := newTask(KindUpdateListLabel)
	t.listID = listID
	t.label = label
	return t
}

func updateItemActiveTask(itemID int64, active bool) *task {
	t := newTask(KindUpdateItemActive)
	t.itemID = itemID
	t.flag = active
	return t
}

func updateItemStarTask(itemID int64, star bool) *task {
	t := newTask(KindUpdateItemStar)
	t.itemID = itemID
	t.flag = star
	return t
}

// short returns the first block of the task id for log lines.
func (t *task) short() string {
	if len(t.id) >= 8 {
		return t.id[:8]
	}
	return t.id
}
