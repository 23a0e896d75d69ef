// Package storetest checks that a backend.Store behaves the way the viewer
// expects. Each store package runs the same suite against its own backend.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dolist/backend"
)

// Opener returns a fresh, empty store. The suite closes it.
type Opener func(t *testing.T) backend.Store

// Run executes the conformance suite against stores returned by open.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s backend.Store)
	}{
		{"EmptyStore", testEmptyStore},
		{"CreateAndFetchLists", testCreateAndFetchLists},
		{"ListsOrderedByLabel", testListsOrderedByLabel},
		{"CreateAndFetchItems", testCreateAndFetchItems},
		{"ItemsIsolatedByList", testItemsIsolatedByList},
		{"ItemCounts", testItemCounts},
		{"UpdateItemFields", testUpdateItemFields},
		{"UpdateListLabel", testUpdateListLabel},
		{"LabelsKeepMarkupText", testLabelsKeepMarkupText},
		{"DeleteItem", testDeleteItem},
		{"DeleteInactive", testDeleteInactive},
		{"DeleteListRemovesItems", testDeleteListRemovesItems},
		{"MissingIDsAreNoOps", testMissingIDsAreNoOps},
		{"IDsNotReused", testIDsNotReused},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

// MustList creates a list and returns it as fetched.
func MustList(t *testing.T, s backend.Store, label string) backend.List {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.CreateList(ctx, label))
	lists, err := s.FetchLists(ctx)
	require.NoError(t, err)
	var found *backend.List
	for i := range lists {
		if lists[i].Label == label && (found == nil || lists[i].ID > found.ID) {
			found = &lists[i]
		}
	}
	require.NotNil(t, found, "list %q not fetched", label)
	return *found
}

// MustItem creates an item in listID and returns it as fetched.
func MustItem(t *testing.T, s backend.Store, listID int64, label string) backend.Item {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.CreateItem(ctx, listID, label))
	items, err := s.FetchItems(ctx, listID)
	require.NoError(t, err)
	var found *backend.Item
	for i := range items {
		if items[i].Label == label && (found == nil || items[i].ID > found.ID) {
			found = &items[i]
		}
	}
	require.NotNil(t, found, "item %q not fetched", label)
	return *found
}

func fetchItem(t *testing.T, s backend.Store, listID, itemID int64) *backend.Item {
	t.Helper()
	items, err := s.FetchItems(context.Background(), listID)
	require.NoError(t, err)
	return backend.FindItem(items, itemID)
}

func testEmptyStore(t *testing.T, s backend.Store) {
	lists, err := s.FetchLists(context.Background())
	require.NoError(t, err)
	assert.Empty(t, lists)

	items, err := s.FetchItems(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func testCreateAndFetchLists(t *testing.T, s backend.Store) {
	work := MustList(t, s, "Work")
	home := MustList(t, s, "Home")

	assert.NotZero(t, work.ID)
	assert.NotEqual(t, work.ID, home.ID)
	assert.Zero(t, work.TotalItems)
	assert.Zero(t, work.ActiveItems)
}

func testListsOrderedByLabel(t *testing.T, s backend.Store) {
	MustList(t, s, "zeta")
	MustList(t, s, "Alpha")
	MustList(t, s, "mid")

	lists, err := s.FetchLists(context.Background())
	require.NoError(t, err)
	require.Len(t, lists, 3)
	assert.Equal(t, []string{"Alpha", "mid", "zeta"},
		[]string{lists[0].Label, lists[1].Label, lists[2].Label})
}

func testCreateAndFetchItems(t *testing.T, s backend.Store) {
	list := MustList(t, s, "Groceries")
	milk := MustItem(t, s, list.ID, "milk")
	MustItem(t, s, list.ID, "bread")

	assert.Equal(t, list.ID, milk.ListID)
	assert.True(t, milk.Active, "new items start active")
	assert.False(t, milk.Star)

	items, err := s.FetchItems(context.Background(), list.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "bread", items[0].Label, "items are ordered by label")
	assert.Equal(t, "milk", items[1].Label)
}

func testItemsIsolatedByList(t *testing.T, s backend.Store) {
	a := MustList(t, s, "A")
	b := MustList(t, s, "B")
	MustItem(t, s, a.ID, "only in a")

	items, err := s.FetchItems(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func testItemCounts(t *testing.T, s backend.Store) {
	ctx := context.Background()
	list := MustList(t, s, "Counts")
	first := MustItem(t, s, list.ID, "one")
	MustItem(t, s, list.ID, "two")
	MustItem(t, s, list.ID, "three")
	require.NoError(t, s.UpdateItemActive(ctx, first.ID, false))

	lists, err := s.FetchLists(ctx)
	require.NoError(t, err)
	got := backend.FindList(lists, "Counts")
	require.NotNil(t, got)
	assert.Equal(t, 3, got.TotalItems)
	assert.Equal(t, 2, got.ActiveItems)
}

func testUpdateItemFields(t *testing.T, s backend.Store) {
	ctx := context.Background()
	list := MustList(t, s, "L")
	item := MustItem(t, s, list.ID, "old")

	require.NoError(t, s.UpdateItemLabel(ctx, item.ID, "new"))
	require.NoError(t, s.UpdateItemActive(ctx, item.ID, false))
	require.NoError(t, s.UpdateItemStar(ctx, item.ID, true))

	got := fetchItem(t, s, list.ID, item.ID)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.Label)
	assert.False(t, got.Active)
	assert.True(t, got.Star)

	require.NoError(t, s.UpdateItemActive(ctx, item.ID, true))
	require.NoError(t, s.UpdateItemStar(ctx, item.ID, false))
	got = fetchItem(t, s, list.ID, item.ID)
	assert.True(t, got.Active)
	assert.False(t, got.Star)
}

func testUpdateListLabel(t *testing.T, s backend.Store) {
	ctx := context.Background()
	list := MustList(t, s, "Before")
	require.NoError(t, s.UpdateListLabel(ctx, list.ID, "After"))

	lists, err := s.FetchLists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "After", lists[0].Label)
	assert.Equal(t, list.ID, lists[0].ID)
}

// Labels may contain text a store uses for its own markup.
var markupLabels = []string{
	"rate it 5 *",
	"*",
	"x <!-- id:9 -->",
	`back\slash \*`,
}

func testLabelsKeepMarkupText(t *testing.T, s backend.Store) {
	ctx := context.Background()
	for i, label := range markupLabels {
		list := MustList(t, s, label)
		assert.Equal(t, label, list.Label)

		item := MustItem(t, s, list.ID, label)
		assert.False(t, item.Star, "%q should not read back starred", label)

		star := i%2 == 0
		require.NoError(t, s.UpdateItemStar(ctx, item.ID, star))
		got := fetchItem(t, s, list.ID, item.ID)
		require.NotNil(t, got, "item %q lost after update", label)
		assert.Equal(t, label, got.Label)
		assert.Equal(t, star, got.Star)
	}

	lists, err := s.FetchLists(ctx)
	require.NoError(t, err)
	assert.Len(t, lists, len(markupLabels))
}

func testDeleteItem(t *testing.T, s backend.Store) {
	ctx := context.Background()
	list := MustList(t, s, "L")
	keep := MustItem(t, s, list.ID, "keep")
	drop := MustItem(t, s, list.ID, "drop")

	require.NoError(t, s.DeleteItem(ctx, drop.ID))
	assert.Nil(t, fetchItem(t, s, list.ID, drop.ID))
	assert.NotNil(t, fetchItem(t, s, list.ID, keep.ID))
}

func testDeleteInactive(t *testing.T, s backend.Store) {
	ctx := context.Background()
	list := MustList(t, s, "L")
	other := MustList(t, s, "Other")
	active := MustItem(t, s, list.ID, "a")
	done1 := MustItem(t, s, list.ID, "b")
	done2 := MustItem(t, s, list.ID, "c")
	elsewhere := MustItem(t, s, other.ID, "d")
	require.NoError(t, s.UpdateItemActive(ctx, done1.ID, false))
	require.NoError(t, s.UpdateItemActive(ctx, done2.ID, false))
	require.NoError(t, s.UpdateItemActive(ctx, elsewhere.ID, false))

	require.NoError(t, s.DeleteInactive(ctx, list.ID))

	items, err := s.FetchItems(ctx, list.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, active.ID, items[0].ID)
	assert.NotNil(t, fetchItem(t, s, other.ID, elsewhere.ID), "other lists untouched")
}

func testDeleteListRemovesItems(t *testing.T, s backend.Store) {
	ctx := context.Background()
	list := MustList(t, s, "Doomed")
	MustItem(t, s, list.ID, "x")
	MustItem(t, s, list.ID, "y")

	require.NoError(t, s.DeleteList(ctx, list.ID))

	lists, err := s.FetchLists(ctx)
	require.NoError(t, err)
	assert.Empty(t, lists)
	items, err := s.FetchItems(ctx, list.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func testMissingIDsAreNoOps(t *testing.T, s backend.Store) {
	ctx := context.Background()
	assert.NoError(t, s.DeleteList(ctx, 999))
	assert.NoError(t, s.DeleteItem(ctx, 999))
	assert.NoError(t, s.DeleteInactive(ctx, 999))
	assert.NoError(t, s.UpdateListLabel(ctx, 999, "x"))
	assert.NoError(t, s.UpdateItemLabel(ctx, 999, "x"))
	assert.NoError(t, s.UpdateItemActive(ctx, 999, false))
	assert.NoError(t, s.UpdateItemStar(ctx, 999, true))
}

func testIDsNotReused(t *testing.T, s backend.Store) {
	ctx := context.Background()
	list := MustList(t, s, "L")
	first := MustItem(t, s, list.ID, "first")
	require.NoError(t, s.DeleteItem(ctx, first.ID))
	second := MustItem(t, s, list.ID, "second")

	assert.Greater(t, second.ID, first.ID)
}
