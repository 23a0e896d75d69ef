package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dolist/backend"
	"dolist/backend/storetest"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) backend.Store {
		s, err := Open("")
		require.NoError(t, err)
		return s
	})
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	require.NoError(t, err)
	list := storetest.MustList(t, s, "Groceries")
	first := storetest.MustItem(t, s, list.ID, "milk")
	require.NoError(t, s.UpdateItemActive(ctx, first.ID, false))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	items, err := s.FetchItems(ctx, list.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "milk", items[0].Label)
	assert.False(t, items[0].Active)

	// Sequences survive the reopen too
	second := storetest.MustItem(t, s, list.ID, "eggs")
	assert.Greater(t, second.ID, first.ID)
}

func TestCreateItemRequiresList(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	err = s.CreateItem(context.Background(), 42, "orphan")
	assert.ErrorContains(t, err, "list 42 not found")
}

func TestListPrefixesDoNotCollide(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	var lists []backend.List
	for i := 0; i < 10; i++ {
		lists = append(lists, storetest.MustList(t, s, string(rune('a'+i))))
	}
	// list 1 and list 10 share a decimal prefix
	storetest.MustItem(t, s, lists[9].ID, "in ten")

	items, err := s.FetchItems(ctx, lists[0].ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCancelledContext(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.CreateList(ctx, "x"), context.Canceled)
	_, err = s.FetchLists(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
