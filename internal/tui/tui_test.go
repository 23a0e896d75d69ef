package tui_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"dolist/backend"
	"dolist/backend/sqlite"
	"dolist/internal/tui"
	"dolist/internal/viewer"
)

// newTestViewer returns a started viewer over an in-memory store holding
// Groceries (bread, butter, done eggs) and Work (report).
func newTestViewer(t *testing.T) (*viewer.Viewer, *sqlite.Backend) {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite.New() error = %v", err)
	}
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	must(store.CreateList(ctx, "Groceries"))
	must(store.CreateList(ctx, "Work"))
	lists, err := store.FetchLists(ctx)
	must(err)
	groceries := backend.FindList(lists, "Groceries").ID
	work := backend.FindList(lists, "Work").ID
	must(store.CreateItem(ctx, groceries, "bread"))
	must(store.CreateItem(ctx, groceries, "butter"))
	must(store.CreateItem(ctx, groceries, "eggs"))
	must(store.CreateItem(ctx, work, "report"))
	items, err := store.FetchItems(ctx, groceries)
	must(err)
	for _, it := range items {
		if it.Label == "eggs" {
			must(store.UpdateItemActive(ctx, it.ID, false))
		}
	}

	v := viewer.New(store)
	if err := v.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		_ = v.Close()
		_ = store.Close()
	})
	return v, store
}

// settle runs cmd and feeds its message back into the model, one level deep
func settle(m *tui.Model, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	if msg := cmd(); msg != nil {
		m.Update(msg)
	}
}

func press(m *tui.Model, keys ...tea.KeyMsg) {
	for _, k := range keys {
		_, cmd := m.Update(k)
		settle(m, cmd)
	}
}

// typeText edits the open input without running the cursor blink command
func typeText(m *tui.Model, keys ...tea.KeyMsg) {
	for _, k := range keys {
		m.Update(k)
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keySpace = tea.KeyMsg{Type: tea.KeySpace}
	keyClear = tea.KeyMsg{Type: tea.KeyCtrlU}
)

// startModel creates a model and runs its initial load
func startModel(t *testing.T, v tui.Viewer) *tui.Model {
	t.Helper()
	m := tui.New(v)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	settle(m, m.Init())
	return m
}

func itemByLabel(items []backend.Item, label string) *backend.Item {
	for _, it := range items {
		if it.Label == label {
			return &it
		}
	}
	return nil
}

// TestInitSelectsFirstList verifies the first list is opened on launch
func TestInitSelectsFirstList(t *testing.T) {
	v, _ := newTestViewer(t)
	m := startModel(t, v)

	sel := v.SelectedList()
	if sel == nil || sel.Label != "Groceries" {
		t.Fatalf("selected = %+v, want Groceries", sel)
	}

	view := m.View()
	for _, want := range []string{"Groceries (2/3)", "Work (1/1)", "bread", "butter", "[x] eggs"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q:\n%s", want, view)
		}
	}
}

// TestToggleItemShowsImmediately verifies a toggle is visible before the store write
func TestToggleItemShowsImmediately(t *testing.T) {
	v, store := newTestViewer(t)
	m := startModel(t, v)

	// Items are ordered by label; bread is first
	press(m, keyTab, keySpace)

	bread := itemByLabel(v.Items(), "bread")
	if bread == nil || bread.Active {
		t.Fatalf("bread should be done in the view: %+v", bread)
	}
	if !strings.Contains(m.View(), "Groceries (1/3)") {
		t.Errorf("counters should follow the toggle:\n%s", m.View())
	}

	if err := v.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	items, err := store.FetchItems(context.Background(), bread.ListID)
	if err != nil {
		t.Fatalf("FetchItems() error = %v", err)
	}
	if stored := backend.FindItem(items, bread.ID); stored == nil || stored.Active {
		t.Errorf("store should have bread done: %+v", stored)
	}
}

// TestStarItem verifies 's' stars the item under the cursor
func TestStarItem(t *testing.T) {
	v, _ := newTestViewer(t)
	m := startModel(t, v)

	press(m, keyTab, runes("j"), runes("s"))

	butter := itemByLabel(v.Items(), "butter")
	if butter == nil || !butter.Star {
		t.Fatalf("butter should be starred: %+v", butter)
	}
	if !strings.Contains(m.View(), "butter ★") {
		t.Errorf("view should mark the star:\n%s", m.View())
	}
}

// TestAddItem verifies 'a' creates an item in the selected list
func TestAddItem(t *testing.T) {
	v, _ := newTestViewer(t)
	m := startModel(t, v)

	press(m, keyTab, runes("a"))
	typeText(m, runes("milk"))
	press(m, keyEnter)

	if itemByLabel(v.Items(), "milk") == nil {
		t.Fatalf("milk should be in the items: %+v", v.Items())
	}
	if !strings.Contains(m.View(), "Groceries (3/4)") {
		t.Errorf("counters should include the new item:\n%s", m.View())
	}
}

// TestAddItemRejectsEmptyLabel verifies blank input is not sent to the store
func TestAddItemRejectsEmptyLabel(t *testing.T) {
	v, _ := newTestViewer(t)
	m := startModel(t, v)

	press(m, keyTab, runes("a"))
	typeText(m, runes("   "))
	press(m, keyEnter)

	if len(v.Items()) != 3 {
		t.Errorf("expected 3 items, got %d", len(v.Items()))
	}
	if !strings.Contains(m.View(), "label must not be empty") {
		t.Errorf("status should explain the rejection:\n%s", m.View())
	}
}

// TestEditItem verifies 'e' relabels the item under the cursor
func TestEditItem(t *testing.T) {
	v, _ := newTestViewer(t)
	m := startModel(t, v)

	press(m, keyTab, runes("e"))
	typeText(m, keyClear, runes("sourdough"))
	press(m, keyEnter)

	if itemByLabel(v.Items(), "sourdough") == nil || itemByLabel(v.Items(), "bread") != nil {
		t.Errorf("bread should be renamed: %+v", v.Items())
	}
}

// TestDeleteItemNeedsConfirmation verifies 'd' only deletes after 'y'
func TestDeleteItemNeedsConfirmation(t *testing.T) {
	v, _ := newTestViewer(t)
	m := startModel(t, v)

	press(m, keyTab, runes("d"))
	if !strings.Contains(m.View(), "Delete selected item?") {
		t.Fatalf("expected confirmation dialog:\n%s", m.View())
	}
	press(m, runes("n"))
	if len(v.Items()) != 3 {
		t.Fatalf("'n' should keep the item, got %d items", len(v.Items()))
	}

	press(m, runes("d"), runes("y"))
	if itemByLabel(v.Items(), "bread") != nil {
		t.Errorf("bread should be deleted: %+v", v.Items())
	}
}

// TestCleanDoneItems verifies 'x' removes the done items of the list
func TestCleanDoneItems(t *testing.T) {
	v, _ := newTestViewer(t)
	m := startModel(t, v)

	press(m, keyTab, runes("x"))

	if itemByLabel(v.Items(), "eggs") != nil {
		t.Errorf("eggs should be removed: %+v", v.Items())
	}
	if !strings.Contains(m.View(), "Groceries (2/2)") {
		t.Errorf("counters should drop the done item:\n%s", m.View())
	}
}

// TestListNavigationSelects verifies moving in the list pane opens the list
func TestListNavigationSelects(t *testing.T) {
	v, _ := newTestViewer(t)
	m := startModel(t, v)

	press(m, runes("j"))

	sel := v.SelectedList()
	if sel == nil || sel.Label != "Work" {
		t.Fatalf("selected = %+v, want Work", sel)
	}
	if !strings.Contains(m.View(), "report") {
		t.Errorf("Work items should be shown:\n%s", m.View())
	}
}

// TestCreateAndRenameList verifies list creation and renaming
func TestCreateAndRenameList(t *testing.T) {
	v, _ := newTestViewer(t)
	m := startModel(t, v)

	press(m, runes("n"))
	typeText(m, runes("Books"))
	press(m, keyEnter)
	if backend.FindList(v.Lists(), "Books") == nil {
		t.Fatalf("Books should exist: %+v", v.Lists())
	}

	// Cursor stays on the selected list, Groceries
	press(m, runes("e"))
	typeText(m, keyClear, runes("Shopping"))
	press(m, keyEnter)
	if backend.FindList(v.Lists(), "Shopping") == nil {
		t.Errorf("Groceries should be renamed: %+v", v.Lists())
	}
	if sel := v.SelectedList(); sel == nil || sel.Label != "Shopping" {
		t.Errorf("selected list label = %+v, want Shopping", sel)
	}
}

// TestDeleteSelectedList verifies deleting the open list clears the item pane
func TestDeleteSelectedList(t *testing.T) {
	v, _ := newTestViewer(t)
	m := startModel(t, v)

	press(m, runes("d"))
	if !strings.Contains(m.View(), "Delete list Groceries") {
		t.Fatalf("expected list confirmation:\n%s", m.View())
	}
	press(m, runes("y"))

	if backend.FindList(v.Lists(), "Groceries") != nil {
		t.Errorf("Groceries should be deleted: %+v", v.Lists())
	}
	if v.SelectedList() != nil || len(v.Items()) != 0 {
		t.Errorf("selection should be cleared, got %+v with %d items", v.SelectedList(), len(v.Items()))
	}
	if !strings.Contains(m.View(), "No items") {
		t.Errorf("item pane should be empty:\n%s", m.View())
	}
}

// TestFuzzyFilter verifies '/' narrows the items with fuzzy matching
func TestFuzzyFilter(t *testing.T) {
	v, _ := newTestViewer(t)
	m := startModel(t, v)

	press(m, runes("/"))
	typeText(m, runes("btr"))
	press(m, keyEnter)

	view := m.View()
	if !strings.Contains(view, "butter") {
		t.Errorf("butter should match 'btr':\n%s", view)
	}
	if strings.Contains(view, "eggs") || strings.Contains(view, "bread") {
		t.Errorf("non-matching items should be hidden:\n%s", view)
	}

	// Toggling acts on the filtered item
	press(m, keySpace)
	if butter := itemByLabel(v.Items(), "butter"); butter == nil || butter.Active {
		t.Errorf("butter should be done: %+v", butter)
	}
}

// TestErrorMsgShowsInStatusBar verifies store failures reach the user
func TestErrorMsgShowsInStatusBar(t *testing.T) {
	v, _ := newTestViewer(t)
	m := startModel(t, v)

	m.Update(tui.ErrorMsg{Err: errors.New("storage delete-item: disk full")})

	if !strings.Contains(m.View(), "disk full") {
		t.Errorf("status bar should show the error:\n%s", m.View())
	}

	// The next key clears it
	press(m, runes("j"))
	if strings.Contains(m.View(), "disk full") {
		t.Error("status should clear on the next key")
	}
}

// TestRefreshMsgReloads verifies external changes are picked up
func TestRefreshMsgReloads(t *testing.T) {
	v, store := newTestViewer(t)
	m := startModel(t, v)

	if err := store.CreateList(context.Background(), "Garden"); err != nil {
		t.Fatalf("CreateList() error = %v", err)
	}
	_, cmd := m.Update(tui.RefreshMsg{})
	settle(m, cmd)

	if !strings.Contains(m.View(), "Garden (0/0)") {
		t.Errorf("refresh should show the new list:\n%s", m.View())
	}
}

// readAll reads all output from a reader and returns as bytes
func readAll(t *testing.T, r io.Reader) []byte {
	t.Helper()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	return out
}

// TestTUILaunch verifies the program renders and quits under a real runtime
func TestTUILaunch(t *testing.T) {
	v, _ := newTestViewer(t)
	tm := teatest.NewTestModel(t, tui.New(v), teatest.WithInitialTermSize(100, 30))

	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("butter"))
	}, teatest.WithDuration(2*time.Second))

	tm.Send(runes("q"))
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
}

// TestTUIHelp verifies '?' shows the key bindings
func TestTUIHelp(t *testing.T) {
	v, _ := newTestViewer(t)
	tm := teatest.NewTestModel(t, tui.New(v), teatest.WithInitialTermSize(100, 30))

	tm.Send(runes("?"))
	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("Key Bindings"))
	}, teatest.WithDuration(2*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyEsc})
	tm.Send(runes("q"))

	out := readAll(t, tm.FinalOutput(t, teatest.WithFinalTimeout(2*time.Second)))
	if len(out) == 0 {
		t.Error("expected TUI to render some output")
	}
}
