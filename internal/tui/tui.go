// Package tui provides a terminal user interface over a list viewer.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"dolist/backend"
	"dolist/internal/utils"
)

// Viewer is the subset of the write-behind viewer the TUI drives.
// Methods without a context return immediately; the others block until
// the store has answered.
type Viewer interface {
	Refresh(ctx context.Context) error
	SetSelectedList(ctx context.Context, list *backend.List) error
	CreateList(ctx context.Context, label string) error
	CreateItem(ctx context.Context, label string) error

	DeleteItem(itemID int64) error
	DeleteList(listID int64) error
	DeleteInactive(listID int64) error
	UpdateItemLabel(itemID int64, label string) error
	UpdateListLabel(listID int64, label string) error
	UpdateItemActive(itemID int64, active bool) error
	UpdateItemStar(itemID int64, star bool) error

	Lists() []backend.List
	Items() []backend.Item
	SelectedList() *backend.List
	Pending() int
}

// Focus indicates which pane has focus
type Focus int

const (
	FocusLists Focus = iota
	FocusItems
)

// Mode indicates the current input mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeAddItem
	ModeEditItem
	ModeAddList
	ModeRenameList
	ModeFilter
	ModeHelp
	ModeConfirmDeleteItem
	ModeConfirmDeleteList
)

// Model represents the TUI state
type Model struct {
	viewer Viewer
	ctx    context.Context

	// Snapshots of the viewer cache
	lists       []backend.List
	items       []backend.Item
	selectedID  int64
	filteredIdx []int // indices into items for the filtered view

	// Selection
	listCursor int
	itemCursor int
	focus      Focus

	// Mode and input
	mode      Mode
	textInput textinput.Model
	filter    string
	status    string
	busy      bool

	// UI dimensions
	width  int
	height int

	// Styles
	listPaneStyle  lipgloss.Style
	itemPaneStyle  lipgloss.Style
	selectedStyle  lipgloss.Style
	inactiveStyle  lipgloss.Style
	starStyle      lipgloss.Style
	helpStyle      lipgloss.Style
	errorStyle     lipgloss.Style
	dialogStyle    lipgloss.Style
	statusBarStyle lipgloss.Style
}

// RefreshMsg asks the model to reload lists and items from the store.
// Send it when the store changed underneath the viewer.
type RefreshMsg struct{}

// ErrorMsg reports a failure to show in the status bar, for example a
// queued write the store rejected.
type ErrorMsg struct {
	Err error
}

// syncedMsg is sent when a blocking viewer call has returned.
type syncedMsg struct {
	err error
}

// New creates a new TUI model
func New(v Viewer) *Model {
	ti := textinput.New()
	ti.Placeholder = "Enter text..."
	ti.CharLimit = utils.MaxLabelLength

	return &Model{
		viewer:    v,
		ctx:       context.Background(),
		textInput: ti,
		focus:     FocusLists,
		mode:      ModeNormal,
		listPaneStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		itemPaneStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		selectedStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		inactiveStyle: lipgloss.NewStyle().
			Strikethrough(true).
			Foreground(lipgloss.Color("240")),
		starStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")),
		helpStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
		dialogStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
		statusBarStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1),
	}
}

// WithContext sets the context used for blocking viewer calls.
func (m *Model) WithContext(ctx context.Context) *Model {
	m.ctx = ctx
	return m
}

// Init loads the lists and selects the first one
func (m *Model) Init() tea.Cmd {
	return m.refresh()
}

// refresh reloads everything and makes sure some list is selected.
func (m *Model) refresh() tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		if err := m.viewer.Refresh(m.ctx); err != nil {
			return syncedMsg{err}
		}
		if m.viewer.SelectedList() == nil {
			if lists := m.viewer.Lists(); len(lists) > 0 {
				return syncedMsg{m.viewer.SetSelectedList(m.ctx, &lists[0])}
			}
		}
		return syncedMsg{}
	}
}

func (m *Model) selectList(list backend.List) tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		return syncedMsg{m.viewer.SetSelectedList(m.ctx, &list)}
	}
}

func (m *Model) createItem(label string) tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		return syncedMsg{m.viewer.CreateItem(m.ctx, label)}
	}
}

func (m *Model) createList(label string) tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		return syncedMsg{m.viewer.CreateList(m.ctx, label)}
	}
}

// apply runs a non-blocking viewer call and shows its effect right away.
func (m *Model) apply(err error) {
	if err != nil {
		m.status = err.Error()
	}
	m.snapshot()
}

// snapshot copies the viewer cache into the model and clamps the cursors.
func (m *Model) snapshot() {
	m.lists = m.viewer.Lists()
	m.items = m.viewer.Items()
	m.selectedID = 0
	if sel := m.viewer.SelectedList(); sel != nil {
		m.selectedID = sel.ID
		for i, l := range m.lists {
			if l.ID == sel.ID {
				m.listCursor = i
				break
			}
		}
	}
	if m.listCursor >= len(m.lists) {
		m.listCursor = max(len(m.lists)-1, 0)
	}
	m.applyFilter()
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case syncedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		m.snapshot()
		return m, nil

	case RefreshMsg:
		return m, m.refresh()

	case ErrorMsg:
		if msg.Err != nil {
			m.status = msg.Err.Error()
		}
		m.snapshot()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeAddItem, ModeEditItem, ModeAddList, ModeRenameList:
			return m.handleInputMode(msg)
		case ModeFilter:
			return m.handleFilterMode(msg)
		case ModeHelp:
			return m.handleHelpMode(msg)
		case ModeConfirmDeleteItem, ModeConfirmDeleteList:
			return m.handleConfirmDeleteMode(msg)
		}
		return m.handleNormalMode(msg)
	}

	if m.mode != ModeNormal {
		m.textInput, cmd = m.textInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab":
		if m.focus == FocusLists {
			m.focus = FocusItems
		} else {
			m.focus = FocusLists
		}
		return m, nil

	case "r":
		return m, m.refresh()

	case "?":
		m.mode = ModeHelp
		return m, nil

	case "/":
		return m, m.openInput(ModeFilter, "Search...", m.filter)
	}

	if m.focus == FocusLists {
		return m.handleListKeys(msg)
	}
	return m.handleItemKeys(msg)
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.listCursor > 0 {
			m.listCursor--
			return m, m.selectList(m.lists[m.listCursor])
		}

	case "down", "j":
		if m.listCursor < len(m.lists)-1 {
			m.listCursor++
			return m, m.selectList(m.lists[m.listCursor])
		}

	case "enter", "right", "l":
		if list := m.currentList(); list != nil {
			m.focus = FocusItems
			if list.ID != m.selectedID {
				return m, m.selectList(*list)
			}
		}

	case "n", "a":
		return m, m.openInput(ModeAddList, "New list name...", "")

	case "e":
		if list := m.currentList(); list != nil {
			return m, m.openInput(ModeRenameList, "List name...", list.Label)
		}

	case "d":
		if m.currentList() != nil {
			m.mode = ModeConfirmDeleteList
		}
	}
	return m, nil
}

func (m *Model) handleItemKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.itemCursor > 0 {
			m.itemCursor--
		}

	case "down", "j":
		if m.itemCursor < len(m.filteredIdx)-1 {
			m.itemCursor++
		}

	case "left", "h", "esc":
		m.focus = FocusLists

	case "a":
		if m.selectedID == 0 {
			m.status = "select a list first"
			return m, nil
		}
		return m, m.openInput(ModeAddItem, "New item...", "")

	case "e":
		if item := m.currentItem(); item != nil {
			return m, m.openInput(ModeEditItem, "Item label...", item.Label)
		}

	case " ", "c":
		if item := m.currentItem(); item != nil {
			m.apply(m.viewer.UpdateItemActive(item.ID, !item.Active))
		}

	case "s":
		if item := m.currentItem(); item != nil {
			m.apply(m.viewer.UpdateItemStar(item.ID, !item.Star))
		}

	case "d":
		if m.currentItem() != nil {
			m.mode = ModeConfirmDeleteItem
		}

	case "x":
		if m.selectedID != 0 {
			m.apply(m.viewer.DeleteInactive(m.selectedID))
		}
	}
	return m, nil
}

func (m *Model) openInput(mode Mode, placeholder, value string) tea.Cmd {
	m.mode = mode
	m.textInput.Reset()
	m.textInput.Placeholder = placeholder
	m.textInput.SetValue(value)
	m.textInput.Focus()
	return textinput.Blink
}

func (m *Model) handleInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.Type {
	case tea.KeyEnter:
		mode := m.mode
		m.mode = ModeNormal
		label, err := utils.ValidateLabel(m.textInput.Value())
		if err != nil {
			m.status = "label must not be empty"
			return m, nil
		}
		switch mode {
		case ModeAddItem:
			return m, m.createItem(label)
		case ModeAddList:
			return m, m.createList(label)
		case ModeEditItem:
			if item := m.currentItem(); item != nil {
				m.apply(m.viewer.UpdateItemLabel(item.ID, label))
			}
		case ModeRenameList:
			if list := m.currentList(); list != nil {
				m.apply(m.viewer.UpdateListLabel(list.ID, label))
			}
		}
		return m, nil

	case tea.KeyEsc:
		m.mode = ModeNormal
		return m, nil
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *Model) handleFilterMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.Type {
	case tea.KeyEnter:
		m.filter = strings.TrimSpace(m.textInput.Value())
		m.applyFilter()
		m.focus = FocusItems
		m.mode = ModeNormal
		return m, nil

	case tea.KeyEsc:
		m.filter = ""
		m.applyFilter()
		m.mode = ModeNormal
		return m, nil
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *Model) handleHelpMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key closes help
	m.mode = ModeNormal
	return m, nil
}

func (m *Model) handleConfirmDeleteMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		switch m.mode {
		case ModeConfirmDeleteItem:
			if item := m.currentItem(); item != nil {
				m.apply(m.viewer.DeleteItem(item.ID))
			}
		case ModeConfirmDeleteList:
			if list := m.currentList(); list != nil {
				m.apply(m.viewer.DeleteList(list.ID))
				m.focus = FocusLists
			}
		}
		m.mode = ModeNormal
		return m, nil

	case "n", "N", "esc":
		m.mode = ModeNormal
		return m, nil
	}

	if msg.Type == tea.KeyEsc {
		m.mode = ModeNormal
	}
	return m, nil
}

// itemSource adapts items to fuzzy.Source.
type itemSource []backend.Item

func (s itemSource) String(i int) string { return s[i].Label }
func (s itemSource) Len() int            { return len(s) }

// applyFilter recomputes the visible items, best fuzzy matches first.
func (m *Model) applyFilter() {
	m.filteredIdx = m.filteredIdx[:0]
	if m.filter == "" {
		for i := range m.items {
			m.filteredIdx = append(m.filteredIdx, i)
		}
	} else {
		for _, match := range fuzzy.FindFrom(m.filter, itemSource(m.items)) {
			m.filteredIdx = append(m.filteredIdx, match.Index)
		}
	}
	if m.itemCursor >= len(m.filteredIdx) {
		m.itemCursor = max(len(m.filteredIdx)-1, 0)
	}
}

func (m *Model) currentList() *backend.List {
	if m.listCursor < 0 || m.listCursor >= len(m.lists) {
		return nil
	}
	return &m.lists[m.listCursor]
}

func (m *Model) currentItem() *backend.Item {
	if m.itemCursor < 0 || m.itemCursor >= len(m.filteredIdx) {
		return nil
	}
	return &m.items[m.filteredIdx[m.itemCursor]]
}

// View renders the TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		m.width = 80
		m.height = 24
	}

	switch m.mode {
	case ModeAddItem:
		return m.renderInputDialog("Add Item", "Enter: confirm  Esc: cancel")
	case ModeEditItem:
		title := "Edit Item"
		if item := m.currentItem(); item != nil {
			title = "Edit: " + item.Label
		}
		return m.renderInputDialog(title, "Enter: confirm  Esc: cancel")
	case ModeAddList:
		return m.renderInputDialog("New List", "Enter: confirm  Esc: cancel")
	case ModeRenameList:
		title := "Rename List"
		if list := m.currentList(); list != nil {
			title = "Rename: " + list.Label
		}
		return m.renderInputDialog(title, "Enter: confirm  Esc: cancel")
	case ModeFilter:
		return m.renderInputDialog("Filter Items", "Enter: filter  Esc: clear")
	case ModeHelp:
		return m.centerDialog(m.dialogStyle.Render(helpText))
	case ModeConfirmDeleteItem:
		return m.renderConfirmDialog("Delete selected item?")
	case ModeConfirmDeleteList:
		label := ""
		if list := m.currentList(); list != nil {
			label = " " + list.Label
		}
		return m.renderConfirmDialog(fmt.Sprintf("Delete list%s and all its items?", label))
	}

	listWidth := m.width / 3
	itemWidth := m.width - listWidth - 4

	listPane := m.listPaneStyle.Width(listWidth).Height(m.height - 4).Render(m.renderListPane(listWidth - 4))
	itemPane := m.itemPaneStyle.Width(itemWidth).Height(m.height - 4).Render(m.renderItemPane(itemWidth - 4))

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, listPane, itemPane))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m *Model) renderListPane(width int) string {
	var b strings.Builder
	b.WriteString("Lists\n")
	b.WriteString(strings.Repeat("─", max(width, 0)))
	b.WriteString("\n")

	if len(m.lists) == 0 {
		b.WriteString(m.helpStyle.Render("No lists, press n") + "\n")
		return b.String()
	}

	for i, list := range m.lists {
		cursor := " "
		if i == m.listCursor && m.focus == FocusLists {
			cursor = ">"
		}
		label := fmt.Sprintf("%s (%d/%d)", list.Label, list.ActiveItems, list.TotalItems)
		if list.ID == m.selectedID {
			label = m.selectedStyle.Render(label)
		}
		b.WriteString(cursor + " " + label + "\n")
	}
	return b.String()
}

func (m *Model) renderItemPane(width int) string {
	var b strings.Builder
	title := "Items"
	if list := m.selectedList(); list != nil {
		title = list.Label
	}
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("─", max(width, 0)))
	b.WriteString("\n")

	if len(m.filteredIdx) == 0 {
		b.WriteString("No items\n")
		return b.String()
	}

	for fi, idx := range m.filteredIdx {
		item := m.items[idx]

		cursor := " "
		if fi == m.itemCursor && m.focus == FocusItems {
			cursor = ">"
		}

		status := "[ ]"
		label := item.Label
		if !item.Active {
			status = "[x]"
			label = m.inactiveStyle.Render(label)
		} else if fi == m.itemCursor && m.focus == FocusItems {
			label = m.selectedStyle.Render(label)
		}
		if item.Star {
			label += " " + m.starStyle.Render("★")
		}

		b.WriteString(cursor + " " + status + " " + label + "\n")
	}
	return b.String()
}

func (m *Model) selectedList() *backend.List {
	for i := range m.lists {
		if m.lists[i].ID == m.selectedID {
			return &m.lists[i]
		}
	}
	return nil
}

func (m *Model) renderStatusBar() string {
	left := ""
	if m.status != "" {
		left = m.errorStyle.Render(m.status)
	} else if list := m.selectedList(); list != nil {
		left = list.Label
	}

	right := "q:quit  ?:help"
	if pending := m.viewer.Pending(); pending > 0 || m.busy {
		right = fmt.Sprintf("syncing %d  ", pending) + right
	}
	if m.filter != "" {
		right = "Filter: " + m.filter + "  " + right
	}

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return m.statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (m *Model) renderInputDialog(title, hint string) string {
	dialog := m.dialogStyle.Render(
		title + "\n\n" +
			m.textInput.View() + "\n\n" +
			m.helpStyle.Render(hint),
	)
	return m.centerDialog(dialog)
}

func (m *Model) renderConfirmDialog(question string) string {
	dialog := m.dialogStyle.Render(
		question + "\n\n" +
			m.helpStyle.Render("y: yes  n: no"),
	)
	return m.centerDialog(dialog)
}

const helpText = `Help - Key Bindings

Navigation:
  j/↓ k/↑  Move down / up
  Tab      Switch focus between lists/items
  Enter    Open the list under the cursor
  r        Reload from the store

Lists:
  n        New list
  e        Rename list
  d        Delete list (with confirm)

Items:
  a        Add item
  e        Edit item
  Space/c  Toggle done
  s        Toggle star
  d        Delete item (with confirm)
  x        Remove done items
  /        Fuzzy filter

General:
  ?        Show this help
  q        Quit

Press any key to close`

func (m *Model) centerDialog(dialog string) string {
	dialogHeight := lipgloss.Height(dialog)
	dialogWidth := lipgloss.Width(dialog)

	topPad := max((m.height-dialogHeight)/2, 0)
	leftPad := max((m.width-dialogWidth)/2, 0)

	var b strings.Builder
	for i := 0; i < topPad; i++ {
		b.WriteString("\n")
	}
	for _, line := range strings.Split(dialog, "\n") {
		b.WriteString(strings.Repeat(" ", leftPad))
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
