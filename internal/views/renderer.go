// Package views renders lists and items for the command line.
package views

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"dolist/backend"
)

// Renderer handles rendering items using a view configuration
type Renderer struct {
	view   *View
	writer io.Writer
}

// NewRenderer creates a new view renderer
func NewRenderer(view *View, writer io.Writer) *Renderer {
	if view == nil {
		view = DefaultView()
	}
	return &Renderer{view: view, writer: writer}
}

// RenderItems prints a header for list followed by the items view selects.
func (r *Renderer) RenderItems(list *backend.List, items []backend.Item) {
	if list != nil {
		_, _ = fmt.Fprintf(r.writer, "%s (%d active / %d total)\n", list.Label, list.ActiveItems, list.TotalItems)
	}

	shown := FilterItems(items, r.view)
	if len(shown) == 0 {
		_, _ = fmt.Fprintln(r.writer, "No items")
		return
	}

	rows := make([][]string, 0, len(shown))
	for _, it := range shown {
		label := it.Label
		if it.Star {
			label += " *"
		}
		rows = append(rows, []string{strconv.FormatInt(it.ID, 10), FormatStatus(it.Active), label})
	}
	_, _ = fmt.Fprint(r.writer, renderTable([]string{"ID", "STATUS", "LABEL"}, rows))
}

// RenderLists prints one row per list with its counters.
func (r *Renderer) RenderLists(lists []backend.List) {
	if len(lists) == 0 {
		_, _ = fmt.Fprintln(r.writer, "No lists")
		return
	}

	rows := make([][]string, 0, len(lists))
	for _, l := range lists {
		rows = append(rows, []string{
			strconv.FormatInt(l.ID, 10),
			l.Label,
			strconv.Itoa(l.ActiveItems),
			strconv.Itoa(l.TotalItems),
		})
	}
	_, _ = fmt.Fprint(r.writer, renderTable([]string{"ID", "LIST", "ACTIVE", "TOTAL"}, rows))
}

// FormatStatus formats the active flag for display
func FormatStatus(active bool) string {
	if active {
		return "[ ]"
	}
	return "[x]"
}

// renderTable lays out rows in aligned columns without borders.
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Headers(headers...).
		Rows(rows...).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		BorderRow(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})
	return t.String() + "\n"
}
