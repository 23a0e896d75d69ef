// Package prompt handles interactive prompts with no-prompt mode support.
// It resolves item references typed on the command line by fuzzy matching
// and asks for missing labels.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"

	"dolist/backend"
	"dolist/internal/utils"
)

// Sentinel errors for prompt operations.
var (
	ErrSelectionCancelled = errors.New("selection cancelled")
	ErrNoPromptMode       = errors.New("interactive prompts disabled (--no-prompt / -y)")
	ErrNoItems            = errors.New("no items available")
	ErrNoMatches          = errors.New("no items match the filter")
	ErrAmbiguous          = errors.New("reference matches more than one item")
)

// itemSource adapts items to fuzzy.Source.
type itemSource []backend.Item

func (s itemSource) String(i int) string { return s[i].Label }
func (s itemSource) Len() int            { return len(s) }

// Match returns the items whose label fuzzy-matches query, best match first.
// An exact label match (case-insensitive) is returned alone.
func Match(items []backend.Item, query string) []backend.Item {
	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]backend.Item, len(items))
		copy(out, items)
		return out
	}
	for _, it := range items {
		if strings.EqualFold(it.Label, query) {
			return []backend.Item{it}
		}
	}
	var out []backend.Item
	for _, m := range fuzzy.FindFrom(query, itemSource(items)) {
		out = append(out, items[m.Index])
	}
	return out
}

// ItemSelector resolves an item reference: a numeric id, or label text
// that is fuzzy matched. Several matches are offered as a numbered menu.
type ItemSelector struct {
	Items    []backend.Item
	Prompt   string
	Reader   io.Reader
	Writer   io.Writer
	NoPrompt bool
}

// Resolve returns the item ref names.
// Numeric refs must match an item id. Text refs that match one item select
// it; more matches prompt the user, or fail with ErrAmbiguous in no-prompt
// mode.
func (s *ItemSelector) Resolve(ref string) (*backend.Item, error) {
	if len(s.Items) == 0 {
		return nil, ErrNoItems
	}
	if id, err := strconv.ParseInt(strings.TrimSpace(ref), 10, 64); err == nil {
		if it := backend.FindItem(s.Items, id); it != nil {
			return it, nil
		}
	}

	matches := Match(s.Items, ref)
	switch {
	case len(matches) == 0:
		return nil, ErrNoMatches
	case len(matches) == 1:
		return &matches[0], nil
	case s.NoPrompt:
		return nil, fmt.Errorf("%w: %q (%d matches)", ErrAmbiguous, ref, len(matches))
	}
	return s.choose(matches)
}

// choose lists items and reads a 1-based selection.
func (s *ItemSelector) choose(items []backend.Item) (*backend.Item, error) {
	writer := s.Writer
	if writer == nil {
		writer = io.Discard
	}
	if s.Reader == nil {
		return nil, ErrSelectionCancelled
	}
	scanner := bufio.NewScanner(s.Reader)

	if s.Prompt != "" {
		_, _ = fmt.Fprintln(writer, s.Prompt)
	}
	for i, it := range items {
		_, _ = fmt.Fprintf(writer, "  %d) %s\n", i+1, FormatItemLine(it))
	}

	_, _ = fmt.Fprintf(writer, "Select (0 to cancel): ")
	if !scanner.Scan() {
		return nil, ErrSelectionCancelled
	}

	input := strings.TrimSpace(scanner.Text())
	num, err := strconv.Atoi(input)
	if err != nil {
		return nil, fmt.Errorf("invalid selection: %s", input)
	}
	if num == 0 {
		return nil, ErrSelectionCancelled
	}
	if num < 1 || num > len(items) {
		return nil, fmt.Errorf("selection out of range: %d", num)
	}
	return &items[num-1], nil
}

// FormatItemLine formats an item as "[ ] label *  (#id)".
func FormatItemLine(it backend.Item) string {
	var b strings.Builder
	if it.Active {
		b.WriteString("[ ] ")
	} else {
		b.WriteString("[x] ")
	}
	b.WriteString(it.Label)
	if it.Star {
		b.WriteString(" *")
	}
	fmt.Fprintf(&b, "  (#%d)", it.ID)
	return b.String()
}

// FilterItemsByAction narrows the candidates for an action: "done" only
// offers active items and "undo" only inactive ones. Other actions see
// every item.
func FilterItemsByAction(items []backend.Item, action string) []backend.Item {
	var keep func(backend.Item) bool
	switch action {
	case "done":
		keep = func(it backend.Item) bool { return it.Active }
	case "undo":
		keep = func(it backend.Item) bool { return !it.Active }
	default:
		result := make([]backend.Item, len(items))
		copy(result, items)
		return result
	}

	var filtered []backend.Item
	for _, it := range items {
		if keep(it) {
			filtered = append(filtered, it)
		}
	}
	return filtered
}

// LabelPrompter asks for a label until a valid one is entered.
type LabelPrompter struct {
	Reader   io.Reader
	Writer   io.Writer
	NoPrompt bool
}

// Run prompts with prompt and returns the trimmed label.
func (p *LabelPrompter) Run(prompt string) (string, error) {
	if p.NoPrompt {
		return "", ErrNoPromptMode
	}
	if p.Reader == nil {
		return "", ErrSelectionCancelled
	}

	writer := p.Writer
	if writer == nil {
		writer = io.Discard
	}
	scanner := bufio.NewScanner(p.Reader)

	for {
		_, _ = fmt.Fprintf(writer, "%s: ", prompt)
		if !scanner.Scan() {
			return "", ErrSelectionCancelled
		}
		label, err := utils.ValidateLabel(scanner.Text())
		if err == nil {
			return label, nil
		}
		_, _ = fmt.Fprintln(writer, "Label cannot be empty.")
	}
}

// Confirm asks a yes/no question until it gets an answer. End of input
// counts as no.
func Confirm(reader io.Reader, writer io.Writer, question string) bool {
	if reader == nil {
		return false
	}
	if writer == nil {
		writer = io.Discard
	}
	scanner := bufio.NewScanner(reader)

	for {
		_, _ = fmt.Fprintf(writer, "%s (y/n): ", question)
		if !scanner.Scan() {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
	}
}
