// Package markdown parses and formats the markdown list file used by the
// file backend.
package markdown

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"dolist/backend"
)

// Section is one list and its items, in file order.
type Section struct {
	List  backend.List
	Items []backend.Item
}

// Document is a parsed list file.
type Document struct {
	NextListID int64 // last issued list ID
	NextItemID int64 // last issued item ID
	Sections   []Section
}

var (
	counterPattern = regexp.MustCompile(`^<!--\s*dolist\s+next-list:(\d+)\s+next-item:(\d+)\s*-->$`)
	sectionPattern = regexp.MustCompile(`^##\s+(.+)$`)
	itemPattern    = regexp.MustCompile(`^\s*-\s+\[([ xX])\]\s+(.*)$`)
	idPattern      = regexp.MustCompile(`\s*<!--\s*id:(\d+)\s*-->\s*$`)
)

// ParseStatusChar reports whether a checkbox character marks an active item.
func ParseStatusChar(char string) bool {
	return !strings.EqualFold(char, "x")
}

// FormatStatusChar converts the active flag to a checkbox character.
func FormatStatusChar(active bool) string {
	if active {
		return " "
	}
	return "x"
}

// ParseItemText extracts the label and star flag from item text.
// Format: "label" or "label *". Escaped characters in label are restored.
func ParseItemText(text string) (label string, star bool) {
	text = strings.TrimSpace(text)
	if strings.HasSuffix(text, " *") {
		return unescapeText(strings.TrimSpace(strings.TrimSuffix(text, " *"))), true
	}
	return unescapeText(text), false
}

// FormatItemText formats an item label and star flag back to markdown text.
func FormatItemText(label string, star bool) string {
	if star {
		return escapeText(label) + " *"
	}
	return escapeText(label)
}

// escapeText backslash-escapes the characters that would otherwise read
// back as a star marker or an id comment.
func escapeText(s string) string {
	if !strings.ContainsAny(s, `\*<`) {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '*', '<':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// unescapeText reverses escapeText. Backslashes before any other character
// are kept, so hand-written paths survive.
func unescapeText(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && strings.IndexByte(`\*<`, s[i+1]) >= 0 {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// splitID removes a trailing id comment from s.
func splitID(s string) (string, int64) {
	m := idPattern.FindStringSubmatchIndex(s)
	if m == nil {
		return strings.TrimSpace(s), 0
	}
	id, err := strconv.ParseInt(s[m[2]:m[3]], 10, 64)
	if err != nil {
		return strings.TrimSpace(s), 0
	}
	return strings.TrimSpace(s[:m[0]]), id
}

// Parse reads a list file. Lists and items without an id comment, or with
// an id already used, receive fresh ids; changed reports whether that
// happened so the caller can write the file back.
func Parse(data []byte) (doc *Document, changed bool) {
	doc = &Document{}
	seenLists := map[int64]bool{}
	seenItems := map[int64]bool{}
	var missingLists, missingItems []*int64

	scanner := bufio.NewScanner(bytes.NewReader(data))
	var current *Section
	for scanner.Scan() {
		line := scanner.Text()

		if m := counterPattern.FindStringSubmatch(line); m != nil {
			doc.NextListID, _ = strconv.ParseInt(m[1], 10, 64)
			doc.NextItemID, _ = strconv.ParseInt(m[2], 10, 64)
			continue
		}

		if m := sectionPattern.FindStringSubmatch(line); m != nil {
			label, id := splitID(m[1])
			doc.Sections = append(doc.Sections, Section{List: backend.List{ID: id, Label: unescapeText(label)}})
			current = &doc.Sections[len(doc.Sections)-1]
			if id == 0 || seenLists[id] {
				current.List.ID = 0
			} else {
				seenLists[id] = true
			}
			continue
		}

		if m := itemPattern.FindStringSubmatch(line); m != nil && current != nil {
			text, id := splitID(m[2])
			label, star := ParseItemText(text)
			if id != 0 && seenItems[id] {
				id = 0
			}
			if id != 0 {
				seenItems[id] = true
			}
			current.Items = append(current.Items, backend.Item{
				ID:     id,
				Label:  label,
				Active: ParseStatusChar(m[1]),
				Star:   star,
			})
		}
	}

	// Counters never go below ids already in the file
	for id := range seenLists {
		doc.NextListID = max(doc.NextListID, id)
	}
	for id := range seenItems {
		doc.NextItemID = max(doc.NextItemID, id)
	}

	for i := range doc.Sections {
		s := &doc.Sections[i]
		if s.List.ID == 0 {
			missingLists = append(missingLists, &s.List.ID)
		}
		for j := range s.Items {
			if s.Items[j].ID == 0 {
				missingItems = append(missingItems, &s.Items[j].ID)
			}
		}
	}
	for _, p := range missingLists {
		doc.NextListID++
		*p = doc.NextListID
	}
	for _, p := range missingItems {
		doc.NextItemID++
		*p = doc.NextItemID
	}
	for i := range doc.Sections {
		s := &doc.Sections[i]
		for j := range s.Items {
			s.Items[j].ListID = s.List.ID
		}
	}

	return doc, len(missingLists) > 0 || len(missingItems) > 0
}

// Format writes doc back to markdown.
func Format(doc *Document) []byte {
	var sb strings.Builder

	// Write header
	sb.WriteString("# Lists\n\n")
	fmt.Fprintf(&sb, "<!-- dolist next-list:%d next-item:%d -->\n", doc.NextListID, doc.NextItemID)

	for _, s := range doc.Sections {
		fmt.Fprintf(&sb, "\n## %s <!-- id:%d -->\n\n", escapeText(s.List.Label), s.List.ID)
		for _, it := range s.Items {
			fmt.Fprintf(&sb, "- [%s] %s <!-- id:%d -->\n",
				FormatStatusChar(it.Active), FormatItemText(it.Label, it.Star), it.ID)
		}
	}

	return []byte(sb.String())
}

// Section returns the section of listID, or nil.
func (d *Document) Section(listID int64) *Section {
	for i := range d.Sections {
		if d.Sections[i].List.ID == listID {
			return &d.Sections[i]
		}
	}
	return nil
}

// FindItem returns the item with itemID and its section, or nils.
func (d *Document) FindItem(itemID int64) (*Section, *backend.Item) {
	for i := range d.Sections {
		s := &d.Sections[i]
		for j := range s.Items {
			if s.Items[j].ID == itemID {
				return s, &s.Items[j]
			}
		}
	}
	return nil, nil
}
