package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"dolist/backend"
)

// Result codes for CLI output (used in no-prompt mode)
const (
	ResultActionCompleted = "ACTION_COMPLETED"
	ResultInfoOnly        = "INFO_ONLY"
	ResultError           = "ERROR"
)

type listJSON struct {
	ID     int64  `json:"id"`
	Label  string `json:"label"`
	Active int    `json:"active"`
	Total  int    `json:"total"`
}

type itemJSON struct {
	ID     int64  `json:"id"`
	ListID int64  `json:"list_id"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
	Star   bool   `json:"star"`
}

type listsResponse struct {
	Lists  []listJSON `json:"lists"`
	Count  int        `json:"count"`
	Result string     `json:"result"`
}

type itemsResponse struct {
	List   listJSON   `json:"list"`
	Items  []itemJSON `json:"items"`
	Count  int        `json:"count"`
	Result string     `json:"result"`
}

type actionResponse struct {
	Action string     `json:"action"`
	List   *listJSON  `json:"list,omitempty"`
	Items  []itemJSON `json:"items,omitempty"`
	Result string     `json:"result"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Code   int    `json:"code"`
	Result string `json:"result"`
}

func listToJSON(l *backend.List) listJSON {
	return listJSON{ID: l.ID, Label: l.Label, Active: l.ActiveItems, Total: l.TotalItems}
}

func itemToJSON(it *backend.Item) itemJSON {
	return itemJSON{ID: it.ID, ListID: it.ListID, Label: it.Label, Active: it.Active, Star: it.Star}
}

func writeJSON(stdout io.Writer, v any) error {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(stdout, string(jsonBytes))
	return nil
}

// outputListsJSON outputs lists in JSON format
func outputListsJSON(lists []backend.List, stdout io.Writer) error {
	out := make([]listJSON, 0, len(lists))
	for i := range lists {
		out = append(out, listToJSON(&lists[i]))
	}
	return writeJSON(stdout, listsResponse{Lists: out, Count: len(out), Result: ResultInfoOnly})
}

// outputItemsJSON outputs the items of a list in JSON format
func outputItemsJSON(list *backend.List, items []backend.Item, stdout io.Writer) error {
	out := make([]itemJSON, 0, len(items))
	for i := range items {
		out = append(out, itemToJSON(&items[i]))
	}
	return writeJSON(stdout, itemsResponse{List: listToJSON(list), Items: out, Count: len(out), Result: ResultInfoOnly})
}

// outputActionJSON outputs action result in JSON format
func outputActionJSON(action string, list *backend.List, items []backend.Item, stdout io.Writer) error {
	resp := actionResponse{Action: action, Result: ResultActionCompleted}
	if list != nil {
		l := listToJSON(list)
		resp.List = &l
	}
	for i := range items {
		resp.Items = append(resp.Items, itemToJSON(&items[i]))
	}
	return writeJSON(stdout, resp)
}

// outputErrorJSON outputs error in JSON format
func outputErrorJSON(err error, stdout io.Writer) {
	_ = writeJSON(stdout, errorResponse{Error: err.Error(), Code: 1, Result: ResultError})
}

// reportAction prints a text confirmation, followed by the result code in
// no-prompt mode.
func reportAction(stdout io.Writer, noPrompt bool, format string, args ...any) {
	_, _ = fmt.Fprintf(stdout, format+"\n", args...)
	if noPrompt {
		_, _ = fmt.Fprintln(stdout, ResultActionCompleted)
	}
}
