package views

import (
	"fmt"
	"strings"
)

// View represents an item display configuration
type View struct {
	Name         string
	Description  string
	ActiveOnly   bool // hide items that have been ticked off
	StarredOnly  bool
	StarredFirst bool // starred items sort before the rest
}

// builtinViews maps view names to their definitions
var builtinViews = map[string]*View{
	"default": {
		Name:        "default",
		Description: "Every item, ordered by label",
	},
	"active": {
		Name:         "active",
		Description:  "Items still to do, starred first",
		ActiveOnly:   true,
		StarredFirst: true,
	},
	"starred": {
		Name:        "starred",
		Description: "Starred items only",
		StarredOnly: true,
	},
}

// ViewNames lists the built-in view names
var ViewNames = []string{"default", "active", "starred"}

// DefaultView returns the built-in default view
func DefaultView() *View {
	v := *builtinViews["default"]
	return &v
}

// Lookup returns a copy of the named built-in view
func Lookup(name string) (*View, error) {
	if name == "" {
		return DefaultView(), nil
	}
	v, ok := builtinViews[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown view: %s (valid: %s)", name, strings.Join(ViewNames, ", "))
	}
	cp := *v
	return &cp, nil
}
