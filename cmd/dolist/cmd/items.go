package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"dolist/backend"
	"dolist/internal/cli/prompt"
	"dolist/internal/utils"
	"dolist/internal/views"
)

// itemAction describes a command that changes one or more items.
type itemAction struct {
	use     string
	aliases []string
	short   string
	verb    string // past tense for the confirmation line
	filter  string // prompt.FilterItemsByAction key
	apply   func(s *session, it *backend.Item) error
}

var itemActions = []itemAction{
	{
		use: "done", aliases: []string{"complete"}, short: "Mark items as done", verb: "Completed", filter: "done",
		apply: func(s *session, it *backend.Item) error { return s.viewer.UpdateItemActive(it.ID, false) },
	},
	{
		use: "undo", aliases: []string{"reopen"}, short: "Mark items as not done", verb: "Reopened", filter: "undo",
		apply: func(s *session, it *backend.Item) error { return s.viewer.UpdateItemActive(it.ID, true) },
	},
	{
		use: "star", short: "Star items", verb: "Starred",
		apply: func(s *session, it *backend.Item) error { return s.viewer.UpdateItemStar(it.ID, true) },
	},
	{
		use: "unstar", short: "Remove the star from items", verb: "Unstarred",
		apply: func(s *session, it *backend.Item) error { return s.viewer.UpdateItemStar(it.ID, false) },
	},
	{
		use: "rm", aliases: []string{"delete"}, short: "Delete items", verb: "Deleted",
		apply: func(s *session, it *backend.Item) error { return s.viewer.DeleteItem(it.ID) },
	},
}

// newItemsCmd creates the 'items' subcommand
func newItemsCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items <list>",
		Short: "Show the items of a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			viewName, _ := cmd.Flags().GetString("view")
			view, err := views.Lookup(viewName)
			if err != nil {
				return err
			}
			return withSession(cfg, func(ctx context.Context, s *session) error {
				return doItemsView(ctx, s, args[0], view, stdout)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().StringP("view", "v", "", "View to display (default, active, starred)")
	return cmd
}

// newAddCmd creates the 'add' subcommand
func newAddCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "add <list> [label]",
		Short: "Add an item to a list",
		Long:  "Add an item to a list. Without a label, the label is read from the prompt.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cfg, func(ctx context.Context, s *session) error {
				label := strings.Join(args[1:], " ")
				if label == "" {
					p := &prompt.LabelPrompter{Reader: cfg.stdin(), Writer: stdout, NoPrompt: s.cfg.NoPrompt}
					var err error
					if label, err = p.Run("Label"); err != nil {
						if errors.Is(err, prompt.ErrNoPromptMode) {
							return fmt.Errorf("a label is required in no-prompt mode")
						}
						return err
					}
				}
				return doAdd(ctx, s, args[0], label, stdout)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newItemActionCmd creates a subcommand that applies a to each named item
func newItemActionCmd(stdout io.Writer, cfg *Config, a itemAction) *cobra.Command {
	return &cobra.Command{
		Use:     a.use + " <list> <item>...",
		Aliases: a.aliases,
		Short:   a.short,
		Long:    a.short + ". Items are given by id or by label; labels are fuzzy matched.",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cfg, func(ctx context.Context, s *session) error {
				return doItemAction(ctx, s, a, args[0], args[1:], cfg.stdin(), stdout)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newRenameCmd creates the 'rename' subcommand
func newRenameCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <list> <item> <label>",
		Short: "Change the label of an item",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cfg, func(ctx context.Context, s *session) error {
				return doRename(ctx, s, args[0], args[1], strings.Join(args[2:], " "), cfg.stdin(), stdout)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newCleanCmd creates the 'clean' subcommand
func newCleanCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "clean <list>",
		Short: "Delete the done items of a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cfg, func(ctx context.Context, s *session) error {
				return doClean(ctx, s, args[0], stdout)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// doItemsView prints the items of a list through view
func doItemsView(ctx context.Context, s *session, ref string, view *views.View, stdout io.Writer) error {
	list, err := s.openList(ctx, ref)
	if err != nil {
		return err
	}
	items := s.viewer.Items()

	if s.jsonOutput() {
		return outputItemsJSON(list, views.FilterItems(items, view), stdout)
	}

	views.NewRenderer(view, stdout).RenderItems(list, items)
	if s.cfg.NoPrompt {
		_, _ = fmt.Fprintln(stdout, ResultInfoOnly)
	}
	return nil
}

// doAdd creates an item in the list ref names
func doAdd(ctx context.Context, s *session, ref, label string, stdout io.Writer) error {
	label, err := utils.ValidateLabel(label)
	if err != nil {
		return err
	}
	if _, err := s.openList(ctx, ref); err != nil {
		return err
	}

	before := make(map[int64]bool)
	for _, it := range s.viewer.Items() {
		before[it.ID] = true
	}
	if err := s.viewer.CreateItem(ctx, label); err != nil {
		return err
	}

	var created *backend.Item
	for _, it := range s.viewer.Items() {
		if !before[it.ID] && it.Label == label {
			created = &it
			break
		}
	}
	if created == nil {
		return fmt.Errorf("item '%s' was not found after creation", label)
	}

	if s.jsonOutput() {
		return outputActionJSON("add", s.viewer.SelectedList(), []backend.Item{*created}, stdout)
	}
	reportAction(stdout, s.cfg.NoPrompt, "Added item: %s", created.Label)
	return nil
}

// doItemAction resolves every ref before applying a, so a bad ref leaves the
// list untouched.
func doItemAction(ctx context.Context, s *session, a itemAction, listRef string, refs []string, stdin io.Reader, stdout io.Writer) error {
	list, err := s.openList(ctx, listRef)
	if err != nil {
		return err
	}
	items := s.viewer.Items()

	var targets []backend.Item
	seen := make(map[int64]bool)
	for _, ref := range refs {
		it, err := resolveItem(s, list, items, ref, a.filter, stdin, stdout)
		if err != nil {
			return err
		}
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		targets = append(targets, *it)
	}

	for i := range targets {
		if err := a.apply(s, &targets[i]); err != nil {
			return err
		}
	}
	if err := s.flush(); err != nil {
		return err
	}

	if s.jsonOutput() {
		return outputActionJSON(a.use, s.viewer.SelectedList(), updated(s, targets), stdout)
	}
	for _, it := range targets {
		_, _ = fmt.Fprintf(stdout, "%s item: %s\n", a.verb, it.Label)
	}
	if s.cfg.NoPrompt {
		_, _ = fmt.Fprintln(stdout, ResultActionCompleted)
	}
	return nil
}

// doRename relabels one item
func doRename(ctx context.Context, s *session, listRef, ref, label string, stdin io.Reader, stdout io.Writer) error {
	label, err := utils.ValidateLabel(label)
	if err != nil {
		return err
	}
	list, err := s.openList(ctx, listRef)
	if err != nil {
		return err
	}
	it, err := resolveItem(s, list, s.viewer.Items(), ref, "rename", stdin, stdout)
	if err != nil {
		return err
	}
	old := it.Label

	if err := s.viewer.UpdateItemLabel(it.ID, label); err != nil {
		return err
	}
	if err := s.flush(); err != nil {
		return err
	}

	if s.jsonOutput() {
		return outputActionJSON("rename", s.viewer.SelectedList(), updated(s, []backend.Item{*it}), stdout)
	}
	reportAction(stdout, s.cfg.NoPrompt, "Renamed item: %s -> %s", old, label)
	return nil
}

// doClean deletes the done items of a list
func doClean(ctx context.Context, s *session, ref string, stdout io.Writer) error {
	list, err := s.openList(ctx, ref)
	if err != nil {
		return err
	}

	var removed []backend.Item
	for _, it := range s.viewer.Items() {
		if !it.Active {
			removed = append(removed, it)
		}
	}

	if err := s.viewer.DeleteInactive(list.ID); err != nil {
		return err
	}
	if err := s.flush(); err != nil {
		return err
	}

	if s.jsonOutput() {
		return outputActionJSON("clean", s.viewer.SelectedList(), removed, stdout)
	}
	reportAction(stdout, s.cfg.NoPrompt, "Removed %d done items from %s", len(removed), list.Label)
	return nil
}

// resolveItem finds ref among items. An id matches any item; text is
// matched against the items the action applies to.
func resolveItem(s *session, list *backend.List, items []backend.Item, ref, action string, stdin io.Reader, stdout io.Writer) (*backend.Item, error) {
	if id, err := utils.ParseItemID(ref); err == nil {
		if it := backend.FindItem(items, id); it != nil {
			return it, nil
		}
		return nil, utils.ErrItemNotFound(ref, list.Label)
	}

	selector := &prompt.ItemSelector{
		Items:    prompt.FilterItemsByAction(items, action),
		Prompt:   fmt.Sprintf("Several items match %q:", ref),
		Reader:   stdin,
		Writer:   stdout,
		NoPrompt: s.cfg.NoPrompt || s.jsonOutput(),
	}
	it, err := selector.Resolve(ref)
	if errors.Is(err, prompt.ErrNoMatches) || errors.Is(err, prompt.ErrNoItems) {
		return nil, utils.ErrItemNotFound(ref, list.Label)
	}
	return it, err
}

// updated returns the cached state of targets. Deleted items keep their
// last known state.
func updated(s *session, targets []backend.Item) []backend.Item {
	items := s.viewer.Items()
	out := make([]backend.Item, 0, len(targets))
	for _, t := range targets {
		if it := backend.FindItem(items, t.ID); it != nil {
			out = append(out, *it)
		} else {
			out = append(out, t)
		}
	}
	return out
}
