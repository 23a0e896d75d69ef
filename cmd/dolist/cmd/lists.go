package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"dolist/backend"
	"dolist/internal/cli/prompt"
	"dolist/internal/utils"
	"dolist/internal/views"
)

// newListCmd creates the 'list' subcommand for list management
func newListCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"lists"},
		Short:   "Manage lists",
		Long:    "View all lists or manage lists with subcommands.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cfg, func(ctx context.Context, s *session) error {
				return doListView(ctx, s, stdout)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	listCmd.AddCommand(newListCreateCmd(stdout, cfg))
	listCmd.AddCommand(newListRenameCmd(stdout, cfg))
	listCmd.AddCommand(newListDeleteCmd(stdout, cfg))

	return listCmd
}

// newListCreateCmd creates the 'list create' subcommand
func newListCreateCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "create <label>",
		Short: "Create a new list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cfg, func(ctx context.Context, s *session) error {
				return doListCreate(ctx, s, strings.Join(args, " "), stdout)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newListRenameCmd creates the 'list rename' subcommand
func newListRenameCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <list> <label>",
		Short: "Rename a list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cfg, func(ctx context.Context, s *session) error {
				return doListRename(ctx, s, args[0], strings.Join(args[1:], " "), stdout)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newListDeleteCmd creates the 'list delete' subcommand
func newListDeleteCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <list>",
		Short: "Delete a list and its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cfg, func(ctx context.Context, s *session) error {
				return doListDelete(ctx, s, args[0], cfg.stdin(), stdout)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// doListView displays all lists with their item counts
func doListView(ctx context.Context, s *session, stdout io.Writer) error {
	if err := s.viewer.FetchLists(ctx); err != nil {
		return err
	}
	lists := s.viewer.Lists()

	if s.jsonOutput() {
		return outputListsJSON(lists, stdout)
	}

	if len(lists) == 0 {
		_, _ = fmt.Fprintln(stdout, "No lists found. Create one with: dolist list create \"Groceries\"")
	} else {
		views.NewRenderer(nil, stdout).RenderLists(lists)
	}
	if s.cfg.NoPrompt {
		_, _ = fmt.Fprintln(stdout, ResultInfoOnly)
	}
	return nil
}

// doListCreate creates a list unless one with the same label exists
func doListCreate(ctx context.Context, s *session, label string, stdout io.Writer) error {
	label, err := utils.ValidateLabel(label)
	if err != nil {
		return err
	}

	if err := s.viewer.FetchLists(ctx); err != nil {
		return err
	}
	for _, l := range s.viewer.Lists() {
		if strings.EqualFold(l.Label, label) {
			return fmt.Errorf("list '%s' already exists", label)
		}
	}

	if err := s.viewer.CreateList(ctx, label); err != nil {
		return err
	}
	created := backend.FindList(s.viewer.Lists(), label)
	if created == nil {
		return fmt.Errorf("list '%s' was not found after creation", label)
	}

	if s.jsonOutput() {
		return outputActionJSON("create_list", created, nil, stdout)
	}
	reportAction(stdout, s.cfg.NoPrompt, "Created list: %s", created.Label)
	return nil
}

// doListRename relabels a list
func doListRename(ctx context.Context, s *session, ref, label string, stdout io.Writer) error {
	label, err := utils.ValidateLabel(label)
	if err != nil {
		return err
	}
	list, err := s.resolveList(ctx, ref)
	if err != nil {
		return err
	}
	old := list.Label

	if err := s.viewer.UpdateListLabel(list.ID, label); err != nil {
		return err
	}
	if err := s.flush(); err != nil {
		return err
	}
	list.Label = label

	if s.jsonOutput() {
		return outputActionJSON("rename_list", list, nil, stdout)
	}
	reportAction(stdout, s.cfg.NoPrompt, "Renamed list: %s -> %s", old, label)
	return nil
}

// doListDelete deletes a list after confirmation
func doListDelete(ctx context.Context, s *session, ref string, stdin io.Reader, stdout io.Writer) error {
	list, err := s.resolveList(ctx, ref)
	if err != nil {
		return err
	}

	if !s.cfg.NoPrompt && !s.jsonOutput() {
		question := fmt.Sprintf("Delete list '%s' and its %d items?", list.Label, list.TotalItems)
		if !prompt.Confirm(stdin, stdout, question) {
			_, _ = fmt.Fprintln(stdout, "Cancelled")
			return nil
		}
	}

	if err := s.viewer.DeleteList(list.ID); err != nil {
		return err
	}
	if err := s.flush(); err != nil {
		return err
	}

	if s.jsonOutput() {
		return outputActionJSON("delete_list", list, nil, stdout)
	}
	reportAction(stdout, s.cfg.NoPrompt, "Deleted list: %s", list.Label)
	return nil
}
