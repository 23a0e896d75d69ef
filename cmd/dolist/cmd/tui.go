package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dolist/internal/tui"
	"dolist/internal/utils"
	"dolist/internal/viewer"
	"dolist/internal/watcher"
)

// ErrNotATerminal is returned by 'tui' when stdout is not a terminal.
var ErrNotATerminal = errors.New("tui requires a terminal")

// newTUICmd creates the 'tui' subcommand
func newTUICmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Launch the interactive terminal UI",
		Long: `Browse and edit lists in a two-pane terminal UI.
Changes show immediately and are written to the store in the background.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, ok := stdout.(*os.File)
			if !ok || !term.IsTerminal(int(out.Fd())) {
				return ErrNotATerminal
			}
			return runTUI(cfg, out, stderr)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// runTUI starts the viewer and the bubbletea program over it. Console
// logging would corrupt the screen, so worker diagnostics go to the
// background log file while the program runs.
func runTUI(cfg *Config, out *os.File, stderr io.Writer) (err error) {
	appCfg, err := loadConfig(cfg)
	if err != nil {
		return err
	}

	bgLog, logErr := utils.NewBackgroundLoggerWithEnabled(appCfg.IsBackgroundLoggingEnabled())
	if logErr != nil {
		utils.Warnf("background log disabled: %v", logErr)
	}
	defer bgLog.Close()

	var program atomic.Pointer[tea.Program]
	send := func(msg tea.Msg) {
		if p := program.Load(); p != nil {
			p.Send(msg)
		}
	}

	s, err := startSession(appCfg,
		viewer.WithLogger(bgLog),
		viewer.WithErrorHandler(func(kind viewer.Kind, err error) {
			bgLog.Error("%s failed: %v", kind, err)
			send(tui.ErrorMsg{Err: fmt.Errorf("%s: %w", kind, err)})
		}),
	)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.Close()) }()

	if appCfg.UI.Watch {
		path := appCfg.GetBackendPath(appCfg.DefaultBackend)
		w, werr := watcher.New(&watcher.Config{
			Paths:            []string{path},
			DebounceDuration: appCfg.GetWatchDebounce(),
			OnChange: func() {
				bgLog.Debug("store changed on disk, reloading")
				send(tui.RefreshMsg{})
			},
		})
		if werr == nil {
			werr = w.Start()
		}
		if werr != nil {
			bgLog.Warn("watcher disabled: %v", werr)
		} else {
			// Registered last so it stops before the viewer drains
			s.mgr.RegisterCleanup("watcher", func(ctx context.Context) error {
				w.Stop()
				return nil
			})
		}
	}

	utils.GetLogger().SetOutput(io.Discard)
	defer utils.GetLogger().SetOutput(nil)

	model := tui.New(s.viewer).WithContext(s.ctx())
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithOutput(out),
		tea.WithInput(cfg.stdin()),
		tea.WithContext(s.ctx()),
		tea.WithoutSignalHandler(),
	)
	program.Store(p)

	_, runErr := p.Run()
	program.Store(nil)
	if runErr != nil && s.ctx().Err() == nil {
		return fmt.Errorf("tui: %w", runErr)
	}
	if n := s.viewer.Pending(); n > 0 {
		_, _ = fmt.Fprintf(stderr, "Writing %d pending changes...\n", n)
	}
	return nil
}
