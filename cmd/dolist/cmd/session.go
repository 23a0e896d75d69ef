package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"dolist/backend"
	"dolist/backend/badger"
	"dolist/backend/file"
	"dolist/backend/sqlite"
	"dolist/internal/config"
	"dolist/internal/shutdown"
	"dolist/internal/utils"
	"dolist/internal/viewer"
)

// closeTimeout bounds how long pending writes may take on exit
const closeTimeout = 30 * time.Second

// session is one command's view of the store: the loaded configuration, the
// opened store and a started viewer over it.
type session struct {
	cfg    *config.Config
	store  backend.Store
	viewer *viewer.Viewer
	mgr    *shutdown.Manager
	stop   func()

	mu     sync.Mutex
	failed []error
}

// loadConfig reads the config file and applies the command-line overrides.
func loadConfig(cfg *Config) (*config.Config, error) {
	appCfg, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	appCfg.ApplyFlags(cfg.Backend, cfg.DBPath, cfg.Verbose, cfg.OutputFormat)
	if cfg.NoPrompt {
		appCfg.NoPrompt = true
	}
	if !config.IsValidBackend(appCfg.DefaultBackend) {
		return nil, utils.ErrUnknownBackend(appCfg.DefaultBackend, config.ValidBackends)
	}
	if err := appCfg.Validate(); err != nil {
		return nil, err
	}
	return appCfg, nil
}

// openStore opens the named backend at path.
func openStore(name, path string) (backend.Store, error) {
	if path == "" {
		return nil, utils.ErrBackendNotConfigured(name)
	}
	switch name {
	case config.BackendFile:
		return file.New(file.Config{FilePath: path})
	case config.BackendBadger:
		return badger.Open(path)
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("could not create data directory: %w", err)
		}
		return sqlite.New(path)
	}
	return nil, utils.ErrUnknownBackend(name, config.ValidBackends)
}

// openSession loads the configuration, opens the store and starts a viewer.
func openSession(cfg *Config) (*session, error) {
	appCfg, err := loadConfig(cfg)
	if err != nil {
		return nil, err
	}
	return startSession(appCfg)
}

// startSession opens the configured store and starts a viewer over it.
// Extra options are applied after the defaults.
func startSession(appCfg *config.Config, opts ...viewer.Option) (*session, error) {
	utils.SetVerboseMode(appCfg.Logging.Verbose)

	name := appCfg.DefaultBackend
	path := appCfg.GetBackendPath(name)
	utils.Debugf("opening %s store at %s", name, path)
	store, err := openStore(name, path)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", name, err)
	}

	s := &session{cfg: appCfg, store: store, mgr: shutdown.NewManager()}

	policy, _ := viewer.ParseUnknownKindPolicy(appCfg.GetUnknownTaskPolicy())
	s.viewer = viewer.New(store, append([]viewer.Option{
		viewer.WithUnknownKindPolicy(policy),
		viewer.WithErrorHandler(s.recordError),
	}, opts...)...)
	if err := s.viewer.Start(); err != nil {
		_ = store.Close()
		return nil, err
	}

	// Cleanups run last-registered first: the viewer drains before the store closes
	s.mgr.RegisterCleanup("store", func(ctx context.Context) error {
		return store.Close()
	})
	s.mgr.RegisterCleanup("viewer", func(ctx context.Context) error {
		return s.viewer.Close()
	})
	s.stop = s.mgr.HandleSignals(os.Interrupt, syscall.SIGTERM)

	return s, nil
}

// ctx is cancelled when the process is interrupted.
func (s *session) ctx() context.Context {
	return s.mgr.Context()
}

// recordError collects failures of queued writes. Fetches and creates are
// waited on, so their callers already hold the error.
func (s *session) recordError(kind viewer.Kind, err error) {
	if kind.IsFetch() || kind == viewer.KindCreateList || kind == viewer.KindCreateItem {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, err)
}

func (s *session) takeErrors() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := errors.Join(s.failed...)
	s.failed = nil
	return err
}

// flush waits for queued writes and reports the ones that failed.
func (s *session) flush() error {
	if err := s.viewer.Flush(s.ctx()); err != nil {
		return err
	}
	return s.takeErrors()
}

// Close drains the viewer and closes the store.
func (s *session) Close() error {
	s.stop()
	s.mgr.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	err := s.mgr.Wait(ctx)
	return errors.Join(err, s.takeErrors())
}

// withSession runs fn against a fresh session and closes it afterwards.
func withSession(cfg *Config, fn func(ctx context.Context, s *session) error) (err error) {
	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.Close()) }()
	return fn(s.ctx(), s)
}

// resolveList reloads the lists and finds ref by id or label.
func (s *session) resolveList(ctx context.Context, ref string) (*backend.List, error) {
	if err := s.viewer.FetchLists(ctx); err != nil {
		return nil, err
	}
	lists := s.viewer.Lists()
	if len(lists) == 0 {
		return nil, utils.ErrNoListsAvailable()
	}
	list := backend.FindList(lists, ref)
	if list == nil {
		return nil, utils.ErrListNotFound(ref)
	}
	return list, nil
}

// openList selects ref so its items are cached.
func (s *session) openList(ctx context.Context, ref string) (*backend.List, error) {
	list, err := s.resolveList(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.viewer.SetSelectedList(ctx, list); err != nil {
		return nil, err
	}
	return s.viewer.SelectedList(), nil
}

func (s *session) jsonOutput() bool {
	return s.cfg.OutputFormat == "json"
}
