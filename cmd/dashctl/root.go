package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ytget/progress-dashboard/internal/config"
	"github.com/ytget/progress-dashboard/internal/logging"
	"github.com/ytget/progress-dashboard/internal/platform"
	"github.com/ytget/progress-dashboard/internal/storage"
	"github.com/ytget/progress-dashboard/internal/store"
)

// AppID matches the desktop application so both share a data directory
const AppID = "com.ytget.progress-dashboard"

// session holds what a single dashctl invocation opened
type session struct {
	configPath  string
	storageKind string
	path        string
	debug       bool

	logger  *zap.Logger
	backend storage.Backend
	store   *store.Store
}

func newRootCmd() *cobra.Command {
	s := &session{}

	root := &cobra.Command{
		Use:           "dashctl",
		Short:         "Inspect and edit the project dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.open()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&s.configPath, "config", "", "YAML config file")
	flags.StringVar(&s.storageKind, "storage", "", "storage backend: memory, badger or sqlite")
	flags.StringVar(&s.path, "path", "", "badger directory or sqlite file")
	flags.BoolVar(&s.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newListCmd(s),
		newAddCmd(s),
		newRemoveCmd(s),
		newReorderCmd(s),
		newResizeCmd(s),
		newSizeCmd(s),
		newCheckNameCmd(s),
		newExportCmd(s),
	)
	return root
}

// open resolves configuration, then opens the backend and the store.
// Flags override the config file.
func (s *session) open() error {
	cfg, err := config.LoadFile(s.configPath)
	if err != nil {
		return err
	}
	if s.storageKind != "" {
		cfg.Storage = s.storageKind
	}
	if s.path != "" {
		cfg.Path = s.path
	}
	if s.debug {
		cfg.LogLevel = logging.LevelDebug
	}

	s.logger, err = logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" && cfg.Storage != storage.KindMemory {
		dataDir, err := platform.GetAppDataDir(AppID)
		if err != nil {
			return err
		}
		if err := platform.CreateDirectoryIfNotExists(dataDir); err != nil {
			return err
		}
		path = platform.StoragePath(dataDir, cfg.Storage)
	}

	s.logger.Debug("opening storage", zap.String("kind", cfg.Storage), zap.String("path", path))
	s.backend, err = storage.Open(cfg.Storage, path)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.Storage, err)
	}

	s.store, err = store.New(s.backend, store.WithLogger(s.logger.Named("store")))
	if err != nil {
		_ = s.backend.Close()
		s.backend = nil
		return err
	}
	return nil
}

// run adapts a command body to cobra and closes the session afterwards
func (s *session) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if closeErr := s.close(); err == nil {
				err = closeErr
			}
		}()
		return fn(cmd, args)
	}
}

func (s *session) close() error {
	var err error
	if s.backend != nil {
		err = s.backend.Close()
		s.backend = nil
	}
	if s.logger != nil {
		_ = s.logger.Sync()
	}
	return err
}
