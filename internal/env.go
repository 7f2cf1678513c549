package internal

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/notegraph/internal/doccache"
	"github.com/starford/notegraph/internal/index"
	"github.com/starford/notegraph/internal/logging"
	"github.com/starford/notegraph/internal/noteservice"
	"github.com/starford/notegraph/internal/storage"
)

// Env holds the opened vault, index and note service.
type Env struct {
	Config  *Config
	Logger  *slog.Logger
	Vault   *storage.FS
	DB      *index.DB
	Service *noteservice.Service
}

// Open opens the vault and index described by the configuration option and
// builds the note service over them. The caller must Close the Env.
func Open(opts ...Option) (*Env, error) {
	return newApplication(opts).open()
}

func newApplication(opts []Option) *application {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// initLogger builds the logger from the configuration unless one was
// given.
func (a *application) initLogger() (*slog.Logger, error) {
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if a.logger == nil {
		l, err := logging.New(os.Stdout, a.config.App.LogFormat, a.config.App.LogLevel)
		if err != nil {
			return nil, err
		}
		a.logger = l
	}
	return a.logger, nil
}

func (a *application) open(svcOpts ...noteservice.Option) (*Env, error) {
	logger, err := a.initLogger()
	if err != nil {
		return nil, err
	}
	cfg := a.config

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	vault, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	opts := append([]noteservice.Option{
		noteservice.WithLogger(logger),
		noteservice.WithDocCache(doccache.New(cfg.Cache.Documents, logger)),
		noteservice.WithMaxEmbedDepth(cfg.Render.MaxEmbedDepth),
	}, svcOpts...)

	return &Env{
		Config:  cfg,
		Logger:  logger,
		Vault:   vault,
		DB:      db,
		Service: noteservice.NewService(vault, db, opts...),
	}, nil
}

// Close releases the index.
func (e *Env) Close() error {
	return e.DB.Close()
}
