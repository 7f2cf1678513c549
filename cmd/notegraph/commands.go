package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/notegraph/internal"
	"github.com/starford/notegraph/internal/logging"
	"github.com/starford/notegraph/internal/report"
	pkgconfig "github.com/starford/notegraph/pkg/config"
)

// loadConfig reads the config file. The server requires one; the other
// commands fall back to defaults.
func loadConfig(cmd *cli.Command, required bool) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	load := pkgconfig.LoadOptional[internal.Config]
	if required {
		load = pkgconfig.Load[internal.Config]
	}
	if err := load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if v := cmd.String("vault"); v != "" {
		cfg.Vault.Path = v
	}
	return cfg, nil
}

// openCLI opens the vault with a console logger on stderr.
func openCLI(cmd *cli.Command) (*internal.Env, error) {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(os.Stderr, logging.FormatText, cfg.App.LogLevel)
	if err != nil {
		return nil, err
	}
	return internal.Open(internal.WithConfig(cfg), internal.WithLogger(logger))
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func importDir(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		return errors.New("import: directory argument is required")
	}
	env, err := openCLI(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	sum, err := env.Service.ImportDir(ctx, dir)
	if err != nil {
		return err
	}
	fmt.Print(report.Imported(sum))
	return nil
}

func exportDir(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		return errors.New("export: directory argument is required")
	}
	env, err := openCLI(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	dryRun := cmd.Bool("dry-run")
	files, err := env.Service.ExportAll(ctx, dir, dryRun)
	if err != nil {
		return err
	}
	fmt.Print(report.Exported(files, dryRun))
	return nil
}

func listNotes(ctx context.Context, cmd *cli.Command) error {
	env, err := openCLI(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	items, total, err := env.Service.List(ctx, int(cmd.Int("limit")), 0, cmd.String("tag"), "")
	if err != nil {
		return err
	}
	fmt.Print(report.Notes(items, total, time.Now()))
	return nil
}

func showGraph(ctx context.Context, cmd *cli.Command) error {
	env, err := openCLI(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	g, err := env.Service.Graph(ctx)
	if err != nil {
		return err
	}
	fmt.Print(report.Graph(g, int(cmd.Int("top"))))
	return nil
}

// serveMCP logs to stderr since stdout carries the protocol.
func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	logger, err := logging.New(os.Stderr, cfg.App.LogFormat, cfg.App.LogLevel)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg), internal.WithLogger(logger))
}
