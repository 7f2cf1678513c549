package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:   "notegraph",
		Usage:  "Linked notes with embeds, stored in SQLite and mirrored to a Markdown vault",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "vault",
				Usage:   "Vault directory (overrides the config file)",
				Sources: cli.EnvVars("NOTEGRAPH_VAULT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:      "import",
				Usage:     "Import the Markdown files of a directory",
				ArgsUsage: "<dir>",
				Action:    importDir,
			},
			{
				Name:      "export",
				Usage:     "Write every note to a directory as Markdown",
				ArgsUsage: "<dir>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Usage: "Show what would change without writing"},
				},
				Action: exportDir,
			},
			{
				Name:  "list",
				Usage: "List notes, most recently updated first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "tag", Usage: "Only notes with this tag"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of notes", Value: 50},
				},
				Action: listNotes,
			},
			{
				Name:  "graph",
				Usage: "Show note graph statistics",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "top", Usage: "Number of most connected notes to show", Value: 10},
				},
				Action: showGraph,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdin/stdout",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
