// ABOUTME: Entry point for the prospekt CLI, terminal UI, and MCP server
// ABOUTME: Loads configuration, applies global flags, and routes to commands
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"github.com/harperreed/prospekt/cli"
	"github.com/harperreed/prospekt/config"
	"github.com/harperreed/prospekt/listview"
)

const version = "0.2.0"

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	configPath := flag.String("config", "", "Config file (default: ~/.config/prospekt/config.json)")
	backend := flag.String("backend", "", "Storage backend: charm or sqlite")
	dbPath := flag.String("db-path", "", "SQLite database path (default: ~/.local/share/prospekt/prospekt.db)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")

	// Stop at the first command so subcommand flags are left alone
	flag.CommandLine.SetInterspersed(false)
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("prospekt version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	cfg, err := config.Load(config.LoadInput{ConfigPath: *configPath})
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Error: %v", err)
	}

	// stdout belongs to command output and, for mcp, to the protocol
	logger := cfg.Logger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := args[0]
	commandArgs := args[1:]
	stdio := cli.IO{In: os.Stdin, Out: os.Stdout}

	withSession := func(fn func(*listview.Session) error) error {
		return cli.WithSession(ctx, cfg, logger, nil, fn)
	}

	switch command {
	case "tui":
		err = cli.TUICommand(ctx, cfg, commandArgs)
	case "mcp":
		err = cli.MCPCommand(ctx, cfg, logger, version, os.Stderr, commandArgs)
	case "list", "ls":
		err = withSession(func(sess *listview.Session) error {
			return cli.ListCommand(ctx, sess, os.Stdout, commandArgs)
		})
	case "add":
		err = withSession(func(sess *listview.Session) error {
			return cli.AddCommand(ctx, sess, os.Stdout, commandArgs)
		})
	case "show":
		err = withSession(func(sess *listview.Session) error {
			return cli.ShowCommand(ctx, sess, os.Stdout, commandArgs)
		})
	case "status":
		err = withSession(func(sess *listview.Session) error {
			return cli.StatusCommand(ctx, sess, os.Stdout, commandArgs)
		})
	case "archive":
		err = withSession(func(sess *listview.Session) error {
			return cli.ArchiveCommand(ctx, sess, stdio, commandArgs)
		})
	case "delete", "rm":
		err = withSession(func(sess *listview.Session) error {
			return cli.DeleteCommand(ctx, sess, stdio, commandArgs)
		})
	case "statuses":
		err = withSession(func(sess *listview.Session) error {
			return cli.StatusesCommand(sess, os.Stdout, commandArgs)
		})
	case "viz":
		err = withSession(func(sess *listview.Session) error {
			return cli.VizCommand(ctx, sess, logger, os.Stdout, commandArgs)
		})
	case "sync":
		err = cli.SyncCommand(cfg, logger, os.Stdout, commandArgs)
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func printUsage() {
	fmt.Printf(`prospekt v%s - Sales prospect tracker

USAGE:
  prospekt [global flags] <command> [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --config <path>        Config file (default: ~/.config/prospekt/config.json)
  --backend <name>       Storage backend: charm (default) or sqlite
  --db-path <path>       SQLite database path
  --log-level <level>    Log level: debug, info, warn, error

COMMANDS:
  tui                    Interactive prospect list
  mcp                    Start MCP server for Claude Desktop
  list                   List live prospects
  add                    Add a prospect
  show <id>              Show one prospect
  status <id> <label>    Change the status of a prospect
  archive <id>           Archive a prospect (asks first)
  delete <id>            Delete a prospect permanently (asks first)
  statuses               List known status labels
  viz                    Dashboard and pipeline graph
  sync                   Charm sync commands

LIST:
  prospekt list [--search <text>] [--company <text>] [--contact <text>]
                [--status <text>] [--sort <field>] [--desc] [--json]

ADD:
  prospekt add [--company <name>] [--contact <name>] [--phone <phone>]
               [--email <email>] [--date YYYY-MM-DD] [--comment <text>]
               [--status <label>]

ARCHIVE / DELETE:
  prospekt archive <id> [--yes]
  prospekt delete <id> [--yes]

VIZ:
  prospekt viz [--format dashboard|dot|svg] [--output <file>]

MCP SERVER:
  prospekt mcp [--metrics-addr :9464]

SYNC:
  prospekt sync link     Link this device to your Charm account
  prospekt sync status   Show sync status
  prospekt sync now      Sync with the server now
  prospekt sync auto on|off
  prospekt sync wipe --confirm
  prospekt sync unlink

ENVIRONMENT:
  PROSPEKT_BACKEND, PROSPEKT_DB_PATH, PROSPEKT_CHARM_HOST, PROSPEKT_AUTO_SYNC,
  PROSPEKT_POLL_INTERVAL, PROSPEKT_COLLATION, PROSPEKT_EXTRA_STATUSES,
  PROSPEKT_LOG_LEVEL (also read from ./.env)

`, version)
}
