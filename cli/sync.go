// ABOUTME: Sync subcommand dispatch for the Charm backend
// ABOUTME: Routes link, status, now, wipe, unlink, and auto to the charm commands and config
package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/harperreed/prospekt/charm"
	"github.com/harperreed/prospekt/config"
)

// SyncCommand handles "sync <subcommand>".
func SyncCommand(cfg *config.Config, logger *log.Logger, out io.Writer, args []string) error {
	if len(args) == 0 {
		printSyncUsage(out)
		return fmt.Errorf("sync subcommand required")
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "auto":
		return SyncAutoCommand(cfg, out, rest)
	case "unlink":
		return charm.SyncUnlinkCommand(out, rest)
	case "link", "status", "now", "wipe":
	default:
		printSyncUsage(out)
		return fmt.Errorf("unknown sync subcommand %q", sub)
	}

	if cfg.Backend != config.BackendCharm {
		return fmt.Errorf("sync %s needs the %s backend (current: %s)", sub, config.BackendCharm, cfg.Backend)
	}
	client, err := OpenCharm(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	switch sub {
	case "link":
		return charm.SyncLinkCommand(client, out, rest)
	case "status":
		return charm.SyncStatusCommand(client, out, rest)
	case "now":
		return charm.SyncNowCommand(client, out, rest)
	default:
		return charm.SyncWipeCommand(client, out, rest)
	}
}

// SyncAutoCommand turns automatic sync after writes on or off and saves the config.
func SyncAutoCommand(cfg *config.Config, out io.Writer, args []string) error {
	fs := newFlagSet("sync auto", out)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: sync auto on|off")
	}

	switch fs.Arg(0) {
	case "on":
		cfg.AutoSync = true
	case "off":
		cfg.AutoSync = false
	default:
		return fmt.Errorf("usage: sync auto on|off")
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Auto-sync %s (saved to %s)\n", fs.Arg(0), cfg.Path)
	return nil
}

func printSyncUsage(out io.Writer) {
	_, _ = fmt.Fprint(out, `Usage: prospekt sync <command>

Commands:
  link        Link this device to your Charm account
  status      Show sync status
  now         Sync with the server now
  auto on|off Sync automatically after every write
  wipe        Delete all local data (needs --confirm)
  unlink      Forget the Charm account on this device
`)
}
