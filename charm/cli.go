// ABOUTME: CLI commands for Charm KV sync operations
// ABOUTME: SSH key auth means there is no login; link just proves the server is reachable

package charm

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/harperreed/prospekt/store"
)

// SyncLinkCommand links this device to a Charm account by syncing once.
func SyncLinkCommand(c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("sync link", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := c.Config()
	_, _ = fmt.Fprintf(out, "Linking to Charm Cloud (%s)...\n\n", cfg.Host)
	_, _ = fmt.Fprintln(out, "Charm uses SSH key authentication.")

	if err := c.Sync(); err != nil {
		return fmt.Errorf("link failed: %w", err)
	}

	id, err := c.ID()
	if err != nil {
		_, _ = fmt.Fprintln(out, "✓ Device linked (ID unavailable)")
	} else {
		_, _ = fmt.Fprintf(out, "✓ Linked to account: %s\n", id)
	}

	_, _ = fmt.Fprintf(out, "✓ Auto-sync: %v\n", cfg.AutoSync)
	_, _ = fmt.Fprintln(out, "\nYour prospects now sync with Charm Cloud!")
	return nil
}

// SyncStatusCommand shows sync configuration and how many prospects are stored locally.
func SyncStatusCommand(c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("sync status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := c.Config()
	_, _ = fmt.Fprintln(out, "Charm Sync Status")
	_, _ = fmt.Fprintln(out, "─────────────────")
	_, _ = fmt.Fprintf(out, "Server:    %s\n", cfg.Host)
	_, _ = fmt.Fprintf(out, "Auto-sync: %v\n", cfg.AutoSync)

	id, err := c.ID()
	if err != nil {
		_, _ = fmt.Fprintln(out, "\nStatus: Not connected")
	} else {
		_, _ = fmt.Fprintln(out, "\nStatus: Connected to Charm Cloud")
		_, _ = fmt.Fprintf(out, "ID:        %s\n", id)
	}

	keys, err := c.KeysWithPrefix([]byte(store.Collection + "/"))
	if err == nil {
		_, _ = fmt.Fprintf(out, "Prospects: %d\n", len(keys))
	}
	return nil
}

// SyncUnlinkCommand explains how to disconnect; charm has no unlink API.
func SyncUnlinkCommand(out io.Writer, args []string) error {
	fs := flag.NewFlagSet("sync unlink", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(out, "To unlink your device from Charm Cloud:")
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "  1. Remove this device's SSH key from your Charm account")
	_, _ = fmt.Fprintln(out, "  2. Delete local charm data: rm -rf ~/.local/share/charm")
	return nil
}

// SyncWipeCommand resets the local KV store. Requires --confirm.
func SyncWipeCommand(c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("sync wipe", flag.ContinueOnError)
	confirm := fs.Bool("confirm", false, "Confirm data wipe")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*confirm {
		_, _ = fmt.Fprintln(out, "WARNING: This will delete ALL local prospects!")
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, "To confirm, run:")
		_, _ = fmt.Fprintln(out, "  prospekt sync wipe --confirm")
		return nil
	}

	if err := c.Reset(); err != nil {
		return fmt.Errorf("failed to reset KV store: %w", err)
	}

	_, _ = fmt.Fprintln(out, "✓ All data wiped")
	_, _ = fmt.Fprintln(out, "Your Charm account is still linked.")
	return nil
}

// SyncNowCommand performs an immediate sync.
func SyncNowCommand(c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("sync now", flag.ContinueOnError)
	verbose := fs.BoolP("verbose", "v", false, "Show verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *verbose {
		_, _ = fmt.Fprintln(out, "Syncing with server...")
	}
	if err := c.Sync(); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	if *verbose {
		_, _ = fmt.Fprintln(out, "✓ Sync complete")
	} else {
		_, _ = fmt.Fprintln(out, "✓ Synced")
	}
	return nil
}
