// ABOUTME: Interactive terminal UI subcommand
// ABOUTME: Sends logs to a file so they do not corrupt the alt screen
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harperreed/prospekt/config"
	"github.com/harperreed/prospekt/listview"
	"github.com/harperreed/prospekt/tui"
)

// TUICommand runs the terminal UI until the user quits.
func TUICommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlagSet("tui", os.Stderr)
	logPath := fs.String("log", config.LogPath(), "Log file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(*logPath), 0700); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}
	f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	logger := cfg.Logger(f)
	return WithSession(ctx, cfg, logger, nil, func(sess *listview.Session) error {
		return tui.Run(ctx, sess)
	})
}
