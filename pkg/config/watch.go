package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// kubeDataDir is the symlink Kubernetes swaps when a mounted secret changes.
const kubeDataDir = "..data"

// WatchToken monitors the token file at path and calls onChange with the new
// token each time the file is written or replaced. It runs until ctx is
// cancelled.
//
// The parent directory is watched rather than the file: an atomic replace
// (write temp file, rename over path) swaps the inode, and a watch on the old
// inode would never fire again.
//
// A reload that fails (unreadable or empty file) is logged and the previous
// token stays active.
func WatchToken(ctx context.Context, path string, logger zerolog.Logger, onChange func(token string)) error {
	path = filepath.Clean(path)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("watch token file: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch token dir %q: %w", dir, err)
	}

	logger.Info().Str("path", path).Msg("Watching API token file for changes")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isTokenUpdate(event, path) {
				continue
			}

			token, err := ReadToken(path)
			if err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("Token reload failed - keeping previous token")
				continue
			}

			logger.Info().Str("path", path).Msg("API token reloaded")
			onChange(token)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error().Err(err).Msg("Token watcher error")
		}
	}
}

// isTokenUpdate reports whether event may have changed the token at path:
// a write to it, a file renamed or created over it, or a Kubernetes
// ..data symlink swap in its directory.
func isTokenUpdate(event fsnotify.Event, path string) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	name := filepath.Clean(event.Name)
	if name == path {
		return true
	}
	return filepath.Dir(name) == filepath.Dir(path) && filepath.Base(name) == kubeDataDir
}
