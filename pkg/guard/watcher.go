package guard

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/platinummonkey/gatehouse/pkg/observability"
)

// RouteWatcher serves a route table loaded from a file and reloads it when
// the file changes. A file that fails to parse leaves the previous table
// in place.
type RouteWatcher struct {
	path    string
	current atomic.Pointer[RouteTable]
	watcher *fsnotify.Watcher
	logger  *observability.Logger
	reloads atomic.Int64
}

// WatchRouteTable loads path and starts watching its directory. Call Run
// to process change events.
func WatchRouteTable(path string, logger *observability.Logger) (*RouteWatcher, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	table, err := LoadRouteTable(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create route policy watcher: %w", err)
	}
	// editors replace files, so watch the directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch route policy: %w", err)
	}

	w := &RouteWatcher{
		path:    filepath.Clean(path),
		watcher: watcher,
		logger:  logger.WithField("route_policy", path),
	}
	w.current.Store(table)
	return w, nil
}

// Table returns the current route table
func (w *RouteWatcher) Table() *RouteTable {
	return w.current.Load()
}

// Reloads returns how many times the table was successfully replaced
func (w *RouteWatcher) Reloads() int64 {
	return w.reloads.Load()
}

// Run processes file events until ctx is done
func (w *RouteWatcher) Run(ctx context.Context) {
	defer observability.RecoverPanic(w.logger, "route policy watcher")

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("Route policy watcher error")
		}
	}
}

func (w *RouteWatcher) reload() {
	table, err := LoadRouteTable(w.path)
	if err != nil {
		w.logger.WithError(err).Error("Route policy reload failed, keeping previous table")
		return
	}
	w.current.Store(table)
	w.reloads.Add(1)
	w.logger.WithField("routes", len(table.policies)).Info("Route policy reloaded")
}

// Close stops watching
func (w *RouteWatcher) Close() error {
	return w.watcher.Close()
}
