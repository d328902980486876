package handlers

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// StartWatcher sets up recursive filesystem watches on every allowed root so
// the file index is invalidated the moment fixtures change, instead of only
// when the safety TTL expires.
//
// It returns immediately; all watch processing runs in a background
// goroutine. The returned stop function closes the watcher.
func StartWatcher(roots []string) (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, root := range roots {
		if err := watchRecursive(w, root); err != nil {
			logrus.Warnf("watcher: could not watch %s: %v", root, err)
		}
	}

	go func() {
		defer w.Close()
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				handleEvent(w, event)

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logrus.Warnf("watcher: %v", err)
			}
		}
	}()

	return func() { _ = w.Close() }, nil
}

// watchRecursive adds a watch for dir and every subdirectory beneath it.
// If the kernel inotify watch limit is reached it logs once and stops;
// directories beyond that point fall back to the safety TTL.
func watchRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logrus.Debugf("watcher: skipping %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.Add(path); err != nil {
			if errors.Is(err, syscall.ENOSPC) {
				logrus.Warnf("watcher: inotify watch limit reached (stopped at %s); "+
					"the %s safety TTL will still refresh the index", path, safetyTTL)
				return filepath.SkipAll
			}
			logrus.Warnf("watcher: could not add watch for %s: %v", path, err)
		}
		return nil
	})
}

// handleEvent processes a single fsnotify event.
func handleEvent(w *fsnotify.Watcher, event fsnotify.Event) {
	// A newly created directory must be watched immediately so changes
	// inside it are also caught.
	if event.Has(fsnotify.Create) {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if err := watchRecursive(w, event.Name); err != nil {
				logrus.Warnf("watcher: could not watch new dir %s: %v", event.Name, err)
			}
		}
	}

	// Structural changes make the index stale. Plain writes to an existing
	// file change its size, which the index reports, so those count too.
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Write) {
		InvalidateIndex()
	}
}
