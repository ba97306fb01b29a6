package loader

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports file-backed assets that changed on disk.
// A changed asset is dropped from the loader cache before it is reported,
// so reloading it with LoadModel or LoadAnimatedModel reads the new bytes.
type Watcher struct {
	mu      sync.Mutex
	fs      *fsnotify.Watcher
	files   FileFetcher
	loader  Loader
	logger  *zap.Logger
	byPath  map[string]string
	dirs    map[string]bool
	changes chan string
}

// NewWatcher creates a watcher for assets resolved through files.
//
// Parameters:
//   - l: the loader whose cache is invalidated on change
//   - files: maps asset URLs to file paths
//   - logger: receives watch errors
//
// Returns:
//   - *Watcher: the watcher, idle until Run is called
//   - error: an error if the OS watcher could not be created
func NewWatcher(l Loader, files FileFetcher, logger *zap.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fs:      fs,
		files:   files,
		loader:  l,
		logger:  logger,
		byPath:  make(map[string]string),
		dirs:    make(map[string]bool),
		changes: make(chan string, 16),
	}, nil
}

// Watch starts watching the file behind url through its directory. Remote URLs are ignored.
func (w *Watcher) Watch(url string) error {
	if isRemote(url) {
		return nil
	}
	p, err := w.files.Path(url)
	if err != nil {
		return err
	}
	p, err = filepath.Abs(p)
	if err != nil {
		return err
	}

	p = filepath.Clean(p)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.byPath[p]; ok {
		return nil
	}
	// Editors that save by renaming a temp file replace the inode, so the directory is watched.
	dir := filepath.Dir(p)
	if !w.dirs[dir] {
		if err := w.fs.Add(dir); err != nil {
			return err
		}
		w.dirs[dir] = true
	}
	w.byPath[p] = url
	return nil
}

// Changes delivers the URL of each asset rewritten on disk.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Run forwards file events until ctx ends, then closes the OS watcher and the Changes channel.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.changes)
	defer w.fs.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.mu.Lock()
			url, watched := w.byPath[filepath.Clean(e.Name)]
			w.mu.Unlock()
			if !watched {
				continue
			}
			w.loader.Invalidate(url)
			w.logger.Info("asset changed", zap.String("url", url))
			select {
			case w.changes <- url:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("asset watch error", zap.Error(err))
		}
	}
}
