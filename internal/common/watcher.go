package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"resumatch/internal/errors"
	"resumatch/internal/utils"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce batches the burst of events an editor produces on save
const DefaultDebounce = 300 * time.Millisecond

// InputWatcher reports changes to the JD and résumé inputs of a match run.
// Files are watched through their parent directory so that editors which
// save by rename are still seen.
type InputWatcher struct {
	files    map[string]bool
	dirs     map[string]bool
	debounce time.Duration
	logger   *errors.Logger
}

// NewInputWatcher watches every file and directory in paths
func NewInputWatcher(paths []string, debounce time.Duration, logger *errors.Logger) (*InputWatcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &InputWatcher{
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		debounce: debounce,
		logger:   logger,
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("Cannot watch %s", p), err)
		}
		if info.IsDir() {
			w.dirs[abs] = true
		} else {
			w.files[abs] = true
		}
	}
	return w, nil
}

// watchRoots lists the directories handed to fsnotify
func (w *InputWatcher) watchRoots() []string {
	roots := make(map[string]bool)
	for d := range w.dirs {
		roots[d] = true
	}
	for f := range w.files {
		roots[filepath.Dir(f)] = true
	}
	out := make([]string, 0, len(roots))
	for r := range roots {
		out = append(out, r)
	}
	return out
}

// relevant reports whether event touches one of the inputs
func (w *InputWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	if w.files[name] {
		return true
	}
	return w.dirs[filepath.Dir(name)] && utils.IsTextFile(name)
}

// Run calls onChange after each debounced burst of input changes until ctx
// is cancelled.
func (w *InputWatcher) Run(ctx context.Context, onChange func(context.Context)) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if err := fsWatcher.Close(); err != nil {
			w.logger.LogError(err, "Failed to close file watcher")
		}
	}()

	roots := w.watchRoots()
	for _, root := range roots {
		if err := fsWatcher.Add(root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
	}
	w.logger.Info("Watching inputs for changes",
		"directories", roots,
		"debounce", w.debounce)

	fire := make(chan struct{}, 1)
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			select {
			case fire <- struct{}{}:
			default:
			}
		})
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				w.logger.Debug("Input changed", "file", event.Name, "op", event.Op.String())
				schedule()
			}
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", "error", err.Error())
		case <-fire:
			onChange(ctx)
		}
	}
}
