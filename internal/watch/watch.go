package watch

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "icsbuild/internal/log"
)

// DefaultDebounce is the quiet window after the last filesystem event before
// a batch is delivered.
const DefaultDebounce = 10 * time.Second

const relevantOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// Watcher reports the names of files changed in one directory. Bursts of
// events are collapsed into a single batch once the directory has been quiet
// for the debounce window.
type Watcher struct {
	dir      string
	debounce time.Duration
	fsw      *fsnotify.Watcher
	batches  chan []string

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New starts watching dir. A debounce of zero or less uses DefaultDebounce.
func New(dir string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		dir:      dir,
		debounce: debounce,
		fsw:      fsw,
		batches:  make(chan []string, 16),
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()

	appLog.Info("watching directory", "dir", dir, "debounce", debounce.String())
	return w, nil
}

func (w *Watcher) run() {
	defer w.wg.Done()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&relevantOps == 0 {
				continue
			}
			pending[filepath.Base(ev.Name)] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			appLog.Error("watcher error", err, "dir", w.dir)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			names := make([]string, 0, len(pending))
			for name := range pending {
				names = append(names, name)
			}
			sort.Strings(names)

			select {
			case w.batches <- names:
				clear(pending)
			default:
				// Consumer is behind; keep the names and try again later.
				appLog.Warn("change batch queue full", "dir", w.dir, "pending", len(pending))
				timer.Reset(w.debounce)
			}
		}
	}
}

// Changed returns the sorted, de-duplicated names of all files reported since
// the last call. It never blocks; nil means nothing changed.
func (w *Watcher) Changed() []string {
	seen := make(map[string]struct{})
drain:
	for {
		select {
		case batch := <-w.batches:
			for _, name := range batch {
				seen[name] = struct{}{}
			}
		default:
			break drain
		}
	}

	if len(seen) == 0 {
		return nil
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}
