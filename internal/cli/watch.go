package cli

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	perrors "github.com/matzehuels/parttree/pkg/errors"
)

// watcher signals debounced changes to a single file. The directory is
// watched rather than the file so that editors replacing the file on save
// are still seen.
type watcher struct {
	fsw      *fsnotify.Watcher
	path     string
	debounce time.Duration
	onChange chan struct{}
	done     chan struct{}
}

func newWatcher(path string, debounce time.Duration) (*watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "resolve %s", path)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInternal, err, "create file watcher")
	}
	return &watcher{
		fsw:      fsw,
		path:     abs,
		debounce: debounce,
		onChange: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// start begins watching and returns the change channel.
func (w *watcher) start() (<-chan struct{}, error) {
	dir := filepath.Dir(w.path)
	if err := w.fsw.Add(dir); err != nil {
		w.fsw.Close()
		return nil, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "watch %s", dir)
	}
	go w.loop()
	return w.onChange, nil
}

func (w *watcher) stop() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *watcher) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			// drop the signal if the previous one was not consumed yet
			select {
			case w.onChange <- struct{}{}:
			default:
			}

		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	return filepath.Clean(event.Name) == w.path
}
