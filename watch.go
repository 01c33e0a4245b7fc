package arbor

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/arbor/internal/loader"
	"github.com/fsnotify/fsnotify"
)

// Watch events sent on the channels returned by Watch.
const (
	EventReload = "reload"
	// EventError prefixes the message of a failed reload.
	EventError = "error: "
)

// watchHub shares one library watcher among every Watch subscriber.
type watchHub struct {
	mu   sync.Mutex
	subs map[chan string]struct{}
	stop context.CancelFunc
	quit chan struct{} // closed by Close
	done chan struct{} // closed when the watch loop returns
}

// Watch subscribes to library reloads. The first subscription starts the
// engine's single watcher, which reloads the library whenever one of its
// documents changes; later subscriptions only listen. Changes are debounced
// and each reload attempt sends EventReload or an EventError message to
// every subscriber. The returned channel is closed when ctx is done or the
// engine is closed. Notifications are dropped while a previous one is still
// unread.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	if e.dir == "" {
		return nil, ErrWatchUnsupported
	}

	h := &e.watch
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stop == nil {
		w, err := e.newWatcher()
		if err != nil {
			return nil, err
		}
		loopCtx, cancel := context.WithCancel(context.Background())
		h.stop = cancel
		h.quit = make(chan struct{})
		h.done = make(chan struct{})
		h.subs = make(map[chan string]struct{})
		go func(done chan struct{}) {
			defer close(done)
			e.watchLoop(loopCtx, w)
		}(h.done)
	}

	ch := make(chan string, 1)
	h.subs[ch] = struct{}{}
	go func(quit chan struct{}) {
		select {
		case <-ctx.Done():
			e.unsubscribe(ch)
		case <-quit:
		}
	}(h.quit)
	return ch, nil
}

// Close stops the library watcher, if any, and closes every Watch channel.
func (e *Engine) Close() error {
	h := &e.watch
	h.mu.Lock()
	stop, done := h.stop, h.done
	h.mu.Unlock()
	if stop == nil {
		return nil
	}

	stop()
	<-done

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		close(ch)
	}
	close(h.quit)
	h.subs, h.stop, h.quit, h.done = nil, nil, nil, nil
	return nil
}

func (e *Engine) unsubscribe(ch chan string) {
	h := &e.watch
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

func (e *Engine) broadcast(msg string) {
	h := &e.watch
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
			e.logger.Debug("watch event dropped", "event", msg)
		}
	}
}

func (e *Engine) newWatcher() (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	err = filepath.WalkDir(e.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", e.dir, err)
	}
	return w, nil
}

func (e *Engine) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()

	timer := time.NewTimer(e.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := w.Add(ev.Name); err != nil {
						e.logger.Warn("watch directory failed", "path", ev.Name, "error", err)
					}
					timer.Reset(e.debounce)
					continue
				}
			}
			if !loader.IsDocument(filepath.Base(ev.Name)) {
				continue
			}
			e.logger.Debug("library changed", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(e.debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			e.logger.Warn("watch error", "error", err)

		case <-timer.C:
			if err := e.Reload(ctx); err != nil {
				e.logger.Error("reload failed, keeping previous library", "error", err)
				e.broadcast(EventError + err.Error())
				continue
			}
			e.broadcast(EventReload)
		}
	}
}
