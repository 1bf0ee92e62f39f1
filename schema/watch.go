package schema

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	settings "github.com/goliatone/go-settings"
)

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithLogger routes reload events to logger.
func WithLogger(logger settings.Logger) WatchOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// OnApply is called after every reload with the parsed document and the
// combined parse and apply error.
func OnApply(fn func(*Document, error)) WatchOption {
	return func(w *Watcher) {
		w.onApply = fn
	}
}

// Watcher reapplies a schema file to an engine whenever it changes on disk.
type Watcher struct {
	path    string
	engine  *settings.Engine
	logger  settings.Logger
	onApply func(*Document, error)
	watcher *fsnotify.Watcher
	once    sync.Once
	done    chan struct{}
}

// Watch applies the schema at path to engine and keeps applying it on
// every write until ctx is done or Close is called. The parent directory is
// watched so editors that replace the file are picked up.
func Watch(ctx context.Context, path string, engine *settings.Engine, opts ...WatchOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("schema: resolve %s: %w", path, err)
	}
	w := &Watcher{
		path:   filepath.Clean(abs),
		engine: engine,
		logger: settings.LoggerFunc(nil),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}

	doc, err := LoadFile(w.path)
	if err == nil {
		err = doc.Apply(engine)
	}
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("schema: create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("schema: watch %s: %w", filepath.Dir(w.path), err)
	}
	w.watcher = watcher
	go w.loop(ctx)
	return w, nil
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.watcher.Close()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Log(settings.LogEvent{Op: "schema.watch", Message: w.path, Err: err})
		}
	}
}

func (w *Watcher) reload() {
	start := time.Now()
	doc, err := LoadFile(w.path)
	if err == nil {
		err = doc.Apply(w.engine)
	}
	w.logger.Log(settings.LogEvent{
		Op:       "schema.reload",
		Message:  w.path,
		Duration: time.Since(start),
		Err:      err,
	})
	if w.onApply != nil {
		w.onApply(doc, err)
	}
}
