// Package watch owns the background loop that keeps a run queue consistent
// with its on-disk configuration file. One producer (the poll loop) publishes
// immutable snapshots under a lock; any number of consumers copy the current
// snapshot out and keep using it regardless of later publications.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/sweep/pkg/config"
	"github.com/macropower/sweep/pkg/history"
	"github.com/macropower/sweep/pkg/log"
	"github.com/macropower/sweep/pkg/sweep"
)

// DefaultInterval is the poll interval used when the document's metadata does
// not override it.
const DefaultInterval = 60 * time.Second

var (
	// ErrReload marks a failed background reload. It is logged, never
	// propagated; consumers keep seeing the last-good snapshot.
	ErrReload = errors.New("reload failed")

	// ErrAlreadyStarted is returned by Start on a running watcher.
	ErrAlreadyStarted = errors.New("watcher already started")

	// ErrStopped is returned by Start on a stopped watcher; Stopped is
	// terminal.
	ErrStopped = errors.New("watcher stopped")
)

// Loader re-invokes the external document loader on demand.
type Loader interface {
	Load() (*config.Config, error)
}

// LoaderFunc adapts a function to the [Loader] interface.
type LoaderFunc func() (*config.Config, error)

func (f LoaderFunc) Load() (*config.Config, error) {
	return f()
}

// FileLoader returns a [Loader] that re-reads and re-parses the file at path
// on every call.
func FileLoader(path string, opts ...config.LoaderOpt) Loader {
	return LoaderFunc(func() (*config.Config, error) {
		l, err := config.NewLoaderFromFile(path, opts...)
		if err != nil {
			return nil, err
		}

		return l.Load()
	})
}

// Snapshot is one published (document version, run queue) pair. Snapshots are
// immutable once published; a consumer holding one is never affected by later
// publications.
type Snapshot struct {
	Config  *config.Config
	Engine  *sweep.Engine
	Queue   []sweep.RunConfig
	Version int64
}

type state int

const (
	stateCreated state = iota
	stateRunning
	stateStopped
)

// Watcher polls the backing configuration file's modification time and
// republishes the derived run queue when it changes.
type Watcher struct {
	tracer   trace.Tracer
	loader   Loader
	notifier *fsnotify.Watcher

	stopCh chan struct{}
	done   chan struct{}

	snapshot *Snapshot
	path     string
	interval time.Duration

	engineOpts []sweep.EngineOpt

	mtime   time.Time
	version int64

	mu       sync.Mutex
	stopOnce sync.Once
	state    state
	notify   bool
	changed  bool
}

// Opt configures a [Watcher].
type Opt func(*Watcher)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) Opt {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithNotify additionally wakes the poll loop on filesystem notifications for
// the backing file's directory. The modification-time comparison remains the
// sole reload trigger; notifications only cut the wait short.
func WithNotify() Opt {
	return func(w *Watcher) {
		w.notify = true
	}
}

// WithEngineOpts passes options through to every derived [sweep.Engine].
func WithEngineOpts(opts ...sweep.EngineOpt) Opt {
	return func(w *Watcher) {
		w.engineOpts = opts
	}
}

// New creates a [Watcher] for the configuration file at path.
// The watcher does nothing until [Watcher.Start] is called.
func New(path string, loader Loader, opts ...Opt) *Watcher {
	w := &Watcher{
		tracer:   otel.Tracer("config-watcher"),
		loader:   loader,
		path:     path,
		interval: DefaultInterval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Start transitions the watcher to Running. It performs one synchronous load
// and reconciliation pass before the background loop begins, so a freshly
// started watcher never serves an already-completed run. Errors from this
// initial pass are fatal and propagate to the caller.
func (w *Watcher) Start() error {
	w.mu.Lock()
	switch w.state {
	case stateRunning:
		w.mu.Unlock()

		return ErrAlreadyStarted
	case stateStopped:
		w.mu.Unlock()

		return ErrStopped
	case stateCreated:
	}
	w.mu.Unlock()

	ctx := context.Background()

	snapshot, err := w.derive(ctx)
	if err != nil {
		return err
	}

	fi, err := os.Stat(w.path)
	if err != nil {
		return fmt.Errorf("stat config file: %w", err)
	}

	if w.notify {
		notifier, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create fsnotify watcher: %w", err)
		}

		err = notifier.Add(filepath.Dir(w.path))
		if err != nil {
			notifier.Close() //nolint:errcheck,gosec // Best effort.

			return fmt.Errorf("add path to watcher: %w", err)
		}

		w.notifier = notifier
	}

	w.mtime = fi.ModTime()

	w.mu.Lock()
	w.snapshot = snapshot
	w.state = stateRunning
	w.mu.Unlock()

	go w.run()

	return nil
}

// Stop transitions the watcher to Stopped and wakes the sleeping poll
// iteration immediately. It is safe to call from any goroutine, idempotent,
// and does not wait for an in-flight reload; that reload completes and
// publishes, then the loop observes Stopped and exits.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.state == stateRunning {
		w.state = stateStopped
	}
	w.mu.Unlock()

	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Done is closed once the background loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Snapshot returns the latest published snapshot. The caller receives its own
// reference, safe to use after later publications occur.
func (w *Watcher) Snapshot() *Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.snapshot
}

// ConsumeChangeFlag atomically reads and clears the changed flag. A consumer
// observing true is guaranteed that [Watcher.Snapshot] returns the snapshot
// from the reload that set the flag, or a later one.
func (w *Watcher) ConsumeChangeFlag() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := w.changed
	w.changed = false

	return changed
}

func (w *Watcher) run() {
	defer close(w.done)

	if w.notifier != nil {
		defer w.notifier.Close() //nolint:errcheck // Ignore errors.
	}

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)

	if w.notifier != nil {
		events = w.notifier.Events
		errs = w.notifier.Errors
	}

	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-w.stopCh:
			return

		case <-timer.C:

		case evt, ok := <-events:
			if !ok {
				events = nil

				continue
			}
			if evt.Has(fsnotify.Chmod) {
				// Not a content change; let the timer run out.
				continue
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil

				continue
			}

			slog.Warn("fsnotify error", slog.Any("error", err))

			continue
		}

		// Re-check before reloading; no new reload may start after Stop.
		select {
		case <-w.stopCh:
			return
		default:
		}

		w.poll(context.Background())

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.interval)
	}
}

// poll compares the backing file's modification time against the last
// observed value and reloads on change. The stored mtime advances even when
// the reload fails, so a persistently broken file is retried only at its next
// timestamp change, never busy-looped.
func (w *Watcher) poll(ctx context.Context) {
	fi, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("stat config file",
			slog.String("path", w.path),
			slog.Any("error", err),
		)

		return
	}

	if fi.ModTime().Equal(w.mtime) {
		return
	}

	w.mtime = fi.ModTime()
	w.reload(ctx)
}

func (w *Watcher) reload(ctx context.Context) {
	ctx, span := w.tracer.Start(ctx, "reload", trace.WithAttributes(
		attribute.String("path", w.path),
	))
	defer span.End()

	logger := log.WithContext(ctx)
	logger.InfoContext(ctx, "detected change, reloading configurations",
		slog.String("path", w.path),
	)

	snapshot, err := w.derive(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "keeping last-good snapshot",
			slog.Any("error", fmt.Errorf("%w: %w", ErrReload, err)),
		)

		return
	}

	// Single mutation point: publish the snapshot, then set the flag, under
	// one critical section.
	w.mu.Lock()
	w.snapshot = snapshot
	w.changed = true
	w.mu.Unlock()

	logger.DebugContext(ctx, "published new snapshot",
		slog.Int64("version", snapshot.Version),
		slog.Int("queue", len(snapshot.Queue)),
	)
}

// derive runs the full pipeline for the current file contents: load, expand,
// exclude, shuffle, then reconcile against the completed-run record.
func (w *Watcher) derive(ctx context.Context) (*Snapshot, error) {
	cfg, err := w.loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	engine, err := cfg.Engine(w.engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	w.reconcile(ctx, engine, cfg.HistoryPath())

	queue, _ := engine.RunConfigs()
	w.version++

	return &Snapshot{
		Config:  cfg,
		Engine:  engine,
		Queue:   queue,
		Version: w.version,
	}, nil
}

// reconcile subtracts already-completed runs from the queue, one queue entry
// removed per record row at most. Running at start and after every reload
// makes resume-after-restart and resume-after-live-edit behave identically.
func (w *Watcher) reconcile(ctx context.Context, engine *sweep.Engine, historyPath string) {
	logger := log.WithContext(ctx)

	rows, err := history.Read(historyPath)
	if err != nil {
		logger.WarnContext(ctx, "skipping completed-run reconciliation",
			slog.String("path", historyPath),
			slog.Any("error", err),
		)

		return
	}

	if len(rows) == 0 {
		return
	}

	logger.InfoContext(ctx, "detected previous runs",
		slog.Int("count", len(rows)),
	)

	for _, row := range rows {
		engine.RemoveCompleted(row)
	}
}
