// Package watcher analyzes transcripts dropped into a directory next to an
// agenda sidecar.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/otherjamesbrown/focusflow/pkg/ingest/meeting"
	"github.com/otherjamesbrown/focusflow/pkg/logging"
	"github.com/otherjamesbrown/focusflow/pkg/observability"
)

// Job outcome labels.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

const (
	defaultMaxConcurrent = 2
	defaultSettle        = 500 * time.Millisecond
)

// Handler analyzes one job.
type Handler func(ctx context.Context, job *meeting.Job) error

// Watcher monitors a directory and dispatches a Handler for every transcript
// that has (or later gets) an agenda sidecar. A pair is handled again only
// when the transcript or the agenda changes.
type Watcher struct {
	dir           string
	handler       Handler
	logger        logging.Logger
	metrics       *observability.Metrics
	maxConcurrent int
	settle        time.Duration
	initialScan   bool

	watcher   *fsnotify.Watcher
	semaphore chan struct{}
	wg        sync.WaitGroup

	// mu guards the maps and closed. wg.Add happens under mu, so once
	// closed is set no analysis can start while Run waits on wg.
	mu      sync.Mutex
	pending map[string]*time.Timer
	handled map[string]string
	closed  bool
}

// Option configures the watcher.
type Option func(*Watcher)

// WithLogger sets a custom logger.
func WithLogger(l logging.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(w *Watcher) {
		w.metrics = m
	}
}

// WithMaxConcurrent bounds parallel analyses.
func WithMaxConcurrent(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.maxConcurrent = n
		}
	}
}

// WithSettle sets how long a file must stay quiet before it is handled.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		w.settle = d
	}
}

// WithInitialScan handles the jobs already present in the directory on start.
func WithInitialScan(enabled bool) Option {
	return func(w *Watcher) {
		w.initialScan = enabled
	}
}

// New creates a watcher on dir.
func New(dir string, handler Handler, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	w := &Watcher{
		dir:           dir,
		handler:       handler,
		logger:        logging.MustGlobal(),
		maxConcurrent: defaultMaxConcurrent,
		settle:        defaultSettle,
		initialScan:   true,
		watcher:       fw,
		pending:       make(map[string]*time.Timer),
		handled:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.semaphore = make(chan struct{}, w.maxConcurrent)
	w.logger = w.logger.With(logging.F("component", "watcher"), logging.F("dir", dir))
	return w, nil
}

// Run blocks until ctx is cancelled, then waits for running analyses.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	w.logger.Info("Watching for transcripts", logging.F("max_concurrent", w.maxConcurrent))

	if w.initialScan {
		jobs, err := meeting.ScanDir(w.dir)
		if err != nil {
			return fmt.Errorf("scan %s: %w", w.dir, err)
		}
		for _, job := range jobs {
			w.dispatch(ctx, job)
		}
	}

	for {
		select {
		case <-ctx.Done():
			w.shutdown()
			w.logger.Info("Waiting for running analyses")
			w.wg.Wait()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("Watcher error", logging.Err(err))
		}
	}
}

// schedule debounces events for path until it has been quiet for the settle period.
func (w *Watcher) schedule(ctx context.Context, path string) {
	name := filepath.Base(path)
	if !meeting.IsTranscriptFile(name) && !meeting.IsAgendaFile(name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		closed := w.closed
		w.mu.Unlock()
		if closed || ctx.Err() != nil {
			return
		}
		for _, job := range w.jobsFor(path) {
			w.dispatch(ctx, job)
		}
	})
}

// jobsFor resolves a changed file into jobs. An agenda change re-examines
// every transcript sharing its base name.
func (w *Watcher) jobsFor(path string) []*meeting.Job {
	if !meeting.IsAgendaFile(filepath.Base(path)) {
		if job, ok := meeting.JobFor(path); ok {
			return []*meeting.Job{job}
		}
		return nil
	}

	all, err := meeting.ScanDir(filepath.Dir(path))
	if err != nil {
		w.logger.Warn("Failed to rescan directory", logging.Err(err))
		return nil
	}
	var jobs []*meeting.Job
	for _, job := range all {
		if job.AgendaPath == path {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

func (w *Watcher) dispatch(ctx context.Context, job *meeting.Job) {
	path := sourcePath(job)
	sig, err := signature(path, job.AgendaPath)
	if err != nil {
		return
	}

	w.mu.Lock()
	if w.closed || ctx.Err() != nil || w.handled[path] == sig {
		w.mu.Unlock()
		return
	}
	w.handled[path] = sig
	w.wg.Add(1)
	w.mu.Unlock()

	select {
	case w.semaphore <- struct{}{}:
	case <-ctx.Done():
		w.wg.Done()
		return
	}
	// Both cases may be ready after a cancel.
	if ctx.Err() != nil {
		<-w.semaphore
		w.wg.Done()
		return
	}
	go func() {
		defer w.wg.Done()
		defer func() { <-w.semaphore }()

		log := w.logger.With(logging.F("file", filepath.Base(path)))
		start := time.Now()
		if err := w.handler(ctx, job); err != nil {
			w.metrics.RecordWatchJob(StatusFailed)
			log.Error("Analysis failed", logging.Err(err))
			return
		}
		w.metrics.RecordWatchJob(StatusOK)
		log.Debug("Analysis handled", logging.F("duration_ms", time.Since(start).Milliseconds()))
	}()
}

// signature identifies one version of a transcript and agenda pair.
func signature(paths ...string) (string, error) {
	var sig string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return "", err
		}
		sig += fmt.Sprintf("%d:%d;", info.ModTime().UnixNano(), info.Size())
	}
	return sig, nil
}

// shutdown stops pending debounce timers and refuses new analyses.
func (w *Watcher) shutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func sourcePath(job *meeting.Job) string {
	if job.TranscriptPath != "" {
		return job.TranscriptPath
	}
	return job.AudioPath
}
