package staging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"datalake/internal/domain"
	"datalake/internal/ingest"
	"datalake/internal/logger"
)

// Watcher auto-ingests JSON files dropped into the staging directory. A
// filesystem watcher reacts immediately; a cron sweep picks up anything the
// watcher missed (files present before startup, missed events).
type Watcher struct {
	dir          string
	orchestrator *ingest.Orchestrator
	log          *logger.Logger

	mu        sync.Mutex
	processed map[string]bool

	watcher   *fsnotify.Watcher
	cronSched *cron.Cron
	cancel    context.CancelFunc
}

// NewWatcher creates a watcher over dir. Files are ingested at most once per
// process lifetime; the upload collaborator owns cleanup of staged files.
func NewWatcher(dir string, orchestrator *ingest.Orchestrator, log *logger.Logger) *Watcher {
	return &Watcher{
		dir:          dir,
		orchestrator: orchestrator,
		log:          log,
		processed:    make(map[string]bool),
	}
}

// Start begins watching and schedules the periodic sweep. cronExpr accepts
// standard cron syntax or descriptors like "@every 5m".
func (w *Watcher) Start(ctx context.Context, cronExpr string) error {
	ctx, w.cancel = context.WithCancel(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher

	go w.loop(ctx)

	if cronExpr != "" {
		c := cron.New()
		if _, err := c.AddFunc(cronExpr, func() { w.Sweep(ctx) }); err != nil {
			w.log.Warn("staging sweep: invalid cron expression", "expr", cronExpr, "error", err)
		} else {
			c.Start()
			w.cronSched = c
		}
	}

	// Initial sweep catches files already staged before startup.
	go w.Sweep(ctx)

	w.log.Info("staging watcher started", "dir", w.dir, "sweep", cronExpr)
	return nil
}

// Stop tears down the watcher and the sweep schedule.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.watcher != nil {
		w.watcher.Close()
		w.watcher = nil
	}
	if w.cronSched != nil {
		w.cronSched.Stop()
		w.cronSched = nil
	}
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !ingestable(event.Name) {
				continue
			}
			w.ingestFile(ctx, event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("staging watcher error", "error", err)
		}
	}
}

// Sweep ingests every unprocessed JSON file currently in the staging dir.
func (w *Watcher) Sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Warn("staging sweep: read dir failed", "dir", w.dir, "error", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		if !ingestable(path) {
			continue
		}
		w.ingestFile(ctx, path)
	}
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	w.mu.Lock()
	if w.processed[path] {
		w.mu.Unlock()
		return
	}
	w.processed[path] = true
	w.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		w.log.Warn("staging ingest: stat failed", "path", path, "error", err)
		return
	}

	staged := domain.StagedFile{
		FilePath:         path,
		OriginalFilename: filepath.Base(path),
		Size:             info.Size(),
		MimeType:         "application/json",
	}
	result, err := w.orchestrator.ProcessStagingFile(ctx, staged, "")
	if err != nil {
		w.log.Error("staging ingest failed", "path", path, "error", err)
		return
	}
	w.log.Info("staging ingest complete",
		"path", path, "dataset", result.Dataset.DatasetID,
		"backend", result.Dataset.Storage, "records", result.Dataset.RecordCount)
}

func ingestable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".ndjson", ".jsonl":
		return true
	}
	return false
}
