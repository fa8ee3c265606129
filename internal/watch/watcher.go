// Package watch ingests meeting recordings dropped into an inbox directory,
// registering them for transcription without a manual upload.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/verbale-app/verbale/internal/notify"
	"github.com/verbale-app/verbale/internal/store"
)

// defaultSettleDelay gives the writer time to finish before the file is
// ingested; fsnotify fires on create, not on close.
const defaultSettleDelay = 500 * time.Millisecond

// audioExtensions lists the recording formats the pipeline accepts.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".aac":  true,
	".ogg":  true,
	".flac": true,
}

// Ingestor registers discovered recordings. *store.Store satisfies this.
type Ingestor interface {
	InsertAudioFile(ctx context.Context, fileName, path string, sizeBytes int64) (*store.AudioFile, error)
}

// Notifier pushes ingest events to connected clients. *notify.Hub satisfies
// this.
type Notifier interface {
	Broadcast(ctx context.Context, ev notify.Event)
}

// Watcher monitors one inbox directory.
type Watcher struct {
	dir      string
	ingestor Ingestor
	notifier Notifier
	logger   *slog.Logger

	// settleDelay is shortened in tests.
	settleDelay time.Duration
}

// New creates a Watcher for dir.
func New(dir string, ingestor Ingestor, notifier Notifier, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		dir:         dir,
		ingestor:    ingestor,
		notifier:    notifier,
		logger:      logger,
		settleDelay: defaultSettleDelay,
	}
}

// Run watches the inbox until ctx is canceled. Files already present at
// startup are ingested first so recordings dropped while the server was
// down are not lost.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch: watching %s: %w", w.dir, err)
	}

	w.logger.Info("watching inbox", slog.String("dir", w.dir))

	if err := w.ingestExisting(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}

			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Rename) {
				w.maybeIngest(ctx, event.Name)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

// ingestExisting sweeps files that predate the watcher.
func (w *Watcher) ingestExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("watch: reading inbox: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		w.maybeIngest(ctx, filepath.Join(w.dir, entry.Name()))
	}

	return nil
}

// maybeIngest registers the file if it looks like a recording.
func (w *Watcher) maybeIngest(ctx context.Context, path string) {
	name := filepath.Base(path)

	if strings.HasPrefix(name, ".") || !audioExtensions[strings.ToLower(filepath.Ext(name))] {
		return
	}

	if w.settleDelay > 0 {
		timer := time.NewTimer(w.settleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		w.logger.Warn("stat failed, skipping",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return
	}

	af, err := w.ingestor.InsertAudioFile(ctx, name, path, info.Size())
	if err != nil {
		w.logger.Error("ingest failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return
	}

	w.logger.Info("recording ingested",
		slog.Int64("id", af.ID),
		slog.String("file", name),
		slog.Int64("size", info.Size()),
	)

	if w.notifier != nil {
		w.notifier.Broadcast(ctx, notify.Event{
			Type:    notify.EventAudioReceived,
			Payload: af,
		})
	}
}
