package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbale-app/verbale/internal/notify"
	"github.com/verbale-app/verbale/internal/store"
)

type recordingIngestor struct {
	mu    sync.Mutex
	files []string
}

func (r *recordingIngestor) InsertAudioFile(_ context.Context, fileName, path string, sizeBytes int64) (*store.AudioFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.files = append(r.files, fileName)

	return &store.AudioFile{ID: int64(len(r.files)), FileName: fileName, Path: path, SizeBytes: sizeBytes}, nil
}

func (r *recordingIngestor) ingested() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.files...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Broadcast(_ context.Context, ev notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, ev)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.events)
}

func startWatcher(t *testing.T, dir string, ing Ingestor, not Notifier) context.CancelFunc {
	t.Helper()

	w := New(dir, ing, not, slog.Default())
	w.settleDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())

	go func() { _ = w.Run(ctx) }()

	// Give the watcher time to register before the test writes files.
	time.Sleep(100 * time.Millisecond)

	return cancel
}

func TestWatcher_IngestsNewRecording(t *testing.T) {
	dir := t.TempDir()
	ing := &recordingIngestor{}
	not := &recordingNotifier{}

	cancel := startWatcher(t, dir, ing, not)
	defer cancel()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "meeting.mp3"), []byte("audio"), 0o600))

	require.Eventually(t, func() bool {
		return len(ing.ingested()) == 1
	}, 3*time.Second, 20*time.Millisecond)

	assert.Equal(t, []string{"meeting.mp3"}, ing.ingested())

	require.Eventually(t, func() bool { return not.count() == 1 },
		time.Second, 20*time.Millisecond)
}

func TestWatcher_IgnoresNonAudioAndHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	ing := &recordingIngestor{}

	cancel := startWatcher(t, dir, ing, nil)
	defer cancel()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.mp3"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "call.wav"), []byte("x"), 0o600))

	require.Eventually(t, func() bool {
		return len(ing.ingested()) == 1
	}, 3*time.Second, 20*time.Millisecond)

	// Settle: confirm nothing else arrives.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []string{"call.wav"}, ing.ingested())
}

func TestWatcher_SweepsExistingFilesAtStartup(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.m4a"), []byte("x"), 0o600))

	ing := &recordingIngestor{}

	cancel := startWatcher(t, dir, ing, nil)
	defer cancel()

	require.Eventually(t, func() bool {
		return len(ing.ingested()) == 1
	}, 3*time.Second, 20*time.Millisecond)

	assert.Equal(t, []string{"old.m4a"}, ing.ingested())
}
