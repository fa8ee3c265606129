// Package store persists audio files, transcripts, and summaries in an
// embedded SQLite database with WAL mode.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// walJournalSizeLimit caps the WAL journal at 64 MiB.
const walJournalSizeLimit = 67108864

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("store: not found")

// Processing states shared by audio files and summaries.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// AudioFile is a recording waiting for (or through) transcription.
type AudioFile struct {
	ID        int64     `json:"id"`
	FileName  string    `json:"file_name"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Transcript is the text produced from a recording, editable afterward.
type Transcript struct {
	ID          int64     `json:"id"`
	AudioFileID *int64    `json:"audio_file_id,omitempty"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Language    string    `json:"language"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Summary is the minutes document generated from a transcript.
type Summary struct {
	ID           int64     `json:"id"`
	TranscriptID int64     `json:"transcript_id"`
	Content      string    `json:"content"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store wraps the SQLite database with prepared statements for every
// repeated query. Use ":memory:" as the path in tests.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	audioStmts      audioStatements
	transcriptStmts transcriptStatements
	summaryStmts    summaryStatements
}

type audioStatements struct {
	insert, get, list, setStatus *sql.Stmt
}

type transcriptStatements struct {
	insert, get, list, updateContent *sql.Stmt
}

type summaryStatements struct {
	insert, get, getByTranscript, list, updateContent, setStatus *sql.Stmt
}

// New opens the database at dbPath, applies migrations, and prepares all
// repeated statements.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("opening database", slog.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	// modernc.org/sqlite serializes writers itself, but a single connection
	// sidesteps SQLITE_BUSY entirely for this write volume.
	db.SetMaxOpenConns(1)

	ctx := context.Background()

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, logger: logger}

	if err := s.prepareStatements(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: prepare statements: %w", err)
	}

	logger.Info("database ready", slog.String("path", dbPath))

	return s, nil
}

// Close closes the underlying database. Prepared statements are closed with it.
func (s *Store) Close() error {
	return s.db.Close()
}

func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit),
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	return nil
}

// SQL for prepared statements, grouped by domain.
const (
	sqlAudioInsert = `INSERT INTO audio_files (file_name, path, size_bytes, status)
		VALUES (?, ?, ?, ?) RETURNING id, created_at`
	sqlAudioGet = `SELECT id, file_name, path, size_bytes, status, created_at
		FROM audio_files WHERE id = ?`
	sqlAudioList = `SELECT id, file_name, path, size_bytes, status, created_at
		FROM audio_files ORDER BY created_at DESC`
	sqlAudioSetStatus = `UPDATE audio_files SET status = ? WHERE id = ?`

	sqlTranscriptInsert = `INSERT INTO transcripts (audio_file_id, title, content, language)
		VALUES (?, ?, ?, ?) RETURNING id, created_at, updated_at`
	sqlTranscriptGet = `SELECT id, audio_file_id, title, content, language, created_at, updated_at
		FROM transcripts WHERE id = ?`
	sqlTranscriptList = `SELECT id, audio_file_id, title, content, language, created_at, updated_at
		FROM transcripts ORDER BY created_at DESC`
	sqlTranscriptUpdateContent = `UPDATE transcripts
		SET content = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE id = ?`

	sqlSummaryInsert = `INSERT INTO summaries (transcript_id, content, status)
		VALUES (?, ?, ?) RETURNING id, created_at, updated_at`
	sqlSummaryGet = `SELECT id, transcript_id, content, status, created_at, updated_at
		FROM summaries WHERE id = ?`
	sqlSummaryGetByTranscript = `SELECT id, transcript_id, content, status, created_at, updated_at
		FROM summaries WHERE transcript_id = ? ORDER BY id DESC LIMIT 1`
	sqlSummaryList = `SELECT id, transcript_id, content, status, created_at, updated_at
		FROM summaries ORDER BY created_at DESC`
	sqlSummaryUpdateContent = `UPDATE summaries
		SET content = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE id = ?`
	sqlSummarySetStatus = `UPDATE summaries
		SET status = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE id = ?`
)

func (s *Store) prepareStatements(ctx context.Context) error {
	stmts := []struct {
		target **sql.Stmt
		query  string
	}{
		{&s.audioStmts.insert, sqlAudioInsert},
		{&s.audioStmts.get, sqlAudioGet},
		{&s.audioStmts.list, sqlAudioList},
		{&s.audioStmts.setStatus, sqlAudioSetStatus},
		{&s.transcriptStmts.insert, sqlTranscriptInsert},
		{&s.transcriptStmts.get, sqlTranscriptGet},
		{&s.transcriptStmts.list, sqlTranscriptList},
		{&s.transcriptStmts.updateContent, sqlTranscriptUpdateContent},
		{&s.summaryStmts.insert, sqlSummaryInsert},
		{&s.summaryStmts.get, sqlSummaryGet},
		{&s.summaryStmts.getByTranscript, sqlSummaryGetByTranscript},
		{&s.summaryStmts.list, sqlSummaryList},
		{&s.summaryStmts.updateContent, sqlSummaryUpdateContent},
		{&s.summaryStmts.setStatus, sqlSummarySetStatus},
	}

	for _, stmt := range stmts {
		prepared, err := s.db.PrepareContext(ctx, stmt.query)
		if err != nil {
			return fmt.Errorf("preparing %q: %w", stmt.query, err)
		}

		*stmt.target = prepared
	}

	return nil
}

// parseTime decodes the RFC3339 text timestamps SQLite stores.
func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}

	return t
}
