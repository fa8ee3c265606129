package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InsertTranscript stores a new transcript, optionally linked to the audio
// file it was produced from.
func (s *Store) InsertTranscript(ctx context.Context, audioFileID *int64, title, content, language string) (*Transcript, error) {
	tr := &Transcript{
		AudioFileID: audioFileID,
		Title:       title,
		Content:     content,
		Language:    language,
	}

	var audioArg any
	if audioFileID != nil {
		audioArg = *audioFileID
	}

	var createdAt, updatedAt string

	err := s.transcriptStmts.insert.QueryRowContext(ctx, audioArg, title, content, language).
		Scan(&tr.ID, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: inserting transcript: %w", err)
	}

	tr.CreatedAt = parseTime(createdAt)
	tr.UpdatedAt = parseTime(updatedAt)

	return tr, nil
}

// GetTranscript retrieves one transcript by id.
func (s *Store) GetTranscript(ctx context.Context, id int64) (*Transcript, error) {
	tr, err := scanTranscript(s.transcriptStmts.get.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("store: getting transcript %d: %w", id, err)
	}

	return tr, nil
}

// ListTranscripts returns all transcripts, newest first.
func (s *Store) ListTranscripts(ctx context.Context) ([]Transcript, error) {
	rows, err := s.transcriptStmts.list.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: listing transcripts: %w", err)
	}
	defer rows.Close()

	var transcripts []Transcript

	for rows.Next() {
		tr, err := scanTranscript(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scanning transcript: %w", err)
		}

		transcripts = append(transcripts, *tr)
	}

	return transcripts, rows.Err()
}

// UpdateTranscriptContent replaces a transcript's text after manual editing.
func (s *Store) UpdateTranscriptContent(ctx context.Context, id int64, content string) error {
	res, err := s.transcriptStmts.updateContent.ExecContext(ctx, content, id)
	if err != nil {
		return fmt.Errorf("store: updating transcript %d: %w", id, err)
	}

	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite always reports rows affected
		return ErrNotFound
	}

	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTranscript(row rowScanner) (*Transcript, error) {
	var (
		tr                   Transcript
		audioFileID          sql.NullInt64
		createdAt, updatedAt string
	)

	err := row.Scan(&tr.ID, &audioFileID, &tr.Title, &tr.Content, &tr.Language, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if audioFileID.Valid {
		tr.AudioFileID = &audioFileID.Int64
	}

	tr.CreatedAt = parseTime(createdAt)
	tr.UpdatedAt = parseTime(updatedAt)

	return &tr, nil
}
