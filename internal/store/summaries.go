package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InsertSummary creates a summary row in the given status. Generation
// workers create it as StatusProcessing and fill the content in later.
func (s *Store) InsertSummary(ctx context.Context, transcriptID int64, status string) (*Summary, error) {
	sum := &Summary{
		TranscriptID: transcriptID,
		Status:       status,
	}

	var createdAt, updatedAt string

	err := s.summaryStmts.insert.QueryRowContext(ctx, transcriptID, "", status).
		Scan(&sum.ID, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: inserting summary: %w", err)
	}

	sum.CreatedAt = parseTime(createdAt)
	sum.UpdatedAt = parseTime(updatedAt)

	return sum, nil
}

// GetSummary retrieves one summary by id.
func (s *Store) GetSummary(ctx context.Context, id int64) (*Summary, error) {
	sum, err := scanSummary(s.summaryStmts.get.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("store: getting summary %d: %w", id, err)
	}

	return sum, nil
}

// GetSummaryByTranscript returns the latest summary for a transcript.
func (s *Store) GetSummaryByTranscript(ctx context.Context, transcriptID int64) (*Summary, error) {
	sum, err := scanSummary(s.summaryStmts.getByTranscript.QueryRowContext(ctx, transcriptID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("store: getting summary for transcript %d: %w", transcriptID, err)
	}

	return sum, nil
}

// ListSummaries returns all summaries, newest first.
func (s *Store) ListSummaries(ctx context.Context) ([]Summary, error) {
	rows, err := s.summaryStmts.list.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: listing summaries: %w", err)
	}
	defer rows.Close()

	var summaries []Summary

	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scanning summary: %w", err)
		}

		summaries = append(summaries, *sum)
	}

	return summaries, rows.Err()
}

// UpdateSummaryContent replaces a summary's text (generation result or
// manual edit).
func (s *Store) UpdateSummaryContent(ctx context.Context, id int64, content string) error {
	res, err := s.summaryStmts.updateContent.ExecContext(ctx, content, id)
	if err != nil {
		return fmt.Errorf("store: updating summary %d: %w", id, err)
	}

	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite always reports rows affected
		return ErrNotFound
	}

	return nil
}

// SetSummaryStatus moves a summary through the processing states.
func (s *Store) SetSummaryStatus(ctx context.Context, id int64, status string) error {
	res, err := s.summaryStmts.setStatus.ExecContext(ctx, status, id)
	if err != nil {
		return fmt.Errorf("store: updating summary status: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite always reports rows affected
		return ErrNotFound
	}

	return nil
}

func scanSummary(row rowScanner) (*Summary, error) {
	var (
		sum                  Summary
		createdAt, updatedAt string
	)

	err := row.Scan(&sum.ID, &sum.TranscriptID, &sum.Content, &sum.Status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	sum.CreatedAt = parseTime(createdAt)
	sum.UpdatedAt = parseTime(updatedAt)

	return &sum, nil
}
