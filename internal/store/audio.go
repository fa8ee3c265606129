package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InsertAudioFile records a new audio file in StatusPending.
func (s *Store) InsertAudioFile(ctx context.Context, fileName, path string, sizeBytes int64) (*AudioFile, error) {
	af := &AudioFile{
		FileName:  fileName,
		Path:      path,
		SizeBytes: sizeBytes,
		Status:    StatusPending,
	}

	var createdAt string

	err := s.audioStmts.insert.QueryRowContext(ctx, fileName, path, sizeBytes, StatusPending).
		Scan(&af.ID, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("store: inserting audio file: %w", err)
	}

	af.CreatedAt = parseTime(createdAt)

	return af, nil
}

// GetAudioFile retrieves one audio file by id.
func (s *Store) GetAudioFile(ctx context.Context, id int64) (*AudioFile, error) {
	var (
		af        AudioFile
		createdAt string
	)

	err := s.audioStmts.get.QueryRowContext(ctx, id).
		Scan(&af.ID, &af.FileName, &af.Path, &af.SizeBytes, &af.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("store: getting audio file %d: %w", id, err)
	}

	af.CreatedAt = parseTime(createdAt)

	return &af, nil
}

// ListAudioFiles returns all audio files, newest first.
func (s *Store) ListAudioFiles(ctx context.Context) ([]AudioFile, error) {
	rows, err := s.audioStmts.list.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: listing audio files: %w", err)
	}
	defer rows.Close()

	var files []AudioFile

	for rows.Next() {
		var (
			af        AudioFile
			createdAt string
		)

		if err := rows.Scan(&af.ID, &af.FileName, &af.Path, &af.SizeBytes, &af.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scanning audio file: %w", err)
		}

		af.CreatedAt = parseTime(createdAt)
		files = append(files, af)
	}

	return files, rows.Err()
}

// SetAudioStatus moves an audio file through the processing states.
func (s *Store) SetAudioStatus(ctx context.Context, id int64, status string) error {
	res, err := s.audioStmts.setStatus.ExecContext(ctx, status, id)
	if err != nil {
		return fmt.Errorf("store: updating audio status: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite always reports rows affected
		return ErrNotFound
	}

	return nil
}
