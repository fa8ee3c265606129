package drive

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/verbale-app/verbale/internal/graph"
)

// EnsureFolder walks folderPath left to right and guarantees every prefix
// exists, creating missing segments along the way. Creation asks the remote
// to fail on a name collision; a 409 therefore means another caller created
// the segment first, which is as good as creating it ourselves. This makes
// the walk idempotent under concurrency — racing callers converge on one
// folder instead of spawning renamed duplicates.
func (u *Uploader) EnsureFolder(ctx context.Context, client *graph.Client, folderPath string) error {
	segments := strings.Split(strings.Trim(folderPath, "/"), "/")

	var prefix string

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		parent := prefix

		if prefix == "" {
			prefix = segment
		} else {
			prefix = prefix + "/" + segment
		}

		_, err := client.GetItemByPath(ctx, prefix)
		if err == nil {
			continue
		}

		if !errors.Is(err, graph.ErrNotFound) {
			return &FolderEnsureError{Path: prefix, Err: err}
		}

		_, err = client.CreateFolder(ctx, parent, segment)
		if err != nil && !errors.Is(err, graph.ErrConflict) {
			return &FolderEnsureError{Path: prefix, Err: err}
		}

		if errors.Is(err, graph.ErrConflict) {
			u.logger.Debug("folder created concurrently elsewhere",
				slog.String("path", prefix),
			)
		}
	}

	return nil
}
