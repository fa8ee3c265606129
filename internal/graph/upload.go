package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// SimpleUploadMaxSize is the maximum payload for the single-request content
// PUT (4 MiB). The Graph simple-upload endpoint misbehaves above this; the
// upload pipeline rejects larger payloads before any network call.
const SimpleUploadMaxSize = 4 * 1024 * 1024

// PutContent uploads content to remotePath (relative to the drive root,
// no leading slash) using a single whole-body PUT. The content is sent as
// application/octet-stream. Never retried — the idempotency of a PUT that
// failed partway through is unverified.
func (c *Client) PutContent(ctx context.Context, remotePath string, r io.Reader, size int64) (*Item, error) {
	c.logger.Info("uploading content",
		slog.String("path", remotePath),
		slog.Int64("size", size),
	)

	apiPath := fmt.Sprintf("/me/drive/root:/%s:/content", encodePathSegments(remotePath))

	resp, err := c.doRawUpload(ctx, http.MethodPut, apiPath, "application/octet-stream", r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dir driveItemResponse
	if decErr := json.NewDecoder(resp.Body).Decode(&dir); decErr != nil {
		return nil, fmt.Errorf("graph: decoding upload response: %w", decErr)
	}

	item := dir.toItem(c.logger)

	c.logger.Info("upload complete",
		slog.String("item_id", item.ID),
		slog.String("item_name", item.Name),
	)

	return &item, nil
}

// doRawUpload sends an authenticated request with a custom content type.
// Unlike Do(), this does not retry — retrying a partially-consumed reader
// is not safe.
func (c *Client) doRawUpload(
	ctx context.Context, method, path, contentType string, body io.Reader,
) (*http.Response, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("graph: creating upload request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("graph: obtaining token for upload: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("upload request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		errBody, _ := io.ReadAll(resp.Body) //nolint:errcheck // best-effort read for error message
		resp.Body.Close()

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			RequestID:  resp.Header.Get("request-id"),
			Body:       string(errBody),
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	return resp, nil
}
