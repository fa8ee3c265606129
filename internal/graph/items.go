package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ConflictBehaviorFail makes folder creation return 409 on a name collision
// instead of renaming the new item. The folder ensurer treats that 409 as
// "already exists", which keeps ensure idempotent when two requests race.
const ConflictBehaviorFail = "fail"

// Item is a normalized drive item (file or folder). Callers never see raw
// Graph API JSON.
type Item struct {
	ID         string
	Name       string
	Size       int64
	ETag       string
	WebURL     string
	IsFolder   bool
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// DriveInfo describes the signed-in user's default drive, used by the
// connection probe endpoint.
type DriveInfo struct {
	Name       string
	Owner      string
	TotalBytes int64
	UsedBytes  int64
}

// encodePathSegments URL-encodes each segment of a slash-separated path.
// Characters like #, ?, %, and spaces are encoded per-segment so the
// resulting path is safe for interpolation into Graph API URLs.
func encodePathSegments(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return strings.Join(segments, "/")
}

// driveItemResponse mirrors the Graph API driveItem JSON exactly.
// Unexported — callers use Item via toItem() normalization.
type driveItemResponse struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	Size                 int64        `json:"size"`
	ETag                 string       `json:"eTag"`
	WebURL               string       `json:"webUrl"`
	CreatedDateTime      string       `json:"createdDateTime"`
	LastModifiedDateTime string       `json:"lastModifiedDateTime"`
	Folder               *folderFacet `json:"folder"`
}

type folderFacet struct {
	ChildCount int `json:"childCount"`
}

type createFolderRequest struct {
	Name             string      `json:"name"`
	Folder           folderFacet `json:"folder"`
	ConflictBehavior string      `json:"@microsoft.graph.conflictBehavior"` //nolint:tagliatelle // Graph API annotation key
}

type driveResponse struct {
	Name  string `json:"name"`
	Owner struct {
		User struct {
			DisplayName string `json:"displayName"`
		} `json:"user"`
	} `json:"owner"`
	Quota struct {
		Total int64 `json:"total"`
		Used  int64 `json:"used"`
	} `json:"quota"`
}

// toItem normalizes a Graph API driveItem response into our Item type.
func (d *driveItemResponse) toItem(logger *slog.Logger) Item {
	return Item{
		ID:         d.ID,
		Name:       d.Name,
		Size:       d.Size,
		ETag:       d.ETag,
		WebURL:     d.WebURL,
		IsFolder:   d.Folder != nil,
		CreatedAt:  parseTimestamp(d.CreatedDateTime, "createdDateTime", d.ID, logger),
		ModifiedAt: parseTimestamp(d.LastModifiedDateTime, "lastModifiedDateTime", d.ID, logger),
	}
}

// parseTimestamp parses an RFC3339 timestamp. Missing or invalid timestamps
// are replaced with time.Now().UTC() and logged.
func parseTimestamp(raw, field, itemID string, logger *slog.Logger) time.Time {
	if raw == "" {
		return time.Now().UTC()
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.Warn("invalid timestamp, using current time",
			slog.String("field", field),
			slog.String("item_id", itemID),
			slog.String("raw", raw),
			slog.String("error", err.Error()),
		)

		return time.Now().UTC()
	}

	return t
}

// GetItemByPath retrieves a drive item by its path relative to the drive
// root. The path must NOT have a leading slash (caller strips it).
func (c *Client) GetItemByPath(ctx context.Context, remotePath string) (*Item, error) {
	c.logger.Debug("getting item by path", slog.String("path", remotePath))

	resp, err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/me/drive/root:/%s", encodePathSegments(remotePath)), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dir driveItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&dir); err != nil {
		return nil, fmt.Errorf("graph: decoding item response: %w", err)
	}

	item := dir.toItem(c.logger)

	return &item, nil
}

// CreateFolder creates a folder named name under parentPath (empty string
// for the drive root). conflictBehavior "fail" returns ErrConflict (409) on
// a name collision so the caller can treat the folder as already present.
func (c *Client) CreateFolder(ctx context.Context, parentPath, name string) (*Item, error) {
	c.logger.Info("creating folder",
		slog.String("parent", parentPath),
		slog.String("name", name),
	)

	apiPath := "/me/drive/root/children"
	if parentPath != "" {
		apiPath = fmt.Sprintf("/me/drive/root:/%s:/children", encodePathSegments(parentPath))
	}

	reqBody := createFolderRequest{
		Name:             name,
		Folder:           folderFacet{},
		ConflictBehavior: ConflictBehaviorFail,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("graph: marshaling create folder request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPost, apiPath, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dir driveItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&dir); err != nil {
		return nil, fmt.Errorf("graph: decoding create folder response: %w", err)
	}

	item := dir.toItem(c.logger)

	return &item, nil
}

// GetDriveRoot probes the signed-in user's default drive. Used by the
// connection test endpoint to confirm the token actually works.
func (c *Client) GetDriveRoot(ctx context.Context) (*DriveInfo, error) {
	c.logger.Debug("probing drive root")

	resp, err := c.Do(ctx, http.MethodGet, "/me/drive", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dr driveResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("graph: decoding drive response: %w", err)
	}

	return &DriveInfo{
		Name:       dr.Name,
		Owner:      dr.Owner.User.DisplayName,
		TotalBytes: dr.Quota.Total,
		UsedBytes:  dr.Quota.Used,
	}, nil
}
