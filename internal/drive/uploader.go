package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/verbale-app/verbale/internal/graph"
	"github.com/verbale-app/verbale/internal/msauth"
)

// Destination folders for the document kinds this backend exports.
const (
	TranscriptFolder = "Verbale/Transcripts"
	SummaryFolder    = "Verbale/Summaries"
	AudioFolder      = "Verbale/Audio"
)

// spoLicenseMarker appears in Graph error bodies when a personal account's
// storage plan cannot take uploads through this API.
const spoLicenseMarker = "does not have a SPO license"

// UploadRequest describes one file upload.
type UploadRequest struct {
	UserID     string
	FileName   string
	FolderPath string
	Content    []byte
}

// UploadResult reports a completed upload.
type UploadResult struct {
	RemoteID   string `json:"remote_id"`
	RemoteName string `json:"remote_name"`
	WebURL     string `json:"web_url"`
	ByteSize   int64  `json:"byte_size"`
}

// Uploader is the single gate every OneDrive upload passes through. It
// resolves a fresh access token, provisions the destination folder where the
// account supports it, and issues the content PUT.
type Uploader struct {
	auth       *msauth.Authenticator
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	// now feeds timestamped file names; tests pin it.
	now func() time.Time
}

// NewUploader creates an Uploader. baseURL is typically
// "https://graph.microsoft.com/v1.0".
func NewUploader(auth *msauth.Authenticator, baseURL string, httpClient *http.Client, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Uploader{
		auth:       auth,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

// client binds an already-validated access token to a Graph client for the
// duration of one request. Clients are cheap; no pooling.
func (u *Uploader) client(token string) *graph.Client {
	return graph.NewClient(u.baseURL, u.httpClient, graph.StaticToken(token), u.logger)
}

// Upload runs the full pipeline: token resolution, folder provisioning,
// content PUT, and response classification. Payloads above the simple-upload
// ceiling are rejected before any network traffic.
func (u *Uploader) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if int64(len(req.Content)) > graph.SimpleUploadMaxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(req.Content))
	}

	token, err := u.auth.ValidToken(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	client := u.client(token)

	folderPath := strings.Trim(req.FolderPath, "/")
	if folderPath != "" && !u.auth.Profile().IsPersonal() {
		if err := u.EnsureFolder(ctx, client, folderPath); err != nil {
			return nil, err
		}
	}

	// File names arrive from browsers on different platforms; NFC keeps
	// decomposed names (macOS) from colliding with composed duplicates.
	name := norm.NFC.String(req.FileName)

	remotePath := name
	if folderPath != "" {
		remotePath = folderPath + "/" + name
	}

	item, err := client.PutContent(ctx, remotePath, bytes.NewReader(req.Content), int64(len(req.Content)))
	if err != nil {
		return nil, u.classifyUploadError(err)
	}

	u.logger.Info("upload stored",
		slog.String("user_id", req.UserID),
		slog.String("remote_path", remotePath),
		slog.String("item_id", item.ID),
	)

	return &UploadResult{
		RemoteID:   item.ID,
		RemoteName: item.Name,
		WebURL:     item.WebURL,
		ByteSize:   item.Size,
	}, nil
}

// classifyUploadError translates the personal-plan limitation into its own
// error type so the handler can tell the user what to do about it. Anything
// else passes through unchanged (graph errors are already typed).
func (u *Uploader) classifyUploadError(err error) error {
	var apiErr *graph.APIError
	if u.auth.Profile().IsPersonal() && errors.As(err, &apiErr) &&
		strings.Contains(apiErr.Body, spoLicenseMarker) {
		return &UnsupportedAccountError{Detail: "personal OneDrive plan lacks upload support"}
	}

	return err
}

// UploadTranscript exports a transcript document under TranscriptFolder.
func (u *Uploader) UploadTranscript(ctx context.Context, userID string, transcriptID int64, content []byte) (*UploadResult, error) {
	return u.Upload(ctx, UploadRequest{
		UserID:     userID,
		FileName:   fmt.Sprintf("transcript_%d_%s.docx", transcriptID, u.now().Format("20060102_150405")),
		FolderPath: TranscriptFolder,
		Content:    content,
	})
}

// UploadSummary exports a summary document under SummaryFolder.
func (u *Uploader) UploadSummary(ctx context.Context, userID string, summaryID int64, content []byte) (*UploadResult, error) {
	return u.Upload(ctx, UploadRequest{
		UserID:     userID,
		FileName:   fmt.Sprintf("summary_%d_%s.docx", summaryID, u.now().Format("20060102_150405")),
		FolderPath: SummaryFolder,
		Content:    content,
	})
}

// UploadAudio stores a source recording under AudioFolder, keeping the
// original file name.
func (u *Uploader) UploadAudio(ctx context.Context, userID, fileName string, content []byte) (*UploadResult, error) {
	return u.Upload(ctx, UploadRequest{
		UserID:     userID,
		FileName:   fileName,
		FolderPath: AudioFolder,
		Content:    content,
	})
}

// TestConnection probes the user's drive, proving the stored credential
// still works end to end.
func (u *Uploader) TestConnection(ctx context.Context, userID string) (*graph.DriveInfo, error) {
	token, err := u.auth.ValidToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	return u.client(token).GetDriveRoot(ctx)
}
