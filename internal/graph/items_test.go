package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetItemByPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/drive/root:/Reports/2026", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"id": "item-1",
			"name": "2026",
			"folder": {"childCount": 3},
			"createdDateTime": "2026-01-02T10:00:00Z",
			"lastModifiedDateTime": "2026-01-03T10:00:00Z"
		}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	item, err := client.GetItemByPath(context.Background(), "Reports/2026")
	require.NoError(t, err)

	assert.Equal(t, "item-1", item.ID)
	assert.Equal(t, "2026", item.Name)
	assert.True(t, item.IsFolder)
	assert.Equal(t, 2026, item.CreatedAt.Year())
}

func TestGetItemByPath_EncodesSegments(t *testing.T) {
	var gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"id":"x","name":"y"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.GetItemByPath(context.Background(), "Minutes 2026/Q1 #final")
	require.NoError(t, err)
	assert.Contains(t, gotPath, "Minutes%202026/Q1%20%23final")
}

func TestCreateFolder_RootParent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/me/drive/root/children", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Reports", req["name"])
		assert.Equal(t, "fail", req["@microsoft.graph.conflictBehavior"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"f-1","name":"Reports","folder":{"childCount":0}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	item, err := client.CreateFolder(context.Background(), "", "Reports")
	require.NoError(t, err)
	assert.Equal(t, "f-1", item.ID)
	assert.True(t, item.IsFolder)
}

func TestCreateFolder_NestedParent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/me/drive/root:/Reports:"), r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"f-2","name":"2026","folder":{"childCount":0}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.CreateFolder(context.Background(), "Reports", "2026")
	require.NoError(t, err)
}

func TestCreateFolder_ConflictSurfacesSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"code":"nameAlreadyExists"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.CreateFolder(context.Background(), "", "Reports")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestPutContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/me/drive/root:/Reports/minutes.docx:/content", r.URL.Path)
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"up-1","name":"minutes.docx","size":42,"webUrl":"https://1drv/x"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	item, err := client.PutContent(context.Background(), "Reports/minutes.docx", strings.NewReader("hello"), 5)
	require.NoError(t, err)

	assert.Equal(t, "up-1", item.ID)
	assert.Equal(t, "minutes.docx", item.Name)
	assert.Equal(t, int64(42), item.Size)
	assert.Equal(t, "https://1drv/x", item.WebURL)
}

func TestPutContent_ErrorCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`user does not have a SPO license`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.PutContent(context.Background(), "x.docx", strings.NewReader("x"), 1)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "SPO license")
}

func TestGetDriveRoot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/drive", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"name": "OneDrive",
			"owner": {"user": {"displayName": "Ada"}},
			"quota": {"total": 1000, "used": 250}
		}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	info, err := client.GetDriveRoot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "OneDrive", info.Name)
	assert.Equal(t, "Ada", info.Owner)
	assert.Equal(t, int64(1000), info.TotalBytes)
	assert.Equal(t, int64(250), info.UsedBytes)
}
