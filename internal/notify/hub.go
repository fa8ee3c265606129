// Package notify pushes processing events (transcription done, summary
// ready, upload finished) to connected browsers over WebSocket.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// writeTimeout bounds one broadcast write per client; a stuck client is
// dropped instead of stalling the hub.
const writeTimeout = 5 * time.Second

// Event is one notification pushed to all connected clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Event types.
const (
	EventAudioReceived  = "audio_received"
	EventTranscriptDone = "transcript_done"
	EventSummaryDone    = "summary_done"
	EventUploadDone     = "upload_done"
	EventJobFailed      = "job_failed"
)

// Hub fans events out to every connected WebSocket client. It implements
// http.Handler for the /ws endpoint.
type Hub struct {
	originPatterns []string
	logger         *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewHub creates a Hub. originPatterns feeds the WebSocket origin check;
// pass the frontend host.
func NewHub(originPatterns []string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		originPatterns: originPatterns,
		logger:         logger,
		conns:          map[*websocket.Conn]struct{}{},
	}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away. Clients never send meaningful data; the read loop
// only detects disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", slog.String("error", err.Error()))
		return
	}

	h.register(conn)
	defer h.unregister(conn)

	h.logger.Debug("websocket client connected", slog.Int("clients", h.ClientCount()))

	ctx := r.Context()

	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

// Broadcast sends the event to every connected client. Clients whose write
// fails are dropped.
func (h *Hub) Broadcast(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshaling event", slog.String("error", err.Error()))
		return
	}

	for _, conn := range h.snapshot() {
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)

		if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
			h.logger.Debug("dropping unresponsive websocket client",
				slog.String("error", err.Error()),
			)
			h.unregister(conn)
			_ = conn.Close(websocket.StatusPolicyViolation, "write failed")
		}

		cancel()
	}
}

// ClientCount reports how many clients are connected.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.conns)
}

// Close disconnects every client, typically during server shutdown.
func (h *Hub) Close() {
	for _, conn := range h.snapshot() {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		h.unregister(conn)
	}
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[conn] = struct{}{}
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.conns, conn)
}

func (h *Hub) snapshot() []*websocket.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}

	return conns
}
