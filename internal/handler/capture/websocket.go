// Package capture persists raw audio streamed over a websocket. This is a
// pure file sink; captured audio is not fed into the conversation pipeline.
package capture

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handler accepts websocket connections and appends binary frames to a
// capture file per connection.
type Handler struct {
	captureDir string
	upgrader   websocket.Upgrader
	logger     *log.Logger
}

// New creates a capture handler writing under captureDir.
func New(captureDir string, logger *log.Logger) *Handler {
	return &Handler{
		captureDir: captureDir,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

// RegisterRoutes wires the capture endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/capture", h.handleCapture)
}

type captureAck struct {
	File  string `json:"file"`
	Bytes int64  `json:"bytes"`
}

func (h *Handler) handleCapture(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	if err := os.MkdirAll(h.captureDir, 0o755); err != nil {
		h.logger.Error("failed to create capture dir", "error", err)
		return
	}

	name := fmt.Sprintf("capture_%s.wav", uuid.NewString())
	path := filepath.Join(h.captureDir, name)
	sink, err := os.Create(path)
	if err != nil {
		h.logger.Error("failed to create capture file", "error", err)
		return
	}
	defer sink.Close()

	h.logger.Info("capture started", "file", name)
	if err := conn.WriteJSON(captureAck{File: name}); err != nil {
		return
	}

	var written int64
	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			// Normal close or broken peer; either way the sink is complete.
			break
		}

		switch msgType {
		case websocket.BinaryMessage:
			n, err := sink.Write(payload)
			written += int64(n)
			if err != nil {
				h.logger.Error("capture write failed", "file", name, "error", err)
				return
			}
		case websocket.TextMessage:
			if string(payload) == "stop" {
				_ = conn.WriteJSON(captureAck{File: name, Bytes: written})
				h.logger.Info("capture finished", "file", name, "bytes", written)
				return
			}
		}
	}

	h.logger.Info("capture closed", "file", name, "bytes", written)
}
