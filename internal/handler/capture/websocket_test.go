package capture

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

func dialCapture(t *testing.T) (*websocket.Conn, string, func()) {
	t.Helper()
	captureDir := t.TempDir()

	r := chi.NewRouter()
	New(captureDir, log.New(io.Discard)).RegisterRoutes(r)
	server := httptest.NewServer(r)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/capture"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		server.Close()
		t.Fatalf("dial: %v", err)
	}

	return conn, captureDir, func() {
		conn.Close()
		server.Close()
	}
}

func TestCaptureSinkWritesBinaryFrames(t *testing.T) {
	conn, captureDir, cleanup := dialCapture(t)
	defer cleanup()

	var opening captureAck
	if err := conn.ReadJSON(&opening); err != nil {
		t.Fatalf("read opening ack: %v", err)
	}
	if opening.File == "" {
		t.Fatal("opening ack missing file name")
	}

	chunks := [][]byte{[]byte("RIFF"), []byte("chunk-one"), []byte("chunk-two")}
	for _, chunk := range chunks {
		if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			t.Fatal(err)
		}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte("stop")); err != nil {
		t.Fatal(err)
	}

	var final captureAck
	if err := conn.ReadJSON(&final); err != nil {
		t.Fatalf("read final ack: %v", err)
	}

	want := "RIFFchunk-onechunk-two"
	if final.Bytes != int64(len(want)) {
		t.Errorf("ack bytes = %d, want %d", final.Bytes, len(want))
	}

	written, err := os.ReadFile(filepath.Join(captureDir, final.File))
	if err != nil {
		t.Fatalf("read capture file: %v", err)
	}
	if string(written) != want {
		t.Errorf("capture content = %q, want %q", written, want)
	}
}

func TestCaptureSinkSurvivesAbruptClose(t *testing.T) {
	conn, captureDir, cleanup := dialCapture(t)
	defer cleanup()

	var opening captureAck
	if err := conn.ReadJSON(&opening); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte("partial")); err != nil {
		t.Fatal(err)
	}
	conn.Close()

	// The file must exist with whatever was streamed before the drop.
	path := filepath.Join(captureDir, opening.File)
	ok := false
	for i := 0; i < 50; i++ {
		if raw, err := os.ReadFile(path); err == nil && string(raw) == "partial" {
			ok = true
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !ok {
		t.Errorf("capture file missing or incomplete after abrupt close")
	}
}
