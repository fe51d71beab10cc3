package speech

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	return NewClient(Config{
		APIKey:    "test-key",
		BaseURL:   serverURL,
		OutputDir: t.TempDir(),
	}, log.New(io.Discard))
}

func TestSpeakWritesClipFile(t *testing.T) {
	wavBody := []byte("RIFF-fake-wav-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speak" {
			t.Errorf("path = %q, want /v1/speak", r.URL.Path)
		}
		if got := r.URL.Query().Get("model"); got != defaultTTSModel {
			t.Errorf("model = %q, want %q", got, defaultTTSModel)
		}
		if got := r.Header.Get("Authorization"); got != "Token test-key" {
			t.Errorf("authorization = %q", got)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["text"] != "hello there" {
			t.Errorf("unexpected body %v (err %v)", body, err)
		}
		w.Write(wavBody)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	path, err := c.Speak(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("speak: %v", err)
	}

	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read clip: %v", err)
	}
	if string(written) != string(wavBody) {
		t.Errorf("clip content mismatch")
	}

	// Clips must be uniquely named for concurrent turns.
	second, err := c.Speak(context.Background(), "hello again")
	if err != nil {
		t.Fatal(err)
	}
	if second == path {
		t.Errorf("second clip reused path %q", path)
	}
}

func TestSpeakStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	if _, err := c.Speak(context.Background(), "hi"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestTranscribeExtractsTranscript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/listen" {
			t.Errorf("path = %q, want /v1/listen", r.URL.Path)
		}
		if got := r.URL.Query().Get("model"); got != defaultSTTModel {
			t.Errorf("model = %q, want %q", got, defaultSTTModel)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "fake-audio" {
			t.Errorf("audio body = %q", body)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": map[string]any{
				"channels": []map[string]any{{
					"alternatives": []map[string]any{{
						"transcript": "I feel anxious about my exam.",
					}},
				}},
			},
		})
	}))
	defer server.Close()

	audioPath := filepath.Join(t.TempDir(), "input.wav")
	if err := os.WriteFile(audioPath, []byte("fake-audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := newTestClient(t, server.URL)
	text, err := c.Transcribe(context.Background(), audioPath)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "I feel anxious about my exam." {
		t.Errorf("transcript = %q", text)
	}
}

func TestTranscribeEmptyTranscriptFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": map[string]any{
				"channels": []map[string]any{{
					"alternatives": []map[string]any{{"transcript": ""}},
				}},
			},
		})
	}))
	defer server.Close()

	audioPath := filepath.Join(t.TempDir(), "input.wav")
	if err := os.WriteFile(audioPath, []byte("silence"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := newTestClient(t, server.URL)
	_, err := c.Transcribe(context.Background(), audioPath)
	if !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("err = %v, want ErrEmptyTranscript", err)
	}
}

func TestTranscribeMissingFileFails(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0")
	if _, err := c.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Fatal("expected error for unreadable audio file")
	}
}
