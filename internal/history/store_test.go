package history

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sentio-ai/sentio/backend/internal/model/therapy"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestLoadMissingFileReturnsEmptyHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat_history.json")

	store, err := Load(path, testLogger())
	if err != nil {
		t.Fatalf("expected missing file to load cleanly, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty history, got %d turns", store.Len())
	}
}

func TestLoadCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat_history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path, testLogger()); err == nil {
		t.Fatal("expected error for corrupt history file")
	}
}

func TestRecentReturnsChronologicalSuffix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat_history.json")
	store, err := Load(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 7; i++ {
		speaker := therapy.SpeakerUser
		if i%2 == 1 {
			speaker = therapy.SpeakerAssistant
		}
		if err := store.Append(therapy.NewTurn(speaker, fmt.Sprintf("turn %d", i))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	recent := store.Recent(3)
	if len(recent) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(recent))
	}
	for i, turn := range recent {
		want := fmt.Sprintf("turn %d", 4+i)
		if turn.Message != want {
			t.Errorf("recent[%d] = %q, want %q", i, turn.Message, want)
		}
	}

	if got := store.Recent(100); len(got) != 7 {
		t.Errorf("recent(100) returned %d turns, want all 7", len(got))
	}
	if got := store.Recent(0); len(got) != 0 {
		t.Errorf("recent(0) returned %d turns, want none", len(got))
	}
}

func TestRoundTripPreservesTurns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat_history.json")
	store, err := Load(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	turns := []therapy.Turn{
		{Speaker: therapy.SpeakerUser, Message: "I feel anxious about my exam", Timestamp: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
		{Speaker: therapy.SpeakerAssistant, Message: "That sounds stressful.", Timestamp: time.Date(2025, 3, 1, 10, 0, 2, 0, time.UTC)},
		{Speaker: therapy.SpeakerUser, Message: "It is.", Timestamp: time.Date(2025, 3, 1, 10, 0, 9, 0, time.UTC)},
	}
	for _, turn := range turns {
		if err := store.Append(turn); err != nil {
			t.Fatal(err)
		}
	}

	reloaded, err := Load(path, testLogger())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	got := reloaded.Recent(len(turns))
	if len(got) != len(turns) {
		t.Fatalf("reloaded %d turns, want %d", len(got), len(turns))
	}
	for i := range turns {
		if got[i] != turns[i] {
			t.Errorf("turn %d = %+v, want %+v", i, got[i], turns[i])
		}
	}
}

func TestAppendAssignsAndClampsTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat_history.json")
	store, err := Load(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Append(therapy.Turn{Speaker: therapy.SpeakerUser, Message: "first"}); err != nil {
		t.Fatal(err)
	}
	first := store.Recent(1)[0]
	if first.Timestamp.IsZero() {
		t.Fatal("expected append to assign a timestamp")
	}

	// A turn stamped in the past must not move time backwards.
	stale := therapy.Turn{
		Speaker:   therapy.SpeakerAssistant,
		Message:   "second",
		Timestamp: first.Timestamp.Add(-time.Hour),
	}
	if err := store.Append(stale); err != nil {
		t.Fatal(err)
	}

	got := store.Recent(2)
	if got[1].Timestamp.Before(got[0].Timestamp) {
		t.Errorf("timestamps went backwards: %v then %v", got[0].Timestamp, got[1].Timestamp)
	}
}

func TestPersistFailureKeepsInMemoryLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat_history.json")
	store, err := Load(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Append(therapy.NewTurn(therapy.SpeakerUser, "hello")); err != nil {
		t.Fatal(err)
	}

	// Make the snapshot directory unwritable so the flush fails.
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	err = store.Append(therapy.NewTurn(therapy.SpeakerAssistant, "hi there"))
	if err == nil {
		t.Skip("filesystem permitted the write; cannot simulate persist failure")
	}

	if store.Len() != 2 {
		t.Errorf("in-memory log lost the turn after persist failure: len=%d", store.Len())
	}
}

func TestConcurrentAppendsLoseNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat_history.json")
	store, err := Load(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	const writers = 8
	const perWriter = 10

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_ = store.Append(therapy.NewTurn(therapy.SpeakerUser, fmt.Sprintf("w%d-%d", w, i)))
			}
		}(w)
	}
	wg.Wait()

	if store.Len() != writers*perWriter {
		t.Fatalf("expected %d turns, got %d", writers*perWriter, store.Len())
	}

	reloaded, err := Load(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Len() != writers*perWriter {
		t.Errorf("persisted %d turns, want %d", reloaded.Len(), writers*perWriter)
	}
}
