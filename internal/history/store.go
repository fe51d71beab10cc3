// Package history owns the conversation log: an ordered, append-only
// sequence of turns mirrored to a JSON snapshot on disk.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/sentio-ai/sentio/backend/internal/model/therapy"
)

// Store keeps the in-memory log authoritative for the life of the process.
// Appends are serialized because every append rewrites the full persisted
// snapshot.
type Store struct {
	mu     sync.Mutex
	path   string
	turns  []therapy.Turn
	logger *log.Logger
}

// Load reads the persisted log at path. A missing file yields an empty
// history; a corrupt file is an error.
func Load(path string, logger *log.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read history %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, &s.turns); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", path, err)
	}

	logger.Info("history loaded", "path", path, "turns", len(s.turns))
	return s, nil
}

// Append adds one turn and flushes the full snapshot to disk before
// returning. A persist failure is returned to the caller but the in-memory
// append stands; the in-memory log remains the source of truth.
func (s *Store) Append(turn therapy.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.Timestamp.IsZero() {
		turn = therapy.NewTurn(turn.Speaker, turn.Message)
	}
	// Timestamps never go backwards within a session.
	if n := len(s.turns); n > 0 && turn.Timestamp.Before(s.turns[n-1].Timestamp) {
		turn.Timestamp = s.turns[n-1].Timestamp
	}

	s.turns = append(s.turns, turn)

	if err := s.persistLocked(); err != nil {
		s.logger.Error("failed to persist history", "path", s.path, "error", err)
		return err
	}
	return nil
}

// Recent returns the last n turns in chronological order. It returns fewer
// than n when the history is shorter, and an empty slice for n <= 0 or an
// empty history.
func (s *Store) Recent(n int) []therapy.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || len(s.turns) == 0 {
		return nil
	}
	start := 0
	if len(s.turns) > n {
		start = len(s.turns) - n
	}

	copied := make([]therapy.Turn, len(s.turns)-start)
	copy(copied, s.turns[start:])
	return copied
}

// Len reports the number of turns recorded so far.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// persistLocked rewrites the snapshot atomically: temp file in the same
// directory, then rename over the target.
func (s *Store) persistLocked() error {
	raw, err := json.MarshalIndent(s.turns, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
