package mapping

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/ethcatherders/acdbot/pkg/logging"
)

// Checkpointer publishes mapping-file content as a durable,
// version-controlled checkpoint attributed to the bot identity.
type Checkpointer interface {
	Commit(ctx context.Context, content []byte) error
}

// Store reads and writes the mapping file and pushes checkpoints.
//
// There is no concurrent-writer protection: invocations are serialized
// externally, and the caller discipline is load, mutate, save, commit
// per logical step to keep the lost-update window small.
type Store struct {
	path         string
	checkpointer Checkpointer
	log          logging.Logger
}

// NewStore creates a Store for the mapping file at path.
func NewStore(path string, cp Checkpointer, log logging.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{path: path, checkpointer: cp, log: log}
}

// Path returns the mapping file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads and decodes the mapping file. A missing file yields an
// empty mapping.
func (s *Store) Load() (*Mapping, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewMapping(), nil
		}
		return nil, fmt.Errorf("reading mapping file: %w", err)
	}
	m, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.path, err)
	}
	return m, nil
}

// Save encodes the mapping and atomically replaces the file, creating
// parent directories as needed.
func (s *Store) Save(m *Mapping) error {
	data, err := m.Encode()
	if err != nil {
		return fmt.Errorf("encoding mapping: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating mapping directory: %w", err)
		}
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing mapping file: %w", err)
	}
	return nil
}

// Commit publishes the current on-disk content as a checkpoint. With no
// checkpointer configured it is a no-op, which keeps local runs usable
// without repository credentials.
func (s *Store) Commit(ctx context.Context) error {
	if s.checkpointer == nil {
		s.log.Debug("no checkpointer configured, skipping commit")
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("reading mapping file for commit: %w", err)
	}
	if err := s.checkpointer.Commit(ctx, data); err != nil {
		return fmt.Errorf("committing mapping file: %w", err)
	}
	s.log.Debug("mapping checkpoint committed", logging.F("path", s.path))
	return nil
}
