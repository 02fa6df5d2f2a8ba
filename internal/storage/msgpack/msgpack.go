// Package msgpack is a telemetry sink that appends every snapshot to a file as a
// stream of msgpack documents.
package msgpack

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/chrissnell/snowtiles/internal/log"
	"github.com/chrissnell/snowtiles/internal/storage"
	"github.com/chrissnell/snowtiles/internal/types"
	"github.com/vmihailenco/msgpack/v5"
)

// Storage appends snapshots to a file
type Storage struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	enc    *msgpack.Encoder
	health *storage.HealthManager
}

// New opens path for appending, creating it if needed
func New(path string, health *storage.HealthManager) (*Storage, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening msgpack trace %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	return &Storage{f: f, w: w, enc: msgpack.NewEncoder(w), health: health}, nil
}

// StartStorageEngine creates a goroutine loop to receive snapshots and append
// them to the trace file
func (s *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.GridSnapshot {
	log.Info("starting msgpack storage engine...")
	c := make(chan types.GridSnapshot, 10)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer s.Close()
		storage.ProcessSnapshots(ctx, c, s.StoreSnapshot, "msgpack", s.health)
	}()
	return c
}

// StoreSnapshot encodes one snapshot and flushes it to disk
func (s *Storage) StoreSnapshot(snap types.GridSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return errors.New("msgpack trace is closed")
	}
	if err := s.enc.Encode(&snap); err != nil {
		return err
	}
	return s.w.Flush()
}

// Close flushes and closes the file
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return nil
	}
	err := s.w.Flush()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	s.f = nil
	return err
}

// ReadTrace decodes snapshots from r in order, calling fn for each one. It stops
// at the end of the stream or at the first error returned by fn.
func ReadTrace(r io.Reader, fn func(types.GridSnapshot) error) error {
	dec := msgpack.NewDecoder(bufio.NewReader(r))
	for {
		var snap types.GridSnapshot
		err := dec.Decode(&snap)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("decoding snapshot: %w", err)
		}
		if err := fn(snap); err != nil {
			return err
		}
	}
}

// ReadTraceFile is ReadTrace over a file on disk
func ReadTraceFile(path string, fn func(types.GridSnapshot) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReadTrace(f, fn)
}
