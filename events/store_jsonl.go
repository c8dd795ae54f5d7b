package events

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// File system constants, grounded on runtime/events/store.go (FileEventStore).
const (
	jsonlDirPerm  = 0o750
	jsonlFilePerm = 0o600
	jsonlScanBuf  = 1024 * 1024 // 1MB, large enough for a turn's accumulated payloads
)

// JSONFileStore persists one newline-delimited JSON file per agent under
// dir, named "<context>.jsonl". Each line is one decoded Event, encoded via
// Event.MarshalJSON so the wire format and the on-disk format are
// identical — the persisted file layout spec.md §6 calls for.
type JSONFileStore struct {
	dir    string
	locker *keyedLocker
	mu     sync.Mutex
	files  map[string]*os.File
}

// NewJSONFileStore creates (or reopens) a directory-backed JSONL event store.
func NewJSONFileStore(dir string) (*JSONFileStore, error) {
	if err := os.MkdirAll(dir, jsonlDirPerm); err != nil {
		return nil, fmt.Errorf("events: create store directory: %w", err)
	}
	return &JSONFileStore{
		dir:    dir,
		locker: newKeyedLocker(),
		files:  make(map[string]*os.File),
	}, nil
}

func (s *JSONFileStore) path(name string) string {
	return filepath.Join(s.dir, name+".jsonl")
}

// Load implements Store.
func (s *JSONFileStore) Load(_ context.Context, name string) ([]*Event, error) {
	f, err := os.Open(s.path(name)) //nolint:gosec // name is a trusted context identifier
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("events: open %q: %w", name, err)
	}
	defer f.Close()

	var out []*Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, jsonlScanBuf), jsonlScanBuf)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("events: decode %q: %w", name, err)
		}
		out = append(out, &e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("events: scan %q: %w", name, err)
	}
	return out, nil
}

// Append implements Store. The whole batch is written and fsynced before
// returning, or nothing from the batch is left on disk.
func (s *JSONFileStore) Append(_ context.Context, name string, evts []*Event) error {
	if len(evts) == 0 {
		return nil
	}

	unlock := s.locker.lock(name)
	defer unlock()

	f, err := s.getOrCreateFile(name)
	if err != nil {
		return err
	}

	var buf strings.Builder
	for _, e := range evts {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("events: encode event for %q: %w", name, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	if _, err := f.WriteString(buf.String()); err != nil {
		return fmt.Errorf("events: write %q: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("events: sync %q: %w", name, err)
	}
	return nil
}

func (s *JSONFileStore) getOrCreateFile(name string) (*os.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.files[name]; ok {
		return f, nil
	}
	//nolint:gosec // path constructed from trusted context identifier
	f, err := os.OpenFile(s.path(name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, jsonlFilePerm)
	if err != nil {
		return nil, fmt.Errorf("events: open %q for append: %w", name, err)
	}
	s.files[name] = f
	return f, nil
}

// Exists implements Store.
func (s *JSONFileStore) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(s.path(name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// List implements Store.
func (s *JSONFileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("events: list store directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".jsonl"))
	}
	sort.Strings(names)
	return names, nil
}

// Close flushes and closes every open file handle.
func (s *JSONFileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, f := range s.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.files = make(map[string]*os.File)
	return firstErr
}

var _ Store = (*JSONFileStore)(nil)
