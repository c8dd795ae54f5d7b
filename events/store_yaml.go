package events

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// yamlDocument is the on-disk shape of a single context's YAML log: a
// human-readable sequence of events, grounded on runtime/persistence/yaml's
// use of yaml.v3 for reviewable, diff-friendly persistence.
type yamlDocument struct {
	Events []*Event `yaml:"events"`
}

// YAMLFileStore persists one "<context>.yaml" document per agent. Unlike
// JSONFileStore, YAML sequences are not append-friendly, so Append rewrites
// the whole document via a temp-file-plus-rename swap, keeping the file
// always in a complete, parseable state even if the process dies mid-write.
type YAMLFileStore struct {
	dir    string
	locker *keyedLocker
	mu     sync.Mutex
}

// NewYAMLFileStore creates (or reopens) a directory-backed YAML event store.
func NewYAMLFileStore(dir string) (*YAMLFileStore, error) {
	if err := os.MkdirAll(dir, jsonlDirPerm); err != nil {
		return nil, fmt.Errorf("events: create store directory: %w", err)
	}
	return &YAMLFileStore{
		dir:    dir,
		locker: newKeyedLocker(),
	}, nil
}

func (s *YAMLFileStore) path(name string) string {
	return filepath.Join(s.dir, name+".yaml")
}

// Load implements Store.
func (s *YAMLFileStore) Load(_ context.Context, name string) ([]*Event, error) {
	doc, err := s.readDocument(name)
	if err != nil {
		return nil, err
	}
	return doc.Events, nil
}

func (s *YAMLFileStore) readDocument(name string) (*yamlDocument, error) {
	data, err := os.ReadFile(s.path(name)) //nolint:gosec // name is a trusted context identifier
	if err != nil {
		if os.IsNotExist(err) {
			return &yamlDocument{}, nil
		}
		return nil, fmt.Errorf("events: read %q: %w", name, err)
	}
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("events: decode %q: %w", name, err)
	}
	return &doc, nil
}

// Append implements Store by reading, extending, and atomically rewriting
// the whole document under the per-context lock.
func (s *YAMLFileStore) Append(_ context.Context, name string, evts []*Event) error {
	if len(evts) == 0 {
		return nil
	}

	unlock := s.locker.lock(name)
	defer unlock()

	doc, err := s.readDocument(name)
	if err != nil {
		return err
	}
	doc.Events = append(doc.Events, evts...)

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("events: encode %q: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".yaml.tmp-*")
	if err != nil {
		return fmt.Errorf("events: create temp file for %q: %w", name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("events: write temp file for %q: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("events: sync temp file for %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("events: close temp file for %q: %w", name, err)
	}
	if err := os.Chmod(tmpName, jsonlFilePerm); err != nil {
		return fmt.Errorf("events: chmod temp file for %q: %w", name, err)
	}
	if err := os.Rename(tmpName, s.path(name)); err != nil {
		return fmt.Errorf("events: rename into place for %q: %w", name, err)
	}
	return nil
}

// Exists implements Store.
func (s *YAMLFileStore) Exists(_ context.Context, name string) (bool, error) {
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
func (s *YAMLFileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("events: list store directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op: YAMLFileStore holds no open file handles between calls.
func (s *YAMLFileStore) Close() error { return nil }

var _ Store = (*YAMLFileStore)(nil)
