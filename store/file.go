package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/natefinch/atomic"
)

// FileStore keeps the document in memory and mirrors every committed update
// to a single JSON file. A RWMutex serializes read-modify-write sequences, so
// concurrent requests within one process can't lose updates. Multi-instance
// deployments are not supported.
type FileStore struct {
	path string

	mu  sync.RWMutex
	doc *Document
}

// NewFileStore loads the document from path. A missing or unparsable file
// yields a fresh document seeded with defaultAdmin, which is persisted
// immediately.
func NewFileStore(path string, defaultAdmin AdminCredentials) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &FileStore{path: path}

	raw, err := os.ReadFile(path)
	if err == nil {
		var doc Document
		if jsonErr := json.Unmarshal(raw, &doc); jsonErr == nil {
			if doc.Users == nil {
				doc.Users = []*User{}
			}
			if doc.AdminCredentials == (AdminCredentials{}) {
				doc.AdminCredentials = defaultAdmin
			}
			s.doc = &doc
			return s, nil
		}
		log.Warn("document file is not valid JSON, reinitializing", "path", path)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read document file: %w", err)
	}

	s.doc = &Document{
		Users:            []*User{},
		AdminCredentials: defaultAdmin,
	}
	if err := s.persist(); err != nil {
		return nil, err
	}
	return s, nil
}

// View runs fn with a shared read lock held. fn must not mutate the document.
func (s *FileStore) View(_ context.Context, fn func(doc *Document) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.doc)
}

// Update runs fn with the write lock held and persists the whole document
// when fn returns nil. If fn fails, the in-memory copy keeps fn's mutations
// only until the next successful update overwrites the file; callers are
// expected to mutate and fail atomically (check first, then mutate).
func (s *FileStore) Update(_ context.Context, fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.doc); err != nil {
		return err
	}
	return s.persist()
}

// persist writes the document atomically (tmp file + rename), so a crash
// mid-write never leaves a truncated file behind. Caller holds the lock.
func (s *FileStore) persist() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write document file: %w", err)
	}
	return nil
}
