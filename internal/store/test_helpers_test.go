package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore opens a store in a temporary directory that is closed when
// the test ends.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestBucket(t *testing.T, s *Store, name string) *Bucket {
	t.Helper()
	b, err := s.Bucket(context.Background(), name)
	if err != nil {
		t.Fatalf("Bucket(%q) error = %v", name, err)
	}
	return b
}
