package store

import (
	"context"
	"fmt"
)

// Bucket is one key/value namespace of a Store.
// It implements dom.Storage.
type Bucket struct {
	s    *Store
	name string
}

// Bucket returns the named bucket, creating it on first use.
func (s *Store) Bucket(ctx context.Context, name string) (*Bucket, error) {
	if name == "" {
		return nil, fmt.Errorf("bucket name is empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO buckets (name) VALUES (?)
		ON CONFLICT(name) DO NOTHING
	`, name)
	if err != nil {
		return nil, fmt.Errorf("create bucket %q: %w", name, err)
	}
	return &Bucket{s: s, name: name}, nil
}

// Name returns the bucket name.
func (b *Bucket) Name() string { return b.name }

// Put writes value under key. An existing value is replaced and moves to the
// end of the listing order.
func (b *Bucket) Put(ctx context.Context, key, value string) error {
	_, err := b.s.db.ExecContext(ctx, `
		INSERT INTO items (bucket, key, value, seq) VALUES (?, ?, ?, ?)
		ON CONFLICT(bucket, key) DO UPDATE SET value = excluded.value, seq = excluded.seq
	`, b.name, key, value, b.s.nextSeq())
	if err != nil {
		return fmt.Errorf("write item %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	_, err := b.s.db.ExecContext(ctx, `
		DELETE FROM items WHERE bucket = ? AND key = ?
	`, b.name, key)
	if err != nil {
		return fmt.Errorf("delete item %q: %w", key, err)
	}
	return nil
}

// Clear removes every item in the bucket.
func (b *Bucket) Clear(ctx context.Context) error {
	_, err := b.s.db.ExecContext(ctx, `DELETE FROM items WHERE bucket = ?`, b.name)
	if err != nil {
		return fmt.Errorf("clear bucket %q: %w", b.name, err)
	}
	return nil
}

// SetItem implements dom.Storage.
func (b *Bucket) SetItem(key, value string) error {
	return b.Put(context.Background(), key, value)
}

// RemoveItem implements dom.Storage.
func (b *Bucket) RemoveItem(key string) error {
	return b.Delete(context.Background(), key)
}
