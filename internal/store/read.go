package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Item is one stored key/value pair.
type Item struct {
	Key   string
	Value string
	Seq   int64
}

// Get returns the value stored under key. The second result is false when the
// key is absent.
func (b *Bucket) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := b.s.db.QueryRowContext(ctx, `
		SELECT value FROM items WHERE bucket = ? AND key = ?
	`, b.name, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read item %q: %w", key, err)
	}
	return value, true, nil
}

// Items lists the bucket in write order.
func (b *Bucket) Items(ctx context.Context) ([]Item, error) {
	rows, err := b.s.db.QueryContext(ctx, `
		SELECT key, value, seq FROM items
		WHERE bucket = ?
		ORDER BY seq ASC, key ASC COLLATE BINARY
	`, b.name)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Key, &it.Value, &it.Seq); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// Keys lists the bucket's keys in write order.
func (b *Bucket) Keys(ctx context.Context) ([]string, error) {
	items, err := b.Items(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.Key
	}
	return keys, nil
}

// GetItem implements dom.Storage.
func (b *Bucket) GetItem(key string) (string, bool, error) {
	return b.Get(context.Background(), key)
}

// Buckets lists bucket names in byte order.
func (s *Store) Buckets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM buckets ORDER BY name ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("query buckets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
