package store

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/islet/internal/dom"
)

var (
	_ dom.Storage = (*Store)(nil)
	_ dom.Storage = (*Bucket)(nil)
)

func TestBucket_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	b := createTestBucket(t, createTestStore(t), "prefs")

	_, ok, err := b.Get(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Put(ctx, "theme", `"dark"`))
	got, ok, err := b.Get(ctx, "theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"dark"`, got)

	require.NoError(t, b.Put(ctx, "theme", `"light"`))
	got, _, _ = b.Get(ctx, "theme")
	assert.Equal(t, `"light"`, got)

	require.NoError(t, b.Delete(ctx, "theme"))
	require.NoError(t, b.Delete(ctx, "theme"))
	_, ok, err = b.Get(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBucket_EmptyValueIsPresent(t *testing.T) {
	b := createTestBucket(t, createTestStore(t), "x")

	require.NoError(t, b.SetItem("k", ""))
	got, ok, err := b.GetItem("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", got)
}

func TestBucket_Isolation(t *testing.T) {
	s := createTestStore(t)
	a := createTestBucket(t, s, "a")
	b := createTestBucket(t, s, "b")

	require.NoError(t, a.SetItem("k", "from-a"))
	_, ok, err := b.GetItem("k")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = s.GetItem("k")
	assert.False(t, ok, "default bucket sees other buckets' keys")

	names, err := s.Buckets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", DefaultBucket}, names)
}

func TestBucket_ItemsInWriteOrder(t *testing.T) {
	ctx := context.Background()
	b := createTestBucket(t, createTestStore(t), "order")

	for _, kv := range [][2]string{{"z", "1"}, {"a", "2"}, {"m", "3"}, {"z", "4"}} {
		require.NoError(t, b.Put(ctx, kv[0], kv[1]))
	}

	items, err := b.Items(ctx)
	require.NoError(t, err)
	want := []Item{{Key: "a", Value: "2"}, {Key: "m", Value: "3"}, {Key: "z", Value: "4"}}
	if diff := cmp.Diff(want, items, cmpopts.IgnoreFields(Item{}, "Seq")); diff != "" {
		t.Errorf("Items() mismatch (-want +got):\n%s", diff)
	}
	for i := 1; i < len(items); i++ {
		assert.Less(t, items[i-1].Seq, items[i].Seq)
	}
}

func TestBucket_Clear(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	a := createTestBucket(t, s, "a")
	b := createTestBucket(t, s, "b")
	require.NoError(t, a.Put(ctx, "1", "x"))
	require.NoError(t, a.Put(ctx, "2", "y"))
	require.NoError(t, b.Put(ctx, "1", "z"))

	require.NoError(t, a.Clear(ctx))

	keys, err := a.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
	keys, err = b.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, keys)
}

func TestStore_BucketRejectsEmptyName(t *testing.T) {
	_, err := createTestStore(t).Bucket(context.Background(), "")
	assert.Error(t, err)
}

func TestStore_ClosedStoreErrors(t *testing.T) {
	s := createTestStore(t)
	b := createTestBucket(t, s, "gone")
	require.NoError(t, s.Close())

	assert.Error(t, b.SetItem("k", "v"))
	_, _, err := b.GetItem("k")
	assert.Error(t, err)
}
