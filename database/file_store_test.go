package database

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	ID      string   `json:"id"`
	Kind    string   `json:"kind"`
	Members []string `json:"members"`
	Count   int      `json:"count"`
}

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := StartFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Init())
	return store
}

func TestFileStorePutGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := doc{ID: "d1", Kind: "a", Members: []string{"u1"}, Count: 3}
	require.NoError(t, store.Put(ctx, "docs", "d1", in))

	var out doc
	require.NoError(t, store.Get(ctx, "docs", "d1", &out))
	assert.Equal(t, in, out)
}

func TestFileStoreGetMissing(t *testing.T) {
	store := newTestStore(t)

	var out doc
	err := store.Get(context.Background(), "docs", "nope", &out)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreListFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "docs", "d1", doc{ID: "d1", Kind: "a", Members: []string{"u1", "u2"}}))
	require.NoError(t, store.Put(ctx, "docs", "d2", doc{ID: "d2", Kind: "a", Members: []string{"u2"}}))
	require.NoError(t, store.Put(ctx, "docs", "d3", doc{ID: "d3", Kind: "b", Members: []string{"u1"}}))

	var byKind []doc
	require.NoError(t, store.List(ctx, "docs", &byKind, Eq("kind", "a")))
	assert.Len(t, byKind, 2)

	var byMember []doc
	require.NoError(t, store.List(ctx, "docs", &byMember, Contains("members", "u1")))
	assert.Len(t, byMember, 2)

	var both []doc
	require.NoError(t, store.List(ctx, "docs", &both, Eq("kind", "a"), Contains("members", "u1")))
	require.Len(t, both, 1)
	assert.Equal(t, "d1", both[0].ID)

	var none []doc
	require.NoError(t, store.List(ctx, "empty", &none))
	assert.Empty(t, none)
}

func TestFileStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "docs", "d1", doc{ID: "d1", Kind: "a"}))
	require.NoError(t, store.Delete(ctx, "docs", "d1"))
	// Deleting an absent document is not an error.
	require.NoError(t, store.Delete(ctx, "docs", "d1"))

	var out doc
	assert.ErrorIs(t, store.Get(ctx, "docs", "d1", &out), ErrNotFound)
}

func TestFileStoreDeleteWhere(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "docs", "d1", doc{ID: "d1", Kind: "a"}))
	require.NoError(t, store.Put(ctx, "docs", "d2", doc{ID: "d2", Kind: "a"}))
	require.NoError(t, store.Put(ctx, "docs", "d3", doc{ID: "d3", Kind: "b"}))

	require.NoError(t, store.DeleteWhere(ctx, "docs", Eq("kind", "a")))

	var remaining []doc
	require.NoError(t, store.List(ctx, "docs", &remaining))
	require.Len(t, remaining, 1)
	assert.Equal(t, "d3", remaining[0].ID)
}

func TestFileStoreMutate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "docs", "d1", doc{ID: "d1", Count: 1}))

	err := store.Mutate(ctx, "docs", "d1", func(raw []byte) (interface{}, error) {
		var d doc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		d.Count++
		return d, nil
	})
	require.NoError(t, err)

	var out doc
	require.NoError(t, store.Get(ctx, "docs", "d1", &out))
	assert.Equal(t, 2, out.Count)
}

func TestFileStoreMutateMissing(t *testing.T) {
	store := newTestStore(t)

	err := store.Mutate(context.Background(), "docs", "nope", func(raw []byte) (interface{}, error) {
		t.Fatal("callback must not run for a missing document")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreMutateCallbackErrorLeavesDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	require.NoError(t, store.Put(ctx, "docs", "d1", doc{ID: "d1", Count: 1}))
	err := store.Mutate(ctx, "docs", "d1", func(raw []byte) (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	var out doc
	require.NoError(t, store.Get(ctx, "docs", "d1", &out))
	assert.Equal(t, 1, out.Count)
}

func TestFileStoreTransactionCommit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.RunInTransaction(ctx, func(tx Storage) error {
		if err := tx.Put(ctx, "docs", "d1", doc{ID: "d1"}); err != nil {
			return err
		}
		return tx.Put(ctx, "others", "o1", doc{ID: "o1"})
	})
	require.NoError(t, err)

	var d, o doc
	require.NoError(t, store.Get(ctx, "docs", "d1", &d))
	require.NoError(t, store.Get(ctx, "others", "o1", &o))
}

func TestFileStoreTransactionRollback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	require.NoError(t, store.Put(ctx, "docs", "keep", doc{ID: "keep", Count: 1}))

	err := store.RunInTransaction(ctx, func(tx Storage) error {
		if err := tx.Put(ctx, "docs", "new", doc{ID: "new"}); err != nil {
			return err
		}
		if err := tx.Delete(ctx, "docs", "keep"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var kept doc
	require.NoError(t, store.Get(ctx, "docs", "keep", &kept))
	assert.Equal(t, 1, kept.Count)

	var gone doc
	assert.ErrorIs(t, store.Get(ctx, "docs", "new", &gone), ErrNotFound)
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := StartFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Init())
	require.NoError(t, first.Put(ctx, "docs", "d1", doc{ID: "d1", Count: 7}))
	require.NoError(t, first.Close())

	second, err := StartFileStore(dir)
	require.NoError(t, err)

	var out doc
	require.NoError(t, second.Get(ctx, "docs", "d1", &out))
	assert.Equal(t, 7, out.Count)
}
