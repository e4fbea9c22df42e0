package client_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baltrad/bdb-go/oh5"
	"github.com/baltrad/bdb-go/runtime/client"
	"github.com/baltrad/bdb-go/runtime/dberr"
	"github.com/baltrad/bdb-go/runtime/types"
)

// countingLoader serves a fixed tree and counts the queries made
type countingLoader struct {
	children map[int64][]client.NodeRow
	calls    map[int64]int
}

func (l *countingLoader) LoadChildren(_ context.Context, parentID int64) ([]client.NodeRow, error) {
	l.calls[parentID]++
	return l.children[parentID], nil
}

func newCountingLoader() *countingLoader {
	return &countingLoader{
		children: map[int64][]client.NodeRow{
			1: {
				{ID: 2, Name: "what", Kind: oh5.Group},
				{ID: 3, Name: "where", Kind: oh5.Group},
			},
			2: {
				{ID: 4, Name: "object", Kind: oh5.Attribute, Value: types.NewString("PVOL")},
			},
			3: {
				{ID: 5, Name: "xsize", Kind: oh5.Attribute, Value: types.NewInt64(1)},
			},
		},
		calls: make(map[int64]int),
	}
}

func TestChildrenLoadsOneLevelOnce(t *testing.T) {
	ctx := context.Background()
	loader := newCountingLoader()
	cache := client.NewNodeCache(1, loader)
	meta := cache.Metadata()

	for i := 0; i < 3; i++ {
		children, err := cache.Children(ctx, meta.Root())
		require.NoError(t, err)
		assert.Len(t, children, 2)
	}
	assert.Equal(t, 1, loader.calls[1])
	assert.Zero(t, loader.calls[2], "grandchildren are not loaded")
	assert.Equal(t, 3, meta.Len())

	what, err := meta.Find("/what")
	require.NoError(t, err)
	id, err := cache.PhysicalID(what)
	require.NoError(t, err)
	assert.EqualValues(t, 2, id)

	children, err := cache.Children(ctx, what)
	require.NoError(t, err)
	require.Len(t, children, 1)
	v, err := meta.Value("/what/object")
	require.NoError(t, err)
	assert.Equal(t, "PVOL", v.ToString())

	_, err = cache.Children(ctx, children[0])
	require.NoError(t, err)
	assert.Zero(t, loader.calls[4], "attributes never query for children")
}

func TestChildrenErrors(t *testing.T) {
	ctx := context.Background()

	cache := client.NewNodeCache(1, client.NodeLoaderFunc(func(context.Context, int64) ([]client.NodeRow, error) {
		return []client.NodeRow{
			{ID: 2, Name: "what", Kind: oh5.Group},
			{ID: 3, Name: "what", Kind: oh5.Group},
		}, nil
	}))
	_, err := cache.Children(ctx, cache.Metadata().Root())
	assert.True(t, dberr.IsDuplicate(err))

	_, err = cache.Children(ctx, oh5.Handle(99))
	assert.True(t, dberr.IsLookup(err))
	_, err = cache.PhysicalID(oh5.Handle(99))
	assert.True(t, dberr.IsLookup(err))
}

func TestLoadAll(t *testing.T) {
	loader := newCountingLoader()
	cache := client.NewNodeCache(1, loader)
	require.NoError(t, cache.LoadAll(context.Background()))

	v, err := cache.Metadata().Value("/where/xsize")
	require.NoError(t, err)
	assert.True(t, v.Equal(types.NewInt64(1)))
	assert.Equal(t, map[int64]int{1: 1, 2: 1, 3: 1}, loader.calls)
}

// levelLoader answers whole levels and records each batch
type levelLoader struct {
	*countingLoader
	levels [][]int64
}

func (l *levelLoader) LoadLevel(_ context.Context, parentIDs []int64) (map[int64][]client.NodeRow, error) {
	l.levels = append(l.levels, parentIDs)
	out := make(map[int64][]client.NodeRow, len(parentIDs))
	for _, id := range parentIDs {
		out[id] = l.children[id]
	}
	return out, nil
}

func TestLoadAllByLevel(t *testing.T) {
	loader := &levelLoader{countingLoader: newCountingLoader()}
	cache := client.NewNodeCache(1, loader)
	require.NoError(t, cache.LoadAll(context.Background()))

	assert.Equal(t, [][]int64{{1}, {2, 3}}, loader.levels)
	assert.Empty(t, loader.calls, "no per-node loads")
	v, err := cache.Metadata().Value("/what/object")
	require.NoError(t, err)
	assert.Equal(t, "PVOL", v.ToString())

	require.NoError(t, cache.LoadAll(context.Background()))
	assert.Len(t, loader.levels, 2, "a loaded tree is not read again")
}
