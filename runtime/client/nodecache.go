package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/baltrad/bdb-go/oh5"
	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/query/sqlgen"
	"github.com/baltrad/bdb-go/runtime/dberr"
	"github.com/baltrad/bdb-go/runtime/types"
)

// NodeRow is one stored node as returned by a NodeLoader
type NodeRow struct {
	ID    int64
	Name  string
	Kind  oh5.NodeKind
	Value types.Variant
}

// NodeLoader reads the direct children of a stored node
type NodeLoader interface {
	LoadChildren(ctx context.Context, parentID int64) ([]NodeRow, error)
}

// NodeLoaderFunc adapts a function to NodeLoader
type NodeLoaderFunc func(ctx context.Context, parentID int64) ([]NodeRow, error)

// LoadChildren calls f
func (f NodeLoaderFunc) LoadChildren(ctx context.Context, parentID int64) ([]NodeRow, error) {
	return f(ctx, parentID)
}

// LevelLoader is a NodeLoader that also reads the children of many nodes at
// once. LoadAll uses it to fetch a whole level per query.
type LevelLoader interface {
	NodeLoader
	LoadLevel(ctx context.Context, parentIDs []int64) (map[int64][]NodeRow, error)
}

type nodeEntry struct {
	PhysicalID int64
	Loaded     bool
}

// NodeCache materializes a stored attribute tree one level at a time. The
// children of a node are read on the first Children call and served from
// memory afterwards. Not safe for concurrent use.
type NodeCache struct {
	meta    *oh5.Metadata
	loader  NodeLoader
	entries map[oh5.Handle]nodeEntry
}

// NewNodeCache creates a cache whose root is the stored node rootID.
// Nothing below the root is loaded yet.
func NewNodeCache(rootID int64, loader NodeLoader) *NodeCache {
	c := &NodeCache{
		meta:    oh5.NewMetadata(),
		loader:  loader,
		entries: make(map[oh5.Handle]nodeEntry),
	}
	c.entries[c.meta.Root()] = nodeEntry{PhysicalID: rootID}
	return c
}

// newLoadedTree wraps a tree that was built in memory and just stored
func newLoadedTree(meta *oh5.Metadata, ids map[oh5.Handle]int64) *NodeCache {
	c := &NodeCache{
		meta:    meta,
		entries: make(map[oh5.Handle]nodeEntry, len(ids)),
	}
	for h, id := range ids {
		c.entries[h] = nodeEntry{PhysicalID: id, Loaded: true}
	}
	return c
}

// Metadata returns the tree materialized so far
func (c *NodeCache) Metadata() *oh5.Metadata {
	return c.meta
}

// Loaded reports whether the children of h are in memory
func (c *NodeCache) Loaded(h oh5.Handle) bool {
	return c.entries[h].Loaded
}

// PhysicalID returns the database id of the node at h
func (c *NodeCache) PhysicalID(h oh5.Handle) (int64, error) {
	e, ok := c.entries[h]
	if !ok {
		return 0, dberr.Lookup("node %d is not part of the tree", h)
	}
	return e.PhysicalID, nil
}

// Children returns the children of h, loading them on first use
func (c *NodeCache) Children(ctx context.Context, h oh5.Handle) ([]oh5.Handle, error) {
	e, ok := c.entries[h]
	if !ok {
		return nil, dberr.Lookup("node %d is not part of the tree", h)
	}

	if !e.Loaded {
		if c.loader == nil {
			return nil, dberr.Value("node %d has no loader", h)
		}
		rows, err := c.loader.LoadChildren(ctx, e.PhysicalID)
		if err != nil {
			return nil, err
		}
		if err := c.attach(h, rows); err != nil {
			return nil, err
		}
	}
	return c.meta.Children(h), nil
}

func (c *NodeCache) attach(h oh5.Handle, rows []NodeRow) error {
	for _, r := range rows {
		child, err := c.meta.AddChild(h, r.Name, r.Kind, r.Value)
		if err != nil {
			return err
		}
		c.entries[child] = nodeEntry{PhysicalID: r.ID, Loaded: r.Kind == oh5.Attribute}
	}
	e := c.entries[h]
	e.Loaded = true
	c.entries[h] = e
	return nil
}

// LoadAll loads every level of the tree. A LevelLoader reads each level with
// a single call, other loaders are asked node by node.
func (c *NodeCache) LoadAll(ctx context.Context) error {
	level := []oh5.Handle{c.meta.Root()}
	for len(level) > 0 {
		if err := c.loadLevel(ctx, level); err != nil {
			return err
		}
		var next []oh5.Handle
		for _, h := range level {
			next = append(next, c.meta.Children(h)...)
		}
		level = next
	}
	return nil
}

func (c *NodeCache) loadLevel(ctx context.Context, level []oh5.Handle) error {
	var (
		pending []oh5.Handle
		ids     []int64
	)
	for _, h := range level {
		if e := c.entries[h]; !e.Loaded {
			pending = append(pending, h)
			ids = append(ids, e.PhysicalID)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	batch, ok := c.loader.(LevelLoader)
	if !ok {
		for _, h := range pending {
			if _, err := c.Children(ctx, h); err != nil {
				return err
			}
		}
		return nil
	}

	children, err := batch.LoadLevel(ctx, ids)
	if err != nil {
		return err
	}
	for i, h := range pending {
		if err := c.attach(h, children[ids[i]]); err != nil {
			return err
		}
	}
	return nil
}

// Tree returns the attribute tree of a stored file. Entries returned by
// StoreFile carry their tree fully loaded; others load it lazily.
func (db *Database) Tree(ctx context.Context, e *FileEntry) (*NodeCache, error) {
	if e.tree != nil {
		return e.tree, nil
	}

	var rootID int64
	err := db.withConn(ctx, func(conn *Connection) error {
		res, err := db.raw(ctx, conn,
			"SELECT n.id FROM bdb_nodes n WHERE n.file_id = :file AND n.parent_id IS NULL",
			sqlgen.BindMap{"file": expr.Int64(e.ID)})
		if err != nil {
			return err
		}
		if !res.Next() {
			return dberr.Lookup("file %s has no attribute tree", e.UUID)
		}
		v, err := res.ValueAt(0)
		if err != nil {
			return err
		}
		rootID, err = v.ToInt64()
		return err
	})
	if err != nil {
		return nil, err
	}

	e.tree = NewNodeCache(rootID, nodeLoader{db: db})
	return e.tree, nil
}

// maxLevelBinds bounds the parent ids sent in one query
const maxLevelBinds = 500

// nodeLoader reads stored nodes with their values
type nodeLoader struct {
	db *Database
}

func (l nodeLoader) LoadChildren(ctx context.Context, parentID int64) ([]NodeRow, error) {
	children, err := l.LoadLevel(ctx, []int64{parentID})
	if err != nil {
		return nil, err
	}
	return children[parentID], nil
}

func (l nodeLoader) LoadLevel(ctx context.Context, parentIDs []int64) (map[int64][]NodeRow, error) {
	children := make(map[int64][]NodeRow, len(parentIDs))
	err := l.db.withConn(ctx, func(conn *Connection) error {
		for start := 0; start < len(parentIDs); start += maxLevelBinds {
			end := min(start+maxLevelBinds, len(parentIDs))
			if err := l.loadChunk(ctx, conn, parentIDs[start:end], children); err != nil {
				return err
			}
		}
		return nil
	})
	return children, err
}

func (l nodeLoader) loadChunk(ctx context.Context, conn *Connection, parentIDs []int64, children map[int64][]NodeRow) error {
	binds := make(sqlgen.BindMap, len(parentIDs))
	names := make([]string, len(parentIDs))
	for i, id := range parentIDs {
		name := fmt.Sprintf("parent%d", i)
		binds[name] = expr.Int64(id)
		names[i] = ":" + name
	}

	res, err := l.db.raw(ctx, conn,
		"SELECT n.id, n.parent_id, n.name, n.type, v.value_int, v.value_str, v.value_double, v.value_bool, "+
			"v.value_date, v.value_time FROM bdb_nodes n "+
			"LEFT OUTER JOIN bdb_attribute_values v ON v.node_id = n.id "+
			"WHERE n.parent_id IN ("+strings.Join(names, ", ")+") ORDER BY n.id",
		binds)
	if err != nil {
		return err
	}

	for res.Next() {
		row, err := res.Row()
		if err != nil {
			return err
		}
		id, err := row[0].ToInt64()
		if err != nil {
			return err
		}
		parentID, err := row[1].ToInt64()
		if err != nil {
			return err
		}
		kind, err := row[3].ToInt64()
		if err != nil {
			return err
		}

		r := NodeRow{ID: id, Name: row[2].ToString(), Kind: oh5.NodeKind(kind)}
		if r.Kind == oh5.Attribute {
			for _, v := range row[4:] {
				if !v.IsNull() {
					r.Value = v
					break
				}
			}
		}
		children[parentID] = append(children[parentID], r)
	}
	return nil
}
