package client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/baltrad/bdb-go/internal/debug"
	"github.com/baltrad/bdb-go/oh5"
	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/query/resolver"
	"github.com/baltrad/bdb-go/query/sqlgen"
	"github.com/baltrad/bdb-go/runtime/dberr"
	"github.com/baltrad/bdb-go/runtime/types"
)

// FileEntry is a stored file as recorded in bdb_files
type FileEntry struct {
	ID         int64
	UUID       string
	Hash       string
	SourceID   int64
	Source     string
	StoredAt   time.Time
	Object     string
	Date       types.Date
	Time       types.Time
	WhatSource string
	Size       int64

	tree *NodeCache
}

const fileColumns = `SELECT f.id, f.uuid, f.hash, f.source_id, s.name, f.stored_at, f.what_object,
f.what_date, f.what_time, f.what_source, f.size
FROM bdb_files f JOIN bdb_sources s ON s.id = f.source_id`

// StoreFile archives a file: its row, its attribute tree and its content
// are written in a single transaction.
func (db *Database) StoreFile(ctx context.Context, meta *oh5.Metadata, content []byte) (*FileEntry, error) {
	e := &FileEntry{Size: int64(len(content))}
	var err error
	if e.Object, err = meta.WhatObject(); err != nil {
		return nil, err
	}
	if e.Date, err = meta.WhatDate(); err != nil {
		return nil, err
	}
	if e.Time, err = meta.WhatTime(); err != nil {
		return nil, err
	}
	if e.WhatSource, err = meta.WhatSource(); err != nil {
		return nil, err
	}
	sum := sha256.Sum256(content)
	e.Hash = hex.EncodeToString(sum[:])
	e.UUID = uuid.NewString()
	e.StoredAt = db.now().UTC().Truncate(time.Second)

	stored := false
	err = db.withConn(ctx, func(conn *Connection) error {
		return conn.Transaction(ctx, func(conn *Connection) error {
			src, err := db.sourceForMetadata(ctx, conn, meta)
			if err != nil {
				return err
			}
			e.SourceID, e.Source = src.id, src.Name

			exists, err := db.hasFile(ctx, conn, e.Hash, e.SourceID)
			if err != nil {
				return err
			}
			if exists {
				return dberr.Duplicate("file with hash %s already stored for source %s", e.Hash, e.Source)
			}

			e.ID, err = db.insert(ctx, conn, resolver.TableFiles, true,
				column{"uuid", expr.String(e.UUID)},
				column{"hash", expr.String(e.Hash)},
				column{"source_id", expr.Int64(e.SourceID)},
				column{"stored_at", expr.DateTime(e.StoredAt)},
				column{"what_object", expr.String(e.Object)},
				column{"what_date", expr.Date(e.Date)},
				column{"what_time", expr.Time(e.Time)},
				column{"what_source", expr.String(e.WhatSource)},
				column{"size", expr.Int64(e.Size)},
			)
			if err != nil {
				return err
			}

			ids, err := db.storeNodes(ctx, conn, e.ID, meta)
			if err != nil {
				return err
			}

			_, err = db.insert(ctx, conn, resolver.TableFileContent, false,
				column{"file_id", expr.Int64(e.ID)},
				column{"object_key", expr.String(e.UUID)},
			)
			if err != nil {
				return err
			}
			if err := conn.StoreLargeObject(ctx, e.UUID, content); err != nil {
				return err
			}
			stored = true

			e.tree = newLoadedTree(meta, ids)
			return nil
		})
	})
	if err != nil {
		if stored {
			if derr := db.pool.Storage().Delete(ctx, e.UUID); derr != nil {
				debug.Warn("failed to remove orphaned content", "uuid", e.UUID, "error", derr)
			}
		}
		return nil, err
	}

	debug.Info("stored file", "uuid", e.UUID, "source", e.Source, "object", e.Object)
	return e, nil
}

// storeNodes writes the tree of meta, parents before children, and returns
// the physical id of every node
func (db *Database) storeNodes(ctx context.Context, conn *Connection, fileID int64, meta *oh5.Metadata) (map[oh5.Handle]int64, error) {
	ids := make(map[oh5.Handle]int64, meta.Len())

	rootID, err := db.insert(ctx, conn, resolver.TableNodes, true,
		column{"file_id", expr.Int64(fileID)},
		column{"name", expr.String("")},
		column{"type", expr.Int64(resolver.NodeTypeGroup)},
	)
	if err != nil {
		return nil, err
	}
	ids[meta.Root()] = rootID

	err = meta.Walk(func(h oh5.Handle, n oh5.Node) error {
		id, err := db.insert(ctx, conn, resolver.TableNodes, true,
			column{"file_id", expr.Int64(fileID)},
			column{"parent_id", expr.Int64(ids[n.Parent])},
			column{"name", expr.String(n.Name)},
			column{"type", expr.Int64(int64(n.Kind))},
		)
		if err != nil {
			return err
		}
		ids[h] = id

		if n.Kind != oh5.Attribute || n.Value.IsNull() {
			return nil
		}
		col, value, err := valueColumn(n.Value)
		if err != nil {
			return err
		}
		_, err = db.insert(ctx, conn, resolver.TableAttributeValues, false,
			column{"node_id", expr.Int64(id)},
			column{col, value},
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// valueColumn picks the bdb_attribute_values column holding v
func valueColumn(v types.Variant) (string, expr.Expression, error) {
	switch v.Kind() {
	case types.KindString:
		s, _ := v.AsString()
		return resolver.ValueStr, expr.String(s), nil
	case types.KindInt64:
		i, _ := v.AsInt64()
		return resolver.ValueInt, expr.Int64(i), nil
	case types.KindDouble:
		f, _ := v.AsDouble()
		return resolver.ValueDouble, expr.Double(f), nil
	case types.KindBool:
		b, _ := v.AsBool()
		return resolver.ValueBool, expr.Bool(b), nil
	case types.KindDate:
		d, _ := v.AsDate()
		return resolver.ValueDate, expr.Date(d), nil
	case types.KindTime:
		t, _ := v.AsTime()
		return resolver.ValueTime, expr.Time(t), nil
	case types.KindDateTime, types.KindTimeDelta:
		return resolver.ValueStr, expr.String(v.ToString()), nil
	default:
		return "", expr.Expression{}, dberr.Value("cannot store attribute value %s", v)
	}
}

// FileEntry looks a file up by uuid
func (db *Database) FileEntry(ctx context.Context, fileUUID string) (*FileEntry, error) {
	var e *FileEntry
	err := db.withConn(ctx, func(conn *Connection) error {
		var err error
		e, err = db.queryEntry(ctx, conn, fileColumns+" WHERE f.uuid = :uuid",
			sqlgen.BindMap{"uuid": expr.String(fileUUID)})
		if dberr.IsLookup(err) {
			return dberr.Lookup("no file with uuid %s", fileUUID)
		}
		return err
	})
	return e, err
}

// FileByID looks a file up by database id
func (db *Database) FileByID(ctx context.Context, id int64) (*FileEntry, error) {
	var e *FileEntry
	err := db.withConn(ctx, func(conn *Connection) error {
		var err error
		e, err = db.fileByID(ctx, conn, id)
		return err
	})
	return e, err
}

func (db *Database) fileByID(ctx context.Context, conn *Connection, id int64) (*FileEntry, error) {
	e, err := db.queryEntry(ctx, conn, fileColumns+" WHERE f.id = :id",
		sqlgen.BindMap{"id": expr.Int64(id)})
	if dberr.IsLookup(err) {
		return nil, dberr.Lookup("no file with id %d", id)
	}
	return e, err
}

func (db *Database) queryEntry(ctx context.Context, conn *Connection, text string, binds sqlgen.BindMap) (*FileEntry, error) {
	res, err := db.raw(ctx, conn, text, binds)
	if err != nil {
		return nil, err
	}
	if !res.Next() {
		return nil, dberr.Lookup("no such file")
	}
	return scanEntry(res)
}

func scanEntry(res *Result) (*FileEntry, error) {
	row, err := res.Row()
	if err != nil {
		return nil, err
	}
	e := &FileEntry{
		UUID:       row[1].ToString(),
		Hash:       row[2].ToString(),
		Source:     row[4].ToString(),
		Object:     row[6].ToString(),
		WhatSource: row[9].ToString(),
	}
	if e.ID, err = row[0].ToInt64(); err != nil {
		return nil, err
	}
	if e.SourceID, err = row[3].ToInt64(); err != nil {
		return nil, err
	}
	if e.StoredAt, err = row[5].ToDateTime(); err != nil {
		return nil, err
	}
	if e.Date, err = row[7].ToDate(); err != nil {
		return nil, err
	}
	if e.Time, err = row[8].ToTime(); err != nil {
		return nil, err
	}
	if e.Size, err = row[10].ToInt64(); err != nil {
		return nil, err
	}
	return e, nil
}

// HasFile reports whether content with hash is stored for the source
func (db *Database) HasFile(ctx context.Context, hash string, sourceID int64) (bool, error) {
	var ok bool
	err := db.withConn(ctx, func(conn *Connection) error {
		var err error
		ok, err = db.hasFile(ctx, conn, hash, sourceID)
		return err
	})
	return ok, err
}

func (db *Database) hasFile(ctx context.Context, conn *Connection, hash string, sourceID int64) (bool, error) {
	res, err := db.raw(ctx, conn,
		"SELECT f.id FROM bdb_files f WHERE f.hash = :hash AND f.source_id = :source",
		sqlgen.BindMap{"hash": expr.String(hash), "source": expr.Int64(sourceID)})
	if err != nil {
		return false, err
	}
	return res.Size() > 0, nil
}

// FileContent returns the stored content of a file
func (db *Database) FileContent(ctx context.Context, fileUUID string) ([]byte, error) {
	var data []byte
	err := db.withConn(ctx, func(conn *Connection) error {
		res, err := db.raw(ctx, conn,
			"SELECT c.object_key FROM bdb_file_content c JOIN bdb_files f ON f.id = c.file_id WHERE f.uuid = :uuid",
			sqlgen.BindMap{"uuid": expr.String(fileUUID)})
		if err != nil {
			return err
		}
		if !res.Next() {
			return dberr.Lookup("no content for file %s", fileUUID)
		}
		key, err := res.ValueAt(0)
		if err != nil {
			return err
		}
		data, err = conn.RetrieveLargeObject(ctx, key.ToString())
		return err
	})
	return data, err
}

// RemoveFile deletes a file and its tree. It reports false when no file has the uuid.
func (db *Database) RemoveFile(ctx context.Context, fileUUID string) (bool, error) {
	removed := false
	err := db.withConn(ctx, func(conn *Connection) error {
		return conn.Transaction(ctx, func(conn *Connection) error {
			res, err := db.raw(ctx, conn, "SELECT f.id FROM bdb_files f WHERE f.uuid = :uuid",
				sqlgen.BindMap{"uuid": expr.String(fileUUID)})
			if err != nil || !res.Next() {
				return err
			}
			v, err := res.ValueAt(0)
			if err != nil {
				return err
			}
			id, err := v.ToInt64()
			if err != nil {
				return err
			}
			binds := sqlgen.BindMap{"file": expr.Int64(id)}

			for _, text := range []string{
				"DELETE FROM bdb_attribute_values WHERE node_id IN (SELECT id FROM bdb_nodes WHERE file_id = :file)",
				"DELETE FROM bdb_nodes WHERE file_id = :file",
				"DELETE FROM bdb_file_content WHERE file_id = :file",
				"DELETE FROM bdb_files WHERE id = :file",
			} {
				if _, err := db.raw(ctx, conn, text, binds); err != nil {
					return err
				}
			}
			removed = true
			return nil
		})
	})
	if err != nil || !removed {
		return false, err
	}

	if err := db.pool.Storage().Delete(ctx, fileUUID); err != nil {
		debug.Warn("failed to remove file content", "uuid", fileUUID, "error", err)
	}
	debug.Info("removed file", "uuid", fileUUID)
	return true, nil
}

// RemoveAllFiles deletes every stored file and returns how many were removed
func (db *Database) RemoveAllFiles(ctx context.Context) (int, error) {
	var uuids []string
	err := db.withConn(ctx, func(conn *Connection) error {
		return conn.Transaction(ctx, func(conn *Connection) error {
			res, err := db.raw(ctx, conn, "SELECT f.uuid FROM bdb_files f", nil)
			if err != nil {
				return err
			}
			for res.Next() {
				v, err := res.ValueAt(0)
				if err != nil {
					return err
				}
				uuids = append(uuids, v.ToString())
			}

			for _, text := range []string{
				"DELETE FROM bdb_attribute_values",
				"DELETE FROM bdb_nodes",
				"DELETE FROM bdb_file_content",
				"DELETE FROM bdb_files",
			} {
				if _, err := db.raw(ctx, conn, text, nil); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	for _, u := range uuids {
		if err := db.pool.Storage().Delete(ctx, u); err != nil {
			debug.Warn("failed to remove file content", "uuid", u, "error", err)
		}
	}
	debug.Info("removed all files", "count", len(uuids))
	return len(uuids), nil
}
