package client

import (
	"context"

	"github.com/baltrad/bdb-go/oh5"
	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/query/resolver"
	"github.com/baltrad/bdb-go/query/sqlgen"
	"github.com/baltrad/bdb-go/runtime/dberr"
)

// unknownWMO marks a source without a WMO station number
const unknownWMO = "00000"

type storedSource struct {
	oh5.Source
	id int64
}

// AddSource stores a new source and returns its id
func (db *Database) AddSource(ctx context.Context, src oh5.Source) (int64, error) {
	if src.Name == "" {
		return 0, dberr.Value("source has no name")
	}

	var id int64
	err := db.withConn(ctx, func(conn *Connection) error {
		return conn.Transaction(ctx, func(conn *Connection) error {
			_, err := db.sourceID(ctx, conn, src.Name)
			if err == nil {
				return dberr.Duplicate("source %q already exists", src.Name)
			}
			if !dberr.IsLookup(err) {
				return err
			}

			id, err = db.insert(ctx, conn, resolver.TableSources, true,
				column{"name", expr.String(src.Name)})
			if err != nil {
				return err
			}
			return db.insertSourceValues(ctx, conn, id, src)
		})
	})
	return id, err
}

// UpdateSource replaces the key/value pairs of the source named src.Name
func (db *Database) UpdateSource(ctx context.Context, src oh5.Source) error {
	return db.withConn(ctx, func(conn *Connection) error {
		return conn.Transaction(ctx, func(conn *Connection) error {
			id, err := db.sourceID(ctx, conn, src.Name)
			if err != nil {
				return err
			}
			if _, err := db.raw(ctx, conn, "DELETE FROM bdb_source_kvs WHERE source_id = :id",
				sqlgen.BindMap{"id": expr.Int64(id)}); err != nil {
				return err
			}
			return db.insertSourceValues(ctx, conn, id, src)
		})
	})
}

// RemoveSource deletes a source that no file refers to. It reports false
// when there is no source called name.
func (db *Database) RemoveSource(ctx context.Context, name string) (bool, error) {
	removed := false
	err := db.withConn(ctx, func(conn *Connection) error {
		return conn.Transaction(ctx, func(conn *Connection) error {
			id, err := db.sourceID(ctx, conn, name)
			if dberr.IsLookup(err) {
				return nil
			}
			if err != nil {
				return err
			}

			binds := sqlgen.BindMap{"id": expr.Int64(id)}
			res, err := db.raw(ctx, conn, "SELECT f.id FROM bdb_files f WHERE f.source_id = :id", binds)
			if err != nil {
				return err
			}
			if res.Size() > 0 {
				return dberr.Value("source %q is referenced by %d files", name, res.Size())
			}

			for _, text := range []string{
				"DELETE FROM bdb_source_kvs WHERE source_id = :id",
				"DELETE FROM bdb_sources WHERE id = :id",
			} {
				if _, err := db.raw(ctx, conn, text, binds); err != nil {
					return err
				}
			}
			removed = true
			return nil
		})
	})
	return removed, err
}

// Sources returns every stored source ordered by name
func (db *Database) Sources(ctx context.Context) ([]oh5.Source, error) {
	var out []oh5.Source
	err := db.withConn(ctx, func(conn *Connection) error {
		res, err := db.raw(ctx, conn,
			"SELECT s.name, kv.key, kv.value FROM bdb_sources s "+
				"LEFT OUTER JOIN bdb_source_kvs kv ON kv.source_id = s.id ORDER BY s.name, kv.key", nil)
		if err != nil {
			return err
		}
		out, err = collectSources(res)
		return err
	})
	return out, err
}

// SourceByName returns the source called name
func (db *Database) SourceByName(ctx context.Context, name string) (oh5.Source, error) {
	var src oh5.Source
	err := db.withConn(ctx, func(conn *Connection) error {
		var err error
		src, err = db.sourceByName(ctx, conn, name)
		return err
	})
	return src, err
}

// SourceForMetadata finds the stored source matching what/source of meta.
// Keys are tried in the order of oh5.SourceKeys.
func (db *Database) SourceForMetadata(ctx context.Context, meta *oh5.Metadata) (oh5.Source, error) {
	var src oh5.Source
	err := db.withConn(ctx, func(conn *Connection) error {
		found, err := db.sourceForMetadata(ctx, conn, meta)
		if err != nil {
			return err
		}
		src, err = db.sourceByName(ctx, conn, found.Name)
		return err
	})
	return src, err
}

func (db *Database) sourceByName(ctx context.Context, conn *Connection, name string) (oh5.Source, error) {
	res, err := db.raw(ctx, conn,
		"SELECT s.name, kv.key, kv.value FROM bdb_sources s "+
			"LEFT OUTER JOIN bdb_source_kvs kv ON kv.source_id = s.id WHERE s.name = :name",
		sqlgen.BindMap{"name": expr.String(name)})
	if err != nil {
		return oh5.Source{}, err
	}
	found, err := collectSources(res)
	if err != nil {
		return oh5.Source{}, err
	}
	if len(found) == 0 {
		return oh5.Source{}, dberr.Lookup("no source named %q", name)
	}
	return found[0], nil
}

func (db *Database) sourceForMetadata(ctx context.Context, conn *Connection, meta *oh5.Metadata) (storedSource, error) {
	what, err := meta.Source()
	if err != nil {
		return storedSource{}, err
	}

	for _, key := range oh5.SourceKeys {
		value, ok := what.Values[key]
		if !ok || value == "" || (key == "WMO" && value == unknownWMO) {
			continue
		}
		res, err := db.raw(ctx, conn,
			"SELECT s.id, s.name FROM bdb_source_kvs kv JOIN bdb_sources s ON s.id = kv.source_id "+
				"WHERE kv.key = :key AND kv.value = :value",
			sqlgen.BindMap{"key": expr.String(key), "value": expr.String(value)})
		if err != nil {
			return storedSource{}, err
		}
		if !res.Next() {
			continue
		}
		row, err := res.Row()
		if err != nil {
			return storedSource{}, err
		}
		id, err := row[0].ToInt64()
		if err != nil {
			return storedSource{}, err
		}
		return storedSource{Source: oh5.Source{Name: row[1].ToString()}, id: id}, nil
	}

	raw, _ := meta.WhatSource()
	return storedSource{}, dberr.Lookup("no source found for %q", raw)
}

func (db *Database) sourceID(ctx context.Context, conn *Connection, name string) (int64, error) {
	res, err := db.raw(ctx, conn, "SELECT s.id FROM bdb_sources s WHERE s.name = :name",
		sqlgen.BindMap{"name": expr.String(name)})
	if err != nil {
		return 0, err
	}
	if !res.Next() {
		return 0, dberr.Lookup("no source named %q", name)
	}
	v, err := res.ValueAt(0)
	if err != nil {
		return 0, err
	}
	return v.ToInt64()
}

func (db *Database) insertSourceValues(ctx context.Context, conn *Connection, id int64, src oh5.Source) error {
	for _, key := range src.Keys() {
		_, err := db.insert(ctx, conn, resolver.TableSourceKVs, false,
			column{"source_id", expr.Int64(id)},
			column{"key", expr.String(key)},
			column{"value", expr.String(src.Values[key])},
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// collectSources groups (name, key, value) rows by name. Rows must be
// ordered or filtered so that each name is contiguous.
func collectSources(res *Result) ([]oh5.Source, error) {
	var out []oh5.Source
	for res.Next() {
		row, err := res.Row()
		if err != nil {
			return nil, err
		}
		name := row[0].ToString()
		if len(out) == 0 || out[len(out)-1].Name != name {
			out = append(out, oh5.Source{Name: name, Values: make(map[string]string)})
		}
		if !row[1].IsNull() {
			out[len(out)-1].Values[row[1].ToString()] = row[2].ToString()
		}
	}
	return out, nil
}
