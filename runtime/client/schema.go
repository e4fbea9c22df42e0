package client

import (
	"context"
	"embed"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/baltrad/bdb-go/internal/debug"
	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/query/resolver"
	"github.com/baltrad/bdb-go/query/sqlgen"
	"github.com/baltrad/bdb-go/runtime/dberr"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// SchemaVersion is the version of the tables CreateSchema creates
const SchemaVersion = "1.0.0"

// schemaConstraint accepts every schema this code can read and write
const schemaConstraint = ">= 1.0.0, < 2.0.0"

const schemaVersionKey = "schema_version"

func schemaStatements(d sqlgen.Dialect) ([]string, error) {
	data, err := schemaFS.ReadFile("schema/" + d.Name() + ".sql")
	if err != nil {
		return nil, dberr.Lookup("no schema for dialect %s", d.Name())
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		lines = append(lines, line)
	}

	var stmts []string
	for _, s := range strings.Split(strings.Join(lines, "\n"), ";") {
		if s = strings.TrimSpace(s); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts, nil
}

// CreateSchema creates the archive tables when they do not exist and
// records the schema version
func (db *Database) CreateSchema(ctx context.Context) error {
	stmts, err := schemaStatements(db.pool.Dialect())
	if err != nil {
		return err
	}

	return db.withConn(ctx, func(conn *Connection) error {
		return conn.Transaction(ctx, func(conn *Connection) error {
			for _, text := range stmts {
				if _, err := db.raw(ctx, conn, text, nil); err != nil {
					return err
				}
			}

			res, err := db.raw(ctx, conn,
				"SELECT m.value FROM bdb_meta m WHERE m.name = :name",
				sqlgen.BindMap{"name": expr.String(schemaVersionKey)})
			if err != nil {
				return err
			}
			if res.Size() > 0 {
				return nil
			}

			_, err = db.insert(ctx, conn, resolver.TableMeta, false,
				column{"name", expr.String(schemaVersionKey)},
				column{"value", expr.String(SchemaVersion)},
			)
			if err == nil {
				debug.Info("created schema", "dialect", conn.Dialect().Name(), "version", SchemaVersion)
			}
			return err
		})
	})
}

// StoredSchemaVersion reads the schema version recorded in the database
func (db *Database) StoredSchemaVersion(ctx context.Context) (*version.Version, error) {
	var v *version.Version
	err := db.withConn(ctx, func(conn *Connection) error {
		res, err := db.raw(ctx, conn,
			"SELECT m.value FROM bdb_meta m WHERE m.name = :name",
			sqlgen.BindMap{"name": expr.String(schemaVersionKey)})
		if err != nil {
			return err
		}
		if !res.Next() {
			return dberr.Lookup("no schema version recorded")
		}
		raw, err := res.ValueAt(0)
		if err != nil {
			return err
		}
		v, err = version.NewVersion(raw.ToString())
		if err != nil {
			return dberr.Value("invalid schema version %q", raw.ToString())
		}
		return nil
	})
	return v, err
}

// CheckSchemaVersion fails when the stored schema is incompatible
func (db *Database) CheckSchemaVersion(ctx context.Context) error {
	v, err := db.StoredSchemaVersion(ctx)
	if err != nil {
		return err
	}
	constraint, err := version.NewConstraint(schemaConstraint)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return dberr.Value("schema version %s does not satisfy %s", v, schemaConstraint)
	}
	return nil
}
