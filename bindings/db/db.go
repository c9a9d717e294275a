// Package db implements the DB capability: a private SQLite database that
// guest code reaches with exec, query and first.
package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/cryguy/raven/internal/binding"
	"github.com/cryguy/raven/internal/core"
	"go.uber.org/zap"

	// Pure-Go SQLite driver for database/sql.
	_ "github.com/glebarez/sqlite"
)

// Database is one isolated SQLite database.
type Database struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Database, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}
	if path == ":memory:" {
		// Each connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	} else {
		_, _ = db.Exec("PRAGMA journal_mode=WAL")
	}
	return &Database{db: db}, nil
}

// Close closes the underlying connection pool.
func (d *Database) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// Result holds the outcome of one statement.
type Result struct {
	Columns []string
	Rows    [][]any
	Changes int64
	LastID  int64
}

var allowedPragmas = []string{
	"PRAGMA TABLE_INFO", "PRAGMA TABLE_LIST", "PRAGMA INDEX_LIST",
	"PRAGMA INDEX_INFO", "PRAGMA FOREIGN_KEY_LIST", "PRAGMA JOURNAL_MODE",
}

// checkStatement rejects statements that could reach outside the database.
func checkStatement(upper string) error {
	for _, blocked := range []string{"ATTACH", "DETACH"} {
		if strings.HasPrefix(upper, blocked) {
			return fmt.Errorf("%s statements are not allowed", blocked)
		}
	}
	if strings.HasPrefix(upper, "PRAGMA") {
		for _, a := range allowedPragmas {
			if strings.HasPrefix(upper, a) {
				return nil
			}
		}
		return fmt.Errorf("this PRAGMA is not allowed")
	}
	return nil
}

func isQuery(upper string) bool {
	return strings.HasPrefix(upper, "SELECT") ||
		strings.HasPrefix(upper, "PRAGMA") ||
		strings.HasPrefix(upper, "WITH")
}

// Exec runs one statement with positional parameters.
func (d *Database) Exec(query string, params []any) (*Result, error) {
	upper := strings.ToUpper(strings.TrimSpace(query))
	if err := checkStatement(upper); err != nil {
		return nil, err
	}
	if !isQuery(upper) {
		res, err := d.db.Exec(query, params...)
		if err != nil {
			return nil, fmt.Errorf("exec error: %w", err)
		}
		changes, _ := res.RowsAffected()
		lastID, _ := res.LastInsertId()
		return &Result{Columns: []string{}, Changes: changes, LastID: lastID}, nil
	}

	rows, err := d.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns error: %w", err)
	}
	out := &Result{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		out.Rows = append(out.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

// Binding exposes a Database to guest code.
type Binding struct {
	name string
	db   *Database
}

var _ binding.Binding = (*Binding)(nil)

// New returns a DB binding named name over db.
func New(name string, db *Database) *Binding {
	return &Binding{name: name, db: db}
}

func (b *Binding) Name() string { return b.name }

func (b *Binding) Methods() []binding.Method {
	return []binding.Method{
		binding.Async("exec", binding.Variadic),
		binding.Async("query", binding.Variadic),
		binding.Async("first", binding.Variadic),
	}
}

func (b *Binding) Call(method string, args []binding.Value) binding.Value {
	switch method {
	case "exec", "query", "first":
	default:
		return binding.UnknownMethod(method)
	}
	query, isString := binding.Arg(args, 0).AsString()
	if !isString {
		return binding.Errorf("%s requires a SQL string", method)
	}
	res, err := b.db.Exec(query, sqlParams(args[1:]))
	if err != nil {
		core.Logger().Debug("db statement failed",
			zap.String("binding", b.name),
			zap.Error(err))
		return binding.Errorf("%s: %v", method, err)
	}
	switch method {
	case "exec":
		return binding.Object(map[string]binding.Value{
			"changes":     binding.Int(res.Changes),
			"last_row_id": binding.Int(res.LastID),
			"rows_read":   binding.Int(int64(len(res.Rows))),
		})
	case "first":
		if len(res.Rows) == 0 {
			return binding.Null()
		}
		return rowValue(res.Columns, res.Rows[0])
	}
	rows := make([]binding.Value, len(res.Rows))
	for i, r := range res.Rows {
		rows[i] = rowValue(res.Columns, r)
	}
	return binding.Array(rows...)
}

// sqlParams accepts either positional arguments or a single array.
func sqlParams(args []binding.Value) []any {
	if len(args) == 1 {
		if items, isArray := args[0].AsArray(); isArray {
			args = items
		}
	}
	out := make([]any, len(args))
	for i, a := range args {
		switch a.Kind() {
		case binding.KindBytes:
			raw, _ := a.AsBytes()
			out[i] = raw
		case binding.KindBool:
			v, _ := a.AsBool()
			out[i] = v
		default:
			out[i] = binding.ToNative(a)
		}
	}
	return out
}

func rowValue(columns []string, row []any) binding.Value {
	fields := make(map[string]binding.Value, len(columns))
	for i, c := range columns {
		if raw, isBlob := row[i].([]byte); isBlob {
			fields[c] = binding.Bytes(raw)
			continue
		}
		fields[c] = binding.FromNative(row[i])
	}
	return binding.Object(fields)
}
