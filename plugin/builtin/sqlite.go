package builtin

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/tathagata1/Pipegent/core"
)

const defaultMaxRows = 50

// resolveDB resolves path against root and rejects anything outside it.
func resolveDB(root, path string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}

	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(absRoot, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(absRoot, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("database path '%s' is outside the project root", path)
	}
	return path, nil
}

func isQuery(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	return strings.HasPrefix(q, "select") || strings.HasPrefix(q, "with") || strings.HasPrefix(q, "pragma")
}

func (b *builtins) sqliteQuery(tc *core.ToolContext, args map[string]any) (any, error) {
	dbPath, err := stringArg(args, "db_path")
	if err != nil {
		return nil, err
	}
	query, err := stringArg(args, "query")
	if err != nil {
		return nil, err
	}
	limit, err := intArgDefault(args, "max_rows", defaultMaxRows)
	if err != nil {
		return nil, err
	}
	limit = max(1, limit)

	var params []any
	if raw, ok := args["parameters"].([]any); ok {
		params = raw
	}

	database, err := resolveDB(b.opts.SQLiteRoot, dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(database); err != nil {
		return nil, fmt.Errorf("database file not found: %s", database)
	}

	db, err := sql.Open("sqlite", database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx := tc.Context()
	tc.LogDebug("sqlite.query", "db", filepath.Base(database), "read_only", isQuery(query))

	if !isQuery(query) {
		res, err := db.ExecContext(ctx, query, params...)
		if err != nil {
			tc.LogWarn("sqlite.exec_failed", "db", filepath.Base(database), "error", err.Error())
			return nil, err
		}
		changes, _ := res.RowsAffected()
		return map[string]any{"changes": changes}, nil
	}

	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	data := make([]map[string]any, 0)
	for len(data) < limit && rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if bs, ok := values[i].([]byte); ok {
				row[col] = string(bs)
				continue
			}
			row[col] = values[i]
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return map[string]any{"row_count": len(data), "rows": data}, nil
}
