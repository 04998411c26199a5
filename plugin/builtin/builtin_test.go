package builtin

import (
	"context"
	"database/sql"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tathagata1/Pipegent/core"
	"github.com/tathagata1/Pipegent/plugin"
	"github.com/tathagata1/Pipegent/plugins"
	"github.com/tathagata1/Pipegent/tool"
)

type fakeHistory struct {
	path   string
	resets int
	err    error
}

func (f *fakeHistory) Load(context.Context) ([]core.Message, error) { return nil, nil }
func (f *fakeHistory) Entries() []core.Message { return nil }
func (f *fakeHistory) Append(context.Context, ...core.Message) error { return nil }
func (f *fakeHistory) RefreshIfStale(context.Context) error { return nil }
func (f *fakeHistory) Path() string { return f.path }
func (f *fakeHistory) Reset(context.Context) error {
	f.resets++
	return f.err
}

func newRegistry(t *testing.T, optFns ...func(o *Options)) *plugin.Registry {
	t.Helper()
	reg, err := plugin.Load(plugins.FS, plugins.Dirs, Catalog(optFns...))
	require.NoError(t, err)
	return reg
}

func call(t *testing.T, reg *plugin.Registry, name string, args map[string]any) (any, error) {
	t.Helper()
	tl, ok := reg.Get(name)
	require.True(t, ok, "tool %s not registered", name)
	return tl.Call(core.NewToolContext(context.Background(), "run", "call", nil), args)
}

func TestBundledManifestsBindToCatalog(t *testing.T) {
	reg := newRegistry(t)

	assert.Empty(t, reg.Skipped())
	assert.ElementsMatch(t, Catalog().Names(), reg.Names())
}

func TestCalculator(t *testing.T) {
	reg := newRegistry(t)

	out, err := call(t, reg, "calculator", map[string]any{"a": 2.0, "b": 3.0, "operation": "add"})
	require.NoError(t, err)
	assert.Equal(t, 5.0, out)

	out, err = call(t, reg, "calculator", map[string]any{"a": 7.0, "b": 2.0, "operation": "divide"})
	require.NoError(t, err)
	assert.Equal(t, 3.5, out)

	_, err = call(t, reg, "calculator", map[string]any{"a": 1.0, "b": 0.0, "operation": "divide"})
	assert.Equal(t, "division by zero", tool.ErrorMessage(err))

	_, err = call(t, reg, "calculator", map[string]any{"a": 1.0, "b": 2.0, "operation": "pow"})
	assert.Equal(t, "invalid operation", tool.ErrorMessage(err))

	_, err = call(t, reg, "calculator", map[string]any{"a": 1.0})
	var toolErr *tool.ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, tool.CodeValidation, toolErr.Code)
}

func TestTemperatureConverter(t *testing.T) {
	reg := newRegistry(t)

	out, err := call(t, reg, "temperature_converter", map[string]any{"value": 100.0, "from_unit": "Celsius", "to_unit": "fahrenheit"})
	require.NoError(t, err)
	assert.Equal(t, 212.0, out)

	out, err = call(t, reg, "temperature_converter", map[string]any{"value": 0.0, "from_unit": "kelvin", "to_unit": "celsius"})
	require.NoError(t, err)
	assert.Equal(t, -273.15, out)

	_, err = call(t, reg, "temperature_converter", map[string]any{"value": 1.0, "from_unit": "rankine", "to_unit": "celsius"})
	assert.Equal(t, "unsupported temperature unit", tool.ErrorMessage(err))
}

func TestRandomness(t *testing.T) {
	reg := newRegistry(t, func(o *Options) { o.Rand = rand.New(rand.NewPCG(1, 2)) })

	for range 20 {
		out, err := call(t, reg, "random_number", map[string]any{"min_value": 3.0, "max_value": 5.0})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, out.(int), 3)
		assert.LessOrEqual(t, out.(int), 5)
	}

	_, err := call(t, reg, "random_number", map[string]any{"min_value": 9.0, "max_value": 1.0})
	assert.Equal(t, "min_value cannot exceed max_value", tool.ErrorMessage(err))

	out, err := call(t, reg, "roll_dice", map[string]any{"sides": 6.0, "rolls": 3.0})
	require.NoError(t, err)
	assert.Len(t, strings.Split(out.(string), ", "), 3)

	_, err = call(t, reg, "roll_dice", map[string]any{"sides": 1.0})
	assert.Equal(t, "sides must be at least 2", tool.ErrorMessage(err))

	out, err = call(t, reg, "coin_flip", map[string]any{})
	require.NoError(t, err)
	assert.Contains(t, []string{"heads", "tails"}, out)
}

func TestClock(t *testing.T) {
	fixed := time.Date(2024, 3, 9, 7, 5, 3, 0, time.UTC)
	reg := newRegistry(t, func(o *Options) { o.Now = func() time.Time { return fixed } })

	out, err := call(t, reg, "get_date", nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09", out)

	out, err = call(t, reg, "get_time", nil)
	require.NoError(t, err)
	assert.Equal(t, "07:05:03", out)
}

func TestUUIDGenerator(t *testing.T) {
	reg := newRegistry(t)

	out, err := call(t, reg, "uuid_generator", map[string]any{"count": 3.0})
	require.NoError(t, err)
	ids := out.([]string)
	require.Len(t, ids, 3)
	assert.NotEqual(t, ids[0], ids[1])

	_, err = call(t, reg, "uuid_generator", map[string]any{"count": 21.0})
	assert.Equal(t, "count must be between 1 and 20", tool.ErrorMessage(err))
}

func TestTextTools(t *testing.T) {
	reg := newRegistry(t)

	out, err := call(t, reg, "word_counter", map[string]any{"text": "The cat and the hat"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"words": 5, "characters": 19, "unique_words": 4}, out)

	out, err = call(t, reg, "sentence_case", map[string]any{"text": "  hELLO World  "})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", out)

	out, err = call(t, reg, "camel_case_converter", map[string]any{"text": "hello big-WORLD_2"})
	require.NoError(t, err)
	assert.Equal(t, "helloBigWorld2", out)

	out, err = call(t, reg, "slugify_text", map[string]any{"text": "  Crème Brûlée: 2 Ways! "})
	require.NoError(t, err)
	assert.Equal(t, "creme-brulee-2-ways", out)
}

func TestSpeech(t *testing.T) {
	reg := newRegistry(t)

	out, err := call(t, reg, "speech", map[string]any{"comment": "The answer is 5."})
	require.NoError(t, err)
	assert.Equal(t, "The answer is 5.", out)
}

func TestClearContext(t *testing.T) {
	hist := &fakeHistory{path: "/tmp/context_history_x.json"}
	reg := newRegistry(t, func(o *Options) { o.History = hist })

	out, err := call(t, reg, "clear_context", map[string]any{"reason": "fresh start"})
	require.NoError(t, err)
	assert.Equal(t, "Context history reset (context_history_x.json). Reason: fresh start", out)
	assert.Equal(t, 1, hist.resets)

	hist.err = errors.New("disk full")
	_, err = call(t, reg, "clear_context", nil)
	assert.Contains(t, tool.ErrorMessage(err), "disk full")

	unconfigured := newRegistry(t)
	_, err = call(t, unconfigured, "clear_context", nil)
	assert.Equal(t, "context file location is not configured", tool.ErrorMessage(err))
}

func TestSQLiteQuery(t *testing.T) {
	root := t.TempDir()
	dbFile := filepath.Join(root, "data.db")

	db, err := sql.Open("sqlite", dbFile)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO items (name) VALUES ('apple'), ('banana'), ('cherry')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reg := newRegistry(t, func(o *Options) { o.SQLiteRoot = root })

	out, err := call(t, reg, "sqlite_query", map[string]any{
		"db_path":    "data.db",
		"query":      "SELECT name FROM items WHERE id > ? ORDER BY id",
		"parameters": []any{1.0},
	})
	require.NoError(t, err)
	res := out.(map[string]any)
	assert.Equal(t, 2, res["row_count"])
	assert.Equal(t, "banana", res["rows"].([]map[string]any)[0]["name"])

	out, err = call(t, reg, "sqlite_query", map[string]any{"db_path": "data.db", "query": "SELECT * FROM items", "max_rows": 1.0})
	require.NoError(t, err)
	assert.Equal(t, 1, out.(map[string]any)["row_count"])

	out, err = call(t, reg, "sqlite_query", map[string]any{"db_path": dbFile, "query": "DELETE FROM items WHERE name = 'apple'"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.(map[string]any)["changes"])

	_, err = call(t, reg, "sqlite_query", map[string]any{"db_path": "../outside.db", "query": "SELECT 1"})
	assert.Contains(t, tool.ErrorMessage(err), "outside the project root")

	_, err = call(t, reg, "sqlite_query", map[string]any{"db_path": "missing.db", "query": "SELECT 1"})
	assert.Contains(t, tool.ErrorMessage(err), "database file not found")
}
