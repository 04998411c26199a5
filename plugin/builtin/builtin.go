package builtin

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tathagata1/Pipegent/core"
	"github.com/tathagata1/Pipegent/plugin"
)

// Options configure the built-in functions.
type Options struct {
	// History is the context history handle reset by clear_context.
	History core.HistoryStore
	// SQLiteRoot confines sqlite_query database paths. Relative paths are
	// resolved against it. Defaults to the working directory.
	SQLiteRoot string
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// Rand is the randomness source for coin_flip, random_number and roll_dice.
	Rand *rand.Rand
}

type builtins struct {
	opts Options

	randMu sync.Mutex
}

// Catalog returns the catalog of built-in functions keyed by the
// execution_function names used in the bundled manifests.
func Catalog(optFns ...func(o *Options)) plugin.Catalog {
	opts := Options{
		SQLiteRoot: ".",
		Now:        time.Now,
		Rand:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	b := &builtins{opts: opts}

	return plugin.Catalog{
		"speech":                {Params: []string{"comment"}, Fn: speech},
		"calculator":            {Params: []string{"a", "b", "operation"}, Fn: calculator},
		"clear_context":         {Params: []string{"reason"}, Fn: b.clearContext},
		"get_date":              {Fn: b.getDate},
		"get_time":              {Fn: b.getTime},
		"random_number":         {Params: []string{"min_value", "max_value"}, Fn: b.randomNumber},
		"roll_dice":             {Params: []string{"sides", "rolls"}, Fn: b.rollDice},
		"coin_flip":             {Fn: b.coinFlip},
		"temperature_converter": {Params: []string{"value", "from_unit", "to_unit"}, Fn: temperatureConverter},
		"word_counter":          {Params: []string{"text"}, Fn: wordCounter},
		"sentence_case":         {Params: []string{"text"}, Fn: sentenceCase},
		"camel_case_converter":  {Params: []string{"text"}, Fn: camelCaseConverter},
		"slugify_text":          {Params: []string{"text"}, Fn: slugifyText},
		"uuid_generator":        {Params: []string{"count"}, Fn: uuidGenerator},
		"sqlite_query":          {Params: []string{"db_path", "query", "parameters", "max_rows"}, Fn: b.sqliteQuery},
	}
}

// intN returns a uniform integer in [0, n).
func (b *builtins) intN(n int) int {
	b.randMu.Lock()
	defer b.randMu.Unlock()
	return b.opts.Rand.IntN(n)
}
