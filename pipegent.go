// Package pipegent wires the plan/execute orchestrator from configuration.
//
// Most applications interact with this package by:
//  1. Loading a config.Config
//  2. Creating a Pipegent via New (optionally overriding models, plugins or stores)
//  3. Calling Handle once per user request, or handing the Pipegent to a
//     runner.Runner for an interactive session
//
// New builds the plugin registry, the planning and executor models, the
// artifact store in the scratch directory and the context history file.
package pipegent

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"

	"github.com/tathagata1/Pipegent/agent"
	"github.com/tathagata1/Pipegent/artifact"
	"github.com/tathagata1/Pipegent/config"
	"github.com/tathagata1/Pipegent/core"
	"github.com/tathagata1/Pipegent/executor"
	"github.com/tathagata1/Pipegent/logging"
	"github.com/tathagata1/Pipegent/memory"
	"github.com/tathagata1/Pipegent/model"
	"github.com/tathagata1/Pipegent/model/anthropic"
	"github.com/tathagata1/Pipegent/model/openai"
	"github.com/tathagata1/Pipegent/plan"
	"github.com/tathagata1/Pipegent/plugin"
	"github.com/tathagata1/Pipegent/plugin/builtin"
	"github.com/tathagata1/Pipegent/plugins"
)

// ContextFileEnv names the environment variable the binary exports with the
// history file path, for out-of-process collaborators.
const ContextFileEnv = "PIPEGENT_CONTEXT_FILE"

// Options override the components New would otherwise build from config.
type Options struct {
	// PlannerModel and ExecutorModel replace the configured providers.
	PlannerModel  model.Model
	ExecutorModel model.Model

	// PluginFS and PluginDirs replace plugin discovery. When PluginFS is nil,
	// configured agent.plugin_dirs are read from disk, or the bundled plugins
	// when none are configured.
	PluginFS   fs.FS
	PluginDirs []string

	// Catalog adds or replaces plugin functions on top of the built-ins.
	Catalog plugin.Catalog

	Logger logging.Logger
}

// Pipegent is the composed orchestrator.
type Pipegent struct {
	cfg       *config.Config
	registry  *plugin.Registry
	history   *memory.FileStore
	artifacts *artifact.FileStore
	planner   *agent.Planner
	logger    logging.Logger
	stop      context.CancelFunc
}

// New composes a Pipegent from cfg. ctx bounds the optional history file
// watcher; Close stops it as well.
func New(ctx context.Context, cfg *config.Config, optFns ...func(o *Options)) (*Pipegent, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := logging.OrNoOp(opts.Logger)

	artifacts, historyPath, err := prepareScratch(cfg.Agent.ScratchDir, cfg.Agent.ContextFile)
	if err != nil {
		return nil, err
	}

	history, err := openHistory(ctx, historyPath, cfg.Agent.ContextFile != "", logger)
	if err != nil {
		return nil, err
	}

	catalog := builtin.Catalog(func(o *builtin.Options) {
		o.History = history
		o.SQLiteRoot = cfg.Agent.SQLiteRoot
	}).Merge(opts.Catalog)

	fsys, dirs, err := pluginSource(cfg, opts)
	if err != nil {
		return nil, err
	}

	registry, err := plugin.Load(fsys, dirs, catalog, func(o *plugin.Options) { o.Logger = logger })
	if err != nil {
		return nil, err
	}

	plannerModel := opts.PlannerModel
	if plannerModel == nil {
		if plannerModel, err = newModel(cfg, cfg.Planner); err != nil {
			return nil, fmt.Errorf("planner model: %w", err)
		}
	}
	executorModel := opts.ExecutorModel
	if executorModel == nil {
		if executorModel, err = newModel(cfg, cfg.Executor); err != nil {
			return nil, fmt.Errorf("executor model: %w", err)
		}
	}
	plannerModel = model.NewRateLimited(plannerModel, cfg.Planner.RequestsPerMinute)
	executorModel = model.NewRateLimited(executorModel, cfg.Executor.RequestsPerMinute)

	generator := plan.NewGenerator(plannerModel, registry.Specs(), func(o *plan.Options) {
		o.MaxSteps = cfg.Agent.MaxSteps
		o.Temperature = cfg.Planner.Temperature
		o.Logger = logger
	})

	exec := executor.New(executorModel, registry, func(o *executor.Options) {
		o.SpeechTool = cfg.Agent.SpeechTool
		o.Temperature = cfg.Executor.Temperature
		o.Logger = logger
	})

	synthesizer := agent.NewSynthesizer(plannerModel, func(o *agent.SynthesizerOptions) {
		o.Temperature = cfg.Planner.Temperature
		o.Logger = logger
	})

	p := &Pipegent{
		cfg:       cfg,
		registry:  registry,
		history:   history,
		artifacts: artifacts,
		planner:   agent.NewPlanner(generator, exec, synthesizer, artifacts, func(o *agent.Options) { o.Logger = logger }),
		logger:    logger,
		stop:      func() {},
	}

	if cfg.Agent.WatchContext {
		watchCtx, cancel := context.WithCancel(ctx)
		if err := history.Watch(watchCtx); err != nil {
			cancel()
			logger.Warn("history.watch.unavailable", "path", history.Path(), "error", err.Error())
		} else {
			p.stop = cancel
		}
	}

	logger.Info("pipegent.ready",
		"tools", registry.Len(),
		"skipped", len(registry.Skipped()),
		"context_file", history.Path(),
		"scratch_dir", artifacts.Dir(),
	)

	return p, nil
}

// Handle answers one request. It never fails; see agent.Planner.Handle.
func (p *Pipegent) Handle(ctx context.Context, request string) string {
	return p.planner.Handle(ctx, p.history, request)
}

// Registry returns the loaded plugin registry.
func (p *Pipegent) Registry() *plugin.Registry { return p.registry }

// History returns the context history store.
func (p *Pipegent) History() core.HistoryStore { return p.history }

// ContextFile returns the path of the context history file.
func (p *Pipegent) ContextFile() string { return p.history.Path() }

// Close stops the history watcher.
func (p *Pipegent) Close() error {
	p.stop()
	return nil
}

func newModel(cfg *config.Config, l config.LLMConfig) (model.Model, error) {
	temperature := 0.0
	if l.Temperature != nil {
		temperature = *l.Temperature
	}

	switch l.Provider {
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			o.Model = l.Model
			o.Temperature = temperature
			o.APIKey = cfg.OpenAI.APIKey
			o.BaseURL = cfg.OpenAI.BaseURL
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(l.Model)
			o.Temperature = temperature
			o.APIKey = cfg.Anthropic.APIKey
		}), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", l.Provider)
	}
}

// prepareScratch creates the scratch directory and picks the history path.
// Without a configured context file the directory is emptied and a fresh
// context_history_<id>.json is used, so every session starts clean.
func prepareScratch(dir, contextFile string) (*artifact.FileStore, string, error) {
	if contextFile == "" {
		if err := clearDir(dir); err != nil {
			return nil, "", err
		}
		contextFile = filepath.Join(dir, fmt.Sprintf("context_history_%s.json", strings.ReplaceAll(uuid.NewString(), "-", "")))
	}

	artifacts, err := artifact.NewFileStore(dir)
	if err != nil {
		return nil, "", err
	}
	return artifacts, contextFile, nil
}

// clearDir removes leftovers of earlier sessions from dir: artifacts, history
// files and interrupted history writes. Other files are left alone.
func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read scratch dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !isScratchFile(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clear scratch dir: %w", err)
		}
	}
	return nil
}

func isScratchFile(name string) bool {
	for _, pattern := range []string{"*.txt", "context_history*.json", ".context-*.tmp"} {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// openHistory creates a fresh history file, or loads a configured one that
// should survive across sessions.
func openHistory(ctx context.Context, path string, persistent bool, logger logging.Logger) (*memory.FileStore, error) {
	withLogger := func(o *memory.FileOptions) { o.Logger = logger }

	if !persistent {
		return memory.CreateFileStore(ctx, path, withLogger)
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return memory.CreateFileStore(ctx, path, withLogger)
	}

	store := memory.NewFileStore(path, withLogger)
	if _, err := store.Load(ctx); err != nil {
		return nil, fmt.Errorf("load context history: %w", err)
	}
	return store, nil
}

// pluginSource resolves the filesystem and directories plugins load from.
func pluginSource(cfg *config.Config, opts Options) (fs.FS, []string, error) {
	if opts.PluginFS != nil {
		return opts.PluginFS, opts.PluginDirs, nil
	}
	if len(cfg.Agent.PluginDirs) == 0 {
		return plugins.FS, plugins.Dirs, nil
	}

	dirs := make([]string, 0, len(cfg.Agent.PluginDirs))
	for _, d := range cfg.Agent.PluginDirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, nil, fmt.Errorf("plugin dir %s: %w", d, err)
		}
		dirs = append(dirs, strings.TrimPrefix(filepath.ToSlash(abs), "/"))
	}
	return os.DirFS("/"), dirs, nil
}
