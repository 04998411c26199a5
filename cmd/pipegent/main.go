// Command pipegent runs the plan/execute assistant as an interactive read
// loop, or answers a single request with -request.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tathagata1/Pipegent"
	"github.com/tathagata1/Pipegent/config"
	"github.com/tathagata1/Pipegent/logging"
	"github.com/tathagata1/Pipegent/plugin"
	"github.com/tathagata1/Pipegent/runner"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "pipegent:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a TOML config file (default $PIPEGENT_CONFIG or ./pipegent.toml)")
	request := flag.String("request", "", "handle a single request, print the answer and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger, logFile, err := openLog(cfg.Logging)
	if err != nil {
		return err
	}
	defer logFile.Close()

	logger.Info("logging.initialized", "path", logFile.Name())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initDone := logger.StartTimer("pipegent.init")
	app, err := pipegent.New(ctx, cfg, func(o *pipegent.Options) { o.Logger = logger })
	initDone()
	if err != nil {
		if errors.Is(err, plugin.ErrEmptyRegistry) {
			return fmt.Errorf("no plugins were loaded, ensure manifest files are valid: %w", err)
		}
		return err
	}
	defer app.Close()

	if err := os.Setenv(pipegent.ContextFileEnv, app.ContextFile()); err != nil {
		return fmt.Errorf("export %s: %w", pipegent.ContextFileEnv, err)
	}

	if *request != "" {
		fmt.Println(app.Handle(ctx, *request))
		return nil
	}

	historyFile := cfg.CLI.HistoryPath()
	if historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(historyFile), 0o755); err != nil {
			logger.Warn("cli.history.unavailable", "path", historyFile, "error", err.Error())
			historyFile = ""
		}
	}

	r, err := runner.New(app, func(o *runner.Options) {
		o.Prompt = cfg.CLI.Prompt
		o.HistoryFile = historyFile
		o.RenderMarkdown = cfg.CLI.RenderMarkdown
		o.Logger = logger
	})
	if err != nil {
		return err
	}

	err = r.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("pipegent.interrupted")
		return nil
	}
	return err
}

// openLog creates <dir>/pipegent_<timestamp>.log and a logger writing to it,
// keeping the terminal free for the conversation.
func openLog(cfg config.LoggingConfig) (*logging.PipegentLogger, *os.File, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}

	path := filepath.Join(cfg.Dir, fmt.Sprintf("pipegent_%s.log", time.Now().Format("20060102_150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Format,
		Output:    f,
		Component: "pipegent",
	})
	return logger, f, nil
}
