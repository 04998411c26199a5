package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/tathagata1/Pipegent/logging"
)

// Handler answers one user request. It must not fail; errors are part of the
// reply text.
type Handler interface {
	Handle(ctx context.Context, request string) string
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, request string) string

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, request string) string { return f(ctx, request) }

// LineReader reads prompted input lines. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

type styles struct {
	prompt   lipgloss.Style
	agent    lipgloss.Style
	thinking lipgloss.Style
}

// newStyles builds styles whose color profile follows w, so plain writers get
// plain text.
func newStyles(w io.Writer) styles {
	re := lipgloss.NewRenderer(w)
	return styles{
		prompt:   re.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		agent:    re.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		thinking: re.NewStyle().Foreground(lipgloss.Color("8")).Italic(true),
	}
}

// Options configure a Runner.
type Options struct {
	// Prompt is shown before every input line.
	Prompt string
	// Out receives replies. Defaults to os.Stdout.
	Out io.Writer
	// Reader supplies input lines. Defaults to a liner terminal editor.
	Reader LineReader
	// HistoryFile persists input history across sessions when the default
	// liner reader is used. Empty disables persistence.
	HistoryFile string
	// RenderMarkdown renders replies with glamour.
	RenderMarkdown bool
	Logger         logging.Logger
}

// Runner drives the read/handle/print loop.
type Runner struct {
	handler  Handler
	opts     Options
	reader   LineReader
	styles   styles
	renderer *glamour.TermRenderer
}

// New returns a Runner dispatching input to h.
func New(h Handler, optFns ...func(o *Options)) (*Runner, error) {
	opts := Options{
		Prompt: "You: ",
		Out:    os.Stdout,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	r := &Runner{handler: h, opts: opts, reader: opts.Reader, styles: newStyles(opts.Out)}

	if r.reader == nil {
		r.reader = newTerminalReader(opts.HistoryFile)
	}

	if opts.RenderMarkdown {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return nil, fmt.Errorf("create markdown renderer: %w", err)
		}
		r.renderer = renderer
	}

	return r, nil
}

// IsExitCommand reports whether input ends the session.
func IsExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit":
		return true
	}
	return false
}

// Run reads input until an exit command, EOF, an aborted prompt or context
// cancellation. The reader is closed when Run returns.
func (r *Runner) Run(ctx context.Context) error {
	defer func() {
		if err := r.reader.Close(); err != nil {
			r.opts.Logger.Warn("runner.close_failed", "error", err.Error())
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		input, err := r.reader.Prompt(r.styles.prompt.Render(r.opts.Prompt))
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				r.opts.Logger.Info("runner.eof")
				fmt.Fprintln(r.opts.Out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.reader.AppendHistory(input)

		if IsExitCommand(input) {
			r.opts.Logger.Info("runner.exit")
			return nil
		}

		fmt.Fprintln(r.opts.Out, r.styles.thinking.Render("thinking..."))
		r.opts.Logger.Info("runner.input", "chars", len(input))

		reply := r.handler.Handle(ctx, input)
		r.opts.Logger.Info("runner.reply", "chars", len(reply))

		fmt.Fprintf(r.opts.Out, "%s %s\n", r.styles.agent.Render("Agent:"), r.render(reply))
	}
}

func (r *Runner) render(reply string) string {
	if r.renderer == nil {
		return reply
	}
	out, err := r.renderer.Render(reply)
	if err != nil {
		r.opts.Logger.Warn("runner.render_failed", "error", err.Error())
		return reply
	}
	return strings.TrimSpace(out)
}

// terminalReader wraps liner with optional history persistence.
type terminalReader struct {
	*liner.State
	historyFile string
}

func newTerminalReader(historyFile string) *terminalReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	t := &terminalReader{State: line, historyFile: historyFile}
	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			_, _ = line.ReadHistory(f)
			_ = f.Close()
		}
	}
	return t
}

// Close saves history and restores the terminal.
func (t *terminalReader) Close() error {
	if t.historyFile != "" {
		if f, err := os.OpenFile(t.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = t.WriteHistory(f)
			_ = f.Close()
		}
	}
	return t.State.Close()
}
