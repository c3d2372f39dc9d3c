package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/term"
)

// Format represents the console log output format.
type Format int

const (
	FormatAuto Format = iota
	FormatConsole
	FormatJSON
)

// Logger is a slog.Logger that writes every record to the console and to a
// run-specific file in ~/.longueuil-aweille/logs/.
type Logger struct {
	*slog.Logger

	runID     string
	file      *os.File
	logPath   string
	closeOnce sync.Once
}

// Options configures a Logger.
type Options struct {
	Level  slog.Level
	Format Format

	// Console receives human facing records. Defaults to os.Stderr.
	Console io.Writer

	// Dir receives the per-run log file. Defaults to DefaultDirectory().
	Dir string

	// DisableFile skips the per-run log file.
	DisableFile bool
}

// DefaultDirectory returns ~/.longueuil-aweille/logs.
func DefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", goerr.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(homeDir, ".longueuil-aweille", "logs"), nil
}

// New creates a Logger for one run, identified by a fresh run ID.
//
// If the log file cannot be opened, the returned Logger writes to the console
// only and the error is returned alongside it so callers can warn about it.
func New(opts Options) (*Logger, error) {
	if opts.Console == nil {
		opts.Console = os.Stderr
	}

	console := newConsoleHandler(opts.Console, opts.Level, opts.Format)
	l := &Logger{runID: uuid.New().String()}
	consoleOnly := func() {
		l.Logger = slog.New(console).With(slog.String("run_id", l.runID))
	}

	if opts.DisableFile {
		consoleOnly()
		return l, nil
	}

	dir := opts.Dir
	if dir == "" {
		d, err := DefaultDirectory()
		if err != nil {
			consoleOnly()
			return l, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		consoleOnly()
		return l, goerr.Wrap(err, "failed to create log directory", goerr.V("dir", dir))
	}

	logPath := filepath.Join(dir, l.runID+"-aweille.log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		consoleOnly()
		return l, goerr.Wrap(err, "failed to open log file", goerr.V("path", logPath))
	}

	// The file always records debug output regardless of console level.
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})

	l.file = file
	l.logPath = logPath
	l.Logger = slog.New(&teeHandler{handlers: []slog.Handler{console, fileHandler}}).
		With(slog.String("run_id", l.runID))
	return l, nil
}

func newConsoleHandler(w io.Writer, level slog.Level, format Format) slog.Handler {
	if format == FormatAuto {
		format = FormatJSON
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			format = FormatConsole
		}
	}

	if format == FormatJSON {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}

	return clog.New(
		clog.WithWriter(w),
		clog.WithLevel(level),
		clog.WithTimeFmt("15:04:05"),
		clog.WithSource(false),
		clog.WithAttrHook(clog.GoerrHook),
	)
}

// RunID returns the identifier of this run, also recorded on every record.
func (l *Logger) RunID() string {
	return l.runID
}

// LogPath returns the path to the log file, or "" when logging to console only.
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

// ParseLevel parses a string log level to slog.Level. Unknown values map to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "info", "INFO", "":
		return slog.LevelInfo
	case "warn", "warning", "WARN", "WARNING":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseFormat parses a console format name.
func ParseFormat(format string) (Format, error) {
	switch format {
	case "auto", "":
		return FormatAuto, nil
	case "console":
		return FormatConsole, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatAuto, goerr.New("invalid log format", goerr.V("format", format))
	}
}

// teeHandler fans a record out to every handler that accepts its level.
type teeHandler struct {
	handlers []slog.Handler
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &teeHandler{handlers: next}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &teeHandler{handlers: next}
}
