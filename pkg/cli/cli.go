package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aweille/longueuil-aweille/pkg/browser"
	"github.com/aweille/longueuil-aweille/pkg/config"
	"github.com/aweille/longueuil-aweille/pkg/logging"
	"github.com/aweille/longueuil-aweille/pkg/registration"
	"github.com/aweille/longueuil-aweille/pkg/ui"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Version is the application version reported by --version.
var Version = "0.2.0"

// LauncherFactory builds the browser launcher for a run. The returned
// cleanup function is called once the run is over.
type LauncherFactory func(ctx context.Context, settings *config.Settings) (registration.Launcher, func(), error)

type app struct {
	out         io.Writer
	errOut      io.Writer
	launcher    LauncherFactory
	loader      *config.Loader
	logDir      string
	disableFile bool
}

// Option configures Run.
type Option func(*app)

// WithOutput redirects panels and console logs.
func WithOutput(out, errOut io.Writer) Option {
	return func(a *app) {
		a.out = out
		a.errOut = errOut
	}
}

// WithLauncher replaces the Playwright launcher.
func WithLauncher(f LauncherFactory) Option {
	return func(a *app) {
		a.launcher = f
	}
}

// WithLoader replaces the configuration loader.
func WithLoader(l *config.Loader) Option {
	return func(a *app) {
		a.loader = l
	}
}

// WithLogDir writes the per-run log file to dir.
func WithLogDir(dir string) Option {
	return func(a *app) {
		a.logDir = dir
	}
}

// WithoutLogFile disables the per-run log file.
func WithoutLogFile() Option {
	return func(a *app) {
		a.disableFile = true
	}
}

// Run executes the command line and returns the process exit code.
func Run(ctx context.Context, args []string, opts ...Option) int {
	a := &app{
		out:      os.Stdout,
		errOut:   os.Stderr,
		launcher: playwrightLauncher,
		loader:   &config.Loader{DotEnvPath: ".env"},
	}
	for _, opt := range opts {
		opt(a)
	}

	// Help and version exit before Action runs.
	code := 0
	cmd := &cli.Command{
		Name:      "longueuil-aweille",
		Usage:     "Aweille! Auto-register for Longueuil municipal activities before anyone else",
		Version:   Version,
		Writer:    a.out,
		ErrWriter: a.errOut,
		Flags:     flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			code = a.register(ctx, cmd)
			return nil
		},
	}

	if err := cmd.Run(ctx, args); err != nil {
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
		return 1
	}
	return code
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.yaml",
		},
		&cli.BoolWithInverseFlag{
			Name:  "headless",
			Usage: "Run browser in headless mode (--no-headless shows the window)",
		},
		&cli.IntFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "Timeout in seconds",
		},
		&cli.StringFlag{
			Name:     "log-level",
			Usage:    "Log level (debug, info, warn, error); defaults to the config file value",
			Category: "Logging",
		},
		&cli.StringFlag{
			Name:     "log-format",
			Usage:    "Log format (console, json, auto)",
			Category: "Logging",
			Value:    "auto",
			Sources:  cli.EnvVars("LONGUEUIL_LOG_FORMAT"),
		},
	}
}

func (a *app) register(ctx context.Context, cmd *cli.Command) int {
	path := cmd.String("config")
	fmt.Fprintf(a.out, "\nLoading config from %s\n", path)

	settings, err := a.loader.Load(path)
	if err != nil {
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
		return 1
	}

	if err := applyOverrides(cmd, settings); err != nil {
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
		return 1
	}

	if len(settings.Participants) == 0 {
		fmt.Fprintln(a.errOut, "Error: No participants configured")
		return 1
	}

	logger, err := a.newLogger(cmd, settings)
	if err != nil {
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
		return 1
	}
	defer logger.Close()
	ctx = ctxlog.With(ctx, logger.Logger)

	names := make([]string, 0, len(settings.Participants))
	for _, p := range settings.Participants {
		names = append(names, p.Name)
	}

	// Participants are logged by name only; credentials never reach the logs.
	logger.Info("configuration loaded",
		slog.String("path", path),
		slog.String("activity", settings.ActivityName),
		slog.Any("participants", names),
		slog.Bool("headless", settings.Headless),
		slog.Int("timeout", settings.Timeout))
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, ui.TargetPanel(ui.Target{
		Domain:       settings.Domain,
		Activity:     settings.ActivityName,
		Participants: names,
	}))
	fmt.Fprintln(a.out)

	launcher, cleanup, err := a.launcher(ctx, settings)
	if err != nil {
		logger.Error("failed to prepare browser", "error", err)
		fmt.Fprintln(a.out, ui.StatusPanel(registration.Outcome{Status: registration.StatusFailed, Err: err}))
		return 1
	}
	defer cleanup()

	bot, err := registration.New(settings, launcher)
	if err != nil {
		logger.Error("failed to create registration bot", "error", err)
		return 1
	}

	outcome := bot.Run(ctx)
	logger.Info("registration finished", slog.Any("status", outcome.Status))

	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, ui.StatusPanel(outcome))
	fmt.Fprintf(a.out, "Run ID: %s\n", logger.RunID())
	if path := logger.LogPath(); path != "" {
		fmt.Fprintf(a.out, "Log file: %s\n", path)
	}

	if outcome.Status.Succeeded() {
		return 0
	}
	return 1
}

// applyOverrides layers command line flags over the loaded settings.
func applyOverrides(cmd *cli.Command, settings *config.Settings) error {
	if cmd.IsSet("headless") {
		settings.Headless = cmd.Bool("headless")
	}

	if cmd.IsSet("timeout") {
		timeout := int(cmd.Int("timeout"))
		if timeout < 0 {
			return goerr.New("timeout cannot be negative", goerr.V("timeout", timeout))
		}
		settings.Timeout = timeout
	}

	if cmd.IsSet("log-level") {
		settings.LogLevel = cmd.String("log-level")
	}
	return nil
}

func (a *app) newLogger(cmd *cli.Command, settings *config.Settings) (*logging.Logger, error) {
	format, err := logging.ParseFormat(cmd.String("log-format"))
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:       logging.ParseLevel(settings.LogLevel),
		Format:      format,
		Console:     a.errOut,
		Dir:         a.logDir,
		DisableFile: a.disableFile,
	})
	if err != nil {
		// Console logging still works without the file.
		logger.Warn("log file unavailable", "error", err)
	}
	return logger, nil
}

// playwrightLauncher starts the Playwright runtime and opens Chromium
// sessions from it.
func playwrightLauncher(ctx context.Context, settings *config.Settings) (registration.Launcher, func(), error) {
	logger := ctxlog.From(ctx)

	manager := browser.NewManager(browser.ManagerOptions{Install: settings.InstallBrowsers})
	if settings.InstallBrowsers {
		logger.Info("checking Playwright browsers")
	}
	if err := manager.Initialize(); err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := manager.Shutdown(); err != nil {
			logger.Warn("failed to stop Playwright", "error", err)
		}
	}

	launcher := registration.LauncherFunc(func(ctx context.Context, headless bool) (registration.Page, error) {
		ctxlog.From(ctx).Info("launching browser", "headless", headless)
		session, err := manager.StartSession(browser.SessionOptions{Headless: headless})
		if err != nil {
			return nil, err
		}
		return session, nil
	})
	return launcher, cleanup, nil
}
