package registration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aweille/longueuil-aweille/pkg/browser"
	"github.com/aweille/longueuil-aweille/pkg/config"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Page is the part of a browser session the bot drives.
// *browser.Session implements it.
type Page interface {
	Goto(url string) error
	Reload() error
	WaitIdle() error
	Pause(d time.Duration)
	ClickLink(name string) error
	CheckLabel(label string) error
	Click(selector string) error
	ClickNth(selector string, n int) error
	Fill(selector, value string) error
	Count(selector string) (int, error)
	Rows(buttonSelector string) ([]browser.Row, error)
	BodyText() (string, error)
	HTML() (string, error)
	Screenshot(path string) error
	Close() error
}

// Launcher opens a fresh page for one run.
type Launcher interface {
	Launch(ctx context.Context, headless bool) (Page, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, headless bool) (Page, error)

// Launch calls f.
func (f LauncherFunc) Launch(ctx context.Context, headless bool) (Page, error) {
	return f(ctx, headless)
}

// Timings are the settle delays the site needs after each action.
type Timings struct {
	AfterTab        time.Duration
	AfterDomain     time.Duration
	AfterSearch     time.Duration
	AfterReload     time.Duration
	AfterPageChange time.Duration
	AfterSelect     time.Duration
	BetweenFills    time.Duration
	AfterSubmit     time.Duration
}

// DefaultTimings returns delays tuned for the live site.
func DefaultTimings() Timings {
	return Timings{
		AfterTab:        time.Second,
		AfterDomain:     time.Second,
		AfterSearch:     3 * time.Second,
		AfterReload:     2 * time.Second,
		AfterPageChange: 2 * time.Second,
		AfterSelect:     500 * time.Millisecond,
		BetweenFills:    100 * time.Millisecond,
		AfterSubmit:     2 * time.Second,
	}
}

// Option configures a Bot.
type Option func(*Bot)

// WithTimings overrides the settle delays.
func WithTimings(t Timings) Option {
	return func(b *Bot) {
		b.timings = t
	}
}

// WithClock replaces the wall clock and the refresh sleep.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(b *Bot) {
		b.now = now
		b.sleep = sleep
	}
}

// Bot registers the configured participants to one activity.
type Bot struct {
	settings *config.Settings
	launcher Launcher
	matcher  *Matcher
	timings  Timings
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	// lastSeen is the latest reason the activity could not be selected.
	// Zero until a matching row was classified as unavailable.
	lastSeen Status
}

// New creates a bot for settings.
func New(settings *config.Settings, launcher Launcher, opts ...Option) (*Bot, error) {
	if settings == nil {
		return nil, goerr.New("settings are required")
	}
	if launcher == nil {
		return nil, goerr.New("launcher is required")
	}

	matcher, err := NewMatcher(settings.ActivityName)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		settings: settings,
		launcher: launcher,
		matcher:  matcher,
		timings:  DefaultTimings(),
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Run performs one registration attempt and always returns an outcome.
// Errors are logged and reported as StatusFailed, with diagnostics written
// to the artifacts directory when the page was reachable.
func (b *Bot) Run(ctx context.Context) Outcome {
	logger := ctxlog.From(ctx)
	b.lastSeen = 0

	page, err := b.launcher.Launch(ctx, b.settings.Headless)
	if err != nil {
		logger.Error("failed to launch browser", "error", err)
		return Outcome{Status: StatusFailed, Err: err}
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Warn("failed to close browser session", "error", err)
		}
	}()

	status, err := b.run(ctx, page)
	if err == nil {
		return Outcome{Status: status}
	}

	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		logger.Warn("registration interrupted", "error", err)
		return Outcome{Status: StatusFailed, Err: err}
	}

	logger.Error("registration failed", "error", err)
	out := Outcome{Status: StatusFailed, Err: err}
	out.Screenshot, out.Snapshot = b.captureDiagnostics(ctx, page)
	return out
}

func (b *Bot) run(ctx context.Context, page Page) (Status, error) {
	logger := ctxlog.From(ctx)

	if err := b.navigate(ctx, page); err != nil {
		return 0, err
	}

	selected, err := b.waitAndSelect(ctx, page)
	if err != nil {
		return 0, err
	}
	if !selected {
		if b.lastSeen != 0 {
			logger.Error("activity found but not available", "reason", b.lastSeen)
			return b.lastSeen, nil
		}
		logger.Error("activity not available before timeout",
			"activity", b.settings.ActivityName,
			"timeout", b.settings.TimeoutDuration())
		return StatusTimeout, nil
	}

	if err := b.fillCredentials(ctx, page); err != nil {
		return 0, err
	}

	status, err := b.submit(ctx, page)
	if err != nil {
		return 0, err
	}

	switch status {
	case StatusSuccess:
		logger.Info("registration completed")
	case StatusAlreadyEnrolled:
		logger.Warn("participant already enrolled")
	case StatusInvalidCredentials:
		logger.Error("invalid dossier or NIP")
	case StatusAgeCriteriaNotMet:
		logger.Error("participant does not meet the age criteria")
	}
	return status, nil
}

func (b *Bot) navigate(ctx context.Context, page Page) error {
	logger := ctxlog.From(ctx)
	sel := b.settings.Selectors

	logger.Info("opening registration page", "url", b.settings.RegistrationURL)
	if err := page.Goto(b.settings.RegistrationURL); err != nil {
		return err
	}

	logger.Debug("opening domains tab", "link", sel.DomainsTab)
	if err := page.ClickLink(sel.DomainsTab); err != nil {
		return err
	}
	page.Pause(b.timings.AfterTab)

	logger.Info("selecting domain", "domain", b.settings.Domain)
	if err := page.CheckLabel(b.settings.Domain); err != nil {
		return err
	}
	page.Pause(b.timings.AfterDomain)

	logger.Debug("searching activities")
	if err := page.Click(sel.SearchButton); err != nil {
		return err
	}
	if err := page.WaitIdle(); err != nil {
		return err
	}
	page.Pause(b.timings.AfterSearch)

	return nil
}

// waitAndSelect polls the results until the activity could be added to the
// cart or the timeout elapses.
func (b *Bot) waitAndSelect(ctx context.Context, page Page) (bool, error) {
	logger := ctxlog.From(ctx)
	timeout := b.settings.TimeoutDuration()
	start := b.now()

	logger.Info("waiting for activity",
		"activity", b.settings.ActivityName,
		"timeout", timeout,
		"refresh", b.settings.RefreshDuration())

	for attempt := 1; b.now().Sub(start) < timeout; attempt++ {
		logger.Debug("scanning results", "attempt", attempt)

		selected, err := b.scan(ctx, page)
		if err != nil {
			return false, err
		}
		if selected {
			return true, nil
		}

		if err := b.sleep(ctx, b.settings.RefreshDuration()); err != nil {
			return false, goerr.Wrap(err, "polling interrupted", goerr.V("attempt", attempt))
		}
		if err := page.Reload(); err != nil {
			return false, err
		}
		page.Pause(b.timings.AfterReload)
	}

	return false, nil
}

// scan looks at the current results page, then at every paginated page.
func (b *Bot) scan(ctx context.Context, page Page) (bool, error) {
	logger := ctxlog.From(ctx)
	sel := b.settings.Selectors

	var seen Status
	selected, status, err := b.trySelectOnPage(ctx, page)
	if err != nil || selected {
		return selected, err
	}
	seen = moreSpecific(seen, status)

	pages, err := page.Count(sel.PageLinks)
	if err != nil {
		return false, err
	}
	logger.Debug("pagination links found", "count", pages)

	for i := 0; i < pages; i++ {
		// The pager is re-rendered after each click.
		n, err := page.Count(sel.PageLinks)
		if err != nil {
			return false, err
		}
		if i >= n {
			break
		}

		if err := page.ClickNth(sel.PageLinks, i); err != nil {
			return false, err
		}
		if err := page.WaitIdle(); err != nil {
			return false, err
		}
		page.Pause(b.timings.AfterPageChange)

		selected, status, err := b.trySelectOnPage(ctx, page)
		if err != nil || selected {
			return selected, err
		}
		seen = moreSpecific(seen, status)
	}

	if seen != 0 {
		b.lastSeen = seen
	}
	return false, nil
}

// trySelectOnPage classifies every row naming the activity and adds the
// first open one to the cart. When nothing was selected, it returns the most
// specific unavailability status seen on the page.
func (b *Bot) trySelectOnPage(ctx context.Context, page Page) (bool, Status, error) {
	logger := ctxlog.From(ctx)
	sel := b.settings.Selectors

	rows, err := page.Rows(sel.SelectButton)
	if err != nil {
		return false, 0, err
	}

	var seen Status
	matched := 0
	for _, row := range rows {
		if !b.matcher.Match(row.Text) {
			continue
		}
		matched++

		avail := classifyRow(row)
		switch avail {
		case availOpen:
			logger.Info("activity open, selecting", "row", row.Index)
			if err := page.ClickNth(sel.SelectButton, row.Index); err != nil {
				return false, 0, err
			}
			page.Pause(b.timings.AfterSelect)

			logger.Info("adding to cart")
			if err := page.Click(sel.CartButton); err != nil {
				return false, 0, err
			}
			if err := page.WaitIdle(); err != nil {
				return false, 0, err
			}
			return true, 0, nil

		case availNotYetOpen:
			logger.Debug("activity not open yet", "row", row.Index, "src", row.ButtonSrc)
			seen = moreSpecific(seen, avail.status())

		default:
			logger.Info("activity unavailable", "row", row.Index, "reason", avail.status())
			seen = moreSpecific(seen, avail.status())
		}
	}

	logger.Debug("rows scanned", "rows", len(rows), "matched", matched)
	return false, seen, nil
}

func (b *Bot) fillCredentials(ctx context.Context, page Page) error {
	logger := ctxlog.From(ctx)
	sel := b.settings.Selectors

	for i, p := range b.settings.Participants {
		logger.Info("filling credentials", "participant", p)
		if err := page.Fill(sel.DossierInputFor(i), p.Dossier); err != nil {
			return goerr.Wrap(err, "failed to fill dossier", goerr.V("participant", p.Name))
		}
		if err := page.Fill(sel.NIPInputFor(i), p.NIP); err != nil {
			return goerr.Wrap(err, "failed to fill NIP", goerr.V("participant", p.Name))
		}
		page.Pause(b.timings.BetweenFills)
	}
	return nil
}

func (b *Bot) submit(ctx context.Context, page Page) (Status, error) {
	logger := ctxlog.From(ctx)

	logger.Info("submitting registration")
	if err := page.Click(b.settings.Selectors.ValidateButton); err != nil {
		return 0, err
	}
	if err := page.WaitIdle(); err != nil {
		return 0, err
	}
	page.Pause(b.timings.AfterSubmit)

	text, err := page.BodyText()
	if err != nil {
		return 0, err
	}

	status, matched := ClassifySubmission(text, b.settings.StrictConfirmation)
	if matched == "" {
		logger.Warn("no confirmation phrase found on result page",
			"strict", b.settings.StrictConfirmation,
			"status", status)
	} else {
		logger.Debug("result page classified", "phrase", matched, "status", status)
	}
	return status, nil
}

// captureDiagnostics writes a screenshot and a cleaned HTML snapshot of the
// page. Failures are logged and yield empty paths.
func (b *Bot) captureDiagnostics(ctx context.Context, page Page) (string, string) {
	logger := ctxlog.From(ctx)
	base := filepath.Join(b.settings.ArtifactsDir, "error-"+b.now().Format("20060102-150405"))

	screenshot := base + ".png"
	if err := page.Screenshot(screenshot); err != nil {
		logger.Warn("failed to capture screenshot", "error", err)
		screenshot = ""
	} else {
		logger.Info("screenshot saved", "path", screenshot)
	}

	snapshot := base + ".html"
	if err := writeSnapshot(page, snapshot); err != nil {
		logger.Warn("failed to save page snapshot", "error", err)
		snapshot = ""
	} else {
		logger.Info("page snapshot saved", "path", snapshot)
	}

	return screenshot, snapshot
}

func writeSnapshot(page Page, path string) error {
	raw, err := page.HTML()
	if err != nil {
		return err
	}

	snap, err := browser.Snapshot(raw, browser.DefaultSnapshotLength)
	if err != nil {
		return err
	}

	doc := snap.HTML
	if snap.Title != "" {
		doc = fmt.Sprintf("<!-- %s -->\n%s", snap.Title, doc)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return goerr.Wrap(err, "failed to create artifacts directory", goerr.V("path", path))
	}
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		return goerr.Wrap(err, "failed to write snapshot", goerr.V("path", path))
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
