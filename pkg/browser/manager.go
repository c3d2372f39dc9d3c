package browser

import (
	"io"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/playwright-community/playwright-go"
)

// ManagerOptions configures the Playwright runtime.
type ManagerOptions struct {
	// Install downloads the driver and Chromium before starting, if missing.
	Install bool

	// Output receives driver installation logs. Defaults to io.Discard.
	Output io.Writer
}

// Manager owns the Playwright runtime and the sessions launched from it.
type Manager struct {
	mu          sync.Mutex
	opts        ManagerOptions
	playwright  *playwright.Playwright
	sessions    []*Session
	initialized bool
}

// NewManager creates a new manager. Playwright starts on first use.
func NewManager(opts ManagerOptions) *Manager {
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	return &Manager{opts: opts}
}

// Initialize installs (if requested) and starts the Playwright driver.
// Calling it again is a no-op.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initializeLocked()
}

func (m *Manager) initializeLocked() error {
	if m.initialized {
		return nil
	}

	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   m.opts.Output,
		Stderr:   m.opts.Output,
	}

	if m.opts.Install {
		if err := playwright.Install(runOpts); err != nil {
			return goerr.Wrap(err, "failed to install playwright")
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return goerr.Wrap(err, "failed to start playwright")
	}

	m.playwright = pw
	m.initialized = true
	return nil
}

// StartSession launches Chromium and opens one page.
func (m *Manager) StartSession(opts SessionOptions) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.initializeLocked(); err != nil {
		return nil, err
	}

	if opts.Viewport == nil {
		opts.Viewport = &Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		}
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to launch browser", goerr.V("headless", opts.Headless))
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
		Locale: playwright.String("fr-CA"),
	})
	if err != nil {
		browser.Close()
		return nil, goerr.Wrap(err, "failed to create context")
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		return nil, goerr.Wrap(err, "failed to create page")
	}

	page.SetDefaultTimeout(opts.Timeout)

	session := &Session{
		Browser:    browser,
		Context:    context,
		Page:       page,
		CurrentURL: "about:blank",
	}
	m.sessions = append(m.sessions, session)
	return session, nil
}

// Shutdown closes every session and stops Playwright.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, session := range m.sessions {
		_ = session.Close() // Ignore errors, continue cleanup
	}
	m.sessions = nil

	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return goerr.Wrap(err, "failed to stop playwright")
		}
		m.initialized = false
	}

	return nil
}
