package browser

import (
	"github.com/playwright-community/playwright-go"
)

// Session represents an active browser with its associated resources.
type Session struct {
	// Browser is the Playwright browser instance
	Browser playwright.Browser

	// Context is the browser context (isolated session)
	Context playwright.BrowserContext

	// Page is the single page the bot drives
	Page playwright.Page

	// CurrentURL is the URL of the current page
	CurrentURL string

	closed bool
}

// SessionOptions configures a new browser session.
type SessionOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// Timeout sets the default timeout for element operations (in milliseconds)
	Timeout float64
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// Row is a result-grid row holding a selection button.
type Row struct {
	// Index is the position of the row's button among all buttons on the page
	Index int

	// Text is the row's visible text
	Text string

	// ButtonSrc and ButtonAlt are the selection button's image attributes,
	// which the site uses to encode availability.
	ButtonSrc string
	ButtonAlt string
}

// Default values for various operations
const (
	DefaultTimeout        = 30000.0 // 30 seconds in milliseconds
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultSnapshotLength = 200000
)
