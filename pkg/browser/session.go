package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/playwright-community/playwright-go"
)

// Goto navigates to url and waits for the network to go idle.
func (s *Session) Goto(url string) error {
	waitUntil := playwright.WaitUntilState("networkidle")
	if _, err := s.Page.Goto(url, playwright.PageGotoOptions{WaitUntil: &waitUntil}); err != nil {
		return goerr.Wrap(err, "navigation failed", goerr.V("url", url))
	}
	s.CurrentURL = s.Page.URL()
	return nil
}

// Reload reloads the current page and waits for the network to go idle.
func (s *Session) Reload() error {
	waitUntil := playwright.WaitUntilState("networkidle")
	if _, err := s.Page.Reload(playwright.PageReloadOptions{WaitUntil: &waitUntil}); err != nil {
		return goerr.Wrap(err, "reload failed", goerr.V("url", s.CurrentURL))
	}
	s.CurrentURL = s.Page.URL()
	return nil
}

// WaitIdle waits until there are no network connections for at least 500 ms.
func (s *Session) WaitIdle() error {
	state := playwright.LoadState("networkidle")
	if err := s.Page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{State: &state}); err != nil {
		return goerr.Wrap(err, "wait for network idle failed")
	}
	s.CurrentURL = s.Page.URL()
	return nil
}

// Pause waits a fixed amount of time inside the page's event loop.
func (s *Session) Pause(d time.Duration) {
	if d <= 0 {
		return
	}
	s.Page.WaitForTimeout(float64(d.Milliseconds()))
}

// ClickLink clicks the first link whose text contains name.
func (s *Session) ClickLink(name string) error {
	selector := fmt.Sprintf("a:has-text(%q)", name)
	if err := s.Page.Locator(selector).First().Click(); err != nil {
		return goerr.Wrap(err, "click link failed", goerr.V("link", name))
	}
	s.CurrentURL = s.Page.URL()
	return nil
}

// CheckLabel clicks the checkbox preceding the first element whose text
// contains label.
func (s *Session) CheckLabel(label string) error {
	xpath := fmt.Sprintf("xpath=//*[contains(text(), %s)]/preceding::input[@type='checkbox'][1]", xpathLiteral(label))
	if err := s.Page.Locator(xpath).First().Click(); err != nil {
		return goerr.Wrap(err, "checkbox click failed", goerr.V("label", label))
	}
	return nil
}

// Click clicks the first element matching the selector.
func (s *Session) Click(selector string) error {
	if err := s.Page.Locator(selector).First().Click(); err != nil {
		return goerr.Wrap(err, "click failed", goerr.V("selector", selector))
	}
	s.CurrentURL = s.Page.URL()
	return nil
}

// ClickNth clicks the n-th (zero-based) element matching the selector.
func (s *Session) ClickNth(selector string, n int) error {
	if err := s.Page.Locator(selector).Nth(n).Click(); err != nil {
		return goerr.Wrap(err, "click failed", goerr.V("selector", selector), goerr.V("index", n))
	}
	s.CurrentURL = s.Page.URL()
	return nil
}

// Fill fills an input element with the specified value.
func (s *Session) Fill(selector, value string) error {
	if err := s.Page.Locator(selector).Fill(value); err != nil {
		return goerr.Wrap(err, "fill failed", goerr.V("selector", selector))
	}
	return nil
}

// Count returns how many elements match the selector.
func (s *Session) Count(selector string) (int, error) {
	n, err := s.Page.Locator(selector).Count()
	if err != nil {
		return 0, goerr.Wrap(err, "count failed", goerr.V("selector", selector))
	}
	return n, nil
}

// rowWithTextXPath selects the nearest table row around a button that has a
// cell with text. Rows of a layout table nested inside a grid cell hold
// only the button, so the grid row carrying the activity name is used.
const rowWithTextXPath = "xpath=ancestor::tr[td[normalize-space()]][1]"

// Rows returns, for every element matching buttonSelector, the text of the
// nearest enclosing table row with text, together with the button's src
// and alt.
func (s *Session) Rows(buttonSelector string) ([]Row, error) {
	buttons := s.Page.Locator(buttonSelector)
	n, err := buttons.Count()
	if err != nil {
		return nil, goerr.Wrap(err, "count failed", goerr.V("selector", buttonSelector))
	}

	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		button := buttons.Nth(i)

		text, err := button.Locator(rowWithTextXPath).InnerText()
		if err != nil {
			return nil, goerr.Wrap(err, "row text extraction failed", goerr.V("index", i))
		}

		// Missing attributes come back empty without an error.
		src, err := button.GetAttribute("src")
		if err != nil {
			return nil, goerr.Wrap(err, "button src extraction failed", goerr.V("index", i))
		}
		alt, err := button.GetAttribute("alt")
		if err != nil {
			return nil, goerr.Wrap(err, "button alt extraction failed", goerr.V("index", i))
		}

		rows = append(rows, Row{
			Index:     i,
			Text:      text,
			ButtonSrc: src,
			ButtonAlt: alt,
		})
	}

	return rows, nil
}

// BodyText returns the rendered text of the page body. If the body cannot be
// read as rendered text, the text is recovered from the page markup.
func (s *Session) BodyText() (string, error) {
	text, err := s.Page.Locator("body").InnerText()
	if err == nil {
		return text, nil
	}

	content, contentErr := s.Page.Content()
	if contentErr != nil {
		return "", goerr.Wrap(err, "text extraction failed")
	}
	return VisibleText(content)
}

// HTML returns the full page markup.
func (s *Session) HTML() (string, error) {
	content, err := s.Page.Content()
	if err != nil {
		return "", goerr.Wrap(err, "content extraction failed")
	}
	return content, nil
}

// Screenshot writes a full-page PNG to path.
func (s *Session) Screenshot(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return goerr.Wrap(err, "failed to create screenshot directory", goerr.V("path", path))
	}
	_, err := s.Page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return goerr.Wrap(err, "screenshot failed", goerr.V("path", path))
	}
	return nil
}

// Close releases the page, context and browser. Safe to call multiple times.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []string
	if err := s.Page.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := s.Context.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := s.Browser.Close(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return goerr.New("errors closing session", goerr.V("errors", strings.Join(errs, "; ")))
	}
	return nil
}

// xpathLiteral quotes s as an XPath 1.0 string literal.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if part != "" {
			quoted = append(quoted, "'"+part+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
