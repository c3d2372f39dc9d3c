// Package browser drives Chromium through Playwright for the registration bot.
//
// A Manager owns the Playwright runtime. Each StartSession call launches one
// browser with its own context and page, wrapped in a Session whose methods
// are the primitive operations the bot needs: navigation, clicks, form fills,
// reading result rows, screenshots and page snapshots.
//
// # Lifecycle
//
//	manager := browser.NewManager(browser.ManagerOptions{Install: true})
//	defer manager.Shutdown()
//
//	session, err := manager.StartSession(browser.SessionOptions{Headless: true})
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
//
// Session.Close releases the page, context and browser; Manager.Shutdown also
// stops the Playwright driver. Both are safe to call on every exit path.
//
// # Snapshots
//
// Snapshot keeps the part of a page that explains a failed run: the result
// grid and cart form, element ids, selection button images and form values.
// It is written next to the error screenshot. VisibleText walks the same tree
// and returns the text a user would read.
package browser
