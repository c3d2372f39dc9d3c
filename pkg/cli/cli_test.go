package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aweille/longueuil-aweille/pkg/browser"
	"github.com/aweille/longueuil-aweille/pkg/config"
	"github.com/aweille/longueuil-aweille/pkg/registration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
headless: false
timeout: 60
activity_name: Natation parent-enfant
participants:
  - name: Alice
    dossier: "01234567890123"
    nip: "5145551234"
`

// stubPage shows one open row for the activity and a fixed result page.
type stubPage struct {
	body   string
	closed bool
}

func (p *stubPage) Goto(string) error           { return nil }
func (p *stubPage) Reload() error               { return nil }
func (p *stubPage) WaitIdle() error             { return nil }
func (p *stubPage) Pause(time.Duration)         {}
func (p *stubPage) ClickLink(string) error      { return nil }
func (p *stubPage) CheckLabel(string) error     { return nil }
func (p *stubPage) Click(string) error          { return nil }
func (p *stubPage) ClickNth(string, int) error  { return nil }
func (p *stubPage) Fill(string, string) error   { return nil }
func (p *stubPage) Count(string) (int, error)   { return 0, nil }
func (p *stubPage) BodyText() (string, error)   { return p.body, nil }
func (p *stubPage) HTML() (string, error)       { return "<html></html>", nil }
func (p *stubPage) Screenshot(string) error     { return nil }
func (p *stubPage) Close() error                { p.closed = true; return nil }
func (p *stubPage) Rows(string) ([]browser.Row, error) {
	return []browser.Row{{Index: 0, Text: "Natation parent-enfant", ButtonSrc: "Selecteur.gif"}}, nil
}

type harness struct {
	page       *stubPage
	launched   bool
	headless   bool
	cleanedUp  bool
	out        bytes.Buffer
	errOut     bytes.Buffer
	launchErr  error
	configPath string
	logDir     string
}

func newHarness(t *testing.T, content string) *harness {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return &harness{page: &stubPage{body: "Place réservée"}, configPath: path}
}

func (h *harness) run(t *testing.T, args ...string) int {
	t.Helper()

	factory := func(ctx context.Context, settings *config.Settings) (registration.Launcher, func(), error) {
		if h.launchErr != nil {
			return nil, nil, h.launchErr
		}
		launcher := registration.LauncherFunc(func(_ context.Context, headless bool) (registration.Page, error) {
			h.launched = true
			h.headless = headless
			return h.page, nil
		})
		return launcher, func() { h.cleanedUp = true }, nil
	}

	loader := &config.Loader{
		DotEnvPath: filepath.Join(t.TempDir(), ".env"),
		LookupEnv:  func(string) (string, bool) { return "", false },
	}

	logOpt := WithoutLogFile()
	if h.logDir != "" {
		logOpt = WithLogDir(h.logDir)
	}

	argv := append([]string{"longueuil-aweille", "-c", h.configPath}, args...)
	return Run(context.Background(), argv,
		WithOutput(&h.out, &h.errOut),
		WithLauncher(factory),
		WithLoader(loader),
		logOpt,
	)
}

func TestRunSuccess(t *testing.T) {
	h := newHarness(t, testConfig)

	code := h.run(t)
	assert.Equal(t, 0, code)
	assert.True(t, h.launched)
	assert.False(t, h.headless)
	assert.True(t, h.page.closed)
	assert.True(t, h.cleanedUp)

	out := h.out.String()
	assert.Contains(t, out, "Loading config from "+h.configPath)
	assert.Contains(t, out, "Target Activity")
	assert.Contains(t, out, "Natation parent-enfant")
	assert.Contains(t, out, "• Alice")
	assert.Contains(t, out, "Registration completed")
	assert.Contains(t, out, "Run ID: ")
	assert.Contains(t, h.errOut.String(), "Alice")
	assert.NotContains(t, h.errOut.String(), "5145551234")
	assert.NotContains(t, h.errOut.String(), "01234567890123")
}

func TestRunLogFileHasNoCredentials(t *testing.T) {
	h := newHarness(t, testConfig)
	h.logDir = t.TempDir()

	require.Equal(t, 0, h.run(t, "--log-level", "debug"))

	entries, err := os.ReadDir(h.logDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	path := filepath.Join(h.logDir, entries[0].Name())
	assert.Contains(t, h.out.String(), "Log file: "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "configuration loaded")
	assert.Contains(t, content, "filling credentials")
	assert.Contains(t, content, "Alice")
	assert.NotContains(t, content, "5145551234")
	assert.NotContains(t, content, "01234567890123")
}

func TestRunAlreadyEnrolledExitsZero(t *testing.T) {
	h := newHarness(t, testConfig)
	h.page.body = "Vous êtes déjà inscrit"

	assert.Equal(t, 0, h.run(t))
	assert.Contains(t, h.out.String(), "Already enrolled")
}

func TestRunFailureStatusExitsOne(t *testing.T) {
	h := newHarness(t, testConfig)
	h.page.body = "Aucun dossier ne correspond"

	assert.Equal(t, 1, h.run(t))
	assert.Contains(t, h.out.String(), "Invalid credentials")
}

func TestRunTimeoutFlag(t *testing.T) {
	h := newHarness(t, testConfig)

	assert.Equal(t, 1, h.run(t, "-t", "0"))
	assert.True(t, h.launched)
	assert.Contains(t, h.out.String(), "timed out")
}

func TestRunHeadlessFlags(t *testing.T) {
	h := newHarness(t, testConfig)
	require.Equal(t, 0, h.run(t, "--headless"))
	assert.True(t, h.headless)

	h = newHarness(t, strings.Replace(testConfig, "headless: false", "headless: true", 1))
	require.Equal(t, 0, h.run(t, "--no-headless"))
	assert.False(t, h.headless)

	h = newHarness(t, strings.Replace(testConfig, "headless: false", "headless: true", 1))
	require.Equal(t, 0, h.run(t))
	assert.True(t, h.headless, "config value kept without a flag")

	h = newHarness(t, testConfig)
	assert.Equal(t, 1, h.run(t, "--headless", "--no-headless"))
	assert.False(t, h.launched)
}

func TestRunWithoutParticipants(t *testing.T) {
	h := newHarness(t, "activity_name: Aquaforme\n")

	assert.Equal(t, 1, h.run(t))
	assert.False(t, h.launched)
	assert.Contains(t, h.errOut.String(), "No participants configured")
}

func TestRunMissingConfig(t *testing.T) {
	h := newHarness(t, testConfig)
	h.configPath = filepath.Join(t.TempDir(), "missing.yaml")

	assert.Equal(t, 1, h.run(t))
	assert.False(t, h.launched)
	assert.Contains(t, h.errOut.String(), "config file not found")
}

func TestRunLauncherError(t *testing.T) {
	h := newHarness(t, testConfig)
	h.launchErr = errors.New("playwright driver missing")

	assert.Equal(t, 1, h.run(t))
	assert.Contains(t, h.out.String(), "playwright driver missing")
}

func TestRunInvalidLogFormat(t *testing.T) {
	h := newHarness(t, testConfig)
	assert.Equal(t, 1, h.run(t, "--log-format", "xml"))
	assert.False(t, h.launched)
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	code := Run(context.Background(), []string{"longueuil-aweille", "--version"}, WithOutput(&out, &out))
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), Version)
}
