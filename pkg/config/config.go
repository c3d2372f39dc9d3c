package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultRegistrationURL = "https://loisir.longueuil.quebec/inscription/Pages/Anonyme/Resultat/Page.fr.aspx?m=1"
	DefaultDomain          = "Activités aquatiques (Vieux-Longueuil)"
	DefaultTimeout         = 600 // seconds
	DefaultRefreshInterval = 5.0 // seconds
)

// Participant is one person to register. Name is only used for display.
type Participant struct {
	Name    string `yaml:"name" json:"name"`
	Dossier string `yaml:"dossier" json:"dossier"`
	NIP     string `yaml:"nip" json:"nip"`
}

// LogValue hides credentials from structured logs.
func (p Participant) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", p.Name),
		slog.String("dossier", mask(p.Dossier)),
	)
}

// Selectors locates the elements of the registration site.
// Input templates take the zero-based participant index.
type Selectors struct {
	DomainsTab     string `yaml:"domains_tab"`
	SearchButton   string `yaml:"search_button"`
	PageLinks      string `yaml:"page_links"`
	SelectButton   string `yaml:"select_button"`
	CartButton     string `yaml:"cart_button"`
	DossierInput   string `yaml:"dossier_input"`
	NIPInput       string `yaml:"nip_input"`
	ValidateButton string `yaml:"validate_button"`
}

// DefaultSelectors returns the locators of the Longueuil loisir site.
func DefaultSelectors() Selectors {
	return Selectors{
		DomainsTab:     "Domaines",
		SearchButton:   "#ctlBlocRecherche_ctlRechercher",
		PageLinks:      "a[id*='ctlLienPage']",
		SelectButton:   "input[type='image'][id*='Selecteur']",
		CartButton:     "#ctlGrille_ctlMenuActionsBas_ctlAppelPanierIdent",
		DossierInput:   "#ctlPanierActivites_ctlActivites_ctl%02d_ctlRow_ctlListeIdentification_ctlListe_itm0_ctlBloc_ctlDossier",
		NIPInput:       "#ctlPanierActivites_ctlActivites_ctl%02d_ctlRow_ctlListeIdentification_ctlListe_itm0_ctlBloc_ctlNip",
		ValidateButton: "#ctlMenuActionBas_ctlAppelPanierConfirm",
	}
}

// DossierInputFor returns the dossier field selector of the i-th participant.
func (s Selectors) DossierInputFor(i int) string {
	return fmt.Sprintf(s.DossierInput, i)
}

// NIPInputFor returns the NIP field selector of the i-th participant.
func (s Selectors) NIPInputFor(i int) string {
	return fmt.Sprintf(s.NIPInput, i)
}

// Settings holds everything one registration run needs.
type Settings struct {
	RegistrationURL string        `yaml:"registration_url"`
	Headless        bool          `yaml:"headless"`
	Timeout         int           `yaml:"timeout"`          // seconds
	RefreshInterval float64       `yaml:"refresh_interval"` // seconds
	Domain          string        `yaml:"domain"`
	ActivityName    string        `yaml:"activity_name"`
	Participants    []Participant `yaml:"participants"`

	// FamilyMembers is the older name of Participants, still accepted in files.
	FamilyMembers []Participant `yaml:"family_members"`

	// StrictConfirmation treats a post-submit page with no known phrase as a
	// failure instead of a success.
	StrictConfirmation bool `yaml:"strict_confirmation"`

	// InstallBrowsers downloads the Playwright driver and Chromium on start.
	InstallBrowsers bool `yaml:"install_browsers"`

	// ArtifactsDir receives failure screenshots and page snapshots.
	ArtifactsDir string `yaml:"artifacts_dir"`

	LogLevel  string    `yaml:"log_level"`
	Selectors Selectors `yaml:"selectors"`
}

// Default returns settings with every default applied and no participants.
func Default() *Settings {
	return &Settings{
		RegistrationURL: DefaultRegistrationURL,
		Headless:        false,
		Timeout:         DefaultTimeout,
		RefreshInterval: DefaultRefreshInterval,
		Domain:          DefaultDomain,
		InstallBrowsers: true,
		ArtifactsDir:    ".",
		LogLevel:        "info",
		Selectors:       DefaultSelectors(),
	}
}

// TimeoutDuration returns the polling budget.
func (s *Settings) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// RefreshDuration returns the pause between two availability scans.
func (s *Settings) RefreshDuration() time.Duration {
	return time.Duration(s.RefreshInterval * float64(time.Second))
}

// Validate checks the settings. An empty participant list is accepted here;
// the CLI refuses to run without participants.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.RegistrationURL) == "" {
		return goerr.New("registration_url is required")
	}
	if strings.TrimSpace(s.ActivityName) == "" {
		return goerr.New("activity_name is required")
	}
	if strings.TrimSpace(s.Domain) == "" {
		return goerr.New("domain is required")
	}
	if s.Timeout < 0 {
		return goerr.New("timeout cannot be negative", goerr.V("timeout", s.Timeout))
	}
	if s.RefreshInterval <= 0 {
		return goerr.New("refresh_interval must be positive", goerr.V("refresh_interval", s.RefreshInterval))
	}

	for i, p := range s.Participants {
		var missing []string
		if strings.TrimSpace(p.Name) == "" {
			missing = append(missing, "name")
		}
		if strings.TrimSpace(p.Dossier) == "" {
			missing = append(missing, "dossier")
		}
		if strings.TrimSpace(p.NIP) == "" {
			missing = append(missing, "nip")
		}
		if len(missing) > 0 {
			return goerr.New("participant is missing required fields",
				goerr.V("index", i),
				goerr.V("fields", strings.Join(missing, ", ")))
		}
	}

	for _, tmpl := range []string{s.Selectors.DossierInput, s.Selectors.NIPInput} {
		if !strings.Contains(tmpl, "%") {
			return goerr.New("input selector template needs a participant index verb", goerr.V("selector", tmpl))
		}
	}

	return nil
}

func mask(v string) string {
	if len(v) <= 4 {
		return strings.Repeat("*", len(v))
	}
	return strings.Repeat("*", len(v)-4) + v[len(v)-4:]
}
