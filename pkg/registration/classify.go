package registration

import (
	"strings"

	"github.com/aweille/longueuil-aweille/pkg/browser"
)

// availability is what a result row says about its activity.
type availability int

const (
	availOpen availability = iota
	// availNotYetOpen means the selection button is shown but registration
	// has not started. Polling continues; the run fails if it never opens.
	availNotYetOpen
	availFull
	availCancelled
	availNeverAvailable
)

// status maps an unavailable row to the run status reported if the activity
// never opens.
func (a availability) status() Status {
	switch a {
	case availNotYetOpen:
		return StatusFailed
	case availFull:
		return StatusActivityFull
	case availCancelled:
		return StatusActivityCancelled
	case availNeverAvailable:
		return StatusRegistrationNeverAvailable
	}
	return 0
}

// classifyRow reads the availability markers of a result row. The selection
// button's image encodes most states; the row text carries COMPLET and
// ANNULÉE banners.
func classifyRow(row browser.Row) availability {
	if strings.Contains(strings.ToLower(row.ButtonAlt), "jamais disponible") ||
		strings.Contains(row.ButtonSrc, "JamaisDispo") {
		return availNeverAvailable
	}

	text := strings.ToUpper(row.Text)
	if strings.Contains(text, "COMPLET") {
		return availFull
	}
	if strings.Contains(text, "ANNULÉE") {
		return availCancelled
	}

	if strings.Contains(row.ButtonSrc, "Complet") {
		return availFull
	}
	if strings.Contains(row.ButtonSrc, "NotNow") {
		return availNotYetOpen
	}

	return availOpen
}

// specificity ranks unavailability statuses; higher is more specific.
// A row that is merely not open yet ranks below every structural reason.
var specificity = map[Status]int{
	StatusFailed:                     1,
	StatusActivityFull:               2,
	StatusActivityCancelled:          3,
	StatusRegistrationNeverAvailable: 4,
}

// moreSpecific returns whichever of a and b explains unavailability best.
// The zero Status means "nothing seen".
func moreSpecific(a, b Status) Status {
	if specificity[b] > specificity[a] {
		return b
	}
	return a
}

type phrase struct {
	text    string
	anyCase bool
}

type submissionRule struct {
	status  Status
	phrases []phrase
}

// submissionRules are checked in order against the page shown after the
// cart is validated. The first matching rule wins.
var submissionRules = []submissionRule{
	{StatusSuccess, []phrase{{text: "Place réservée"}}},
	{StatusAlreadyEnrolled, []phrase{{text: "êtes déjà inscrit"}, {text: "déjà inscrit", anyCase: true}}},
	{StatusInvalidCredentials, []phrase{{text: "Aucun dossier"}, {text: "n'a été retrouvé"}}},
	{StatusAgeCriteriaNotMet, []phrase{{text: "critère d'âge"}, {text: "ne répond pas au critère"}}},
	{StatusFailed, []phrase{{text: "Erreur"}, {text: "error", anyCase: true}}},
}

// ClassifySubmission maps the text of the post-submission page to a status
// and returns the phrase that decided it.
//
// Text matching no phrase is reported as StatusSuccess with an empty phrase,
// or as StatusFailed when strict is set.
func ClassifySubmission(text string, strict bool) (Status, string) {
	text = strings.NewReplacer("’", "'", "\u00a0", " ").Replace(text)
	lower := strings.ToLower(text)

	for _, rule := range submissionRules {
		for _, p := range rule.phrases {
			if p.anyCase {
				if strings.Contains(lower, strings.ToLower(p.text)) {
					return rule.status, p.text
				}
				continue
			}
			if strings.Contains(text, p.text) {
				return rule.status, p.text
			}
		}
	}

	if strict {
		return StatusFailed, ""
	}
	return StatusSuccess, ""
}
