package registration

import (
	"encoding/json"
	"testing"

	"github.com/aweille/longueuil-aweille/pkg/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySubmission(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		strict bool
		want   Status
		phrase string
	}{
		{"reserved", "Place réservée", false, StatusSuccess, "Place réservée"},
		{"reserved beats error word", "Place réservée. Aucune erreur.", false, StatusSuccess, "Place réservée"},
		{"already enrolled", "Vous êtes déjà inscrit", false, StatusAlreadyEnrolled, "êtes déjà inscrit"},
		{"already enrolled any case", "DÉJÀ INSCRIT", false, StatusAlreadyEnrolled, "déjà inscrit"},
		{"no dossier", "Aucun dossier trouvé", false, StatusInvalidCredentials, "Aucun dossier"},
		{"typographic apostrophe", "Ce dossier n’a été retrouvé", false, StatusInvalidCredentials, "n'a été retrouvé"},
		{"age", "Critère: ne répond pas au critère", false, StatusAgeCriteriaNotMet, "ne répond pas au critère"},
		{"age apostrophe", "Hors critère d’âge", false, StatusAgeCriteriaNotMet, "critère d'âge"},
		{"error", "Une Erreur est survenue", false, StatusFailed, "Erreur"},
		{"english error", "Server ERROR 500", false, StatusFailed, "error"},
		{"unknown", "Bienvenue", false, StatusSuccess, ""},
		{"unknown strict", "Bienvenue", true, StatusFailed, ""},
		{"reserved strict", "Place réservée", true, StatusSuccess, "Place réservée"},
		{"non-breaking space", "Place\u00a0réservée", false, StatusSuccess, "Place réservée"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, phrase := ClassifySubmission(tt.text, tt.strict)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.phrase, phrase)
		})
	}
}

func TestClassifyRow(t *testing.T) {
	tests := []struct {
		name string
		row  browser.Row
		want availability
	}{
		{"open", browser.Row{Text: "Natation", ButtonSrc: "Selecteur.gif"}, availOpen},
		{"never by alt", browser.Row{ButtonAlt: "Inscription en ligne JAMAIS DISPONIBLE"}, availNeverAvailable},
		{"never beats full text", browser.Row{Text: "COMPLET", ButtonSrc: "JamaisDispo.gif"}, availNeverAvailable},
		{"full text", browser.Row{Text: "Natation complet"}, availFull},
		{"cancelled text", browser.Row{Text: "Natation ANNULÉE"}, availCancelled},
		{"full src", browser.Row{ButtonSrc: "SelecteurComplet.gif"}, availFull},
		{"not yet open src", browser.Row{ButtonSrc: "SelecteurNotNow.gif"}, availNotYetOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyRow(tt.row))
		})
	}
}

func TestMoreSpecific(t *testing.T) {
	assert.Equal(t, StatusActivityFull, moreSpecific(0, StatusActivityFull))
	assert.Equal(t, StatusActivityCancelled, moreSpecific(StatusActivityFull, StatusActivityCancelled))
	assert.Equal(t, StatusRegistrationNeverAvailable, moreSpecific(StatusRegistrationNeverAvailable, StatusActivityFull))
	assert.Equal(t, StatusActivityCancelled, moreSpecific(StatusActivityCancelled, 0))
	assert.Equal(t, StatusFailed, moreSpecific(0, StatusFailed))
	assert.Equal(t, StatusActivityFull, moreSpecific(StatusFailed, StatusActivityFull))
	assert.Equal(t, StatusActivityFull, moreSpecific(StatusActivityFull, StatusFailed))
}

func TestAvailabilityStatus(t *testing.T) {
	assert.Equal(t, StatusFailed, availNotYetOpen.status())
	assert.Equal(t, StatusActivityFull, availFull.status())
	assert.Equal(t, Status(0), availOpen.status())
}

func TestMatcher(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		text    string
		want    bool
	}{
		{"substring", "Natation parent", "Natation parent-enfant (3-5 ans)", true},
		{"case insensitive", "natation PARENT", "Natation parent-enfant", true},
		{"whitespace collapsed", "Natation  parent", "Natation\n\tparent-enfant", true},
		{"no match", "Aquaforme", "Natation parent-enfant", false},
		{"glob", "natation*enfant", "Samedi: NATATION PARENT-ENFANT 9h", true},
		{"glob no match", "natation*adulte", "Natation parent-enfant", false},
		{"single char glob", "aqua?orme", "Aquaforme 50+", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMatcher(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Match(tt.text))
		})
	}

	_, err := NewMatcher(" \t")
	assert.Error(t, err)

	_, err = NewMatcher("natation[")
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "registration_never_available", StatusRegistrationNeverAvailable.String())
	assert.Equal(t, "unknown", Status(0).String())

	assert.True(t, StatusSuccess.Succeeded())
	assert.True(t, StatusAlreadyEnrolled.Succeeded())
	for _, s := range []Status{StatusInvalidCredentials, StatusAgeCriteriaNotMet, StatusActivityFull,
		StatusActivityCancelled, StatusRegistrationNeverAvailable, StatusFailed, StatusTimeout} {
		assert.False(t, s.Succeeded(), s.String())
	}

	data, err := json.Marshal(map[string]Status{"status": StatusTimeout})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"timeout"}`, string(data))
}
