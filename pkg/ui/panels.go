package ui

import (
	"fmt"
	"strings"

	"github.com/aweille/longueuil-aweille/pkg/registration"
	"github.com/charmbracelet/lipgloss"
)

// Target describes what a run is about to register for.
type Target struct {
	Domain       string
	Activity     string
	Participants []string
}

// TargetPanel renders the activity and participant summary shown before a run.
func TargetPanel(t Target) string {
	rows := [][2]string{
		{"Domain:", t.Domain},
		{"Activity:", t.Activity},
		{"Participants:", fmt.Sprintf("%d", len(t.Participants))},
	}

	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r[0]))
	}

	lines := []string{titleStyle.Render("Target Activity"), ""}
	for _, r := range rows {
		label := labelStyle.Width(width).Render(r[0])
		lines = append(lines, label+"  "+r[1])
	}

	panel := panelStyle.BorderForeground(cyan).Render(strings.Join(lines, "\n"))

	var b strings.Builder
	b.WriteString(panel)
	for _, name := range t.Participants {
		b.WriteString("\n  ")
		b.WriteString(bulletStyle.Render("•"))
		b.WriteString(" ")
		b.WriteString(name)
	}
	return b.String()
}

type statusView struct {
	message string
	color   lipgloss.Color
}

var statusViews = map[registration.Status]statusView{
	registration.StatusSuccess:                    {"Yé! Registration completed!", mintGreen},
	registration.StatusAlreadyEnrolled:            {"Already enrolled in this activity", amber},
	registration.StatusInvalidCredentials:         {"Invalid credentials, check dossier and NIP", salmon},
	registration.StatusAgeCriteriaNotMet:          {"A participant does not meet the age criteria", salmon},
	registration.StatusActivityFull:               {"Activity is full", salmon},
	registration.StatusActivityCancelled:          {"Activity was cancelled", salmon},
	registration.StatusRegistrationNeverAvailable: {"Online registration is never available for this activity", salmon},
	registration.StatusTimeout:                    {"Registration timed out", salmon},
}

// StatusPanel renders the final outcome of a run.
func StatusPanel(out registration.Outcome) string {
	view, ok := statusViews[out.Status]
	if !ok {
		view = statusView{"Registration failed", salmon}
	}

	lines := []string{lipgloss.NewStyle().Foreground(view.color).Bold(true).Render(view.message)}
	if out.Err != nil {
		lines = append(lines, hintStyle.Render(out.Err.Error()))
	}
	if out.Screenshot != "" {
		lines = append(lines, hintStyle.Render("Screenshot: "+out.Screenshot))
	}
	if out.Snapshot != "" {
		lines = append(lines, hintStyle.Render("Page snapshot: "+out.Snapshot))
	}

	return panelStyle.BorderForeground(view.color).Render(strings.Join(lines, "\n"))
}
