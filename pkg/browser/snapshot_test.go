package browser

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultGridPage = `<html>
<head>
	<title>Loisir Longueuil - Résultats</title>
	<script>function __doPostBack(t, a) { theForm.submit(); }</script>
	<link rel="stylesheet" href="/style.css">
</head>
<body>
	<form id="Form1" action="./Recherche.aspx" method="post">
		<input type="hidden" name="__VIEWSTATE" value="dDwtMTA4">
		<table id="ctlGrilleResultats" class="grille">
			<tr class="ligne">
				<td>Natation parent-enfant (3-5 ans)</td>
				<td>Samedi 9h00</td>
				<td><input type="image" id="ctlSelect0" name="ctlSelect0" src="images/SelecteurNotNow.gif" alt="Inscription pas encore disponible" onclick="return false;"></td>
			</tr>
			<tr class="ligne">
				<td>Aquaforme 50+ <span class="banniere">COMPLET</span></td>
				<td><input type="image" id="ctlSelect1" src="images/SelecteurComplet.gif" alt="Activité complète"></td>
			</tr>
		</table>
		<!-- grille générée -->
	</form>
</body>
</html>`

const cartPage = `<html>
<head><title>Panier</title></head>
<body>
	<form id="Form1" method="post">
		<div id="ctlPanierActivites">
			<label for="ctlDossier">Numéro de dossier</label>
			<input type="text" id="ctlDossier" name="ctlDossier" value="01234567890123" placeholder="14 chiffres">
			<input type="password" id="ctlNip" name="ctlNip" value="5145551234">
			<select name="ctlSession" class="liste">
				<option value="H26">Hiver 2026</option>
				<option value="P26" selected>Printemps 2026</option>
			</select>
			<input type="checkbox" id="ctlConditions" name="ctlConditions" checked>
			<a href="javascript:__doPostBack('ctlValider','')" id="ctlValider">Valider le panier</a>
		</div>
		<div id="ctlMessage" style="color:red">Aucun dossier ne correspond</div>
	</form>
</body>
</html>`

func TestSnapshotResultGrid(t *testing.T) {
	snap, err := Snapshot(resultGridPage, 10000)
	require.NoError(t, err)

	assert.Equal(t, "Loisir Longueuil - Résultats", snap.Title)
	assert.False(t, snap.Truncated)

	for _, want := range []string{
		`<table id="ctlGrilleResultats">`,
		`<input type="image" id="ctlSelect0" name="ctlSelect0" src="images/SelecteurNotNow.gif" alt="Inscription pas encore disponible">`,
		`src="images/SelecteurComplet.gif" alt="Activité complète"`,
		"Natation parent-enfant (3-5 ans)",
		"COMPLET",
	} {
		assert.Contains(t, snap.HTML, want)
	}

	for _, unwanted := range []string{
		"__doPostBack", "<script", "<title>", "style.css",
		"grille générée", `class=`, "onclick", `action=`,
	} {
		assert.NotContains(t, snap.HTML, unwanted)
	}
}

func TestSnapshotCartForm(t *testing.T) {
	snap, err := Snapshot(cartPage, 10000)
	require.NoError(t, err)

	for _, want := range []string{
		`<label for="ctlDossier">`,
		`<input type="text" id="ctlDossier" name="ctlDossier" value="01234567890123">`,
		`<input type="password" id="ctlNip" name="ctlNip" value="***">`,
		`<select name="ctlSession">`,
		`<option value="P26" selected="">`,
		`<input type="checkbox" id="ctlConditions" name="ctlConditions" checked="">`,
		`<a id="ctlValider">Valider le panier</a>`,
		`<div id="ctlMessage">`,
		"Aucun dossier ne correspond",
	} {
		assert.Contains(t, snap.HTML, want)
	}

	assert.NotContains(t, snap.HTML, "5145551234")
	assert.NotContains(t, snap.HTML, "placeholder")
	assert.NotContains(t, snap.HTML, "color:red")
	assert.NotContains(t, snap.HTML, "javascript:")
}

func TestSnapshotIndentsBlocks(t *testing.T) {
	snap, err := Snapshot(`<table id="g"><tr><td>Natation</td></tr></table>`, 10000)
	require.NoError(t, err)
	assert.Contains(t, snap.HTML, "\n    <table id=\"g\">\n      <tbody>\n        <tr>")
	assert.Contains(t, snap.HTML, "<td>Natation\n          </td>")
}

func TestSnapshotTruncates(t *testing.T) {
	page := "<p>" + strings.Repeat("Natation parent-enfant ", 200) + "</p>"

	snap, err := Snapshot(page, 100)
	require.NoError(t, err)
	assert.True(t, snap.Truncated)
	assert.True(t, strings.HasSuffix(snap.HTML, "..."))
	assert.Less(t, len(snap.HTML), 150)
}

func TestSnapshotTruncatesOnRuneBoundary(t *testing.T) {
	// <html><body><p> uses 15 of the budget; each é is two bytes.
	snap, err := Snapshot("<p>éééé</p>", 18)
	require.NoError(t, err)
	assert.True(t, snap.Truncated)
	assert.True(t, strings.HasSuffix(snap.HTML, "<p>é..."), snap.HTML)

	for limit := 15; limit <= 24; limit++ {
		snap, err := Snapshot("<p>Activité réservée à l'aréna</p>", limit)
		require.NoError(t, err)
		assert.True(t, utf8.ValidString(snap.HTML), "limit %d: %q", limit, snap.HTML)
	}
}

func TestSnapshotDefaultLength(t *testing.T) {
	snap, err := Snapshot("<html><body><p>Bonjour</p></body></html>", 0)
	require.NoError(t, err)
	assert.False(t, snap.Truncated)
}

func TestVisibleText(t *testing.T) {
	input := `<html>
		<head><title>Panier</title><style>.x{}</style></head>
		<body>
			<script>var msg = "Erreur";</script>
			<div id="msg"><b>Place</b> réservée</div>
			<p>Dossier:
				0123</p>
			<noscript>Activez JavaScript</noscript>
		</body></html>`

	got, err := VisibleText(input)
	require.NoError(t, err)
	assert.Equal(t, "Place réservée\nDossier: 0123", got)
}

func TestVisibleTextResultGrid(t *testing.T) {
	got, err := VisibleText(resultGridPage)
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		"Natation parent-enfant (3-5 ans)",
		"Samedi 9h00",
		"Aquaforme 50+ COMPLET",
	}, "\n"), got)
}

func TestVisibleTextLineBreaks(t *testing.T) {
	got, err := VisibleText("<body>Vous êtes<br>déjà inscrit</body>")
	require.NoError(t, err)
	assert.Equal(t, "Vous êtes\ndéjà inscrit", got)
}
