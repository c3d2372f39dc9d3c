package registration

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/m-mizutani/goerr/v2"
)

// Matcher decides whether a result row names the target activity.
//
// Plain names match as case-insensitive substrings. Names containing glob
// metacharacters (*, ?, [) match as case-insensitive globs anywhere in the
// row, so "natation*enfant" finds "Natation parent-enfant (3-5 ans)".
type Matcher struct {
	needle string
	glob   glob.Glob
}

// NewMatcher compiles an activity name.
func NewMatcher(name string) (*Matcher, error) {
	needle := normalize(name)
	if needle == "" {
		return nil, goerr.New("activity name is empty")
	}

	m := &Matcher{needle: needle}
	if strings.ContainsAny(needle, "*?[") {
		g, err := glob.Compile("*" + needle + "*")
		if err != nil {
			return nil, goerr.Wrap(err, "invalid activity pattern", goerr.V("pattern", name))
		}
		m.glob = g
	}
	return m, nil
}

// Match reports whether text contains the activity name.
func (m *Matcher) Match(text string) bool {
	text = normalize(text)
	if m.glob != nil {
		return m.glob.Match(text)
	}
	return strings.Contains(text, m.needle)
}

// normalize lowercases s and collapses whitespace runs into single spaces.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
