package browsertest

import "github.com/hazyhaar/xptrail/tracker/internal/config"

// ProfilePage builds the nodes of a profile page laid out for the default
// selectors: display name, offset header, raw-data button revealing the
// log container, and the history canvas.
func ProfilePage(name, offsetText, rawLogHTML string) map[string]*Node {
	sel := config.Default().Selectors
	return map[string]*Node{
		sel.ProfileName: {Text: name},
		sel.UTCOffset:   {Text: offsetText},
		sel.RawButton:   {Text: "raw"},
		sel.RawLog:      {HTML: rawLogHTML, RevealedBy: sel.RawButton},
		sel.Canvas:      {},
	}
}
