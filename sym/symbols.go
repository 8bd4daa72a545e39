// Package sym defines the glyphs dqa prints for its commands and job markers.
// They are stable across CLI help, progress output and logs.
package sym

// Command glyphs.
const (
	AM = "≡" // am: configuration
	IX = "⨳" // run: ingest a page export and analyze it
	AX = "⋈" // issues: surface the findings of a job
	DB = "⊔" // stats: statistics kept in the store
)

// Job markers.
const (
	Pulse      = "꩜" // a round in progress
	PulseOpen  = "✿" // job starting
	PulseClose = "❀" // job finalized
)

// SymbolToCommand maps glyph strings to the command they stand for.
var SymbolToCommand = map[string]string{
	AM: "am",
	IX: "run",
	AX: "issues",
	DB: "stats",
}

// CommandToSymbol maps commands to their glyph.
var CommandToSymbol = map[string]string{
	"am":     AM,
	"run":    IX,
	"issues": AX,
	"stats":  DB,
}

// CommandDescriptions is the one-line summary printed after a command's glyph.
var CommandDescriptions = map[string]string{
	"am":     "Manage dqa configuration",
	"run":    "Run a data-quality analysis job",
	"issues": "List data-quality issues",
	"stats":  "Show job statistics",
}

// Short returns the glyph-prefixed summary of command, for cobra's Short field.
func Short(command string) string {
	desc := CommandDescriptions[command]
	if glyph, ok := CommandToSymbol[command]; ok {
		return glyph + " " + desc
	}
	return desc
}
