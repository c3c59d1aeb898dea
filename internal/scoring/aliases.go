package scoring

import (
	"strings"

	"github.com/fortuna/propscout/internal/names"
)

// teamAliases maps alternate franchise codes to the codes the DVP table uses
var teamAliases = map[string]string{
	"OKC": "OKL",
	"BKN": "BRO",
}

// positionGroups maps hybrid positions to the DVP positions they are graded against.
// SF-PF/PF-SF grade against the SG/SF rows, not SF/PF. Unchanged pending product sign-off.
var positionGroups = map[string][]string{
	"PG-SG": {"PG", "SG"},
	"SG-PG": {"PG", "SG"},
	"SG-SF": {"SG", "SF"},
	"SF-SG": {"SG", "SF"},
	"SF-PF": {"SG", "SF"},
	"PF-SF": {"SG", "SF"},
	"PF-C":  {"C", "PF"},
	"C-PF":  {"C", "PF"},
}

// playerAliases maps projections-feed names to position-table names
var playerAliases = map[string]string{
	"Robert Williams III": "Robert Williams",
}

// NormalizeTeam returns the canonical DVP code for a team code
func NormalizeTeam(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if canonical, ok := teamAliases[code]; ok {
		return canonical
	}
	return code
}

// PositionGroup returns the DVP positions a player position is graded against
func PositionGroup(position string) []string {
	position = strings.ToUpper(strings.TrimSpace(position))
	if group, ok := positionGroups[position]; ok {
		return group
	}
	return []string{position}
}

// PositionTableName returns the name a player is listed under in the position table.
// Table names are stored folded (no diacritics).
func PositionTableName(name string) string {
	if alias, ok := playerAliases[name]; ok {
		return alias
	}
	return names.Fold(name)
}
