package bracket

import "fmt"

// RoundName names a bracket round by its distance from the final.
func RoundName(round, totalRounds int) string {
	switch totalRounds - round {
	case 0:
		return "Finals"
	case 1:
		return "Semifinals"
	case 2:
		return "Quarterfinals"
	default:
		return fmt.Sprintf("Round %d", round)
	}
}
