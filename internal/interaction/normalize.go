package interaction

import "strings"

const (
	turnRoleUser  = "user"
	turnRoleModel = "model"
)

// Normalize turns a newest-first interaction window into the chronological,
// strictly alternating history the engine accepts. Consecutive entries with
// the same role are merged into one turn, joined by a blank line. The output
// never holds two adjacent turns with the same role.
func Normalize(recent []Interaction) []Turn {
	turns := make([]Turn, 0, len(recent))

	for i := len(recent) - 1; i >= 0; i-- {
		rec := recent[i]
		content := strings.TrimSpace(rec.Content)
		if content == "" {
			continue
		}

		role := turnRoleUser
		if rec.Role == RoleAgent {
			role = turnRoleModel
		}

		if n := len(turns); n > 0 && turns[n-1].Role == role {
			turns[n-1].Content += "\n\n" + content
			continue
		}
		turns = append(turns, Turn{Role: role, Content: content})
	}

	return turns
}
