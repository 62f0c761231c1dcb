package bot

import (
	"fmt"
	"strings"

	"github.com/FeFenix/Pointify/core/telegram/format"
	"github.com/FeFenix/Pointify/points"
)

var topMedals = []string{"🥇", "🥈", "🥉"}

// topText renders a non-empty chat leaderboard as MarkdownV2. Display
// names come from users and are escaped; everything else is static.
func topText(entries []points.Entry) (string, error) {
	var b strings.Builder
	b.WriteString(textTopHeader)
	b.WriteString("\n")
	for i, e := range entries {
		name, err := format.EscapeMarkdown(format.DerefString(e.DisplayName, "невідомий"), format.MarkdownV2, "")
		if err != nil {
			return "", err
		}
		prefix := fmt.Sprintf("%d\\.", i+1)
		if i < len(topMedals) {
			prefix = topMedals[i]
		}
		fmt.Fprintf(&b, "%s %s: %d\n", prefix, name, e.Score)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
