package tui

import (
	"github.com/tinytelemetry/livelist/internal/model"

	"github.com/charmbracelet/x/ansi"
)

const rowMarker = "▸ "

// renderRow renders one live item as a single line no wider than width:
// the nickname in bold followed by the faint title, truncated with an
// ellipsis when the line would overflow.
func renderRow(item model.LiveItem, width int, selected bool) string {
	marker := "  "
	if selected {
		marker = selectedRowStyle.Render(rowMarker)
	}
	avail := width - 2
	if avail <= 0 {
		return ansi.Truncate(marker, max(width, 0), "")
	}

	nick := ansi.Truncate(item.UserInfo.Nickname, avail, "…")
	line := marker + nicknameStyle.Render(nick)

	rest := avail - ansi.StringWidth(nick) - 2
	if rest > 0 {
		line += "  " + titleStyle.Render(ansi.Truncate(model.TitleOrDefault(item), rest, "…"))
	}
	return line
}
