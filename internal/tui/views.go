package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/castkit/castkit/internal/tui/styles"
)

const chromeHeight = 5 // header + filter/status + player bar (2) + help

func (m Model) View() string {
	if m.width == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteByte('\n')
	b.WriteString(m.statusView())
	b.WriteByte('\n')
	b.WriteString(m.listView())
	b.WriteByte('\n')
	b.WriteString(m.playerView())
	b.WriteByte('\n')
	b.WriteString(m.helpView())
	return b.String()
}

func (m Model) headerView() string {
	title := "castkit"
	if len(m.episodes) > 0 && m.episodes[0].PodcastTitle != "" {
		title += " — " + m.episodes[0].PodcastTitle
	}
	return styles.TitleStyle.Render(title)
}

func (m Model) statusView() string {
	switch {
	case m.filtering || m.filterInput.Value() != "":
		return m.filterInput.View()
	case m.errLine != "":
		return styles.ErrorStyle.Render(m.errLine)
	case m.loading:
		return styles.DimStyle.Render("loading episodes…")
	default:
		return styles.DimStyle.Render(fmt.Sprintf("%d episodes", len(m.episodes)))
	}
}

// listView renders a scrolling window of the filtered episode list.
func (m Model) listView() string {
	rows := max(m.height-chromeHeight, 1)

	if len(m.visible) == 0 {
		lines := make([]string, rows)
		lines[0] = styles.DimStyle.Render("  no episodes")
		return strings.Join(lines, "\n")
	}

	top := 0
	if m.cursor >= rows {
		top = m.cursor - rows + 1
	}

	lines := make([]string, 0, rows)
	for i := top; i < len(m.visible) && len(lines) < rows; i++ {
		lines = append(lines, m.rowView(i))
	}
	for len(lines) < rows {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) rowView(i int) string {
	ep := m.episodes[m.visible[i]]

	marker := " "
	if m.visible[i] == m.current {
		if m.playing {
			marker = styles.PlayingDot
		} else {
			marker = styles.PausedDot
		}
	}

	suffix := ""
	if ep.HasDuration() {
		suffix = styles.DimStyle.Render("  " + formatDuration(ep.Duration))
	}

	if i == m.cursor {
		return marker + styles.SelectedStyle.Render(ep.Title) + suffix
	}
	return marker + " " + ep.Title + suffix
}

func (m Model) playerView() string {
	title := m.nowPlaying.Title
	if title == "" {
		title = "nothing playing"
	}

	timing := "--:--"
	if m.position != "" {
		timing = m.position
	}
	if m.duration != "" {
		timing += " / " + m.duration
	}

	meta := fmt.Sprintf("%s  %.2gx  vol %d%%", timing, m.ctrl.Speed(), int(m.ctrl.Volume()*100+0.5))

	line := lipgloss.JoinHorizontal(lipgloss.Top,
		styles.AccentStyle.Render(title),
		styles.SubtitleStyle.Render("  "+meta),
	)
	return styles.PlayerBarStyle.Width(m.width).Render(line + "\n" + m.progressView())
}

func (m Model) progressView() string {
	width := max(m.width-2, 10)
	filled := int(m.percent / 100 * float64(width))
	filled = min(filled, width)
	return styles.AccentStyle.Render(strings.Repeat("━", filled)) +
		styles.DimStyle.Render(strings.Repeat("─", width-filled))
}

func (m Model) helpView() string {
	return styles.DimStyle.Render("enter play · space pause · n/p episode · ←/→ skip · +/- vol · </> speed · / filter · q quit")
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mins, secs)
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}
