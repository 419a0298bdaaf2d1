package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/pulse/internal/models"
	"github.com/desertthunder/pulse/internal/tasks"
)

var styles = NewPalette("#1DB954", "#04B575", "#FF5F5F", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title  lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
	help   lipgloss.Style
	active lipgloss.Style
	box    lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title:  NewBold(t).MarginBottom(1),
		ok:     NewBold(s),
		err:    NewBold(e),
		warn:   NewStyle(w),
		help:   NewEm(h),
		active: NewStyle(t),
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(e)).
			Padding(0, 1),
	}
}

// status renders a track status in the colour of its lifecycle stage.
func (p *Palette) status(s models.Status) string {
	switch {
	case s == models.StatusDownloaded:
		return p.ok.Render(string(s))
	case s == models.StatusError:
		return p.err.Render(string(s))
	case s.IsActive():
		return p.active.Render(string(s))
	default:
		return p.help.Render(string(s))
	}
}

func noticeStyle(n tasks.Notice) lipgloss.Style {
	switch n {
	case tasks.NoticeSuccess:
		return styles.ok
	case tasks.NoticeFailure:
		return styles.err
	case tasks.NoticePrecondition:
		return styles.warn
	default:
		return styles.active
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
