package output

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// ANSI 256-color palette of the pretty report.
const (
	colorAccent = lipgloss.Color("39")
	colorOK     = lipgloss.Color("42")
	colorWarn   = lipgloss.Color("214")
	colorFail   = lipgloss.Color("196")
	colorDim    = lipgloss.Color("245")
	colorText   = lipgloss.Color("255")
)

type theme struct {
	header lipgloss.Style
	footer lipgloss.Style

	title   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	size    lipgloss.Style
	dim     lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	columns lipgloss.Style
}

var styles = newTheme()

func newTheme() theme {
	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	return theme{
		header: box.BorderForeground(colorAccent).MarginBottom(1),
		footer: box.BorderForeground(colorDim).MarginTop(1),

		title:   fg(colorAccent).Bold(true),
		label:   fg(colorDim),
		value:   fg(colorText),
		size:    fg(colorAccent).Bold(true),
		dim:     fg(colorDim),
		ok:      fg(colorOK),
		warn:    fg(colorWarn),
		fail:    fg(colorFail),
		columns: fg(colorDim).Bold(true),
	}
}

// field renders "label value" with the value in the given style.
func (t theme) field(label string, value interface{}, style lipgloss.Style) string {
	return t.label.Render(label) + " " + style.Render(fmt.Sprint(value))
}
