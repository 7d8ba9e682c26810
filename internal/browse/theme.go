package browse

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

type theme struct {
	focusedBorder lipgloss.Style
	blurredBorder lipgloss.Style
	focusedHeader lipgloss.Style
	blurredHeader lipgloss.Style

	rowTitle    lipgloss.Style
	rowMeta     lipgloss.Style
	rowArchived lipgloss.Style
	rowCursor   lipgloss.Style

	heading lipgloss.Style
	label   lipgloss.Style
	rule    lipgloss.Style
	hint    lipgloss.Style
	body    lipgloss.Style
	status  lipgloss.Style
	failure lipgloss.Style
}

var styles = newTheme()

func newTheme() theme {
	accent := lipgloss.Color("75")
	muted := lipgloss.Color("243")
	base := lipgloss.NewStyle()

	return theme{
		focusedBorder: base.Border(lipgloss.RoundedBorder()).BorderForeground(accent),
		blurredBorder: base.Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")),
		focusedHeader: base.Bold(true).Foreground(accent).PaddingLeft(1),
		blurredHeader: base.Bold(true).Foreground(muted).PaddingLeft(1),

		rowTitle:    base.Bold(true),
		rowMeta:     base.Foreground(muted),
		rowArchived: base.Foreground(muted).Strikethrough(true),
		rowCursor:   base.Foreground(lipgloss.Color("231")).Background(lipgloss.Color("25")),

		heading: base.Bold(true).Foreground(lipgloss.Color("231")).MarginBottom(1),
		label:   base.Bold(true).Foreground(accent).Width(14),
		rule:    base.Foreground(lipgloss.Color("238")),
		hint:    base.Foreground(muted).Italic(true),
		body:    base.Foreground(lipgloss.Color("252")),
		status:  base.Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")).PaddingLeft(1),
		failure: base.Foreground(lipgloss.Color("203")),
	}
}

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Switch   key.Binding
	Open     key.Binding
	Archived key.Binding
	Back     key.Binding
	Close    key.Binding
	Link     key.Binding
	Desc     key.Binding
	Quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Switch:   key.NewBinding(key.WithKeys("tab", "left", "right"), key.WithHelp("tab", "switch pane")),
		Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Archived: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "show archived")),
		Back:     key.NewBinding(key.WithKeys("esc", "b"), key.WithHelp("esc", "companies")),
		Close:    key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
		Link:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open link")),
		Desc:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "description")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// listHelp and detailHelp select which bindings the help bar shows.
type listHelp keyMap

func (k listHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.Switch, k.Up, k.Down, k.Open, k.Archived, k.Back, k.Quit}
}

func (k listHelp) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

type detailHelp keyMap

func (k detailHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.Link, k.Desc, k.Up, k.Down, k.Close, k.Quit}
}

func (k detailHelp) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }
