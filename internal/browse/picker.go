package browse

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// CompanyCount is one picker row.
type CompanyCount struct {
	Name string
	Jobs int
}

type pickerModel struct {
	companies []CompanyCount
	keys      keyMap
	cursor    int // row 0 is every company
	picked    bool
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(km, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(km, m.keys.Up):
		m.cursor = clamp(m.cursor-1, 0, len(m.companies))
	case key.Matches(km, m.keys.Down):
		m.cursor = clamp(m.cursor+1, 0, len(m.companies))
	case key.Matches(km, m.keys.Open):
		m.picked = true
		return m, tea.Quit
	}
	return m, nil
}

func (m pickerModel) View() string {
	total := 0
	for _, c := range m.companies {
		total += c.Jobs
	}
	rows := make([]string, 0, len(m.companies)+1)
	rows = append(rows, fmt.Sprintf("All companies (%d)", total))
	for _, c := range m.companies {
		rows = append(rows, fmt.Sprintf("%s (%d)", c.Name, c.Jobs))
	}

	var b strings.Builder
	b.WriteString(styles.focusedHeader.Padding(1, 0, 1, 2).Render("Job Browser · Select a company") + "\n")
	for i, row := range rows {
		if i == m.cursor {
			b.WriteString("  " + styles.focusedHeader.Render("▸ "+row) + "\n")
			continue
		}
		b.WriteString("    " + row + "\n")
	}
	b.WriteString("\n" + styles.hint.PaddingLeft(2).Render("↑/↓ move · enter open · q quit"))
	return b.String()
}

// RunCompanyPicker asks which company to browse. It returns "" for all
// companies and ok=false if the user quit.
func RunCompanyPicker(companies []CompanyCount) (name string, ok bool, err error) {
	result, err := tea.NewProgram(pickerModel{companies: companies, keys: newKeyMap()}).Run()
	if err != nil {
		return "", false, err
	}
	final := result.(pickerModel)
	return pickedName(final), final.picked, nil
}

func pickedName(m pickerModel) string {
	if !m.picked || m.cursor == 0 {
		return ""
	}
	return m.companies[m.cursor-1].Name
}
