package browse

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/applynow/internal/model"
)

type loadedMsg struct {
	jobs []model.Job
	err  error
}

type loaderModel struct {
	label string
	fetch func(ctx context.Context) ([]model.Job, error)
	spin  spinner.Model
	jobs  []model.Job
	err   error
	done  bool
}

func (m loaderModel) Init() tea.Cmd {
	fetch := m.fetch
	return tea.Batch(m.spin.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		jobs, err := fetch(ctx)
		return loadedMsg{jobs: jobs, err: err}
	})
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.jobs, m.err, m.done = msg.jobs, msg.err, true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.err, m.done = errors.New("cancelled"), true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	return m.spin.View() + " " + m.label + "...\n"
}

// RunLoader shows an inline spinner labelled label while fetch runs.
func RunLoader(label string, fetch func(ctx context.Context) ([]model.Job, error)) ([]model.Job, error) {
	m := loaderModel{
		label: label,
		fetch: fetch,
		spin: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("75"))),
		),
	}
	result, err := tea.NewProgram(m).Run()
	if err != nil {
		return nil, err
	}
	final := result.(loaderModel)
	return final.jobs, final.err
}
