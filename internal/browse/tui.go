package browse

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/applynow/internal/filter"
	"github.com/amishk599/applynow/internal/model"
)

var displayZone = loadZone("America/Winnipeg")

func loadZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

func fmtTime(t time.Time, layout string) string {
	return t.In(displayZone).Format(layout)
}

// LoadFunc loads stored jobs, optionally including archived ones.
type LoadFunc func(ctx context.Context, includeArchived bool) ([]model.Job, error)

type jobsLoadedMsg struct {
	jobs            []model.Job
	includeArchived bool
	err             error
}

const (
	storedPane = iota
	matchPane
)

type browseModel struct {
	alertFilter model.AlertFilter
	filterLabel string
	load        LoadFunc

	keys  keyMap
	help  help.Model
	panes [2]pane
	focus int

	width, height int
	ready         bool

	includeArchived bool
	loading         bool
	loadError       string

	detail   detail
	wantQuit bool
}

func newBrowseModel(jobs []model.Job, f model.AlertFilter, filterLabel string, load LoadFunc) browseModel {
	m := browseModel{
		alertFilter: f,
		filterLabel: filterLabel,
		load:        load,
		keys:        newKeyMap(),
		help:        help.New(),
	}
	m.setJobs(jobs)
	return m
}

// setJobs fills the stored pane with every job and the match pane with the
// active jobs the alert filter would deliver.
func (m *browseModel) setJobs(jobs []model.Job) {
	sortJobsByDate(jobs)
	matched := make([]model.Job, 0, len(jobs))
	for i := range jobs {
		if !jobs[i].Archived && filter.Matches(&jobs[i], &m.alertFilter) {
			matched = append(matched, jobs[i])
		}
	}
	m.panes[storedPane].setJobs(jobs)
	m.panes[matchPane].setJobs(matched)
}

func (m browseModel) Init() tea.Cmd { return nil }

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.layout()
		if m.detail.open {
			m.detail.resize(m.width, m.height)
		}
		return m, nil

	case jobsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.loadError = fmt.Sprintf("reload failed: %v", msg.err)
			return m, nil
		}
		m.loadError = ""
		m.includeArchived = msg.includeArchived
		m.setJobs(msg.jobs)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.wantQuit = true
			return m, tea.Quit
		}
		if m.detail.open {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m browseModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Switch):
		m.focus = 1 - m.focus
	case key.Matches(msg, m.keys.Up):
		m.panes[m.focus].move(-1)
	case key.Matches(msg, m.keys.Down):
		m.panes[m.focus].move(1)
	case key.Matches(msg, m.keys.Archived):
		if m.load == nil || m.loading {
			return m, nil
		}
		m.loading = true
		return m, reload(m.load, !m.includeArchived)
	case key.Matches(msg, m.keys.Open):
		if job, ok := m.panes[m.focus].selected(); ok {
			m.detail = openDetail(job, m.width, m.height)
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.panes[m.focus].vp, cmd = m.panes[m.focus].vp.Update(msg)
		return m, cmd
	}
	m.refresh()
	return m, nil
}

func (m browseModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Close):
		m.detail.open = false
		return m, nil
	case key.Matches(msg, m.keys.Link):
		openURL(m.detail.job.Link)
		return m, nil
	case key.Matches(msg, m.keys.Desc):
		m.detail.toggleDescription(m.width)
		return m, nil
	}
	var cmd tea.Cmd
	m.detail.vp, cmd = m.detail.vp.Update(msg)
	return m, cmd
}

func reload(load LoadFunc, includeArchived bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		jobs, err := load(ctx, includeArchived)
		return jobsLoadedMsg{jobs: jobs, includeArchived: includeArchived, err: err}
	}
}

func (m *browseModel) layout() {
	// two bordered panes and a one-column gap; header, borders and help bar
	// take four rows
	w := max((m.width-5)/2, 20)
	h := max(m.height-4, 5)
	for i := range m.panes {
		if !m.ready {
			m.panes[i].vp = viewport.New(w, h)
		} else {
			m.panes[i].resize(w, h)
		}
	}
	m.ready = true
	m.refresh()
}

func (m *browseModel) refresh() {
	if !m.ready {
		return
	}
	for i := range m.panes {
		m.panes[i].refresh(i == m.focus)
	}
}

func (m browseModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.detail.open {
		body := styles.focusedBorder.Width(m.width - 2).Render(m.detail.vp.View())
		return styles.heading.Render("Job Details") + "\n" + body + "\n" + m.statusBar(m.help.View(detailHelp(m.keys)))
	}

	storedTitle := "Active Jobs"
	if m.includeArchived {
		storedTitle = "All Jobs"
	}
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		m.panes[storedPane].render(storedTitle, m.focus == storedPane),
		" ",
		m.panes[matchPane].render("Matches "+m.filterLabel, m.focus == matchPane),
	)

	keys := m.keys
	if m.includeArchived {
		keys.Archived.SetHelp("a", "hide archived")
	}
	status := m.help.View(listHelp(keys))
	switch {
	case m.loading:
		status = "loading..."
	case m.loadError != "":
		status = styles.failure.Render(m.loadError)
	}
	return panes + "\n" + m.statusBar(status)
}

func (m browseModel) statusBar(text string) string {
	return styles.status.Width(m.width).Render(text)
}

// sortJobsByDate puts active jobs before archived ones, newest first.
func sortJobsByDate(jobs []model.Job) {
	slices.SortStableFunc(jobs, func(a, b model.Job) int {
		if a.Archived != b.Archived {
			if a.Archived {
				return 1
			}
			return -1
		}
		return b.DateAdded.Compare(a.DateAdded)
	})
}

func wordWrap(text string, width int) string {
	var lines []string
	var line strings.Builder
	for _, w := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(w) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(w)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// openURL starts the platform browser on url without waiting for it.
func openURL(url string) {
	if url == "" {
		return
	}
	var name string
	var args []string
	switch runtime.GOOS {
	case "darwin":
		name = "open"
	case "linux":
		name = "xdg-open"
	case "windows":
		name, args = "cmd", []string{"/c", "start"}
	default:
		return
	}
	_ = exec.Command(name, append(args, url)...).Start()
}

// Run shows stored jobs next to the ones f would deliver. load backs the
// archived toggle and may be nil. It reports whether the user asked to quit
// rather than go back to the company picker.
func Run(jobs []model.Job, f model.AlertFilter, filterLabel string, load LoadFunc) (bool, error) {
	result, err := tea.NewProgram(newBrowseModel(jobs, f, filterLabel, load), tea.WithAltScreen()).Run()
	if err != nil {
		return false, err
	}
	return result.(browseModel).wantQuit, nil
}
