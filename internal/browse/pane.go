package browse

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"

	"github.com/amishk599/applynow/internal/model"
)

// rowHeight is the number of lines one job takes in a pane, separator included.
const rowHeight = 3

// pane is one scrollable job list with its own cursor.
type pane struct {
	jobs   []model.Job
	cursor int
	vp     viewport.Model
}

func (p *pane) setJobs(jobs []model.Job) {
	p.jobs = jobs
	p.cursor = clamp(p.cursor, 0, max(len(jobs)-1, 0))
}

func (p *pane) move(delta int) {
	p.cursor = clamp(p.cursor+delta, 0, max(len(p.jobs)-1, 0))
}

func (p *pane) selected() (model.Job, bool) {
	if len(p.jobs) == 0 {
		return model.Job{}, false
	}
	return p.jobs[p.cursor], true
}

func (p *pane) resize(width, height int) {
	p.vp.Width = width
	p.vp.Height = height
}

// refresh re-renders the rows and scrolls the cursor row into view.
func (p *pane) refresh(focused bool) {
	p.vp.SetContent(renderRows(p.jobs, p.cursor, focused))
	if !focused {
		return
	}
	top := p.cursor * rowHeight
	switch {
	case top < p.vp.YOffset:
		p.vp.SetYOffset(top)
	case top+rowHeight-1 >= p.vp.YOffset+p.vp.Height:
		p.vp.SetYOffset(top + rowHeight - p.vp.Height)
	}
}

func (p pane) render(title string, focused bool) string {
	header, border := styles.blurredHeader, styles.blurredBorder
	if focused {
		header, border = styles.focusedHeader, styles.focusedBorder
	}
	head := header.Width(p.vp.Width + 2).Render(fmt.Sprintf("%s (%d)", title, len(p.jobs)))
	return head + "\n" + border.Width(p.vp.Width).Render(p.vp.View())
}

func renderRows(jobs []model.Job, cursor int, focused bool) string {
	if len(jobs) == 0 {
		return styles.hint.Render("  nothing here")
	}

	rows := make([]string, 0, len(jobs))
	for i, j := range jobs {
		title, meta, marker := styles.rowTitle, styles.rowMeta, "  "
		if j.Archived {
			title = styles.rowArchived
		}
		if focused && i == cursor {
			title, meta, marker = styles.rowCursor.Bold(true), styles.rowCursor, "▸ "
		}

		where := j.Location
		if where == "" {
			where = "n/a"
		}
		rows = append(rows,
			marker+title.Render(j.Title)+"\n"+
				marker+meta.Render(strings.Join([]string{j.Company, where, fmtTime(j.DateAdded, "Jan 2")}, " · ")))
	}
	return strings.Join(rows, "\n\n")
}
