package browse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"

	"github.com/amishk599/applynow/internal/model"
)

// detail is the full-screen view of a single job.
type detail struct {
	open     bool
	job      model.Job
	showDesc bool
	vp       viewport.Model
}

func openDetail(job model.Job, width, height int) detail {
	d := detail{open: true, job: job, vp: viewport.New(width-4, height-4)}
	d.vp.SetContent(d.content(width))
	return d
}

func (d *detail) resize(width, height int) {
	d.vp.Width = width - 4
	d.vp.Height = height - 4
	d.vp.SetContent(d.content(width))
}

func (d *detail) toggleDescription(width int) {
	if d.job.Description == "" {
		return
	}
	d.showDesc = !d.showDesc
	d.vp.SetContent(d.content(width))
	d.vp.GotoTop()
}

func (d detail) content(width int) string {
	j := d.job
	status := "active"
	if j.Archived {
		status = "archived"
	}

	sections := [][][2]string{
		{
			{"Title", j.Title},
			{"Company", j.Company},
			{"Location", j.Location},
			{"Job Type", j.JobType},
			{"Status", status},
		},
		{
			{"Added", fmtTime(j.DateAdded, "2006-01-02 15:04 MST")},
			{"Last Seen", fmtTime(j.LastSeen, "2006-01-02 15:04 MST")},
		},
		enrichmentFields(j.Enrichment),
		{
			{"Link", j.Link},
			{"ID", j.ID},
		},
	}

	var b strings.Builder
	for _, fields := range sections {
		wrote := false
		for _, f := range fields {
			if f[1] == "" {
				continue
			}
			b.WriteString(styles.label.Render(f[0]) + f[1] + "\n")
			wrote = true
		}
		if wrote {
			b.WriteString("\n")
		}
	}

	if j.Description == "" {
		return b.String()
	}
	wrap := max(width-8, 20)
	if !d.showDesc {
		b.WriteString(styles.hint.Render("  r shows the description"))
		return b.String()
	}
	b.WriteString(styles.rule.Render(strings.Repeat("─", wrap)) + "\n\n")
	b.WriteString(styles.body.Render(wordWrap(j.Description, wrap)) + "\n")
	return b.String()
}

func enrichmentFields(e model.Enrichment) [][2]string {
	fields := [][2]string{
		{"Department", string(e.Department)},
		{"Work Model", string(e.WorkModel)},
		{"Seniority", string(e.Seniority)},
		{"Industry", e.Industry},
	}
	if e.IsWinnipeg {
		fields = append(fields, [2]string{"Winnipeg", "yes"})
	}
	if e.SalaryMin != nil || e.SalaryMax != nil {
		fields = append(fields, [2]string{"Salary", formatSalary(e.SalaryMin, e.SalaryMax)})
	}
	if e.MinExperience != nil {
		fields = append(fields, [2]string{"Experience", fmt.Sprintf("%d+ years", *e.MinExperience)})
	}
	if len(e.Technologies) > 0 {
		fields = append(fields, [2]string{"Stack", strings.Join(e.Technologies, ", ")})
	}
	return fields
}

func formatSalary(minSalary, maxSalary *int) string {
	bound := func(n *int) string {
		if n == nil {
			return "N/A"
		}
		return "$" + strconv.Itoa(*n)
	}
	return bound(minSalary) + " - " + bound(maxSalary)
}
