package alerts

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/amishk599/applynow/internal/model"
)

var dimensionLabels = []struct {
	dim   model.Dimension
	label string
}{
	{model.DimensionWorkModels, "🏢 *Work Models:*"},
	{model.DimensionSeniorities, "🎓 *Seniorities:*"},
	{model.DimensionCompanies, "🏙️ *Companies:*"},
	{model.DimensionDepartments, "💼 *Departments:*"},
}

// Describe renders the subscriber-facing summary of f.
func Describe(f *model.AlertFilter) string {
	var b strings.Builder
	b.WriteString("📢 *Your Job Alert Filters*\n\n")

	if !f.IsActive {
		b.WriteString("🔕 *ALERTS DISABLED*\n\n")
	}
	if f.IsWinnipeg {
		b.WriteString("📍 *Winnipeg Only*\n\n")
	} else {
		b.WriteString("🌎 *All Locations*\n\n")
	}

	if f.SalaryMin != nil || f.SalaryMax != nil {
		fmt.Fprintf(&b, "💰 *Salary:* %s - %s\n\n", salaryBound(f.SalaryMin), salaryBound(f.SalaryMax))
	}

	for _, dl := range dimensionLabels {
		values := f.Values(dl.dim)
		if len(values) == 0 {
			continue
		}
		b.WriteString(dl.label + "\n")
		for _, v := range values {
			b.WriteString("\t• " + Display(v) + "\n")
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// Toggle renders one selectable option, e.g. "✅ Software Engineering".
func Toggle(value string, selected bool) string {
	mark := "❌"
	if selected {
		mark = "✅"
	}
	return mark + " " + Display(value)
}

// Display turns a stored value such as "software_engineering" into "Software Engineering".
func Display(value string) string {
	words := strings.Fields(strings.ReplaceAll(value, "_", " "))
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func salaryBound(n *int) string {
	if n == nil {
		return "Any"
	}
	return fmt.Sprintf("%d", *n)
}
