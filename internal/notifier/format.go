package notifier

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/amishk599/applynow/internal/model"
)

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "[", "\\[", "`", "\\`")

// FormatJobAlert renders the alert text for a new job in Telegram legacy Markdown.
// A missing location falls back to "Winnipeg" for Winnipeg jobs and "N/A" otherwise.
func FormatJobAlert(j *model.Job) string {
	location := j.Location
	if location == "" && j.IsWinnipeg {
		location = "Winnipeg"
	}
	if location == "" {
		location = "N/A"
	}

	var b strings.Builder
	b.WriteString("📢 *New Job Posted!*\n\n")
	fmt.Fprintf(&b, "🏢 *Company:* %s\n", escape(j.Company))
	fmt.Fprintf(&b, "💼 *Title:* %s\n", escape(j.Title))
	fmt.Fprintf(&b, "📍 *Location:* %s\n", escape(location))
	fmt.Fprintf(&b, "💰 *Salary:* %s - %s\n\n", bound(j.SalaryMin), bound(j.SalaryMax))
	fmt.Fprintf(&b, "🔗 [Apply Here](%s)", j.Link)
	return b.String()
}

func bound(n *int) string {
	if n == nil {
		return "N/A"
	}
	return strconv.Itoa(*n)
}

func escape(s string) string {
	return markdownEscaper.Replace(s)
}
