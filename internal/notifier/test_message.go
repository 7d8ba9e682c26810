package notifier

import (
	"context"
	"time"

	"github.com/amishk599/applynow/internal/model"
)

// SendTestMessage renders a sample alert and sends it to subscriberID to
// verify the integration works.
func SendTestMessage(ctx context.Context, n model.Notifier, subscriberID int64) error {
	salaryMin, salaryMax := 70000, 95000
	now := time.Now().UTC()
	job := &model.Job{
		ID:       "test-001",
		Link:     "https://example.com/jobs/test",
		Company:  "ApplyNow Test",
		Title:    "Test Notification: Integration Verified",
		Location: "",
		Enrichment: model.Enrichment{
			SalaryMin:  &salaryMin,
			SalaryMax:  &salaryMax,
			IsWinnipeg: true,
			Department: model.DepartmentSoftwareEngineering,
		},
		LastSeen:  now,
		DateAdded: now,
	}
	return n.Send(ctx, subscriberID, FormatJobAlert(job))
}
