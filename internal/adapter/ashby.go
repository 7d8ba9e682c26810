package adapter

import (
	"context"
	"fmt"
	"net/http"

	"github.com/amishk599/applynow/internal/model"
)

const ashbyBaseURL = "https://api.ashbyhq.com/posting-api/job-board"

type ashbyJob struct {
	Title            string `json:"title"`
	Location         string `json:"location"`
	EmploymentType   string `json:"employmentType"`
	JobURL           string `json:"jobUrl"`
	DescriptionPlain string `json:"descriptionPlain"`
	IsListed         bool   `json:"isListed"`
}

type ashbyResponse struct {
	Jobs []ashbyJob `json:"jobs"`
}

// AshbyAdapter lists an Ashby public job board.
type AshbyAdapter struct {
	boardToken  string
	companyName string
	client      *http.Client
}

// NewAshbyAdapter creates a new adapter for an Ashby job board.
func NewAshbyAdapter(boardToken string, companyName string, client *http.Client) *AshbyAdapter {
	return &AshbyAdapter{
		boardToken:  boardToken,
		companyName: companyName,
		client:      client,
	}
}

// FetchPostings retrieves every listed posting on the board. Unlisted jobs
// are not part of the public snapshot.
func (a *AshbyAdapter) FetchPostings(ctx context.Context) ([]model.Posting, error) {
	url := fmt.Sprintf("%s/%s", ashbyBaseURL, a.boardToken)

	var ashbyResp ashbyResponse
	if err := getJSON(ctx, a.client, url, &ashbyResp); err != nil {
		return nil, fmt.Errorf("ashby fetch for %s: %w", a.boardToken, err)
	}

	postings := make([]model.Posting, 0, len(ashbyResp.Jobs))
	for _, aj := range ashbyResp.Jobs {
		if !aj.IsListed {
			continue
		}
		postings = append(postings, model.Posting{
			Link:        aj.JobURL,
			Company:     a.companyName,
			Title:       aj.Title,
			Location:    aj.Location,
			JobType:     aj.EmploymentType,
			Description: aj.DescriptionPlain,
			IsWinnipeg:  isWinnipeg(aj.Location, aj.DescriptionPlain),
		})
	}

	return postings, nil
}
