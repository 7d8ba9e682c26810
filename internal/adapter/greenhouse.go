package adapter

import (
	"context"
	"fmt"
	"net/http"

	"github.com/amishk599/applynow/internal/model"
)

const greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

// greenhouseJob represents a single job in the Greenhouse API response.
type greenhouseJob struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Location    greenhouseLocation `json:"location"`
	AbsoluteURL string             `json:"absolute_url"`
	Content     string             `json:"content"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

// greenhouseResponse is the top-level Greenhouse jobs API response.
type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

// GreenhouseAdapter lists a Greenhouse public board. Descriptions come in the
// same response (content=true), so one request yields the complete snapshot.
type GreenhouseAdapter struct {
	boardToken  string
	companyName string
	client      *http.Client
}

// NewGreenhouseAdapter creates a new adapter for a Greenhouse board.
func NewGreenhouseAdapter(boardToken string, companyName string, client *http.Client) *GreenhouseAdapter {
	return &GreenhouseAdapter{
		boardToken:  boardToken,
		companyName: companyName,
		client:      client,
	}
}

// FetchPostings retrieves every posting on the board.
func (a *GreenhouseAdapter) FetchPostings(ctx context.Context) ([]model.Posting, error) {
	url := fmt.Sprintf("%s/%s/jobs?content=true", greenhouseBaseURL, a.boardToken)

	var ghResp greenhouseResponse
	if err := getJSON(ctx, a.client, url, &ghResp); err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", a.boardToken, err)
	}

	postings := make([]model.Posting, 0, len(ghResp.Jobs))
	for _, gj := range ghResp.Jobs {
		description := extractText(gj.Content)
		postings = append(postings, model.Posting{
			Link:        gj.AbsoluteURL,
			Company:     a.companyName,
			Title:       gj.Title,
			Location:    gj.Location.Name,
			Description: description,
			IsWinnipeg:  isWinnipeg(gj.Location.Name, description),
		})
	}

	return postings, nil
}
