package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/amishk599/applynow/internal/model"
)

const leverBaseURL = "https://api.lever.co/v0/postings"

type leverCategories struct {
	Team         string   `json:"team"`
	Department   string   `json:"department"`
	Location     string   `json:"location"`
	Commitment   string   `json:"commitment"`
	AllLocations []string `json:"allLocations"`
}

type leverList struct {
	Text    string `json:"text"`
	Content string `json:"content"`
}

// leverJob represents a single job in the Lever API response.
type leverJob struct {
	ID               string          `json:"id"`
	Text             string          `json:"text"`
	DescriptionPlain string          `json:"descriptionPlain"`
	Lists            []leverList     `json:"lists"`
	Categories       leverCategories `json:"categories"`
	HostedURL        string          `json:"hostedUrl"`
}

// LeverAdapter lists a Lever public postings board.
type LeverAdapter struct {
	companySlug string
	companyName string
	client      *http.Client
}

// NewLeverAdapter creates a new adapter for a Lever board.
func NewLeverAdapter(companySlug string, companyName string, client *http.Client) *LeverAdapter {
	return &LeverAdapter{
		companySlug: companySlug,
		companyName: companyName,
		client:      client,
	}
}

// FetchPostings retrieves every posting on the board in one request.
func (a *LeverAdapter) FetchPostings(ctx context.Context) ([]model.Posting, error) {
	url := fmt.Sprintf("%s/%s?mode=json", leverBaseURL, a.companySlug)

	var leverJobs []leverJob
	if err := getJSON(ctx, a.client, url, &leverJobs); err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", a.companySlug, err)
	}

	postings := make([]model.Posting, 0, len(leverJobs))
	for _, lj := range leverJobs {
		location := lj.Categories.Location
		if len(lj.Categories.AllLocations) > 0 {
			location = strings.Join(lj.Categories.AllLocations, ", ")
		}

		parts := []string{lj.DescriptionPlain}
		for _, l := range lj.Lists {
			parts = append(parts, l.Text, extractText(l.Content))
		}
		description := joinNonEmpty("\n\n", parts...)

		postings = append(postings, model.Posting{
			Link:        lj.HostedURL,
			Company:     a.companyName,
			Title:       lj.Text,
			Location:    location,
			JobType:     lj.Categories.Commitment,
			Description: description,
			IsWinnipeg:  isWinnipeg(location, description),
		})
	}

	return postings, nil
}
