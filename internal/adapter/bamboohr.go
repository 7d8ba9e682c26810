package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/amishk599/applynow/internal/model"
)

// bamboohrBaseURL is formatted with the company subdomain.
const bamboohrBaseURL = "https://%s.bamboohr.com/careers"

type bamboohrListResponse struct {
	Result []struct {
		ID string `json:"id"`
	} `json:"result"`
}

type bamboohrLocation struct {
	City  string `json:"city"`
	State string `json:"state"`
}

type bamboohrDetailResponse struct {
	Result struct {
		JobOpening struct {
			JobOpeningName        string           `json:"jobOpeningName"`
			Description           string           `json:"description"`
			EmploymentStatusLabel string           `json:"employmentStatusLabel"`
			JobOpeningShareURL    string           `json:"jobOpeningShareUrl"`
			ATSLocation           bamboohrLocation `json:"atsLocation"`
		} `json:"jobOpening"`
	} `json:"result"`
}

// BambooHRAdapter lists a BambooHR careers site. The list endpoint only
// carries ids, so each posting needs a detail request.
type BambooHRAdapter struct {
	subdomain   string
	companyName string
	client      *http.Client
	detailDelay time.Duration
	logger      *slog.Logger
}

// NewBambooHRAdapter creates a new adapter for a BambooHR careers site.
// detailDelay is the pause between detail requests.
func NewBambooHRAdapter(subdomain, companyName string, client *http.Client, detailDelay time.Duration, logger *slog.Logger) *BambooHRAdapter {
	return &BambooHRAdapter{
		subdomain:   subdomain,
		companyName: companyName,
		client:      client,
		detailDelay: detailDelay,
		logger:      logger,
	}
}

// FetchPostings lists every opening and loads its detail. If any detail
// request fails the postings that did load are returned together with an
// error wrapping model.ErrIncompleteSnapshot.
func (a *BambooHRAdapter) FetchPostings(ctx context.Context) ([]model.Posting, error) {
	base := fmt.Sprintf(bamboohrBaseURL, a.subdomain)

	var list bamboohrListResponse
	if err := getJSON(ctx, a.client, base+"/list", &list); err != nil {
		return nil, fmt.Errorf("bamboohr list for %s: %w", a.subdomain, err)
	}

	postings := make([]model.Posting, 0, len(list.Result))
	var failed []error
	for i, item := range list.Result {
		if i > 0 && a.detailDelay > 0 {
			select {
			case <-ctx.Done():
				return postings, fmt.Errorf("bamboohr fetch for %s: %w: %w", a.subdomain, model.ErrIncompleteSnapshot, ctx.Err())
			case <-time.After(a.detailDelay):
			}
		}

		p, err := a.fetchDetail(ctx, base, item.ID)
		if err != nil {
			a.logger.Warn("bamboohr detail failed", "company", a.companyName, "id", item.ID, "error", err)
			failed = append(failed, err)
			continue
		}
		postings = append(postings, p)
	}

	if len(failed) > 0 {
		return postings, fmt.Errorf("bamboohr fetch for %s: %d of %d details failed: %w",
			a.subdomain, len(failed), len(list.Result), errors.Join(model.ErrIncompleteSnapshot, errors.Join(failed...)))
	}
	return postings, nil
}

func (a *BambooHRAdapter) fetchDetail(ctx context.Context, base, id string) (model.Posting, error) {
	var detail bamboohrDetailResponse
	if err := getJSON(ctx, a.client, fmt.Sprintf("%s/%s/detail", base, id), &detail); err != nil {
		return model.Posting{}, err
	}

	jo := detail.Result.JobOpening
	if jo.JobOpeningShareURL == "" {
		return model.Posting{}, fmt.Errorf("opening %s has no share url", id)
	}

	location := joinNonEmpty(", ", jo.ATSLocation.City, jo.ATSLocation.State)
	description := extractText(jo.Description)
	return model.Posting{
		Link:        jo.JobOpeningShareURL,
		Company:     a.companyName,
		Title:       jo.JobOpeningName,
		Location:    location,
		JobType:     jo.EmploymentStatusLabel,
		Description: description,
		IsWinnipeg:  isWinnipeg(location, description),
	}, nil
}
