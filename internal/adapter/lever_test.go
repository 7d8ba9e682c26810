package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLeverAdapter_FetchPostings_Success(t *testing.T) {
	payload := `[
		{
			"id": "ff7ef527-b0d3-4c44-836a-8d6b58ac321e",
			"text": "Software Engineer",
			"descriptionPlain": "Plain text job description",
			"lists": [
				{"text": "Requirements", "content": "<li>Go</li><li>Postgres</li>"}
			],
			"categories": {
				"team": "Engineering",
				"department": "Platform",
				"location": "Winnipeg, MB",
				"commitment": "Full-time",
				"allLocations": ["Winnipeg, MB", "Remote"]
			},
			"hostedUrl": "https://jobs.lever.co/acme/ff7ef527-b0d3-4c44-836a-8d6b58ac321e"
		},
		{
			"id": "a1b2c3d4-e5f6-7890-abcd-ef1234567890",
			"text": "Backend Engineer",
			"descriptionPlain": "Backend job description",
			"categories": {
				"location": "Remote",
				"commitment": "Contract",
				"allLocations": ["Remote"]
			},
			"hostedUrl": "https://jobs.lever.co/acme/a1b2c3d4-e5f6-7890-abcd-ef1234567890"
		}
	]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v0/postings/acme" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("mode") != "json" {
			t.Errorf("expected mode=json, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	a := newLeverTestAdapter(srv, "acme", "Acme Corp")

	postings, err := a.FetchPostings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(postings))
	}

	p := postings[0]
	if p.Link != "https://jobs.lever.co/acme/ff7ef527-b0d3-4c44-836a-8d6b58ac321e" {
		t.Errorf("expected hostedUrl as link, got %s", p.Link)
	}
	if p.Company != "Acme Corp" {
		t.Errorf("expected company Acme Corp, got %s", p.Company)
	}
	if p.Location != "Winnipeg, MB, Remote" {
		t.Errorf("expected joined locations, got %s", p.Location)
	}
	if p.JobType != "Full-time" {
		t.Errorf("expected job type Full-time, got %s", p.JobType)
	}
	if !strings.Contains(p.Description, "Requirements") || !strings.Contains(p.Description, "Go Postgres") {
		t.Errorf("expected lists folded into description, got %q", p.Description)
	}
	if !p.IsWinnipeg {
		t.Error("expected IsWinnipeg")
	}

	if postings[1].JobType != "Contract" {
		t.Errorf("expected Contract, got %s", postings[1].JobType)
	}
	if postings[1].Description != "Backend job description" {
		t.Errorf("unexpected description %q", postings[1].Description)
	}
}

func TestLeverAdapter_FetchPostings_EmptyBoard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	a := newLeverTestAdapter(srv, "empty-co", "Empty Co")

	postings, err := a.FetchPostings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 0 {
		t.Fatalf("expected 0 postings, got %d", len(postings))
	}
}

func TestLeverAdapter_FetchPostings_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{broken`))
	}))
	defer srv.Close()

	a := newLeverTestAdapter(srv, "bad-co", "Bad Co")

	if _, err := a.FetchPostings(context.Background()); err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}

func TestLeverAdapter_FetchPostings_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a := newLeverTestAdapter(srv, "missing-co", "Missing Co")

	if _, err := a.FetchPostings(context.Background()); err == nil {
		t.Fatal("expected error for HTTP 404, got nil")
	}
}

func TestLeverAdapter_FetchPostings_LocationFallback(t *testing.T) {
	payload := `[
		{
			"text": "Designer",
			"categories": {"location": "Winnipeg"},
			"hostedUrl": "https://jobs.lever.co/acme/designer"
		}
	]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	a := newLeverTestAdapter(srv, "acme", "Acme Corp")

	postings, err := a.FetchPostings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if postings[0].Location != "Winnipeg" {
		t.Errorf("expected categories.location fallback, got %q", postings[0].Location)
	}
}

func newLeverTestAdapter(srv *httptest.Server, slug, company string) *LeverAdapter {
	return NewLeverAdapter(slug, company, redirectClient(srv))
}
