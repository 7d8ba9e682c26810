package adapter

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "double-encoded HTML from Greenhouse API",
			input: "This is the job description. &lt;p&gt;Any HTML included.&lt;/p&gt;",
			want:  "This is the job description. Any HTML included.",
		},
		{
			name:  "typical job description with nested tags and whitespace",
			input: "&lt;p&gt;We are hiring.&lt;/p&gt;\n&lt;ul&gt;\n  &lt;li&gt;Write code&lt;/li&gt;\n  &lt;li&gt;Review PRs&lt;/li&gt;\n&lt;/ul&gt;",
			want:  "We are hiring. Write code Review PRs",
		},
		{
			name:  "adjacent tags do not glue words",
			input: "<li>Go</li><li>SQL</li>",
			want:  "Go SQL",
		},
		{
			name:  "plain text with no HTML",
			input: "No tags here.",
			want:  "No tags here.",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := extractText(tc.input)
			if got != tc.want {
				t.Errorf("extractText(%q)\n got  %q\n want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestIsWinnipeg(t *testing.T) {
	tests := []struct {
		location    string
		description string
		want        bool
	}{
		{"Winnipeg, MB", "", true},
		{"Remote", "Our team is based in WINNIPEG.", true},
		{"Toronto, ON", "Canada wide", false},
		{"", "", false},
	}
	for _, tc := range tests {
		if got := isWinnipeg(tc.location, tc.description); got != tc.want {
			t.Errorf("isWinnipeg(%q, %q) = %v, want %v", tc.location, tc.description, got, tc.want)
		}
	}
}

func TestJoinNonEmpty(t *testing.T) {
	if got := joinNonEmpty(", ", "Winnipeg", " ", "MB"); got != "Winnipeg, MB" {
		t.Errorf("got %q", got)
	}
	if got := joinNonEmpty(", "); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("120"); got.Seconds() != 120 {
		t.Errorf("expected 120s, got %v", got)
	}
	if got := parseRetryAfter(""); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
	if got := parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"); got != 0 {
		t.Errorf("expected 0 for HTTP-date, got %v", got)
	}
}

// --- helpers ---

// roundTripFunc adapts a function into an http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// redirectClient sends every request to srv regardless of the requested host.
func redirectClient(srv *httptest.Server) *http.Client {
	return &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			req.URL.Scheme = "http"
			req.URL.Host = srv.Listener.Addr().String()
			return http.DefaultTransport.RoundTrip(req)
		}),
	}
}
