package validation

import (
	"strings"
	"testing"
)

func TestValidateURL_ValidURLs(t *testing.T) {
	tests := []string{
		"http://localhost:5000",
		"https://events.example.edu/api",
		"http://127.0.0.1:8080/api/",
	}
	for _, u := range tests {
		if err := ValidateURL(u, "url", false); err != nil {
			t.Errorf("ValidateURL(%q) unexpected error: %v", u, err)
		}
	}
}

func TestValidateURL_InvalidURLs(t *testing.T) {
	tests := []struct {
		url          string
		requireHTTPS bool
		wantMsg      string
	}{
		{url: "example.com/api", wantMsg: "scheme"},
		{url: "http://", wantMsg: "host"},
		{url: "ftp://example.com", wantMsg: "http or https"},
		{url: "http://example.com", requireHTTPS: true, wantMsg: "HTTPS"},
		{url: "://bad", wantMsg: "invalid URL format"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateURL(tt.url, "api_url", tt.requireHTTPS)
			if err == nil {
				t.Fatalf("expected error for %q", tt.url)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error to mention %q, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestValidateAPIURL(t *testing.T) {
	if err := ValidateAPIURL("http://localhost:5000/api", "api_url"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	invalid := map[string]string{
		"":                               "required",
		"http://localhost:5000/api?x=1":  "query",
		"http://localhost:5000/api#frag": "fragment",
		"example.com":                    "scheme",
	}
	for u, want := range invalid {
		err := ValidateAPIURL(u, "api_url")
		if err == nil {
			t.Errorf("ValidateAPIURL(%q) expected error", u)
			continue
		}
		if !strings.Contains(err.Error(), want) {
			t.Errorf("ValidateAPIURL(%q) error %v does not mention %q", u, err, want)
		}
	}
}

func TestURLValidationError_ErrorMessage(t *testing.T) {
	err := URLValidationError{Field: "api_url", Message: "bad", URL: "x"}
	if got := err.Error(); got != "api_url: bad (url: x)" {
		t.Errorf("unexpected message %q", got)
	}
}
