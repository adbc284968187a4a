// Package hunter wraps the Hunter.io v2 email-discovery API.
//
// Every call consumes one unit of the vendor's monthly quota. The client does
// not track remaining quota itself; exhaustion surfaces as a rate-limit
// response, which is mapped to an api_error outcome like any other failure.
package hunter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.hunter.io/v2"

type Config struct {
	APIKey string

	// BaseURL overrides the API base URL. Useful for proxies/testing.
	BaseURL string

	// Timeout bounds each request. Defaults to 10s.
	Timeout time.Duration

	// RateLimitRPS paces outgoing requests. Set to <=0 to disable.
	RateLimitRPS float64

	// PageLimit caps how many candidates a domain search may return.
	// Defaults to 10.
	PageLimit int
}

type Client struct {
	baseURL   *url.URL
	apiKey    string
	pageLimit int
	limiter   *rate.Limiter
	http      *http.Client
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("HUNTER_API_KEY is required")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pageLimit := cfg.PageLimit
	if pageLimit <= 0 {
		pageLimit = 10
	}
	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1)
	}
	return &Client{
		baseURL:   u,
		apiKey:    strings.TrimSpace(cfg.APIKey),
		pageLimit: pageLimit,
		limiter:   limiter,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

type domainSearchResponse struct {
	Data struct {
		Domain       string `json:"domain"`
		Organization string `json:"organization"`
		Emails       []struct {
			Value      string `json:"value"`
			FirstName  string `json:"first_name"`
			LastName   string `json:"last_name"`
			Position   string `json:"position"`
			Department string `json:"department"`
			Confidence int    `json:"confidence"`
		} `json:"emails"`
	} `json:"data"`
}

type emailFinderResponse struct {
	Data struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Position  string `json:"position"`
		Score     int    `json:"score"`
	} `json:"data"`
}

// SearchDomain lists candidate people for a domain, preserving the vendor's
// response order (ranked by confidence). Failures never escape as errors; they
// come back as api_error outcomes so the caller can move on to the next domain.
func (c *Client) SearchDomain(ctx context.Context, domain, role string) Outcome {
	out := Outcome{Domain: domain}

	params := url.Values{}
	params.Set("domain", domain)
	params.Set("type", "personal")
	params.Set("limit", fmt.Sprintf("%d", c.pageLimit))
	if strings.TrimSpace(role) != "" {
		params.Set("role", strings.TrimSpace(role))
	}

	body, apiErr := c.get(ctx, "domainSearch", "domain-search", params)
	if apiErr != nil {
		out.Status = StatusAPIError
		out.Reason = apiErr.Reason()
		return out
	}

	var parsed domainSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		out.Status = StatusAPIError
		out.Reason = "malformed response"
		return out
	}

	out.Company = strings.TrimSpace(parsed.Data.Organization)
	for _, e := range parsed.Data.Emails {
		if strings.TrimSpace(e.Value) == "" {
			continue
		}
		out.Candidates = append(out.Candidates, Candidate{
			Email:      strings.TrimSpace(e.Value),
			FirstName:  strings.TrimSpace(e.FirstName),
			LastName:   strings.TrimSpace(e.LastName),
			Position:   strings.TrimSpace(e.Position),
			Department: strings.TrimSpace(e.Department),
			Confidence: e.Confidence,
		})
	}

	if len(out.Candidates) == 0 {
		out.Status = StatusNoCandidates
		out.Reason = "no candidates returned"
		return out
	}
	out.Status = StatusFound
	return out
}

// FindEmail looks up a specific person's email at a domain. Unlike
// SearchDomain this is a direct query with a single answer, so failures are
// returned as errors.
func (c *Client) FindEmail(ctx context.Context, domain, firstName, lastName string) (Candidate, error) {
	params := url.Values{}
	params.Set("domain", domain)
	params.Set("first_name", firstName)
	params.Set("last_name", lastName)

	body, apiErr := c.get(ctx, "emailFinder", "email-finder", params)
	if apiErr != nil {
		return Candidate{}, apiErr
	}

	var parsed emailFinderResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Candidate{}, fmt.Errorf("parse email-finder response: %w", err)
	}
	if strings.TrimSpace(parsed.Data.Email) == "" {
		return Candidate{}, fmt.Errorf("no email found for %s %s at %s", firstName, lastName, domain)
	}
	return Candidate{
		Email:      strings.TrimSpace(parsed.Data.Email),
		FirstName:  strings.TrimSpace(parsed.Data.FirstName),
		LastName:   strings.TrimSpace(parsed.Data.LastName),
		Position:   strings.TrimSpace(parsed.Data.Position),
		Confidence: parsed.Data.Score,
	}, nil
}

func (c *Client) get(ctx context.Context, op, endpoint string, params url.Values) ([]byte, *APIError) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &APIError{Op: op, Details: ReasonNetworkError}
		}
	}

	params.Set("api_key", c.apiKey)
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + endpoint
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &APIError{Op: op, Details: ReasonNetworkError}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &APIError{Op: op, Details: ReasonNetworkError}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Status: resp.Status, Details: ReasonNetworkError}
	}
	if resp.StatusCode/100 != 2 {
		return nil, newAPIError(op, resp, body)
	}
	return body, nil
}
