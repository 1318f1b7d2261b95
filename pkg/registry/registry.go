// Package registry provides a client for the NPPES NPI registry API, used to
// resolve human-readable provider metadata for dossiers.
package registry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// ErrNotFound indicates the registry has no record for the NPI.
var ErrNotFound = eris.New("registry: NPI not found")

// Provider is the registry's view of a billing provider.
type Provider struct {
	NPI       string `json:"npi"`
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
}

// Client defines the registry lookup operation.
type Client interface {
	// Lookup fetches provider metadata by NPI.
	Lookup(ctx context.Context, npi string) (*Provider, error)
}

// HTTPClient is a rate-limited NPPES API client.
type HTTPClient struct {
	baseURL string
	httpc   *http.Client
	limiter *rate.Limiter
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.httpc.Timeout = d
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *HTTPClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// New creates an HTTPClient for the given base URL.
func New(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(5, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// nppesResponse is the subset of the NPPES API response we read.
type nppesResponse struct {
	ResultCount int `json:"result_count"`
	Results     []struct {
		Number string `json:"number"`
		Basic  struct {
			OrganizationName string `json:"organization_name"`
			FirstName        string `json:"first_name"`
			LastName         string `json:"last_name"`
		} `json:"basic"`
		Taxonomies []struct {
			Desc    string `json:"desc"`
			State   string `json:"state"`
			Primary bool   `json:"primary"`
		} `json:"taxonomies"`
		Addresses []struct {
			City           string `json:"city"`
			State          string `json:"state"`
			AddressPurpose string `json:"address_purpose"`
		} `json:"addresses"`
	} `json:"results"`
}

// Lookup fetches provider metadata by NPI. Returns ErrNotFound when the
// registry has no matching record.
func (c *HTTPClient) Lookup(ctx context.Context, npi string) (*Provider, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "registry: rate limit wait")
	}

	q := url.Values{}
	q.Set("version", "2.1")
	q.Set("number", npi)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "registry: build request")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: lookup %s", npi)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("registry: lookup %s: status %d", npi, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read response")
	}

	var parsed nppesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "registry: decode response")
	}
	if parsed.ResultCount == 0 || len(parsed.Results) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "NPI %s", npi)
	}

	record := parsed.Results[0]
	p := &Provider{NPI: npi}

	if record.Basic.OrganizationName != "" {
		p.Name = record.Basic.OrganizationName
	} else if record.Basic.FirstName != "" || record.Basic.LastName != "" {
		p.Name = record.Basic.FirstName + " " + record.Basic.LastName
	}

	for _, taxonomy := range record.Taxonomies {
		if taxonomy.Primary || p.Specialty == "" {
			p.Specialty = taxonomy.Desc
			if p.State == "" {
				p.State = taxonomy.State
			}
		}
	}
	for _, addr := range record.Addresses {
		if addr.AddressPurpose == "LOCATION" || p.City == "" {
			p.City = addr.City
			p.State = addr.State
		}
	}

	return p, nil
}
