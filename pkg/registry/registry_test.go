package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orgResponse = `{
	"result_count": 1,
	"results": [{
		"number": "1234567890",
		"basic": {"organization_name": "RIVERSIDE HOME HEALTH LLC"},
		"taxonomies": [
			{"desc": "Home Health", "state": "TX", "primary": true},
			{"desc": "Nursing Care", "state": "TX", "primary": false}
		],
		"addresses": [
			{"city": "AUSTIN", "state": "TX", "address_purpose": "MAILING"},
			{"city": "HOUSTON", "state": "TX", "address_purpose": "LOCATION"}
		]
	}]
}`

const individualResponse = `{
	"result_count": 1,
	"results": [{
		"number": "1098765432",
		"basic": {"first_name": "JANE", "last_name": "SMITH"},
		"taxonomies": [{"desc": "Internal Medicine", "state": "OH", "primary": true}],
		"addresses": []
	}]
}`

func TestLookupOrganization(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(orgResponse))
	}))
	defer srv.Close()

	c := New(srv.URL)
	p, err := c.Lookup(context.Background(), "1234567890")
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "number=1234567890")
	assert.Contains(t, gotQuery, "version=2.1")
	assert.Equal(t, "1234567890", p.NPI)
	assert.Equal(t, "RIVERSIDE HOME HEALTH LLC", p.Name)
	assert.Equal(t, "Home Health", p.Specialty)
	assert.Equal(t, "HOUSTON", p.City)
	assert.Equal(t, "TX", p.State)
}

func TestLookupIndividualName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(individualResponse))
	}))
	defer srv.Close()

	c := New(srv.URL)
	p, err := c.Lookup(context.Background(), "1098765432")
	require.NoError(t, err)

	assert.Equal(t, "JANE SMITH", p.Name)
	assert.Equal(t, "Internal Medicine", p.Specialty)
	assert.Equal(t, "OH", p.State)
}

func TestLookupNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result_count": 0, "results": []}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Lookup(context.Background(), "0000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Lookup(context.Background(), "1234567890")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestLookupMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Lookup(context.Background(), "1234567890")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestLookupRespectsCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(orgResponse))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(srv.URL)
	_, err := c.Lookup(ctx, "1234567890")
	assert.Error(t, err)
}
