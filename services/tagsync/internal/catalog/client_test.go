package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.Client(), srv.URL+"/tags.json")
	require.NoError(t, err)
	return client, srv
}

func TestFetchTags(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "/tags.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"source":"dcs","tags":[{"tag_no":"T1","description":"Steam flow","unit_name":"t/h","jm_input":4,"m_input":1,"perf_id":42}]}`))
	})

	payload, err := client.FetchTags(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "dcs", payload.Source)
	require.Len(t, payload.Tags, 1)
	assert.Equal(t, "T1", payload.Tags[0].TagNo)
	assert.Equal(t, 4, payload.Tags[0].JmInput)
	require.NotNil(t, payload.Tags[0].PerfID)
	assert.Equal(t, int64(42), *payload.Tags[0].PerfID)
}

func TestFetchTags_SourceDefaultsToHost(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tags":[{"tag_no":"T1"}]}`))
	})
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	payload, err := client.FetchTags(context.Background())

	require.NoError(t, err)
	assert.Equal(t, u.Host, payload.Source)
}

func TestFetchTags_EmptyCatalog(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"source":"dcs","tags":[]}`))
	})

	payload, err := client.FetchTags(context.Background())

	assert.ErrorIs(t, err, ErrEmptyCatalog)
	assert.Equal(t, "dcs", payload.Source)
}

func TestFetchTags_BadStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.FetchTags(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFetchTags_BadPayload(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tags":`))
	})

	_, err := client.FetchTags(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode payload")
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient(nil, "ftp://catalog.local/tags.json")
	assert.ErrorContains(t, err, "scheme must be http or https")

	_, err = NewClient(nil, "http://%zz")
	assert.ErrorContains(t, err, "invalid catalogue url")
}
