package discogs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spinshelf/spinshelf/internal/config"
	"github.com/spinshelf/spinshelf/internal/loggy"
	"github.com/spinshelf/spinshelf/internal/throttle"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.DiscogsConfig{
		Username:  "crate-digger",
		Token:     "secret-token",
		BaseURL:   server.URL,
		UserAgent: "spinshelf-test/1.0",
		Timeout:   5 * time.Second,
		PerPage:   50,
	}

	// High budget so tests never stall on the bucket
	limiter := throttle.New(60000, 10, 2, loggy.NewNoopLogger())
	return NewClient(cfg, limiter, loggy.NewNoopLogger()), server
}

func TestListCollection(t *testing.T) {
	var gotPath, gotAuth, gotAgent string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")

		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "50", r.URL.Query().Get("per_page"))
		assert.Equal(t, "added", r.URL.Query().Get("sort"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"pagination": {"page": 2, "pages": 3, "per_page": 50, "items": 120},
			"releases": [
				{
					"instance_id": 7001,
					"basic_information": {
						"id": 249504,
						"title": "Unknown Pleasures",
						"year": 1979,
						"artists": [{"name": "Joy Division"}],
						"labels": [{"name": "Factory", "catno": "FACT 10"}],
						"genres": ["Rock"],
						"styles": ["Post-Punk"],
						"formats": [{"name": "Vinyl", "qty": "1", "descriptions": ["LP", "Album"]}]
					}
				}
			]
		}`)
	}))

	resp, err := client.ListCollection(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, "/users/crate-digger/collection/folders/0/releases", gotPath)
	assert.Equal(t, "Discogs token=secret-token", gotAuth)
	assert.Equal(t, "spinshelf-test/1.0", gotAgent)

	assert.Equal(t, 2, resp.Pagination.Page)
	assert.Equal(t, 3, resp.Pagination.Pages)
	require.Len(t, resp.Releases, 1)

	item := resp.Releases[0]
	assert.Equal(t, int64(7001), item.InstanceID)
	assert.Equal(t, int64(249504), item.BasicInfo.ID)
	assert.Equal(t, "Joy Division", item.BasicInfo.PrimaryArtist())

	label, catNo := item.BasicInfo.PrimaryLabel()
	assert.Equal(t, "Factory", label)
	assert.Equal(t, "FACT 10", catNo)
}

func TestListCollectionRetriesRateLimit(t *testing.T) {
	calls := 0

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"message": "You are making requests too quickly."}`)
			return
		}
		fmt.Fprint(w, `{"pagination": {"page": 1, "pages": 1, "per_page": 50, "items": 0}, "releases": []}`)
	}))

	resp, err := client.ListCollection(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "a single 429 should be retried transparently")
	assert.Empty(t, resp.Releases)
}

func TestListCollectionExhaustsRetries(t *testing.T) {
	calls := 0

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"message": "You are making requests too quickly."}`)
	}))

	_, err := client.ListCollection(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, throttle.ErrRetriesExhausted)
	assert.Equal(t, 3, calls)
}

func TestListCollectionPropagatesOtherErrors(t *testing.T) {
	calls := 0

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "Invalid consumer token."}`)
	}))

	_, err := client.ListCollection(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, 1, calls, "auth failures must not be retried")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid consumer token.", apiErr.Message)
}

func TestGetRelease(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/releases/249504", r.URL.Path)
		fmt.Fprint(w, `{"id": 249504, "title": "Unknown Pleasures", "year": 1979}`)
	}))

	release, err := client.GetRelease(context.Background(), 249504)
	require.NoError(t, err)
	assert.Equal(t, int64(249504), release.ID)
	assert.Equal(t, "Unknown Pleasures", release.Title)
	assert.Equal(t, 1979, release.Year)
}

func TestAddToCollection(t *testing.T) {
	t.Run("newly added", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/users/crate-digger/collection/folders/1/releases/249504", r.URL.Path)

			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"instance_id": 8123, "resource_url": "https://api.discogs.com/..."}`)
		}))

		result, err := client.AddToCollection(context.Background(), 249504)
		require.NoError(t, err)
		assert.Equal(t, StatusAdded, result.Status)
		assert.Equal(t, int64(8123), result.InstanceID)
		assert.Equal(t, int64(249504), result.ReleaseID)
	})

	t.Run("conflict means already present", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			fmt.Fprint(w, `{"message": "Release already in collection."}`)
		}))

		result, err := client.AddToCollection(context.Background(), 249504)
		require.NoError(t, err)
		assert.Equal(t, StatusAlreadyPresent, result.Status)
	})

	t.Run("server error propagates", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"message": "Something went wrong."}`)
		}))

		result, err := client.AddToCollection(context.Background(), 249504)
		require.Error(t, err)
		assert.Nil(t, result)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	})
}

func TestAPIErrorRetryAfterParsing(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"message": "You are making requests too quickly."}`)
	}))

	// Zero retries so the first rejection surfaces directly
	client.limiter = throttle.New(60000, 10, 0, loggy.NewNoopLogger())

	_, err := client.ListCollection(context.Background(), 1)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.RateLimited())
	assert.Equal(t, 7*time.Second, apiErr.RetryAfter())
}
