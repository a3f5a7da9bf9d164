package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rss-digest/config"
	"rss-digest/domain"
	"rss-digest/utils/logger"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Engineering Blog</title>
    <item>
      <title>Postgres at scale</title>
      <link>https://example.com/postgres</link>
      <description>How we &lt;b&gt;shard&lt;/b&gt; our cluster.&lt;script&gt;alert(1)&lt;/script&gt;</description>
      <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
    </item>
    <item>
      <title>No link item</title>
      <description>Should be skipped.</description>
    </item>
    <item>
      <title>Go generics in practice</title>
      <link>https://example.com/generics</link>
      <description>Lessons learned.</description>
    </item>
  </channel>
</rss>`

func fetchTestConfig() config.FetchConfig {
	return config.FetchConfig{
		Timeout:        5 * time.Second,
		UserAgent:      "rss-digest-test",
		MaxConcurrency: 2,
		MaxItemsPerRun: 200,
	}
}

func TestFeedFetcherService_Fetch(t *testing.T) {
	t.Run("should normalize and sanitize feed items", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/rss+xml")
			_, _ = w.Write([]byte(testRSS))
		}))
		defer server.Close()

		svc := NewFeedFetcherService(fetchTestConfig(), nil, logger.Logger)
		feed := &domain.Feed{ID: "feed-1", URL: server.URL}

		outcome := svc.Fetch(context.Background(), feed)

		require.NoError(t, outcome.Err)
		require.Len(t, outcome.Articles, 2)

		first := outcome.Articles[0]
		assert.Equal(t, "feed-1", first.FeedID)
		assert.Equal(t, "Postgres at scale", first.Title)
		assert.Equal(t, "https://example.com/postgres", first.Link)
		assert.Equal(t, domain.ArticleStatusNew, first.Status)
		assert.Equal(t, 2006, first.PublishedDate.Year())
		// Markup and scripts are stripped, text survives.
		assert.Equal(t, "How we shard our cluster.", first.Summary)

		// Items without a published date fall back to the fetch time.
		second := outcome.Articles[1]
		assert.WithinDuration(t, time.Now(), second.PublishedDate, time.Minute)
	})

	t.Run("should cap items per run", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(testRSS))
		}))
		defer server.Close()

		cfg := fetchTestConfig()
		cfg.MaxItemsPerRun = 1
		svc := NewFeedFetcherService(cfg, nil, logger.Logger)

		outcome := svc.Fetch(context.Background(), &domain.Feed{ID: "feed-1", URL: server.URL})

		require.NoError(t, outcome.Err)
		assert.Len(t, outcome.Articles, 1)
	})

	t.Run("should classify client errors as permanent", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		svc := NewFeedFetcherService(fetchTestConfig(), nil, logger.Logger)
		outcome := svc.Fetch(context.Background(), &domain.Feed{ID: "feed-1", URL: server.URL})

		require.Error(t, outcome.Err)
		assert.False(t, outcome.Transient)
	})

	t.Run("should classify server errors as transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		svc := NewFeedFetcherService(fetchTestConfig(), nil, logger.Logger)
		outcome := svc.Fetch(context.Background(), &domain.Feed{ID: "feed-1", URL: server.URL})

		require.Error(t, outcome.Err)
		assert.True(t, outcome.Transient)
	})

	t.Run("should classify network failures as transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		svc := NewFeedFetcherService(fetchTestConfig(), nil, logger.Logger)
		outcome := svc.Fetch(context.Background(), &domain.Feed{ID: "feed-1", URL: url})

		require.Error(t, outcome.Err)
		assert.True(t, outcome.Transient)
	})

	t.Run("should reject malformed URLs outright", func(t *testing.T) {
		svc := NewFeedFetcherService(fetchTestConfig(), nil, logger.Logger)
		outcome := svc.Fetch(context.Background(), &domain.Feed{ID: "feed-1", URL: "not a url"})

		require.Error(t, outcome.Err)
		assert.False(t, outcome.Transient)
	})
}
