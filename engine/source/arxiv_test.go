package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WessleyAI/researchdesk/engine/domain"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>ArXiv Query</title>
  <entry>
    <id>http://arxiv.org/abs/2101.00001v1</id>
    <published>2021-01-04T18:59:59Z</published>
    <title>Quantum Error
      Correction at Scale</title>
    <summary>  We study surface codes.
  They scale.  </summary>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1905.00002v2</id>
    <published>2019-05-01</published>
    <title>Quantum Walks</title>
    <summary>Walks on graphs.</summary>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/0000.00003v1</id>
    <published>unknown</published>
    <title>Undated</title>
    <summary></summary>
  </entry>
</feed>`

func newTestArxiv(t *testing.T, h http.HandlerFunc) *Arxiv {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewArxiv(Config{BaseURL: srv.URL, UserAgent: "test-agent", Timeout: 5 * time.Second})
}

func TestArxivSearch_ParsesFeed(t *testing.T) {
	a := newTestArxiv(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "all:quantum computing", q.Get("search_query"))
		assert.Equal(t, "5", q.Get("max_results"))
		assert.Equal(t, "relevance", q.Get("sortBy"))
		assert.Equal(t, "descending", q.Get("sortOrder"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(sampleFeed))
	})

	papers, err := a.Search(context.Background(), "quantum computing", 5)
	require.NoError(t, err)
	require.Len(t, papers, 3)

	assert.Equal(t, domain.Paper{
		Title:    "Quantum Error Correction at Scale",
		Abstract: "We study surface codes. They scale.",
		Year:     2021,
	}, papers[0])
	assert.Equal(t, 2019, papers[1].Year, "date-only published falls back to prefix")
	assert.Equal(t, 0, papers[2].Year)
	assert.Empty(t, papers[2].Abstract)
}

func TestArxivSearch_DefaultAndTruncatedLimit(t *testing.T) {
	var gotMax atomic.Value
	a := newTestArxiv(t, func(w http.ResponseWriter, r *http.Request) {
		gotMax.Store(r.URL.Query().Get("max_results"))
		_, _ = w.Write([]byte(sampleFeed))
	})

	papers, err := a.Search(context.Background(), "quantum", 0)
	require.NoError(t, err)
	assert.Equal(t, "5", gotMax.Load())
	assert.Len(t, papers, 3)

	papers, err = a.Search(context.Background(), "quantum", 2)
	require.NoError(t, err)
	assert.Len(t, papers, 2, "extra entries are ignored")
}

func TestArxivSearch_EmptyFeed(t *testing.T) {
	a := newTestArxiv(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	})
	papers, err := a.Search(context.Background(), "nothing", 5)
	require.NoError(t, err)
	assert.Empty(t, papers)
}

func TestArxivSearch_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}},
		{"rate limited", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}},
		{"malformed xml", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<feed><entry>"))
		}},
		{"api error entry", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"><entry>
				<id>http://arxiv.org/api/errors#incorrect_id_format</id>
				<title>Error</title><summary>incorrect id format</summary></entry></feed>`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestArxiv(t, tt.handler)
			papers, err := a.Search(context.Background(), "quantum", 5)
			require.Error(t, err)
			assert.Nil(t, papers)
			assert.True(t, errors.Is(err, domain.ErrExternalFetch), "got %v", err)
		})
	}
}

func TestArxivSearch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	a := NewArxiv(Config{BaseURL: url, Timeout: time.Second})
	_, err := a.Search(context.Background(), "quantum", 5)
	require.ErrorIs(t, err, domain.ErrExternalFetch)
}

func TestArxivSearch_LimiterHonoursContext(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(sampleFeed))
	}))
	t.Cleanup(srv.Close)

	a := NewArxiv(Config{BaseURL: srv.URL, RequestInterval: time.Hour})
	_, err := a.Search(context.Background(), "quantum", 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = a.Search(ctx, "quantum", 1)
	require.ErrorIs(t, err, domain.ErrExternalFetch)
	assert.Equal(t, int32(1), calls.Load(), "second request must wait for the limiter")
}

func TestPublishedYear(t *testing.T) {
	assert.Equal(t, 2023, publishedYear("2023-07-15T10:00:00Z"))
	assert.Equal(t, 1999, publishedYear(" 1999-12 "))
	assert.Equal(t, 0, publishedYear("abc"))
	assert.Equal(t, 0, publishedYear(""))
}
