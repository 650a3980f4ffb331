// Package source fetches paper records from external catalogues.
package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/WessleyAI/researchdesk/engine/domain"
)

// arxivAPIBase is the arXiv query endpoint.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// DefaultLimit is the number of papers requested when the caller passes none.
const DefaultLimit = 5

// Config configures an Arxiv client.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// RequestInterval spaces outgoing requests. Zero disables pacing.
	RequestInterval time.Duration
}

// Arxiv queries the arXiv Atom API.
type Arxiv struct {
	client    *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
}

// NewArxiv creates an arXiv client.
func NewArxiv(cfg Config) *Arxiv {
	a := &Arxiv{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
	}
	if a.baseURL == "" {
		a.baseURL = arxivAPIBase
	}
	if a.userAgent == "" {
		a.userAgent = "researchdesk/1.0"
	}
	if cfg.Timeout <= 0 {
		a.client.Timeout = 30 * time.Second
	}
	if cfg.RequestInterval > 0 {
		a.limiter = rate.NewLimiter(rate.Every(cfg.RequestInterval), 1)
	}
	return a
}

// Name returns the source identifier.
func (a *Arxiv) Name() string { return "arxiv" }

// Search returns up to limit papers matching topic, in arXiv relevance order.
// Any transport, status or decoding failure is an ErrExternalFetch.
func (a *Arxiv) Search(ctx context.Context, topic string, limit int) ([]domain.Paper, error) {
	const op = "arxiv: search"
	if limit <= 0 {
		limit = DefaultLimit
	}
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, domain.FetchError(op, err)
		}
	}

	q := url.Values{}
	q.Set("search_query", "all:"+topic)
	q.Set("start", "0")
	q.Set("max_results", strconv.Itoa(limit))
	q.Set("sortBy", "relevance")
	q.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, domain.FetchError(op, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, domain.FetchError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.FetchError(op, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode))
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, domain.FetchError(op, fmt.Errorf("parsing arXiv response: %w", err))
	}

	papers := make([]domain.Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		if strings.Contains(e.ID, "/api/errors") {
			return nil, domain.FetchError(op, fmt.Errorf("arXiv API error: %s", collapse(e.Summary)))
		}
		papers = append(papers, domain.Paper{
			Title:    collapse(e.Title),
			Abstract: collapse(e.Summary),
			Year:     publishedYear(e.Published),
		})
		if len(papers) == limit {
			break
		}
	}
	return papers, nil
}

// arxivFeed is the subset of the Atom response we read.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
}

// collapse joins whitespace runs, including the hard line breaks arXiv puts
// in titles and abstracts, into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// publishedYear extracts the year of an RFC 3339 timestamp, falling back to
// its first four characters. Unparseable values yield 0.
func publishedYear(published string) int {
	published = strings.TrimSpace(published)
	if t, err := time.Parse(time.RFC3339, published); err == nil {
		return t.Year()
	}
	if len(published) >= 4 {
		if y, err := strconv.Atoi(published[:4]); err == nil {
			return y
		}
	}
	return 0
}
