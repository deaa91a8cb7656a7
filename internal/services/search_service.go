package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	cache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"pitchforge/internal/models"
)

const googleSearchEndpoint = "https://www.googleapis.com/customsearch/v1"

// SearchClient returns up to count web results for a query.
type SearchClient interface {
	Search(ctx context.Context, query string, count int) ([]models.SearchResult, error)
}

// GoogleSearchService queries the Google Custom Search JSON API. Results are
// cached briefly so repeated lookups for the same company within a session
// don't burn the search quota, and outbound calls are rate limited.
type GoogleSearchService struct {
	apiKey   string
	engineID string
	endpoint string
	client   *http.Client
	results  *cache.Cache
	limiter  *rate.Limiter
}

// NewGoogleSearchService creates a search client with the given credentials.
func NewGoogleSearchService(apiKey, engineID string) *GoogleSearchService {
	return &GoogleSearchService{
		apiKey:   apiKey,
		engineID: engineID,
		endpoint: googleSearchEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		results:  cache.New(5*time.Minute, time.Minute),
		// 2 req/s with a small burst keeps us well inside API quotas.
		limiter: rate.NewLimiter(rate.Limit(2), 4),
	}
}

// Search runs one query and returns at most count results.
func (s *GoogleSearchService) Search(ctx context.Context, query string, count int) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	cacheKey := fmt.Sprintf("%s:%d", strings.ToLower(query), count)
	if cached, found := s.results.Get(cacheKey); found {
		log.Printf("✅ [SEARCH] Cache hit for: %q", query)
		return cached.([]models.SearchResult), nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("search rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("key", s.apiKey)
	params.Set("cx", s.engineID)
	params.Set("q", query)
	params.Set("num", fmt.Sprintf("%d", count))

	req, err := http.NewRequestWithContext(ctx, "GET", s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search failed with status %d: %s", resp.StatusCode, string(body))
	}

	var searchResponse struct {
		Items []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Link    string `json:"link"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &searchResponse); err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	results := make([]models.SearchResult, 0, len(searchResponse.Items))
	for _, item := range searchResponse.Items {
		results = append(results, models.SearchResult{
			Title:   item.Title,
			Snippet: item.Snippet,
			Link:    item.Link,
		})
	}

	s.results.Set(cacheKey, results, cache.DefaultExpiration)
	log.Printf("🔍 [SEARCH] Found %d results for %q", len(results), query)
	return results, nil
}
