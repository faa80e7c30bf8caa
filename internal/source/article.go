package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// minArticleChars is the shortest extracted text accepted as an article.
const minArticleChars = 100

// Article is readable text extracted from a web page.
type Article struct {
	URL   string
	Title string
	Text  string
}

// Fetcher downloads web pages and extracts their main text.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher. A zero timeout selects 15 seconds.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FetchArticle downloads articleURL and returns its readable text.
func (f *Fetcher) FetchArticle(ctx context.Context, articleURL string) (*Article, error) {
	parsedURL, err := url.Parse(articleURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid article URL %q", articleURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "sentiscope/1.0 (sentiment analysis)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", articleURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetching %s: %s", articleURL, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*maxInputBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", articleURL, err)
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("extracting article: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minArticleChars {
		return nil, fmt.Errorf("no extractable content from %s", articleURL)
	}

	slog.Info("[Source] Fetched article", slog.String("title", article.Title), slog.Int("chars", len(text)))
	return &Article{URL: articleURL, Title: article.Title, Text: text}, nil
}
