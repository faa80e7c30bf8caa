package source

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/mmcdole/gofeed"
)

// DefaultFeedLimit is the number of feed items read when no limit is given.
const DefaultFeedLimit = 5

// FeedEntry is one feed item reduced to plain text.
type FeedEntry struct {
	URL           string
	Title         string
	PublishedDate string // YYYY-MM-DD or empty
	Content       string
}

// Text is the input handed to the pipeline: the title followed by the
// item's content.
func (e FeedEntry) Text() string {
	if e.Content == "" {
		return e.Title
	}
	return e.Title + "\n\n" + e.Content
}

// ReadFeed parses the feed at feedURL and returns up to limit entries in
// feed order.
func ReadFeed(ctx context.Context, feedURL string, limit int) ([]FeedEntry, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}

	feed, err := gofeed.NewParser().ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}

	var entries []FeedEntry
	for _, item := range feed.Items {
		if len(entries) >= limit {
			break
		}
		if entry := parseItem(item); entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func parseItem(item *gofeed.Item) *FeedEntry {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}

	var publishedDate string
	if item.PublishedParsed != nil {
		publishedDate = item.PublishedParsed.Format("2006-01-02")
	} else if item.UpdatedParsed != nil {
		publishedDate = item.UpdatedParsed.Format("2006-01-02")
	}

	var content string
	if item.Content != "" {
		content = stripHTML(item.Content)
	} else if item.Description != "" {
		content = stripHTML(item.Description)
	}

	return &FeedEntry{
		URL:           itemURL,
		Title:         title,
		PublishedDate: publishedDate,
		Content:       content,
	}
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := html.UnescapeString(result.String())
	return strings.Join(strings.Fields(s), " ")
}
