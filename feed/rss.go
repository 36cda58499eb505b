package feed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"storybot/types"

	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
)

const (
	WorkerCount      = 5
	extractorTimeout = 30 * time.Second
)

// RSSFeed reads listings from RSS/Atom documents. Items carry no comment
// forest, so it only serves story mode.
type RSSFeed struct {
	baseURL string
	parser  *gofeed.Parser
	extract bool

	mu    sync.RWMutex
	posts map[string]*types.Post
}

// NewRSSFeed creates a feed reading <baseURL>/r/<source>/<sort>/.rss.
// A source that is already an absolute URL is fetched as is. With extract set,
// link items without text get their article body pulled with readability.
func NewRSSFeed(baseURL, userAgent string, extract bool) *RSSFeed {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: 30 * time.Second}
	return &RSSFeed{
		baseURL: strings.TrimRight(baseURL, "/"),
		parser:  parser,
		extract: extract,
		posts:   make(map[string]*types.Post),
	}
}

func (f *RSSFeed) feedURL(source, sort string) string {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return source
	}
	if sort == "" {
		return fmt.Sprintf("%s/r/%s/.rss", f.baseURL, url.PathEscape(source))
	}
	return fmt.Sprintf("%s/r/%s/%s/.rss", f.baseURL, url.PathEscape(source), url.PathEscape(sort))
}

// ListPosts returns the single page an RSS document holds
func (f *RSSFeed) ListPosts(ctx context.Context, l Listing) (Page, error) {
	if l.Cursor != "" {
		return Page{}, nil
	}
	u := f.feedURL(l.Source, l.Sort)
	if l.Window != "" {
		u += "?t=" + url.QueryEscape(l.Window)
	}
	posts, err := f.fetch(ctx, u, l.Source, l.Limit)
	if err != nil {
		return Page{}, err
	}
	return Page{Posts: posts}, nil
}

// Search keeps the listing items whose title or body contains query
func (f *RSSFeed) Search(ctx context.Context, source, query string, limit int) ([]*types.Post, error) {
	posts, err := f.fetch(ctx, f.feedURL(source, ""), source, 0)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []*types.Post
	for _, p := range posts {
		if strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Body), q) {
			out = append(out, p)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// GetPost resolves ids seen in earlier listings
func (f *RSSFeed) GetPost(_ context.Context, id string) (*types.Post, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if p, ok := f.posts[types.SanitizeID(id)]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("post %s not in any fetched feed: %w", id, ErrNotFound)
}

// GetComments always returns an empty forest
func (f *RSSFeed) GetComments(context.Context, string) ([]*types.Comment, error) {
	return nil, nil
}

func (f *RSSFeed) fetch(ctx context.Context, feedURL, source string, limit int) ([]*types.Post, error) {
	parsed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, classifyFeedError(feedURL, err)
	}

	count := len(parsed.Items)
	if limit > 0 {
		count = min(count, limit)
	}
	posts := make([]*types.Post, 0, count)
	for _, item := range parsed.Items[:count] {
		posts = append(posts, itemToPost(item, source, parsed.Language))
	}

	if f.extract {
		ExtractAllContent(posts)
	}

	f.mu.Lock()
	for _, p := range posts {
		f.posts[p.ID] = p
	}
	f.mu.Unlock()
	return posts, nil
}

func classifyFeedError(feedURL string, err error) error {
	var httpErr gofeed.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s: %s", ErrRateLimited, feedURL, httpErr.Status)
		case httpErr.StatusCode == http.StatusNotFound, httpErr.StatusCode == http.StatusForbidden:
			return fmt.Errorf("%w: %s: %s", ErrNotFound, feedURL, httpErr.Status)
		case httpErr.StatusCode >= 500:
			return fmt.Errorf("%w: %s: %s", ErrNetwork, feedURL, httpErr.Status)
		}
		return fmt.Errorf("fetch %s: %w", feedURL, err)
	}
	if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
		return fmt.Errorf("parse %s: %w", feedURL, err)
	}
	return fmt.Errorf("%w: fetch %s: %w", ErrNetwork, feedURL, err)
}

func itemToPost(item *gofeed.Item, source, language string) *types.Post {
	// reddit GUIDs are fullnames (t3_xxx); other feeds fall back to a link hash
	id := types.SanitizeID(item.GUID)
	if id == "" || strings.Contains(item.GUID, "://") {
		id = types.GenerateID(item.Link)
	}

	var created time.Time
	if item.PublishedParsed != nil {
		created = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		created = *item.UpdatedParsed
	}

	author := ""
	if item.Author != nil {
		author = strings.TrimPrefix(item.Author.Name, "/u/")
	}

	html := item.Content
	if html == "" {
		html = item.Description
	}
	body := htmlText(html, item.Link)

	return &types.Post{
		ID:        id,
		Title:     item.Title,
		Body:      body,
		Source:    source,
		URL:       item.Link,
		Permalink: item.Link,
		Author:    author,
		Language:  language,
		IsSelf:    body != "",
		CreatedAt: created,
	}
}

// htmlText reduces an item's HTML payload to readable text
func htmlText(html, link string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	pageURL, _ := url.Parse(link)
	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil || strings.TrimSpace(article.TextContent) == "" {
		return strings.TrimSpace(html)
	}
	return strings.TrimSpace(article.TextContent)
}

// ExtractAllContent fills in the body of link posts using a worker pool
func ExtractAllContent(posts []*types.Post) {
	var wg sync.WaitGroup
	postChan := make(chan *types.Post, len(posts))

	for i := 0; i < WorkerCount; i++ {
		go func(workerID int) {
			for p := range postChan {
				if err := extractContent(p); err != nil {
					log.Printf("[Worker %d] Failed to extract %s: %v", workerID, p.URL, err)
				}
				wg.Done()
			}
		}(i)
	}

	for _, p := range posts {
		if p.IsSelf {
			continue
		}
		wg.Add(1)
		postChan <- p
	}

	wg.Wait()
	close(postChan)
}

func extractContent(p *types.Post) error {
	if p.URL == "" {
		return fmt.Errorf("post URL is empty")
	}
	article, err := readability.FromURL(p.URL, extractorTimeout)
	if err != nil {
		return fmt.Errorf("readability extraction failed: %w", err)
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil
	}
	p.Body = text
	p.IsSelf = true
	if p.Author == "" {
		p.Author = article.Byline
	}
	return nil
}
