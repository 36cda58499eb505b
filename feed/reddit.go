package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storybot/types"
)

// RedditClient reads the public JSON listing endpoints
type RedditClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewRedditClient creates a client for baseURL, e.g. https://www.reddit.com
func NewRedditClient(baseURL, userAgent string) *RedditClient {
	if userAgent == "" {
		userAgent = "storybot/1.0"
	}
	return &RedditClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type redditListing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string        `json:"after"`
		Children []redditThing `json:"children"`
	} `json:"data"`
}

type redditThing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"` // fullname, e.g. "t3_abc123"
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	NumComments int     `json:"num_comments"`
	Over18      bool    `json:"over_18"`
	Stickied    bool    `json:"stickied"`
	IsSelf      bool    `json:"is_self"`
	Score       int     `json:"score"`
	CreatedUTC  float64 `json:"created_utc"`
}

type redditComment struct {
	ID       string          `json:"id"`
	ParentID string          `json:"parent_id"`
	LinkID   string          `json:"link_id"`
	Body     string          `json:"body"`
	Author   string          `json:"author"`
	Stickied bool            `json:"stickied"`
	Score    int             `json:"score"`
	Depth    int             `json:"depth"`
	Replies  json.RawMessage `json:"replies"`
}

func (c *RedditClient) ListPosts(ctx context.Context, l Listing) (Page, error) {
	q := url.Values{}
	q.Set("raw_json", "1")
	if l.Limit > 0 {
		q.Set("limit", strconv.Itoa(min(l.Limit, 100)))
	}
	if l.Cursor != "" {
		q.Set("after", l.Cursor)
	}
	if l.Window != "" {
		q.Set("t", l.Window)
	}
	path := fmt.Sprintf("/r/%s/%s.json?%s", url.PathEscape(l.Source), url.PathEscape(l.Sort), q.Encode())

	var listing redditListing
	if err := c.getJSON(ctx, path, &listing); err != nil {
		return Page{}, err
	}
	posts, err := decodePosts(listing)
	if err != nil {
		return Page{}, err
	}
	return Page{Posts: posts, Next: listing.Data.After}, nil
}

func (c *RedditClient) Search(ctx context.Context, source, query string, limit int) ([]*types.Post, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("restrict_sr", "1")
	q.Set("sort", "relevance")
	q.Set("raw_json", "1")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := fmt.Sprintf("/r/%s/search.json?%s", url.PathEscape(source), q.Encode())

	var listing redditListing
	if err := c.getJSON(ctx, path, &listing); err != nil {
		return nil, err
	}
	return decodePosts(listing)
}

func (c *RedditClient) GetPost(ctx context.Context, id string) (*types.Post, error) {
	id = types.SanitizeID(id)
	if id == "" {
		return nil, fmt.Errorf("empty post id: %w", ErrNotFound)
	}
	var listing redditListing
	if err := c.getJSON(ctx, "/by_id/t3_"+id+".json?raw_json=1", &listing); err != nil {
		return nil, err
	}
	posts, err := decodePosts(listing)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	return posts[0], nil
}

func (c *RedditClient) GetComments(ctx context.Context, postID string) ([]*types.Comment, error) {
	postID = types.SanitizeID(postID)
	var listings []redditListing
	if err := c.getJSON(ctx, "/comments/"+postID+".json?raw_json=1&limit=500", &listings); err != nil {
		return nil, err
	}
	if len(listings) < 2 {
		return nil, nil
	}
	return decodeComments(listings[1], postID)
}

// getJSON performs a GET and maps failures onto the feed error classes
func (c *RedditClient) getJSON(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", ErrNetwork, err)
	}
	return nil
}

func classifyStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("upstream returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", ErrNetwork, msg)
	default:
		return errors.New(msg)
	}
}

func decodePosts(listing redditListing) ([]*types.Post, error) {
	posts := make([]*types.Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var rp redditPost
		if err := json.Unmarshal(child.Data, &rp); err != nil {
			return nil, fmt.Errorf("decode post: %w", err)
		}
		posts = append(posts, rp.toPost())
	}
	return posts, nil
}

func (rp redditPost) toPost() *types.Post {
	permalink := rp.Permalink
	if strings.HasPrefix(permalink, "/") {
		permalink = "https://www.reddit.com" + permalink
	}
	return &types.Post{
		ID:           rp.ID,
		Title:        rp.Title,
		Body:         rp.Selftext,
		Source:       rp.Subreddit,
		URL:          rp.URL,
		Permalink:    permalink,
		Author:       rp.Author,
		CommentCount: rp.NumComments,
		NSFW:         rp.Over18,
		Stickied:     rp.Stickied,
		IsSelf:       rp.IsSelf,
		Score:        rp.Score,
		CreatedAt:    sinceUnix(rp.CreatedUTC),
	}
}

// decodeComments converts a comment listing into a forest, preserving
// upstream sibling order. "more" placeholders are skipped.
func decodeComments(listing redditListing, postID string) ([]*types.Comment, error) {
	var out []*types.Comment
	for _, child := range listing.Data.Children {
		if child.Kind != "t1" {
			continue
		}
		var rc redditComment
		if err := json.Unmarshal(child.Data, &rc); err != nil {
			return nil, fmt.Errorf("decode comment: %w", err)
		}
		c := &types.Comment{
			ID:       rc.ID,
			PostID:   postID,
			Body:     rc.Body,
			Author:   rc.Author,
			Depth:    rc.Depth,
			Stickied: rc.Stickied,
			Score:    rc.Score,
		}
		if !strings.HasPrefix(rc.ParentID, "t3_") {
			c.ParentID = types.CommentID(rc.ParentID)
		}
		// replies is "" when empty and a listing otherwise
		if len(rc.Replies) > 0 && rc.Replies[0] == '{' {
			var replies redditListing
			if err := json.Unmarshal(rc.Replies, &replies); err != nil {
				return nil, fmt.Errorf("decode replies of %s: %w", rc.ID, err)
			}
			children, err := decodeComments(replies, postID)
			if err != nil {
				return nil, err
			}
			c.Replies = children
		}
		out = append(out, c)
	}
	return out, nil
}

func sinceUnix(sec float64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), 0).UTC()
}
