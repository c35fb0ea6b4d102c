package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/edurag/courseta-go/internal/content"
)

const (
	forumTimeout = 10 * time.Second
	// forumRequestsPerSecond paces topic and post requests so a large
	// category does not hammer the forum.
	forumRequestsPerSecond = 2
)

// defaultCategoryKeywords are matched (case-insensitively) against category
// names to locate the course category.
var defaultCategoryKeywords = []string{"tools in data science", "tds"}

// ForumConfig configures the Discourse forum fetcher.
type ForumConfig struct {
	// BaseURL is the forum root, e.g. "https://discourse.onlinedegree.iitm.ac.in".
	BaseURL string
	// Cookies holds the session cookies required for authenticated reads,
	// keyed by cookie name (typically "_t" and "_forum_session").
	Cookies map[string]string
	// CategoryKeywords override defaultCategoryKeywords when non-empty.
	CategoryKeywords []string
	// FallbackCategoryID is used when no category name matches the
	// keywords. Zero disables the fallback.
	FallbackCategoryID int
	// Start and End bound the post window; both ends are inclusive. Posts
	// created outside the window are skipped.
	Start time.Time
	End   time.Time
	// Logger defaults to slog.Default when nil.
	Logger *slog.Logger
}

// Forum fetches posts from the course category of a Discourse forum. Each
// post within the configured date window becomes one document whose URL
// points at the post's position in its topic.
type Forum struct {
	cfg     ForumConfig
	client  *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewForum builds the forum fetcher from cfg.
func NewForum(cfg ForumConfig) (*Forum, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("discourse forum: base url is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if len(cfg.CategoryKeywords) == 0 {
		cfg.CategoryKeywords = defaultCategoryKeywords
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Forum{
		cfg:     cfg,
		client:  &http.Client{Timeout: forumTimeout},
		limiter: rate.NewLimiter(rate.Limit(forumRequestsPerSecond), 1),
		log:     log,
	}, nil
}

// Name implements Fetcher.
func (f *Forum) Name() string { return "discourse" }

type forumUser struct {
	CurrentUser struct {
		Username string `json:"username"`
	} `json:"current_user"`
}

type forumCategory struct {
	ID              int             `json:"id"`
	Name            string          `json:"name"`
	SubcategoryList []forumCategory `json:"subcategory_list"`
}

type forumCategories struct {
	CategoryList struct {
		Categories []forumCategory `json:"categories"`
	} `json:"category_list"`
}

type forumTopic struct {
	ID         int       `json:"id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
	LastPosted time.Time `json:"last_posted_at"`
}

type forumTopicList struct {
	TopicList struct {
		Topics []forumTopic `json:"topics"`
	} `json:"topic_list"`
}

type forumPost struct {
	ID         int       `json:"id"`
	PostNumber int       `json:"post_number"`
	Cooked     string    `json:"cooked"`
	CreatedAt  time.Time `json:"created_at"`
}

type forumPosts struct {
	PostStream struct {
		Posts []forumPost `json:"posts"`
	} `json:"post_stream"`
}

// Fetch authenticates against the forum, resolves the course category, and
// collects every post created within the configured window.
func (f *Forum) Fetch(ctx context.Context) ([]RawDocument, error) {
	if err := f.checkSession(ctx); err != nil {
		return nil, fmt.Errorf("discourse forum: session check: %w", err)
	}

	categoryID, err := f.resolveCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("discourse forum: resolve category: %w", err)
	}

	topics, err := f.listTopics(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("discourse forum: list topics: %w", err)
	}

	var docs []RawDocument
	for _, topic := range topics {
		// Skip topics whose whole activity span falls outside the window.
		if topic.CreatedAt.After(f.cfg.End) {
			continue
		}
		if !topic.LastPosted.IsZero() && topic.LastPosted.Before(f.cfg.Start) {
			continue
		}

		posts, err := f.listPosts(ctx, topic.ID)
		if err != nil {
			f.log.Warn("skipping forum topic",
				slog.Int("topic_id", topic.ID),
				slog.Any("error", err),
			)
			continue
		}

		for _, post := range posts {
			if !f.inWindow(post.CreatedAt) {
				continue
			}
			docs = append(docs, RawDocument{
				Source:    content.SourceDiscourse,
				Content:   post.Cooked,
				URL:       fmt.Sprintf("%s/t/%d/%d", f.cfg.BaseURL, topic.ID, post.PostNumber),
				Title:     topic.Title,
				CreatedAt: post.CreatedAt,
			})
		}
	}

	f.log.Info("fetched forum posts",
		slog.Int("category_id", categoryID),
		slog.Int("topics", len(topics)),
		slog.Int("posts", len(docs)),
	)
	return docs, nil
}

// inWindow reports whether ts falls inside [Start, End], both inclusive.
func (f *Forum) inWindow(ts time.Time) bool {
	return !ts.Before(f.cfg.Start) && !ts.After(f.cfg.End)
}

// checkSession verifies the configured cookies belong to a live session.
// An invalid session is a permanent failure: the forum serves private
// categories only to authenticated users.
func (f *Forum) checkSession(ctx context.Context) error {
	var user forumUser
	err := WithRetry(ctx, f.log, "check forum session", func() error {
		return f.getJSON(ctx, "/session/current.json", &user)
	})
	if err != nil {
		return err
	}
	f.log.Debug("forum session valid", slog.String("username", user.CurrentUser.Username))
	return nil
}

// resolveCategory finds the course category by keyword match over category
// and subcategory names, falling back to the configured category id.
func (f *Forum) resolveCategory(ctx context.Context) (int, error) {
	var cats forumCategories
	err := WithRetry(ctx, f.log, "list forum categories", func() error {
		return f.getJSON(ctx, "/categories.json?include_subcategories=true", &cats)
	})
	if err != nil {
		return 0, err
	}

	for _, cat := range cats.CategoryList.Categories {
		if id, ok := matchCategory(cat, f.cfg.CategoryKeywords); ok {
			return id, nil
		}
	}

	if f.cfg.FallbackCategoryID != 0 {
		f.log.Warn("no category matched keywords, using fallback",
			slog.Int("category_id", f.cfg.FallbackCategoryID),
		)
		return f.cfg.FallbackCategoryID, nil
	}
	return 0, errors.New("no category matched keywords")
}

// matchCategory checks cat and its subcategories against the keywords,
// preferring the deepest match.
func matchCategory(cat forumCategory, keywords []string) (int, bool) {
	for _, sub := range cat.SubcategoryList {
		if id, ok := matchCategory(sub, keywords); ok {
			return id, true
		}
	}
	name := strings.ToLower(cat.Name)
	for _, kw := range keywords {
		if strings.Contains(name, kw) {
			return cat.ID, true
		}
	}
	return 0, false
}

// listTopics pages through the category's topic list. Pagination stops on an
// empty page, or on a page that adds no topics not already seen: some proxies
// ignore the page parameter and would otherwise serve page zero forever.
func (f *Forum) listTopics(ctx context.Context, categoryID int) ([]forumTopic, error) {
	var topics []forumTopic
	seen := make(map[int]bool)
	for page := 0; ; page++ {
		var list forumTopicList
		path := fmt.Sprintf("/c/%d.json?page=%d", categoryID, page)
		err := WithRetry(ctx, f.log, "list forum topics", func() error {
			return f.getJSON(ctx, path, &list)
		})
		if err != nil {
			return nil, err
		}

		added := 0
		for _, topic := range list.TopicList.Topics {
			if seen[topic.ID] {
				continue
			}
			seen[topic.ID] = true
			topics = append(topics, topic)
			added++
		}
		if added == 0 {
			return topics, nil
		}
	}
}

// listPosts retrieves the post stream of one topic.
func (f *Forum) listPosts(ctx context.Context, topicID int) ([]forumPost, error) {
	var posts forumPosts
	path := fmt.Sprintf("/t/%d.json", topicID)
	err := WithRetry(ctx, f.log, "list forum posts", func() error {
		return f.getJSON(ctx, path, &posts)
	})
	if err != nil {
		return nil, err
	}
	return posts.PostStream.Posts, nil
}

// getJSON performs a paced, cookie-authenticated GET against the forum and
// decodes the JSON response into out.
func (f *Forum) getJSON(ctx context.Context, path string, out any) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for name, value := range f.cfg.Cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &HTTPStatusError{Status: resp.StatusCode, URL: f.cfg.BaseURL + path}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
