// Package news serves the dashboard's static headline feed.
package news

import "time"

// Article is one headline card.
type Article struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	ImageURL    string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Source      string `json:"source"`
	Category    string `json:"category"`
}

// PublishedLabel formats PublishedAt for display, e.g. "May 16, 2025".
func (a Article) PublishedLabel() string {
	t, err := time.Parse(time.RFC3339, a.PublishedAt)
	if err != nil {
		return a.PublishedAt
	}
	return t.Format("Jan 2, 2006")
}

var categories = []string{"technology", "business", "health", "science", "entertainment", "sports"}

// Categories returns the feed's categories in tab order.
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

// Feed is a read-only article list.
type Feed struct {
	articles []Article
}

// NewFeed returns the built-in mock feed.
func NewFeed() *Feed {
	return &Feed{articles: mockArticles}
}

// All returns every article.
func (f *Feed) All() []Article {
	out := make([]Article, len(f.articles))
	copy(out, f.articles)
	return out
}

// ByCategory returns the articles in category. An unknown category yields
// an empty, non-nil slice.
func (f *Feed) ByCategory(category string) []Article {
	out := []Article{}
	for _, a := range f.articles {
		if a.Category == category {
			out = append(out, a)
		}
	}
	return out
}

var mockArticles = []Article{
	{
		ID:          "1",
		Title:       "New AI Model Achieves Breakthrough in Natural Language Understanding",
		Description: "Researchers have developed a new AI model that demonstrates unprecedented capabilities in understanding and generating human language, potentially revolutionizing how we interact with technology.",
		URL:         "#",
		ImageURL:    "https://images.unsplash.com/photo-1677442719798-e5c919a5fa3b",
		PublishedAt: "2025-05-16T14:32:00Z",
		Source:      "Tech Innovations",
		Category:    "technology",
	},
	{
		ID:          "2",
		Title:       "Global Markets React to Central Bank Policy Shift",
		Description: "Stock markets worldwide showed volatility as major central banks signaled a potential change in monetary policy, with investors reassessing their positions in anticipation of changing interest rates.",
		URL:         "#",
		ImageURL:    "https://images.unsplash.com/photo-1611974789855-9c2a0a7236a3",
		PublishedAt: "2025-05-17T08:45:00Z",
		Source:      "Financial Times",
		Category:    "business",
	},
	{
		ID:          "3",
		Title:       "New Study Reveals Benefits of Intermittent Exercise",
		Description: "Researchers have found that short bursts of exercise throughout the day may provide comparable health benefits to longer workout sessions, offering new options for those with busy schedules.",
		URL:         "#",
		ImageURL:    "https://images.unsplash.com/photo-1595078475328-1ab05d0a6a0e",
		PublishedAt: "2025-05-16T11:20:00Z",
		Source:      "Health Today",
		Category:    "health",
	},
	{
		ID:          "4",
		Title:       "Astronomers Discover Potentially Habitable Exoplanet",
		Description: "A team of astronomers has identified a new exoplanet within the habitable zone of its star, showing promising signs of conditions that could potentially support life.",
		URL:         "#",
		ImageURL:    "https://images.unsplash.com/photo-1462331940025-496dfbfc7564",
		PublishedAt: "2025-05-15T16:10:00Z",
		Source:      "Science Daily",
		Category:    "science",
	},
	{
		ID:          "5",
		Title:       "Award-Winning Director Announces Groundbreaking Virtual Reality Film",
		Description: "A renowned filmmaker has revealed plans for an innovative project that will blend traditional cinema with virtual reality technology, creating an immersive narrative experience.",
		URL:         "#",
		ImageURL:    "https://images.unsplash.com/photo-1485846234645-a62644f84728",
		PublishedAt: "2025-05-17T09:15:00Z",
		Source:      "Entertainment Weekly",
		Category:    "entertainment",
	},
	{
		ID:          "6",
		Title:       "Major Upset in International Tennis Tournament",
		Description: "An unexpected outcome in yesterday's championship match has surprised fans and analysts alike, potentially reshaping the rankings as the season progresses.",
		URL:         "#",
		ImageURL:    "https://images.unsplash.com/photo-1579355456684-f33b9f32e5c6",
		PublishedAt: "2025-05-16T22:05:00Z",
		Source:      "Sports Network",
		Category:    "sports",
	},
}
