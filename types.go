package tattle

import "time"

// Article is the core content type: one publishable story in the feed.
// JSON tags cover both the file store and the seed data format.
type Article struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	SlugLocked bool      `json:"slugLocked,omitempty"`
	Category   string    `json:"category"`
	Image      string    `json:"image"`
	Author     string    `json:"author,omitempty"`
	Content    string    `json:"content"`
	EmbedURL   string    `json:"embedUrl,omitempty"`
	Order      *int      `json:"order,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`

	// Origin is assigned during reconciliation and never persisted.
	Origin Origin `json:"-"`
}

// Path returns the canonical URL path for the article.
func (a Article) Path() string {
	return "/" + a.Category + "/" + a.Slug + "/"
}

// Origin classifies where an article in the canonical feed came from.
type Origin int

const (
	OriginUnknown Origin = iota
	OriginDefault        // shipped with the seed data set
	OriginLocal          // authored (or overridden) through the admin
	OriginDeletedDefault // seed article hidden by a soft-delete marker
)

func (o Origin) String() string {
	switch o {
	case OriginDefault:
		return "default"
	case OriginLocal:
		return "local"
	case OriginDeletedDefault:
		return "deleted-default"
	}
	return "unknown"
}

// Settings is the single global record read by every page and written only
// from the admin settings screen. It is loaded once at startup and passed
// explicitly to the components that need it.
type Settings struct {
	AdSenseClientID string `json:"adsenseId"`
	AdSenseSlotID   string `json:"adsenseSlotId,omitempty"`
	AdMobAppID      string `json:"admobAppId,omitempty"`
	AdMobUnitID     string `json:"admobUnitId,omitempty"`
	AnalyticsID     string `json:"analyticsId,omitempty"`
	AdsEnabled      bool   `json:"adsEnabled"`
	AdInterval      int    `json:"adInterval"` // feed positions between ad slots
}

// FeedEntry is one row of the rendered home feed: either an article or an
// injected ad slot.
type FeedEntry struct {
	Article Article
	AdSlot  bool
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
}

// DefaultCategories is the category set validated on save unless the site
// enables open categories.
var DefaultCategories = []string{"news", "gossip", "politics", "entertainment", "reality-tv", "opinion"}
