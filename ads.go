package tattle

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"
)

// Ad and analytics script injection. Failures here are cosmetic: a bad or
// missing identifier produces no tags, never an error that blocks rendering.

const (
	adsenseScriptBase   = "https://pagead2.googlesyndication.com/pagead/js/adsbygoogle.js"
	analyticsScriptBase = "https://www.googletagmanager.com/gtag/js"
)

// ScriptInjector accumulates third-party script tags for one page render,
// deduplicating by script URL so a tag is never injected twice even when
// several components ask for it.
type ScriptInjector struct {
	seen map[string]bool
	tags []string
}

// NewScriptInjector returns an empty injector for a single page render.
func NewScriptInjector() *ScriptInjector {
	return &ScriptInjector{seen: make(map[string]bool)}
}

// Add registers the script tags required by the settings record. Calling it
// again with the same settings is a no-op.
func (si *ScriptInjector) Add(s Settings) {
	if s.AdsEnabled && s.AdSenseClientID != "" {
		src := adsenseScriptBase + "?client=" + url.QueryEscape(s.AdSenseClientID)
		si.add(src, fmt.Sprintf(
			`<script async src=%q crossorigin="anonymous"></script>`, src))
	}
	if s.AnalyticsID != "" {
		src := analyticsScriptBase + "?id=" + url.QueryEscape(s.AnalyticsID)
		si.add(src, fmt.Sprintf(
			`<script async src=%q></script><script>window.dataLayer=window.dataLayer||[];function gtag(){dataLayer.push(arguments);}gtag('js',new Date());gtag('config',%q);</script>`,
			src, html.EscapeString(s.AnalyticsID)))
	}
}

func (si *ScriptInjector) add(key, tag string) {
	if si.seen[key] {
		return
	}
	si.seen[key] = true
	si.tags = append(si.tags, tag)
}

// Tags returns the accumulated script tags in insertion order.
func (si *ScriptInjector) Tags() []string {
	return si.tags
}

// Component renders the accumulated tags as a templ component for the
// page <head>.
func (si *ScriptInjector) Component() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, strings.Join(si.tags, "\n"))
		return err
	})
}

// AdSlotHTML returns the in-feed AdSense unit markup, or "" when ads are
// not fully configured.
func AdSlotHTML(s Settings) string {
	if !s.AdsEnabled || s.AdSenseClientID == "" || s.AdSenseSlotID == "" {
		return ""
	}
	return fmt.Sprintf(
		`<ins class="adsbygoogle" style="display:block" data-ad-format="fluid" data-ad-client=%q data-ad-slot=%q></ins><script>(adsbygoogle=window.adsbygoogle||[]).push({});</script>`,
		html.EscapeString(s.AdSenseClientID), html.EscapeString(s.AdSenseSlotID))
}

// InterleaveAds turns the article list into feed entries with an ad slot
// after every interval articles. With ads disabled, unconfigured, or a
// non-positive interval the feed passes through untouched.
func InterleaveAds(articles []Article, s Settings) []FeedEntry {
	entries := make([]FeedEntry, 0, len(articles))
	inject := s.AdsEnabled && s.AdSenseClientID != "" && s.AdSenseSlotID != "" && s.AdInterval > 0
	for i, a := range articles {
		entries = append(entries, FeedEntry{Article: a})
		if inject && (i+1)%s.AdInterval == 0 && i != len(articles)-1 {
			entries = append(entries, FeedEntry{AdSlot: true})
		}
	}
	return entries
}
