package tattle

import (
	"strings"
	"testing"
)

func adSettings() Settings {
	return Settings{
		AdsEnabled:      true,
		AdSenseClientID: "ca-pub-123",
		AdSenseSlotID:   "456",
		AnalyticsID:     "G-TEST",
		AdInterval:      2,
	}
}

func TestScriptInjectorDeduplicates(t *testing.T) {
	si := NewScriptInjector()
	si.Add(adSettings())
	si.Add(adSettings())

	tags := si.Tags()
	if len(tags) != 2 {
		t.Fatalf("got %d tags, want 2 (adsense + analytics)", len(tags))
	}
	joined := strings.Join(tags, "")
	if !strings.Contains(joined, "adsbygoogle.js") {
		t.Error("missing adsense loader")
	}
	if !strings.Contains(joined, "googletagmanager.com/gtag/js") || !strings.Contains(joined, "G-TEST") {
		t.Error("missing analytics tag")
	}
}

func TestScriptInjectorDisabled(t *testing.T) {
	si := NewScriptInjector()
	si.Add(Settings{AdSenseClientID: "ca-pub-123"}) // ads not enabled
	if len(si.Tags()) != 0 {
		t.Errorf("tags = %v", si.Tags())
	}
}

func TestAdSlotHTML(t *testing.T) {
	if got := AdSlotHTML(adSettings()); !strings.Contains(got, "ca-pub-123") || !strings.Contains(got, "456") {
		t.Errorf("slot markup = %q", got)
	}
	if got := AdSlotHTML(Settings{AdsEnabled: true, AdSenseClientID: "c"}); got != "" {
		t.Errorf("incomplete config should yield no markup, got %q", got)
	}
}

func TestInterleaveAdsEveryInterval(t *testing.T) {
	articles := []Article{
		seedAt("1", "A", 1), seedAt("2", "B", 2), seedAt("3", "C", 3),
		seedAt("4", "D", 4), seedAt("5", "E", 5),
	}
	entries := InterleaveAds(articles, adSettings())

	var got []string
	for _, e := range entries {
		if e.AdSlot {
			got = append(got, "ad")
		} else {
			got = append(got, e.Article.ID)
		}
	}
	want := []string{"1", "2", "ad", "3", "4", "ad", "5"}
	if len(got) != len(want) {
		t.Fatalf("sequence = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sequence = %v, want %v", got, want)
		}
	}
}

// An ad never trails the last article.
func TestInterleaveAdsNoTrailingSlot(t *testing.T) {
	articles := []Article{seedAt("1", "A", 1), seedAt("2", "B", 2)}
	entries := InterleaveAds(articles, adSettings())
	if entries[len(entries)-1].AdSlot {
		t.Error("trailing ad slot")
	}
}

func TestInterleaveAdsPassThrough(t *testing.T) {
	articles := []Article{seedAt("1", "A", 1), seedAt("2", "B", 2), seedAt("3", "C", 3)}

	cases := map[string]Settings{
		"disabled":     {AdSenseClientID: "c", AdSenseSlotID: "s", AdInterval: 1},
		"no slot":      {AdsEnabled: true, AdSenseClientID: "c", AdInterval: 1},
		"zero interval": {AdsEnabled: true, AdSenseClientID: "c", AdSenseSlotID: "s"},
	}
	for name, s := range cases {
		entries := InterleaveAds(articles, s)
		if len(entries) != len(articles) {
			t.Errorf("%s: %d entries, want %d", name, len(entries), len(articles))
		}
		for _, e := range entries {
			if e.AdSlot {
				t.Errorf("%s: unexpected ad slot", name)
			}
		}
	}
}
