package tattle

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/tattle/markdown"
)

// DefaultViews returns a plain-HTML view set so a site runs before any
// custom templ templates exist. Real deployments are expected to replace
// some or all of these via ViewFuncs.

func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:          defaultHome,
		Article:       defaultArticle,
		AdminLogin:    defaultAdminLogin,
		AdminDash:     defaultAdminDash,
		AdminEditor:   defaultAdminEditor,
		AdminSettings: defaultAdminSettings,
		NotFound:      defaultNotFound,
		ServerError:   defaultServerError,
	}
}

func htmlComponent(render func(w io.Writer) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return render(w)
	})
}

func writePageTop(w io.Writer, title string, settings Settings) {
	injector := NewScriptInjector()
	injector.Add(settings)
	fmt.Fprintf(w, `<!doctype html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>%s</title>%s</head><body>`,
		html.EscapeString(title), strings.Join(injector.Tags(), ""))
}

func defaultHome(entries []FeedEntry, activeCategory string, categories []string, site SiteConfig, settings Settings) templ.Component {
	return htmlComponent(func(w io.Writer) error {
		writePageTop(w, site.Name, settings)
		fmt.Fprintf(w, `<header><h1><a href="/">%s</a></h1><nav>`, html.EscapeString(site.Name))
		for _, c := range categories {
			class := ""
			if c == activeCategory {
				class = ` class="active"`
			}
			fmt.Fprintf(w, `<a href="/?category=%s"%s>%s</a> `, html.EscapeString(c), class, html.EscapeString(c))
		}
		io.WriteString(w, `</nav></header><main class="grid">`)
		for _, e := range entries {
			if e.AdSlot {
				fmt.Fprintf(w, `<div class="ad">%s</div>`, AdSlotHTML(settings))
				continue
			}
			a := e.Article
			fmt.Fprintf(w, `<article><a href="%s"><img src="%s" alt="" loading="lazy"><h2>%s</h2></a><span class="category">%s</span></article>`,
				a.Path(), html.EscapeString(a.Image), html.EscapeString(a.Title), html.EscapeString(a.Category))
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

func defaultArticle(a Article, related []Article, site SiteConfig, settings Settings) templ.Component {
	return htmlComponent(func(w io.Writer) error {
		writePageTop(w, a.Title+" — "+site.Name, settings)
		fmt.Fprintf(w, `<script type="application/ld+json">%s</script>`, NewsArticleJsonLD(a, site))
		fmt.Fprintf(w, `<header><a href="/">%s</a></header><main><article><h1>%s</h1><img src="%s" alt="">`,
			html.EscapeString(site.Name), html.EscapeString(a.Title), html.EscapeString(a.Image))
		if err := markdown.Body(a.Content).Render(context.Background(), w); err != nil {
			return err
		}
		if embed := markdown.EmbedHTML(a.EmbedURL); embed != "" {
			io.WriteString(w, embed)
		}
		io.WriteString(w, `</article>`)
		if len(related) > 0 {
			io.WriteString(w, `<aside><h3>More like this</h3><ul>`)
			for _, r := range related {
				fmt.Fprintf(w, `<li><a href="%s">%s</a></li>`, r.Path(), html.EscapeString(r.Title))
			}
			io.WriteString(w, `</ul></aside>`)
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

func defaultAdminLogin(showError bool, csrfToken string) templ.Component {
	return htmlComponent(func(w io.Writer) error {
		writePageTop(w, "Admin", Settings{})
		if showError {
			io.WriteString(w, `<p class="error">Wrong password.</p>`)
		}
		fmt.Fprintf(w, `<form method="post" action="/admin/login/"><input type="hidden" name="_csrf" value="%s"><input type="password" name="password" autofocus><button>Log in</button></form></body></html>`,
			html.EscapeString(csrfToken))
		return nil
	})
}

func defaultAdminDash(articles []Article, views map[string]int, message string, csrfToken string) templ.Component {
	return htmlComponent(func(w io.Writer) error {
		writePageTop(w, "Dashboard", Settings{})
		if message != "" {
			fmt.Fprintf(w, `<p class="msg">%s</p>`, html.EscapeString(message))
		}
		io.WriteString(w, `<p><a href="/admin/new/">New story</a> · <a href="/admin/settings/">Settings</a></p><table><tr><th>Title</th><th>Category</th><th>Origin</th><th>Views</th></tr>`)
		for _, a := range articles {
			fmt.Fprintf(w, `<tr data-id="%s"><td><a href="/admin/article/%s/">%s</a></td><td>%s</td><td>%s</td><td>%d</td></tr>`,
				html.EscapeString(a.ID), html.EscapeString(a.ID), html.EscapeString(a.Title),
				html.EscapeString(a.Category), a.Origin, views[a.ID])
		}
		_, err := io.WriteString(w, `</table></body></html>`)
		return err
	})
}

func defaultAdminEditor(a Article, isNew bool, csrfToken string) templ.Component {
	return htmlComponent(func(w io.Writer) error {
		writePageTop(w, "Editor", Settings{})
		fmt.Fprintf(w, `<form method="post" action="/admin/save/"><input type="hidden" name="_csrf" value="%s">`, html.EscapeString(csrfToken))
		if !isNew {
			fmt.Fprintf(w, `<input type="hidden" name="id" value="%s">`, html.EscapeString(a.ID))
		}
		fmt.Fprintf(w, `<input name="title" value="%s" placeholder="Title">`, html.EscapeString(a.Title))
		fmt.Fprintf(w, `<input name="slug" value="%s" placeholder="Slug (optional)">`, html.EscapeString(a.Slug))
		fmt.Fprintf(w, `<input name="category" value="%s" placeholder="Category">`, html.EscapeString(a.Category))
		fmt.Fprintf(w, `<input name="image" value="%s" placeholder="Image URL">`, html.EscapeString(a.Image))
		fmt.Fprintf(w, `<input name="author" value="%s" placeholder="Author">`, html.EscapeString(a.Author))
		fmt.Fprintf(w, `<input name="embed_url" value="%s" placeholder="Embed URL">`, html.EscapeString(a.EmbedURL))
		fmt.Fprintf(w, `<textarea name="content">%s</textarea>`, html.EscapeString(a.Content))
		_, err := io.WriteString(w, `<button>Save</button></form></body></html>`)
		return err
	})
}

func defaultAdminSettings(s Settings, message string, csrfToken string) templ.Component {
	return htmlComponent(func(w io.Writer) error {
		writePageTop(w, "Settings", Settings{})
		if message != "" {
			fmt.Fprintf(w, `<p class="msg">%s</p>`, html.EscapeString(message))
		}
		checked := ""
		if s.AdsEnabled {
			checked = " checked"
		}
		fmt.Fprintf(w, `<form method="post" action="/admin/settings/"><input type="hidden" name="_csrf" value="%s">`, html.EscapeString(csrfToken))
		fmt.Fprintf(w, `<input name="adsense_client" value="%s" placeholder="AdSense client id">`, html.EscapeString(s.AdSenseClientID))
		fmt.Fprintf(w, `<input name="adsense_slot" value="%s" placeholder="AdSense slot id">`, html.EscapeString(s.AdSenseSlotID))
		fmt.Fprintf(w, `<input name="admob_app" value="%s" placeholder="AdMob app id">`, html.EscapeString(s.AdMobAppID))
		fmt.Fprintf(w, `<input name="admob_unit" value="%s" placeholder="AdMob unit id">`, html.EscapeString(s.AdMobUnitID))
		fmt.Fprintf(w, `<input name="analytics_id" value="%s" placeholder="Analytics id">`, html.EscapeString(s.AnalyticsID))
		fmt.Fprintf(w, `<label><input type="checkbox" name="ads_enabled"%s> Ads enabled</label>`, checked)
		fmt.Fprintf(w, `<input name="ad_interval" value="%d" placeholder="Ad interval">`, s.AdInterval)
		_, err := io.WriteString(w, `<button>Save</button></form></body></html>`)
		return err
	})
}

func defaultNotFound() templ.Component {
	return htmlComponent(func(w io.Writer) error {
		_, err := io.WriteString(w, `<!doctype html><html><body><h1>404</h1><p>That story has been deleted, moved, or never existed.</p><a href="/">Back to the feed</a></body></html>`)
		return err
	})
}

func defaultServerError() templ.Component {
	return htmlComponent(func(w io.Writer) error {
		_, err := io.WriteString(w, `<!doctype html><html><body><h1>Something broke</h1><p>Try again in a moment.</p></body></html>`)
		return err
	})
}
