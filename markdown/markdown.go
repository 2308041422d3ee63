// Package markdown renders article bodies to HTML as a templ component.
// It covers the small subset gossip stories actually use: paragraphs,
// bold/italic emphasis, links, unordered and ordered lists, and a trailing
// social embed. Everything else passes through as escaped text.
package markdown

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/a-h/templ"
)

var (
	reBold        = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reItalic      = regexp.MustCompile(`\*([^*]+)\*`)
	reImage       = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)
	reLink        = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	reOrderedItem = regexp.MustCompile(`^\d+\.\s+`)
)

// Body returns a templ.Component that renders the article content as HTML.
func Body(content string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		Render(&buf, content)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// Render writes the HTML representation of content to buf.
func Render(buf *bytes.Buffer, content string) {
	lines := strings.Split(content, "\n")
	inPara := false
	inList := false
	inOrdered := false

	closeAll := func() {
		if inPara {
			buf.WriteString("</p>")
			inPara = false
		}
		if inList {
			buf.WriteString("</ul>")
			inList = false
		}
		if inOrdered {
			buf.WriteString("</ol>")
			inOrdered = false
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			closeAll()
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			if inPara || inOrdered {
				closeAll()
			}
			if !inList {
				buf.WriteString("<ul>")
				inList = true
			}
			buf.WriteString("<li>")
			buf.WriteString(inline(trimmed[2:]))
			buf.WriteString("</li>")
		case reOrderedItem.MatchString(trimmed):
			if inPara || inList {
				closeAll()
			}
			if !inOrdered {
				buf.WriteString("<ol>")
				inOrdered = true
			}
			buf.WriteString("<li>")
			buf.WriteString(inline(reOrderedItem.ReplaceAllString(trimmed, "")))
			buf.WriteString("</li>")
		default:
			if inList || inOrdered {
				closeAll()
			}
			if !inPara {
				buf.WriteString("<p>")
				inPara = true
			} else {
				buf.WriteString("<br>")
			}
			buf.WriteString(inline(trimmed))
		}
	}
	closeAll()
}

// inline escapes the text and then applies emphasis, image, and link markup.
// Images go first so the link pattern never consumes an image's bracket pair.
func inline(s string) string {
	s = html.EscapeString(s)
	s = reBold.ReplaceAllString(s, "<b>$1</b>")
	s = reItalic.ReplaceAllString(s, "<i>$1</i>")
	s = reImage.ReplaceAllStringFunc(s, func(m string) string {
		parts := reImage.FindStringSubmatch(m)
		alt, src := parts[1], parts[2]
		if !safeHref(src) {
			return alt
		}
		return `<img src="` + src + `" alt="` + alt + `" loading="lazy">`
	})
	s = reLink.ReplaceAllStringFunc(s, func(m string) string {
		parts := reLink.FindStringSubmatch(m)
		label, href := parts[1], parts[2]
		if !safeHref(href) {
			return label
		}
		return `<a href="` + href + `" rel="noopener">` + label + `</a>`
	})
	return s
}

func safeHref(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return u.Scheme == "" || u.Scheme == "http" || u.Scheme == "https"
}

// EmbedHTML renders a social-post reference as a blockquote embed. Only
// X/Twitter status URLs are recognized; anything else yields "".
func EmbedHTML(embedURL string) string {
	u, err := url.Parse(embedURL)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(u.Host, "www.")
	if host != "twitter.com" && host != "x.com" {
		return ""
	}
	if !strings.Contains(u.Path, "/status/") {
		return ""
	}
	escaped := html.EscapeString(u.String())
	return `<blockquote class="twitter-tweet"><a href="` + escaped + `"></a></blockquote>` +
		`<script async src="https://platform.twitter.com/widgets.js" charset="utf-8"></script>`
}
