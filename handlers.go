package tattle

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const relatedLimit = 4

func (a *App) handleHome(c echo.Context) error {
	category := c.QueryParam("category")
	articles := a.Feed.List(category)
	settings := a.Feed.Settings()
	entries := InterleaveAds(articles, settings)
	return Render(c, a.Views.Home(entries, category, a.Feed.Categories(), a.Config, settings))
}

func (a *App) handleArticle(c echo.Context) error {
	slug := c.Param("slug")
	article, ok := a.Feed.GetBySlug(slug)
	if !ok {
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
	}
	if article.Category != c.Param("category") {
		// Old links keep working after a category change.
		return c.Redirect(http.StatusMovedPermanently, article.Path())
	}
	a.recordView(c, article.ID)
	related := RelatedArticles(article, a.Feed.List(""), relatedLimit)
	return Render(c, a.Views.Article(article, related, a.Config, a.Feed.Settings()))
}

// handleArticleByID resolves the legacy /article/{id} path scheme to the
// same article as the canonical /{category}/{slug} path.
func (a *App) handleArticleByID(c echo.Context) error {
	article, ok := a.Feed.GetByID(c.Param("id"))
	if !ok {
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
	}
	return c.Redirect(http.StatusMovedPermanently, article.Path())
}

// recordView bumps the view counter. Counting is best effort and never
// blocks or fails the page.
func (a *App) recordView(c echo.Context, id string) {
	if a.Store == nil {
		return
	}
	if err := a.Store.IncrementViews(c.Request().Context(), id); err != nil {
		c.Logger().Warnf("view count for %s: %v", id, err)
	}
}

func (a *App) handleSitemap(c echo.Context) error {
	return a.renderSitemap(c, a.Feed.List(""))
}

func (a *App) handleFeed(c echo.Context) error {
	return a.renderRSS(c, a.Feed.List(""))
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.staticDir + "/favicon.svg")
}

func (a *App) handleRobots(c echo.Context) error {
	return c.File(a.staticDir + "/robots.txt")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
