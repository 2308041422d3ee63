package tattle

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	if !a.loginLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	return Render(c, a.Views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminNew(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	return Render(c, a.Views.AdminEditor(Article{}, true, CsrfToken(c)))
}

func (a *App) handleAdminEdit(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	article, ok := a.Feed.GetByID(c.Param("id"))
	if !ok {
		return c.NoContent(http.StatusNotFound)
	}
	return Render(c, a.Views.AdminEditor(article, false, CsrfToken(c)))
}

func (a *App) handleAdminSave(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	if err := c.Request().ParseForm(); err != nil {
		return err
	}
	draft := Article{
		Title:    strings.TrimSpace(c.FormValue("title")),
		Slug:     strings.TrimSpace(c.FormValue("slug")),
		Category: strings.ToLower(strings.TrimSpace(c.FormValue("category"))),
		Image:    strings.TrimSpace(c.FormValue("image")),
		Author:   strings.TrimSpace(c.FormValue("author")),
		Content:  c.FormValue("content"),
		EmbedURL: strings.TrimSpace(c.FormValue("embed_url")),
	}
	if !a.Config.ValidCategory(draft.Category) {
		return a.adminMessage(c, "Pick a valid category.")
	}

	ctx := c.Request().Context()
	id := strings.TrimSpace(c.FormValue("id"))
	var err error
	if id == "" {
		_, err = a.Feed.Create(ctx, draft)
	} else {
		_, err = a.Feed.Update(ctx, id, draft)
	}
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return a.adminMessage(c, "Missing "+verr.Field+": "+verr.Reason+".")
	case errors.Is(err, ErrNotFound):
		return c.NoContent(http.StatusNotFound)
	case err != nil:
		return err
	}
	return a.renderAdminDashboard(c, "saved")
}

func (a *App) handleAdminDelete(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	if err := a.Feed.Remove(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.NoContent(http.StatusNotFound)
		}
		return err
	}
	return a.renderAdminDashboard(c, "deleted")
}

func (a *App) handleAdminRestore(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	if err := a.Feed.Restore(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.NoContent(http.StatusNotFound)
		}
		return err
	}
	return a.renderAdminDashboard(c, "restored")
}

// handleAdminReorder accepts the full id sequence from the dashboard's
// drag-and-drop as a comma-separated "ids" form value.
func (a *App) handleAdminReorder(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	ids := FilterEmpty(strings.Split(c.FormValue("ids"), ","))
	if len(ids) == 0 {
		return a.adminMessage(c, "Nothing to reorder.")
	}
	if err := a.Feed.Reorder(c.Request().Context(), ids); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return a.adminMessage(c, "Reorder rejected: "+verr.Reason+".")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleAdminSettings(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	return Render(c, a.Views.AdminSettings(a.Feed.Settings(), c.QueryParam("msg"), CsrfToken(c)))
}

func (a *App) handleAdminSettingsSave(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	interval := 0
	if v := strings.TrimSpace(c.FormValue("ad_interval")); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			interval = n
		}
	}
	settings := Settings{
		AdSenseClientID: strings.TrimSpace(c.FormValue("adsense_client")),
		AdSenseSlotID:   strings.TrimSpace(c.FormValue("adsense_slot")),
		AdMobAppID:      strings.TrimSpace(c.FormValue("admob_app")),
		AdMobUnitID:     strings.TrimSpace(c.FormValue("admob_unit")),
		AnalyticsID:     strings.TrimSpace(c.FormValue("analytics_id")),
		AdsEnabled:      c.FormValue("ads_enabled") != "",
		AdInterval:      interval,
	}
	if err := a.Feed.UpdateSettings(c.Request().Context(), settings); err != nil {
		return err
	}
	return Render(c, a.Views.AdminSettings(settings, "saved", CsrfToken(c)))
}

// handleAdminGenerate drafts a story from an uploaded photo via the AI
// helper. The draft comes back as JSON for the editor form to fill in; a
// helper failure never touches the feed.
func (a *App) handleAdminGenerate(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	if a.Generator == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "story helper is not configured")
	}

	file, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no image file provided")
	}
	if file.Size > maxUploadSize {
		return echo.NewHTTPError(http.StatusBadRequest, "file too large (max 10MB)")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	// Downscale and re-encode before shipping the image to the model.
	data, _, _, err := processImage(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid image: "+err.Error())
	}

	draft, err := a.Generator.FromImage(c.Request().Context(), data, "image/jpeg")
	if err != nil {
		c.Logger().Errorf("story generation: %v", err)
		return echo.NewHTTPError(http.StatusBadGateway,
			ErrExternalService.Error()+": story generation failed")
	}
	if !a.Config.ValidCategory(draft.Category) {
		draft.Category = "news"
	}
	if draft.Slug == "" {
		draft.Slug = Slugify(draft.Headline)
	}
	return c.JSON(http.StatusOK, draft)
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	views := map[string]int{}
	if a.Store != nil {
		if counts, err := a.Store.ViewCounts(c.Request().Context()); err == nil {
			views = counts
		} else {
			c.Logger().Warnf("view counts: %v", err)
		}
	}
	return Render(c, a.Views.AdminDash(a.Feed.List(""), views, msg, CsrfToken(c)))
}

func (a *App) adminMessage(c echo.Context, msg string) error {
	return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape(msg))
}
