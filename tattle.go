// Package tattle is a gossip/news publishing engine built with Go, Echo,
// and templ. It serves a public reading feed, an admin content-management
// surface with drag-to-reorder curation, ad monetization injection, and an
// AI-assisted story drafting helper.
//
// Users provide their own templ components via the ViewFuncs struct; tattle
// owns the handler logic, middleware, reconciliation, and persistence.
package tattle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/tattle/storygen"
)

// ViewFuncs holds user-provided templ components that the engine calls when
// rendering pages. This is the inversion-of-control mechanism that lets
// users own and customize all templates.
type ViewFuncs struct {
	Home          func(entries []FeedEntry, activeCategory string, categories []string, site SiteConfig, settings Settings) templ.Component
	Article       func(a Article, related []Article, site SiteConfig, settings Settings) templ.Component
	AdminLogin    func(showError bool, csrfToken string) templ.Component
	AdminDash     func(articles []Article, views map[string]int, message string, csrfToken string) templ.Component
	AdminEditor   func(a Article, isNew bool, csrfToken string) templ.Component
	AdminSettings func(s Settings, message string, csrfToken string) templ.Component
	NotFound      func() templ.Component
	ServerError   func() templ.Component
}

// App is the central tattle application. It wires together the store, the
// reconciled feed, handlers, middleware, and user-provided templates.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	Store     *Store // nil when running on the file store fallback
	Feed      *Feed
	Views     ViewFuncs
	Generator *storygen.Generator

	overlay      OverlayStore
	loginLimiter *LoginLimiter
	onWriteError func(error)
	customRoutes []func(*App)
	staticDir    string
}

// New creates a new tattle App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Start initializes the store, feed, middleware, and routes, then starts the
// server. If the SQLite backend cannot be opened the engine falls back to
// the local JSON file store so editors can keep staging content.
func (a *App) Start() error {
	if err := a.init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) init() error {
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("tattle: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("tattle: SessionSecret is required")
	}

	if a.overlay == nil {
		store, err := NewStore(a.Config.DatabasePath)
		if err != nil {
			log.Printf("tattle: sqlite unavailable (%v), falling back to file store", err)
			fs, ferr := OpenFileStore(a.Config.DataFilePath)
			if ferr != nil {
				return fmt.Errorf("tattle: init store: %w", errors.Join(err, ferr))
			}
			a.overlay = fs
		} else {
			a.Store = store
			a.overlay = store
		}
	}

	defaults, err := DefaultArticles()
	if err != nil {
		return err
	}
	onError := a.onWriteError
	if onError == nil {
		onError = func(err error) { a.Echo.Logger.Errorf("background write failed: %v", err) }
	}
	a.Feed = NewFeed(a.overlay, defaults, onError)

	// A failed initial refresh is not fatal: the seed defaults stay
	// visible and the next admin action retries.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Feed.Refresh(ctx); err != nil {
		log.Printf("tattle: initial feed refresh: %v", err)
	}

	if a.Config.GenAIAPIKey != "" {
		gen, err := storygen.New(context.Background(), a.Config.GenAIAPIKey, a.Config.GenAIModels...)
		if err != nil {
			log.Printf("tattle: story helper disabled: %v", err)
		} else {
			gen.SetSiteName(a.Config.Name)
			a.Generator = gen
		}
	}

	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	// Public routes
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/article/:id/", a.handleArticleByID)
	e.GET("/:category/:slug/", a.handleArticle)

	// Admin routes
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	e.GET("/admin/new/", a.handleAdminNew)
	e.GET("/admin/article/:id/", a.handleAdminEdit)
	e.POST("/admin/save/", a.handleAdminSave)
	e.DELETE("/admin/article/:id/", a.handleAdminDelete)
	e.POST("/admin/restore/:id/", a.handleAdminRestore)
	e.POST("/admin/reorder/", a.handleAdminReorder)
	e.GET("/admin/settings/", a.handleAdminSettings)
	e.POST("/admin/settings/", a.handleAdminSettingsSave)
	e.POST("/admin/generate/", a.handleAdminGenerate)
	e.POST("/admin/images/upload/", a.handleImageUpload)
	e.DELETE("/admin/images/:filename/", a.handleImageDelete)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Feed != nil {
		a.Feed.Wait()
	}
	if c, ok := a.overlay.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("tattle: required environment variable %s is not set", key)
	}
	return v
}
