// Command tattle runs a tattle site with the built-in views. It exists so
// the engine can be tried out before writing any templates; real sites
// import the tattle package and supply their own ViewFuncs.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/eringen/tattle"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Println("tattle", version)
		return
	}

	cfg := tattle.SiteConfig{
		Name:          tattle.EnvOr("TATTLE_SITE_NAME", "Tattle"),
		URL:           tattle.EnvOr("TATTLE_SITE_URL", "http://localhost:3000"),
		Addr:          tattle.EnvOr("TATTLE_ADDR", ":3000"),
		AdminPassword: tattle.MustEnv("TATTLE_ADMIN_PASSWORD"),
		SessionSecret: tattle.MustEnv("TATTLE_SESSION_SECRET"),
		GenAIAPIKey:   os.Getenv("GEMINI_API_KEY"),
	}

	if path := os.Getenv("TATTLE_CONFIG"); path != "" {
		loaded, err := tattle.LoadConfig(path)
		if err != nil {
			log.Fatalf("load config %s: %v", path, err)
		}
		// Secrets stay in the environment even when a config file is used.
		loaded.AdminPassword = cfg.AdminPassword
		loaded.SessionSecret = cfg.SessionSecret
		if loaded.GenAIAPIKey == "" {
			loaded.GenAIAPIKey = cfg.GenAIAPIKey
		}
		cfg = loaded
	}

	app := tattle.New(cfg, tattle.DefaultViews())
	defer app.Close()
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
