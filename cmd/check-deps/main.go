package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kdimtricp/instasave/internal/bootstrap"
	"github.com/kdimtricp/instasave/internal/config"
	"github.com/kdimtricp/instasave/internal/database"
	"github.com/kdimtricp/instasave/internal/media"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("🔍 Checking InstaSave dependencies")
	fmt.Println("==================================")

	ok := true
	for _, tool := range []struct{ name, binary string }{
		{"yt-dlp", cfg.Media.YtDlpBinary},
		{"ffmpeg", cfg.Media.FFmpegBinary},
	} {
		path, err := media.LookupBinary(tool.binary)
		if err != nil {
			fmt.Printf("❌ %s: not found (%s)\n", tool.name, tool.binary)
			ok = false
			continue
		}
		fmt.Printf("✅ %s: %s\n", tool.name, path)
	}

	fmt.Println()
	ok = checkProvider("Transcription", cfg.AI.TranscriptionProvider, cfg) && ok
	ok = checkProvider("Analysis", cfg.AI.AnalysisProvider, cfg) && ok

	switch {
	case cfg.Media.CookiesPath != "":
		if _, err := os.Stat(cfg.Media.CookiesPath); err != nil {
			fmt.Printf("⚠️  Cookies file %s is not readable\n", cfg.Media.CookiesPath)
		} else {
			fmt.Printf("🍪 Cookies: file %s (clear after use: %t)\n", cfg.Media.CookiesPath, cfg.Media.CookiesClear)
		}
	case cfg.Media.CookiesBrowser != "":
		fmt.Printf("🍪 Cookies: from browser %s\n", cfg.Media.CookiesBrowser)
	default:
		fmt.Println("🍪 Cookies: none (private reels will fail)")
	}

	fmt.Println()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.NewDB(bootstrap.DatabaseConfig(cfg))
	if err != nil {
		fmt.Printf("❌ Database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	statuses, err := database.NewMigrator(db).Status(ctx)
	if err != nil {
		fmt.Printf("❌ Migrations: %v\n", err)
		ok = false
	} else {
		pending := 0
		for _, s := range statuses {
			if !s.Applied {
				pending++
			}
		}
		if pending > 0 {
			fmt.Printf("⚠️  Database: %d pending migrations, run migrate\n", pending)
		} else {
			count, err := database.NewReelRepository(db).Count(ctx)
			if err != nil {
				fmt.Printf("❌ Database: %v\n", err)
				ok = false
			} else {
				fmt.Printf("📹 Stored reels: %d\n", count)
			}
		}
	}

	if !ok {
		os.Exit(1)
	}
	fmt.Println("\n✅ Ready to analyze reels")
}

func checkProvider(role, provider string, cfg *config.Config) bool {
	var key string
	switch provider {
	case config.ProviderOpenAI:
		key = cfg.AI.OpenAIAPIKey
	case config.ProviderGemini:
		key = cfg.AI.GeminiAPIKey
	}
	if key == "" {
		fmt.Printf("❌ %s provider %s: API key not set\n", role, provider)
		return false
	}
	fmt.Printf("✅ %s provider: %s\n", role, provider)
	return true
}
