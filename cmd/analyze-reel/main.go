package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/kdimtricp/instasave/internal/bootstrap"
	"github.com/kdimtricp/instasave/internal/config"
	"github.com/kdimtricp/instasave/internal/storage"
	"github.com/kdimtricp/instasave/internal/validation"
)

func main() {
	var (
		reelURL    = flag.String("url", "", "Reel URL to download and analyze")
		file       = flag.String("file", "", "Local video file to analyze instead of a URL")
		collection = flag.String("collection", "", "Collection to file a new reel under")
	)
	flag.Parse()

	if (*reelURL == "") == (*file == "") {
		log.Fatal("Provide exactly one of -url or -file")
	}
	if *reelURL != "" && !validation.New().URL(*reelURL) {
		log.Fatalf("Invalid -url %q: must be an http(s) URL", *reelURL)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	logr := bootstrap.Logger(cfg)
	ctx := context.Background()

	components, err := bootstrap.Build(ctx, cfg, logr)
	if err != nil {
		log.Fatal("Failed to initialize services: ", err)
	}
	defer components.Close()

	var out any
	if *reelURL != "" {
		reel, cached, err := components.Service.AnalyzeURL(ctx, *reelURL, *collection)
		if err != nil {
			log.Fatal("Analysis failed: ", err)
		}
		if cached {
			fmt.Fprintln(os.Stderr, "Reel already analyzed, returning stored result")
		}
		out = reel
	} else {
		f, err := os.Open(*file)
		if err != nil {
			log.Fatal("Failed to open video: ", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			log.Fatal("Failed to stat video: ", err)
		}

		result, err := components.Service.AnalyzeUpload(ctx, f, storage.FileInfo{
			Filename: filepath.Base(*file),
			Size:     info.Size(),
		})
		if err != nil {
			log.Fatal("Analysis failed: ", err)
		}
		out = result
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal("Failed to write result: ", err)
	}
}
