package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kdimtricp/instasave/internal/batch"
	"github.com/kdimtricp/instasave/internal/bootstrap"
	"github.com/kdimtricp/instasave/internal/config"
	"github.com/kdimtricp/instasave/internal/ratelimit"
)

func main() {
	var (
		input  = flag.String("in", "", "Workbook (.xlsx) listing reel URLs")
		output = flag.String("out", "results.xlsx", "Workbook to write results to")
		rps    = flag.Float64("rps", 0.2, "Maximum reels started per second (0 disables pacing)")
	)
	flag.Parse()

	if *input == "" {
		log.Fatal("Please provide a workbook with -in")
	}

	entries, err := batch.LoadEntries(*input)
	if err != nil {
		log.Fatal("Failed to read workbook: ", err)
	}
	if len(entries) == 0 {
		log.Fatal("No reel URLs found in ", *input)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logr := bootstrap.Logger(cfg)
	components, err := bootstrap.Build(ctx, cfg, logr)
	if err != nil {
		log.Fatal("Failed to initialize services: ", err)
	}
	defer components.Close()

	var pacer *ratelimit.Limiter
	if *rps > 0 {
		pacer = ratelimit.New(*rps, 1)
	}

	fmt.Printf("Importing %d reels from %s\n", len(entries), *input)
	rows := batch.NewImporter(components.Service, pacer, logr).Run(ctx, entries)

	if err := batch.WriteResults(*output, rows); err != nil {
		log.Fatal("Failed to write results: ", err)
	}

	failed := 0
	for _, r := range rows {
		if r.Status == batch.StatusFailed {
			failed++
		}
	}
	fmt.Printf("Processed %d of %d reels (%d failed), results in %s\n", len(rows), len(entries), failed, *output)
}
