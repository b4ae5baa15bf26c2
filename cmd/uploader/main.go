package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"guest-snapper/config"
	"guest-snapper/internal/apiclient"
	"guest-snapper/internal/domain/upload"
	"guest-snapper/internal/uploader"
	snapper_errors "guest-snapper/pkg/errors"
	"guest-snapper/pkg/logger"
)

const usage = `
Guest Snapper - Uploader

Usage:
  uploader -event <id> [flags] files...

Flags:
  -event string     Event the files belong to (required)
  -album string     Album within the event
  -name string      Uploader display name
  -caption string   Caption applied to every file
  -api string       API base URL (default from API_BASE_URL)

Examples:
  uploader -event wedding-42 -name Sam IMG_0001.jpg IMG_0002.mov
`

func main() {
	eventID := flag.String("event", "", "Event id")
	albumID := flag.String("album", "", "Album id")
	name := flag.String("name", "", "Uploader name")
	caption := flag.String("caption", "", "Caption")
	apiURL := flag.String("api", "", "API base URL")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if *eventID == "" || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.LoadConfig()
	if *apiURL != "" {
		cfg.APIBaseURL = *apiURL
	}

	l := logger.New(cfg.LogMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := apiclient.New(cfg.APIBaseURL, nil, l)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	target := upload.Target{
		EventID:      *eventID,
		AlbumID:      *albumID,
		UploaderName: *name,
		Caption:      *caption,
	}

	items, closers, failed := openItems(flag.Args(), target)
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	if len(items) == 0 {
		os.Exit(1)
	}

	opts := uploader.OptionsFromConfig(cfg.Upload)
	opts.Logger = l
	engine := uploader.NewEngine(client, client, client, opts)

	reporter := apiclient.NewProgressReporter(ctx, client, *eventID, cfg.ProgressReportPerSec, l)
	result := engine.UploadBatch(ctx, items, uploader.BatchOptions{}, reporter)
	reporter.Close()

	for i, res := range result.Results {
		if res.Success() {
			fmt.Printf("✅ %s (%s) -> %s\n", items[i].File.Name, res.Strategy, res.Record.URL)
			continue
		}
		fmt.Printf("❌ %s: %v [%s]\n", items[i].File.Name, res.Err, snapper_errors.StoredStateOf(res.Err))
	}
	fmt.Printf("\n%d/%d uploaded\n", result.SuccessfulCount, result.TotalCount+failed)

	if failed > 0 || result.SuccessfulCount != result.TotalCount {
		os.Exit(1)
	}
}

// openItems opens every path; files that cannot be opened are reported and counted.
func openItems(paths []string, target upload.Target) ([]upload.BatchItem, []io.Closer, int) {
	var (
		items   []upload.BatchItem
		closers []io.Closer
		failed  int
	)
	for i, p := range paths {
		file, closer, err := uploader.OpenFile(p)
		if err != nil {
			fmt.Printf("❌ %s: %v\n", p, err)
			failed++
			continue
		}
		closers = append(closers, closer)
		items = append(items, upload.BatchItem{
			ID:     strconv.Itoa(i + 1),
			File:   file,
			Target: target,
		})
	}
	return items, closers, failed
}
