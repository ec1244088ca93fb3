package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"rooneyform-scraper/config"
	"rooneyform-scraper/models"
	"rooneyform-scraper/scraper/telegram"
	"rooneyform-scraper/services"
	"rooneyform-scraper/storage"
	"rooneyform-scraper/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.NewLogger(utils.LevelInfo).Error("%v", err)
		os.Exit(1)
	}
	logger := utils.NewLogger(utils.ParseLevel(cfg.LogLevel))
	ctx := context.Background()

	logger.Info("=== Channel scraper starting ===")
	logger.Info("Config: channel %s | max messages: %d | album window: %d | fetch: %s",
		cfg.ChannelUsername, cfg.MaxMessages, cfg.AlbumWindow, cfg.FetchMode)

	source, closeSource, err := openSource(cfg, logger)
	if err != nil {
		logger.Error("Failed to open channel source: %v", err)
		os.Exit(1)
	}
	defer closeSource()

	collector := services.NewCollector(source, services.CollectorOptions{
		PhotosDir:        cfg.PhotosDir,
		AlbumWindow:      cfg.AlbumWindow,
		DedupLinkPreview: cfg.DedupLinkPreview,
		Logger:           logger,
	})
	pipeline := services.NewPipeline(source, services.NewExtractor(cfg.ContactHandle), collector,
		services.PipelineOptions{
			Channel:              cfg.ChannelUsername,
			BaseURL:              cfg.ChannelBaseURL,
			MaxMessages:          cfg.MaxMessages,
			Location:             cfg.Timezone,
			PruneDuplicatePhotos: cfg.PruneDuplicatePhotos,
			Logger:               logger,
		})

	result, err := pipeline.Run(ctx)
	if err != nil {
		logger.Error("Scrape failed: %v", err)
		os.Exit(1)
	}

	csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
		os.Exit(1)
	}
	rows, err := export(csvWriter, result.Records)
	if err != nil {
		logger.Error("CSV write failed: %v", err)
		os.Exit(1)
	}
	logger.Info("Data saved to %s. Found %d records.", cfg.CSVOutputPath, rows)
	logger.Info("Photos saved under %s/<listing UUID>/", cfg.PhotosDir)

	summaryListings := result.Records
	if cfg.PostgresEnabled {
		if stored, err := writePostgres(ctx, cfg, logger, result.Records); err != nil {
			logger.Error("PostgreSQL write failed: %v", err)
		} else {
			summaryListings = stored
		}
	}

	insightSvc := services.NewInsightService(logger)
	report := insightSvc.Generate(result, summaryListings)
	insightSvc.Print(os.Stdout, report)

	fmt.Printf("  Done. CSV → %s | Photos → %s\n\n", cfg.CSVOutputPath, cfg.PhotosDir)
}

// openSource picks the replay dump when configured, otherwise the live web preview.
func openSource(cfg *config.Config, logger *utils.Logger) (telegram.Source, func(), error) {
	if cfg.ChannelDump != "" {
		logger.Info("Replaying channel dump %s", cfg.ChannelDump)
		src, err := telegram.LoadDump(cfg.ChannelDump)
		return src, func() {}, err
	}

	client := telegram.NewRestyClient(cfg.RequestTimeout, cfg.UserAgent)

	var fetcher telegram.PageFetcher
	closeFn := func() {}
	switch cfg.FetchMode {
	case config.FetchModeBrowser:
		bf := telegram.NewBrowserFetcher(cfg.ChromeBin, cfg.UserAgent, cfg.RequestTimeout, logger)
		fetcher = bf
		closeFn = func() { _ = bf.Close() }
	default:
		fetcher = telegram.NewHTTPFetcher(client)
	}

	src := telegram.NewPreviewSource(fetcher, client, telegram.PreviewOptions{
		BaseURL:         cfg.ChannelBaseURL,
		Channel:         cfg.ChannelUsername,
		MinPageInterval: time.Duration(cfg.PageRateLimitMs) * time.Millisecond,
		Logger:          logger,
	})
	return src, closeFn, nil
}

// writePostgres stores the listings and returns everything now in the table.
func writePostgres(ctx context.Context, cfg *config.Config, logger *utils.Logger,
	listings []*models.ListingRecord) ([]*models.ListingRecord, error) {
	pgWriter, err := storage.NewPostgresWriter(ctx, cfg.DSN(), &utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   2 * time.Second,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	defer pgWriter.Close()

	n, err := pgWriter.Write(listings)
	if err != nil {
		return nil, err
	}
	logger.Info("%d listings stored in PostgreSQL (table: jersey_listings)", n)

	return pgWriter.FetchAll()
}

// export writes listings and always closes the writer.
func export(w storage.ListingWriter, listings []*models.ListingRecord) (int, error) {
	n, err := w.Write(listings)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return n, err
}
