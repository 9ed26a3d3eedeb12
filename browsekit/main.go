package main

import (
	"browsekit/browsekit/config"
	"browsekit/browsekit/controllers"
	"browsekit/browsekit/routes"
	"browsekit/browsekit/services/batch"
	"browsekit/browsekit/services/browserless"
	"browsekit/browsekit/services/program"
	"browsekit/browsekit/services/scraper"
	"browsekit/browsekit/sources/psql"
	"browsekit/browsekit/sources/psql/dao"
	"browsekit/browsekit/sources/storage"
	"browsekit/browsekit/utils/logging"
	"browsekit/browsekit/utils/metrics"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.InitLogger(os.Getenv("LOG_DIR"))
		logging.ErrorLogger.Error("configuration error", zap.Error(err))
		logging.Sync()
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogDir)
	defer logging.Sync()

	m := metrics.Default()
	client, err := browserless.NewClient(cfg.Browserless(),
		browserless.WithLogger(logging.AppLogger),
		browserless.WithMetrics(m),
	)
	if err != nil {
		logging.ErrorLogger.Error("browserless client error", zap.Error(err))
		os.Exit(1)
	}
	svc := scraper.NewService(client,
		scraper.WithEngine(program.NewEngine(program.WithSearchEngine(program.SearchEngine{
			URL:            cfg.SearchEngineURL,
			InputSelector:  cfg.SearchInputSelector,
			ResultSelector: cfg.SearchResultSelector,
		}))),
		scraper.WithSequencer(batch.Sequencer{Delay: cfg.BatchDelay}),
		scraper.WithTimeouts(scraper.Timeouts{
			Search:     cfg.BrowserlessFunctionTimeout,
			Scrape:     cfg.BrowserlessScrapeTimeout,
			Screenshot: cfg.BrowserlessScreenshotTimeout,
		}),
		scraper.WithLogger(logging.AppLogger),
		scraper.WithMetrics(m),
	)

	opts := []controllers.ScrapeOption{controllers.WithMaxQueries(cfg.BatchMaxQueries)}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if cfg.MinioEnabled() {
		minioClient, err := storage.NewMinIOClient(ctx, cfg)
		if err != nil {
			logging.ErrorLogger.Error("minio connection error", zap.Error(err))
			os.Exit(1)
		}
		opts = append(opts, controllers.WithArchive(minioClient))
	}
	if cfg.DatabaseEnabled() {
		db, err := psql.NewDatabase(ctx, cfg)
		if err != nil {
			logging.ErrorLogger.Error("database connection error", zap.Error(err))
			os.Exit(1)
		}
		defer db.Close()
		opts = append(opts, controllers.WithRunStore(dao.NewBatchRunDAO(db.DB)))
	}

	healthCtrl := controllers.NewHealthController()
	scrapeCtrl := controllers.NewScrapeController(svc, opts...)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           routes.NewRouter(cfg, healthCtrl, scrapeCtrl, nil),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logging.AppLogger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorLogger.Error("server listen error", zap.Error(err))
		}
	}()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
	}
	logging.AppLogger.Info("server shutdown complete")
}
