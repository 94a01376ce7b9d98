package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"boxtrack/config"
	"boxtrack/database"
	"boxtrack/handlers"
	"boxtrack/middleware"
	"boxtrack/notifier"
	"boxtrack/repository"
	"boxtrack/scheduler"
	"boxtrack/scraper"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	if err := database.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDatabase()

	if err := database.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	productRepo := repository.NewProductRepository(database.DB)
	historyRepo := repository.NewHistoryRepository(database.DB)
	alertRepo := repository.NewAlertLogRepository(database.DB)

	session := scraper.NewSessionManager(cfg.BrowserBin, cfg.Headless)
	defer session.Teardown()

	extractor := scraper.NewAmazonExtractor()
	fetcherOpts := scraper.FetcherOptions{
		NavigationTimeout:  cfg.NavigationTimeout,
		SelectorTimeout:    cfg.SelectorTimeout,
		InterstitialBudget: cfg.InterstitialBudget,
		PostalCodes:        cfg.PostalCodes,
	}
	retry := scraper.NewRetryOrchestrator(cfg.MaxRetries, cfg.RetryDelay, session)
	fetcher := scraper.NewRegionFetcher(session, extractor, retry, fetcherOpts)

	coordinator := scraper.NewMultiRegionCoordinator(func() (scraper.Fetcher, func(), error) {
		s := scraper.NewSessionManager(cfg.BrowserBin, cfg.Headless)
		r := scraper.NewRetryOrchestrator(cfg.MaxRetries, cfg.RetryDelay, s)
		return scraper.NewRegionFetcher(s, extractor, r, fetcherOpts), s.Teardown, nil
	}, cfg.MaxConcurrentRegions)

	var alertNotifier scheduler.Notifier = notifier.NewLogNotifier()
	if cfg.TelegramEnabled {
		tg, err := notifier.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Printf("Telegram notifier disabled: %v", err)
		} else {
			alertNotifier = tg
			log.Println("Telegram notifier enabled")
		}
	}

	monitor := scheduler.NewMonitor(productRepo, historyRepo, alertRepo, fetcher, alertNotifier,
		scheduler.MonitorOptions{
			Interval:             cfg.MonitoringInterval,
			DelayBetweenProducts: cfg.DelayBetweenProducts,
			DelayAfterProduct:    cfg.DelayAfterProduct,
			DelayAfterError:      cfg.DelayAfterError,
		})

	if err := monitor.Start(); err != nil {
		log.Fatalf("Failed to start monitor: %v", err)
	}
	defer monitor.Stop()

	h := handlers.New(cfg, productRepo, historyRepo, alertRepo, monitor, coordinator)

	router := mux.NewRouter()
	router.HandleFunc("/health", h.Health).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/monitor/start", h.StartMonitor).Methods("POST")
	api.HandleFunc("/monitor/stop", h.StopMonitor).Methods("POST")
	api.HandleFunc("/monitor/run", h.RunCycle).Methods("POST")
	api.HandleFunc("/monitor/status", h.MonitorStatus).Methods("GET")
	api.HandleFunc("/products", h.AddProduct).Methods("POST")
	api.HandleFunc("/products", h.ListProducts).Methods("GET")
	api.HandleFunc("/products/{id}", h.GetProduct).Methods("GET")
	api.HandleFunc("/products/{id}", h.DeleteProduct).Methods("DELETE")
	api.HandleFunc("/products/{id}/history", h.PriceHistory).Methods("GET")
	api.HandleFunc("/products/{id}/sellers", h.SellerHistory).Methods("GET")
	api.HandleFunc("/products/{id}/alerts", h.ProductAlerts).Methods("GET")
	api.HandleFunc("/alerts", h.RecentAlerts).Methods("GET")
	api.HandleFunc("/scrape", h.Scrape).Methods("POST")

	var handler http.Handler = router
	handler = middleware.RateLimitMiddleware(cfg.RateLimitRPS)(handler)
	handler = middleware.LoggingMiddleware(handler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	handler = corsHandler.Handler(handler)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down")
	if err := server.Close(); err != nil {
		log.Printf("Error closing server: %v", err)
	}
}
