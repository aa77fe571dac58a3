package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	anthropicclient "autoreply/clients/anthropic"
	messengerclient "autoreply/clients/messenger"
	"autoreply/config"
	"autoreply/db"
	"autoreply/handlers"
	"autoreply/kvstore"
	"autoreply/services/automations"
	"autoreply/services/conversations"
	"autoreply/services/dedup"
	"autoreply/services/events"
	"autoreply/services/triggers"
	"autoreply/usecases/pipeline"
)

func main() {
	if err := run(); err != nil {
		log.Printf("❌ Fatal error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	// Initialize database connection
	dbConn, err := db.NewConnection(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	// Initialize repositories with shared connection
	webhookEventsRepo := db.NewPostgresWebhookEventsRepository(dbConn, cfg.DatabaseSchema)
	automationsRepo := db.NewPostgresAutomationsRepository(dbConn, cfg.DatabaseSchema)
	automationTriggersRepo := db.NewPostgresAutomationTriggersRepository(dbConn, cfg.DatabaseSchema)

	// The ledger and the session tracker get separate stores so their
	// sweeps and clears never touch each other's entries
	dedupStore := kvstore.NewMemoryStore()
	conversationStore := kvstore.NewMemoryStore()

	eventsService := events.NewEventsService(webhookEventsRepo)
	dedupService := dedup.NewDedupService(dedupStore, cfg.DedupConfig)
	automationsService := automations.NewAutomationsService(automationsRepo)
	conversationsService := conversations.NewConversationsService(conversationStore, cfg.ConversationConfig)
	triggersService := triggers.NewTriggersService(automationTriggersRepo)

	messengerClient := messengerclient.NewMessengerClient(
		cfg.MessengerConfig.BaseURL,
		cfg.MessengerConfig.AccessToken,
		cfg.MessengerConfig.RequestsPerSecond,
	)
	generationClient := anthropicclient.NewAnthropicClient(cfg.AnthropicConfig.APIKey, cfg.AnthropicConfig.Model)

	pipelineUseCase := pipeline.NewPipelineUseCase(
		dedupService,
		automationsService,
		conversationsService,
		triggersService,
		messengerClient,
		generationClient,
		cfg.WorkerConfig,
		cfg.ConversationConfig,
		cfg.MessengerConfig.MaxReplyLength,
	)
	worker := pipeline.NewWorker(eventsService, pipelineUseCase, cfg.WorkerConfig)

	webhooksHandler := handlers.NewWebhooksHandler(
		cfg.WebhookConfig.VerifyToken,
		cfg.WebhookConfig.AppSecret,
		eventsService,
	)
	adminHandler := handlers.NewAdminHandler(cfg.AdminToken, dedupService, eventsService)

	// Create a new router
	router := mux.NewRouter()

	router.HandleFunc("/webhooks/instagram", webhooksHandler.HandleVerification).Methods("GET")
	router.HandleFunc("/webhooks/instagram", webhooksHandler.HandleEvent).Methods("POST")

	router.HandleFunc("/admin/dedup", adminHandler.HandleDedupStats).Methods("GET")
	router.HandleFunc("/admin/dedup/clear", adminHandler.HandleDedupClear).Methods("POST")
	router.HandleFunc("/admin/queue", adminHandler.HandleQueueStats).Methods("GET")
	router.HandleFunc("/admin/queue/clear", adminHandler.HandleQueueClear).Methods("POST")
	router.HandleFunc("/admin/queue/failed/clear", adminHandler.HandleFailedClear).Methods("POST")

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
			log.Printf("❌ Failed to write health check response: %v", err)
		}
	}).Methods("GET")

	// Worker loop and background sweeps run until shutdown
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	go worker.Run(workerCtx)

	dedupSweepTicker := time.NewTicker(cfg.DedupConfig.SweepInterval)
	defer dedupSweepTicker.Stop()
	go func() {
		for range dedupSweepTicker.C {
			if _, err := dedupService.Sweep(workerCtx); err != nil {
				log.Printf("❌ Dedup sweep failed: %v", err)
			}
		}
	}()

	conversationSweepTicker := time.NewTicker(cfg.ConversationConfig.SweepInterval)
	defer conversationSweepTicker.Stop()
	go func() {
		for range conversationSweepTicker.C {
			if _, err := conversationsService.SweepInactive(workerCtx); err != nil {
				log.Printf("❌ Conversation sweep failed: %v", err)
			}
		}
	}()

	// Setup CORS middleware
	allowedOrigins := strings.Split(cfg.CORSAllowedOrigins, ",")
	for i, origin := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(origin)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Hub-Signature-256"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 30 * time.Second,
	}

	return handleGracefulShutdown(server, stopWorker)
}

func handleGracefulShutdown(server *http.Server, stopWorker context.CancelFunc) error {
	// Channel to listen for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		log.Printf("✅ Listening on http://localhost%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("❌ Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	<-stop
	log.Printf("🛑 Shutdown signal received, cleaning up...")

	// Stop accepting deliveries first, then let the worker drain its
	// in-flight dispatch
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("❌ Server shutdown error: %v", err)
		return err
	}

	stopWorker()

	log.Printf("✅ Server stopped gracefully")
	return nil
}
