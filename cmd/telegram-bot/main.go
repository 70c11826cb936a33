package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"personal-chef/internal/chef"
	"personal-chef/internal/clipper"
	"personal-chef/internal/config"
	"personal-chef/internal/cookbook"
	"personal-chef/internal/database"
	"personal-chef/internal/llm"
	"personal-chef/internal/metrics"
	"personal-chef/internal/session"
	"personal-chef/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. Initialize Infrastructure (LLM + database)
	var gen llm.TextGenerator
	if cfg.Provider == config.ProviderGroq {
		gen = llm.NewGroqClient(cfg)
	} else {
		geminiClient, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to create Gemini client: %v", err)
		}
		defer geminiClient.Close()
		gen = geminiClient
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	book := cookbook.NewRepository(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)

	// 3. Initialize Services
	sess := session.New(chef.New(gen), book)
	recipeClipper := clipper.NewClipper(gen)

	// 4. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, sess, recipeClipper, book, metricsStore)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}

	// 5. Start Server with Graceful Shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	bot.RegisterHandlers()

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	go func() {
		log.Printf("Telegram Bot Server listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
