package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harmonherring/CTF-API/internal/api"
	"github.com/harmonherring/CTF-API/internal/app/service"
	"github.com/harmonherring/CTF-API/internal/common/security"
	"github.com/harmonherring/CTF-API/internal/domain/repository"
	"github.com/harmonherring/CTF-API/internal/platform/cache"
	"github.com/harmonherring/CTF-API/internal/platform/config"
	"github.com/harmonherring/CTF-API/internal/platform/database"
)

func main() {
	// 1. Load Configuration
	config.Load()
	fmt.Println("Configuration loaded.")

	// 2. Initialize JWT
	security.InitJWT()
	fmt.Println("JWT initialized.")

	// 3. Initialize Database
	database.Connect()
	defer database.Close()
	database.Migrate()
	fmt.Println("Database connected and migrated.")

	// 4. Initialize Redis
	cache.ConnectRedis()
	defer cache.CloseRedis()
	fmt.Println("Redis connected.")

	// 5. Initialize Repositories
	taxonomyRepo := repository.NewPgTaxonomyRepository(database.DB)
	challengeRepo := repository.NewPgChallengeRepository(database.DB)
	flagRepo := repository.NewPgFlagRepository(database.DB)
	ledgerRepo := repository.NewPgLedgerRepository(database.DB)

	// 6. Initialize Services
	scoreService := service.NewScoreService(ledgerRepo, cache.RDB)
	ledgerService := service.NewLedgerService(challengeRepo, flagRepo, ledgerRepo, scoreService, database.DB)
	challengeService := service.NewChallengeService(challengeRepo, flagRepo, taxonomyRepo, ledgerService, database.DB)
	taxonomyService := service.NewTaxonomyService(taxonomyRepo)

	// 7. Initialize Router & HTTP Server
	router := api.NewRouter(challengeService, ledgerService, scoreService, taxonomyService)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop // Wait for interrupt signal

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped gracefully.")
}
