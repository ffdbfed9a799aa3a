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

	"github.com/joho/godotenv"

	"github.com/Soulfra/soulfra-sub002/internal/api"
	"github.com/Soulfra/soulfra-sub002/internal/config"
	"github.com/Soulfra/soulfra-sub002/internal/crypto"
	"github.com/Soulfra/soulfra-sub002/internal/database"
	"github.com/Soulfra/soulfra-sub002/internal/repositories"
	"github.com/Soulfra/soulfra-sub002/internal/services"
)

func main() {
	ctx := context.Background()

	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database connections
	postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create postgres pool: %v", err)
	}
	defer postgresPool.Close()

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to create redis client: %v", err)
	}
	defer redisClient.Close()

	// Crypto primitives hold the process secrets; everything downstream
	// takes them by injection.
	signer := crypto.NewSigner([]byte(cfg.SigningSecret))
	hasher := crypto.NewIdentityHasher([]byte(cfg.IdentitySalt))
	cipher := crypto.NewPayloadCipher()

	tokenRepo := repositories.NewPostgresTokenRepository(postgresPool)
	deviceRepo := repositories.NewPostgresDeviceRepository(postgresPool)
	scanRepo := repositories.NewPostgresScanRepository(postgresPool)
	payloadRepo := repositories.NewPostgresPayloadRepository(postgresPool)
	statsCache := repositories.NewRedisStatsCache(redisClient, cfg.StatsCacheTTL)

	tokenService := services.NewTokenService(tokenRepo, signer)
	deviceService := services.NewDeviceService(deviceRepo, tokenService, hasher, cfg.DeviceTokenTTL)
	lineageService := services.NewLineageService(scanRepo, statsCache, hasher)
	vaultService := services.NewVaultService(payloadRepo, cipher, []byte(cfg.GrantSecret), cfg.GrantTTL)
	geofenceService := services.NewGeofenceService(vaultService)

	router := api.NewRouter(api.NewHandlers(deviceService, lineageService, vaultService, geofenceService))

	// Start Server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("Starting server on port %s", cfg.ServerPort)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped gracefully")
}
