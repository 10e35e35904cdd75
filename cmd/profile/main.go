package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"marketplace-iam/internal/config"
	"marketplace-iam/internal/db"
	healthhandler "marketplace-iam/internal/health/handler"
	"marketplace-iam/internal/jwks"
	"marketplace-iam/internal/kernel"
	"marketplace-iam/internal/obs"
	profilehandler "marketplace-iam/internal/profile/handler"
	profilerepo "marketplace-iam/internal/profile/repository"
	"marketplace-iam/internal/revocation"
	"marketplace-iam/internal/security"
	"marketplace-iam/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.JWKSURL == "" {
		log.Fatal("config: JWKS_URL must be set")
	}

	ctx := context.Background()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	keyClient := jwks.NewClient(cfg.JWKSURL, cfg.JWKSRefreshInterval(), cfg.JWKSMaxStale())
	if err := keyClient.Start(ctx); err != nil {
		log.Fatalf("jwks: %v", err)
	}

	redisClient, err := revocation.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("revocation store: %v", err)
	}
	defer redisClient.Close()

	failMode, err := revocation.ParseFailMode(cfg.RevocationFailMode)
	if err != nil {
		log.Fatalf("revocation: %v", err)
	}
	index := revocation.NewIndex(redisClient, cfg.RevocationTimeout(), cfg.RefreshTTL(), failMode)

	minter := security.NewTokenMinter(cfg.Issuer, cfg.AccessTTL(), cfg.RefreshTTL())
	core := kernel.NewAuthCore(minter, keyClient, index)

	obs.Init()
	e := echo.New()
	e.HideBanner = true
	e.Use(obs.Middleware())

	e.GET("/healthz", healthhandler.Healthz(conn, revocation.Pinger{Client: redisClient}))
	e.GET("/metrics", echo.WrapHandler(obs.Handler()))

	api := e.Group("/api/v1", kernel.Middleware(core))
	profilehandler.NewProfileHandler(profilerepo.NewPostgresRepository(conn)).MountRoutes(api)

	go func() {
		log.Printf("profile service listening on %s", cfg.HTTPAddr)
		if err := e.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("stopped")
}
