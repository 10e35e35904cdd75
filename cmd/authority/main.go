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

	"marketplace-iam/internal/audit"
	auditkhandler "marketplace-iam/internal/audit/handler"
	auditrepo "marketplace-iam/internal/audit/repository"
	authhandler "marketplace-iam/internal/auth/handler"
	authservice "marketplace-iam/internal/auth/service"
	"marketplace-iam/internal/config"
	"marketplace-iam/internal/db"
	healthhandler "marketplace-iam/internal/health/handler"
	"marketplace-iam/internal/jwks"
	"marketplace-iam/internal/kernel"
	"marketplace-iam/internal/obs"
	"marketplace-iam/internal/revocation"
	"marketplace-iam/internal/security"
	skdomain "marketplace-iam/internal/signingkey/domain"
	skhandler "marketplace-iam/internal/signingkey/handler"
	skrepo "marketplace-iam/internal/signingkey/repository"
	skservice "marketplace-iam/internal/signingkey/service"
	"marketplace-iam/internal/telemetry"
	"marketplace-iam/internal/telemetry/otel"
	tokenrepo "marketplace-iam/internal/token/repository"
	userrepo "marketplace-iam/internal/user/repository"
)

// localKeySource adapts the signing-key service to the trust kernel. Keys are
// read straight from the database, so Refresh has nothing to do.
type localKeySource struct {
	keys *skservice.Service
}

func (s localKeySource) KeySet(ctx context.Context) (security.StaticKeySet, error) {
	return s.keys.KeySet(ctx, time.Now().UTC())
}

func (s localKeySource) Refresh(ctx context.Context) error { return nil }

// eventAuditLogger records auth events in the audit trail and mirrors them as
// security events to the telemetry pipeline.
type eventAuditLogger struct {
	audit   *audit.Logger
	emitter telemetry.EventEmitter
	source  string
}

func (l eventAuditLogger) LogEvent(ctx context.Context, tenantID, userID, action, resource, metadata string) {
	l.audit.LogEvent(ctx, tenantID, userID, action, resource, metadata)
	telemetry.EmitAsync(l.emitter, ctx, &telemetry.SecurityEvent{
		TenantID:  tenantID,
		UserID:    userID,
		EventType: action,
		Source:    l.source,
		Metadata:  []byte(metadata),
		CreatedAt: time.Now().UTC(),
	})
}

// auditingRotator records successful key rotations in the audit trail.
type auditingRotator struct {
	keys  *skservice.Service
	audit *audit.Logger
}

func (r auditingRotator) Rotate(ctx context.Context) (*skdomain.SigningKey, error) {
	key, err := r.keys.Rotate(ctx)
	if err != nil {
		return nil, err
	}
	var userID string
	if p, ok := kernel.PrincipalFrom(ctx); ok {
		userID = p.UserID
	}
	r.audit.LogEvent(ctx, audit.SentinelTenantID, userID, "signing_key.rotate", "kid:"+key.Kid, "")
	return key, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
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

	hasher, err := security.NewHasher(security.HashParams{
		Memory:      cfg.KDFMemoryKiB,
		Iterations:  cfg.KDFIterations,
		Parallelism: cfg.KDFParallelism,
		SaltLength:  cfg.KDFSaltLength,
		HashLength:  cfg.KDFHashLength,
	}, cfg.PasswordPepper)
	if err != nil {
		log.Fatalf("hasher: %v", err)
	}
	minter := security.NewTokenMinter(cfg.Issuer, cfg.AccessTTL(), cfg.RefreshTTL())

	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(conn), audit.ContextIP)

	keys := skservice.NewService(skrepo.NewPostgresRepository(conn), cfg.KeyExpiry())
	bootKey, err := keys.EnsureBootstrap(ctx)
	if err != nil {
		log.Fatalf("signing key bootstrap: %v", err)
	}
	auditLogger.LogEvent(ctx, audit.SentinelTenantID, "", "signing_key.bootstrap", "kid:"+bootKey.Kid, "")
	emitter := otel.NewEventEmitter(providers.LoggerProvider)

	authSvc := authservice.NewAuthService(
		conn,
		userrepo.NewPostgresRepository(conn),
		tokenrepo.NewPostgresRepository(conn),
		keys,
		index,
		hasher,
		minter,
		eventAuditLogger{audit: auditLogger, emitter: emitter, source: cfg.ServiceName},
	)

	cookies := authhandler.CookieConfig{
		Domain:       cfg.CookieDomain,
		Secure:       cfg.Environment != "development",
		SameSiteNone: cfg.CookieSameSiteNone,
	}

	obs.Init()
	e := echo.New()
	e.HideBanner = true
	e.Use(obs.Middleware())
	e.Use(audit.ClientIPMiddleware())

	authhandler.NewAuthHandler(authSvc, cookies, cfg.AccessTTL(), cfg.RefreshTTL()).MountRoutes(e)
	e.GET("/.well-known/jwks.json", jwks.Handler(keys))
	e.GET("/healthz", healthhandler.Healthz(conn, revocation.Pinger{Client: redisClient}))
	e.GET("/metrics", echo.WrapHandler(obs.Handler()))

	core := kernel.NewAuthCore(minter, localKeySource{keys: keys}, index)
	admin := e.Group("/api/v1/admin", kernel.Middleware(core))
	admin.POST("/keys/rotate", skhandler.RotateHandler(auditingRotator{keys: keys, audit: auditLogger}))
	admin.GET("/audit/events", auditkhandler.ListHandler(auditrepo.NewPostgresRepository(conn)))

	go func() {
		log.Printf("authority listening on %s", cfg.HTTPAddr)
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
	// Give in-flight security events time to reach the exporter.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("stopped")
}
