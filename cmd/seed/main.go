// seed creates the default marketplace tenant and a bootstrap admin user.
// Idempotent: skips inserts when the admin user already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"marketplace-iam/internal/config"
	"marketplace-iam/internal/db"
	"marketplace-iam/internal/security"
	tenantdomain "marketplace-iam/internal/tenant/domain"
	tenantrepo "marketplace-iam/internal/tenant/repository"
	userdomain "marketplace-iam/internal/user/domain"
	userrepo "marketplace-iam/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	adminEmail := os.Getenv("SEED_ADMIN_EMAIL")
	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		log.Fatal("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must be set")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	tenants := tenantrepo.NewPostgresRepository(conn)
	users := userrepo.NewPostgresRepository(conn)

	existing, err := users.GetByEmail(ctx, adminEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("Seed already applied (%s exists). Skipping.", adminEmail)
		return
	}

	now := time.Now().UTC()

	tenant, err := tenants.GetByID(ctx, tenantdomain.DefaultTenantID)
	if err != nil {
		log.Fatalf("tenant lookup: %v", err)
	}
	if tenant == nil {
		if err := tenants.Create(ctx, &tenantdomain.Tenant{
			ID:        tenantdomain.DefaultTenantID,
			Name:      "marketplace",
			Status:    tenantdomain.TenantStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			log.Fatalf("create default tenant: %v", err)
		}
	}

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

	salt, err := hasher.GenerateSalt()
	if err != nil {
		log.Fatalf("generate salt: %v", err)
	}
	hash, err := hasher.Hash(adminPassword, salt)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	admin := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        adminEmail,
		PasswordHash: hash,
		Salt:         salt,
		TenantID:     tenantdomain.DefaultTenantID,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatalf("create admin user: %v", err)
	}
	if err := users.GrantRole(ctx, admin.ID, userdomain.RoleAdmin); err != nil {
		log.Fatalf("grant admin role: %v", err)
	}

	log.Printf("Seed completed successfully. Admin: %s", adminEmail)
}
