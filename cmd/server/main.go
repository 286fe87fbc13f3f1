package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/braincrm/api-gateway/internal/config"
	"github.com/braincrm/api-gateway/internal/database"
	"github.com/braincrm/api-gateway/internal/handler"
	"github.com/braincrm/api-gateway/internal/middleware"
	"github.com/braincrm/api-gateway/internal/objectstore"
	"github.com/braincrm/api-gateway/internal/policy"
	"github.com/braincrm/api-gateway/internal/queue"
	"github.com/braincrm/api-gateway/internal/repository"
	"github.com/braincrm/api-gateway/internal/router"
	"github.com/braincrm/api-gateway/internal/service"
)

// sweepInterval is how often permanently dead token rows are reclaimed.
// Expiry itself is enforced at lookup time; the sweep only keeps the
// tables from growing without bound.
const sweepInterval = time.Hour

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	resets := repository.NewResetRepo(db)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting disabled")
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	gate := router.Gate(tokens, users)

	// The record store and policy checker are seams to the host
	// platform. Until one is attached the gateway runs against an
	// in-memory store with an allow-list covering the passthrough kinds.
	store := objectstore.NewMemory()
	checker := policy.Static{}.
		Allow("crm.lead", policy.OpRead, policy.OpWrite, policy.OpCreate, policy.OpUnlink).
		Allow("res.partner", policy.OpRead, policy.OpWrite, policy.OpCreate).
		Allow("product.template", policy.OpRead).
		Allow("sale.order", policy.OpRead, policy.OpCreate)

	auth := handler.NewAuthHandler(cfg, users, tokens, resets, service.New())
	records := handler.NewResourceHandler(store, checker)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, auth, limiter, gate)
	router.RegisterRecords(e, records, gate)

	go func() {
		if err := queue.StartPasswordResetConsumer(service.BrokerURL()); err != nil {
			log.Printf("reset-consumer stopped: %v", err)
		}
	}()
	go sweepExpired(tokens, resets)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// sweepExpired periodically deletes token rows whose refresh window has
// closed and reset rows that are used or expired.
func sweepExpired(tokens *repository.TokenRepo, resets *repository.ResetRepo) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if n, err := tokens.DeleteExpired(ctx); err != nil {
			log.Printf("sweep: auth tokens: %v", err)
		} else if n > 0 {
			log.Printf("sweep: removed %d expired auth tokens", n)
		}
		if n, err := resets.DeleteStale(ctx); err != nil {
			log.Printf("sweep: password resets: %v", err)
		} else if n > 0 {
			log.Printf("sweep: removed %d stale reset tokens", n)
		}
		cancel()
	}
}
