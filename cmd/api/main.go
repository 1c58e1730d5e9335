package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"gias.org/internal/attest"
	"gias.org/internal/audit"
	"gias.org/internal/auth"
	"gias.org/internal/config"
	"gias.org/internal/httpapi"
	"gias.org/internal/obs"
	"gias.org/internal/verify"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		db          *sql.DB
		authStore   auth.Store
		attestStore attest.Store
		auditStore  audit.Store
	)
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)

		authStore = auth.NewPGStore(db)
		attestStore = attest.NewPGStore(db)
		auditStore = audit.NewPGStore(db)
	} else {
		log.Printf("GIAS_PG_DSN not set; using in-memory stores")
		authStore = auth.NewMemory()
		attestStore = attest.NewMemory()
		auditStore = audit.NewMemory()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := auth.EnsureRoles(ctx, authStore); err != nil {
		log.Printf("ensure roles: %v (run cmd/migrate first?)", err)
	}
	cancel()

	tokens, err := auth.NewTokenService(cfg.TokenSecret, cfg.TokenIssuer, auth.WithTTL(cfg.TokenTTL))
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	authSvc, err := auth.NewService(authStore, tokens)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	guard, err := auth.NewGuard(tokens, authStore)
	if err != nil {
		log.Fatalf("access guard: %v", err)
	}
	attestSvc := attest.NewService(attestStore)

	verifyOpts := []verify.Option{}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		verifyOpts = append(verifyOpts, verify.WithCache(verify.NewRedisCache(client, verify.DefaultCacheTTL)))
		defer client.Close()
	}
	verifySvc := verify.NewService(attestStore, verifyOpts...)

	api := httpapi.New(httpapi.Options{
		Version:        version,
		Environment:    cfg.Environment,
		ReadyProbe:     httpapi.ReadyProbe{DB: db},
		Auth:           authSvc,
		Guard:          guard,
		Store:          authStore,
		Attest:         attestSvc,
		Verify:         verifySvc,
		Recorder:       audit.NewRecorder(auditStore),
		RateBurst:      cfg.RateBurst,
		RatePerSec:     cfg.RatePerSec,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting gias-api %s (%s) on %s", version, cfg.Environment, srv.Addr)
	obs.SetReady(true)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	obs.SetReady(false)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	_ = srv.Shutdown(shutdownCtx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
