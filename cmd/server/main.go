package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rpattn/clientops/internal/adminpanel"
	"github.com/rpattn/clientops/internal/artifacts"
	"github.com/rpattn/clientops/internal/clients"
	"github.com/rpattn/clientops/internal/config"
	"github.com/rpattn/clientops/internal/db"
	"github.com/rpattn/clientops/internal/export"
	"github.com/rpattn/clientops/internal/graphql"
	"github.com/rpattn/clientops/internal/httpapi"
	"github.com/rpattn/clientops/internal/ingestion"
	"github.com/rpattn/clientops/internal/middleware"
	"github.com/rpattn/clientops/internal/notify"
	"github.com/rpattn/clientops/internal/repository"
	"github.com/rpattn/clientops/internal/seed"
	"github.com/rpattn/clientops/internal/tickets"
	"github.com/rpattn/clientops/internal/watchlist"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, health, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer closeStore()

	if cfg.Store.Seed {
		if _, err := seed.Load(ctx, store.Clients, store.Records, time.Now()); err != nil {
			log.Fatalf("Failed to seed demo data: %v", err)
		}
	}

	var producer notify.Producer = notify.NewNoopProducer()
	if cfg.Notify.RedisAddr != "" {
		redisProducer, err := notify.NewRedisProducer(cfg.Notify.RedisAddr, cfg.Notify.Stream)
		if err != nil {
			log.Printf("[notify] redis unavailable at %s, ticket events disabled: %v", cfg.Notify.RedisAddr, err)
		} else {
			producer = redisProducer
		}
	}
	defer producer.Close()

	var archive artifacts.Store = artifacts.NewNoopStore()
	if cfg.Archive.Enabled {
		s3Store, err := artifacts.NewS3Store(ctx,
			cfg.Archive.S3Region, cfg.Archive.S3Endpoint,
			cfg.Archive.S3AccessKey, cfg.Archive.S3SecretKey, cfg.Archive.S3Bucket,
		)
		if err != nil {
			log.Fatalf("Failed to init export archive: %v", err)
		}
		archive = s3Store
	}
	defer archive.Close()

	// Create services
	clientService := clients.NewService(store.Clients)
	recordService := watchlist.NewService(store.Clients, store.Records)
	ticketService := tickets.NewService(store.Clients, store.Tickets, store.Records,
		tickets.WithProducer(producer),
		tickets.WithLocation(cfg.Daily.Location),
	)
	panelService := adminpanel.NewService(store.Clients, store.Tickets,
		adminpanel.WithCutoff(cfg.Daily.Cutoff),
	)
	exportService := export.NewService(clientService, recordService, ticketService, panelService,
		export.WithArchive(archive, cfg.Archive.Prefix),
		export.WithLocation(cfg.Daily.Location),
	)

	executor, err := graphql.NewExecutor(
		graphql.NewResolver(clientService, recordService, ticketService, panelService).Resolvers(),
	)
	if err != nil {
		log.Fatalf("Failed to build GraphQL executor: %v", err)
	}

	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	}

	handler := httpapi.NewHandler(httpapi.Services{
		ClientRepo: store.Clients,
		Clients:    clientService,
		Records:    recordService,
		Tickets:    ticketService,
		Panel:      panelService,
		Import:     ingestion.NewService(store.Clients, recordService, store.ImportLogs),
		Export:     exportService,
		GraphQL:    executor,
	},
		httpapi.WithCORSOrigins(cfg.Server.CORSOrigins),
		httpapi.WithRateLimiter(limiter),
		httpapi.WithHealth(health),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting client operations server on %s (store=%s, cutoff=%s)",
			cfg.Server.Addr, cfg.Store.Driver, cfg.Daily.Cutoff)
		log.Printf("REST API available at http://localhost%s/api/v1", cfg.Server.Addr)
		log.Printf("GraphQL playground available at http://localhost%s/playground", cfg.Server.Addr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// openStore returns the repositories of the configured driver, a health
// check for /healthz and a close func.
func openStore(ctx context.Context, cfg config.Config) (repository.Store, httpapi.HealthFunc, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		if err := db.MigratePostgres(cfg.Database); err != nil {
			return repository.Store{}, nil, nil, err
		}
		conn, err := db.NewConnection(ctx, cfg.Database)
		if err != nil {
			return repository.Store{}, nil, nil, err
		}
		return repository.NewPostgresStore(conn), conn.Pool.Ping, conn.Close, nil

	case config.DriverSQLite:
		conn, err := db.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return repository.Store{}, nil, nil, err
		}
		if err := db.MigrateSQLite(conn); err != nil {
			_ = conn.Close()
			return repository.Store{}, nil, nil, err
		}
		closeConn := func() {
			if err := conn.Close(); err != nil {
				log.Printf("[db] failed to close sqlite: %v", err)
			}
		}
		return repository.NewSQLiteStore(conn), conn.PingContext, closeConn, nil

	default:
		log.Printf("[db] using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), nil, func() {}, nil
	}
}
