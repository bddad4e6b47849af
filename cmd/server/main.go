package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"datalake/internal/cache"
	"datalake/internal/catalog"
	"datalake/internal/config"
	"datalake/internal/dbclient"
	"datalake/internal/ingest"
	"datalake/internal/logger"
	"datalake/internal/retrieval"
	"datalake/internal/server"
	"datalake/internal/staging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Mode)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Catalog store.
	catalogDB, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		log.Fatal("open catalog", "path", cfg.CatalogPath, "error", err)
	}
	defer catalogDB.Close()
	cat := catalog.NewStore(catalogDB)

	// Payload stores.
	sqlClient, err := dbclient.NewRelationalClient(dbclient.RelationalConfig{
		Driver:   cfg.RelationalDriver,
		Host:     cfg.SQLHost,
		Port:     cfg.SQLPort,
		User:     cfg.SQLUser,
		Password: cfg.SQLPassword,
		Database: cfg.SQLDatabase,
		SSLMode:  cfg.SQLSSLMode,
	})
	if err != nil {
		log.Fatal("open relational store", "driver", cfg.RelationalDriver, "error", err)
	}
	defer sqlClient.Close()

	mongoClient, err := dbclient.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatal("open document store", "uri", cfg.MongoURI, "error", err)
	}
	defer mongoClient.Close()

	// Connections open lazily; ping up front so misconfiguration shows at
	// startup instead of on the first ingest.
	if err := sqlClient.Ping(ctx); err != nil {
		log.Warn("relational store unreachable", "driver", cfg.RelationalDriver, "error", err)
	}
	if err := mongoClient.Ping(ctx); err != nil {
		log.Warn("document store unreachable", "error", err)
	}

	// Pipeline.
	writer := ingest.NewWriter(sqlClient, mongoClient, log)
	orchestrator := ingest.NewOrchestrator(cat, writer, sqlClient.Dialect(), log)
	engine := retrieval.NewEngine(cat, sqlClient, mongoClient, log)

	// Optional cache; nil when REDIS_ADDR is unset.
	c := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
		time.Duration(cfg.CacheTTLSec)*time.Second)
	defer c.Close()

	// Optional staging watcher.
	if cfg.StagingDir != "" {
		watcher := staging.NewWatcher(cfg.StagingDir, orchestrator, log)
		if err := watcher.Start(ctx, cfg.SweepCron); err != nil {
			log.Error("start staging watcher", "dir", cfg.StagingDir, "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	srv := server.New(orchestrator, engine, cat, c, log)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Router(cfg.Mode),
	}

	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
}
