package main

import (
	"context"
	"os"

	"datalake/internal/catalog"
	"datalake/internal/config"
	"datalake/internal/dbclient"
	"datalake/internal/ingest"
	"datalake/internal/logger"
	mcpserver "datalake/internal/mcp"
	"datalake/internal/retrieval"
)

// Standalone MCP server over stdio. Shares the catalog and payload stores
// with the HTTP server through the same configuration.
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Stdio carries the protocol, so logs must go to stderr only. Production
	// zap config writes to stderr; force it regardless of APP_MODE.
	log, err := logger.New("prod")
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	catalogDB, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		log.Fatal("open catalog", "path", cfg.CatalogPath, "error", err)
	}
	defer catalogDB.Close()
	cat := catalog.NewStore(catalogDB)

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

	writer := ingest.NewWriter(sqlClient, mongoClient, log)
	orchestrator := ingest.NewOrchestrator(cat, writer, sqlClient.Dialect(), log)
	engine := retrieval.NewEngine(cat, sqlClient, mongoClient, log)

	s := mcpserver.New(mcpserver.Deps{
		Catalog:      cat,
		Engine:       engine,
		Orchestrator: orchestrator,
		Log:          log,
	})
	if err := s.ServeStdio(); err != nil {
		log.Fatal("mcp server", "error", err)
	}
}
