package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"datalake/internal/cache"
	"datalake/internal/config"
)

// Operational helper to purge the catalog cache without restarting the
// server, e.g. after editing catalog rows by hand.
func main() {
	all := flag.Bool("all", false, "flush the entire cache database")
	pattern := flag.String("pattern", "catalog:*", "glob pattern of keys to delete")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.RedisAddr == "" {
		fmt.Fprintln(os.Stderr, "REDIS_ADDR is not set; nothing to clear")
		os.Exit(1)
	}

	c := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, time.Minute)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *all {
		if err := c.ClearAll(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "flush cache:", err)
			os.Exit(1)
		}
		fmt.Println("cache flushed")
		return
	}

	deleted, err := c.ClearPattern(ctx, *pattern)
	if err != nil {
		fmt.Fprintln(os.Stderr, "clear pattern:", err)
		os.Exit(1)
	}
	fmt.Printf("deleted %d keys matching %s\n", deleted, *pattern)
}
