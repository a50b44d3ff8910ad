package main

import (
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pokedex/internal/config"
	"pokedex/internal/pokeapi"
	"pokedex/internal/repository"
	"pokedex/internal/repository/memory"
	"pokedex/internal/repository/postgres"
	"pokedex/internal/server"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	cfg := config.Load()

	var store repository.Store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("postgres connection failed", zap.Error(err))
		}
		defer pg.Close()
		store = pg
		log.Info("using postgres store")
	} else {
		store = memory.New()
		log.Info("using in-memory store")
	}

	var cacheClient *redis.Client
	if cfg.RedisAddr != "" {
		cacheClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		log.Info("catalog cache enabled", zap.String("addr", cfg.RedisAddr))
	}

	catalog := pokeapi.New(cfg.PokeAPIBaseURL, cacheClient, cfg.CatalogCacheTTL, log)

	srv := server.New(cfg, store, catalog, log)
	if err := srv.Start(); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}
