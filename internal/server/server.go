// Package server wires the admission pipeline in front of the API surface
// and owns process lifecycle.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pokedex/internal/audit"
	"pokedex/internal/auth"
	"pokedex/internal/cache"
	"pokedex/internal/config"
	"pokedex/internal/metrics"
	"pokedex/internal/middleware"
	"pokedex/internal/pokeapi"
	"pokedex/internal/policy"
	"pokedex/internal/quota"
	"pokedex/internal/repository"
	"pokedex/internal/service"
)

// CatalogClient is the slice of the upstream client the proxy routes need.
type CatalogClient interface {
	GetPokemon(ctx context.Context, idOrName string) (*pokeapi.Pokemon, error)
	Search(ctx context.Context, limit, offset int) (*pokeapi.SearchPage, error)
	GetByType(ctx context.Context, typeName string) (*pokeapi.TypeListing, error)
	GetSpecies(ctx context.Context, idOrName string) (*pokeapi.Species, error)
}

type Server struct {
	cfg *config.Config
	log *zap.Logger

	router  *http.ServeMux
	engine  *policy.Engine
	tracker *quota.Tracker
	quotas  *config.QuotaManager
	sink    audit.Sink
	metrics *metrics.Collector
	revoked *cache.TTLSet

	authSvc    *service.AuthService
	pokedexSvc *service.PokedexService
	teamSvc    *service.TeamService
	catalog    CatalogClient
}

// New wires the server from its collaborators. The store and catalog are
// injected so tests can run against the memory repository and a stub
// upstream.
func New(cfg *config.Config, store repository.Store, catalog CatalogClient, log *zap.Logger) *Server {
	sink := audit.NewZapSink(log)
	revoked := cache.NewTTLSet()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenLifetime)
	authSvc := service.NewAuthService(store, jwtManager, revoked, sink, cfg.MinSecretLength)

	quotas := config.NewQuotaManager()
	tracker := quota.NewTracker(quotas)

	engine := policy.NewEngine()
	engine.LoadRoutes(policy.DefaultRoutes())

	s := &Server{
		cfg:        cfg,
		log:        log,
		router:     http.NewServeMux(),
		engine:     engine,
		tracker:    tracker,
		quotas:     quotas,
		sink:       sink,
		metrics:    metrics.NewCollector(1000),
		revoked:    revoked,
		authSvc:    authSvc,
		pokedexSvc: service.NewPokedexService(store, catalog),
		teamSvc:    service.NewTeamService(store, store),
		catalog:    catalog,
	}
	s.routes()
	return s
}

// QuotaManager exposes the budgets for startup loading and tests.
func (s *Server) QuotaManager() *config.QuotaManager { return s.quotas }

func (s *Server) routes() {
	s.router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	s.router.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ready"))
	})
	s.router.HandleFunc("GET /api/v1/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.metrics.GetStats())
	})

	s.router.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	s.router.HandleFunc("GET /api/v1/auth/me", s.handleMe)
	s.router.HandleFunc("POST /api/v1/auth/logout", s.handleLogout)
	s.router.HandleFunc("POST /api/v1/auth/password", s.handleChangePassword)

	s.router.HandleFunc("GET /api/v1/pokemon/search", s.handlePokemonSearch)
	s.router.HandleFunc("GET /api/v1/pokemon/type/{name}", s.handlePokemonByType)
	s.router.HandleFunc("GET /api/v1/pokemon/{idOrName}", s.handlePokemonDetail)

	s.router.HandleFunc("POST /api/v1/pokedex", s.handleAddEntry)
	s.router.HandleFunc("GET /api/v1/pokedex", s.handleListEntries)
	s.router.HandleFunc("GET /api/v1/pokedex/export", s.handleExportEntries)
	s.router.HandleFunc("GET /api/v1/pokedex/stats", s.handleStats)
	s.router.HandleFunc("GET /api/v1/pokedex/{id}", s.handleGetEntry)
	s.router.HandleFunc("PATCH /api/v1/pokedex/{id}", s.handleUpdateEntry)
	s.router.HandleFunc("DELETE /api/v1/pokedex/{id}", s.handleDeleteEntry)

	s.router.HandleFunc("POST /api/v1/teams", s.handleCreateTeam)
	s.router.HandleFunc("GET /api/v1/teams", s.handleListTeams)
	s.router.HandleFunc("GET /api/v1/teams/{id}", s.handleGetTeam)
	s.router.HandleFunc("PUT /api/v1/teams/{id}", s.handleUpdateTeam)
	s.router.HandleFunc("DELETE /api/v1/teams/{id}", s.handleDeleteTeam)
	s.router.HandleFunc("GET /api/v1/teams/{id}/export", s.handleExportTeam)
}

// Handler assembles the admission pipeline around the router:
// metrics -> secure headers -> route resolution -> token check -> quota.
func (s *Server) Handler() http.Handler {
	authMw := middleware.NewAuth(s.authSvc.TokenManager(), s.revoked, s.sink)

	return middleware.Chain(s.router,
		middleware.Metrics(s.metrics),
		middleware.SecureHeaders(),
		middleware.ResolveRoute(s.engine),
		authMw.Handle,
		middleware.RateLimit(s.tracker, s.metrics, s.sink),
	)
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan struct{})
	defer close(stop)

	if s.cfg.QuotaFile != "" {
		if err := s.quotas.LoadFile(s.cfg.QuotaFile); err != nil {
			return fmt.Errorf("load quota file: %w", err)
		}
		go func() {
			if err := s.quotas.Watch(s.cfg.QuotaFile, s.log, stop); err != nil {
				s.log.Warn("quota watcher stopped", zap.Error(err))
			}
		}()
	}

	// Expired quota windows and revoked tokens are dropped in the
	// background so abandoned keys do not accumulate.
	go s.janitor(stop)

	srv := &http.Server{
		Addr:    ":" + s.cfg.ServerPort,
		Handler: s.Handler(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("port", s.cfg.ServerPort))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.log.Info("shutdown started", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

func (s *Server) janitor(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.tracker.Cleanup()
			s.revoked.Purge()
		}
	}
}
