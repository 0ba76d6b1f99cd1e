package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookworms/internal/auth"
	"github.com/mrlokans/bookworms/internal/cache"
	"github.com/mrlokans/bookworms/internal/config"
	"github.com/mrlokans/bookworms/internal/covers"
	"github.com/mrlokans/bookworms/internal/database"
	"github.com/mrlokans/bookworms/internal/database/books"
	"github.com/mrlokans/bookworms/internal/database/bookshelves"
	"github.com/mrlokans/bookworms/internal/database/children"
	"github.com/mrlokans/bookworms/internal/database/classrooms"
	"github.com/mrlokans/bookworms/internal/database/users"
	http_controllers "github.com/mrlokans/bookworms/internal/http"
	"github.com/mrlokans/bookworms/internal/metadata"
	"github.com/mrlokans/bookworms/internal/scheduler"
	"github.com/mrlokans/bookworms/internal/search"
	"github.com/mrlokans/bookworms/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts it down
// within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill -2 is SIGINT, plain kill sends SIGTERM. SIGKILL cannot be caught.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop producers and workers before the listener
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run wires every component from cfg and serves the API.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting Bookworms v%s", version)

	if cfg.HTTP.HSTSMaxAge == 0 {
		log.Printf("WARNING: HSTS is disabled. Set 'HSTS_MAX_AGE' when serving behind TLS.")
	}

	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	usersRepo := users.NewRepository(db.DB)
	childrenRepo := children.NewRepository(db.DB)
	shelvesRepo := bookshelves.NewRepository(db.DB)
	booksRepo := books.NewRepository(db.DB,
		books.WithSearchBuilder(search.NewBuilder(cfg.Search.RelevanceThreshold, cfg.Search.ResultLimit)))
	roomsRepo := classrooms.NewRepository(db.DB)

	// The signing secret lives only in this process; restarting the server
	// invalidates every issued token.
	secret, err := auth.GenerateSigningSecret()
	if err != nil {
		log.Fatalf("Failed to generate token signing secret: %v", err)
	}
	tokens, err := auth.NewTokenService(secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("Failed to initialize token service: %v", err)
	}
	authService, err := auth.NewService(usersRepo, tokens, auth.NewHasher(cfg.Auth.HashIterations))
	if err != nil {
		log.Fatalf("Failed to initialize auth service: %v", err)
	}
	loginLimiter := auth.NewLoginLimiter(cfg.Auth)
	defer loginLimiter.Stop()
	log.Printf("Token authentication enabled (issuer %s, ttl %v)", cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	store, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Error closing cache: %v", err)
		}
	}()
	if redisStore, ok := store.(*cache.RedisStore); ok {
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisStore.Ping(pingCtx); err != nil {
			log.Printf("WARNING: Redis cache is unreachable: %v", err)
		}
		cancel()
	}
	log.Printf("Cache backend: %s (ttl %v)", cfg.Cache.Backend, cfg.Cache.TTL)

	coverFetcher := covers.NewFetcher(store, cfg.Cache.TTL)

	var enricher *metadata.Enricher
	if cfg.Metadata.Enabled {
		openLibrary := metadata.NewOpenLibraryClient(
			metadata.WithBaseURL(cfg.Metadata.BaseURL),
			metadata.WithCoversURL(cfg.Metadata.CoversURL),
			metadata.WithRateLimit(cfg.Metadata.RequestsPerSecond),
			metadata.WithCache(store, cfg.Cache.TTL),
		)
		enricher = metadata.NewEnricher(openLibrary, booksRepo)
		enricher.SetCoverInvalidator(coverFetcher)
	} else {
		log.Printf("WARNING: Metadata enrichment is disabled. Set 'METADATA_ENABLED' to enable.")
	}

	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled && enricher != nil {
		tasksPath := tasks.ResolveDatabasePath(cfg.Tasks, cfg.Database)
		taskClient, err = tasks.NewClient(tasksPath, tasks.FromSettings(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewEnrichBookQueue(enricher),
			tasks.NewEnrichAllBooksQueue(enricher),
		)
		if memory, ok := store.(*cache.MemoryStore); ok {
			taskClient.Register(tasks.NewPurgeCacheQueue(memory))
		}

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled && taskClient != nil {
		_, usesMemory := store.(*cache.MemoryStore)
		sched = scheduler.New(taskClient, scheduler.Options{
			EnrichSchedule: cfg.Scheduler.EnrichSchedule,
			PurgeCache:     usesMemory,
		})
		if err := sched.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
	}

	routerCfg := http_controllers.RouterConfig{
		Database:     db,
		Users:        usersRepo,
		Children:     childrenRepo,
		Shelves:      shelvesRepo,
		Books:        booksRepo,
		Rooms:        roomsRepo,
		AuthService:  authService,
		Tokens:       tokens,
		LoginLimiter: loginLimiter,
		HSTSMaxAge:   cfg.HTTP.HSTSMaxAge,
		Version:      version,
		Covers:       coverFetcher,
	}
	// Typed nils must not reach the interface fields.
	if enricher != nil {
		routerCfg.Enricher = enricher
	}
	if taskClient != nil {
		routerCfg.TaskQueue = taskClient
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if sched != nil {
			sched.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
