package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/sbilibin2017/gw-login/internal/clients"
	"github.com/sbilibin2017/gw-login/internal/events"
	"github.com/sbilibin2017/gw-login/internal/handlers"
	"github.com/sbilibin2017/gw-login/internal/jwt"
	"github.com/sbilibin2017/gw-login/internal/logger"
	"github.com/sbilibin2017/gw-login/internal/middlewares"
	"github.com/sbilibin2017/gw-login/internal/repositories"
	"github.com/sbilibin2017/gw-login/internal/services"
	"github.com/sbilibin2017/gw-login/internal/submitter"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/sbilibin2017/gw-login/docs"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// Backends selectable through configuration.
const (
	backendMemory   = "memory"
	backendRedis    = "redis"
	backendPostgres = "postgres"
	backendLocal    = "local"
	backendRemote   = "remote"
)

type config struct {
	AppHost      string
	AppPort      string
	LogLevel     string
	Redirect     string
	SecureCookie bool

	AuthBackend       string
	AuthRemoteURL     string
	AuthTimeoutSecond int
	AuthAccounts      string

	JWTSecretKey string
	JWTExpSecond int

	SessionBackend string

	PGHost         string
	PGPort         int
	PGUser         string
	PGPassword     string
	PGDB           string
	PGMaxOpenConns int
	PGMaxIdleConns int

	RedisHost         string
	RedisPort         int
	RedisDB           int
	RedisPassword     string
	RedisPoolSize     int
	RedisMinIdleConns int

	KafkaBrokers string
	KafkaTopic   string
}

// @title gw-login API
// @version 1.0.0
// @description Login front for gw-currency-wallet services
// @host localhost:8080
// @BasePath /
// @schemes http
func main() {
	printBuildInfo()
	configPath := parseFlags()

	cfg, err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Build version: %s\nBuild date: %s\nBuild commit: %s\n", buildVersion, buildDate, buildCommit)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// parseConfig loads environment variables from a file and returns
// the application, auth, session store, event and logging configuration.
func parseConfig(path string) (cfg config, err error) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}
	getInt := func(key, defaultValue string) int {
		if err != nil {
			return 0
		}
		var v int
		if v, err = strconv.Atoi(getEnv(key, defaultValue)); err != nil {
			err = fmt.Errorf("%s: %w", key, err)
		}
		return v
	}

	// Application config
	cfg.AppHost = getEnv("APP_HOST", "localhost")
	cfg.AppPort = getEnv("APP_PORT", "8080")
	cfg.LogLevel = getEnv("APP_LOG_LEVEL", "info")
	cfg.Redirect = getEnv("LOGIN_REDIRECT", "/")
	if cfg.SecureCookie, err = strconv.ParseBool(getEnv("SESSION_COOKIE_SECURE", "false")); err != nil {
		err = fmt.Errorf("SESSION_COOKIE_SECURE: %w", err)
		return
	}

	// Authentication config
	cfg.AuthBackend = getEnv("AUTH_BACKEND", backendLocal)
	cfg.AuthRemoteURL = getEnv("AUTH_REMOTE_URL", "http://localhost:8081")
	cfg.AuthTimeoutSecond = getInt("AUTH_TIMEOUT_SECOND", "5")
	cfg.AuthAccounts = getEnv("AUTH_ACCOUNTS", "")

	// JWT config
	cfg.JWTSecretKey = getEnv("JWT_SECRET_KEY", "my_super_secret_key")
	cfg.JWTExpSecond = getInt("JWT_EXP_SECOND", "3600")

	// Session store config
	cfg.SessionBackend = getEnv("SESSION_BACKEND", backendMemory)

	// PostgreSQL config
	cfg.PGHost = getEnv("POSTGRES_HOST", "localhost")
	cfg.PGUser = getEnv("POSTGRES_USER", "user")
	cfg.PGPassword = getEnv("POSTGRES_PASSWORD", "password")
	cfg.PGDB = getEnv("POSTGRES_DB", "database")
	cfg.PGPort = getInt("POSTGRES_PORT", "5432")
	cfg.PGMaxOpenConns = getInt("POSTGRES_MAX_OPEN_CONNS", "16")
	cfg.PGMaxIdleConns = getInt("POSTGRES_MAX_IDLE_CONNS", "8")

	// Redis config
	cfg.RedisHost = getEnv("REDIS_HOST", "localhost")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisPort = getInt("REDIS_PORT", "6379")
	cfg.RedisDB = getInt("REDIS_DB", "0")
	cfg.RedisPoolSize = getInt("REDIS_POOL_SIZE", "10")
	cfg.RedisMinIdleConns = getInt("REDIS_MIN_IDLE_CONNS", "2")

	// Kafka config
	cfg.KafkaBrokers = getEnv("KAFKA_BROKERS", "")
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", "login-events")

	if err != nil {
		return
	}

	switch cfg.AuthBackend {
	case backendLocal, backendPostgres, backendRemote:
	default:
		err = fmt.Errorf("AUTH_BACKEND: unknown backend %q", cfg.AuthBackend)
		return
	}
	switch cfg.SessionBackend {
	case backendMemory, backendRedis, backendPostgres:
	default:
		err = fmt.Errorf("SESSION_BACKEND: unknown backend %q", cfg.SessionBackend)
		return
	}

	return
}

// run initializes the logger, the configured backends and the HTTP server.
// It sets up routes, applies middleware, and handles graceful shutdown.
func run(ctx context.Context, cfg config) error {
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	log := logger.Log
	defer log.Sync()
	log.Infof("Logger initialized with level %s", cfg.LogLevel)

	var db *sqlx.DB
	if cfg.AuthBackend == backendPostgres || cfg.SessionBackend == backendPostgres {
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			cfg.PGUser, cfg.PGPassword, cfg.PGHost, cfg.PGPort, cfg.PGDB)
		log.Infow("Connecting to PostgreSQL", "host", cfg.PGHost, "port", cfg.PGPort, "db", cfg.PGDB)

		var err error
		db, err = sqlx.ConnectContext(ctx, "pgx", dsn)
		if err != nil {
			return fmt.Errorf("PostgreSQL connection error: %w", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.PGMaxOpenConns)
		db.SetMaxIdleConns(cfg.PGMaxIdleConns)
	}

	var rdb *redis.Client
	if cfg.SessionBackend == backendRedis {
		rdb = redis.NewClient(&redis.Options{
			Addr:         fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			PoolSize:     cfg.RedisPoolSize,
			MinIdleConns: cfg.RedisMinIdleConns,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("Redis connection error: %w", err)
		}
		defer rdb.Close()
	}

	sessions := newSessionRepository(cfg, db, rdb)

	accounts, err := newAccountRepository(cfg, db)
	if err != nil {
		return err
	}
	auth := newAuthenticator(cfg, accounts)

	publisher := newPublisher(cfg)
	defer publisher.Close()

	r := newRouter(cfg, handlers.FormDeps{
		Auth:         auth,
		Sessions:     sessions,
		Events:       publisher,
		Redirect:     cfg.Redirect,
		SecureCookie: cfg.SecureCookie,
	}, handlers.StoryDeps{
		Accounts: accounts,
		Stories:  newStoryRepository(db),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort),
		Handler: r,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go func() {
		log.Infof("HTTP server listening on %s:%s", cfg.AppHost, cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctxShutdown.Done():
		log.Info("Shutdown signal received, stopping HTTP server...")
	case serveErr := <-errChan:
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown error", "error", err)
	}

	log.Info("HTTP server stopped gracefully")
	return nil
}

func newSessionRepository(cfg config, db *sqlx.DB, rdb *redis.Client) handlers.SessionRepository {
	switch cfg.SessionBackend {
	case backendRedis:
		return repositories.NewSessionRedisRepository(rdb)
	case backendPostgres:
		return repositories.NewSessionPostgresRepository(db)
	default:
		return repositories.NewSessionMemoryRepository()
	}
}

// accountDirectory serves both credential checks and user id lookups.
type accountDirectory interface {
	services.AccountReader
	handlers.AccountFinder
}

// newAccountRepository returns nil for the remote backend, whose accounts
// are not visible to this service.
func newAccountRepository(cfg config, db *sqlx.DB) (accountDirectory, error) {
	switch cfg.AuthBackend {
	case backendRemote:
		return nil, nil
	case backendPostgres:
		return repositories.NewAccountPostgresRepository(db), nil
	}

	accounts, err := repositories.ParseAccounts(cfg.AuthAccounts)
	if err != nil {
		return nil, fmt.Errorf("AUTH_ACCOUNTS: %w", err)
	}
	if len(accounts) == 0 {
		logger.Log.Warn("AUTH_ACCOUNTS is empty, every login will be rejected")
	}
	return repositories.NewAccountMemoryRepository(accounts...), nil
}

func newTokenIssuer(cfg config) *jwt.JWT {
	return jwt.New(
		jwt.WithSecretKey(cfg.JWTSecretKey),
		jwt.WithExpiration(time.Duration(cfg.JWTExpSecond)*time.Second),
	)
}

func newAuthenticator(cfg config, accounts services.AccountReader) submitter.Authenticator {
	if cfg.AuthBackend == backendRemote {
		return clients.NewAuthHTTPClient(cfg.AuthRemoteURL, time.Duration(cfg.AuthTimeoutSecond)*time.Second)
	}
	return services.NewAuthService(accounts, newTokenIssuer(cfg))
}

// newTokenValidator checks the signature of locally issued tokens.
// Remote tokens are signed with a key this service does not hold.
func newTokenValidator(cfg config) middlewares.TokenValidator {
	if cfg.AuthBackend == backendRemote {
		return nil
	}
	return newTokenIssuer(cfg)
}

func newStoryRepository(db *sqlx.DB) handlers.StoryRepository {
	if db != nil {
		return repositories.NewStoryPostgresRepository(db)
	}
	return repositories.NewStoryMemoryRepository()
}

type closingPublisher interface {
	submitter.EventPublisher
	io.Closer
}

func newPublisher(cfg config) closingPublisher {
	if cfg.KafkaBrokers == "" {
		return events.NopPublisher{}
	}
	logger.Log.Infow("Publishing login events to Kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	return events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
}

// newRouter wires every HTTP route of the login front.
func newRouter(cfg config, deps handlers.FormDeps, stories handlers.StoryDeps) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware(logger.Log))

	// Public routes
	r.Get("/login", handlers.NewLoginPageHandler(deps))
	r.Post("/login", handlers.NewLoginFormHandler(deps))
	r.Post("/api/v1/login", handlers.NewLoginAPIHandler(deps))
	r.Get("/ws", handlers.NewLiveFormHandler(deps))
	r.Post("/logout", handlers.NewLogoutHandler(deps.Sessions))

	// Protected routes
	var guardOpts []middlewares.SessionOpt
	if v := newTokenValidator(cfg); v != nil {
		guardOpts = append(guardOpts, middlewares.WithTokenValidator(v))
	}
	r.Group(func(r chi.Router) {
		r.Use(middlewares.SessionMiddleware(deps.Sessions, handlers.SessionCookieName, guardOpts...))
		r.Get("/", handlers.NewHomeHandler())

		r.Route("/api/v1/stories", func(r chi.Router) {
			r.Get("/get-list/{userId}", handlers.NewStoryListHandler(stories))
			r.Get("/get-story/{storyId}", handlers.NewStoryGetHandler(stories))
			r.Put("/new-story", handlers.NewStoryCreateHandler(stories))
		})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://%s:%s/swagger/doc.json", cfg.AppHost, cfg.AppPort)),
	))

	return r
}
