package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"motodirectory/libs/directory"
	"motodirectory/libs/mailer"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	sourceJSON               = "json"
	sourcePostgres           = "postgres"
	defaultDataPath          = "data/directory_data.json"
	defaultLoadTimeout       = 30 * time.Second
	shutdownTimeout          = 10 * time.Second
	requestIDHeader          = "X-Request-ID"
	requestIDContextKey      = "request_id"
	geocoderUserAgent        = "MotoDirectory/1.0"
	devCORSOriginLocalhost   = "http://localhost:5173"
	devCORSOriginLoopback    = "http://127.0.0.1:5173"
	trustedProxyLoopbackIPv4 = "127.0.0.1"
	trustedProxyLoopbackIPv6 = "::1"
)

type Config struct {
	Addr                string
	Env                 string
	DatabaseURL         string
	DataSource          string
	DataPath            string
	Locale              string
	PublicBaseURL       string
	LoadTimeout         time.Duration
	AlertEmailTo        []string
	MapboxAccessToken   string
	GeocoderProvider    string
	ResendAPIKey        string
	MailerFromAddresses map[string]string
}

type App struct {
	cfg *Config
	db  *sql.DB
	log *slog.Logger

	locale    directory.Locale
	state     *directoryState
	metrics   *directoryMetrics
	mailer    *mailer.Mailer
	templates *directoryTemplateRenderer
	client    *http.Client

	// test hook, defaults to fetchDirectory
	loadDirectory func(ctx context.Context) (*directory.Dataset, error)
}

type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string { return e.Message }

func main() {
	if err := loadDotEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := "serve"
	var args []string
	if len(os.Args) > 1 {
		command = os.Args[1]
		args = os.Args[2:]
	}

	switch command {
	case "serve":
		err = runServe(ctx, cfg, logger)
	case "convert":
		err = runConvert(ctx, cfg, logger, args)
	case "migrate":
		err = runMigrate(ctx, cfg, logger, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s (expected serve, convert or migrate)\n", command)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "command", command, "err", err)
		os.Exit(1)
	}
}

func newApp(cfg *Config, logger *slog.Logger, db *sql.DB) (*App, error) {
	loc, err := directory.NewLocale(cfg.Locale)
	if err != nil {
		return nil, fmt.Errorf("DIRECTORY_LOCALE: %w", err)
	}

	mailClient := mailer.NewFromKey(cfg.ResendAPIKey, cfg.MailerFromAddresses, logger)
	logger.Info("mailer initialized", "provider", mailClient.ProviderName())

	app := &App{
		cfg:       cfg,
		db:        db,
		log:       logger,
		locale:    loc,
		state:     newDirectoryState(),
		metrics:   newDirectoryMetrics(),
		mailer:    mailClient,
		templates: newDirectoryTemplateRenderer(cfg.Env),
		client:    &http.Client{Timeout: cfg.LoadTimeout},
	}
	app.loadDirectory = app.fetchDirectory
	return app, nil
}

func runServe(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	var db *sql.DB
	if cfg.DataSource == sourcePostgres {
		var err error
		db, err = openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	app, err := newApp(cfg, logger, db)
	if err != nil {
		return err
	}

	logger.Info(
		"runtime configuration",
		"env", cfg.Env,
		"addr", cfg.Addr,
		"source", cfg.DataSource,
		"data_path", cfg.DataPath,
		"locale", cfg.Locale,
	)

	// The server is live while the directory loads; handlers answer "loading" until then.
	go func() {
		_ = app.loadOnce(ctx)
	}()

	router, err := app.routes()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.log.Info("starting gin API", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		app.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (a *App) routes() (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies([]string{trustedProxyLoopbackIPv4, trustedProxyLoopbackIPv6}); err != nil {
		return nil, err
	}
	r.Use(gin.Recovery())
	r.Use(a.loggingMiddleware())
	r.Use(a.metrics.middleware())
	r.Use(a.corsMiddleware())

	r.GET("/healthz", a.healthHandler)
	r.GET("/metrics", gin.WrapH(a.metrics.handler()))

	staticFS, err := directoryStaticFileSystem(a.cfg.Env)
	if err != nil {
		return nil, err
	}
	r.StaticFS("/static", staticFS)

	r.GET("/", a.directoryPageHandler)
	r.GET("/reset", a.resetHandler)

	api := r.Group("/api/v1")
	{
		api.GET("/shops", a.shopsHandler)
		api.GET("/shops/export", a.exportHandler)
		api.GET("/countries", a.countriesHandler)
		api.GET("/countries/:country/cities", a.citiesHandler)
	}
	return r, nil
}

func openDatabase(ctx context.Context, databaseURL string) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL or PG*/POSTGRES_* variables must be configured")
	}
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func loadConfig() (*Config, error) {
	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		host := valueFromEnvKeys("PGHOST", "POSTGRES_HOST")
		if host == "" {
			host = "127.0.0.1"
		}
		port := valueFromEnvKeys("PGPORT", "POSTGRES_PORT")
		if port == "" {
			port = "5432"
		}
		dbname := valueFromEnvKeys("PGDATABASE", "POSTGRES_DB")
		user := valueFromEnvKeys("PGUSER", "POSTGRES_USER")
		password := valueFromEnvKeys("PGPASSWORD", "POSTGRES_PASSWORD")
		sslmode := valueFromEnvKeys("PGSSLMODE", "POSTGRES_SSLMODE")
		if sslmode == "" {
			sslmode = "disable"
		}
		if dbname != "" && user != "" {
			databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, dbname, sslmode)
		}
	}

	source := strings.ToLower(valueOrDefault("DIRECTORY_SOURCE", sourceJSON))
	if source != sourceJSON && source != sourcePostgres {
		return nil, fmt.Errorf("DIRECTORY_SOURCE must be %q or %q", sourceJSON, sourcePostgres)
	}
	if source == sourcePostgres && databaseURL == "" {
		return nil, fmt.Errorf("DIRECTORY_SOURCE=postgres requires DATABASE_URL or PG*/POSTGRES_* variables")
	}

	locale := valueOrDefault("DIRECTORY_LOCALE", "en")
	if _, err := directory.NewLocale(locale); err != nil {
		return nil, fmt.Errorf("DIRECTORY_LOCALE must be a valid language tag: %w", err)
	}

	publicBase := strings.TrimRight(valueOrDefault("PUBLIC_BASE_URL", "http://localhost:8080"), "/")

	env := valueOrDefault("APP_ENV", "development")

	cfg := &Config{
		Addr:              valueOrDefault("HTTP_ADDR", ":8080"),
		Env:               env,
		DatabaseURL:       databaseURL,
		DataSource:        source,
		DataPath:          valueOrDefault("DIRECTORY_DATA_PATH", defaultDataPath),
		Locale:            locale,
		PublicBaseURL:     publicBase,
		LoadTimeout:       defaultLoadTimeout,
		AlertEmailTo:      splitList(os.Getenv("ALERT_EMAIL_TO")),
		MapboxAccessToken: strings.TrimSpace(os.Getenv("MAPBOX_ACCESS_TOKEN")),
		GeocoderProvider:  strings.TrimSpace(os.Getenv("GEOCODER_PROVIDER")),
		ResendAPIKey:      strings.TrimSpace(os.Getenv("RESEND_API_KEY")),
		MailerFromAddresses: map[string]string{
			"resend": valueOrDefault("MAILER_FROM_ADDRESS_RESEND", "noreply@mail.motodirectory.eu"),
			"log":    valueOrDefault("MAILER_FROM_ADDRESS_LOG", "noreply@motodirectory.local"),
		},
	}

	if raw := strings.TrimSpace(os.Getenv("LOAD_TIMEOUT")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("LOAD_TIMEOUT must be a valid duration")
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("LOAD_TIMEOUT must be > 0")
		}
		cfg.LoadTimeout = parsed
	}

	switch cfg.GeocoderProvider {
	case "", "mapbox", "nominatim", "fallback":
	default:
		return nil, fmt.Errorf("GEOCODER_PROVIDER must be mapbox, nominatim or fallback")
	}

	return cfg, nil
}

func loadDotEnvFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, raw := range strings.Split(string(content), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.Trim(strings.TrimSpace(line[idx+1:]), "\"")
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
	return nil
}

func valueOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func valueFromEnvKeys(keys ...string) string {
	for _, key := range keys {
		value := strings.TrimSpace(os.Getenv(key))
		if value != "" {
			return value
		}
	}
	return ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (a *App) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDContextKey, requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		a.log.Info("request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		)
	}
}

func (a *App) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := strings.TrimSpace(c.GetHeader("Origin"))
		if a.isAllowedCORSOrigin(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Headers", "Content-Type")
			c.Header("Access-Control-Allow-Methods", "GET,OPTIONS")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (a *App) isAllowedCORSOrigin(origin string) bool {
	if origin == "" || a.cfg == nil {
		return false
	}
	if a.cfg.PublicBaseURL != "" && origin == a.cfg.PublicBaseURL {
		return true
	}
	if !strings.EqualFold(a.cfg.Env, "development") {
		return false
	}
	return origin == devCORSOriginLocalhost || origin == devCORSOriginLoopback
}

func (a *App) healthHandler(c *gin.Context) {
	snap := a.state.snapshot()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "directory": snap.status.String()})
}

func writeAPIError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.Status, gin.H{"error": apiErr.Code, "message": apiErr.Message})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
}
