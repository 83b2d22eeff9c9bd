// api/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"globesuggest/api/catalog"
	"globesuggest/api/config"
	"globesuggest/api/database"
	"globesuggest/api/envelope"
	"globesuggest/api/handlers"
	"globesuggest/api/ingest"
	"globesuggest/api/middleware"
	"globesuggest/api/models"
	"globesuggest/api/notify"
	"globesuggest/api/relay"
	"globesuggest/api/store"
	"globesuggest/api/utils"
)

// routeHandlers groups everything newRouter mounts.
type routeHandlers struct {
	Products  *handlers.ProductHandlers
	Search    *handlers.SearchHandlers
	Analytics *handlers.AnalyticsHandlers
	Enquiry   *handlers.EnquiryHandlers
	Contact   *handlers.ContactHandlers
	Auth      *handlers.AuthHandlers
	Stats     *handlers.StatsHandlers
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Datadog.AgentHost != "" {
		tracer.Start(
			tracer.WithService(cfg.Datadog.Service),
			tracer.WithEnv(cfg.Datadog.Env),
			tracer.WithServiceVersion(cfg.Datadog.Version),
			tracer.WithAgentAddr(cfg.Datadog.AgentHost+":8126"),
		)
		defer tracer.Stop()
		log.Printf("Datadog APM tracer started: service=%s env=%s agent=%s",
			cfg.Datadog.Service, cfg.Datadog.Env, cfg.Datadog.AgentHost)
	}

	// --- Primary store (sessions, events, leads) ---
	dbClient, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbClient.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := dbClient.Migrate(migrateCtx); err != nil {
		cancelMigrate()
		log.Fatalf("Failed to migrate database: %v", err)
	}
	cancelMigrate()

	// --- Optional ClickHouse mirror for reporting ---
	var (
		reporting handlers.ReportingStore
		sink      ingest.EventSink
	)
	chClient, err := database.NewClickHouseDB(cfg.ClickHouse)
	switch {
	case errors.Is(err, database.ErrClickHouseDisabled):
		log.Println("ClickHouse not configured; stats endpoints will report unavailable.")
	case err != nil:
		log.Fatalf("Failed to initialize ClickHouse database: %v", err)
	default:
		defer chClient.Close()
		schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
		if err := chClient.EnsureSchema(schemaCtx); err != nil {
			log.Printf("Failed to ensure ClickHouse schema: %v", err)
		}
		cancelSchema()
		analyticsStore := store.NewAnalyticsStore(chClient)
		reporting = analyticsStore
		sink = analyticsStore
	}

	codec, err := envelope.New(cfg.LocalPrivateKeyPEM)
	if err != nil {
		log.Printf("Invalid ANALYTICS_LOCAL_PRIVATE_KEY_PEM, encrypted ingest disabled: %v", err)
		codec = &envelope.Codec{}
	}

	// --- Upstream clients ---
	catalogClient := catalog.NewClient(utils.NewCatalogClient(), catalog.Config{BaseURL: cfg.APIBase, APIKey: cfg.APIKey})
	resolver := catalog.NewResolver(catalogClient, cfg.SlugCacheSize, cfg.SlugCacheTTL)
	forwarder := relay.NewForwarder(utils.NewRelayClient(), relay.Config{RemoteURL: cfg.RemoteIngestURL, APIKey: cfg.APIKey})

	// --- Stores ---
	sessionStore := store.NewSessionStore(dbClient)
	leadStore := store.NewLeadStore(dbClient)
	aggregator := ingest.NewAggregator(sessionStore, sink)

	clientCfg := models.ClientAnalyticsConfig{
		IngestURL:          cfg.ClientIngestURL,
		LocalIngestURL:     "/api/analytics/ingest/",
		ForwardURL:         "/api/analytics/forward/",
		SampleRate:         cfg.SampleRate,
		RequireConsent:     cfg.RequireConsent,
		RemotePublicKeyPEM: cfg.RemotePublicKeyPEM,
		LocalPublicKeyPEM:  cfg.LocalPublicKeyPEM,
	}

	// --- Handlers ---
	h := routeHandlers{
		Products:  handlers.NewProductHandlers(resolver, cfg.MediaBase),
		Search:    handlers.NewSearchHandlers(catalogClient),
		Analytics: handlers.NewAnalyticsHandlers(aggregator, codec, forwarder, clientCfg),
		Enquiry:   handlers.NewEnquiryHandlers(leadStore, []byte(cfg.IPHashKey)),
		Contact:   handlers.NewContactHandlers(store.NewContactStore(dbClient), notify.NewLogNotifier(cfg.ContactRecipients), []byte(cfg.IPHashKey)),
		Auth:      handlers.NewAuthHandlers(cfg.AdminPasswordHash, []byte(cfg.JWTSecret), cfg.GinMode == gin.ReleaseMode),
		Stats:     handlers.NewStatsHandlers(reporting, sessionStore),
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Go API server starting on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Go API server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}

func newRouter(cfg config.Config, h routeHandlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if cfg.Datadog.AgentHost != "" {
		r.Use(gintrace.Middleware(cfg.Datadog.Service))
	}
	r.Use(middleware.RequestID())
	r.Use(middleware.CORSMiddleware(cfg.FEOrigin))

	r.GET("/healthz", handlers.HealthCheck)

	api := r.Group("/api")
	{
		api.GET("/search/suggest", h.Search.Suggest)

		products := api.Group("/products")
		{
			products.GET("/:identifier", h.Products.GetProduct)
			products.GET("/:identifier/schema", h.Products.GetSchema)
			products.GET("/:identifier/blog/:index", h.Products.GetBlog)
		}

		analytics := api.Group("/analytics")
		{
			analytics.POST("/ingest/", h.Analytics.Ingest)
			analytics.POST("/forward/", h.Analytics.Forward)
			analytics.GET("/config", h.Analytics.Config)
		}

		enquiry := api.Group("/enquiry")
		{
			enquiry.POST("/draft/", h.Enquiry.Draft)
			enquiry.POST("/submit/", h.Enquiry.Submit)
		}

		api.POST("/contact/", h.Contact.Submit)

		api.POST("/admin/login", h.Auth.Login)
		api.POST("/admin/logout", h.Auth.Logout)

		stats := api.Group("/stats")
		stats.Use(middleware.AuthRequired([]byte(cfg.JWTSecret), cfg.AuthDefault))
		{
			stats.GET("/event-counts", h.Stats.GetEventCountsOverTime)
			stats.GET("/unique-sessions", h.Stats.GetUniqueSessionsOverTime)
			stats.GET("/average-event-duration", h.Stats.GetAverageEventDuration)
			stats.GET("/top-products", h.Stats.GetTopProducts)
			stats.GET("/sessions/:session_id", h.Stats.GetSession)
		}
	}
	return r
}
