package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"

	"event-service/internal/config"
	"event-service/internal/notifier"
	"event-service/internal/publisher"
	"event-service/internal/render"
	"event-service/internal/repository"
	"event-service/internal/server"
	"event-service/internal/service"
	"event-service/internal/vocab"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)

	if err := godotenv.Load(); err != nil {
		log.Warn("Could not load .env file.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithField("error", err).Fatal("Could not load configuration")
	}

	if cfg.VocabFile != "" {
		if err := vocab.LoadOverrides(cfg.VocabFile); err != nil {
			log.WithField("error", err).Fatal("Could not load vocabulary overrides")
		}
		log.WithField("file", cfg.VocabFile).Info("Vocabulary overrides loaded")
	}

	log.Info("Starting database migration...")
	m, err := migrate.New("file://db/migrations", cfg.DB.URL)
	if err != nil {
		log.WithField("error", err).Fatal("Could not create migrate instance")
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.WithField("error", err).Fatal("Could not apply migration")
	}
	log.Info("Database migration finished successfully.")

	db, err := sql.Open("postgres", cfg.DB.URL)
	if err != nil {
		log.WithField("error", err).Fatal("Could not connect to the database")
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.DB.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		log.WithField("error", err).Fatal("Could not ping the database")
	}
	log.Info("Successfully connected to the PostgreSQL database.")

	// Create repositories
	eventRepository := repository.NewPostgresEventRepository(db)
	sampleRepository := repository.NewPostgresSampleRepository(db)
	userRepository := repository.NewPostgresUserRepository(db)

	// Audit publishing is optional; without brokers the service runs
	// with auditing disabled.
	var auditService *service.AuditService
	if cfg.Kafka.BootstrapServers != "" {
		auditPublisher, err := publisher.NewAuditPublisher(cfg.Kafka.BootstrapServers, cfg.Kafka.AuditTopic)
		if err != nil {
			log.WithField("error", err).Fatal("Could not create audit publisher")
		}
		defer auditPublisher.Close()
		auditService = service.NewAuditService(auditPublisher)
	} else {
		log.Warn("KAFKA_BOOTSTRAP_SERVERS not set, audit publishing disabled")
	}

	// Subscriptions, favorites and pending notifications live in Redis
	notify := notifier.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer notify.Close()
	if err := notify.Ping(context.Background()); err != nil {
		log.WithField("error", err).Fatal("Could not ping Redis")
	}
	log.Info("Successfully connected to Redis.")

	// Create services
	eventService := service.NewEventService(eventRepository, sampleRepository, notify, auditService)
	authService := service.NewAuthService(userRepository, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Create server
	srv := server.NewServer(eventService, authService, db)

	// Setup Echo
	e := echo.New()

	renderer, err := render.New()
	if err != nil {
		log.WithField("error", err).Fatal("Could not load page templates")
	}
	e.Renderer = renderer

	// Health check and metrics
	e.GET("/health", srv.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Login
	e.POST("/api/login", srv.Login)

	// Static assets consumed by the detail page
	e.Static("/static", "static")

	// Detail page
	pages := e.Group("", server.JWTAuth(authService))
	pages.GET("/events/:id", srv.EventDetailPage, server.Metrics("detail_page"))

	// CRUD and widget endpoints
	api := e.Group("/api", server.JWTAuth(authService))
	events := api.Group("/events")
	events.POST("", srv.CreateEvent, server.Metrics("create"))
	events.GET("", srv.ListEvents, server.Metrics("list"))
	events.GET("/types", srv.EventTypeOptions, server.Metrics("type_options"))
	events.POST("/:id/title", srv.UpdateTitle, server.Metrics("update_title"))
	events.POST("/:id/type", srv.UpdateType, server.Metrics("update_type"))
	events.POST("/:id/status", srv.UpdateStatus, server.Metrics("update_status"))
	events.POST("/:id/samples", srv.UploadSample, server.Metrics("upload_sample"))
	events.DELETE("/:id", srv.DeleteEvent, server.Metrics("delete"))
	events.POST("/:id/download", srv.Download, server.Metrics("download"))

	// Widget mutations
	events.POST("/:id/comments", srv.AddComment, server.Metrics("add_comment"))
	events.POST("/:id/releasability", srv.AddReleasability, server.Metrics("add_releasability"))
	events.DELETE("/:id/releasability/:name", srv.RemoveReleasability, server.Metrics("remove_releasability"))
	events.POST("/:id/sources", srv.AddSource, server.Metrics("add_source"))
	events.POST("/:id/tickets", srv.AddTicket, server.Metrics("add_ticket"))
	events.POST("/:id/campaigns", srv.AddCampaign, server.Metrics("add_campaign"))
	events.POST("/:id/locations", srv.AddLocation, server.Metrics("add_location"))
	events.POST("/:id/relationships", srv.AddRelationship, server.Metrics("add_relationship"))
	events.POST("/:id/objects", srv.AddObject, server.Metrics("add_object"))
	events.POST("/:id/buckets", srv.AddBuckets, server.Metrics("add_buckets"))
	events.POST("/:id/sectors", srv.SetSectors, server.Metrics("set_sectors"))
	events.POST("/:id/analysis", srv.AddAnalysisResult, server.Metrics("add_analysis"))
	events.POST("/:id/subscribe", srv.ToggleSubscription, server.Metrics("subscribe"))
	events.POST("/:id/favorite", srv.ToggleFavorite, server.Metrics("favorite"))

	log.WithField("port", cfg.HTTP.Port).Info("Event service is starting with Echo")

	if err := e.Start(":" + cfg.HTTP.Port); err != nil && err != http.ErrServerClosed {
		log.WithField("error", err).Fatal("Echo server failed to start")
	}
}
