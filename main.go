package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/statlens/statlens-engine/pkg/analysis"
	"github.com/statlens/statlens-engine/pkg/auth"
	"github.com/statlens/statlens-engine/pkg/config"
	"github.com/statlens/statlens-engine/pkg/database"
	"github.com/statlens/statlens-engine/pkg/datasource/postgres"
	"github.com/statlens/statlens-engine/pkg/handlers"
	"github.com/statlens/statlens-engine/pkg/logging"
	"github.com/statlens/statlens-engine/pkg/mcp"
	mcpauth "github.com/statlens/statlens-engine/pkg/mcp/auth"
	"github.com/statlens/statlens-engine/pkg/mcp/tools"
	"github.com/statlens/statlens-engine/pkg/middleware"
	"github.com/statlens/statlens-engine/pkg/repositories"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("bind_addr", cfg.BindAddr),
		zap.String("port", cfg.Port),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", fmt.Sprintf("%s@%s:%d/%s",
			cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)),
	)

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		DSN:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		// Driver errors can echo the DSN, so sanitize before logging.
		logger.Fatal("Failed to connect to database",
			zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations",
			zap.String("error", logging.SanitizeError(err)))
	}

	executor := postgres.NewExecutor(db.Pool)
	service := analysis.NewService(executor, logger, analysis.Limits{
		MaxDuplicateLimit: cfg.Analysis.MaxDuplicateLimit,
	})

	auditRepo := repositories.NewAuditRepository(db)
	auditLogger := mcp.NewAuditLogger(auditRepo, logger)

	mcpServer := mcp.NewServer("statlens", cfg.Version, logger,
		server.WithHooks(auditLogger.Hooks()))
	tools.RegisterAnalysisTools(mcpServer.MCP(), &tools.AnalysisToolDeps{
		Service:               service,
		DefaultDuplicateLimit: cfg.Analysis.DefaultDuplicateLimit,
		Logger:                logger,
	})
	tools.RegisterSchemaTools(mcpServer.MCP(), &tools.SchemaToolDeps{
		Executor: executor,
		Logger:   logger,
	})
	tools.RegisterQueryTool(mcpServer.MCP(), &tools.QueryToolDeps{
		Executor:     executor,
		DefaultLimit: cfg.Analysis.DefaultQueryLimit,
		MaxLimit:     cfg.Analysis.MaxQueryLimit,
		Logger:       logger,
	})
	tools.RegisterHealthTool(mcpServer.MCP(), cfg.Version, executor)

	authMiddleware, err := buildAuthMiddleware(cfg, auditLogger, logger)
	if err != nil {
		logger.Fatal("Failed to set up authentication", zap.Error(err))
	}

	mux := http.NewServeMux()

	mcpHandler := handlers.NewMCPHandler(mcpServer, logger)
	mcpHandler.RegisterRoutes(mux, authMiddleware)

	healthHandler := handlers.NewHealthHandler(cfg, executor, logger)
	healthHandler.RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting statlens-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version),
		zap.Bool("tls", cfg.TLSCertPath != ""))

	if cfg.TLSCertPath != "" {
		err = http.ListenAndServeTLS(addr, cfg.TLSCertPath, cfg.TLSKeyPath, handler)
	} else {
		err = http.ListenAndServe(addr, handler)
	}
	if err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// newLogger builds a production logger, or a human-readable development
// logger for local runs.
func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// runMigrations applies schema migrations over a database/sql connection,
// which golang-migrate requires.
func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer sqlDB.Close() //nolint:errcheck

	return database.RunMigrations(sqlDB, cfg.MigrationsPath, logger)
}

// buildAuthMiddleware wires bearer token verification for /mcp.
// Returns nil when verification is disabled so the MCP handler mounts
// without authentication (default local mode).
func buildAuthMiddleware(cfg *config.Config, audit *mcp.AuditLogger, logger *zap.Logger) (*mcpauth.Middleware, error) {
	if !cfg.Auth.EnableVerification {
		return nil, nil
	}

	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: true,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}

	authService := auth.NewAuthService(jwksClient, logger)
	return mcpauth.NewMiddleware(authService, audit, logger), nil
}
