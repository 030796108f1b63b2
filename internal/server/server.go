// Package server provides the MCP server surface for the alert assistant.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/oemwatch/alertassist/internal/alert"
	"github.com/oemwatch/alertassist/internal/auditlog"
	"github.com/oemwatch/alertassist/internal/config"
	"github.com/oemwatch/alertassist/internal/engine"
	"github.com/oemwatch/alertassist/internal/health"
	"github.com/oemwatch/alertassist/internal/metrics"
	"github.com/oemwatch/alertassist/internal/query"
	"github.com/oemwatch/alertassist/internal/session"
)

// Server represents the MCP server
type Server struct {
	mcpServer    *mcp.Server
	engine       *engine.Engine
	config       *config.Config
	logger       *zap.Logger
	metrics      *metrics.Metrics
	audit        *auditlog.Logger
	version      string
	healthServer *health.Server
}

// New creates a new MCP server instance. When cfg.AlertsFile is empty the
// server starts with an empty data source and every question is refused in
// SAFE mode until data is loaded.
func New(cfg *config.Config, logger *zap.Logger, version string) (*Server, error) {
	var alerts []alert.Alert
	if cfg.AlertsFile != "" {
		var err error
		alerts, err = query.LoadCSV(cfg.AlertsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load alert table: %w", err)
		}
		logger.Info("Alert table loaded",
			zap.String("file", cfg.AlertsFile),
			zap.Int("alerts", len(alerts)),
		)
	} else {
		logger.Warn("No alerts file configured; starting with an empty data source")
	}

	// Databases present in the loaded data are always recognizable, whether
	// or not they were listed in the configuration.
	cfg.KnownDatabases = unionDatabases(cfg.KnownDatabases, alerts)

	executor := query.NewMemoryExecutor(alerts, logger)
	store := session.NewStore(session.Options{
		HistoryLimit:   cfg.HistoryLimit,
		TTL:            cfg.SessionTTL,
		TurnsPerMinute: cfg.TurnsPerMinute,
		TurnBurst:      cfg.TurnBurst,
	}, logger)

	metricsTracker := metrics.New(logger)
	auditLogger := auditlog.NewLogger(logger, cfg.EnableAuditLog)
	eng := engine.New(cfg, store, executor, auditLogger, metricsTracker, logger)

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "Alert Assistant MCP Server",
		Version: version,
	}, &mcp.ServerOptions{
		HasTools: true,
	})

	s := &Server{
		mcpServer: mcpServer,
		engine:    eng,
		config:    cfg,
		logger:    logger,
		metrics:   metricsTracker,
		audit:     auditLogger,
		version:   version,
	}

	// Create health server if port is configured (port > 0)
	if cfg.HealthPort > 0 {
		healthChecker := health.New(executor, store, logger)
		s.healthServer = health.NewServer(healthChecker, logger, cfg.HealthPort, cfg.HealthBindAddr, cfg.MetricsEndpoint)
	}

	s.registerTools()
	return s, nil
}

// unionDatabases merges the configured database names with the distinct
// database names observed in the alert table. The extractor canonicalizes
// and deduplicates, so order and case do not matter here.
func unionDatabases(configured []string, alerts []alert.Alert) []string {
	seen := make(map[string]bool, len(configured))
	out := make([]string, 0, len(configured))
	for _, db := range configured {
		name := strings.ToUpper(strings.TrimSpace(db))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	for _, a := range alerts {
		if a.Database == "" || seen[a.Database] {
			continue
		}
		seen[a.Database] = true
		out = append(out, a.Database)
	}
	return out
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.registerTool(NewAskTool(s.engine, s.logger))
	s.registerTool(NewResetSessionTool(s.engine, s.logger))
	s.registerTool(NewSessionSummaryTool(s.engine, s.logger))
	s.registerTool(NewAuditLogTool(s.audit, s.logger))

	s.logger.Info("Registered all MCP tools")
}

// registerTool registers one tool with the MCP server.
func (s *Server) registerTool(t Tool) {
	mcpTool := &mcp.Tool{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.InputSchema(),
		Annotations: t.Annotations(),
	}

	handler := func(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]interface{}
		if len(request.Params.Arguments) > 0 {
			if err := json.Unmarshal(request.Params.Arguments, &args); err != nil {
				return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
			}
		}
		return t.Execute(ctx, args)
	}

	s.mcpServer.AddTool(mcpTool, handler)
	s.logger.Debug("Registered tool", zap.String("tool", mcpTool.Name))
}

// Start starts the MCP server on the stdio transport and blocks until the
// context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting MCP server")

	if s.healthServer != nil {
		go func() {
			if err := s.healthServer.Start(); err != nil {
				s.logger.Error("Health server error", zap.Error(err))
			}
		}()
		s.healthServer.SetReady(true)
	}

	defer func() {
		s.metrics.LogStats()

		if s.healthServer != nil {
			s.healthServer.SetReady(false)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.healthServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("Failed to shutdown health server", zap.Error(err))
			}
		}
	}()

	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// GetMetrics returns the server's metrics tracker for external access
func (s *Server) GetMetrics() *metrics.Metrics {
	return s.metrics
}
