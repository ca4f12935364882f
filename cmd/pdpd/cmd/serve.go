package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	admininbound "github.com/xacmlgo/pdp/internal/adapter/inbound/admin"
	httpinbound "github.com/xacmlgo/pdp/internal/adapter/inbound/http"
	mcpinbound "github.com/xacmlgo/pdp/internal/adapter/inbound/mcp"
	auditoutbound "github.com/xacmlgo/pdp/internal/adapter/outbound/audit"
	"github.com/xacmlgo/pdp/internal/adapter/outbound/audit/jws"
	"github.com/xacmlgo/pdp/internal/adapter/outbound/memory"
	"github.com/xacmlgo/pdp/internal/adapter/outbound/sqlite"
	"github.com/xacmlgo/pdp/internal/adapter/outbound/xacmlxml"
	"github.com/xacmlgo/pdp/internal/config"
	domainaudit "github.com/xacmlgo/pdp/internal/domain/audit"
	"github.com/xacmlgo/pdp/internal/domain/policytree"
	"github.com/xacmlgo/pdp/internal/domain/value"
	"github.com/xacmlgo/pdp/internal/observability"
	"github.com/xacmlgo/pdp/internal/service"
	"github.com/xacmlgo/pdp/internal/service/pdp"
)

var serveDevMode bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the PDP server",
	Long: `Loads configuration, reads every Policy/PolicySet document from the
configured policy directories, builds an immutable decision snapshot, and
serves it over HTTP until interrupted (SIGINT/SIGTERM).`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveDevMode, "dev", false, "enable permissive dev-mode defaults")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serveDevMode {
		cfg.DevMode = true
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	value.SetDefaultLocation(time.FixedZone("", cfg.Policy.DefaultTimezoneOffsetMinutes*60))

	logger := newLogger(cfg)
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	// stop() restores default signal handling when runServe returns; until
	// then, further signals after the first are absorbed.
	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	defer stop()

	lr, err := loadPolicies(cfg.Policy.Dirs)
	if err != nil {
		return fmt.Errorf("load policies: %w", err)
	}
	logger.Info("loaded policy documents", "policies", len(lr.Policies), "policy_sets", len(lr.PolicySets), "roots", len(lr.Roots))

	snapshot, err := pdp.BuildSnapshot(lr.Policies, lr.PolicySets, lr.Roots, cfg.Policy.RootCombiningAlgorithm, cfg.Bloom.Enabled)
	if err != nil {
		return fmt.Errorf("build policy snapshot: %w", err)
	}

	obsProvider, err := observability.New(ctx, observability.Config{
		ServiceName: "pdpd",
		Tracing:     cfg.Server.Tracing,
		Metrics:     cfg.Server.Metrics,
		Writer:      os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	defer obsProvider.Shutdown(context.Background())

	engine := pdp.New(pdp.WithTracer(obsProvider.Tracer()))
	engine.Load(snapshot)

	writeStore, queryStore, closeAudit, err := buildAuditStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("build audit store: %w", err)
	}
	defer closeAudit()

	auditSvc, err := newAuditService(cfg, writeStore, logger)
	if err != nil {
		return fmt.Errorf("build audit service: %w", err)
	}
	auditSvc.Start(ctx)
	defer auditSvc.Stop()

	healthChecker := httpinbound.NewHealthChecker(engine, func() (string, bool) {
		depth, cap := auditSvc.ChannelDepth(), auditSvc.ChannelCapacity()
		if depth >= cap {
			return "channel full", false
		}
		return "ok", true
	})

	decisionHandler := httpinbound.NewDecisionHandler(engine, nil, func(decisionStr, subject, resource, action string, obligations []policytree.ResolvedObligation, statusCode string) {
		auditSvc.Record(domainaudit.AuditRecord{
			Timestamp:  time.Now().UTC(),
			SubjectID:  subject,
			ResourceID: resource,
			Action:     action,
			Decision:   decisionStr,
			StatusCode: statusCode,
		})
	})
	decisionHandler.SetObserver(obsProvider.RecordDecision)

	// The policy routes work without a query store; the audit routes
	// answer 503 when queryStore is nil (a signing-only write path).
	var adminMux http.Handler = admininbound.NewHandler(engine, queryStore).Mux()
	if cfg.Admin.Enabled {
		adminMux = admininbound.APIKeyAuth(cfg.Admin.APIKeyHash, adminMux)
	}
	adminHandler := httpinbound.WithAdminHandler(adminMux)

	transport := httpinbound.NewHTTPTransport(decisionHandler,
		httpinbound.WithAddr(cfg.Server.HTTPAddr),
		httpinbound.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		httpinbound.WithLogger(logger),
		httpinbound.WithHealthChecker(healthChecker),
		adminHandler,
	)

	if cfg.MCP.Enabled {
		mcpServer := mcpinbound.NewToolServer(engine)
		go func() {
			logger.Info("mcp tool façade ready", "tool", mcpinbound.ToolName)
			if err := mcpServer.Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
				logger.Error("mcp tool façade stopped", "error", err)
			}
		}()
	}

	logger.Info("pdpd ready", "addr", cfg.Server.HTTPAddr)
	if err := transport.Start(ctx); err != nil {
		return fmt.Errorf("http transport: %w", err)
	}
	logger.Info("pdpd stopped")
	return nil
}

func newLogger(cfg *config.PDPConfig) *slog.Logger {
	level := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadPolicies(dirs []string) (*xacmlxml.LoadResult, error) {
	var docs [][]byte
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read policy dir %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".xml") {
				continue
			}
			b, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				return nil, fmt.Errorf("read policy file %s: %w", e.Name(), err)
			}
			docs = append(docs, b)
		}
	}
	return xacmlxml.LoadPolicyDocuments(docs)
}

// buildAuditStore constructs the durable audit.AuditStore per
// cfg.Audit.Output/Backend, optionally wrapping it in a SigningStore. It
// returns the store AuditService writes through, the unwrapped store
// admin queries read through (SigningStore is a write-only decorator and
// never satisfies AuditQueryStore), and a cleanup func.
func buildAuditStore(cfg *config.PDPConfig, logger *slog.Logger) (domainaudit.AuditStore, domainaudit.AuditQueryStore, func(), error) {
	var base domainaudit.AuditStore
	var query domainaudit.AuditQueryStore

	switch {
	case cfg.Audit.Output == "stdout":
		s := memory.NewAuditStore(cfg.Audit.BufferSize)
		base, query = s, s
	case strings.HasPrefix(cfg.Audit.Output, "file://"):
		switch cfg.Audit.Backend {
		case "sqlite":
			s, err := sqlite.Open(cfg.Audit.SQLitePath)
			if err != nil {
				return nil, nil, nil, err
			}
			base, query = s, s
		default:
			dir := cfg.AuditFile.Dir
			if dir == "" {
				dir = strings.TrimPrefix(cfg.Audit.Output, "file://")
			}
			fileCfg := auditoutbound.AuditFileConfig{
				Dir:           dir,
				RetentionDays: cfg.AuditFile.RetentionDays,
				MaxFileSizeMB: cfg.AuditFile.MaxFileSizeMB,
				CacheSize:     cfg.AuditFile.CacheSize,
				Lock:          cfg.AuditFile.Lock,
			}
			s, err := auditoutbound.NewFileAuditStore(fileCfg, logger)
			if err != nil {
				return nil, nil, nil, err
			}
			base, query = s, s
		}
	default:
		return nil, nil, nil, fmt.Errorf("unsupported audit.output %q", cfg.Audit.Output)
	}

	write := base
	if cfg.Audit.Sign {
		signer, err := jws.LoadSigner(cfg.Audit.SigningKeyFile)
		if err != nil {
			return nil, nil, nil, err
		}
		write = auditoutbound.NewSigningStore(base, signer)
	}

	return write, query, func() { _ = base.Close() }, nil
}

func newAuditService(cfg *config.PDPConfig, store domainaudit.AuditStore, logger *slog.Logger) (*service.AuditService, error) {
	var opts []service.AuditOption
	opts = append(opts, service.WithChannelSize(cfg.Audit.ChannelSize))
	opts = append(opts, service.WithBatchSize(cfg.Audit.BatchSize))
	opts = append(opts, service.WithWarningThreshold(cfg.Audit.WarningThreshold))

	flush, err := time.ParseDuration(cfg.Audit.FlushInterval)
	if err != nil {
		return nil, fmt.Errorf("audit.flush_interval: %w", err)
	}
	opts = append(opts, service.WithFlushInterval(flush))

	sendTimeout, err := time.ParseDuration(cfg.Audit.SendTimeout)
	if err != nil {
		return nil, fmt.Errorf("audit.send_timeout: %w", err)
	}
	opts = append(opts, service.WithSendTimeout(sendTimeout))

	return service.NewAuditService(store, logger, opts...), nil
}
