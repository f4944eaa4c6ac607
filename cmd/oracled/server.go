// Package main implements the oracled server binary: it wires the
// config, registry, router, and HTTP/WS surface together, grounded on
// the teacher's cmd/agentflow/server.go Server struct.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/oraclemesh/oracle/audit"
	"github.com/oraclemesh/oracle/config"
	"github.com/oraclemesh/oracle/consensus"
	"github.com/oraclemesh/oracle/fanout"
	"github.com/oraclemesh/oracle/internal/cache"
	"github.com/oraclemesh/oracle/internal/metrics"
	"github.com/oraclemesh/oracle/internal/server"
	"github.com/oraclemesh/oracle/internal/telemetry"
	"github.com/oraclemesh/oracle/oracle"
	"github.com/oraclemesh/oracle/prefilter"
	"github.com/oraclemesh/oracle/registry"
	"github.com/oraclemesh/oracle/router"
)

// Server is oracled's top-level process: it owns the registry and
// router for the lifetime of the process and exposes them over HTTP
// and, when enabled, a streaming WebSocket endpoint.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	telemetry *telemetry.Providers
	registry  *registry.Registry
	router    *router.Router

	httpManager    *server.Manager
	metricsManager *server.Manager
	store          *registry.Store
}

// NewServer builds a Server from cfg. It does not start anything.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// Start wires every pipeline stage, registers the configured
// providers, and begins serving HTTP.
func (s *Server) Start() error {
	collector := metrics.NewCollector("oracle", s.logger)

	otelProviders, err := telemetry.Init(s.cfg.Telemetry, s.logger)
	if err != nil {
		s.logger.Warn("telemetry init failed, continuing without it", zap.Error(err))
		otelProviders = &telemetry.Providers{}
	}
	s.telemetry = otelProviders

	var l2Cache *cache.RedisBackend
	if s.cfg.Cache.RedisEnabled {
		l2Cache, err = cache.NewRedisBackend(cache.Config{
			Addr:         s.cfg.Redis.Addr,
			Password:     s.cfg.Redis.Password,
			DB:           s.cfg.Redis.DB,
			PoolSize:     s.cfg.Redis.PoolSize,
			MinIdleConns: s.cfg.Redis.MinIdleConns,
			DefaultTTL:   s.cfg.Oracle.CacheTTL,
		}, s.logger)
		if err != nil {
			s.logger.Warn("redis L2 cache unavailable, continuing with L1 only", zap.Error(err))
			l2Cache = nil
		}
	}

	s.registry = registry.New(s.cfg.Oracle.CacheCapacity, s.cfg.Oracle.CacheTTL, l2Cache, collector, s.logger)

	providerConfigs := append([]config.ProviderConfig(nil), s.cfg.Providers...)

	if s.cfg.Database.Driver != "" {
		store, err := registry.OpenStore(s.cfg.Database, collector, s.logger)
		if err != nil {
			s.logger.Warn("provider config store unavailable, falling back to YAML-only providers", zap.Error(err))
		} else {
			s.store = store
			dbCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			dbConfigs, err := store.Load(dbCtx)
			cancel()
			if err != nil {
				s.logger.Warn("failed to load provider configs from database", zap.Error(err))
			} else {
				providerConfigs = mergeProviderConfigs(providerConfigs, dbConfigs)
				s.logger.Info("loaded provider configs from database", zap.Int("count", len(dbConfigs)))
			}
		}
	}

	for _, pc := range providerConfigs {
		if !pc.Enabled {
			continue
		}
		p, err := buildProvider(pc)
		if err != nil {
			s.logger.Error("failed to build configured provider, skipping", zap.String("name", pc.Name), zap.Error(err))
			continue
		}
		s.registry.Register(p)
	}

	s.registry.StartHealthLoop(context.Background(), 30*time.Second)

	ledger, err := s.buildLedger()
	if err != nil {
		return fmt.Errorf("build audit ledger: %w", err)
	}

	auditLogger := audit.NewLogger(ledger, audit.Config{
		BatchSize: clampBatchSize(s.cfg.Oracle.AuditBatchSize),
		Topic:     "oracle.consensus",
	}, collector, s.logger)

	rt := router.New(
		s.registry,
		fanout.New(s.logger),
		consensus.New(consensus.Config{MinResponses: s.cfg.Oracle.MinResponses, OutlierThreshold: s.cfg.Oracle.OutlierThreshold}, collector),
		auditLogger,
		prefilter.NewKeywordFilter(),
		collector,
		router.Config{
			DefaultMethod:  oracle.ConsensusMethod(s.cfg.Oracle.DefaultMethod),
			MinResponses:   s.cfg.Oracle.MinResponses,
			DefaultTimeout: s.cfg.Oracle.MaxResponseTime,
		},
		s.logger,
	)
	s.router = rt

	if err := s.startHTTPServer(collector); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	if err := s.startMetricsServer(collector); err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}

	s.logger.Info("oracled started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Int("providers_registered", s.registry.Len()),
	)
	return nil
}

// mergeProviderConfigs layers database-sourced provider configs on top
// of the YAML-sourced ones, by name: a database row for a name already
// present in yamlConfigs replaces it, since the database is the
// operator's live source of truth once it's configured.
func mergeProviderConfigs(yamlConfigs, dbConfigs []config.ProviderConfig) []config.ProviderConfig {
	byName := make(map[string]int, len(yamlConfigs))
	merged := append([]config.ProviderConfig(nil), yamlConfigs...)
	for i, pc := range merged {
		byName[pc.Name] = i
	}
	for _, pc := range dbConfigs {
		if i, ok := byName[pc.Name]; ok {
			merged[i] = pc
			continue
		}
		byName[pc.Name] = len(merged)
		merged = append(merged, pc)
	}
	return merged
}

func (s *Server) buildLedger() (audit.Ledger, error) {
	switch s.cfg.Audit.LedgerBackend {
	case "mongo":
		return audit.NewMongoLedger(context.Background(), audit.MongoLedgerConfig{
			URI: s.cfg.Audit.MongoURI, Database: s.cfg.Audit.MongoDatabase, Collection: s.cfg.Audit.MongoCollection,
		})
	case "gateway":
		return audit.NewGatewayLedger(audit.GatewayConfig{
			Endpoint: s.cfg.Audit.GatewayURL,
			Secret:   s.cfg.Audit.GatewayToken,
		}), nil
	default:
		return audit.NewMemoryLedger(), nil
	}
}

func clampBatchSize(n int) int {
	if n < 1 {
		return 1
	}
	if n > 50 {
		return 50
	}
	return n
}

func (s *Server) startHTTPServer(collector *metrics.Collector) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/ready", handleHealth)
	mux.HandleFunc("/version", handleVersion)
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/providers/health", s.handleProvidersHealth)
	if s.cfg.Server.WSStreamEnabled {
		mux.HandleFunc("/ws/stream", s.handleWSStream)
	}

	handler := Chain(mux,
		Recovery(s.logger),
		RequestLogger(s.logger),
		Metrics(collector),
		CORS(nil),
	)

	cfg := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}
	s.httpManager = server.NewManager(handler, cfg, s.logger)
	return s.httpManager.Start()
}

func (s *Server) startMetricsServer(_ *metrics.Collector) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	cfg := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}
	s.metricsManager = server.NewManager(mux, cfg, s.logger)
	return s.metricsManager.Start()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"version": Version, "build_time": BuildTime, "git_commit": GitCommit})
}

// queryRequest is the /query and /ws/stream request body, per §6's
// query(text, options) signature.
type queryRequest struct {
	Text            string   `json:"text"`
	Sources         []string `json:"sources,omitempty"`
	ConsensusMethod string   `json:"consensusMethod,omitempty"`
	TimeoutMs       int64    `json:"timeoutMs,omitempty"`
	CacheTimeMs     int64    `json:"cacheTimeMs,omitempty"`
}

func (qr queryRequest) toOptions() oracle.Options {
	return oracle.Options{
		Sources:         qr.Sources,
		ConsensusMethod: oracle.ConsensusMethod(qr.ConsensusMethod),
		Timeout:         time.Duration(qr.TimeoutMs) * time.Millisecond,
		CacheTime:       time.Duration(qr.CacheTimeMs) * time.Millisecond,
	}
}

type resultEnvelope struct {
	Value      any      `json:"value"`
	Confidence float64  `json:"confidence"`
	Method     string   `json:"method"`
	Sources    []string `json:"sources"`
	Timestamp  string   `json:"timestamp"`
}

func resultToEnvelope(result oracle.ConsensusResult) resultEnvelope {
	return resultEnvelope{
		Value:      result.Value.Raw(),
		Confidence: result.Confidence,
		Method:     string(result.Method),
		Sources:    result.Sources,
		Timestamp:  result.Timestamp.UTC().Format(time.RFC3339),
	}
}

type failureEnvelope struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func failureStatus(kind oracle.QueryFailureKind) int {
	switch kind {
	case oracle.FailInsufficientProviders, oracle.FailInsufficientResponses:
		return http.StatusServiceUnavailable
	case oracle.FailUnsupportedMethod:
		return http.StatusBadRequest
	case oracle.FailTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, `{"error":"text is required"}`, http.StatusBadRequest)
		return
	}

	result, err := s.router.Query(r.Context(), req.Text, req.toOptions())
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		qf, ok := err.(*oracle.QueryFailure)
		if !ok {
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(failureStatus(qf.Kind))
		json.NewEncoder(w).Encode(failureEnvelope{Kind: string(qf.Kind), Message: qf.Message})
		return
	}

	json.NewEncoder(w).Encode(resultToEnvelope(result))
}

func (s *Server) handleProvidersHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.router.HealthCheckAll(ctx))
}

// handleWSStream upgrades to a WebSocket and serves a sequence of
// queryRequest/resultEnvelope round trips on the same connection,
// per SPEC_FULL.md's streaming surface note. Grounded on the
// teacher's agent/streaming/ws_adapter.go Read/Write shape.
func (s *Server) handleWSStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "closing")

	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var req queryRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.writeWSError(ctx, conn, "invalid request")
			continue
		}

		result, err := s.router.Query(ctx, req.Text, req.toOptions())
		if err != nil {
			qf, ok := err.(*oracle.QueryFailure)
			if !ok {
				s.writeWSError(ctx, conn, "internal error")
				continue
			}
			s.writeWSJSON(ctx, conn, failureEnvelope{Kind: string(qf.Kind), Message: qf.Message})
			continue
		}

		s.writeWSJSON(ctx, conn, resultToEnvelope(result))
	}
}

func (s *Server) writeWSError(ctx context.Context, conn *websocket.Conn, message string) {
	s.writeWSJSON(ctx, conn, failureEnvelope{Kind: "invalid_request", Message: message})
}

func (s *Server) writeWSJSON(ctx context.Context, conn *websocket.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		s.logger.Debug("websocket write failed", zap.Error(err))
	}
}

// WaitForShutdown blocks until the HTTP manager receives a shutdown
// signal, then releases every owned resource.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown releases every resource Start acquired.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.router != nil {
		if err := s.router.Close(ctx); err != nil {
			s.logger.Error("router close error", zap.Error(err))
		}
	}
	if s.registry != nil {
		s.registry.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("provider config store close error", zap.Error(err))
		}
	}
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("http server shutdown error", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}
	s.logger.Info("oracled stopped")
}
