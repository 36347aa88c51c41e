package rpc

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"dropgate/native/drop"
	"dropgate/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
)

// Server exposes the drop module over JSON-RPC 2.0. Mint and query methods
// are open; configuration methods require a bearer token signed with the
// admin secret.
type Server struct {
	engine   *drop.Engine
	registry *drop.Registry
	log      *slog.Logger

	adminSecret []byte

	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// ServerOptions carries the tunables the daemon wires from its config file.
type ServerOptions struct {
	AdminSecret     []byte
	RateLimitPerSec float64
	RateLimitBurst  int
	Logger          *slog.Logger
}

func NewServer(engine *drop.Engine, registry *drop.Registry, opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Limit(opts.RateLimitPerSec)
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := opts.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	return &Server{
		engine:      engine,
		registry:    registry,
		log:         logger,
		adminSecret: opts.AdminSecret,
		limit:       limit,
		burst:       burst,
		limiters:    make(map[string]*rate.Limiter),
	}
}

// Router assembles the HTTP surface: the JSON-RPC endpoint, the Prometheus
// scrape endpoint, and a liveness probe.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Post("/", s.handle)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Start blocks serving the router on addr.
func (s *Server) Start(addr string) error {
	s.log.Info("starting JSON-RPC server", "addr", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) limiterFor(remote string) *rate.Limiter {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(s.limit, s.burst)
		s.limiters[host] = limiter
	}
	return limiter
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	w.Header().Set("Content-Type", "application/json")

	if !s.limiterFor(r.RemoteAddr).Allow() {
		observability.ModuleMetrics().RecordThrottle("drop", "rate_limit")
		writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate limit exceeded", nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "failed to read request body", nil)
		return
	}
	if len(body) > maxRequestBytes {
		writeError(w, http.StatusRequestEntityTooLarge, nil, codeInvalidRequest, "request body too large", nil)
		return
	}

	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", nil)
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", nil)
		return
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method is required", nil)
		return
	}

	handler, ok := s.methods()[method]
	if !ok {
		observability.ModuleMetrics().Observe("drop", method, http.StatusNotFound, time.Since(started))
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", method), nil)
		return
	}
	if handler.admin {
		if err := s.authorizeAdmin(r); err != nil {
			observability.ModuleMetrics().Observe("drop", method, http.StatusUnauthorized, time.Since(started))
			writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, err.Error(), nil)
			return
		}
	}

	status := handler.fn(w, &req)
	observability.ModuleMetrics().Observe("drop", method, status, time.Since(started))
}

type methodHandler struct {
	fn    func(http.ResponseWriter, *RPCRequest) int
	admin bool
}

func (s *Server) methods() map[string]methodHandler {
	return map[string]methodHandler{
		"drop_mint":        {fn: s.handleMint},
		"drop_getStage":    {fn: s.handleGetStage},
		"drop_stages":      {fn: s.handleStages},
		"drop_quota":       {fn: s.handleQuota},
		"drop_redemptions": {fn: s.handleRedemptions},

		"drop_setAuthority":      {fn: s.handleSetAuthority, admin: true},
		"drop_setStage":          {fn: s.handleSetStage, admin: true},
		"drop_removeStage":       {fn: s.handleRemoveStage, admin: true},
		"drop_setAllowlistRoot":  {fn: s.handleSetAllowlistRoot, admin: true},
		"drop_setSignerTemplate": {fn: s.handleSetSignerTemplate, admin: true},
		"drop_removeSigner":      {fn: s.handleRemoveSigner, admin: true},
		"drop_setFeeRecipient":   {fn: s.handleSetFeeRecipient, admin: true},
		"drop_setPayer":          {fn: s.handleSetPayer, admin: true},
		"drop_setCreatorPayouts": {fn: s.handleSetPayouts, admin: true},
	}
}
