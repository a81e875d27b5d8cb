package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"loanft/config"
	"loanft/core"
	"loanft/indexer"
	"loanft/observability"
)

const requestIDHeader = "X-Request-ID"

type ctxKey string

const requestIDKey ctxKey = "rpc.requestID"

// handlerFunc serves one JSON-RPC method. Errors of type *callError carry
// their own status and code; anything else is classified by classify.
type handlerFunc func(r *http.Request, params []json.RawMessage) (interface{}, error)

type method struct {
	handler  handlerFunc
	mutating bool
}

type callError struct {
	status int
	err    *RPCError
}

func (e *callError) Error() string { return e.err.Message }

func invalidParams(format string, args ...interface{}) error {
	return &callError{status: http.StatusBadRequest, err: &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf(format, args...)}}
}

// Server exposes a node over JSON-RPC 2.0 and a websocket event stream.
type Server struct {
	node   *core.Node
	index  *indexer.Indexer
	logger *slog.Logger
	cfg    config.RPCConfig

	auth              *authenticator
	limiter           *clientLimiter
	trustProxyHeaders bool
	trustedProxies    map[string]struct{}
	maxBodyBytes      int64
	methods           map[string]method

	serverMu   sync.Mutex
	httpServer *http.Server
}

// NewServer builds a server for node. index may be nil, in which case the
// index_* methods are not offered.
func NewServer(node *core.Node, index *indexer.Indexer, cfg config.RPCConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	proxies := make(map[string]struct{}, len(cfg.TrustedProxies))
	for _, p := range cfg.TrustedProxies {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			proxies[trimmed] = struct{}{}
		}
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = maxRequestBytes
	}
	s := &Server{
		node:              node,
		index:             index,
		logger:            logger,
		cfg:               cfg,
		auth:              newAuthenticator(cfg.AuthToken, cfg.JWTSecret, cfg.JWTIssuer),
		limiter:           newClientLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		trustProxyHeaders: cfg.TrustProxyHeaders,
		trustedProxies:    proxies,
		maxBodyBytes:      maxBody,
	}
	s.methods = s.registerMethods()
	return s
}

// Handler returns the HTTP routes served by s.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/events", s.handleEventsWS)
	r.Post("/", s.handle)
	return otelhttp.NewHandler(r, "loand.rpc")
}

// Start listens on addr and serves until the server is shut down.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("rpc: listen %s: %w", addr, err)
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener.
func (s *Server) Serve(listener net.Listener) error {
	readHeader, read, write, idle := s.cfg.Timeouts()
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeader,
		ReadTimeout:       read,
		WriteTimeout:      write,
		IdleTimeout:       idle,
	}
	s.serverMu.Lock()
	s.httpServer = srv
	s.serverMu.Unlock()
	s.logger.Info("JSON-RPC server listening", slog.String("addr", listener.Addr().String()))
	err := srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops a running server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.serverMu.Lock()
	srv := s.httpServer
	s.serverMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func writeError(w http.ResponseWriter, status int, id interface{}, rpcErr *RPCError) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: rpcErr})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func moduleOf(name string) string {
	if idx := strings.IndexByte(name, '_'); idx > 0 {
		return name[:idx]
	}
	return "rpc"
}

// handle is the JSON-RPC entry point.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	defer func() {
		_ = reader.Close()
	}()
	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", s.maxBodyBytes)
		}
		writeError(w, status, nil, &RPCError{Code: codeInvalidRequest, Message: message})
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, &RPCError{Code: codeInvalidRequest, Message: "request body required"})
		return
	}
	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, &RPCError{Code: codeParseError, Message: "invalid JSON payload", Data: err.Error()})
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, &RPCError{Code: codeInvalidRequest, Message: "unsupported jsonrpc version", Data: req.JSONRPC})
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, &RPCError{Code: codeInvalidRequest, Message: "method required"})
		return
	}

	start := time.Now()
	module := moduleOf(req.Method)
	m, ok := s.methods[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, &RPCError{Code: codeMethodNotFound, Message: "method not found", Data: req.Method})
		return
	}
	if m.mutating {
		if authErr := s.auth.authorize(r); authErr != nil {
			observability.ModuleMetrics().Observe(module, req.Method, authErr.Code, time.Since(start))
			writeError(w, http.StatusUnauthorized, req.ID, authErr)
			return
		}
		source := s.clientSource(r)
		if !s.limiter.allow(source) {
			observability.ModuleMetrics().RecordThrottle(module, "rate_limit")
			writeError(w, http.StatusTooManyRequests, req.ID, &RPCError{Code: codeRateLimited, Message: "transaction rate limit exceeded", Data: source})
			return
		}
	}

	result, err := m.handler(r, req.Params)
	if err != nil {
		status, rpcErr := s.errorResponse(err)
		observability.ModuleMetrics().Observe(module, req.Method, rpcErr.Code, time.Since(start))
		if status >= http.StatusInternalServerError {
			s.logger.Error("rpc method failed",
				slog.String("method", req.Method),
				slog.String("request_id", requestIDFrom(r.Context())),
				slog.Any("error", err))
		}
		writeError(w, status, req.ID, rpcErr)
		return
	}
	observability.ModuleMetrics().Observe(module, req.Method, 0, time.Since(start))
	writeResult(w, req.ID, result)
}

func (s *Server) errorResponse(err error) (int, *RPCError) {
	var ce *callError
	if errors.As(err, &ce) {
		return ce.status, ce.err
	}
	var tf *txFailure
	if errors.As(err, &tf) {
		status, rpcErr := rpcErrorFrom(tf.cause, tf.receipt)
		if rpcErr.Code == codeServerError {
			status, rpcErr.Code = http.StatusUnprocessableEntity, codeTxFailed
		}
		return status, rpcErr
	}
	return rpcErrorFrom(err, nil)
}
