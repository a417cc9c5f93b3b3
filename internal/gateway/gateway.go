// ABOUTME: Gateway orchestrator that coordinates the HTTP and gRPC servers
// ABOUTME: Wires the store, sessions, view registry, lock manager and RPC pipeline together

package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/viewgate/internal/auth"
	"github.com/2389/viewgate/internal/config"
	"github.com/2389/viewgate/internal/metrics"
	"github.com/2389/viewgate/internal/revocation"
	"github.com/2389/viewgate/internal/rpc"
	"github.com/2389/viewgate/internal/store"
	"github.com/2389/viewgate/internal/view"
	"github.com/2389/viewgate/internal/viewlock"
)

// tailscaleGRPCPort is the tailnet port the gRPC service listens on.
const tailscaleGRPCPort = ":50051"

// Gateway owns every server component and their shared state.
type Gateway struct {
	config      *config.Config
	store       *store.SQLiteStore
	registry    *view.Registry
	sessions    *auth.SessionManager
	revoked     *revocation.Cache
	locks       *viewlock.Manager
	metrics     *metrics.Metrics
	pipeline    *rpc.Pipeline
	grpcServer  *grpc.Server
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger
}

// initStore opens the configured database and applies pending migrations.
func initStore(ctx context.Context, cfg *config.Config) (*store.SQLiteStore, error) {
	s, err := store.OpenSQLiteStore(ctx, cfg.Database.Driver, cfg.Database.Path, true)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// initSessions builds the token service and the session manager around it.
func initSessions(cfg *config.Config, users auth.UserStore, logger *slog.Logger) (*auth.SessionManager, *revocation.Cache, error) {
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:     []byte(cfg.Auth.JWTSecret),
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating token service: %w", err)
	}
	revoked := revocation.New(tokens.RefreshTTL(), cfg.Auth.RevocationCacheSize)
	return auth.NewSessionManager(tokens, users, revoked, logger), revoked, nil
}

// createGRPCServer creates the gRPC server with keepalive settings and the
// auth failure logging interceptor.
func createGRPCServer(logger *slog.Logger) *grpc.Server {
	return grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    15 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(auth.UnaryInterceptor(logger.With("component", "grpc-auth"))),
	)
}

// New creates a Gateway serving the given view controllers.
func New(cfg *config.Config, logger *slog.Logger, controllers ...view.Controller) (*Gateway, error) {
	registry, err := view.NewRegistry(controllers...)
	if err != nil {
		return nil, fmt.Errorf("registering views: %w", err)
	}

	s, err := initStore(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	sessions, revoked, err := initSessions(cfg, s, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	locks := viewlock.NewManager(cfg.Locks.HoldTimeout, logger)
	m := metrics.New()
	m.RegisterLockGauge(locks.Keys)

	gw := &Gateway{
		config:   cfg,
		store:    s,
		registry: registry,
		sessions: sessions,
		revoked:  revoked,
		locks:    locks,
		metrics:  m,
		pipeline: rpc.New(rpc.Config{
			Registry:        registry,
			Sessions:        sessions,
			Store:           s,
			Locks:           locks,
			DB:              s.DB(),
			Logger:          logger,
			Metrics:         m,
			LockWaitTimeout: cfg.Locks.WaitTimeout,
		}),
		grpcServer: createGRPCServer(logger),
		logger:     logger.With("component", "gateway"),
	}

	RegisterViewService(gw.grpcServer, newViewService(gw.pipeline, logger.With("component", "grpc")))

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gw.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	gw.logger.Info("gateway configured", "views", len(registry.List()))
	return gw, nil
}

// routes builds the HTTP mux.
func (g *Gateway) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Health endpoints - no auth required
	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /health/ready", g.handleReady)

	g.pipeline.Routes(mux, g.config.Server.RPCPrefix)

	authMiddleware := auth.HTTPMiddleware(g.sessions)
	adminMiddleware := auth.RequireRoleHTTP("admin")

	mux.HandleFunc("POST /auth/login", g.handleLogin)
	mux.HandleFunc("POST /auth/refresh", g.handleRefresh)
	mux.Handle("POST /auth/logout", authMiddleware(http.HandlerFunc(g.handleLogout)))

	mux.HandleFunc("GET /views", g.handleCatalogue)
	mux.Handle("DELETE /admin/sessions/{session}/views/{view}",
		authMiddleware(adminMiddleware(http.HandlerFunc(g.handlePurgeViewData))))

	if g.config.Metrics.Enabled {
		mux.Handle("GET "+g.config.Metrics.Path, g.metrics.Handler())
	}
	return mux
}

// Handler exposes the HTTP routes, for embedding or testing.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// setupTCPListeners creates standard TCP listeners. The gRPC listener is nil
// when no gRPC address is configured.
func (g *Gateway) setupTCPListeners() (grpcLn, httpLn net.Listener, err error) {
	g.logger.Info("starting gateway",
		"grpc_addr", g.config.Server.GRPCAddr,
		"http_addr", g.config.Server.HTTPAddr,
	)

	if g.config.Server.GRPCAddr != "" {
		grpcLn, err = net.Listen("tcp", g.config.Server.GRPCAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("listening on gRPC address: %w", err)
		}
	}

	httpLn, err = net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		if grpcLn != nil {
			_ = grpcLn.Close()
		}
		return nil, nil, fmt.Errorf("listening on HTTP address: %w", err)
	}

	return grpcLn, httpLn, nil
}

// warnIgnoredAddresses logs a warning if server addresses are configured but Tailscale is enabled.
func (g *Gateway) warnIgnoredAddresses() {
	if g.config.Server.GRPCAddr != "" || g.config.Server.HTTPAddr != "" {
		g.logger.Warn("server.grpc_addr and server.http_addr are ignored when tailscale is enabled",
			"grpc_addr", g.config.Server.GRPCAddr,
			"http_addr", g.config.Server.HTTPAddr,
		)
	}
}

// setupListeners creates listeners based on configuration (Tailscale or TCP).
func (g *Gateway) setupListeners(ctx context.Context) (grpcLn, httpLn net.Listener, err error) {
	if g.config.Tailscale.Enabled {
		g.warnIgnoredAddresses()
		return g.setupTailscaleListeners(ctx)
	}
	return g.setupTCPListeners()
}

// startServers starts the servers in goroutines, returning the error channel.
func (g *Gateway) startServers(grpcLn, httpLn net.Listener) chan error {
	errCh := make(chan error, 2)

	if grpcLn != nil {
		go func() {
			g.logger.Info("gRPC server listening", "addr", grpcLn.Addr().String())
			if err := g.grpcServer.Serve(grpcLn); err != nil {
				errCh <- fmt.Errorf("gRPC server: %w", err)
			}
		}()
	}

	go func() {
		g.logger.Info("HTTP server listening", "addr", httpLn.Addr().String())
		if err := g.httpServer.Serve(httpLn); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		g.drainErrors(errCh)
		return err
	}
}

// drainErrors drains any remaining errors from the channel.
func (g *Gateway) drainErrors(errCh chan error) {
	select {
	case additionalErr := <-errCh:
		g.logger.Error("additional server error", "error", additionalErr)
	default:
	}
}

// Run starts the servers and blocks until the context is canceled or a
// server fails. Returns nil on graceful shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	grpcListener, httpListener, err := g.setupListeners(ctx)
	if err != nil {
		return err
	}

	errCh := g.startServers(grpcListener, httpListener)
	serverErr := g.waitForShutdownSignal(ctx, errCh)

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() since the run context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// tailscaleHTTPMode selects how HTTP is exposed on the tailnet.
type tailscaleHTTPMode int

const (
	tailscaleHTTPPlain  tailscaleHTTPMode = iota // :80 inside the tailnet
	tailscaleHTTPTLS                             // :443 with tailnet certificates
	tailscaleHTTPFunnel                          // :443 published to the internet
)

func (m tailscaleHTTPMode) addr() string {
	if m == tailscaleHTTPPlain {
		return ":80"
	}
	return ":443"
}

func (m tailscaleHTTPMode) String() string {
	switch m {
	case tailscaleHTTPTLS:
		return "https"
	case tailscaleHTTPFunnel:
		return "funnel"
	default:
		return "http"
	}
}

// tailscalePlan is the resolved tailscale node configuration.
type tailscalePlan struct {
	hostname  string
	stateDir  string
	authKey   string
	ephemeral bool
	httpMode  tailscaleHTTPMode
}

// planTailscale resolves defaults and the auth key. getenv and homeDir are
// os.Getenv and os.UserHomeDir outside tests. Funnel wins over HTTPS.
func planTailscale(cfg config.TailscaleConfig, getenv func(string) string, homeDir func() (string, error)) (tailscalePlan, error) {
	p := tailscalePlan{
		hostname:  cfg.Hostname,
		stateDir:  cfg.StateDir,
		authKey:   cfg.AuthKey,
		ephemeral: cfg.Ephemeral,
	}

	if p.stateDir == "" {
		home, err := homeDir()
		if err != nil {
			return tailscalePlan{}, fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir): %w", err)
		}
		p.stateDir = filepath.Join(home, ".local", "share", "viewgate", "tailscale")
	}

	if p.authKey == "" {
		p.authKey = getenv("TS_AUTHKEY")
	}
	if p.authKey == "" {
		return tailscalePlan{}, errors.New("tailscale auth key required: set tailscale.auth_key or TS_AUTHKEY")
	}

	switch {
	case cfg.Funnel:
		p.httpMode = tailscaleHTTPFunnel
	case cfg.HTTPS:
		p.httpMode = tailscaleHTTPTLS
	}
	return p, nil
}

// setupTailscaleListeners joins the tailnet and returns the gRPC and HTTP
// listeners. On error everything opened so far is closed again.
func (g *Gateway) setupTailscaleListeners(ctx context.Context) (grpcLn, httpLn net.Listener, err error) {
	plan, err := planTailscale(g.config.Tailscale, os.Getenv, os.UserHomeDir)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(plan.stateDir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	srv := &tsnet.Server{
		Hostname:  plan.hostname,
		Dir:       plan.stateDir,
		Ephemeral: plan.ephemeral,
		AuthKey:   plan.authKey,
	}
	defer func() {
		if err != nil {
			if grpcLn != nil {
				_ = grpcLn.Close()
			}
			_ = srv.Close()
		}
	}()

	g.logger.Info("starting tailscale node", "hostname", plan.hostname, "state_dir", plan.stateDir, "ephemeral", plan.ephemeral)
	status, err := srv.Up(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("starting tailscale: %w", err)
	}
	g.logTailscaleStatus(plan.hostname, status)

	grpcLn, err = srv.Listen("tcp", tailscaleGRPCPort)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on tailscale gRPC port: %w", err)
	}

	httpLn, err = listenTailscaleHTTP(srv, plan.httpMode)
	if err != nil {
		return nil, nil, err
	}
	g.logger.Info("tailscale HTTP listener ready", "mode", plan.httpMode.String(), "addr", plan.httpMode.addr())

	g.tsnetServer = srv
	return grpcLn, httpLn, nil
}

func listenTailscaleHTTP(srv *tsnet.Server, mode tailscaleHTTPMode) (net.Listener, error) {
	if mode == tailscaleHTTPFunnel {
		ln, err := srv.ListenFunnel("tcp", mode.addr())
		if err != nil {
			return nil, fmt.Errorf("listening on tailscale funnel: %w", err)
		}
		return ln, nil
	}

	ln, err := srv.Listen("tcp", mode.addr())
	if err != nil {
		return nil, fmt.Errorf("listening on tailscale %s port: %w", mode, err)
	}
	if mode == tailscaleHTTPPlain {
		return ln, nil
	}

	lc, err := srv.LocalClient()
	if err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("getting tailscale local client: %w", err)
	}
	return tls.NewListener(ln, &tls.Config{
		GetCertificate: lc.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}), nil
}

// logTailscaleStatus logs the node's first tailnet address and DNS name.
func (g *Gateway) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		g.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	g.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// shutdownGRPCServer gracefully stops the gRPC server or force-stops on context cancel.
func (g *Gateway) shutdownGRPCServer(ctx context.Context) {
	stopped := make(chan struct{})
	go func() {
		g.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		g.grpcServer.Stop()
	}
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown gracefully stops all servers and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	g.shutdownGRPCServer(ctx)

	if g.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", g.tsnetServer.Close())
	}
	errs = appendCloseError(errs, "store close", g.store.Close())

	g.revoked.Close()

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if the database answers.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := g.store.DB().PingContext(r.Context()); err != nil {
		g.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d views)", len(g.registry.List()))
}
