// ABOUTME: RPC execution pipeline binding view controllers to persisted per-session state
// ABOUTME: Execute returns raw errors; Handle maps them or forwards them downstream

package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/2389/viewgate/internal/auth"
	"github.com/2389/viewgate/internal/metrics"
	"github.com/2389/viewgate/internal/store"
	"github.com/2389/viewgate/internal/view"
	"github.com/2389/viewgate/internal/viewlock"
)

// Request is one transport-independent call.
type Request struct {
	ViewKey string
	Body    []byte // JSON {"method": ..., "args": ...}
	Header  http.Header
}

// Response is the outcome of a call. Body is JSON-encodable.
type Response struct {
	Status int
	Header http.Header
	Body   any

	view      string // resolved view key, empty when unresolved
	method    string // resolved method key, empty when unresolved
	requestID string
}

// CallBody is the JSON request body.
type CallBody struct {
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// SuccessBody is the JSON body of a 200 response.
type SuccessBody struct {
	Result   any             `json:"result"`
	ViewData json.RawMessage `json:"viewData"`
}

// ErrorBody is the JSON body of every failure.
type ErrorBody struct {
	Error string `json:"error"`
}

// NextFunc receives raw pipeline errors when the host wants to shape error
// responses itself.
type NextFunc func(err error)

// SessionAuthenticator validates credentials and issues refreshed tokens.
type SessionAuthenticator interface {
	RequireSession(ctx context.Context, headers http.Header) (*auth.Session, *auth.TokenPair, error)
}

// Config holds the pipeline's collaborators.
type Config struct {
	Registry *view.Registry
	Sessions SessionAuthenticator
	Store    store.ViewDataStore
	Locks    *viewlock.Manager
	// DB is handed to views untouched as BaseContext.DB.
	DB      any
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// LockWaitTimeout bounds the wait for a busy view. Zero waits as long as
	// the caller's context allows.
	LockWaitTimeout time.Duration
}

// Pipeline executes RPC calls.
type Pipeline struct {
	registry *view.Registry
	sessions SessionAuthenticator
	store    store.ViewDataStore
	locks    *viewlock.Manager
	db       any
	logger   *slog.Logger
	metrics  *metrics.Metrics
	lockWait time.Duration
}

// New creates a pipeline. Registry, Sessions and Store are required.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	locks := cfg.Locks
	if locks == nil {
		locks = viewlock.NewManager(0, logger)
	}
	return &Pipeline{
		registry: cfg.Registry,
		sessions: cfg.Sessions,
		store:    cfg.Store,
		locks:    locks,
		db:       cfg.DB,
		logger:   logger.With("component", "rpc"),
		metrics:  cfg.Metrics,
		lockWait: cfg.LockWaitTimeout,
	}
}

// Handle executes the call and returns the response to send. When next is
// non-nil, errors are forwarded to it unmapped and the returned response
// carries only headers.
func (p *Pipeline) Handle(ctx context.Context, req *Request, next NextFunc) *Response {
	start := time.Now()
	resp, err := p.Execute(ctx, req)

	status, msg := StatusFor(err)
	p.metrics.ObserveCall(labelOr(resp.view, "unknown"), labelOr(resp.method, "unknown"), status, time.Since(start))

	if err == nil {
		return resp
	}

	if status == http.StatusInternalServerError {
		p.logger.Error("rpc call failed",
			"request_id", resp.requestID,
			"view", req.ViewKey,
			"method", resp.method,
			"error", err,
		)
	} else {
		p.logger.Debug("rpc call rejected",
			"view", req.ViewKey,
			"method", resp.method,
			"status", status,
			"error", err,
		)
	}

	if next != nil {
		next(err)
		return &Response{Header: resp.Header}
	}

	resp.Status = status
	resp.Body = ErrorBody{Error: msg}
	return resp
}

// Execute runs every pipeline step. The returned Response is never nil; on
// error it carries whatever headers were already set.
func (p *Pipeline) Execute(ctx context.Context, req *Request) (*Response, error) {
	resp := &Response{Header: make(http.Header)}

	if req.ViewKey == "" {
		return resp, fmt.Errorf("%w: missing view key", ErrBadRequest)
	}
	call, err := decodeCall(req.Body)
	if err != nil {
		return resp, err
	}

	entry, ok := p.registry.Resolve(req.ViewKey)
	if !ok {
		return resp, fmt.Errorf("%w: %q", ErrViewNotFound, req.ViewKey)
	}
	resp.view = entry.Key
	callable, ok := entry.Callable(call.Method)
	if !ok {
		return resp, fmt.Errorf("%w: %q", ErrCallableNotFound, call.Method)
	}
	resp.method = callable.Key

	session, pair, err := p.authenticate(ctx, req.Header, callable)
	if err != nil {
		return resp, err
	}
	pair.WriteHeaders(resp.Header)

	if !rolesAllow(session, entry.AllowedRoles) || !rolesAllow(session, callable.AllowedRoles) {
		return resp, ErrForbidden
	}

	resp.requestID = uuid.New().String()
	logger := p.logger.With("request_id", resp.requestID, "view", entry.Key, "method", callable.Key)
	base := view.BaseContext{
		RequestID: resp.requestID,
		DB:        p.db,
		Logger:    logger,
		Session:   session,
	}

	if session == nil {
		result, err := p.runAnonymous(context.WithoutCancel(ctx), entry, callable, call.Args, base)
		if err != nil {
			return resp, err
		}
		resp.Status = http.StatusOK
		resp.Body = SuccessBody{Result: result, ViewData: json.RawMessage("null")}
		return resp, nil
	}

	release, err := p.acquire(ctx, session.SessionID, entry.Key)
	if err != nil {
		return resp, err
	}
	defer release()

	// The view runs to completion once it holds the lock.
	execCtx := context.WithoutCancel(ctx)

	result, data, err := p.run(execCtx, entry, callable, call.Args, base)
	if err != nil {
		return resp, err
	}

	logger.Debug("rpc call completed")
	resp.Status = http.StatusOK
	resp.Body = SuccessBody{Result: result, ViewData: data}
	return resp, nil
}

func (p *Pipeline) authenticate(ctx context.Context, headers http.Header, callable *view.Callable) (*auth.Session, *auth.TokenPair, error) {
	if callable.AllowUnauthenticated && !auth.HasCredential(headers) {
		return nil, nil, nil
	}
	return p.sessions.RequireSession(ctx, headers)
}

func (p *Pipeline) acquire(ctx context.Context, sessionID, viewKey string) (func(), error) {
	if p.lockWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.lockWait)
		defer cancel()
	}
	start := time.Now()
	release, err := p.locks.Acquire(ctx, sessionID, viewKey)
	p.metrics.ObserveLockWait(time.Since(start))
	return release, err
}

// run hydrates, invokes and persists. It returns the method result and the
// persisted view data.
func (p *Pipeline) run(ctx context.Context, entry *view.Entry, callable *view.Callable, args json.RawMessage, base view.BaseContext) (any, json.RawMessage, error) {
	sessionID := base.Session.SessionID

	if entry.Authorize != nil {
		if err := guard(func() error { return entry.Authorize(ctx, &base) }); err != nil {
			return nil, nil, err
		}
	}

	state, err := p.hydrate(ctx, entry, &base)
	if err != nil {
		return nil, nil, err
	}
	vc := &view.Context{BaseContext: base, ViewData: state}

	if entry.BeforeCall != nil {
		if err := guard(func() error { return entry.BeforeCall(ctx, vc) }); err != nil {
			return nil, nil, err
		}
	}

	var result any
	if err := guard(func() error {
		var err error
		result, err = callable.Invoke(ctx, args, vc)
		return err
	}); err != nil {
		return nil, nil, err
	}

	data, err := p.persist(ctx, sessionID, entry.Key, vc.ViewData)
	if err != nil {
		return nil, nil, err
	}
	return result, data, nil
}

func (p *Pipeline) runAnonymous(ctx context.Context, entry *view.Entry, callable *view.Callable, args json.RawMessage, base view.BaseContext) (any, error) {
	if entry.Authorize != nil {
		if err := guard(func() error { return entry.Authorize(ctx, &base) }); err != nil {
			return nil, err
		}
	}
	vc := &view.Context{BaseContext: base}
	if entry.BeforeCall != nil {
		if err := guard(func() error { return entry.BeforeCall(ctx, vc) }); err != nil {
			return nil, err
		}
	}
	var result any
	err := guard(func() error {
		var err error
		result, err = callable.Invoke(ctx, args, vc)
		return err
	})
	return result, err
}

// hydrate loads the stored view data, or creates and immediately persists it.
func (p *Pipeline) hydrate(ctx context.Context, entry *view.Entry, base *view.BaseContext) (any, error) {
	sessionID := base.Session.SessionID

	rec, err := p.store.LoadViewData(ctx, sessionID, entry.Key)
	if err == nil {
		state, err := entry.DecodeState(rec.Data)
		if err != nil {
			return nil, fmt.Errorf("decoding view data: %w", err)
		}
		return state, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("loading view data: %w", err)
	}

	if entry.Init == nil {
		return nil, fmt.Errorf("%w: view %q", ErrInitializerMissing, entry.Key)
	}
	var state any
	if err := guard(func() error {
		var err error
		state, err = entry.Init(ctx, base)
		return err
	}); err != nil {
		return nil, err
	}
	if _, err := p.persist(ctx, sessionID, entry.Key, state); err != nil {
		return nil, err
	}
	base.Logger.Debug("view data initialized")
	return state, nil
}

func (p *Pipeline) persist(ctx context.Context, sessionID, viewKey string, state any) (json.RawMessage, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encoding view data: %w", err)
	}
	if err := p.store.SaveViewData(ctx, sessionID, viewKey, data); err != nil {
		return nil, fmt.Errorf("saving view data: %w", err)
	}
	return data, nil
}

func decodeCall(body []byte) (*CallBody, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: missing request body", ErrBadRequest)
	}
	var call CallBody
	if err := json.Unmarshal(body, &call); err != nil {
		return nil, fmt.Errorf("%w: malformed request body", ErrBadRequest)
	}
	if call.Method == "" {
		return nil, fmt.Errorf("%w: missing method", ErrBadRequest)
	}
	return &call, nil
}

// rolesAllow reports whether the session satisfies a role constraint. An
// empty constraint is open; anonymous callers only pass open constraints.
func rolesAllow(s *auth.Session, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	return s.HasAnyRole(allowed)
}

// guard runs view code, turning a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("view code panicked: %v", r)
		}
	}()
	return fn()
}

func labelOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
