// Package gateway orchestrates the viewgate server components.
//
// # Overview
//
// The gateway package owns the SQLite store, the session manager, the view
// registry, the per-(session, view) lock manager and the RPC pipeline, and
// exposes them over HTTP and gRPC.
//
// # HTTP API
//
//   - POST /rpc/{view} - Call a view method (prefix from server.rpc_prefix)
//   - POST /auth/login - Username/password login, returns a token pair
//   - POST /auth/refresh - Exchange a refresh token for a new pair
//   - POST /auth/logout - Revoke the caller's session
//   - GET /views - Catalogue of views and callables (HTML, or ?format=json)
//   - DELETE /admin/sessions/{session}/views/{view} - Purge stored view data (admin)
//   - GET /health - Liveness check
//   - GET /health/ready - Readiness check (database ping)
//   - GET /metrics - Prometheus metrics when metrics.enabled is set
//
// Every authenticated call answers with rolling refresh headers:
//
//	X-Access-Token: <jwt>
//	X-Refresh-Token: <jwt>
//	X-Token-Expires-At: 2026-03-01T12:15:00Z
//
// # gRPC Service
//
// The same pipeline is served as a unary gRPC method using well-known types,
// so no generated code is needed:
//
//	service ViewService {
//	    rpc Call(google.protobuf.Struct) returns (google.protobuf.Struct);
//	}
//
// The request struct holds view, method and args; the response holds result
// and viewData. The bearer credential goes in the authorization metadata key
// and refreshed tokens come back as header metadata.
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, logger, builtins.All()...)
//	ctx, cancel := context.WithCancel(context.Background())
//	go gw.Run(ctx)
//
// Cancelling the context shuts the servers down gracefully.
//
// # Key Files
//
//   - gateway.go: Gateway struct, initialization, listeners, Run/Shutdown
//   - api.go: auth and admin HTTP handlers
//   - catalogue.go: view catalogue page
//   - grpc.go: ViewService implementation
package gateway
