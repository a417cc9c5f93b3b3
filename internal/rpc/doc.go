// ABOUTME: Package rpc runs view controller calls end to end.
// ABOUTME: Resolves, authenticates, authorizes, locks, hydrates, invokes and persists.

// Package rpc implements the execution pipeline behind the single RPC
// endpoint.
//
// # Call flow
//
// Each call names a view (from the route) and a method with arguments (from
// the JSON body). The pipeline:
//
//  1. validates the request shape
//  2. resolves the view and the method in the registry
//  3. authenticates the bearer credential, issuing a fresh token pair
//  4. checks controller-level and method-level roles
//  5. takes the (session, view) lock
//  6. runs the Authorize hook, loads or initializes the view data,
//     runs the BeforeCall hook and invokes the method
//  7. persists the view data and answers {result, viewData}
//
// The lock is released on every path, including panics in view code.
// Refreshed tokens are attached to the response headers as soon as
// authentication succeeds, so later failures do not lose them.
//
// # Errors
//
// Execute returns the raw error. Handle either forwards it to a caller
// supplied NextFunc or maps it with StatusFor:
//
//	bad request           400
//	unauthenticated       401
//	forbidden             403 {"error":"Forbidden."}
//	view/method not found 404
//	initializer missing   500
//	lock wait timed out   503
//	anything else         500 {"error":"Internal server error."}
//
// # Anonymous calls
//
// Methods marked AllowUnauthenticated may be called without credentials.
// Such calls have no session, take no lock and neither load nor persist view
// data. They are refused when the view or method has role constraints. A
// credential that is present is always validated.
package rpc
