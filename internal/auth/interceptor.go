// ABOUTME: gRPC helpers that carry bearer credentials from metadata into handlers
// ABOUTME: Logs authentication failures with the peer address for security monitoring

package auth

import (
	"context"
	"log/slog"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// metadataAuthorization is the lower-cased metadata key for the credential.
const metadataAuthorization = "authorization"

// HeaderFromMetadata builds an http.Header holding the Authorization value
// found in the incoming gRPC metadata, so the session manager can treat both
// transports the same way.
func HeaderFromMetadata(ctx context.Context) http.Header {
	h := make(http.Header)
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return h
	}
	if vals := md.Get(metadataAuthorization); len(vals) > 0 {
		h.Set(HeaderAuthorization, vals[0])
	}
	return h
}

// MetadataFromHeader copies the refreshed token headers into gRPC header
// metadata. It returns nil when the headers carry no tokens.
func MetadataFromHeader(h http.Header) metadata.MD {
	var md metadata.MD
	for _, k := range []string{HeaderAccessToken, HeaderRefreshToken, HeaderTokenExpiresAt} {
		if v := h.Get(k); v != "" {
			if md == nil {
				md = metadata.MD{}
			}
			md.Set(k, v)
		}
	}
	return md
}

// logAuthFailure logs an authentication failure with structured context.
func logAuthFailure(logger *slog.Logger, ctx context.Context, method string, err error) {
	if logger == nil {
		return
	}
	attrs := []any{"method", method, "error", err}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		attrs = append(attrs, "peer_addr", p.Addr.String())
	}
	logger.Warn("auth failure", attrs...)
}

// UnaryInterceptor returns a gRPC unary interceptor that logs every call the
// handler rejected as unauthenticated.
func UnaryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		resp, err := handler(ctx, req)
		if status.Code(err) == codes.Unauthenticated {
			logAuthFailure(logger, ctx, info.FullMethod, err)
		}
		return resp, err
	}
}
