// Package middleware chains the three grpc.UnaryServerInterceptors every
// worker RPC passes through before reaching internal/rpc's handlers:
// input validation, per-client rate limiting, and request metrics —
// mirroring the interceptor-wrapping shape the teacher uses for its
// read-only Unix-socket guard, generalized to a full validation/limiting
// chain instead of a single allow/deny check.
package middleware
