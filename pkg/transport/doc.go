// Package transport defines the handler interfaces and middleware chain for
// the glatt HTTP transport layer.
//
// The transport layer bridges external clients and the batch runner. It
// deserializes incoming run requests into the types defined in pkg/api,
// dispatches them for processing, and serializes the resulting runs back
// to the client as JSON.
//
// # Handler Interfaces
//
// Two handler interfaces define the contract between the transport layer
// and the processing core:
//
//   - BatchRunner executes one batch normalization run, available in both
//     stateless and stateful deployments.
//   - RunStore handles persistence, retrieval, and deletion of stored
//     runs, available only in deployments with persistence configured.
//
// # Middleware
//
// The middleware chain wraps BatchRunner with cross-cutting concerns.
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured logging via log/slog. Custom middleware
// can be added for application-specific concerns.
package transport
