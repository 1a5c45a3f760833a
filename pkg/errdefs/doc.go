/*
Package errdefs defines the coarse error taxonomy shared by every Piccolo
boundary: InvalidArgument, NotFound, Unavailable, Conflict, Internal.

Domain errors (InvalidArgument, NotFound, Conflict) surface immediately to
the caller; Unavailable errors are retried locally with capped exponential
backoff; Internal marks invariant violations and is logged with full
context.

Adapters translate the taxonomy at each edge: GRPCStatus for the gRPC
boundary, HTTPStatus for the REST boundary. No other error type crosses a
module boundary.
*/
package errdefs
