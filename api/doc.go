// Package api documents the docgraph HTTP API.
//
// Request handlers live in api/handlers; the binary in cmd/docgraph mounts
// them on a single port behind the middleware chain.
//
// # Endpoints
//
//	POST /api/process                        ingest a decomposed document, build its graph
//	GET  /api/graph/{documentId}             registered graph of a document
//	GET  /api/graph/{documentId}/expand      expand from ?seed=<nodeId>&depth=<n>
//	GET  /api/graph/{documentId}/summary     the user's memories for a document, counted by type
//	POST /api/query                          hybrid retrieval + answer generation
//	POST /api/retrieve                       hybrid retrieval only
//	POST /api/memories                       append a user memory
//	GET  /api/profile?userId=<id>            user profile view
//	GET  /health, /ready, /version, /metrics
//
// # Users
//
// Memories are partitioned by user. With JWT enabled the user is the token's
// user_id (or sub) claim; a userId in the body or query, or an X-User-ID
// header, naming a different user is rejected with 403 UNAUTHORIZED. Without
// JWT the user is taken from the body or query (userId), then the X-User-ID
// header, and finally falls back to "default-user".
//
// # Authentication
//
// When API keys are configured every /api route requires the X-API-Key header:
//
//	X-API-Key: your-api-key
//
// When a JWT secret is configured, /api routes require an HS256 bearer token:
//
//	Authorization: Bearer <token>
//
// # Response envelope
//
//	{"success": true, "data": {...}, "timestamp": "...", "request_id": "req-..."}
//	{"success": false, "error": {"code": "RETRIEVAL_INPUT_INVALID", "message": "..."}}
package api
