// Package server serves the fetch functions over HTTP.
//
// Each variant is reachable at POST /functions/v1/{variant} with a body of
// {"username": "...", "debug": false}. Responses share one envelope:
//
//	{"success": true, "data": [...], "message": "Successfully fetched 12 posts for @natgeo"}
//	{"success": false, "error": "Username is required", "details": "Check the function logs for more information"}
//
// Failures answer 500 unless strict_status_codes is set. Every response
// carries the CORS headers and OPTIONS requests are answered before any
// route runs.
//
// Supporting routes:
//
//	GET  /healthz
//	GET  /api/v1/variants
//	GET  /api/v1/accounts/{username}/snapshots
//	GET  /api/v1/demo/posts?count=&seed=
//	GET  /api/v1/demo/growth?days=
//	POST /auth/v1/magic-link
//	GET  /auth/v1/session
package server
