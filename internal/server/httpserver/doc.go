// Package httpserver serves the operational HTTP endpoints of respkv.
//
// Routes:
//
//   - GET /health  liveness, always 200 while the process runs
//   - GET /ready   200 once the readiness check passes, 503 otherwise
//   - GET /metrics Prometheus exposition
//   - GET /version build information
//
// JSON responses share one envelope (see Response). Every route passes
// through Recover, RequestID, AccessLog and, when configured, NetworkACL.
package httpserver
