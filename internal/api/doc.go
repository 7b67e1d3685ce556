// Package api serves the orchestrator over HTTP.
//
// Routes live under /v1 and exchange the JSON types of api/v1alpha1.
// Create and scale answer 202 Accepted once the request was validated; the
// remaining work continues in the background and can be followed through
// the cluster record and /v1/clusters/{id}/events. Failures are returned as
// an ErrorResponse whose Code tells clients which sentinel error it was.
//
// /healthz and /metrics sit outside /v1.
package api
