// Package hcloud implements the platform substrate and image registry on
// Hetzner Cloud.
//
// Every API call carries the timeouts from config.Timeouts and retries
// transient failures with exponential backoff. Deletes are idempotent: a
// missing server counts as deleted.
package hcloud
