// Package lifecycle enforces the legal sequence of cluster statuses.
//
// Every status change goes through [Machine.Transition], which checks the
// transition table, persists the new status before any phase work starts,
// logs the change and records it in metrics.
package lifecycle
