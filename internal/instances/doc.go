// Package instances creates and removes the substrate servers behind a
// cluster's node groups and keeps the persisted instance list in step.
//
// Every server is recorded in the store as soon as the substrate reports it,
// so a failure halfway through a batch leaves an accurate record of what
// exists. Removal deletes the server first and the record second; a server
// that is already gone counts as removed.
package instances
