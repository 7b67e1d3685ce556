// Package scaling turns a scaling request into per-node-group instance deltas.
package scaling
