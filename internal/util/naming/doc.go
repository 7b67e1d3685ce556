// Package naming provides consistent names for substrate resources.
//
// Servers are named {cluster}-{group}-{index}. Indices are never reused
// while a group has live instances, so names stay unique across scaling.
package naming
