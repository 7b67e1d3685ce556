// Package labels provides consistent labeling for substrate resources.
//
// All labels use the stratus.io domain prefix and follow a builder pattern
// for constructing label sets with cluster, node group and manager
// identification.
package labels
