// Package provisioning defines the provisioning engine boundary and the
// phase pipeline that drives a cluster through its lifecycle.
//
// # Core Types
//
// Plugin is a provisioning engine: it validates requests and performs the
// technology-specific work of each phase. Engines are registered in an
// explicit Registry built at process start.
//
// Pipeline runs an ordered list of Phase values for one cluster. Each phase
// may enter a lifecycle status before its work starts, re-reads the cluster
// record, and reports progress through an Observer.
package provisioning
