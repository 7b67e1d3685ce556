// Package orchestration drives clusters through their lifecycle.
//
// The Orchestrator validates create and scale requests on the caller's path,
// then hands the long-running phases to the dispatcher under a lease keyed
// by cluster id. Only one lifecycle operation runs per cluster at a time;
// a second one is rejected with ErrClusterBusy.
//
// # Workflow
//
// Create:
//  1. Validating - the engine checks the request (synchronous)
//  2. InfraUpdating - engine infrastructure, then one server per instance
//  3. Configuring - the engine configures every instance
//  4. Starting - the engine starts the cluster
//  5. Active
//
// Scale:
//  1. Validating - new node groups are persisted empty, the engine checks
//     the deltas (synchronous)
//  2. Scaling - counts are applied, instances removed and created
//  3. Configuring - only when instances were added
//  4. Active
//
// A background failure moves the cluster to Error with the failure as
// status description. Termination is synchronous and may be retried.
package orchestration
