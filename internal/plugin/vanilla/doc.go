// Package vanilla is the built-in provisioning engine. It runs a manager
// process on exactly one instance and worker or storage processes on the
// rest, configuring and starting them over SSH.
//
// Each instance gets /etc/stratus/node.env, rendered from the cluster and
// node group configs, and /etc/stratus/hosts listing every instance. Each
// process maps to a service unit named stratus-<process>.
package vanilla
