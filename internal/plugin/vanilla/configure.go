package vanilla

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-logr/logr"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/util/async"
)

const (
	envPath   = "/etc/stratus/node.env"
	hostsPath = "/etc/stratus/hosts"
)

// node is an instance together with the group it belongs to.
type node struct {
	instance v1alpha1.Instance
	group    *v1alpha1.NodeGroup
}

func nodesOf(cluster *v1alpha1.Cluster) []node {
	var out []node
	for i := range cluster.NodeGroups {
		ng := &cluster.NodeGroups[i]
		for _, inst := range ng.Instances {
			out = append(out, node{instance: inst, group: ng})
		}
	}
	return out
}

func selectNodes(cluster *v1alpha1.Cluster, instances []v1alpha1.Instance) []node {
	wanted := make(map[string]bool, len(instances))
	for _, inst := range instances {
		wanted[inst.ID] = true
	}
	var out []node
	for _, n := range nodesOf(cluster) {
		if wanted[n.instance.ID] {
			out = append(out, n)
		}
	}
	return out
}

func manager(cluster *v1alpha1.Cluster) (*node, error) {
	var found []node
	for _, n := range nodesOf(cluster) {
		if n.group.HasProcess(ProcessManager) {
			found = append(found, n)
		}
	}
	if len(found) != 1 {
		return nil, fmt.Errorf("%w: found %d", ErrManagerCount, len(found))
	}
	return &found[0], nil
}

func address(inst v1alpha1.Instance) string {
	if inst.InternalIP != "" {
		return inst.InternalIP
	}
	return inst.ManagementIP
}

// renderEnv builds node.env. Node group configs override cluster configs,
// which override the defaults of the version.
func renderEnv(cluster *v1alpha1.Cluster, n node, managerAddr string) []byte {
	vars := map[string]string{
		"STRATUS_CLUSTER":    cluster.Name,
		"STRATUS_CLUSTER_ID": cluster.ID,
		"STRATUS_NODE":       n.instance.Name,
		"STRATUS_NODE_GROUP": n.group.Name,
		"STRATUS_PROCESSES":  strings.Join(n.group.NodeProcesses, ","),
		"STRATUS_MANAGER":    managerAddr,
		"STRATUS_VERSION":    cluster.PluginVersion,
	}
	for _, configs := range []map[string]map[string]string{configDefaults(cluster.PluginVersion), cluster.ClusterConfigs, n.group.NodeConfigs} {
		for section, kv := range configs {
			for k, v := range kv {
				vars[envName(section, k)] = v
			}
		}
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%q\n", k, vars[k])
	}
	return []byte(b.String())
}

func envName(section, key string) string {
	sanitize := func(s string) string {
		return strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z':
				return r - 'a' + 'A'
			case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
				return r
			default:
				return '_'
			}
		}, s)
	}
	return "STRATUS_" + sanitize(section) + "_" + sanitize(key)
}

func renderHosts(cluster *v1alpha1.Cluster) []byte {
	var lines []string
	for _, n := range nodesOf(cluster) {
		lines = append(lines, address(n.instance)+" "+n.instance.Name)
	}
	sort.Strings(lines)
	return []byte(strings.Join(lines, "\n") + "\n")
}

func serviceName(process string) string {
	return "stratus-" + process
}

// forEach runs fn for every node in parallel.
func (p *Plugin) forEach(ctx context.Context, nodes []node, fn func(ctx context.Context, r Remote, n node) error) error {
	tasks := make([]async.Task, len(nodes))
	for i, n := range nodes {
		tasks[i] = async.Task{
			Name: n.instance.Name,
			Func: func(ctx context.Context) error {
				r, err := p.dial(ctx, n.instance.ManagementIP)
				if err != nil {
					return err
				}
				return fn(ctx, r, n)
			},
		}
	}
	return async.RunParallel(ctx, tasks, p.parallelism)
}

func (p *Plugin) configure(ctx context.Context, cluster *v1alpha1.Cluster, targets []node) error {
	mgr, err := manager(cluster)
	if err != nil {
		return err
	}
	managerAddr := address(mgr.instance)
	hosts := renderHosts(cluster)

	return p.forEach(ctx, targets, func(ctx context.Context, r Remote, n node) error {
		if err := r.WriteFile(ctx, envPath, renderEnv(cluster, n, managerAddr), 0o600); err != nil {
			return err
		}
		return r.WriteFile(ctx, hostsPath, hosts, 0o644)
	})
}

func (p *Plugin) start(ctx context.Context, targets []node) error {
	return p.forEach(ctx, targets, func(ctx context.Context, r Remote, n node) error {
		for _, proc := range n.group.NodeProcesses {
			if _, err := r.Execute(ctx, p.cfg.ServiceCommand+" start "+serviceName(proc)); err != nil {
				return err
			}
		}
		return nil
	})
}

// ConfigureCluster writes the node configuration to every instance.
func (p *Plugin) ConfigureCluster(ctx context.Context, cluster *v1alpha1.Cluster) error {
	nodes := nodesOf(cluster)
	logr.FromContextOrDiscard(ctx).Info("configuring instances", "cluster", cluster.ID, "count", len(nodes))
	if err := p.configure(ctx, cluster, nodes); err != nil {
		return fmt.Errorf("failed to configure cluster %s: %w", cluster.Name, err)
	}
	return nil
}

// StartCluster starts the manager first, then every other instance.
func (p *Plugin) StartCluster(ctx context.Context, cluster *v1alpha1.Cluster) error {
	mgr, err := manager(cluster)
	if err != nil {
		return err
	}
	if err := p.start(ctx, []node{*mgr}); err != nil {
		return fmt.Errorf("failed to start manager: %w", err)
	}

	var rest []node
	for _, n := range nodesOf(cluster) {
		if n.instance.ID != mgr.instance.ID {
			rest = append(rest, n)
		}
	}
	if err := p.start(ctx, rest); err != nil {
		return fmt.Errorf("failed to start instances: %w", err)
	}
	return nil
}

// ScaleCluster configures and starts the new instances and refreshes the
// host list everywhere else.
func (p *Plugin) ScaleCluster(ctx context.Context, cluster *v1alpha1.Cluster, instances []v1alpha1.Instance) error {
	added := selectNodes(cluster, instances)
	if err := p.configure(ctx, cluster, added); err != nil {
		return fmt.Errorf("failed to configure new instances: %w", err)
	}
	if err := p.start(ctx, added); err != nil {
		return fmt.Errorf("failed to start new instances: %w", err)
	}

	isNew := make(map[string]bool, len(added))
	for _, n := range added {
		isNew[n.instance.ID] = true
	}
	var existing []node
	for _, n := range nodesOf(cluster) {
		if !isNew[n.instance.ID] {
			existing = append(existing, n)
		}
	}
	hosts := renderHosts(cluster)
	return p.forEach(ctx, existing, func(ctx context.Context, r Remote, _ node) error {
		return r.WriteFile(ctx, hostsPath, hosts, 0o644)
	})
}

// DecommissionNodes stops the services of instances about to be removed.
// Storage is stopped last so workers release their data first.
func (p *Plugin) DecommissionNodes(ctx context.Context, cluster *v1alpha1.Cluster, instances []v1alpha1.Instance) error {
	targets := selectNodes(cluster, instances)
	logr.FromContextOrDiscard(ctx).Info("decommissioning instances", "cluster", cluster.ID, "count", len(targets))

	return p.forEach(ctx, targets, func(ctx context.Context, r Remote, n node) error {
		procs := append([]string(nil), n.group.NodeProcesses...)
		sort.SliceStable(procs, func(i, j int) bool { return procs[j] == ProcessStorage && procs[i] != ProcessStorage })
		for _, proc := range procs {
			if _, err := r.Execute(ctx, p.cfg.ServiceCommand+" stop "+serviceName(proc)); err != nil {
				return err
			}
		}
		return nil
	})
}
