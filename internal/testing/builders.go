package testing

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/util/naming"
)

// ClusterBuilder provides a fluent interface for constructing cluster records.
// Each method returns a new builder (immutable) for chaining.
type ClusterBuilder struct {
	cluster v1alpha1.Cluster
}

// NewClusterBuilder creates a ClusterBuilder with sensible defaults.
func NewClusterBuilder() *ClusterBuilder {
	return &ClusterBuilder{
		cluster: v1alpha1.Cluster{
			Name:           "test-cluster",
			PluginName:     "fake",
			PluginVersion:  "1.0",
			DefaultImageID: "debian-12",
		},
	}
}

// WithName sets the cluster name.
func (b *ClusterBuilder) WithName(name string) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.Name = name
	return nb
}

// WithID sets the cluster id.
func (b *ClusterBuilder) WithID(id string) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.ID = id
	return nb
}

// WithPlugin sets the engine name and version.
func (b *ClusterBuilder) WithPlugin(name, version string) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.PluginName = name
	nb.cluster.PluginVersion = version
	return nb
}

// WithStatus sets the lifecycle status.
func (b *ClusterBuilder) WithStatus(status v1alpha1.ClusterStatus) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.Status = status
	return nb
}

// WithLabels sets the cluster labels.
func (b *ClusterBuilder) WithLabels(labels map[string]string) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.Labels = maps.Clone(labels)
	return nb
}

// WithNodeGroup adds a node group with the given desired count and no
// instances.
func (b *ClusterBuilder) WithNodeGroup(name, flavor string, count int, processes ...string) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.NodeGroups = append(nb.cluster.NodeGroups, v1alpha1.NodeGroup{
		ID:            uuid.NewString(),
		Name:          name,
		Count:         count,
		FlavorID:      flavor,
		NodeProcesses: processes,
	})
	return nb
}

// WithInstances gives the named node group n live instances, named the way
// the instance manager names them. Addresses are numbered across the whole
// cluster in the order instances are added, starting at 203.0.113.1
// (management) and 10.0.0.1 (internal); each instance is created one second
// after the previous one.
func (b *ClusterBuilder) WithInstances(group string, n int) *ClusterBuilder {
	nb := b.clone()
	seq := nb.cluster.InstanceCount()
	ng, ok := nb.cluster.NodeGroupByName(group)
	if !ok {
		panic(fmt.Sprintf("unknown node group %q", group))
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	start := len(ng.Instances)
	for i := 1; i <= n; i++ {
		idx := start + i
		seq++
		ng.Instances = append(ng.Instances, v1alpha1.Instance{
			ID:           uuid.NewString(),
			Name:         naming.Server(nb.cluster.Name, group, idx),
			ServerID:     fmt.Sprintf("srv-%d", seq),
			ManagementIP: fmt.Sprintf("203.0.113.%d", seq),
			InternalIP:   fmt.Sprintf("10.0.0.%d", seq),
			CreatedAt:    base.Add(time.Duration(seq) * time.Second),
		})
	}
	return nb
}

// Build returns the constructed cluster.
func (b *ClusterBuilder) Build() *v1alpha1.Cluster {
	c := b.clone().cluster
	return &c
}

// clone creates a deep copy of the builder for immutability.
func (b *ClusterBuilder) clone() *ClusterBuilder {
	c := b.cluster
	c.Labels = maps.Clone(b.cluster.Labels)
	if b.cluster.NodeGroups != nil {
		c.NodeGroups = make([]v1alpha1.NodeGroup, len(b.cluster.NodeGroups))
		for i, ng := range b.cluster.NodeGroups {
			ng.NodeProcesses = append([]string(nil), ng.NodeProcesses...)
			ng.Instances = append([]v1alpha1.Instance(nil), ng.Instances...)
			c.NodeGroups[i] = ng
		}
	}
	return &ClusterBuilder{cluster: c}
}

// ClusterSpec returns a creation request with a manager group and a worker
// group.
func ClusterSpec(name, plugin, version string, workers int) v1alpha1.ClusterSpec {
	return v1alpha1.ClusterSpec{
		Name:           name,
		PluginName:     plugin,
		PluginVersion:  version,
		DefaultImageID: "debian-12",
		NodeGroups: []v1alpha1.NodeGroupSpec{
			{Name: "manager", Count: 1, FlavorID: "cpx21", NodeProcesses: []string{"manager"}},
			{Name: "workers", Count: workers, FlavorID: "cpx21", NodeProcesses: []string{"worker"}},
		},
	}
}
