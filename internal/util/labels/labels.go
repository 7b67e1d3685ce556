package labels

// Standard label keys for substrate resources.
const (
	// KeyCluster holds the cluster id a resource belongs to.
	KeyCluster = "stratus.io/cluster"

	// KeyClusterName holds the human-readable cluster name.
	KeyClusterName = "stratus.io/cluster-name"

	// KeyNodeGroup holds the node group id.
	KeyNodeGroup = "stratus.io/node-group"

	// KeyManagedBy identifies the management system.
	KeyManagedBy = "stratus.io/managed-by"
)

// ManagedBy is the value of KeyManagedBy on every resource stratus creates.
const ManagedBy = "stratus"

// LabelBuilder provides a fluent interface for building resource labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a new label builder with the cluster pre-set.
func NewLabelBuilder(clusterID, clusterName string) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyCluster:     clusterID,
			KeyClusterName: clusterName,
			KeyManagedBy:   ManagedBy,
		},
	}
}

// WithNodeGroup adds the node group label.
func (lb *LabelBuilder) WithNodeGroup(groupID string) *LabelBuilder {
	lb.labels[KeyNodeGroup] = groupID
	return lb
}

// Merge adds all labels from the provided map. Reserved keys are not
// overwritten.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		if _, reserved := lb.labels[k]; reserved {
			continue
		}
		lb.labels[k] = v
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// SelectorForCluster returns a label selector for all resources in a cluster.
func SelectorForCluster(clusterID string) string {
	return KeyCluster + "=" + clusterID
}

// SelectorForNodeGroup returns a label selector for one node group.
func SelectorForNodeGroup(clusterID, groupID string) string {
	return SelectorForCluster(clusterID) + "," + KeyNodeGroup + "=" + groupID
}
