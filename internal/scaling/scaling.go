package scaling

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/store"
)

var (
	// ErrUnknownNodeGroup is returned when a resize names a group the
	// cluster does not have. It matches store.ErrNotFound.
	ErrUnknownNodeGroup = fmt.Errorf("unknown node group: %w", store.ErrNotFound)
	// ErrNodeGroupExists is returned when an added group collides with an
	// existing group that still has instances.
	ErrNodeGroupExists = errors.New("node group already exists")
	// ErrDuplicateNodeGroup is returned when one request names a group twice.
	ErrDuplicateNodeGroup = errors.New("node group named more than once")
	// ErrNegativeCount is returned for an added group with a negative count.
	ErrNegativeCount = errors.New("node group count must not be negative")
)

// Deltas maps node group id to the signed change in instance count.
// Groups whose count does not change are absent.
type Deltas map[string]int

// Total returns the net change across all groups.
func (d Deltas) Total() int {
	sum := 0
	for _, v := range d {
		sum += v
	}
	return sum
}

// Additions returns the sum of the positive deltas.
func (d Deltas) Additions() int {
	sum := 0
	for _, v := range d {
		if v > 0 {
			sum += v
		}
	}
	return sum
}

// IDs returns the node group ids in sorted order.
func (d Deltas) IDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Merge adds the requested counts of newly materialized groups.
func (d Deltas) Merge(m *Materialized) Deltas {
	out := make(Deltas, len(d)+len(m.Counts))
	for id, v := range d {
		out[id] = v
	}
	for id, count := range m.Counts {
		if count != 0 {
			out[id] += count
		}
	}
	return out
}

// Targets returns the resulting desired count for every group with a delta.
func (d Deltas) Targets(cluster *v1alpha1.Cluster) map[string]int {
	out := make(map[string]int, len(d))
	for id, delta := range d {
		live := 0
		if ng, ok := cluster.NodeGroupByID(id); ok {
			live = len(ng.Instances)
		}
		out[id] = live + delta
	}
	return out
}

// Resolve checks request against cluster and computes the deltas of the
// resized groups. Nothing is mutated; every error is reported before any
// node group is materialized.
func Resolve(cluster *v1alpha1.Cluster, request v1alpha1.ScalingRequest) (Deltas, error) {
	seen := make(map[string]struct{}, len(request.ResizeNodeGroups)+len(request.AddNodeGroups))
	deltas := make(Deltas)

	for _, r := range request.ResizeNodeGroups {
		if _, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNodeGroup, r.Name)
		}
		seen[r.Name] = struct{}{}

		ng, ok := cluster.NodeGroupByName(r.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownNodeGroup, r.Name)
		}
		target := max(r.Count, 0)
		if delta := target - len(ng.Instances); delta != 0 {
			deltas[ng.ID] = delta
		}
	}

	for _, a := range request.AddNodeGroups {
		if _, dup := seen[a.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNodeGroup, a.Name)
		}
		seen[a.Name] = struct{}{}

		if a.Count < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNegativeCount, a.Name)
		}
		if ng, ok := cluster.NodeGroupByName(a.Name); ok && !ng.IsEmpty() {
			return nil, fmt.Errorf("%w: %s", ErrNodeGroupExists, a.Name)
		}
	}

	return deltas, nil
}

// NodeGroupStore is the persistence used to materialize added groups.
type NodeGroupStore interface {
	AddNodeGroup(ctx context.Context, clusterID string, ng v1alpha1.NodeGroup) (*v1alpha1.NodeGroup, error)
}

// Materialized records the groups persisted for one scaling request.
type Materialized struct {
	// Counts maps node group id to the requested instance count.
	Counts map[string]int
	// IDs lists the materialized group ids in request order.
	IDs []string
}

// Materialize persists every added group with a zero count so it gets an id
// before any instance exists, and returns the requested counts by id.
// An existing empty group of the same name is reused instead of duplicated,
// which makes a retried request idempotent. cluster is updated in place.
func Materialize(ctx context.Context, s NodeGroupStore, cluster *v1alpha1.Cluster, adds []v1alpha1.NodeGroup) (*Materialized, error) {
	m := &Materialized{Counts: make(map[string]int, len(adds))}

	for _, add := range adds {
		requested := add.Count

		if existing, ok := cluster.NodeGroupByName(add.Name); ok {
			if !existing.IsEmpty() {
				return m, fmt.Errorf("%w: %s", ErrNodeGroupExists, add.Name)
			}
			m.Counts[existing.ID] = requested
			m.IDs = append(m.IDs, existing.ID)
			continue
		}

		add.Count = 0
		add.Instances = nil
		created, err := s.AddNodeGroup(ctx, cluster.ID, add)
		if err != nil {
			return m, fmt.Errorf("failed to add node group %s: %w", add.Name, err)
		}
		cluster.NodeGroups = append(cluster.NodeGroups, *created)
		m.Counts[created.ID] = requested
		m.IDs = append(m.IDs, created.ID)
	}

	return m, nil
}
