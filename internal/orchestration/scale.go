package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/instances"
	"github.com/imamik/stratus/internal/provisioning"
	"github.com/imamik/stratus/internal/scaling"
	"github.com/imamik/stratus/internal/store"
	"github.com/imamik/stratus/internal/util/ptr"
)

// ScaleCluster resizes and adds node groups of an Active cluster. Added
// groups are persisted empty before the engine sees the request, so every
// delta is keyed by node group id. Instance changes run in the background.
//
// When the engine rejects the deltas, the groups this request created are
// removed again, the cluster returns to Active and a *ValidationError is
// returned.
func (o *Orchestrator) ScaleCluster(ctx context.Context, id string, request v1alpha1.ScalingRequest) (*v1alpha1.Cluster, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("id", id)

	lease, err := o.dispatcher.Acquire(id)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	cluster, err := o.store.GetCluster(ctx, id)
	if err != nil {
		return nil, err
	}
	if cluster.Status != v1alpha1.StatusActive {
		return nil, fmt.Errorf("%w: cluster %s is %s", ErrInvalidState, id, cluster.Status)
	}
	plugin, err := o.plugin(cluster)
	if err != nil {
		return nil, err
	}

	deltas, err := scaling.Resolve(cluster, request)
	if errors.Is(err, scaling.ErrUnknownNodeGroup) {
		return nil, err
	}
	if err != nil {
		return nil, &ValidationError{ClusterID: id, Err: err}
	}
	for _, spec := range request.AddNodeGroups {
		if spec.Name == "" {
			return nil, &ValidationError{ClusterID: id, Err: errors.New("node group name is required")}
		}
	}
	adds, err := o.nodeGroups(ctx, request.AddNodeGroups)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]struct{}, len(cluster.NodeGroups))
	for _, ng := range cluster.NodeGroups {
		existing[ng.ID] = struct{}{}
	}
	materialized, err := scaling.Materialize(ctx, o.store, cluster, adds)
	created := newGroups(materialized, existing)
	if err != nil {
		o.removeGroups(ctx, id, created)
		return nil, &ValidationError{ClusterID: id, Err: err}
	}
	deltas = deltas.Merge(materialized)

	if _, err := o.machine.Transition(ctx, id, v1alpha1.StatusValidating, ""); err != nil {
		o.removeGroups(ctx, id, created)
		return nil, err
	}
	if err := plugin.ValidateScaling(ctx, cluster, deltas); err != nil {
		o.removeGroups(ctx, id, created)
		if _, terr := o.machine.Transition(ctx, id, v1alpha1.StatusActive, ""); terr != nil {
			log.Error(terr, "failed to restore cluster status after rejected scaling")
		}
		return nil, o.reject(ctx, id, "scale", err)
	}
	log.Info("scaling accepted", "added", deltas.Additions(), "net", deltas.Total())

	pipeline := o.pipeline("scale", o.scalePhases(plugin, deltas)...)
	work := o.background(id, func(ctx context.Context) error {
		_, err := pipeline.Run(ctx, id)
		return err
	})
	if err := lease.Go(logr.NewContext(ctx, log), "scale", work); err != nil {
		return nil, err
	}

	return o.store.GetCluster(ctx, id)
}

func (o *Orchestrator) scalePhases(plugin provisioning.Plugin, deltas scaling.Deltas) []provisioning.Phase {
	var added []v1alpha1.Instance

	return []provisioning.Phase{
		{Name: "resize", Status: v1alpha1.StatusScaling, Run: func(ctx context.Context, cluster *v1alpha1.Cluster) error {
			var err error
			added, err = o.resize(ctx, plugin, cluster, deltas)
			return err
		}},
		{Name: "configure", Run: func(ctx context.Context, cluster *v1alpha1.Cluster) error {
			if len(added) == 0 {
				return nil
			}
			cluster, err := o.machine.Transition(ctx, cluster.ID, v1alpha1.StatusConfiguring, "")
			if err != nil {
				return err
			}
			return plugin.ScaleCluster(ctx, cluster, added)
		}},
		{Name: "cleanup", Run: func(ctx context.Context, cluster *v1alpha1.Cluster) error {
			removed, err := o.instances.CleanEmptyGroups(ctx, cluster)
			if len(removed) > 0 {
				logr.FromContextOrDiscard(ctx).Info("removed empty node groups", "groups", removed)
			}
			return err
		}},
		{Name: "activate", Status: v1alpha1.StatusActive, Run: noop},
	}
}

// resize applies the target counts, removes surplus instances and creates
// the missing ones. It returns the instances it created.
func (o *Orchestrator) resize(ctx context.Context, plugin provisioning.Plugin, cluster *v1alpha1.Cluster, deltas scaling.Deltas) ([]v1alpha1.Instance, error) {
	targets := deltas.Targets(cluster)

	var surplus []v1alpha1.Instance
	growth := make(map[string]int)
	for _, ngID := range deltas.IDs() {
		ng, ok := cluster.NodeGroupByID(ngID)
		if !ok {
			return nil, fmt.Errorf("node group %s: %w", ngID, store.ErrNotFound)
		}
		target := targets[ngID]
		if err := o.store.UpdateNodeGroup(ctx, cluster.ID, ngID, store.NodeGroupUpdate{Count: ptr.To(target)}); err != nil {
			return nil, fmt.Errorf("failed to update node group %s: %w", ng.Name, err)
		}
		ng.Count = target

		switch delta := deltas[ngID]; {
		case delta < 0:
			surplus = append(surplus, instances.SelectForRemoval(*ng, -delta)...)
		case delta > 0:
			growth[ngID] = delta
		}
	}

	if len(surplus) > 0 {
		if d, ok := plugin.(provisioning.Decommissioner); ok {
			if err := d.DecommissionNodes(ctx, cluster, surplus); err != nil {
				return nil, fmt.Errorf("failed to decommission instances: %w", err)
			}
		}
		if err := o.instances.RemoveInstances(ctx, cluster.ID, surplus); err != nil {
			return nil, err
		}
	}

	if len(growth) == 0 {
		return nil, nil
	}
	return o.instances.CreateInstances(ctx, cluster, growth)
}

// newGroups returns the materialized ids that did not exist before the
// request. Reused empty groups are left alone by compensation.
func newGroups(m *scaling.Materialized, existing map[string]struct{}) []string {
	if m == nil {
		return nil
	}
	var out []string
	for _, id := range m.IDs {
		if _, ok := existing[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// removeGroups deletes node groups created for a rejected request, as long
// as they are still empty.
func (o *Orchestrator) removeGroups(ctx context.Context, clusterID string, ids []string) {
	if len(ids) == 0 {
		return
	}
	log := logr.FromContextOrDiscard(ctx)

	cluster, err := o.store.GetCluster(ctx, clusterID)
	if err != nil {
		log.Error(err, "failed to reload cluster for compensation", "id", clusterID)
		return
	}
	for _, ngID := range ids {
		ng, ok := cluster.NodeGroupByID(ngID)
		if !ok || len(ng.Instances) > 0 {
			continue
		}
		if err := o.store.RemoveNodeGroup(ctx, clusterID, ngID); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error(err, "failed to remove node group", "id", clusterID, "group", ng.Name)
		}
	}
}
