package orchestration

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/instances"
	"github.com/imamik/stratus/internal/provisioning"
)

// CreateCluster persists a cluster, validates it with its engine and starts
// provisioning in the background. The returned record is re-read after the
// background work was handed off.
//
// A rejected request returns a *ValidationError. When the engine rejected
// it, the record is kept in Error so the failure stays visible.
func (o *Orchestrator) CreateCluster(ctx context.Context, spec v1alpha1.ClusterSpec) (*v1alpha1.Cluster, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("cluster", spec.Name)

	spec, err := o.expandCluster(ctx, spec)
	if err != nil {
		return nil, err
	}
	if err := checkShape(spec); err != nil {
		return nil, err
	}
	plugin, err := o.plugins.GetVersion(spec.PluginName, spec.PluginVersion)
	if err != nil {
		return nil, err
	}
	groups, err := o.nodeGroups(ctx, spec.NodeGroups)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	lease, err := o.dispatcher.Acquire(id)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	cluster, err := o.store.CreateCluster(ctx, &v1alpha1.Cluster{
		ID:                id,
		Name:              spec.Name,
		PluginName:        spec.PluginName,
		PluginVersion:     spec.PluginVersion,
		Status:            v1alpha1.StatusNew,
		DefaultImageID:    spec.DefaultImageID,
		ClusterTemplateID: spec.ClusterTemplateID,
		ClusterConfigs:    spec.ClusterConfigs,
		Labels:            spec.Labels,
		NodeGroups:        groups,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist cluster: %w", err)
	}
	log = log.WithValues("id", id)
	log.Info("cluster created", "plugin", spec.PluginName, "version", spec.PluginVersion)

	cluster, err = o.machine.Transition(ctx, id, v1alpha1.StatusValidating, "")
	if err != nil {
		return nil, err
	}
	if err := plugin.Validate(ctx, cluster); err != nil {
		if _, ferr := o.machine.Fail(ctx, id, err); ferr != nil {
			log.Error(ferr, "failed to record validation failure")
		}
		return nil, o.reject(ctx, id, "create", err)
	}

	pipeline := o.pipeline("create", o.createPhases(plugin)...)
	work := o.background(id, func(ctx context.Context) error {
		_, err := pipeline.Run(ctx, id)
		return err
	})
	if err := lease.Go(logr.NewContext(ctx, log), "create", work); err != nil {
		return nil, err
	}

	return o.store.GetCluster(ctx, id)
}

func (o *Orchestrator) createPhases(plugin provisioning.Plugin) []provisioning.Phase {
	return []provisioning.Phase{
		{Name: "infrastructure", Status: v1alpha1.StatusInfraUpdating, Run: plugin.UpdateInfra},
		{Name: "instances", Run: func(ctx context.Context, cluster *v1alpha1.Cluster) error {
			_, err := o.instances.CreateInstances(ctx, cluster, instances.Missing(cluster))
			return err
		}},
		{Name: "configure", Status: v1alpha1.StatusConfiguring, Run: plugin.ConfigureCluster},
		{Name: "start", Status: v1alpha1.StatusStarting, Run: plugin.StartCluster},
		{Name: "activate", Status: v1alpha1.StatusActive, Run: noop},
	}
}
