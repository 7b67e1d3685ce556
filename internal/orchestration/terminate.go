package orchestration

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/provisioning"
)

// TerminateCluster tears a cluster down and destroys its record. It runs
// on the caller's path. When the engine hook or the instance shutdown fails
// the record stays in Deleting and the call can be repeated; a repeated call
// runs the hook again.
func (o *Orchestrator) TerminateCluster(ctx context.Context, id string) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("id", id)

	lease, err := o.dispatcher.Acquire(id)
	if err != nil {
		return err
	}
	defer lease.Release()

	if _, err := o.store.GetCluster(ctx, id); err != nil {
		return err
	}

	pipeline := o.pipeline("terminate",
		provisioning.Phase{Name: "terminate", Status: v1alpha1.StatusDeleting, Run: func(ctx context.Context, cluster *v1alpha1.Cluster) error {
			plugin, err := o.plugin(cluster)
			if err != nil {
				return err
			}
			return plugin.OnTerminateCluster(ctx, cluster)
		}},
		provisioning.Phase{Name: "shutdown", Run: o.instances.Shutdown},
	)
	if _, err := pipeline.Run(ctx, id); err != nil {
		return err
	}

	if err := o.store.DestroyCluster(ctx, id); err != nil {
		return fmt.Errorf("failed to destroy cluster record: %w", err)
	}
	log.Info("cluster terminated")
	return nil
}
