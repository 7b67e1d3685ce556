package provisioning

import (
	"context"
	"fmt"
	"time"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/metrics"
)

// Phase is one step of a lifecycle operation.
type Phase struct {
	// Name identifies the phase in events and errors.
	Name string
	// Status, when set, is entered before Run starts.
	Status v1alpha1.ClusterStatus
	// Run performs the work against the freshly loaded cluster.
	Run func(ctx context.Context, cluster *v1alpha1.Cluster) error
}

// Transitioner persists status changes and reloads cluster records.
type Transitioner interface {
	Transition(ctx context.Context, id string, to v1alpha1.ClusterStatus, description string) (*v1alpha1.Cluster, error)
}

// Loader reads a cluster record.
type Loader interface {
	GetCluster(ctx context.Context, id string) (*v1alpha1.Cluster, error)
}

// PhaseError reports the phase a pipeline stopped in.
type PhaseError struct {
	Operation string
	Phase     string
	Err       error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase %s failed: %v", e.Operation, e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Pipeline runs phases for one operation in order.
type Pipeline struct {
	Operation     string
	Phases        []Phase
	Machine       Transitioner
	Loader        Loader
	Observer      Observer
	EnableMetrics bool
}

// NewPipeline creates a pipeline for operation.
func NewPipeline(operation string, machine Transitioner, loader Loader, observer Observer, phases ...Phase) *Pipeline {
	return &Pipeline{
		Operation: operation,
		Phases:    phases,
		Machine:   machine,
		Loader:    loader,
		Observer:  observer,
	}
}

// Run executes every phase for clusterID and stops at the first failure.
// It returns the final cluster record.
func (p *Pipeline) Run(ctx context.Context, clusterID string) (*v1alpha1.Cluster, error) {
	var cluster *v1alpha1.Cluster

	for i, phase := range p.Phases {
		name := fmt.Sprintf("%s (%d/%d)", phase.Name, i+1, len(p.Phases))

		var err error
		if phase.Status != "" {
			cluster, err = p.Machine.Transition(ctx, clusterID, phase.Status, "")
		} else {
			cluster, err = p.Loader.GetCluster(ctx, clusterID)
		}
		if err != nil {
			return cluster, &PhaseError{Operation: p.Operation, Phase: phase.Name, Err: err}
		}

		LogPhaseStart(p.Observer, clusterID, p.Operation, name)
		start := time.Now()

		err = phase.Run(ctx, cluster)
		if p.EnableMetrics {
			metrics.RecordPhase(p.Operation, phase.Name, time.Since(start).Seconds(), err)
		}
		if err != nil {
			LogPhaseFailed(p.Observer, clusterID, p.Operation, name, err)
			return cluster, &PhaseError{Operation: p.Operation, Phase: phase.Name, Err: err}
		}

		LogPhaseComplete(p.Observer, clusterID, p.Operation, name, time.Since(start))
	}

	if cluster == nil || len(p.Phases) == 0 {
		return p.Loader.GetCluster(ctx, clusterID)
	}
	return cluster, nil
}
