package orchestration

import (
	"context"
	"errors"

	"github.com/go-logr/logr"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/dispatch"
	"github.com/imamik/stratus/internal/instances"
	"github.com/imamik/stratus/internal/lifecycle"
	"github.com/imamik/stratus/internal/platform"
	"github.com/imamik/stratus/internal/provisioning"
	"github.com/imamik/stratus/internal/store"
)

// Orchestrator coordinates lifecycle operations on clusters.
type Orchestrator struct {
	store      store.Store
	plugins    *provisioning.Registry
	instances  *instances.Manager
	images     platform.ImageRegistry
	machine    *lifecycle.Machine
	dispatcher *dispatch.Dispatcher
	observer   provisioning.Observer

	enableMetrics bool
	listeners     []lifecycle.Listener
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDispatcher sets the dispatcher background work runs on.
func WithDispatcher(d *dispatch.Dispatcher) Option {
	return func(o *Orchestrator) {
		o.dispatcher = d
	}
}

// WithObserver reports phase events to obs.
func WithObserver(obs provisioning.Observer) Option {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

// WithImageRegistry enables the image operations.
func WithImageRegistry(r platform.ImageRegistry) Option {
	return func(o *Orchestrator) {
		o.images = r
	}
}

// WithMetrics enables Prometheus recording of transitions and phases.
func WithMetrics(enabled bool) Option {
	return func(o *Orchestrator) {
		o.enableMetrics = enabled
	}
}

// WithStatusListener is called after every persisted status change.
func WithStatusListener(l lifecycle.Listener) Option {
	return func(o *Orchestrator) {
		o.listeners = append(o.listeners, l)
	}
}

// New returns an Orchestrator persisting to st, resolving engines from
// plugins and creating servers through inst.
func New(st store.Store, plugins *provisioning.Registry, inst *instances.Manager, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     st,
		plugins:   plugins,
		instances: inst,
		observer:  provisioning.Observers(nil),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.dispatcher == nil {
		o.dispatcher = dispatch.New(dispatch.WithMetrics(o.enableMetrics))
	}

	machineOpts := []lifecycle.Option{lifecycle.WithMetrics(o.enableMetrics)}
	for _, l := range o.listeners {
		machineOpts = append(machineOpts, lifecycle.WithListener(l))
	}
	o.machine = lifecycle.NewMachine(st, machineOpts...)
	return o
}

// Dispatcher returns the dispatcher running background work.
func (o *Orchestrator) Dispatcher() *dispatch.Dispatcher {
	return o.dispatcher
}

// Shutdown waits for background work to finish.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	return o.dispatcher.Shutdown(ctx)
}

func (o *Orchestrator) plugin(cluster *v1alpha1.Cluster) (provisioning.Plugin, error) {
	return o.plugins.GetVersion(cluster.PluginName, cluster.PluginVersion)
}

func (o *Orchestrator) pipeline(operation string, phases ...provisioning.Phase) *provisioning.Pipeline {
	p := provisioning.NewPipeline(operation, o.machine, o.store, o.observer, phases...)
	p.EnableMetrics = o.enableMetrics
	return p
}

// background wraps work so that any failure, a panic included, ends with
// the cluster in Error. The error is still returned for the dispatcher to
// log and count.
func (o *Orchestrator) background(id string, work func(ctx context.Context) error) dispatch.Work {
	return func(ctx context.Context) (err error) {
		defer func() {
			if err != nil {
				o.markFailed(ctx, id, err)
			}
		}()
		defer dispatch.Recover(&err)
		return work(ctx)
	}
}

func (o *Orchestrator) markFailed(ctx context.Context, id string, cause error) {
	log := logr.FromContextOrDiscard(ctx)
	if _, err := o.machine.Fail(ctx, id, cause); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return
		}
		log.Error(err, "failed to record cluster error", "id", id, "cause", cause.Error())
	}
}

// reject records an engine rejection and returns it as a ValidationError.
func (o *Orchestrator) reject(ctx context.Context, id, operation string, err error) *ValidationError {
	provisioning.LogValidationFailed(o.observer, id, operation, err)
	logr.FromContextOrDiscard(ctx).Info("request rejected", "id", id, "operation", operation, "reason", err.Error())
	return &ValidationError{ClusterID: id, Err: err}
}

func noop(context.Context, *v1alpha1.Cluster) error { return nil }
