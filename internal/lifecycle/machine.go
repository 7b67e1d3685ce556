package lifecycle

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/metrics"
	"github.com/imamik/stratus/internal/store"
	"github.com/imamik/stratus/internal/util/ptr"
)

// StatusStore is the persistence needed to move a cluster between statuses.
type StatusStore interface {
	GetCluster(ctx context.Context, id string) (*v1alpha1.Cluster, error)
	UpdateCluster(ctx context.Context, id string, update store.ClusterUpdate) (*v1alpha1.Cluster, error)
}

// Listener is notified after every persisted transition.
type Listener func(cluster *v1alpha1.Cluster, from v1alpha1.ClusterStatus)

// Machine persists status transitions.
type Machine struct {
	store         StatusStore
	listeners     []Listener
	enableMetrics bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithMetrics enables Prometheus recording of transitions.
func WithMetrics(enabled bool) Option {
	return func(m *Machine) {
		m.enableMetrics = enabled
	}
}

// WithListener registers a callback invoked after each transition.
func WithListener(l Listener) Option {
	return func(m *Machine) {
		m.listeners = append(m.listeners, l)
	}
}

// NewMachine returns a Machine writing through s.
func NewMachine(s StatusStore, opts ...Option) *Machine {
	m := &Machine{store: s}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Transition re-reads the cluster, checks that moving to status to is legal
// and persists the new status with description. The description is cleared
// when empty. Nothing is written for an illegal transition.
func (m *Machine) Transition(ctx context.Context, id string, to v1alpha1.ClusterStatus, description string) (*v1alpha1.Cluster, error) {
	current, err := m.store.GetCluster(ctx, id)
	if err != nil {
		return nil, err
	}

	from := current.Status
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: cluster %s from %q to %q", ErrIllegalTransition, id, from, to)
	}

	updated, err := m.store.UpdateCluster(ctx, id, store.ClusterUpdate{
		Status:            ptr.To(to),
		StatusDescription: ptr.To(description),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist status %s for cluster %s: %w", to, id, err)
	}

	logr.FromContextOrDiscard(ctx).Info("cluster status changed",
		"cluster", updated.Name,
		"id", id,
		"from", string(from),
		"to", string(to),
	)
	if m.enableMetrics {
		metrics.RecordTransition(string(from), string(to))
	}
	for _, l := range m.listeners {
		l(updated, from)
	}
	return updated, nil
}

// Fail moves the cluster to Error with the failure as description.
func (m *Machine) Fail(ctx context.Context, id string, cause error) (*v1alpha1.Cluster, error) {
	return m.Transition(ctx, id, v1alpha1.StatusError, cause.Error())
}
