package instances

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-logr/logr"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/platform"
	"github.com/imamik/stratus/internal/provisioning"
	"github.com/imamik/stratus/internal/store"
	"github.com/imamik/stratus/internal/util/async"
	"github.com/imamik/stratus/internal/util/labels"
	"github.com/imamik/stratus/internal/util/naming"
)

const resourceType = "server"

// DefaultParallelism bounds concurrent substrate calls per batch.
const DefaultParallelism = 10

// Manager owns the instances of every cluster.
type Manager struct {
	substrate   platform.Substrate
	store       store.Store
	observer    provisioning.Observer
	parallelism int
	namePrefix  string
	sshKeys     []string
}

// Option configures a Manager.
type Option func(*Manager)

// WithObserver reports resource events to o.
func WithObserver(o provisioning.Observer) Option {
	return func(m *Manager) {
		m.observer = o
	}
}

// WithParallelism bounds concurrent substrate calls.
func WithParallelism(n int) Option {
	return func(m *Manager) {
		m.parallelism = n
	}
}

// WithNamePrefix prepends prefix to every server name, for substrates whose
// namespace is shared with unrelated resources (Docker containers).
func WithNamePrefix(prefix string) Option {
	return func(m *Manager) {
		m.namePrefix = prefix
	}
}

// WithSSHKeys installs keys on every created server.
func WithSSHKeys(keys ...string) Option {
	return func(m *Manager) {
		m.sshKeys = keys
	}
}

// NewManager returns a Manager creating servers on substrate and recording
// them in st.
func NewManager(substrate platform.Substrate, st store.Store, opts ...Option) *Manager {
	m := &Manager{
		substrate:   substrate,
		store:       st,
		observer:    provisioning.Observers(nil),
		parallelism: DefaultParallelism,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Missing returns, per node group id, how many instances are needed to
// reach the group's desired count.
func Missing(cluster *v1alpha1.Cluster) map[string]int {
	out := make(map[string]int)
	for _, ng := range cluster.NodeGroups {
		if n := ng.Count - len(ng.Instances); n > 0 {
			out[ng.ID] = n
		}
	}
	return out
}

type pendingServer struct {
	group *v1alpha1.NodeGroup
	spec  platform.ServerSpec
}

// CreateInstances creates counts[groupID] new instances in each node group,
// all in parallel. Each instance is persisted once its server exists. The
// returned slice holds every instance created, even when err is not nil.
func (m *Manager) CreateInstances(ctx context.Context, cluster *v1alpha1.Cluster, counts map[string]int) ([]v1alpha1.Instance, error) {
	var pending []pendingServer
	for i := range cluster.NodeGroups {
		ng := &cluster.NodeGroups[i]
		n := counts[ng.ID]
		if n <= 0 {
			continue
		}

		names := make([]string, 0, len(ng.Instances))
		for _, inst := range ng.Instances {
			names = append(names, inst.Name)
		}
		next := naming.NextIndex(m.trimPrefix(names), cluster.Name, ng.Name)

		image := ng.ImageID
		if image == "" {
			image = cluster.DefaultImageID
		}
		lbls := labels.NewLabelBuilder(cluster.ID, cluster.Name).
			WithNodeGroup(ng.ID).
			Merge(cluster.Labels).
			Build()

		for j := 0; j < n; j++ {
			pending = append(pending, pendingServer{
				group: ng,
				spec: platform.ServerSpec{
					Name:    m.namePrefix + naming.Server(cluster.Name, ng.Name, next+j),
					Flavor:  ng.FlavorID,
					Image:   image,
					SSHKeys: m.sshKeys,
					Labels:  lbls,
				},
			})
		}
	}

	if len(pending) == 0 {
		return nil, nil
	}

	logr.FromContextOrDiscard(ctx).Info("creating instances", "cluster", cluster.ID, "count", len(pending))

	var (
		mu      sync.Mutex
		created []v1alpha1.Instance
	)
	tasks := make([]async.Task, len(pending))
	for i, p := range pending {
		tasks[i] = async.Task{
			Name: p.spec.Name,
			Func: func(ctx context.Context) error {
				inst, err := m.createInstance(ctx, cluster.ID, p)
				if err != nil {
					return err
				}
				mu.Lock()
				created = append(created, *inst)
				mu.Unlock()
				return nil
			},
		}
	}

	err := async.RunParallel(ctx, tasks, m.parallelism)
	sortByName(created)
	if err != nil {
		return created, fmt.Errorf("failed to create instances: %w", err)
	}
	return created, nil
}

func (m *Manager) createInstance(ctx context.Context, clusterID string, p pendingServer) (*v1alpha1.Instance, error) {
	provisioning.LogResourceCreating(m.observer, clusterID, resourceType, p.spec.Name)

	// A server left behind by an earlier, interrupted attempt is adopted.
	srv, err := m.substrate.GetServer(ctx, p.spec.Name)
	if errors.Is(err, platform.ErrNotFound) {
		srv, err = m.substrate.CreateServer(ctx, p.spec)
	}
	if err != nil {
		return nil, err
	}

	inst, err := m.store.AddInstance(ctx, clusterID, p.group.ID, v1alpha1.Instance{
		Name:         srv.Name,
		ServerID:     srv.ID,
		ManagementIP: srv.PublicIP,
		InternalIP:   srv.PrivateIP,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record instance %s: %w", srv.Name, err)
	}

	provisioning.LogResourceCreated(m.observer, clusterID, resourceType, srv.Name, srv.ID)
	return inst, nil
}

// RemoveInstances deletes the servers of instances and then their records.
// Missing servers and already-removed records count as success.
func (m *Manager) RemoveInstances(ctx context.Context, clusterID string, instances []v1alpha1.Instance) error {
	if len(instances) == 0 {
		return nil
	}

	tasks := make([]async.Task, len(instances))
	for i, inst := range instances {
		tasks[i] = async.Task{
			Name: inst.Name,
			Func: func(ctx context.Context) error {
				return m.removeInstance(ctx, clusterID, inst)
			},
		}
	}

	if err := async.RunParallel(ctx, tasks, m.parallelism); err != nil {
		return fmt.Errorf("failed to remove instances: %w", err)
	}
	return nil
}

func (m *Manager) removeInstance(ctx context.Context, clusterID string, inst v1alpha1.Instance) error {
	provisioning.LogResourceDeleting(m.observer, clusterID, resourceType, inst.Name)

	if err := m.substrate.DeleteServer(ctx, inst.Name); err != nil {
		return err
	}
	if err := m.store.RemoveInstance(ctx, clusterID, inst.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to forget instance %s: %w", inst.Name, err)
	}

	provisioning.LogResourceDeleted(m.observer, clusterID, resourceType, inst.Name)
	return nil
}

// Shutdown removes every instance of cluster, then any labelled server
// that never made it into the record. It is safe to call again after a
// partial failure.
func (m *Manager) Shutdown(ctx context.Context, cluster *v1alpha1.Cluster) error {
	log := logr.FromContextOrDiscard(ctx)
	log.Info("shutting down instances", "cluster", cluster.ID, "count", cluster.InstanceCount())

	if err := m.RemoveInstances(ctx, cluster.ID, cluster.Instances()); err != nil {
		return err
	}

	orphans, err := m.Orphans(ctx, cluster)
	if err != nil {
		return err
	}
	for _, srv := range orphans {
		log.Info("deleting unrecorded server", "cluster", cluster.ID, "server", srv.Name)
		if err := m.substrate.DeleteServer(ctx, srv.Name); err != nil {
			return fmt.Errorf("failed to delete server %s: %w", srv.Name, err)
		}
	}
	return nil
}

// SelectForRemoval picks the n most recently created instances of ng.
// Indices grow monotonically within a group, so the highest index goes
// first; creation time only orders names that carry no index.
func SelectForRemoval(ng v1alpha1.NodeGroup, n int) []v1alpha1.Instance {
	if n <= 0 {
		return nil
	}
	sorted := append([]v1alpha1.Instance(nil), ng.Instances...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, aok := naming.TrailingIndex(sorted[i].Name)
		b, bok := naming.TrailingIndex(sorted[j].Name)
		if aok && bok && a != b {
			return a > b
		}
		if aok != bok {
			return aok
		}
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].Name > sorted[j].Name
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// CleanEmptyGroups removes node groups with no desired and no live
// instances. It returns the names of the removed groups.
func (m *Manager) CleanEmptyGroups(ctx context.Context, cluster *v1alpha1.Cluster) ([]string, error) {
	var removed []string
	for _, ng := range cluster.NodeGroups {
		if !ng.IsEmpty() {
			continue
		}
		if err := m.store.RemoveNodeGroup(ctx, cluster.ID, ng.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return removed, fmt.Errorf("failed to remove empty node group %s: %w", ng.Name, err)
		}
		removed = append(removed, ng.Name)
	}
	return removed, nil
}

// Orphans lists substrate servers labelled with the cluster id that have no
// instance record.
func (m *Manager) Orphans(ctx context.Context, cluster *v1alpha1.Cluster) ([]platform.Server, error) {
	servers, err := m.substrate.ListServers(ctx, map[string]string{labels.KeyCluster: cluster.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list servers of cluster %s: %w", cluster.ID, err)
	}

	known := make(map[string]bool)
	for _, inst := range cluster.Instances() {
		known[inst.Name] = true
	}

	var out []platform.Server
	for _, srv := range servers {
		if !known[srv.Name] {
			out = append(out, srv)
		}
	}
	return out, nil
}

func (m *Manager) trimPrefix(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if rest, ok := strings.CutPrefix(n, m.namePrefix); ok {
			out = append(out, rest)
		}
	}
	return out
}

func sortByName(instances []v1alpha1.Instance) {
	sort.Slice(instances, func(i, j int) bool { return instances[i].Name < instances[j].Name })
}
