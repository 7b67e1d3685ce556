package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/dispatch"
	"github.com/imamik/stratus/internal/instances"
	"github.com/imamik/stratus/internal/platform"
	"github.com/imamik/stratus/internal/provisioning"
	"github.com/imamik/stratus/internal/scaling"
	"github.com/imamik/stratus/internal/store"
	stratustest "github.com/imamik/stratus/internal/testing"
)

type harness struct {
	orch      *Orchestrator
	store     store.Store
	substrate *stratustest.FakeSubstrate
	events    *provisioning.EventLog

	mu       sync.Mutex
	statuses map[string][]v1alpha1.ClusterStatus
}

func newHarness(t *testing.T, plugin provisioning.Plugin, opts ...Option) *harness {
	t.Helper()

	registry, err := provisioning.NewRegistry(plugin)
	require.NoError(t, err)

	h := &harness{
		store:     store.NewMemory(),
		substrate: stratustest.NewFakeSubstrate(),
		events:    provisioning.NewEventLog(200),
		statuses:  make(map[string][]v1alpha1.ClusterStatus),
	}
	manager := instances.NewManager(h.substrate, h.store, instances.WithObserver(h.events))

	opts = append([]Option{
		WithObserver(h.events),
		WithStatusListener(h.record),
	}, opts...)
	h.orch = New(h.store, registry, manager, opts...)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.orch.Shutdown(ctx)
	})
	return h
}

func (h *harness) record(cluster *v1alpha1.Cluster, _ v1alpha1.ClusterStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses[cluster.ID] = append(h.statuses[cluster.ID], cluster.Status)
}

func (h *harness) history(id string) []v1alpha1.ClusterStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]v1alpha1.ClusterStatus(nil), h.statuses[id]...)
}

// seed stores an Active cluster directly.
func (h *harness) seed(t *testing.T, b *stratustest.ClusterBuilder) *v1alpha1.Cluster {
	t.Helper()
	cluster, err := h.store.CreateCluster(context.Background(), b.WithStatus(v1alpha1.StatusActive).Build())
	require.NoError(t, err)
	for _, inst := range cluster.Instances() {
		h.substrate.Put(platform.Server{ID: inst.ServerID, Name: inst.Name, PublicIP: inst.ManagementIP, PrivateIP: inst.InternalIP})
	}
	return cluster
}

// waitIdle waits until the background work for id released its lease.
func (h *harness) waitIdle(t *testing.T, id string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !h.orch.Dispatcher().Busy(id)
	}, 5*time.Second, 5*time.Millisecond)
}

func groupNamed(t *testing.T, c *v1alpha1.Cluster, name string) *v1alpha1.NodeGroup {
	t.Helper()
	ng, ok := c.NodeGroupByName(name)
	require.True(t, ok, "node group %s missing", name)
	return ng
}

func TestCreateCluster_ReachesActive(t *testing.T) {
	t.Parallel()
	plugin := stratustest.NewMockPlugin("fake", "1.0").SucceedAll()
	h := newHarness(t, plugin)
	ctx := stratustest.TestContext(t)

	created, err := h.orch.CreateCluster(ctx, stratustest.ClusterSpec("demo", "fake", "1.0", 2))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	cluster := stratustest.WaitForStatus(t, h.orch, created.ID, v1alpha1.StatusActive)
	h.waitIdle(t, created.ID)

	assert.Equal(t, 3, cluster.InstanceCount())
	assert.Len(t, groupNamed(t, cluster, "workers").Instances, 2)
	assert.Equal(t, []string{"demo-manager-1", "demo-workers-1", "demo-workers-2"}, h.substrate.Names())
	assert.Equal(t, []v1alpha1.ClusterStatus{
		v1alpha1.StatusValidating,
		v1alpha1.StatusInfraUpdating,
		v1alpha1.StatusConfiguring,
		v1alpha1.StatusStarting,
		v1alpha1.StatusActive,
	}, h.history(created.ID))

	for _, method := range []string{"Validate", "UpdateInfra", "ConfigureCluster", "StartCluster"} {
		plugin.AssertNumberOfCalls(t, method, 1)
	}
}

func TestCreateCluster_ConfigureSeesInstances(t *testing.T) {
	t.Parallel()
	plugin := stratustest.NewMockPlugin("fake", "1.0")
	var seen int
	plugin.On("ConfigureCluster", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		seen = args.Get(1).(*v1alpha1.Cluster).InstanceCount()
	}).Return(nil)
	plugin.SucceedAll()
	h := newHarness(t, plugin)
	ctx := stratustest.TestContext(t)

	created, err := h.orch.CreateCluster(ctx, stratustest.ClusterSpec("demo", "fake", "1.0", 1))
	require.NoError(t, err)
	stratustest.WaitForStatus(t, h.orch, created.ID, v1alpha1.StatusActive)
	h.waitIdle(t, created.ID)

	assert.Equal(t, 2, seen)
}

func TestCreateCluster_ValidationFailureKeepsRecord(t *testing.T) {
	t.Parallel()
	plugin := stratustest.NewMockPlugin("fake", "1.0").
		FailOn("Validate", errors.New("exactly one manager required")).
		SucceedAll()
	h := newHarness(t, plugin)
	ctx := stratustest.TestContext(t)

	_, err := h.orch.CreateCluster(ctx, stratustest.ClusterSpec("demo", "fake", "1.0", 2))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.NotEmpty(t, verr.ClusterID)
	assert.Contains(t, err.Error(), "exactly one manager required")

	cluster, err := h.orch.GetCluster(ctx, verr.ClusterID)
	require.NoError(t, err)
	assert.Equal(t, v1alpha1.StatusError, cluster.Status)
	assert.Equal(t, "exactly one manager required", cluster.StatusDescription)
	assert.False(t, h.orch.Dispatcher().Busy(verr.ClusterID))
	assert.Empty(t, h.substrate.Names())
	plugin.AssertNotCalled(t, "UpdateInfra", mock.Anything, mock.Anything)

	events := h.events.Events(verr.ClusterID)
	require.NotEmpty(t, events)
	assert.Equal(t, provisioning.EventValidationError, events[len(events)-1].Type)
}

func TestCreateCluster_UnknownPlugin(t *testing.T) {
	t.Parallel()
	h := newHarness(t, stratustest.NewMockPlugin("fake", "1.0").SucceedAll())
	ctx := stratustest.TestContext(t)

	_, err := h.orch.CreateCluster(ctx, stratustest.ClusterSpec("demo", "fake", "9.9", 1))
	require.ErrorIs(t, err, provisioning.ErrPluginNotFound)

	_, err = h.orch.CreateCluster(ctx, stratustest.ClusterSpec("demo", "missing", "1.0", 1))
	require.ErrorIs(t, err, provisioning.ErrPluginNotFound)

	clusters, err := h.orch.ListClusters(ctx)
	require.NoError(t, err)
	assert.Empty(t, clusters)
}

func TestCreateCluster_RejectsMalformedRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*v1alpha1.ClusterSpec)
	}{
		{"missing name", func(s *v1alpha1.ClusterSpec) { s.Name = "" }},
		{"no node groups", func(s *v1alpha1.ClusterSpec) { s.NodeGroups = nil }},
		{"unnamed node group", func(s *v1alpha1.ClusterSpec) { s.NodeGroups[1].Name = "" }},
		{"duplicate node group", func(s *v1alpha1.ClusterSpec) { s.NodeGroups[1].Name = "manager" }},
		{"negative count", func(s *v1alpha1.ClusterSpec) { s.NodeGroups[1].Count = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, stratustest.NewMockPlugin("fake", "1.0").SucceedAll())
			ctx := stratustest.TestContext(t)

			spec := stratustest.ClusterSpec("demo", "fake", "1.0", 1)
			tt.mutate(&spec)

			_, err := h.orch.CreateCluster(ctx, spec)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Empty(t, verr.ClusterID)

			clusters, err := h.orch.ListClusters(ctx)
			require.NoError(t, err)
			assert.Empty(t, clusters)
		})
	}
}

func TestCreateCluster_BackgroundFailureBecomesError(t *testing.T) {
	t.Parallel()
	plugin := stratustest.NewMockPlugin("fake", "1.0").
		FailOn("ConfigureCluster", errors.New("connection refused")).
		SucceedAll()
	h := newHarness(t, plugin)
	ctx := stratustest.TestContext(t)

	created, err := h.orch.CreateCluster(ctx, stratustest.ClusterSpec("demo", "fake", "1.0", 1))
	require.NoError(t, err)

	cluster := stratustest.WaitForStatus(t, h.orch, created.ID, v1alpha1.StatusError)
	assert.Contains(t, cluster.StatusDescription, "configure")
	assert.Contains(t, cluster.StatusDescription, "connection refused")
	h.waitIdle(t, created.ID)
	plugin.AssertNotCalled(t, "StartCluster", mock.Anything, mock.Anything)
}

func TestCreateCluster_PanicBecomesError(t *testing.T) {
	t.Parallel()
	plugin := stratustest.NewMockPlugin("fake", "1.0")
	plugin.On("StartCluster", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("engine exploded")
	}).Return(nil)
	plugin.SucceedAll()
	h := newHarness(t, plugin)
	ctx := stratustest.TestContext(t)

	created, err := h.orch.CreateCluster(ctx, stratustest.ClusterSpec("demo", "fake", "1.0", 1))
	require.NoError(t, err)

	cluster := stratustest.WaitForStatus(t, h.orch, created.ID, v1alpha1.StatusError)
	assert.Contains(t, cluster.StatusDescription, "panic: engine exploded")
}

func TestCreateCluster_PartialInstanceFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(t, stratustest.NewMockPlugin("fake", "1.0").SucceedAll())
	h.substrate.FailCreate("demo-workers-2", errors.New("quota exceeded"))
	ctx := stratustest.TestContext(t)

	created, err := h.orch.CreateCluster(ctx, stratustest.ClusterSpec("demo", "fake", "1.0", 2))
	require.NoError(t, err)

	cluster := stratustest.WaitForStatus(t, h.orch, created.ID, v1alpha1.StatusError)
	assert.Contains(t, cluster.StatusDescription, "quota exceeded")
	assert.Equal(t, 2, cluster.InstanceCount(), "created instances stay recorded for termination")
}

func TestCreateCluster_AppliesTemplates(t *testing.T) {
	t.Parallel()
	h := newHarness(t, stratustest.NewMockPlugin("fake", "1.0").SucceedAll())
	ctx := stratustest.TestContext(t)

	workerTmpl, err := h.orch.CreateNodeGroupTemplate(ctx, &v1alpha1.NodeGroupTemplate{
		Name:          "small-worker",
		PluginName:    "fake",
		PluginVersion: "1.0",
		FlavorID:      "cx22",
		NodeProcesses: []string{"worker"},
		NodeConfigs:   map[string]map[string]string{"worker": {"heap": "1g", "threads": "4"}},
	})
	require.NoError(t, err)

	clusterTmpl, err := h.orch.CreateClusterTemplate(ctx, &v1alpha1.ClusterTemplate{
		Name:           "standard",
		PluginName:     "fake",
		PluginVersion:  "1.0",
		DefaultImageID: "ubuntu-24.04",
		ClusterConfigs: map[string]map[string]string{"general": {"replication": "3"}},
		NodeGroups: []v1alpha1.NodeGroupSpec{
			{Name: "manager", Count: 1, FlavorID: "cpx31", NodeProcesses: []string{"manager"}},
			{Name: "workers", Count: 2, NodeGroupTemplateID: workerTmpl.ID, NodeConfigs: map[string]map[string]string{"worker": {"heap": "2g"}}},
		},
	})
	require.NoError(t, err)

	created, err := h.orch.CreateCluster(ctx, v1alpha1.ClusterSpec{
		Name:              "templated",
		ClusterTemplateID: clusterTmpl.ID,
		ClusterConfigs:    map[string]map[string]string{"general": {"mode": "fast"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "fake", created.PluginName)
	assert.Equal(t, "1.0", created.PluginVersion)
	assert.Equal(t, "ubuntu-24.04", created.DefaultImageID)
	assert.Equal(t, map[string]string{"replication": "3", "mode": "fast"}, created.ClusterConfigs["general"])

	workers := groupNamed(t, created, "workers")
	assert.Equal(t, "cx22", workers.FlavorID)
	assert.Equal(t, []string{"worker"}, workers.NodeProcesses)
	assert.Equal(t, map[string]string{"heap": "2g", "threads": "4"}, workers.NodeConfigs["worker"])

	stratustest.WaitForStatus(t, h.orch, created.ID, v1alpha1.StatusActive)
}

func TestCreateCluster_MissingTemplate(t *testing.T) {
	t.Parallel()
	h := newHarness(t, stratustest.NewMockPlugin("fake", "1.0").SucceedAll())
	ctx := stratustest.TestContext(t)

	_, err := h.orch.CreateCluster(ctx, v1alpha1.ClusterSpec{Name: "x", ClusterTemplateID: "nope"})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestScaleCluster_ResizeAndAdd(t *testing.T) {
	t.Parallel()
	plugin := stratustest.NewMockPlugin("fake", "1.0")

	var (
		deltas    scaling.Deltas
		persisted bool
		added     []v1alpha1.Instance
	)
	h := newHarness(t, plugin)
	plugin.On("ValidateScaling", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		deltas = args.Get(2).(scaling.Deltas)
		c, err := h.store.GetCluster(context.Background(), args.Get(1).(*v1alpha1.Cluster).ID)
		if err == nil {
			ng, ok := c.NodeGroupByName("C")
			persisted = ok && ng.Count == 0 && len(ng.Instances) == 0
		}
	}).Return(nil)
	plugin.On("ScaleCluster", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		added = args.Get(2).([]v1alpha1.Instance)
	}).Return(nil)
	plugin.SucceedAll()

	seeded := h.seed(t, stratustest.NewClusterBuilder().WithName("demo").
		WithNodeGroup("A", "cpx21", 2, "worker").WithInstances("A", 2).
		WithNodeGroup("B", "cpx21", 1, "manager").WithInstances("B", 1))
	ctx := stratustest.TestContext(t)

	_, err := h.orch.ScaleCluster(ctx, seeded.ID, v1alpha1.ScalingRequest{
		ResizeNodeGroups: []v1alpha1.ResizeNodeGroup{{Name: "A", Count: 4}},
		AddNodeGroups:    []v1alpha1.NodeGroupSpec{{Name: "C", Count: 3, FlavorID: "cpx11", NodeProcesses: []string{"worker"}}},
	})
	require.NoError(t, err)

	cluster := stratustest.WaitForStatus(t, h.orch, seeded.ID, v1alpha1.StatusActive)
	h.waitIdle(t, seeded.ID)
	cluster, err = h.orch.GetCluster(ctx, seeded.ID)
	require.NoError(t, err)

	a := groupNamed(t, cluster, "A")
	c := groupNamed(t, cluster, "C")
	assert.Equal(t, scaling.Deltas{a.ID: 2, c.ID: 3}, deltas)
	assert.True(t, persisted, "added group must exist empty before validation")

	assert.Equal(t, 4, a.Count)
	assert.Len(t, a.Instances, 4)
	assert.Equal(t, 3, c.Count)
	assert.Len(t, c.Instances, 3)
	assert.Len(t, groupNamed(t, cluster, "B").Instances, 1)
	assert.Len(t, added, 5)

	assert.Equal(t, []v1alpha1.ClusterStatus{
		v1alpha1.StatusValidating,
		v1alpha1.StatusScaling,
		v1alpha1.StatusConfiguring,
		v1alpha1.StatusActive,
	}, h.history(seeded.ID))
}

func TestScaleCluster_ShrinkDecommissionsNewestFirst(t *testing.T) {
	t.Parallel()
	mp := stratustest.NewMockPlugin("fake", "1.0")
	var drained []string
	mp.On("DecommissionNodes", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		for _, inst := range args.Get(2).([]v1alpha1.Instance) {
			drained = append(drained, inst.Name)
		}
	}).Return(nil)
	mp.SucceedAll()
	h := newHarness(t, stratustest.MockDecommissioningPlugin{MockPlugin: mp})

	seeded := h.seed(t, stratustest.NewClusterBuilder().WithName("demo").
		WithNodeGroup("manager", "cpx21", 1, "manager").WithInstances("manager", 1).
		WithNodeGroup("workers", "cpx21", 3, "worker").WithInstances("workers", 3))
	ctx := stratustest.TestContext(t)

	_, err := h.orch.ScaleCluster(ctx, seeded.ID, v1alpha1.ScalingRequest{
		ResizeNodeGroups: []v1alpha1.ResizeNodeGroup{{Name: "workers", Count: 1}},
	})
	require.NoError(t, err)

	stratustest.WaitForStatus(t, h.orch, seeded.ID, v1alpha1.StatusActive)
	h.waitIdle(t, seeded.ID)
	cluster, err := h.orch.GetCluster(ctx, seeded.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"demo-workers-3", "demo-workers-2"}, drained)
	workers := groupNamed(t, cluster, "workers")
	assert.Equal(t, 1, workers.Count)
	require.Len(t, workers.Instances, 1)
	assert.Equal(t, "demo-workers-1", workers.Instances[0].Name)
	assert.Equal(t, []string{"demo-manager-1", "demo-workers-1"}, h.substrate.Names())

	mp.AssertNotCalled(t, "ScaleCluster", mock.Anything, mock.Anything, mock.Anything)
	assert.NotContains(t, h.history(seeded.ID), v1alpha1.StatusConfiguring)
}

func TestScaleCluster_RemovesEmptiedGroup(t *testing.T) {
	t.Parallel()
	h := newHarness(t, stratustest.NewMockPlugin("fake", "1.0").SucceedAll())
	seeded := h.seed(t, stratustest.NewClusterBuilder().WithName("demo").
		WithNodeGroup("manager", "cpx21", 1, "manager").WithInstances("manager", 1).
		WithNodeGroup("batch", "cpx21", 2, "worker").WithInstances("batch", 2))
	ctx := stratustest.TestContext(t)

	_, err := h.orch.ScaleCluster(ctx, seeded.ID, v1alpha1.ScalingRequest{
		ResizeNodeGroups: []v1alpha1.ResizeNodeGroup{{Name: "batch", Count: 0}},
	})
	require.NoError(t, err)

	stratustest.WaitForStatus(t, h.orch, seeded.ID, v1alpha1.StatusActive)
	h.waitIdle(t, seeded.ID)
	cluster, err := h.orch.GetCluster(ctx, seeded.ID)
	require.NoError(t, err)

	_, ok := cluster.NodeGroupByName("batch")
	assert.False(t, ok)
	assert.Equal(t, []string{"demo-manager-1"}, h.substrate.Names())
}

func TestScaleCluster_ValidationFailureCompensates(t *testing.T) {
	t.Parallel()
	plugin := stratustest.NewMockPlugin("fake", "1.0").
		FailOn("ValidateScaling", errors.New("not enough managers")).
		SucceedAll()
	h := newHarness(t, plugin)

	seeded := h.seed(t, stratustest.NewClusterBuilder().WithName("demo").
		WithNodeGroup("A", "cpx21", 2, "worker").WithInstances("A", 2).
		WithNodeGroup("spare", "cpx21", 0, "worker"))
	spare := groupNamed(t, seeded, "spare")
	ctx := stratustest.TestContext(t)

	_, err := h.orch.ScaleCluster(ctx, seeded.ID, v1alpha1.ScalingRequest{
		ResizeNodeGroups: []v1alpha1.ResizeNodeGroup{{Name: "A", Count: 5}},
		AddNodeGroups: []v1alpha1.NodeGroupSpec{
			{Name: "C", Count: 3, FlavorID: "cpx11", NodeProcesses: []string{"worker"}},
			{Name: "spare", Count: 1},
		},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, seeded.ID, verr.ClusterID)

	cluster, err := h.orch.GetCluster(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, v1alpha1.StatusActive, cluster.Status)
	require.Len(t, cluster.NodeGroups, 2)
	assert.Equal(t, "A", cluster.NodeGroups[0].Name)
	assert.Equal(t, 2, cluster.NodeGroups[0].Count)
	assert.Equal(t, spare.ID, cluster.NodeGroups[1].ID, "pre-existing empty group is kept")
	assert.False(t, h.orch.Dispatcher().Busy(seeded.ID))
	assert.Equal(t, []v1alpha1.ClusterStatus{v1alpha1.StatusValidating, v1alpha1.StatusActive}, h.history(seeded.ID))
}

func TestScaleCluster_RequestErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		request        v1alpha1.ScalingRequest
		wantErr        error
		wantValidation bool
	}{
		{
			name:    "unknown group",
			request: v1alpha1.ScalingRequest{ResizeNodeGroups: []v1alpha1.ResizeNodeGroup{{Name: "Z", Count: 1}}},
			wantErr: store.ErrNotFound,
		},
		{
			name:           "duplicate group",
			request:        v1alpha1.ScalingRequest{ResizeNodeGroups: []v1alpha1.ResizeNodeGroup{{Name: "A", Count: 1}, {Name: "A", Count: 2}}},
			wantErr:        scaling.ErrDuplicateNodeGroup,
			wantValidation: true,
		},
		{
			name:           "add collides with populated group",
			request:        v1alpha1.ScalingRequest{AddNodeGroups: []v1alpha1.NodeGroupSpec{{Name: "A", Count: 1}}},
			wantErr:        scaling.ErrNodeGroupExists,
			wantValidation: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, stratustest.NewMockPlugin("fake", "1.0").SucceedAll())
			seeded := h.seed(t, stratustest.NewClusterBuilder().
				WithNodeGroup("A", "cpx21", 2, "worker").WithInstances("A", 2))
			ctx := stratustest.TestContext(t)

			_, err := h.orch.ScaleCluster(ctx, seeded.ID, tt.request)
			require.ErrorIs(t, err, tt.wantErr)
			var verr *ValidationError
			assert.Equal(t, tt.wantValidation, errors.As(err, &verr))

			cluster, err := h.orch.GetCluster(ctx, seeded.ID)
			require.NoError(t, err)
			assert.Equal(t, v1alpha1.StatusActive, cluster.Status)
			assert.Len(t, cluster.NodeGroups, 1)
		})
	}
}

func TestScaleCluster_RequiresActive(t *testing.T) {
	t.Parallel()
	h := newHarness(t, stratustest.NewMockPlugin("fake", "1.0").SucceedAll())
	cluster, err := h.store.CreateCluster(context.Background(), stratustest.NewClusterBuilder().
		WithStatus(v1alpha1.StatusError).
		WithNodeGroup("A", "cpx21", 1, "worker").Build())
	require.NoError(t, err)
	ctx := stratustest.TestContext(t)

	_, err = h.orch.ScaleCluster(ctx, cluster.ID, v1alpha1.ScalingRequest{
		ResizeNodeGroups: []v1alpha1.ResizeNodeGroup{{Name: "A", Count: 2}},
	})
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = h.orch.ScaleCluster(ctx, "missing", v1alpha1.ScalingRequest{})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestOperations_RejectedWhileBusy(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	plugin := stratustest.NewMockPlugin("fake", "1.0")
	plugin.On("StartCluster", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		<-release
	}).Return(nil)
	plugin.SucceedAll()
	h := newHarness(t, plugin)
	ctx := stratustest.TestContext(t)

	created, err := h.orch.CreateCluster(ctx, stratustest.ClusterSpec("demo", "fake", "1.0", 1))
	require.NoError(t, err)
	stratustest.WaitForStatus(t, h.orch, created.ID, v1alpha1.StatusStarting)

	_, err = h.orch.ScaleCluster(ctx, created.ID, v1alpha1.ScalingRequest{
		ResizeNodeGroups: []v1alpha1.ResizeNodeGroup{{Name: "workers", Count: 3}},
	})
	require.ErrorIs(t, err, ErrClusterBusy)
	require.ErrorIs(t, h.orch.TerminateCluster(ctx, created.ID), ErrClusterBusy)

	close(release)
	stratustest.WaitForStatus(t, h.orch, created.ID, v1alpha1.StatusActive)
	h.waitIdle(t, created.ID)

	_, err = h.orch.ScaleCluster(ctx, created.ID, v1alpha1.ScalingRequest{
		ResizeNodeGroups: []v1alpha1.ResizeNodeGroup{{Name: "workers", Count: 2}},
	})
	require.NoError(t, err)
}

func TestTerminateCluster(t *testing.T) {
	t.Parallel()
	plugin := stratustest.NewMockPlugin("fake", "1.0").SucceedAll()
	h := newHarness(t, plugin)
	seeded := h.seed(t, stratustest.NewClusterBuilder().WithName("demo").
		WithNodeGroup("workers", "cpx21", 2, "worker").WithInstances("workers", 2))
	ctx := stratustest.TestContext(t)

	require.NoError(t, h.orch.TerminateCluster(ctx, seeded.ID))

	_, err := h.orch.GetCluster(ctx, seeded.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, h.substrate.Names())
	plugin.AssertNumberOfCalls(t, "OnTerminateCluster", 1)
	assert.Equal(t, []v1alpha1.ClusterStatus{v1alpha1.StatusDeleting}, h.history(seeded.ID))
}

func TestTerminateCluster_RetryAfterShutdownFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(t, stratustest.NewMockPlugin("fake", "1.0").SucceedAll())
	seeded := h.seed(t, stratustest.NewClusterBuilder().WithName("demo").
		WithNodeGroup("workers", "cpx21", 2, "worker").WithInstances("workers", 2))
	h.substrate.FailDelete("demo-workers-2", errors.New("api unavailable"))
	ctx := stratustest.TestContext(t)

	err := h.orch.TerminateCluster(ctx, seeded.ID)
	var phaseErr *provisioning.PhaseError
	require.ErrorAs(t, err, &phaseErr)
	assert.Equal(t, "shutdown", phaseErr.Phase)

	cluster, err := h.orch.GetCluster(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, v1alpha1.StatusDeleting, cluster.Status)
	assert.Equal(t, 1, cluster.InstanceCount())

	h.substrate.FailDelete("demo-workers-2", nil)
	require.NoError(t, h.orch.TerminateCluster(ctx, seeded.ID))

	_, err = h.orch.GetCluster(ctx, seeded.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, h.substrate.Names())
}

func TestTerminateCluster_EngineFailureKeepsRecord(t *testing.T) {
	t.Parallel()
	plugin := stratustest.NewMockPlugin("fake", "1.0")
	plugin.On("OnTerminateCluster", mock.Anything, mock.Anything).Return(errors.New("cleanup hook failed")).Once()
	plugin.SucceedAll()
	h := newHarness(t, plugin)
	seeded := h.seed(t, stratustest.NewClusterBuilder().WithName("demo").
		WithNodeGroup("workers", "cpx21", 1, "worker").WithInstances("workers", 1))
	ctx := stratustest.TestContext(t)

	err := h.orch.TerminateCluster(ctx, seeded.ID)
	var phaseErr *provisioning.PhaseError
	require.ErrorAs(t, err, &phaseErr)
	assert.Equal(t, "terminate", phaseErr.Phase)
	assert.ErrorContains(t, err, "cleanup hook failed")

	cluster, err := h.orch.GetCluster(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, v1alpha1.StatusDeleting, cluster.Status)
	assert.Equal(t, 1, cluster.InstanceCount())
	assert.Equal(t, []string{"demo-workers-1"}, h.substrate.Names())

	require.NoError(t, h.orch.TerminateCluster(ctx, seeded.ID))

	_, err = h.orch.GetCluster(ctx, seeded.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, h.substrate.Names())
	plugin.AssertNumberOfCalls(t, "OnTerminateCluster", 2)
}

func TestTerminateCluster_ErrorStatus(t *testing.T) {
	t.Parallel()
	plugin := stratustest.NewMockPlugin("fake", "1.0").
		FailOn("Validate", errors.New("bad topology")).
		SucceedAll()
	h := newHarness(t, plugin)
	ctx := stratustest.TestContext(t)

	_, err := h.orch.CreateCluster(ctx, stratustest.ClusterSpec("demo", "fake", "1.0", 1))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	require.NoError(t, h.orch.TerminateCluster(ctx, verr.ClusterID))
	require.ErrorIs(t, h.orch.TerminateCluster(ctx, verr.ClusterID), store.ErrNotFound)
}

func TestTemplates(t *testing.T) {
	t.Parallel()
	h := newHarness(t, stratustest.NewMockPlugin("fake", "1.0").SucceedAll())
	ctx := stratustest.TestContext(t)

	_, err := h.orch.CreateNodeGroupTemplate(ctx, &v1alpha1.NodeGroupTemplate{
		Name: "bad", PluginName: "fake", PluginVersion: "1.0", FlavorID: "cx22", NodeProcesses: []string{"gpu"},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = h.orch.CreateNodeGroupTemplate(ctx, &v1alpha1.NodeGroupTemplate{
		Name: "other", PluginName: "other", PluginVersion: "1.0", FlavorID: "cx22",
	})
	require.ErrorIs(t, err, provisioning.ErrPluginNotFound)

	_, err = h.orch.CreateClusterTemplate(ctx, &v1alpha1.ClusterTemplate{
		Name: "bad", PluginName: "fake", PluginVersion: "1.0",
		NodeGroups: []v1alpha1.NodeGroupSpec{{Name: "x", NodeProcesses: []string{"gpu"}}},
	})
	require.ErrorAs(t, err, &verr)

	tmpl, err := h.orch.CreateClusterTemplate(ctx, &v1alpha1.ClusterTemplate{
		Name: "ok", PluginName: "fake", PluginVersion: "1.0",
	})
	require.NoError(t, err)

	list, err := h.orch.ListClusterTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, h.orch.DeleteClusterTemplate(ctx, tmpl.ID))
	require.ErrorIs(t, h.orch.DeleteClusterTemplate(ctx, tmpl.ID), store.ErrNotFound)
	require.ErrorIs(t, h.orch.DeleteNodeGroupTemplate(ctx, "missing"), store.ErrNotFound)
}

func TestPlugins(t *testing.T) {
	t.Parallel()
	h := newHarness(t, stratustest.NewMockPlugin("fake", "1.0", "2.0").SucceedAll())
	ctx := stratustest.TestContext(t)

	plugins, err := h.orch.ListPlugins(ctx)
	require.NoError(t, err)
	require.Len(t, plugins, 1)
	assert.Equal(t, []string{"1.0", "2.0"}, plugins[0].Versions)

	info, err := h.orch.GetPlugin(ctx, "fake", "2.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"manager", "worker"}, info.NodeProcesses)
	assert.Empty(t, info.Configs)
	assert.Equal(t, []string{"fake", "2.0"}, info.RequiredImageTags)

	_, err = h.orch.GetPlugin(ctx, "fake", "3.0")
	require.ErrorIs(t, err, provisioning.ErrPluginNotFound)
}

func TestImages(t *testing.T) {
	t.Parallel()

	t.Run("without registry", func(t *testing.T) {
		t.Parallel()
		ctx := stratustest.TestContext(t)
		h := newHarness(t, stratustest.NewMockPlugin("fake", "1.0").SucceedAll())
		_, err := h.orch.ListImages(ctx, nil)
		require.ErrorIs(t, err, ErrImagesUnsupported)
		require.ErrorIs(t, h.orch.UnregisterImage(ctx, "1"), ErrImagesUnsupported)
	})

	t.Run("delegates", func(t *testing.T) {
		t.Parallel()
		ctx := stratustest.TestContext(t)
		images := &stratustest.MockImageRegistry{}
		img := &v1alpha1.Image{ID: "42", Name: "debian-12", Username: "root", Registered: true, Tags: []string{"fake", "1.0"}}
		images.On("RegisterImage", mock.Anything, "42", "root", "").Return(img, nil)
		images.On("TagImage", mock.Anything, "42", []string{"fake", "1.0"}).Return(img, nil)
		images.On("ListImages", mock.Anything, []string{"fake"}).Return([]v1alpha1.Image{*img}, nil)

		h := newHarness(t, stratustest.NewMockPlugin("fake", "1.0").SucceedAll(), WithImageRegistry(images))

		got, err := h.orch.RegisterImage(ctx, "42", "root", "")
		require.NoError(t, err)
		assert.True(t, got.Registered)

		_, err = h.orch.TagImage(ctx, "42", []string{"fake", "1.0"})
		require.NoError(t, err)

		list, err := h.orch.ListImages(ctx, []string{"fake"})
		require.NoError(t, err)
		assert.Len(t, list, 1)
		images.AssertExpectations(t)
	})

	t.Run("by name", func(t *testing.T) {
		t.Parallel()
		ctx := stratustest.TestContext(t)
		images := &stratustest.MockImageRegistry{}
		img := &v1alpha1.Image{ID: "42", Name: "debian-12"}
		images.On("FindImage", mock.Anything, "debian-12").Return(img, nil)
		images.On("FindImage", mock.Anything, "nope").Return(nil, fmt.Errorf("image nope: %w", platform.ErrNotFound))

		h := newHarness(t, stratustest.NewMockPlugin("fake", "1.0").SucceedAll(), WithImageRegistry(images))

		got, err := h.orch.FindImage(ctx, "debian-12")
		require.NoError(t, err)
		assert.Equal(t, "42", got.ID)

		_, err = h.orch.FindImage(ctx, "nope")
		require.ErrorIs(t, err, platform.ErrNotFound)
		images.AssertExpectations(t)

		_, err = newHarness(t, stratustest.NewMockPlugin("fake", "1.0")).orch.FindImage(ctx, "debian-12")
		require.ErrorIs(t, err, ErrImagesUnsupported)
	})
}

func TestConvertClusterTemplate(t *testing.T) {
	t.Parallel()
	config := []byte("nodeGroups: []")

	t.Run("stores converted template", func(t *testing.T) {
		t.Parallel()
		ctx := stratustest.TestContext(t)
		plugin := stratustest.MockConvertingPlugin{MockPlugin: stratustest.NewMockPlugin("fake", "1.0")}
		plugin.On("ConvertConfig", mock.Anything, "1.0", config).Return(&v1alpha1.ClusterTemplate{
			Description: "converted",
			NodeGroups:  []v1alpha1.NodeGroupSpec{{Name: "workers", Count: 2, FlavorID: "cpx21", NodeProcesses: []string{"worker"}}},
		}, nil).Once()
		h := newHarness(t, plugin)

		tmpl, err := h.orch.ConvertClusterTemplate(ctx, "fake", "1.0", "imported", config)
		require.NoError(t, err)
		assert.NotEmpty(t, tmpl.ID)
		assert.Equal(t, "imported", tmpl.Name)
		assert.Equal(t, "fake", tmpl.PluginName)
		assert.Equal(t, "1.0", tmpl.PluginVersion)

		stored, err := h.orch.GetClusterTemplate(ctx, tmpl.ID)
		require.NoError(t, err)
		assert.Equal(t, "converted", stored.Description)
		require.Len(t, stored.NodeGroups, 1)
		assert.Equal(t, 2, stored.NodeGroups[0].Count)
		plugin.AssertExpectations(t)
	})

	t.Run("converted groups are checked", func(t *testing.T) {
		t.Parallel()
		ctx := stratustest.TestContext(t)
		plugin := stratustest.MockConvertingPlugin{MockPlugin: stratustest.NewMockPlugin("fake", "1.0")}
		plugin.On("ConvertConfig", mock.Anything, "1.0", config).Return(&v1alpha1.ClusterTemplate{
			NodeGroups: []v1alpha1.NodeGroupSpec{{Name: "gpus", NodeProcesses: []string{"gpu"}}},
		}, nil)
		h := newHarness(t, plugin)

		_, err := h.orch.ConvertClusterTemplate(ctx, "fake", "1.0", "imported", config)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		list, err := h.orch.ListClusterTemplates(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("engine rejects file", func(t *testing.T) {
		t.Parallel()
		ctx := stratustest.TestContext(t)
		plugin := stratustest.MockConvertingPlugin{MockPlugin: stratustest.NewMockPlugin("fake", "1.0")}
		plugin.On("ConvertConfig", mock.Anything, "1.0", config).Return(nil, errors.New("line 1: bad indent"))
		h := newHarness(t, plugin)

		_, err := h.orch.ConvertClusterTemplate(ctx, "fake", "1.0", "imported", config)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.ErrorContains(t, err, "bad indent")
	})

	t.Run("request errors", func(t *testing.T) {
		t.Parallel()
		ctx := stratustest.TestContext(t)
		h := newHarness(t, stratustest.NewMockPlugin("fake", "1.0"))

		_, err := h.orch.ConvertClusterTemplate(ctx, "fake", "1.0", "imported", config)
		require.ErrorIs(t, err, ErrConversionUnsupported)

		_, err = h.orch.ConvertClusterTemplate(ctx, "fake", "9.9", "imported", config)
		require.ErrorIs(t, err, provisioning.ErrPluginNotFound)

		_, err = h.orch.ConvertClusterTemplate(ctx, "fake", "1.0", "", config)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestValidationError(t *testing.T) {
	t.Parallel()
	cause := errors.New("boom")

	err := &ValidationError{ClusterID: "c1", Err: cause}
	assert.Equal(t, "validation of cluster c1 failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "validation failed: boom", (&ValidationError{Err: cause}).Error())
	assert.ErrorIs(t, ErrClusterBusy, dispatch.ErrBusy)
}
