package instances

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/platform"
	"github.com/imamik/stratus/internal/provisioning"
	"github.com/imamik/stratus/internal/store"
	stratustest "github.com/imamik/stratus/internal/testing"
	"github.com/imamik/stratus/internal/util/labels"
)

func setup(t *testing.T, b *stratustest.ClusterBuilder) (*Manager, *stratustest.FakeSubstrate, store.Store, *v1alpha1.Cluster, *provisioning.EventLog) {
	t.Helper()
	st := store.NewMemory()
	created, err := st.CreateCluster(context.Background(), b.Build())
	require.NoError(t, err)

	sub := stratustest.NewFakeSubstrate()
	events := provisioning.NewEventLog(0)
	return NewManager(sub, st, WithObserver(events), WithSSHKeys("ssh-ed25519 AAAA")), sub, st, created, events
}

func reload(t *testing.T, st store.Store, id string) *v1alpha1.Cluster {
	t.Helper()
	c, err := st.GetCluster(context.Background(), id)
	require.NoError(t, err)
	return c
}

func TestMissing(t *testing.T) {
	t.Parallel()
	c := stratustest.NewClusterBuilder().
		WithNodeGroup("manager", "cpx21", 1, "manager").
		WithNodeGroup("workers", "cpx21", 3, "worker").
		WithInstances("workers", 1).
		WithNodeGroup("idle", "cpx21", 0, "worker").
		Build()

	missing := Missing(c)
	assert.Equal(t, map[string]int{
		c.NodeGroups[0].ID: 1,
		c.NodeGroups[1].ID: 2,
	}, missing)
}

func TestCreateInstances(t *testing.T) {
	t.Parallel()
	m, sub, st, c, events := setup(t, stratustest.NewClusterBuilder().
		WithName("demo").
		WithLabels(map[string]string{"team": "data"}).
		WithNodeGroup("manager", "cpx21", 1, "manager").
		WithNodeGroup("workers", "cpx31", 2, "worker"))

	created, err := m.CreateInstances(context.Background(), c, Missing(c))
	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.Equal(t, "demo-manager-1", created[0].Name)
	assert.Equal(t, []string{"demo-manager-1", "demo-workers-1", "demo-workers-2"}, sub.Names())

	after := reload(t, st, c.ID)
	require.Len(t, after.NodeGroups[0].Instances, 1)
	require.Len(t, after.NodeGroups[1].Instances, 2)
	inst := after.NodeGroups[0].Instances[0]
	assert.NotEmpty(t, inst.ID)
	assert.NotEmpty(t, inst.ServerID)
	assert.NotEmpty(t, inst.ManagementIP)

	srv, err := sub.GetServer(context.Background(), "demo-workers-2")
	require.NoError(t, err)
	assert.Equal(t, c.ID, srv.Labels[labels.KeyCluster])
	assert.Equal(t, c.NodeGroups[1].ID, srv.Labels[labels.KeyNodeGroup])
	assert.Equal(t, "data", srv.Labels["team"])

	assert.Len(t, events.Events(c.ID), 6)
}

func TestCreateInstances_ContinuesNumbering(t *testing.T) {
	t.Parallel()
	m, sub, _, c, _ := setup(t, stratustest.NewClusterBuilder().
		WithName("demo").
		WithNodeGroup("workers", "cpx21", 4, "worker").
		WithInstances("workers", 2))

	created, err := m.CreateInstances(context.Background(), c, Missing(c))
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, []string{"demo-workers-3", "demo-workers-4"}, sub.Names())
}

func TestCreateInstances_NamePrefix(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	c, err := st.CreateCluster(context.Background(), stratustest.NewClusterBuilder().
		WithName("demo").
		WithNodeGroup("workers", "cpx21", 2, "worker").
		Build())
	require.NoError(t, err)

	sub := stratustest.NewFakeSubstrate()
	m := NewManager(sub, st, WithNamePrefix("stratus-"))

	_, err = m.CreateInstances(context.Background(), c, map[string]int{c.NodeGroups[0].ID: 1})
	require.NoError(t, err)

	c = reload(t, st, c.ID)
	_, err = m.CreateInstances(context.Background(), c, map[string]int{c.NodeGroups[0].ID: 1})
	require.NoError(t, err)

	assert.Equal(t, []string{"stratus-demo-workers-1", "stratus-demo-workers-2"}, sub.Names())
}

func TestCreateInstances_PartialFailureKeepsRecords(t *testing.T) {
	t.Parallel()
	m, sub, st, c, _ := setup(t, stratustest.NewClusterBuilder().
		WithName("demo").
		WithNodeGroup("workers", "cpx21", 3, "worker"))
	sub.FailCreate("demo-workers-2", errors.New("quota exceeded"))

	created, err := m.CreateInstances(context.Background(), c, Missing(c))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "demo-workers-2: quota exceeded")
	assert.Len(t, created, 2)

	after := reload(t, st, c.ID)
	assert.Len(t, after.NodeGroups[0].Instances, 2)
}

func TestCreateInstances_AdoptsExistingServer(t *testing.T) {
	t.Parallel()
	m, sub, st, c, _ := setup(t, stratustest.NewClusterBuilder().
		WithName("demo").
		WithNodeGroup("workers", "cpx21", 1, "worker"))
	sub.Put(platform.Server{ID: "77", Name: "demo-workers-1", PublicIP: "198.51.100.7"})

	_, err := m.CreateInstances(context.Background(), c, Missing(c))
	require.NoError(t, err)
	assert.Empty(t, sub.Created)

	after := reload(t, st, c.ID)
	require.Len(t, after.NodeGroups[0].Instances, 1)
	assert.Equal(t, "77", after.NodeGroups[0].Instances[0].ServerID)
}

func TestCreateInstances_NothingToDo(t *testing.T) {
	t.Parallel()
	m, sub, _, c, _ := setup(t, stratustest.NewClusterBuilder().WithNodeGroup("workers", "cpx21", 0))

	created, err := m.CreateInstances(context.Background(), c, nil)
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Empty(t, sub.Created)
}

func TestSelectForRemoval(t *testing.T) {
	t.Parallel()
	c := stratustest.NewClusterBuilder().
		WithName("demo").
		WithNodeGroup("workers", "cpx21", 3, "worker").
		WithInstances("workers", 3).
		Build()
	ng := c.NodeGroups[0]

	tests := []struct {
		name string
		n    int
		want []string
	}{
		{name: "none", n: 0, want: nil},
		{name: "newest first", n: 2, want: []string{"demo-workers-3", "demo-workers-2"}},
		{name: "clamped", n: 10, want: []string{"demo-workers-3", "demo-workers-2", "demo-workers-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got []string
			for _, inst := range SelectForRemoval(ng, tt.n) {
				got = append(got, inst.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectForRemoval_IndexOrdersWithinBatch(t *testing.T) {
	t.Parallel()
	now := time.Now()
	ng := v1alpha1.NodeGroup{Name: "workers", Instances: []v1alpha1.Instance{
		{Name: "demo-workers-10", CreatedAt: now},
		{Name: "demo-workers-1", CreatedAt: now.Add(-time.Hour)},
		{Name: "demo-workers-9", CreatedAt: now.Add(time.Millisecond)},
		{Name: "imported", CreatedAt: now.Add(time.Hour)},
	}}

	var got []string
	for _, inst := range SelectForRemoval(ng, 4) {
		got = append(got, inst.Name)
	}
	assert.Equal(t, []string{"demo-workers-10", "demo-workers-9", "demo-workers-1", "imported"}, got)
}

func TestRemoveInstances(t *testing.T) {
	t.Parallel()
	m, sub, st, c, _ := setup(t, stratustest.NewClusterBuilder().
		WithName("demo").
		WithNodeGroup("workers", "cpx21", 2, "worker"))

	_, err := m.CreateInstances(context.Background(), c, Missing(c))
	require.NoError(t, err)
	c = reload(t, st, c.ID)

	victims := SelectForRemoval(c.NodeGroups[0], 1)
	require.NoError(t, m.RemoveInstances(context.Background(), c.ID, victims))

	assert.Equal(t, []string{"demo-workers-1"}, sub.Names())
	after := reload(t, st, c.ID)
	require.Len(t, after.NodeGroups[0].Instances, 1)
	assert.Equal(t, "demo-workers-1", after.NodeGroups[0].Instances[0].Name)

	// Removing the same instance again is a no-op.
	require.NoError(t, m.RemoveInstances(context.Background(), c.ID, victims))
}

func TestShutdown_RetryAfterFailure(t *testing.T) {
	t.Parallel()
	m, sub, st, c, _ := setup(t, stratustest.NewClusterBuilder().
		WithName("demo").
		WithNodeGroup("manager", "cpx21", 1, "manager").
		WithNodeGroup("workers", "cpx21", 2, "worker"))

	_, err := m.CreateInstances(context.Background(), c, Missing(c))
	require.NoError(t, err)
	c = reload(t, st, c.ID)

	sub.FailDelete("demo-workers-2", errors.New("server locked"))
	err = m.Shutdown(context.Background(), c)
	require.Error(t, err)

	c = reload(t, st, c.ID)
	assert.Equal(t, 1, c.InstanceCount())
	assert.Equal(t, []string{"demo-workers-2"}, sub.Names())

	sub.FailDelete("demo-workers-2", nil)
	require.NoError(t, m.Shutdown(context.Background(), c))

	c = reload(t, st, c.ID)
	assert.Zero(t, c.InstanceCount())
	assert.Empty(t, sub.Names())
}

func TestShutdown_DeletesUnrecordedServers(t *testing.T) {
	t.Parallel()
	m, sub, _, c, _ := setup(t, stratustest.NewClusterBuilder().
		WithName("demo").
		WithNodeGroup("workers", "cpx21", 1, "worker"))

	sub.Put(platform.Server{ID: "9", Name: "demo-workers-9", Labels: map[string]string{labels.KeyCluster: c.ID}})
	sub.Put(platform.Server{ID: "10", Name: "other", Labels: map[string]string{labels.KeyCluster: "someone-else"}})

	orphans, err := m.Orphans(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, orphans, 1)

	require.NoError(t, m.Shutdown(context.Background(), c))
	assert.Equal(t, []string{"other"}, sub.Names())
}

func TestCleanEmptyGroups(t *testing.T) {
	t.Parallel()
	m, _, st, c, _ := setup(t, stratustest.NewClusterBuilder().
		WithNodeGroup("manager", "cpx21", 1, "manager").
		WithInstances("manager", 1).
		WithNodeGroup("drained", "cpx21", 0, "worker").
		WithNodeGroup("pending", "cpx21", 2, "worker"))

	removed, err := m.CleanEmptyGroups(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, []string{"drained"}, removed)

	after := reload(t, st, c.ID)
	var names []string
	for _, ng := range after.NodeGroups {
		names = append(names, ng.Name)
	}
	assert.Equal(t, []string{"manager", "pending"}, names)
}
