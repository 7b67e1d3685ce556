package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/imamik/stratus/api/v1alpha1"
)

// Documents implements Store on top of a Backend.
type Documents struct {
	backend Backend
	now     func() time.Time

	// mu serializes read-modify-write cycles. Lifecycle operations on one
	// cluster are already serialized by the dispatcher; this guards the
	// remaining readers and the template collections.
	mu sync.Mutex
}

// New returns a Store writing through backend.
func New(backend Backend) *Documents {
	return &Documents{backend: backend, now: time.Now}
}

// Close releases the backend.
func (d *Documents) Close() error {
	return d.backend.Close()
}

func (d *Documents) GetCluster(ctx context.Context, id string) (*v1alpha1.Cluster, error) {
	var c v1alpha1.Cluster
	if err := d.load(ctx, KindCluster, id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (d *Documents) ListClusters(ctx context.Context) ([]*v1alpha1.Cluster, error) {
	docs, err := d.backend.List(ctx, KindCluster)
	if err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}
	out := make([]*v1alpha1.Cluster, 0, len(docs))
	for _, doc := range docs {
		var c v1alpha1.Cluster
		if err := json.Unmarshal(doc, &c); err != nil {
			return nil, fmt.Errorf("failed to decode cluster: %w", err)
		}
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// CreateCluster persists a new cluster. Missing cluster, node group and
// instance ids are generated.
func (d *Documents) CreateCluster(ctx context.Context, cluster *v1alpha1.Cluster) (*v1alpha1.Cluster, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c := *cluster
	c.NodeGroups = append([]v1alpha1.NodeGroup(nil), cluster.NodeGroups...)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	for i := range c.NodeGroups {
		if c.NodeGroups[i].ID == "" {
			c.NodeGroups[i].ID = uuid.NewString()
		}
	}
	now := d.now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := d.save(ctx, KindCluster, c.ID, &c); err != nil {
		return nil, err
	}
	return d.reload(ctx, c.ID)
}

func (d *Documents) UpdateCluster(ctx context.Context, id string, update ClusterUpdate) (*v1alpha1.Cluster, error) {
	err := d.mutateCluster(ctx, id, func(c *v1alpha1.Cluster) error {
		if update.Status != nil {
			c.Status = *update.Status
		}
		if update.StatusDescription != nil {
			c.StatusDescription = *update.StatusDescription
		}
		if update.Labels != nil {
			c.Labels = update.Labels
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d.GetCluster(ctx, id)
}

func (d *Documents) DestroyCluster(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.backend.Delete(ctx, KindCluster, id); err != nil {
		return fmt.Errorf("failed to destroy cluster %s: %w", id, err)
	}
	return nil
}

func (d *Documents) AddNodeGroup(ctx context.Context, clusterID string, ng v1alpha1.NodeGroup) (*v1alpha1.NodeGroup, error) {
	if ng.ID == "" {
		ng.ID = uuid.NewString()
	}
	err := d.mutateCluster(ctx, clusterID, func(c *v1alpha1.Cluster) error {
		c.NodeGroups = append(c.NodeGroups, ng)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ng, nil
}

func (d *Documents) UpdateNodeGroup(ctx context.Context, clusterID, nodeGroupID string, update NodeGroupUpdate) error {
	return d.mutateCluster(ctx, clusterID, func(c *v1alpha1.Cluster) error {
		ng, ok := c.NodeGroupByID(nodeGroupID)
		if !ok {
			return fmt.Errorf("node group %s: %w", nodeGroupID, ErrNotFound)
		}
		if update.Count != nil {
			ng.Count = *update.Count
		}
		return nil
	})
}

func (d *Documents) RemoveNodeGroup(ctx context.Context, clusterID, nodeGroupID string) error {
	return d.mutateCluster(ctx, clusterID, func(c *v1alpha1.Cluster) error {
		for i := range c.NodeGroups {
			if c.NodeGroups[i].ID == nodeGroupID {
				c.NodeGroups = append(c.NodeGroups[:i], c.NodeGroups[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("node group %s: %w", nodeGroupID, ErrNotFound)
	})
}

func (d *Documents) AddInstance(ctx context.Context, clusterID, nodeGroupID string, inst v1alpha1.Instance) (*v1alpha1.Instance, error) {
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = d.now().UTC()
	}
	err := d.mutateCluster(ctx, clusterID, func(c *v1alpha1.Cluster) error {
		ng, ok := c.NodeGroupByID(nodeGroupID)
		if !ok {
			return fmt.Errorf("node group %s: %w", nodeGroupID, ErrNotFound)
		}
		ng.Instances = append(ng.Instances, inst)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (d *Documents) RemoveInstance(ctx context.Context, clusterID, instanceID string) error {
	return d.mutateCluster(ctx, clusterID, func(c *v1alpha1.Cluster) error {
		for gi := range c.NodeGroups {
			ng := &c.NodeGroups[gi]
			for i := range ng.Instances {
				if ng.Instances[i].ID == instanceID {
					ng.Instances = append(ng.Instances[:i], ng.Instances[i+1:]...)
					return nil
				}
			}
		}
		return fmt.Errorf("instance %s: %w", instanceID, ErrNotFound)
	})
}

func (d *Documents) CreateClusterTemplate(ctx context.Context, tmpl *v1alpha1.ClusterTemplate) (*v1alpha1.ClusterTemplate, error) {
	t := *tmpl
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = d.now().UTC()

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.save(ctx, KindClusterTemplate, t.ID, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *Documents) GetClusterTemplate(ctx context.Context, id string) (*v1alpha1.ClusterTemplate, error) {
	var t v1alpha1.ClusterTemplate
	if err := d.load(ctx, KindClusterTemplate, id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *Documents) ListClusterTemplates(ctx context.Context) ([]*v1alpha1.ClusterTemplate, error) {
	out, err := listDecoded[v1alpha1.ClusterTemplate](ctx, d.backend, KindClusterTemplate)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *Documents) DestroyClusterTemplate(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.backend.Delete(ctx, KindClusterTemplate, id); err != nil {
		return fmt.Errorf("failed to destroy cluster template %s: %w", id, err)
	}
	return nil
}

func (d *Documents) CreateNodeGroupTemplate(ctx context.Context, tmpl *v1alpha1.NodeGroupTemplate) (*v1alpha1.NodeGroupTemplate, error) {
	t := *tmpl
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = d.now().UTC()

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.save(ctx, KindNodeGroupTemplate, t.ID, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *Documents) GetNodeGroupTemplate(ctx context.Context, id string) (*v1alpha1.NodeGroupTemplate, error) {
	var t v1alpha1.NodeGroupTemplate
	if err := d.load(ctx, KindNodeGroupTemplate, id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *Documents) ListNodeGroupTemplates(ctx context.Context) ([]*v1alpha1.NodeGroupTemplate, error) {
	out, err := listDecoded[v1alpha1.NodeGroupTemplate](ctx, d.backend, KindNodeGroupTemplate)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *Documents) DestroyNodeGroupTemplate(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.backend.Delete(ctx, KindNodeGroupTemplate, id); err != nil {
		return fmt.Errorf("failed to destroy node group template %s: %w", id, err)
	}
	return nil
}

// mutateCluster loads, modifies and writes back a cluster under the store lock.
func (d *Documents) mutateCluster(ctx context.Context, id string, fn func(*v1alpha1.Cluster) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var c v1alpha1.Cluster
	if err := d.load(ctx, KindCluster, id, &c); err != nil {
		return err
	}
	if err := fn(&c); err != nil {
		return err
	}
	c.UpdatedAt = d.now().UTC()
	return d.save(ctx, KindCluster, id, &c)
}

func (d *Documents) reload(ctx context.Context, id string) (*v1alpha1.Cluster, error) {
	var c v1alpha1.Cluster
	if err := d.load(ctx, KindCluster, id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (d *Documents) load(ctx context.Context, kind Kind, id string, v any) error {
	doc, err := d.backend.Get(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("%s %s: %w", singular(kind), id, err)
	}
	if err := json.Unmarshal(doc, v); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", singular(kind), id, err)
	}
	return nil
}

func (d *Documents) save(ctx context.Context, kind Kind, id string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", singular(kind), id, err)
	}
	if err := d.backend.Put(ctx, kind, id, doc); err != nil {
		return fmt.Errorf("failed to write %s %s: %w", singular(kind), id, err)
	}
	return nil
}

func listDecoded[T any](ctx context.Context, backend Backend, kind Kind) ([]*T, error) {
	docs, err := backend.List(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		v := new(T)
		if err := json.Unmarshal(doc, v); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", singular(kind), err)
		}
		out = append(out, v)
	}
	return out, nil
}

func singular(kind Kind) string {
	switch kind {
	case KindCluster:
		return "cluster"
	case KindClusterTemplate:
		return "cluster template"
	case KindNodeGroupTemplate:
		return "node group template"
	}
	return string(kind)
}
