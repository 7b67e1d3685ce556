package store

import (
	"context"
	"errors"

	"github.com/imamik/stratus/api/v1alpha1"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ClusterUpdate replaces the non-nil fields of a cluster record.
type ClusterUpdate struct {
	Status            *v1alpha1.ClusterStatus
	StatusDescription *string
	Labels            map[string]string
}

// NodeGroupUpdate replaces the non-nil fields of a node group.
type NodeGroupUpdate struct {
	Count *int
}

// Store is the persistence boundary used by the orchestrator.
// Every method returns a copy; mutating a returned value never changes the store.
type Store interface {
	GetCluster(ctx context.Context, id string) (*v1alpha1.Cluster, error)
	ListClusters(ctx context.Context) ([]*v1alpha1.Cluster, error)
	CreateCluster(ctx context.Context, cluster *v1alpha1.Cluster) (*v1alpha1.Cluster, error)
	UpdateCluster(ctx context.Context, id string, update ClusterUpdate) (*v1alpha1.Cluster, error)
	DestroyCluster(ctx context.Context, id string) error

	AddNodeGroup(ctx context.Context, clusterID string, ng v1alpha1.NodeGroup) (*v1alpha1.NodeGroup, error)
	UpdateNodeGroup(ctx context.Context, clusterID, nodeGroupID string, update NodeGroupUpdate) error
	RemoveNodeGroup(ctx context.Context, clusterID, nodeGroupID string) error

	AddInstance(ctx context.Context, clusterID, nodeGroupID string, inst v1alpha1.Instance) (*v1alpha1.Instance, error)
	RemoveInstance(ctx context.Context, clusterID, instanceID string) error

	CreateClusterTemplate(ctx context.Context, tmpl *v1alpha1.ClusterTemplate) (*v1alpha1.ClusterTemplate, error)
	GetClusterTemplate(ctx context.Context, id string) (*v1alpha1.ClusterTemplate, error)
	ListClusterTemplates(ctx context.Context) ([]*v1alpha1.ClusterTemplate, error)
	DestroyClusterTemplate(ctx context.Context, id string) error

	CreateNodeGroupTemplate(ctx context.Context, tmpl *v1alpha1.NodeGroupTemplate) (*v1alpha1.NodeGroupTemplate, error)
	GetNodeGroupTemplate(ctx context.Context, id string) (*v1alpha1.NodeGroupTemplate, error)
	ListNodeGroupTemplates(ctx context.Context) ([]*v1alpha1.NodeGroupTemplate, error)
	DestroyNodeGroupTemplate(ctx context.Context, id string) error
}

// Kind names a document collection.
type Kind string

const (
	KindCluster           Kind = "clusters"
	KindClusterTemplate   Kind = "cluster-templates"
	KindNodeGroupTemplate Kind = "node-group-templates"
)

// Backend stores raw documents. Get and Delete return ErrNotFound for
// missing ids; List returns documents in no particular order.
type Backend interface {
	Get(ctx context.Context, kind Kind, id string) ([]byte, error)
	Put(ctx context.Context, kind Kind, id string, doc []byte) error
	Delete(ctx context.Context, kind Kind, id string) error
	List(ctx context.Context, kind Kind) ([][]byte, error)
	Close() error
}
