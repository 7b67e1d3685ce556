// Package v1alpha1 contains the stratus API types shared by the orchestrator,
// the persistence backends, the HTTP API and the CLI.
package v1alpha1

import "time"

// ClusterStatus is the persisted lifecycle state of a cluster.
type ClusterStatus string

const (
	// StatusNew is the implicit state of a record that has been created but
	// has not yet entered validation.
	StatusNew ClusterStatus = ""
	// StatusValidating means the provisioning engine is checking the request.
	StatusValidating ClusterStatus = "Validating"
	// StatusInfraUpdating means substrate-level infrastructure is being prepared.
	StatusInfraUpdating ClusterStatus = "InfraUpdating"
	// StatusConfiguring means the engine is configuring instances.
	StatusConfiguring ClusterStatus = "Configuring"
	// StatusStarting means the engine is starting cluster services.
	StatusStarting ClusterStatus = "Starting"
	// StatusScaling means instances are being added or removed.
	StatusScaling ClusterStatus = "Scaling"
	// StatusActive means the cluster is usable and idle.
	StatusActive ClusterStatus = "Active"
	// StatusError means a background phase failed. Only termination is allowed.
	StatusError ClusterStatus = "Error"
	// StatusDeleting means the cluster is being torn down.
	StatusDeleting ClusterStatus = "Deleting"
)

// Statuses lists every persisted status in lifecycle order.
var Statuses = []ClusterStatus{
	StatusValidating,
	StatusInfraUpdating,
	StatusConfiguring,
	StatusStarting,
	StatusScaling,
	StatusActive,
	StatusError,
	StatusDeleting,
}

// Cluster is a named collection of node groups managed by one provisioning engine.
type Cluster struct {
	ID                string                       `json:"id"`
	Name              string                       `json:"name"`
	PluginName        string                       `json:"pluginName"`
	PluginVersion     string                       `json:"pluginVersion"`
	Status            ClusterStatus                `json:"status"`
	StatusDescription string                       `json:"statusDescription,omitempty"`
	DefaultImageID    string                       `json:"defaultImageId,omitempty"`
	ClusterTemplateID string                       `json:"clusterTemplateId,omitempty"`
	ClusterConfigs    map[string]map[string]string `json:"clusterConfigs,omitempty"`
	Labels            map[string]string            `json:"labels,omitempty"`
	NodeGroups        []NodeGroup                  `json:"nodeGroups"`
	CreatedAt         time.Time                    `json:"createdAt"`
	UpdatedAt         time.Time                    `json:"updatedAt"`
}

// NodeGroup is a homogeneous set of instances inside a cluster.
type NodeGroup struct {
	ID                  string                       `json:"id"`
	Name                string                       `json:"name"`
	Count               int                          `json:"count"`
	FlavorID            string                       `json:"flavorId"`
	ImageID             string                       `json:"imageId,omitempty"`
	NodeProcesses       []string                     `json:"nodeProcesses"`
	NodeConfigs         map[string]map[string]string `json:"nodeConfigs,omitempty"`
	NodeGroupTemplateID string                       `json:"nodeGroupTemplateId,omitempty"`
	Instances           []Instance                   `json:"instances,omitempty"`
}

// Instance is one provisioned machine belonging to a node group.
type Instance struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ServerID     string    `json:"serverId"`
	ManagementIP string    `json:"managementIp,omitempty"`
	InternalIP   string    `json:"internalIp,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NodeGroupSpec describes a node group to create, either at cluster creation
// or as an addition during scaling.
type NodeGroupSpec struct {
	Name                string                       `json:"name"`
	Count               int                          `json:"count"`
	FlavorID            string                       `json:"flavorId,omitempty"`
	ImageID             string                       `json:"imageId,omitempty"`
	NodeProcesses       []string                     `json:"nodeProcesses,omitempty"`
	NodeConfigs         map[string]map[string]string `json:"nodeConfigs,omitempty"`
	NodeGroupTemplateID string                       `json:"nodeGroupTemplateId,omitempty"`
}

// ClusterSpec is the request body for cluster creation.
type ClusterSpec struct {
	Name              string                       `json:"name"`
	PluginName        string                       `json:"pluginName,omitempty"`
	PluginVersion     string                       `json:"pluginVersion,omitempty"`
	DefaultImageID    string                       `json:"defaultImageId,omitempty"`
	ClusterTemplateID string                       `json:"clusterTemplateId,omitempty"`
	ClusterConfigs    map[string]map[string]string `json:"clusterConfigs,omitempty"`
	Labels            map[string]string            `json:"labels,omitempty"`
	NodeGroups        []NodeGroupSpec              `json:"nodeGroups,omitempty"`
}

// ResizeNodeGroup sets a new desired count on an existing node group.
type ResizeNodeGroup struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ScalingRequest resizes existing node groups and adds new ones in one step.
type ScalingRequest struct {
	ResizeNodeGroups []ResizeNodeGroup `json:"resizeNodeGroups,omitempty"`
	AddNodeGroups    []NodeGroupSpec   `json:"addNodeGroups,omitempty"`
}

// ClusterTemplate is a reusable cluster definition.
type ClusterTemplate struct {
	ID             string                       `json:"id"`
	Name           string                       `json:"name"`
	Description    string                       `json:"description,omitempty"`
	PluginName     string                       `json:"pluginName"`
	PluginVersion  string                       `json:"pluginVersion"`
	DefaultImageID string                       `json:"defaultImageId,omitempty"`
	ClusterConfigs map[string]map[string]string `json:"clusterConfigs,omitempty"`
	NodeGroups     []NodeGroupSpec              `json:"nodeGroups,omitempty"`
	CreatedAt      time.Time                    `json:"createdAt"`
}

// NodeGroupTemplate is a reusable node group definition.
type NodeGroupTemplate struct {
	ID            string                       `json:"id"`
	Name          string                       `json:"name"`
	Description   string                       `json:"description,omitempty"`
	PluginName    string                       `json:"pluginName"`
	PluginVersion string                       `json:"pluginVersion"`
	FlavorID      string                       `json:"flavorId"`
	ImageID       string                       `json:"imageId,omitempty"`
	NodeProcesses []string                     `json:"nodeProcesses"`
	NodeConfigs   map[string]map[string]string `json:"nodeConfigs,omitempty"`
	CreatedAt     time.Time                    `json:"createdAt"`
}

// Image is a substrate image as seen by the image registry.
type Image struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Username    string   `json:"username,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Registered  bool     `json:"registered"`
}

// PluginInfo describes a provisioning engine and its versions.
type PluginInfo struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Versions    []string `json:"versions"`
}

// PluginVersionInfo describes one version of a provisioning engine.
type PluginVersionInfo struct {
	PluginInfo
	Version           string         `json:"version"`
	NodeProcesses     []string       `json:"nodeProcesses"`
	RequiredImageTags []string       `json:"requiredImageTags,omitempty"`
	Configs           []ConfigOption `json:"configs,omitempty"`
}

// ConfigScope says where a config option may be set.
type ConfigScope string

const (
	ScopeCluster ConfigScope = "cluster"
	ScopeNode    ConfigScope = "node"
)

// ConfigOption describes one key an engine reads from ClusterConfigs or
// NodeConfigs.
type ConfigOption struct {
	Section     string      `json:"section"`
	Name        string      `json:"name"`
	Scope       ConfigScope `json:"scope"`
	Type        string      `json:"type"`
	Default     string      `json:"default,omitempty"`
	Description string      `json:"description,omitempty"`
}
