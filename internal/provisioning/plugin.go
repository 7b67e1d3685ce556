package provisioning

import (
	"context"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/scaling"
)

// Plugin is a provisioning engine for one cluster technology.
//
// Validate and ValidateScaling run synchronously on the caller's path and
// must not change the substrate. The remaining methods run in the background
// and receive a freshly loaded cluster record.
type Plugin interface {
	// Name is the registry key, e.g. "vanilla".
	Name() string
	// Title is a human-readable name.
	Title() string
	// Description is a one-paragraph summary.
	Description() string
	// Versions lists the supported versions, oldest first.
	Versions() []string
	// NodeProcesses lists the processes a node group may run for version.
	NodeProcesses(version string) ([]string, error)
	// RequiredImageTags lists the tags an image must carry for version.
	RequiredImageTags(version string) []string
	// Configs lists the config options version understands.
	Configs(version string) ([]v1alpha1.ConfigOption, error)

	Validate(ctx context.Context, cluster *v1alpha1.Cluster) error
	ValidateScaling(ctx context.Context, cluster *v1alpha1.Cluster, deltas scaling.Deltas) error

	UpdateInfra(ctx context.Context, cluster *v1alpha1.Cluster) error
	ConfigureCluster(ctx context.Context, cluster *v1alpha1.Cluster) error
	StartCluster(ctx context.Context, cluster *v1alpha1.Cluster) error
	ScaleCluster(ctx context.Context, cluster *v1alpha1.Cluster, instances []v1alpha1.Instance) error
	OnTerminateCluster(ctx context.Context, cluster *v1alpha1.Cluster) error
}

// Decommissioner is implemented by engines that need to drain instances
// before they are removed during a scale-down.
type Decommissioner interface {
	DecommissionNodes(ctx context.Context, cluster *v1alpha1.Cluster, instances []v1alpha1.Instance) error
}

// Converter is implemented by engines that can turn a configuration file in
// their native format into a cluster template. The returned template needs
// no name, plugin name or version; the caller fills those in.
type Converter interface {
	ConvertConfig(ctx context.Context, version string, data []byte) (*v1alpha1.ClusterTemplate, error)
}
