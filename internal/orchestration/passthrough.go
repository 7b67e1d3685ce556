package orchestration

import (
	"context"
	"fmt"
	"slices"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/provisioning"
)

func (o *Orchestrator) GetCluster(ctx context.Context, id string) (*v1alpha1.Cluster, error) {
	return o.store.GetCluster(ctx, id)
}

func (o *Orchestrator) ListClusters(ctx context.Context) ([]*v1alpha1.Cluster, error) {
	return o.store.ListClusters(ctx)
}

// ListPlugins describes every registered engine.
func (o *Orchestrator) ListPlugins(_ context.Context) ([]v1alpha1.PluginInfo, error) {
	return o.plugins.List(), nil
}

// GetPlugin describes one engine version.
func (o *Orchestrator) GetPlugin(_ context.Context, name, version string) (*v1alpha1.PluginVersionInfo, error) {
	return o.plugins.Describe(name, version)
}

// CreateClusterTemplate stores a reusable cluster definition after checking
// its engine and node processes.
func (o *Orchestrator) CreateClusterTemplate(ctx context.Context, tmpl *v1alpha1.ClusterTemplate) (*v1alpha1.ClusterTemplate, error) {
	if tmpl.Name == "" {
		return nil, invalid("template name is required")
	}
	processes, err := o.processes(tmpl.PluginName, tmpl.PluginVersion)
	if err != nil {
		return nil, err
	}
	for _, ng := range tmpl.NodeGroups {
		if ng.Name == "" {
			return nil, invalid("node group name is required")
		}
		if err := checkProcesses(ng.Name, ng.NodeProcesses, processes); err != nil {
			return nil, err
		}
	}
	return o.store.CreateClusterTemplate(ctx, tmpl)
}

// ConvertClusterTemplate asks the engine to translate a configuration file
// in its native format and stores the result as a cluster template called
// name.
func (o *Orchestrator) ConvertClusterTemplate(ctx context.Context, pluginName, version, name string, data []byte) (*v1alpha1.ClusterTemplate, error) {
	if name == "" {
		return nil, invalid("template name is required")
	}
	plugin, err := o.plugins.GetVersion(pluginName, version)
	if err != nil {
		return nil, err
	}
	converter, ok := plugin.(provisioning.Converter)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConversionUnsupported, pluginName)
	}

	tmpl, err := converter.ConvertConfig(ctx, version, data)
	if err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("failed to convert %s %s configuration: %w", pluginName, version, err)}
	}
	tmpl.Name = name
	tmpl.PluginName = pluginName
	tmpl.PluginVersion = version
	return o.CreateClusterTemplate(ctx, tmpl)
}

func (o *Orchestrator) GetClusterTemplate(ctx context.Context, id string) (*v1alpha1.ClusterTemplate, error) {
	return o.store.GetClusterTemplate(ctx, id)
}

func (o *Orchestrator) ListClusterTemplates(ctx context.Context) ([]*v1alpha1.ClusterTemplate, error) {
	return o.store.ListClusterTemplates(ctx)
}

func (o *Orchestrator) DeleteClusterTemplate(ctx context.Context, id string) error {
	if _, err := o.store.GetClusterTemplate(ctx, id); err != nil {
		return err
	}
	return o.store.DestroyClusterTemplate(ctx, id)
}

// CreateNodeGroupTemplate stores a reusable node group definition after
// checking its engine and node processes.
func (o *Orchestrator) CreateNodeGroupTemplate(ctx context.Context, tmpl *v1alpha1.NodeGroupTemplate) (*v1alpha1.NodeGroupTemplate, error) {
	if tmpl.Name == "" {
		return nil, invalid("template name is required")
	}
	if tmpl.FlavorID == "" {
		return nil, invalid("flavor is required")
	}
	processes, err := o.processes(tmpl.PluginName, tmpl.PluginVersion)
	if err != nil {
		return nil, err
	}
	if err := checkProcesses(tmpl.Name, tmpl.NodeProcesses, processes); err != nil {
		return nil, err
	}
	return o.store.CreateNodeGroupTemplate(ctx, tmpl)
}

func (o *Orchestrator) GetNodeGroupTemplate(ctx context.Context, id string) (*v1alpha1.NodeGroupTemplate, error) {
	return o.store.GetNodeGroupTemplate(ctx, id)
}

func (o *Orchestrator) ListNodeGroupTemplates(ctx context.Context) ([]*v1alpha1.NodeGroupTemplate, error) {
	return o.store.ListNodeGroupTemplates(ctx)
}

func (o *Orchestrator) DeleteNodeGroupTemplate(ctx context.Context, id string) error {
	if _, err := o.store.GetNodeGroupTemplate(ctx, id); err != nil {
		return err
	}
	return o.store.DestroyNodeGroupTemplate(ctx, id)
}

func (o *Orchestrator) processes(name, version string) ([]string, error) {
	plugin, err := o.plugins.GetVersion(name, version)
	if err != nil {
		return nil, err
	}
	processes, err := plugin.NodeProcesses(version)
	if err != nil {
		return nil, fmt.Errorf("failed to list node processes: %w", err)
	}
	return processes, nil
}

func checkProcesses(group string, requested, supported []string) error {
	for _, p := range requested {
		if !slices.Contains(supported, p) {
			return invalid("node group %s: unsupported node process %q", group, p)
		}
	}
	return nil
}

// Images

func (o *Orchestrator) ListImages(ctx context.Context, tags []string) ([]v1alpha1.Image, error) {
	if o.images == nil {
		return nil, ErrImagesUnsupported
	}
	return o.images.ListImages(ctx, tags)
}

func (o *Orchestrator) GetImage(ctx context.Context, id string) (*v1alpha1.Image, error) {
	if o.images == nil {
		return nil, ErrImagesUnsupported
	}
	return o.images.GetImage(ctx, id)
}

// FindImage looks an image up by its exact name.
func (o *Orchestrator) FindImage(ctx context.Context, name string) (*v1alpha1.Image, error) {
	if o.images == nil {
		return nil, ErrImagesUnsupported
	}
	return o.images.FindImage(ctx, name)
}

func (o *Orchestrator) RegisterImage(ctx context.Context, id, username, description string) (*v1alpha1.Image, error) {
	if o.images == nil {
		return nil, ErrImagesUnsupported
	}
	return o.images.RegisterImage(ctx, id, username, description)
}

func (o *Orchestrator) UnregisterImage(ctx context.Context, id string) error {
	if o.images == nil {
		return ErrImagesUnsupported
	}
	return o.images.UnregisterImage(ctx, id)
}

func (o *Orchestrator) TagImage(ctx context.Context, id string, tags []string) (*v1alpha1.Image, error) {
	if o.images == nil {
		return nil, ErrImagesUnsupported
	}
	return o.images.TagImage(ctx, id, tags)
}

func (o *Orchestrator) UntagImage(ctx context.Context, id string, tags []string) (*v1alpha1.Image, error) {
	if o.images == nil {
		return nil, ErrImagesUnsupported
	}
	return o.images.UntagImage(ctx, id, tags)
}
