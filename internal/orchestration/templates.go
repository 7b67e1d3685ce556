package orchestration

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/imamik/stratus/api/v1alpha1"
)

// expandCluster applies the cluster template referenced by spec. Fields set
// on spec win; configs are merged per section with spec values on top.
func (o *Orchestrator) expandCluster(ctx context.Context, spec v1alpha1.ClusterSpec) (v1alpha1.ClusterSpec, error) {
	if spec.ClusterTemplateID == "" {
		return spec, nil
	}
	tmpl, err := o.store.GetClusterTemplate(ctx, spec.ClusterTemplateID)
	if err != nil {
		return spec, fmt.Errorf("failed to load cluster template: %w", err)
	}

	if spec.PluginName == "" {
		spec.PluginName = tmpl.PluginName
		if spec.PluginVersion == "" {
			spec.PluginVersion = tmpl.PluginVersion
		}
	}
	if spec.DefaultImageID == "" {
		spec.DefaultImageID = tmpl.DefaultImageID
	}
	spec.ClusterConfigs = mergeConfigs(tmpl.ClusterConfigs, spec.ClusterConfigs)
	if len(spec.NodeGroups) == 0 {
		spec.NodeGroups = slices.Clone(tmpl.NodeGroups)
	}
	return spec, nil
}

// nodeGroup turns a node group spec into a record, filling unset fields from
// its node group template.
func (o *Orchestrator) nodeGroup(ctx context.Context, spec v1alpha1.NodeGroupSpec) (v1alpha1.NodeGroup, error) {
	ng := v1alpha1.NodeGroup{
		Name:                spec.Name,
		Count:               spec.Count,
		FlavorID:            spec.FlavorID,
		ImageID:             spec.ImageID,
		NodeProcesses:       slices.Clone(spec.NodeProcesses),
		NodeConfigs:         mergeConfigs(nil, spec.NodeConfigs),
		NodeGroupTemplateID: spec.NodeGroupTemplateID,
	}
	if spec.NodeGroupTemplateID == "" {
		return ng, nil
	}

	tmpl, err := o.store.GetNodeGroupTemplate(ctx, spec.NodeGroupTemplateID)
	if err != nil {
		return ng, fmt.Errorf("failed to load node group template for %s: %w", spec.Name, err)
	}
	if ng.FlavorID == "" {
		ng.FlavorID = tmpl.FlavorID
	}
	if ng.ImageID == "" {
		ng.ImageID = tmpl.ImageID
	}
	if len(ng.NodeProcesses) == 0 {
		ng.NodeProcesses = slices.Clone(tmpl.NodeProcesses)
	}
	ng.NodeConfigs = mergeConfigs(tmpl.NodeConfigs, spec.NodeConfigs)
	return ng, nil
}

func (o *Orchestrator) nodeGroups(ctx context.Context, specs []v1alpha1.NodeGroupSpec) ([]v1alpha1.NodeGroup, error) {
	out := make([]v1alpha1.NodeGroup, 0, len(specs))
	for _, spec := range specs {
		ng, err := o.nodeGroup(ctx, spec)
		if err != nil {
			return nil, err
		}
		out = append(out, ng)
	}
	return out, nil
}

func mergeConfigs(base, override map[string]map[string]string) map[string]map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]map[string]string, len(base)+len(override))
	for section, values := range base {
		out[section] = maps.Clone(values)
	}
	for section, values := range override {
		if out[section] == nil {
			out[section] = make(map[string]string, len(values))
		}
		maps.Copy(out[section], values)
	}
	return out
}

// checkShape rejects requests that could never be provisioned before any
// record is written.
func checkShape(spec v1alpha1.ClusterSpec) error {
	if spec.Name == "" {
		return invalid("cluster name is required")
	}
	if spec.PluginName == "" || spec.PluginVersion == "" {
		return invalid("plugin name and version are required")
	}
	if len(spec.NodeGroups) == 0 {
		return invalid("at least one node group is required")
	}
	seen := make(map[string]struct{}, len(spec.NodeGroups))
	for _, ng := range spec.NodeGroups {
		if ng.Name == "" {
			return invalid("node group name is required")
		}
		if _, dup := seen[ng.Name]; dup {
			return invalid("node group %s is defined more than once", ng.Name)
		}
		seen[ng.Name] = struct{}{}
		if ng.Count < 0 {
			return invalid("node group %s: count must not be negative", ng.Name)
		}
	}
	return nil
}
