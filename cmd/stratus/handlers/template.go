package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/stratus/api/v1alpha1"
)

// ListClusterTemplates prints every cluster template.
func ListClusterTemplates(ctx context.Context, g Globals) error {
	templates, err := g.client().ListClusterTemplates(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cluster templates: %w", err)
	}
	if done, err := emit(g, templates); done {
		return err
	}

	rows := make([][]string, 0, len(templates))
	for _, t := range templates {
		groups := make([]string, 0, len(t.NodeGroups))
		for _, ng := range t.NodeGroups {
			groups = append(groups, fmt.Sprintf("%s:%d", ng.Name, ng.Count))
		}
		rows = append(rows, []string{
			t.ID, t.Name, t.PluginName + " " + t.PluginVersion, orDash(strings.Join(groups, ",")), age(t.CreatedAt),
		})
	}
	printTable([]string{"ID", "NAME", "PLUGIN", "NODE GROUPS", "AGE"}, rows)
	return nil
}

// GetClusterTemplate prints one cluster template.
func GetClusterTemplate(ctx context.Context, g Globals, id string) error {
	t, err := g.client().GetClusterTemplate(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get cluster template %s: %w", id, err)
	}
	return printDocument(g, t)
}

// CreateClusterTemplate registers the template in path.
func CreateClusterTemplate(ctx context.Context, g Globals, path string) error {
	var tmpl v1alpha1.ClusterTemplate
	if err := readSpecFile(path, &tmpl); err != nil {
		return err
	}
	created, err := g.client().CreateClusterTemplate(ctx, &tmpl)
	if err != nil {
		return fmt.Errorf("failed to create cluster template: %w", err)
	}
	printf("Cluster template %s created: %s\n", created.Name, created.ID)
	return nil
}

// ConvertClusterTemplate uploads the engine-native configuration file in
// path ("-" reads stdin) and stores the result as the cluster template name.
func ConvertClusterTemplate(ctx context.Context, g Globals, plugin, version, name, path string) error {
	data, err := readInput(path)
	if err != nil {
		return err
	}
	created, err := g.client().ConvertClusterTemplate(ctx, plugin, version, name, data)
	if err != nil {
		return fmt.Errorf("failed to convert %s: %w", path, err)
	}
	printf("Cluster template %s created from %s: %s\n", created.Name, path, created.ID)
	return nil
}

// DeleteClusterTemplate removes a cluster template.
func DeleteClusterTemplate(ctx context.Context, g Globals, id string) error {
	if err := g.client().DeleteClusterTemplate(ctx, id); err != nil {
		return fmt.Errorf("failed to delete cluster template %s: %w", id, err)
	}
	printf("Cluster template %s deleted\n", id)
	return nil
}

// ListNodeGroupTemplates prints every node group template.
func ListNodeGroupTemplates(ctx context.Context, g Globals) error {
	templates, err := g.client().ListNodeGroupTemplates(ctx)
	if err != nil {
		return fmt.Errorf("failed to list node group templates: %w", err)
	}
	if done, err := emit(g, templates); done {
		return err
	}

	rows := make([][]string, 0, len(templates))
	for _, t := range templates {
		rows = append(rows, []string{
			t.ID, t.Name, t.PluginName + " " + t.PluginVersion, t.FlavorID, strings.Join(t.NodeProcesses, ","), age(t.CreatedAt),
		})
	}
	printTable([]string{"ID", "NAME", "PLUGIN", "FLAVOR", "PROCESSES", "AGE"}, rows)
	return nil
}

// GetNodeGroupTemplate prints one node group template.
func GetNodeGroupTemplate(ctx context.Context, g Globals, id string) error {
	t, err := g.client().GetNodeGroupTemplate(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get node group template %s: %w", id, err)
	}
	return printDocument(g, t)
}

// CreateNodeGroupTemplate registers the template in path.
func CreateNodeGroupTemplate(ctx context.Context, g Globals, path string) error {
	var tmpl v1alpha1.NodeGroupTemplate
	if err := readSpecFile(path, &tmpl); err != nil {
		return err
	}
	created, err := g.client().CreateNodeGroupTemplate(ctx, &tmpl)
	if err != nil {
		return fmt.Errorf("failed to create node group template: %w", err)
	}
	printf("Node group template %s created: %s\n", created.Name, created.ID)
	return nil
}

// DeleteNodeGroupTemplate removes a node group template.
func DeleteNodeGroupTemplate(ctx context.Context, g Globals, id string) error {
	if err := g.client().DeleteNodeGroupTemplate(ctx, id); err != nil {
		return fmt.Errorf("failed to delete node group template %s: %w", id, err)
	}
	printf("Node group template %s deleted\n", id)
	return nil
}

// printDocument prints single resources as YAML unless JSON was asked for.
func printDocument(g Globals, v any) error {
	if g.Output == OutputTable {
		g.Output = OutputYAML
	}
	_, err := emit(g, v)
	return err
}
