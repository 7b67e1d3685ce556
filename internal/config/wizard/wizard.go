package wizard

import (
	"context"
	"fmt"

	"github.com/imamik/stratus/api/v1alpha1"
)

// ManagerProcess is the node process that marks the group holding the
// cluster manager.
const ManagerProcess = "manager"

// Catalog supplies the provisioning engines the wizard offers.
type Catalog interface {
	ListPlugins(ctx context.Context) ([]v1alpha1.PluginInfo, error)
	GetPlugin(ctx context.Context, name, version string) (*v1alpha1.PluginVersionInfo, error)
}

// WizardResult holds all the answers from the interactive wizard.
type WizardResult struct {
	// Cluster Identity
	ClusterName string

	// Provisioning engine
	PluginName     string
	PluginVersion  string
	DefaultImageID string

	// Manager group
	ManagerFlavor    string
	ManagerProcesses []string

	// Workers
	AddWorkers      bool
	WorkerFlavor    string
	WorkerCount     int
	WorkerProcesses []string
	WorkerImageID   string

	// Advanced options (only set in advanced mode)
	Labels map[string]string
}

// RunWizard runs the interactive spec wizard.
// If advanced is true, additional options are shown.
// The context is used for cancellation support (e.g., Ctrl+C).
func RunWizard(ctx context.Context, catalog Catalog, advanced bool) (*WizardResult, error) {
	plugins, err := catalog.ListPlugins(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plugins: %w", err)
	}
	if len(plugins) == 0 {
		return nil, errNoPlugins
	}

	result := &WizardResult{}

	if err := runClusterIdentityGroup(ctx, result, plugins); err != nil {
		return nil, fmt.Errorf("cluster identity: %w", err)
	}

	plugin, _ := findPlugin(plugins, result.PluginName)
	if err := runPluginVersionGroup(ctx, result, plugin); err != nil {
		return nil, fmt.Errorf("plugin version: %w", err)
	}

	info, err := catalog.GetPlugin(ctx, result.PluginName, result.PluginVersion)
	if err != nil {
		return nil, fmt.Errorf("describe plugin: %w", err)
	}

	if err := runManagerGroup(ctx, result, info.NodeProcesses); err != nil {
		return nil, fmt.Errorf("manager group: %w", err)
	}

	if err := runWorkersGroup(ctx, result, info.NodeProcesses); err != nil {
		return nil, fmt.Errorf("workers: %w", err)
	}

	if advanced {
		if err := runAdvancedGroup(ctx, result); err != nil {
			return nil, fmt.Errorf("advanced: %w", err)
		}
	}

	return result, nil
}
