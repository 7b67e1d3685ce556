package wizard

import (
	"context"
	"regexp"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/imamik/stratus/api/v1alpha1"
)

// clusterNameRegex validates cluster name format: 1-32 lowercase alphanumeric with hyphens.
var clusterNameRegex = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,30}[a-z0-9])?$`)

// runClusterIdentityGroup prompts for cluster name and engine.
func runClusterIdentityGroup(ctx context.Context, result *WizardResult, plugins []v1alpha1.PluginInfo) error {
	result.PluginName = plugins[0].Name

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cluster Name").
				Description("1-32 lowercase alphanumeric characters or hyphens").
				Placeholder("my-cluster").
				Value(&result.ClusterName).
				Validate(validateClusterName),
			huh.NewSelect[string]().
				Title("Provisioning Engine").
				Description("The plugin that configures and starts the cluster").
				Options(PluginsToOptions(plugins)...).
				Value(&result.PluginName),
		).Title("Cluster Identity"),
	).RunWithContext(ctx)
}

// runPluginVersionGroup prompts for the engine version and default image.
func runPluginVersionGroup(ctx context.Context, result *WizardResult, plugin v1alpha1.PluginInfo) error {
	if len(plugin.Versions) > 0 {
		result.PluginVersion = plugin.Versions[len(plugin.Versions)-1]
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Version").
				Options(VersionsToOptions(plugin.Versions)...).
				Value(&result.PluginVersion),
			huh.NewInput().
				Title("Default Image (Optional)").
				Description("Registered image id or name. Leave empty to use the substrate default.").
				Placeholder("debian-12").
				Value(&result.DefaultImageID),
		).Title(plugin.Title),
	).RunWithContext(ctx)
}

// runManagerGroup prompts for the single manager instance.
func runManagerGroup(ctx context.Context, result *WizardResult, processes []string) error {
	result.ManagerFlavor = DefaultFlavor
	result.ManagerProcesses = []string{ManagerProcess}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Server Type").
				Description("Choose the server type for the manager instance").
				Options(FlavorsToOptions()...).
				Value(&result.ManagerFlavor),
			huh.NewMultiSelect[string]().
				Title("Node Processes").
				Description("Processes running on the manager instance").
				Options(ProcessesToOptions(processes, result.ManagerProcesses)...).
				Value(&result.ManagerProcesses).
				Validate(validateProcesses),
		).Title("Manager"),
	).RunWithContext(ctx)
}

// runWorkersGroup prompts for worker node configuration.
func runWorkersGroup(ctx context.Context, result *WizardResult, processes []string) error {
	result.AddWorkers = true

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Add Worker Nodes?").
				Description("Worker nodes run the cluster workload").
				Value(&result.AddWorkers),
		).Title("Workers"),
	).RunWithContext(ctx)

	if err != nil {
		return err
	}

	if !result.AddWorkers {
		return nil
	}

	result.WorkerFlavor = DefaultFlavor
	result.WorkerCount = 2
	result.WorkerProcesses = workerDefaults(processes)

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Server Type").
				Description("Choose the server type for worker nodes").
				Options(FlavorsToOptions()...).
				Value(&result.WorkerFlavor),
			huh.NewSelect[int]().
				Title("Node Count").
				Description("Number of worker nodes").
				Options(WorkerCountOptions...).
				Value(&result.WorkerCount),
			huh.NewMultiSelect[string]().
				Title("Node Processes").
				Options(ProcessesToOptions(processes, result.WorkerProcesses)...).
				Value(&result.WorkerProcesses).
				Validate(validateProcesses),
		).Title("Worker Configuration"),
	).RunWithContext(ctx)
}

// runAdvancedGroup prompts for labels and a worker image override.
func runAdvancedGroup(ctx context.Context, result *WizardResult) error {
	var labelsInput string

	fields := []huh.Field{
		huh.NewInput().
			Title("Labels (Optional)").
			Description("Comma-separated key=value pairs attached to the cluster").
			Placeholder("team=data, env=dev").
			Value(&labelsInput).
			Validate(validateLabels),
	}
	if result.AddWorkers {
		fields = append(fields, huh.NewInput().
			Title("Worker Image (Optional)").
			Description("Overrides the default image for worker nodes").
			Value(&result.WorkerImageID))
	}

	err := huh.NewForm(huh.NewGroup(fields...).Title("Advanced")).RunWithContext(ctx)
	if err != nil {
		return err
	}

	result.Labels, _ = parseLabels(labelsInput)
	return nil
}

// workerDefaults preselects every process except the manager.
func workerDefaults(processes []string) []string {
	var out []string
	for _, p := range processes {
		if p != ManagerProcess {
			out = append(out, p)
		}
	}
	return out
}

func validateClusterName(s string) error {
	if s == "" {
		return errClusterNameRequired
	}
	if !clusterNameRegex.MatchString(s) {
		return errClusterNameInvalid
	}
	return nil
}

func validateProcesses(selected []string) error {
	if len(selected) == 0 {
		return errProcessesRequired
	}
	return nil
}

func validateLabels(s string) error {
	_, err := parseLabels(s)
	return err
}

// parseLabels parses "k=v, k2=v2" into a map. Empty input yields nil.
func parseLabels(input string) (map[string]string, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}

	labels := make(map[string]string)
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errLabelInvalid
		}
		labels[key] = strings.TrimSpace(value)
	}
	return labels, nil
}
