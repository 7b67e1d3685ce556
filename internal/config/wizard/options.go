package wizard

import (
	"github.com/charmbracelet/huh"

	"github.com/imamik/stratus/api/v1alpha1"
)

// FlavorOption represents a substrate server type.
type FlavorOption struct {
	Value       string
	Label       string
	Description string
}

// Flavors contains the recommended Hetzner Cloud server types. The docker
// substrate ignores the flavor.
var Flavors = []FlavorOption{
	{Value: "cpx11", Label: "cpx11", Description: "2 vCPU, 2GB RAM (AMD)"},
	{Value: "cpx21", Label: "cpx21", Description: "3 vCPU, 4GB RAM (AMD)"},
	{Value: "cpx31", Label: "cpx31", Description: "4 vCPU, 8GB RAM (AMD)"},
	{Value: "cpx41", Label: "cpx41", Description: "8 vCPU, 16GB RAM (AMD)"},
	{Value: "cax21", Label: "cax21", Description: "4 vCPU, 8GB RAM (ARM)"},
	{Value: "cax31", Label: "cax31", Description: "8 vCPU, 16GB RAM (ARM)"},
	{Value: "ccx13", Label: "ccx13", Description: "2 vCPU, 8GB RAM (Dedicated)"},
	{Value: "ccx23", Label: "ccx23", Description: "4 vCPU, 16GB RAM (Dedicated)"},
}

// DefaultFlavor is preselected in every flavor prompt.
const DefaultFlavor = "cpx21"

// WorkerCountOptions contains common worker node counts.
var WorkerCountOptions = []huh.Option[int]{
	huh.NewOption("1", 1),
	huh.NewOption("2", 2),
	huh.NewOption("3", 3),
	huh.NewOption("5", 5),
	huh.NewOption("10", 10),
}

// FlavorsToOptions converts the flavor list to huh options.
func FlavorsToOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], len(Flavors))
	for i, f := range Flavors {
		opts[i] = huh.NewOption(f.Label+" - "+f.Description, f.Value)
	}
	return opts
}

// PluginsToOptions converts the engine catalogue to huh options.
func PluginsToOptions(plugins []v1alpha1.PluginInfo) []huh.Option[string] {
	opts := make([]huh.Option[string], len(plugins))
	for i, p := range plugins {
		opts[i] = huh.NewOption(p.Name+" - "+p.Title, p.Name)
	}
	return opts
}

// VersionsToOptions converts engine versions to huh options.
func VersionsToOptions(versions []string) []huh.Option[string] {
	opts := make([]huh.Option[string], len(versions))
	for i, v := range versions {
		opts[i] = huh.NewOption(v, v)
	}
	return opts
}

// ProcessesToOptions converts node processes to huh options, preselecting
// the given defaults.
func ProcessesToOptions(processes, selected []string) []huh.Option[string] {
	opts := make([]huh.Option[string], len(processes))
	for i, p := range processes {
		opts[i] = huh.NewOption(p, p).Selected(contains(selected, p))
	}
	return opts
}

func findPlugin(plugins []v1alpha1.PluginInfo, name string) (v1alpha1.PluginInfo, bool) {
	for _, p := range plugins {
		if p.Name == name {
			return p, true
		}
	}
	return v1alpha1.PluginInfo{}, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
