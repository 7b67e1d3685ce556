package wizard

import "github.com/imamik/stratus/api/v1alpha1"

// Node group names produced by the wizard.
const (
	ManagerGroupName = "manager"
	WorkerGroupName  = "workers"
)

// BuildSpec creates a ClusterSpec from the wizard result.
func BuildSpec(result *WizardResult) *v1alpha1.ClusterSpec {
	spec := &v1alpha1.ClusterSpec{
		Name:           result.ClusterName,
		PluginName:     result.PluginName,
		PluginVersion:  result.PluginVersion,
		DefaultImageID: result.DefaultImageID,
		Labels:         result.Labels,
	}

	spec.NodeGroups = append(spec.NodeGroups, v1alpha1.NodeGroupSpec{
		Name:          ManagerGroupName,
		Count:         1,
		FlavorID:      result.ManagerFlavor,
		NodeProcesses: result.ManagerProcesses,
	})

	if result.AddWorkers && result.WorkerCount > 0 {
		spec.NodeGroups = append(spec.NodeGroups, v1alpha1.NodeGroupSpec{
			Name:          WorkerGroupName,
			Count:         result.WorkerCount,
			FlavorID:      result.WorkerFlavor,
			ImageID:       result.WorkerImageID,
			NodeProcesses: result.WorkerProcesses,
		})
	}

	return spec
}
