package wizard

import "errors"

// Validation errors for the interactive wizard.
var (
	errClusterNameRequired = errors.New("cluster name is required")
	errClusterNameInvalid  = errors.New("cluster name must be 1-32 lowercase alphanumeric characters or hyphens, starting and ending with alphanumeric")
	errNoPlugins           = errors.New("no provisioning engines are registered")
	errLabelInvalid        = errors.New("labels must be comma-separated key=value pairs")
	errProcessesRequired   = errors.New("select at least one node process")
)
