// Package wizard provides the interactive cluster spec wizard behind
// "stratus init".
//
// It uses charmbracelet/huh for form-based input collection. RunWizard
// asks for the cluster identity, the provisioning engine and the node
// groups and returns a WizardResult. Use BuildSpec to convert results to a
// ClusterSpec, and WriteSpec to generate the YAML file accepted by
// "stratus cluster create -f".
package wizard
