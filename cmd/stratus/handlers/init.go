package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/config/wizard"
)

// Factory function variables for init - can be replaced in tests.
var (
	wizardFileExists       = wizard.FileExists
	wizardConfirmOverwrite = wizard.ConfirmOverwrite
	wizardRunWizard        = wizard.RunWizard
	wizardBuildSpec        = wizard.BuildSpec
	wizardWriteSpec        = wizard.WriteSpec
)

// Init runs the interactive spec wizard against the server's plugin
// catalog and writes the resulting cluster spec to outputPath.
func Init(ctx context.Context, g Globals, outputPath string, advanced bool) error {
	if wizardFileExists(outputPath) {
		overwrite, err := wizardConfirmOverwrite(outputPath)
		if err != nil {
			return fmt.Errorf("failed to confirm overwrite: %w", err)
		}
		if !overwrite {
			printf("Aborted.\n")
			return nil
		}
	}

	printWelcome(advanced)

	result, err := wizardRunWizard(ctx, g.client(), advanced)
	if err != nil {
		return fmt.Errorf("wizard canceled: %w", err)
	}

	spec := wizardBuildSpec(result)
	if err := wizardWriteSpec(spec, outputPath); err != nil {
		return fmt.Errorf("failed to write spec: %w", err)
	}

	printInitSuccess(outputPath, spec)
	return nil
}

// printWelcome prints the welcome message.
func printWelcome(advanced bool) {
	printf("\n")
	printf("stratus - cluster lifecycle orchestrator\n")
	printf("========================================\n")
	printf("\n")
	printf("This wizard will help you create a cluster spec.\n")
	if advanced {
		printf("Running in advanced mode.\n")
	}
	printf("\n")
}

// printInitSuccess prints the success message with summary and next steps.
func printInitSuccess(outputPath string, spec *v1alpha1.ClusterSpec) {
	printf("\n")
	printf("Spec saved!\n")
	printf("\n")
	printf("  File: %s\n", outputPath)
	printf("\n")

	printf("Cluster Summary\n")
	printf("---------------\n")
	printf("  Name:    %s\n", spec.Name)
	printf("  Plugin:  %s %s\n", spec.PluginName, spec.PluginVersion)
	for _, ng := range spec.NodeGroups {
		printf("  %-8s %d x %s [%s]\n", ng.Name+":", ng.Count, ng.FlavorID, strings.Join(ng.NodeProcesses, ","))
	}
	printf("\n")

	printf("Next steps:\n")
	printf("  stratus cluster create -f %s --watch\n", outputPath)
}
