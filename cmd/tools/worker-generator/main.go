// cmd/tools/worker-generator/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"interview-prep-workers/pkg/registry"

	"github.com/spf13/cobra"
)

func main() {
	var (
		activityID   string
		outputDir    string
		registryPath string
		force        bool
	)

	cmd := &cobra.Command{
		Use:     "worker-generator",
		Short:   "Scaffold a worker package for a registered activity",
		Example: "  worker-generator --activity plan-upgrade",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return fmt.Errorf("loading registry from %s: %w", registryPath, err)
			}
			activity, ok := reg.FindByID(activityID)
			if !ok {
				return fmt.Errorf("activity %q not found in %s", activityID, registryPath)
			}

			workerDir := filepath.Join(outputDir, activity.Category, activity.ID)
			files, err := generate(newWorkerData(*activity), workerDir, force)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintf(cmd.OutOrStdout(), "generated %s\n", f)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nNext: implement service.go, register the handler in cmd/worker-manager and add workers.%s to configs/config.yaml\n", activity.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&activityID, "activity", "", "activity id from the registry")
	cmd.Flags().StringVar(&outputDir, "output", "internal/workers", "root directory for worker packages")
	cmd.Flags().StringVar(&registryPath, "registry", "configs/activity-registry.json", "activity registry file")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	_ = cmd.MarkFlagRequired("activity")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
