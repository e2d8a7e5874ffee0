// cmd/tools/registry-updater/main.go
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"text/tabwriter"

	"interview-prep-workers/pkg/registry"

	"github.com/spf13/cobra"
)

var registryPath string

func main() {
	root := &cobra.Command{
		Use:           "registry-updater",
		Short:         "Maintain the activity registry the worker manager checks at startup",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&registryPath, "path", "configs/activity-registry.json", "path to registry file")
	root.AddCommand(addCmd(), updateCmd(), validateCmd(), listCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func addCmd() *cobra.Command {
	a := registry.Activity{
		InputSchema:  map[string]interface{}{},
		OutputSchema: map[string]interface{}{},
		ErrorCodes:   []string{},
		Workflows:    []string{},
		Tags:         []string{},
	}
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a new activity",
		Example: `  registry-updater add --id progress-track --displayName "Track Progress" --category progress --taskType progress.track`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if errors.Is(err, fs.ErrNotExist) {
				reg, err = &registry.ActivityRegistry{Version: "1.0.0"}, nil
			}
			if err != nil {
				return err
			}
			if err := reg.Add(a); err != nil {
				return err
			}
			if err := reg.Save(registryPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added activity: %s\n", a.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&a.ID, "id", "", "activity id (e.g. plan-upgrade)")
	f.StringVar(&a.DisplayName, "displayName", "", "display name")
	f.StringVar(&a.Description, "description", "", "description")
	f.StringVar(&a.Category, "category", "", "category (e.g. account)")
	f.StringVar(&a.TaskType, "taskType", "", "Zeebe task type (e.g. plan.upgrade)")
	f.StringVar(&a.Version, "version", "1.0.0", "version")
	f.StringVar(&a.ImplementationStatus, "status", registry.StatusPlanned, "planned, in-progress, completed or verified")
	f.StringVar(&a.Timeout, "timeout", "30s", "job timeout")
	f.IntVar(&a.Retries, "retries", 3, "job retries")
	for _, name := range []string{"id", "displayName", "category", "taskType"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func updateCmd() *cobra.Command {
	var id, field, value string
	cmd := &cobra.Command{
		Use:     "update",
		Short:   "Update one field of an existing activity",
		Example: `  registry-updater update --id plan-upgrade --field status --value verified`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return err
			}
			if err := reg.Update(id, field, value); err != nil {
				return err
			}
			if err := reg.Save(registryPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated activity %s, field %s to %s\n", id, field, value)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "activity id")
	cmd.Flags().StringVar(&field, "field", "", "status, version, displayName, description, category, taskType, timeout or retries")
	cmd.Flags().StringVar(&value, "value", "", "new value")
	for _, name := range []string{"id", "field", "value"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the registry file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return err
			}
			if len(reg.Activities) == 0 {
				return fmt.Errorf("registry contains no activities")
			}
			if err := reg.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d activities.\n", len(reg.Activities))
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered activities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTASK TYPE\tSTATUS\tTIMEOUT")
			for _, a := range reg.Activities {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.TaskType, a.ImplementationStatus, a.Timeout)
			}
			return w.Flush()
		},
	}
}
