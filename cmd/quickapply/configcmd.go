package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/entrhq/quickapply/pkg/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd(a))
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a starter configuration file",
		Long:        "Write the default configuration to the --config path. Credentials are left empty; set them in the file or via QUICKAPPLY_EMAIL and QUICKAPPLY_PASSWORD.",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipSetup": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			exists, err := afero.Exists(a.fs, a.configPath)
			if err != nil {
				return fmt.Errorf("failed to check %s: %w", a.configPath, err)
			}
			if exists && !force {
				return fmt.Errorf("%w: %s already exists (use --force to overwrite)", errConfig, a.configPath)
			}
			if err := config.Save(a.fs, a.configPath, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", a.configPath)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}
