package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"quizmap-service/internal/domain"
)

// NewResetCmd wipes players and the leaderboard and restores the built-in catalog.
func NewResetCmd(configPath *string) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all player progress and restore the default catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			cfg, logger, err := loadForCommand(*configPath)
			if err != nil {
				return err
			}
			d, err := buildService(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer d.Close()
			if err := d.service.ResetAll(cmd.Context(), domain.AdminName); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all data reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

// NewExportDashboardCmd writes the admin dashboard as an xlsx workbook.
func NewExportDashboardCmd(configPath *string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-dashboard",
		Short: "Export the admin dashboard to an xlsx file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadForCommand(*configPath)
			if err != nil {
				return err
			}
			d, err := buildService(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer d.Close()

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := d.service.ExportDashboard(cmd.Context(), domain.AdminName, f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dashboard written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "dashboard.xlsx", "output file")
	return cmd
}
