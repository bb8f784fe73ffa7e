package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fileguard-project/fileguard/internal/doctor"
	"github.com/fileguard-project/fileguard/pkg/color"
)

var (
	doctorStrict     bool
	doctorStagingDir string
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the staging directory",
	Long: `Check that guards can stage in the configured staging directory, report
the clone engine they will use, and list what interrupted runs left behind.
With --strict, staged copies of orphaned areas are verified against their
recorded digests.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		base := cfg.StagingDir
		if doctorStagingDir != "" {
			base = doctorStagingDir
		}

		result, err := doctor.NewDoctor(base, cfg.Engine).Check(doctorStrict)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			if err := outputJSON(w, result); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(w, "Staging directory: %s\n", color.Path(result.BaseDir))
			if result.Engine != "" {
				fmt.Fprintf(w, "Engine: %s\n", result.Engine)
			}
			if len(result.Findings) > 0 {
				tbl := newTable(w, "Severity", "Check", "Finding", "Path")
				for _, f := range result.Findings {
					tbl.Append([]string{severity(f.Severity), f.Category, f.Description, f.Path})
				}
				tbl.Render()
			}
			if result.Healthy {
				fmt.Fprintln(w, color.Success("healthy"))
			}
		}

		if !result.Healthy {
			return fmt.Errorf("staging directory is unhealthy")
		}
		return nil
	},
}

func severity(s string) string {
	switch s {
	case "critical", "error":
		return color.Error(s)
	case "warning":
		return color.Warning(s)
	default:
		return color.Dim(s)
	}
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorStrict, "strict", false, "verify staged copies of orphaned areas")
	doctorCmd.Flags().StringVar(&doctorStagingDir, "staging-dir", "", "override staging_dir")
	rootCmd.AddCommand(doctorCmd)
}
