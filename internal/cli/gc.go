package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/fileguard-project/fileguard/internal/engine"
	"github.com/fileguard-project/fileguard/internal/gc"
	"github.com/fileguard-project/fileguard/pkg/color"
	"github.com/fileguard-project/fileguard/pkg/logging"
	"github.com/fileguard-project/fileguard/pkg/model"
	"github.com/fileguard-project/fileguard/pkg/progress"
)

var (
	gcRestore    bool
	gcDryRun     bool
	gcStagingDir string
	gcProgress   bool
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Clean up staging areas left by exited processes",
	Long: `Find staging areas whose owning process is no longer running and remove
them. With --restore, their staged copies are first written back to the
guarded paths, most recent capture first; an area whose restore fails is
kept.`,
	Args: cobra.NoArgs,
	RunE: runGC,
}

func init() {
	gcCmd.Flags().BoolVar(&gcRestore, "restore", false, "restore staged copies before removing")
	gcCmd.Flags().BoolVar(&gcDryRun, "dry-run", false, "only list orphaned staging areas")
	gcCmd.Flags().StringVar(&gcStagingDir, "staging-dir", "", "override staging_dir")
	gcCmd.Flags().BoolVar(&gcProgress, "progress", false, "show restore progress on stderr")
	rootCmd.AddCommand(gcCmd)
}

type gcOutput struct {
	Plan   *model.GCPlan   `json:"plan"`
	Result *model.GCResult `json:"result,omitempty"`
}

func runGC(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	base := cfg.StagingDir
	if gcStagingDir != "" {
		base = gcStagingDir
	}
	if base == "" {
		base = os.TempDir()
	}

	var eng engine.Engine
	if gcRestore && !gcDryRun {
		eng = engine.Resolve(cfg.Engine, base)
	}
	collector := gc.NewCollector(base, eng, logging.Global())
	plan, err := collector.Plan()
	if err != nil {
		return fmt.Errorf("scan staging areas: %w", err)
	}

	out := gcOutput{Plan: plan}
	if !gcDryRun {
		bar := progress.NewBar(cmd.ErrOrStderr(), gcProgress && !jsonOutput)
		collector.SetProgress(bar.Report)
		out.Result, err = collector.Run(plan, gcRestore)
		bar.Finish()
		if err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	if jsonOutput {
		if err := outputJSON(w, out); err != nil {
			return err
		}
	} else {
		printGC(w, out)
	}

	if out.Result != nil && len(out.Result.Failed) > 0 {
		return fmt.Errorf("%d staging area(s) could not be collected", len(out.Result.Failed))
	}
	return nil
}

func printGC(w io.Writer, out gcOutput) {
	plan := out.Plan
	staged := lo.SumBy(plan.Orphans, func(o model.OrphanArea) int { return len(o.Manifests) })
	fmt.Fprintf(w, "Staging areas under %s: %d orphaned (%d staged copies), %d live\n",
		color.Path(plan.BaseDir), len(plan.Orphans), staged, plan.Live)
	if len(plan.Orphans) > 0 {
		tbl := newTable(w, "Area", "Reason", "Guarded path", "Kind")
		for _, o := range plan.Orphans {
			area, reason := filepath.Base(o.Path), o.Reason
			if len(o.Manifests) == 0 {
				tbl.Append([]string{area, reason, color.Dim("(empty)"), ""})
			}
			for _, m := range o.Manifests {
				tbl.Append([]string{area, reason, m.Source, string(m.Kind)})
				area, reason = "", ""
			}
		}
		tbl.Render()
	}

	if out.Result == nil {
		fmt.Fprintln(w, "Dry run: nothing removed.")
		return
	}
	fmt.Fprintln(w, color.Success(fmt.Sprintf("Removed %d staging area(s), restored %d path(s).", len(out.Result.Removed), len(out.Result.Restored))))
	for _, f := range out.Result.Failed {
		fmt.Fprintf(w, "  %s %s\n", color.Warning("kept:"), f)
	}
	for _, s := range out.Result.Skipped {
		fmt.Fprintf(w, "  %s %s\n", color.Dim("in use by another gc:"), s)
	}
}
