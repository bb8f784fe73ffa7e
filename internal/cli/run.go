package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/fileguard-project/fileguard/pkg/errclass"
	"github.com/fileguard-project/fileguard/pkg/fileguard"
	"github.com/fileguard-project/fileguard/pkg/logging"
	"github.com/fileguard-project/fileguard/pkg/metrics"
	"github.com/fileguard-project/fileguard/pkg/model"
)

var (
	runPaths       []string
	runReport      bool
	runVerify      bool
	runStagingDir  string
	runMetricsFile string
)

// runResult is the --json output of run.
type runResult struct {
	Paths    []string              `json:"paths"`
	ExitCode int                   `json:"exit_code"`
	Changes  []*model.ChangeReport `json:"changes,omitempty"`
}

var runCmd = &cobra.Command{
	Use:   "run -p PATH [-p PATH...] -- COMMAND [ARGS...]",
	Short: "Run a command with paths guarded",
	Long: `Run a command with one or more paths guarded. Every path is captured
before the command starts and restored after it exits, in reverse order.
fileguard exits with the command's exit status.

Paths may be doublestar glob patterns; each match is guarded.

Examples:
  fileguard run -p config.yaml -- ./migrate.sh
  fileguard run -p 'conf/**/*.yaml' -- ./render.sh
  fileguard run -p data/ -p out.log --report -- make test`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGuarded,
}

func init() {
	runCmd.Flags().StringArrayVarP(&runPaths, "path", "p", nil, "path to guard (repeatable)")
	runCmd.Flags().BoolVar(&runReport, "report", false, "report what the command changed before restoring")
	runCmd.Flags().BoolVar(&runVerify, "verify", false, "verify restored content against its capture")
	runCmd.Flags().StringVar(&runStagingDir, "staging-dir", "", "override staging_dir")
	runCmd.Flags().SetInterspersed(false)
	runCmd.Flags().StringVar(&runMetricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	rootCmd.AddCommand(runCmd)
}

func runGuarded(cmd *cobra.Command, args []string) error {
	if len(runPaths) == 0 {
		return errclass.ErrPathInvalid.WithMessage("at least one --path is required")
	}
	paths, err := expandPaths(runPaths)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runVerify {
		cfg.Verify = true
	}
	if runStagingDir != "" {
		cfg.StagingDir = runStagingDir
	}

	opts, err := fileguard.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	opts.Logger.SetOutput(cmd.ErrOrStderr())

	var reg *metrics.Registry
	if cfg.Metrics.Enabled || runMetricsFile != "" {
		reg = metrics.NewRegistry()
		opts.Metrics = reg
	}

	var reports []*model.ChangeReport
	if runReport {
		opts.OnChange = func(r *model.ChangeReport) {
			reports = append(reports, r)
		}
	}

	m := fileguard.NewManager(opts)
	started := false
	exitCode := 0
	err = m.Guard(paths...).Run(func() error {
		started = true
		code, err := runChild(cmd, args)
		exitCode = code
		return err
	})
	if closeErr := m.Close(); closeErr != nil {
		logging.Global().WarnErr("close guard manager", closeErr)
	}

	if reg != nil && runMetricsFile != "" {
		if werr := prometheus.WriteToTextfile(runMetricsFile, reg.Gatherer()); werr != nil {
			logging.Global().WarnErr("write metrics file", werr, map[string]any{"path": runMetricsFile})
		}
	}

	if !started {
		return err
	}

	if jsonOutput {
		if jerr := outputJSON(cmd.OutOrStdout(), runResult{Paths: paths, ExitCode: exitCode, Changes: reports}); jerr != nil {
			return jerr
		}
	} else {
		for _, r := range reports {
			fmt.Fprint(cmd.ErrOrStderr(), formatReport(r))
		}
	}

	if restoreErr := restoreFailures(err); restoreErr != nil {
		return restoreErr
	}
	if exitCode == 127 && err != nil {
		fmtErr(cmd.ErrOrStderr(), "%v", err)
	}
	if exitCode != 0 {
		return &exitError{code: exitCode}
	}
	return nil
}

// restoreFailures drops the command's own failure from err, leaving what
// went wrong while restoring.
func restoreFailures(err error) error {
	return multierr.Combine(lo.Filter(multierr.Errors(err), func(e error, _ int) bool {
		return !errors.Is(e, errclass.ErrOperationFailure)
	})...)
}

// runChild runs args with the CLI's standard streams, forwarding interrupts
// so the command exits before paths are restored.
func runChild(cmd *cobra.Command, args []string) (int, error) {
	child := exec.Command(args[0], args[1:]...)
	child.Stdin = cmd.InOrStdin()
	child.Stdout = cmd.OutOrStdout()
	if jsonOutput {
		child.Stdout = cmd.ErrOrStderr()
	}
	child.Stderr = cmd.ErrOrStderr()

	if err := child.Start(); err != nil {
		return 127, fmt.Errorf("start %s: %w", args[0], err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case s := <-sigs:
				child.Process.Signal(s)
			case <-done:
				return
			}
		}
	}()

	err := child.Wait()
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		code := ee.ExitCode()
		if code < 0 {
			code = 1
		}
		return code, err
	}
	if err != nil {
		return 1, err
	}
	return 0, nil
}
