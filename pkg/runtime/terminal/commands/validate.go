package commands

import (
	"fmt"
	"time"

	"github.com/de-tools/deploy-gate/pkg/runtime/terminal/export"
	"github.com/de-tools/deploy-gate/pkg/services/config"
	"github.com/de-tools/deploy-gate/pkg/services/pipeline"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// ExitCodeError carries the process exit code derived from the
// verdict. The mapping to os.Exit happens exactly once, in main.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("validation failed with exit code %d", e.Code)
}

type ValidateCmd struct {
	buildDir    string
	targetFlags []string
	profilePath string
	timeout     int
	concurrency int
	strict      bool
	jsonOutput  string
	verbose     bool
	reporter    *export.Reporter
}

func NewValidateCmd(reporter *export.Reporter) *cobra.Command {
	vc := &ValidateCmd{reporter: reporter}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a build artifact and/or a live deployment",
		RunE:  vc.run,
	}

	cmd.Flags().StringVar(&vc.buildDir, "build-dir", "", "Path to the build output directory")
	cmd.Flags().StringArrayVar(&vc.targetFlags, "url", nil, "Deployment target as NAME=URL (repeatable)")
	cmd.Flags().StringVar(&vc.profilePath, "profile", "", "Path to a validation profile file")
	cmd.Flags().IntVar(&vc.timeout, "timeout", 0, "Overall pipeline timeout in seconds")
	cmd.Flags().IntVar(&vc.concurrency, "concurrency", 0, "Maximum concurrent endpoint probes")
	cmd.Flags().BoolVar(&vc.strict, "strict", false, "Treat warnings as failures")
	cmd.Flags().StringVar(&vc.jsonOutput, "json-output", "", "Write the JSON report to this path")
	cmd.Flags().BoolVar(&vc.verbose, "verbose", false, "Enable debug logging")

	return cmd
}

func (vc *ValidateCmd) run(cmd *cobra.Command, args []string) error {
	// Missing .env is fine; targets can come from flags or the profile.
	_ = godotenv.Load()

	cfg, err := vc.buildConfig()
	if err != nil {
		return err
	}
	if cfg.BuildDir == "" && len(cfg.Targets) == 0 {
		return fmt.Errorf("nothing to validate: pass --build-dir and/or --url")
	}

	// The report is the user-facing output; logging goes to stderr.
	level := zerolog.WarnLevel
	if vc.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(cmd.ErrOrStderr()).Level(level).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	report := pipeline.New(cfg, &logger).Run(ctx)

	if err := vc.reporter.Handle(report); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	if vc.jsonOutput != "" {
		if err := export.WriteJSONFile(vc.jsonOutput, report); err != nil {
			return err
		}
	}

	if code := report.ExitCode(cfg.Strict); code != 0 {
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return &ExitCodeError{Code: code}
	}
	return nil
}

// buildConfig layers flag values over environment targets over the
// profile file, flags winning.
func (vc *ValidateCmd) buildConfig() (*config.Config, error) {
	cfg, err := config.Load(vc.profilePath)
	if err != nil {
		return nil, err
	}

	if vc.buildDir != "" {
		cfg.BuildDir = vc.buildDir
	}
	if vc.timeout > 0 {
		cfg.PipelineTimeout = time.Duration(vc.timeout) * time.Second
	}
	if vc.concurrency > 0 {
		cfg.Probe.Concurrency = vc.concurrency
	}
	if vc.strict {
		cfg.Strict = true
	}

	var flagTargets []config.Target
	for _, raw := range vc.targetFlags {
		t, err := config.ParseTargetFlag(raw)
		if err != nil {
			return nil, err
		}
		flagTargets = append(flagTargets, t)
	}
	cfg.Targets = config.MergeTargets(cfg.Targets, config.EnvTargets(), flagTargets)

	return cfg, nil
}
