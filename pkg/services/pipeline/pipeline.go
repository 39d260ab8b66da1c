package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/de-tools/deploy-gate/pkg/models/domain"
	"github.com/de-tools/deploy-gate/pkg/services/aggregate"
	"github.com/de-tools/deploy-gate/pkg/services/config"
	"github.com/de-tools/deploy-gate/pkg/services/inspect"
	"github.com/de-tools/deploy-gate/pkg/services/probe"
	"github.com/de-tools/deploy-gate/pkg/services/security"
	"github.com/rs/zerolog"
)

// Check is one unit of the validation registry. Implementations return
// their results as pure values and never leak faults upward; the
// runner converts a panic into a Critical result.
type Check interface {
	ID() string
	Run(ctx context.Context) []domain.CheckResult
}

type checkFunc struct {
	id  string
	run func(ctx context.Context) []domain.CheckResult
}

func (c checkFunc) ID() string                                   { return c.id }
func (c checkFunc) Run(ctx context.Context) []domain.CheckResult { return c.run(ctx) }

// Pipeline wires the checkers together and owns the overall deadline.
type Pipeline struct {
	cfg       *config.Config
	inspector *inspect.Inspector
	auditor   *security.Auditor
	prober    *probe.Prober
}

func New(cfg *config.Config, logger *zerolog.Logger) *Pipeline {
	auditor := security.NewAuditor()
	return &Pipeline{
		cfg:       cfg,
		inspector: inspect.NewInspector(cfg.BuildDir, cfg.Artifact),
		auditor:   auditor,
		prober:    probe.NewProber(cfg.Targets, cfg.Probe, auditor, logger),
	}
}

// localChecks is the fixed registry of file-based checks. They are
// local and fast, so they run synchronously in registry order.
func (p *Pipeline) localChecks() []Check {
	checks := []Check{
		checkFunc{"artifact.files", func(context.Context) []domain.CheckResult {
			return p.inspector.CheckRequiredFiles()
		}},
		checkFunc{"artifact.html", func(context.Context) []domain.CheckResult {
			return p.inspector.ValidateHTMLStructure()
		}},
		checkFunc{"artifact.manifest", func(context.Context) []domain.CheckResult {
			return p.inspector.ValidateManifest()
		}},
		checkFunc{"artifact.assets", func(context.Context) []domain.CheckResult {
			return p.inspector.CheckAssetReferences()
		}},
		checkFunc{"artifact.bundle", func(context.Context) []domain.CheckResult {
			return p.inspector.CheckBundleSize()
		}},
		checkFunc{"security.secrets", func(context.Context) []domain.CheckResult {
			return p.auditor.ScanForSecrets(p.cfg.BuildDir)
		}},
		checkFunc{"security.sensitiveFiles", func(context.Context) []domain.CheckResult {
			return p.auditor.CheckSensitiveFilesExposed(p.cfg.BuildDir)
		}},
		checkFunc{"security.mixedContent", func(context.Context) []domain.CheckResult {
			html, err := os.ReadFile(filepath.Join(p.cfg.BuildDir, "index.html"))
			if err != nil {
				// The unreadable entry point is already Critical via the
				// inspector; still account for the skipped scan.
				return []domain.CheckResult{{
					ID:        "security.mixedContent",
					Component: domain.ComponentSecurity,
					Severity:  domain.SeverityInfo,
					Passed:    false,
					Message:   fmt.Sprintf("skipped: index.html is not readable: %v", err),
				}}
			}
			return p.auditor.CheckMixedContent(string(html))
		}},
		checkFunc{"security.advisories", func(context.Context) []domain.CheckResult {
			return p.auditor.CheckDependencyAdvisories(p.cfg.BuildDir)
		}},
	}
	return checks
}

// Run executes the full pipeline and builds the Report exactly once.
// When a build directory is configured, its existence is the one hard
// precondition; a Fatal result aborts all remaining work. Without a
// build directory the artifact and local security checks are out of
// scope and only the endpoint probes run.
func (p *Pipeline) Run(ctx context.Context) *domain.Report {
	started := time.Now()
	logger := zerolog.Ctx(ctx)

	ctx, cancel := context.WithTimeout(ctx, p.cfg.PipelineTimeout)
	defer cancel()

	var results []domain.CheckResult
	if p.cfg.BuildDir != "" {
		precondition := p.inspector.CheckDirectoryExists()
		if !precondition.Passed {
			logger.Error().Str("build_dir", p.cfg.BuildDir).Msg("build directory missing, aborting pipeline")
			return aggregate.Build([]domain.CheckResult{precondition}, started, p.cfg.BuildDir)
		}

		results = append(results, precondition)
		for _, check := range p.localChecks() {
			results = append(results, runGuarded(ctx, check)...)
		}
	}

	if len(p.cfg.Targets) > 0 {
		logger.Info().Int("targets", len(p.cfg.Targets)).Msg("starting endpoint probes")
		results = append(results, p.prober.RunAll(ctx)...)
	}

	report := aggregate.Build(results, started, p.cfg.BuildDir)
	logger.Info().
		Str("verdict", string(report.Verdict)).
		Int("score", report.Score).
		Int("critical", report.Summary.Critical).
		Int("warnings", report.Summary.Warnings).
		Msg("pipeline finished")
	return report
}

// runGuarded is the check boundary for local checks: an unexpected
// internal fault becomes a Critical result, never a crash.
func runGuarded(ctx context.Context, c Check) (results []domain.CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			zerolog.Ctx(ctx).Error().Str("check", c.ID()).Msgf("check panicked: %v", r)
			results = []domain.CheckResult{{
				ID:        c.ID(),
				Component: domain.ComponentArtifact,
				Severity:  domain.SeverityCritical,
				Passed:    false,
				Message:   fmt.Sprintf("check %s failed internally: %v", c.ID(), r),
			}}
		}
	}()
	return c.Run(ctx)
}
