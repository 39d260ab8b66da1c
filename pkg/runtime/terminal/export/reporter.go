package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/de-tools/deploy-gate/pkg/models/domain"
)

// Reporter renders a validation report as console text. Fatal and
// Critical results print first so the release blocker is the first
// thing a CI log shows.
type Reporter struct {
	writer io.Writer
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{writer: writer}
}

type reportView struct {
	Verdict    string
	Score      string
	DurationMs int64
	Summary    domain.Summary
	Failures   []domain.CheckResult
	Sections   []sectionView
}

type sectionView struct {
	Title   string
	Results []domain.CheckResult
}

const reportTemplate = `
Deployment validation: {{ .Verdict }} (score {{ .Score }}, {{ .DurationMs }}ms)
Passed: {{ .Summary.Passed }}  Warnings: {{ .Summary.Warnings }}  Critical: {{ .Summary.Critical }}  Fatal: {{ .Summary.Fatal }}
{{ if .Failures }}
Blocking issues:
{{ range .Failures }}  [{{ .Severity }}] {{ .ID }}: {{ .Message }}
{{ if .Remediation }}    fix: {{ .Remediation }}
{{ end }}{{ end }}{{ end }}
{{ range .Sections }}=== {{ .Title }} ===
{{ range .Results }}  [{{ .Severity }}] {{ .ID }}: {{ .Message }}
{{ end }}
{{ end }}`

func (r *Reporter) Handle(report *domain.Report) error {
	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse report template: %w", err)
	}
	return tmpl.Execute(r.writer, buildView(report))
}

func buildView(report *domain.Report) reportView {
	view := reportView{
		Verdict:    strings.ToUpper(string(report.Verdict)),
		Score:      fmt.Sprintf("%d/100", report.Score),
		DurationMs: report.DurationMs,
		Summary:    report.Summary,
	}
	if report.Summary.Fatal > 0 {
		view.Score = "n/a"
	}

	for _, result := range report.Results {
		if !result.Passed && result.Severity >= domain.SeverityCritical {
			view.Failures = append(view.Failures, result)
		}
	}
	// Fatal ahead of Critical; stable beyond that.
	sort.SliceStable(view.Failures, func(i, j int) bool {
		return view.Failures[i].Severity > view.Failures[j].Severity
	})

	byComponent := map[domain.Component][]domain.CheckResult{}
	for _, result := range report.Results {
		byComponent[result.Component] = append(byComponent[result.Component], result)
	}
	for _, c := range []struct {
		component domain.Component
		title     string
	}{
		{domain.ComponentArtifact, "Artifact"},
		{domain.ComponentSecurity, "Security"},
		{domain.ComponentProbe, "Endpoints"},
	} {
		if results, ok := byComponent[c.component]; ok {
			view.Sections = append(view.Sections, sectionView{Title: c.title, Results: results})
		}
	}
	return view
}

// WriteJSON emits the machine-readable report for archiving or further
// automation.
func WriteJSON(w io.Writer, report *domain.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// WriteJSONFile writes the JSON report to path.
func WriteJSONFile(path string, report *domain.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return WriteJSON(f, report)
}
