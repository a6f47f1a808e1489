package pipeline

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Clip outcomes recorded in the run report.
const (
	outcomeWritten      = "written"
	outcomeFailed       = "failed"
	outcomeLimitSkipped = "skipped-max-clips"
	outcomeEmptySkipped = "skipped-empty"
)

// Report is the machine-readable artifact of one run, written when
// --report is given.
type Report struct {
	BorisFile    string              `yaml:"boris_file"`
	Format       string              `yaml:"format"`
	GeneratedAt  time.Time           `yaml:"generated_at"`
	Observations []ObservationReport `yaml:"observations"`
}

type ObservationReport struct {
	Name     string          `yaml:"name"`
	Video    string          `yaml:"video,omitempty"`
	Error    string          `yaml:"error,omitempty"`
	Findings []FindingReport `yaml:"findings,omitempty"`
	Clips    []ClipReport    `yaml:"clips,omitempty"`
}

type FindingReport struct {
	Severity string `yaml:"severity"`
	Code     string `yaml:"code"`
	Message  string `yaml:"message"`
}

type ClipReport struct {
	Behaviour string  `yaml:"behaviour"`
	Subject   string  `yaml:"subject"`
	Start     float64 `yaml:"start"`
	Stop      float64 `yaml:"stop"`
	Output    string  `yaml:"output,omitempty"`
	Outcome   string  `yaml:"outcome"`
}

// WriteReport writes the report as YAML.
func WriteReport(path string, r *Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}
