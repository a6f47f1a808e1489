package pipeline

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/ethogram-lab/boris-clip/boris"
	"github.com/ethogram-lab/boris-clip/media"
)

// Severity of a validation finding.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityHard
)

func (s Severity) String() string {
	if s == SeverityHard {
		return "hard"
	}
	return "warning"
}

// Finding is one discrepancy between the annotations and the probed video.
type Finding struct {
	Severity Severity
	Code     string
	Message  string
}

// Finding codes.
const (
	CodeFilenameMismatch = "filename-mismatch"
	CodeBoutOutOfRange   = "bout-out-of-range"
	CodeFPSDrift         = "fps-drift"
	CodeDurationDrift    = "duration-drift"
)

// Tolerances for the soft metadata checks and the bout bounds check.
type Tolerances struct {
	Duration float64 // sec
	FPS      float64
}

// DefaultTolerances match the slack BORIS itself leaves between declared and
// probed values.
var DefaultTolerances = Tolerances{Duration: 1.0, FPS: 0.1}

// Validate cross-checks parsed annotations against the probed video. Checks
// needing declared values are skipped when the source format lacks them.
// With force set, hard findings are downgraded to warnings; none are dropped.
func Validate(ann boris.ParsedAnnotations, video *media.VideoInfo, force bool, tol Tolerances) []Finding {
	var findings []Finding
	add := func(severity Severity, code, message string) {
		if force && severity == SeverityHard {
			severity = SeverityWarning
			message += " (downgraded by --force)"
		}
		findings = append(findings, Finding{Severity: severity, Code: code, Message: message})
	}

	if ann.VideoRef != "" {
		declared := filepath.Base(ann.VideoRef)
		if declared != video.Filename {
			add(SeverityHard, CodeFilenameMismatch,
				fmt.Sprintf("media filename in annotations (%q) does not match the matched video (%q)",
					declared, video.Filename))
		}
	}

	var outOfRange []boris.Bout
	for _, b := range ann.Bouts {
		if b.Stop > video.Duration+tol.Duration {
			outOfRange = append(outOfRange, b)
		}
	}
	if len(outOfRange) > 0 {
		add(SeverityHard, CodeBoutOutOfRange,
			fmt.Sprintf("%d bout(s) end after the video duration (%.3fs): %s",
				len(outOfRange), video.Duration, describeBouts(outOfRange, 5)))
	}

	if ann.DeclaredFPS > 0 && video.FPS > 0 &&
		math.Abs(ann.DeclaredFPS-video.FPS) > tol.FPS {
		add(SeverityWarning, CodeFPSDrift,
			fmt.Sprintf("declared FPS (%.4f) differs from probed FPS (%.4f); stream-copy cuts may be imprecise",
				ann.DeclaredFPS, video.FPS))
	}

	if ann.DeclaredDuration > 0 &&
		math.Abs(ann.DeclaredDuration-video.Duration) > tol.Duration {
		add(SeverityWarning, CodeDurationDrift,
			fmt.Sprintf("declared duration (%.3fs) differs from probed duration (%.3fs) by %.3fs",
				ann.DeclaredDuration, video.Duration,
				math.Abs(ann.DeclaredDuration-video.Duration)))
	}

	return findings
}

// HasHard reports whether any finding is still hard after downgrade policy.
func HasHard(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityHard {
			return true
		}
	}
	return false
}

func describeBouts(bouts []boris.Bout, limit int) string {
	details := ""
	for i, b := range bouts {
		if i == limit {
			details += fmt.Sprintf(" ... and %d more", len(bouts)-limit)
			break
		}
		if i > 0 {
			details += "; "
		}
		details += fmt.Sprintf("%q/%q ends at %.3fs", b.Behaviour, b.Subject, b.Stop)
	}
	return details
}
