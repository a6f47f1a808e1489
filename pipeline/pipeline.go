package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethogram-lab/boris-clip/boris"
	"github.com/ethogram-lab/boris-clip/media"
)

// Options configure one run.
type Options struct {
	OutputDir    string
	Behaviours   []string // empty = keep all
	Padding      PaddingFlags
	PointDefault float64
	MaxDuration  *float64
	MaxClips     *int
	Fast         bool
	Force        bool
	Tolerances   Tolerances
	ReportPath   string // "" = no report artifact
}

// Pipeline runs the full annotation-to-clip flow: parse, then per
// observation match, probe, validate, resolve, name, extract. Observations
// fail independently; the run keeps going.
type Pipeline struct {
	prober    media.Prober
	extractor media.Extractor
	opts      Options
	log       logrus.FieldLogger
}

func New(prober media.Prober, extractor media.Extractor, opts Options, log logrus.FieldLogger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{prober: prober, extractor: extractor, opts: opts, log: log}
}

// Result summarises a run. HardFailures counts every hard-severity failure
// that survived downgrade policy; a nonzero count means a nonzero exit.
type Result struct {
	ClipsWritten int
	HardFailures int
	Report       Report
}

func (p *Pipeline) Run(ctx context.Context, borisFile string, videos []string) (*Result, error) {
	parsed, err := boris.NewParser(p.log).Parse(borisFile)
	if err != nil {
		return nil, err
	}
	p.log.WithFields(logrus.Fields{
		"format":       parsed.Format.String(),
		"observations": len(parsed.Observations),
	}).Infof("parsed %s", borisFile)

	result := &Result{Report: Report{
		BorisFile:   borisFile,
		Format:      parsed.Format.String(),
		GeneratedAt: time.Now(),
	}}

	for _, failure := range parsed.Failures {
		p.log.WithField("observation", failure.Observation).Errorf("parse failed: %v", failure.Err)
		result.HardFailures++
		result.Report.Observations = append(result.Report.Observations, ObservationReport{
			Name:  failure.Observation,
			Error: failure.Err.Error(),
		})
	}

	for _, ann := range parsed.Observations {
		report := p.runObservation(ctx, ann, videos, result)
		result.Report.Observations = append(result.Report.Observations, report)
	}

	if p.opts.ReportPath != "" {
		if err := WriteReport(p.opts.ReportPath, &result.Report); err != nil {
			return result, fmt.Errorf("write report: %w", err)
		}
	}
	return result, nil
}

func (p *Pipeline) runObservation(ctx context.Context, ann boris.ParsedAnnotations, videos []string, result *Result) ObservationReport {
	report := ObservationReport{Name: ann.Observation}
	log := p.log.WithField("observation", ann.Observation)

	bouts := filterBehaviours(ann.Bouts, p.opts.Behaviours)
	if len(bouts) == 0 {
		log.Info("no bouts left after behaviour filter; skipping")
		return report
	}
	ann.Bouts = bouts

	videoPath, err := MatchVideo(ann, videos)
	if err != nil {
		log.Errorf("video matching failed: %v", err)
		result.HardFailures++
		report.Error = err.Error()
		return report
	}

	video, err := p.prober.Probe(ctx, videoPath)
	if err != nil {
		log.Errorf("probe failed: %v", err)
		result.HardFailures++
		report.Error = err.Error()
		return report
	}
	report.Video = video.Path
	log = log.WithField("video", video.Filename)
	log.Infof("duration %.3fs, fps %.4f", video.Duration, video.FPS)

	findings := Validate(ann, video, p.opts.Force, p.opts.Tolerances)
	for _, f := range findings {
		report.Findings = append(report.Findings, FindingReport{
			Severity: f.Severity.String(), Code: f.Code, Message: f.Message,
		})
		if f.Severity == SeverityHard {
			log.Error(f.Message)
		} else {
			log.Warn(f.Message)
		}
	}
	if HasHard(findings) {
		log.Error("validation failed; no clips produced for this observation")
		result.HardFailures++
		report.Error = "validation failed"
		return report
	}

	if err := os.MkdirAll(p.opts.OutputDir, 0o755); err != nil {
		log.Errorf("create output dir: %v", err)
		result.HardFailures++
		report.Error = err.Error()
		return report
	}

	resolver := Resolver{
		Flags:         p.opts.Padding,
		PointDefault:  p.opts.PointDefault,
		MaxDuration:   p.opts.MaxDuration,
		MaxClips:      p.opts.MaxClips,
		VideoDuration: video.Duration,
	}
	keep := resolver.SelectBouts(ann.Bouts)
	total := 0
	for _, k := range keep {
		if k {
			total++
		}
	}

	mode := media.ModePrecise
	if p.opts.Fast {
		mode = media.ModeFast
	}

	n := 0
	for i, bout := range ann.Bouts {
		boutLog := log.WithFields(logrus.Fields{
			"behaviour": bout.Behaviour,
			"subject":   bout.Subject,
		})
		if !keep[i] {
			boutLog.Debugf("skipping bout at t=%.3fs: --max-clips limit reached", bout.Start)
			skipped := ClipInterval{Start: bout.Start, Stop: bout.Stop, OrigStart: bout.Start, OrigStop: bout.Stop}
			report.Clips = append(report.Clips, p.clipReport(bout, skipped, "", outcomeLimitSkipped))
			continue
		}

		interval := resolver.Resolve(bout)
		name := ClipName(video, bout, interval)
		outPath := filepath.Join(p.opts.OutputDir, name)

		if interval.Duration() <= 0 {
			boutLog.Warnf("bout at t=%.3fs has zero or negative duration after padding; skipping", bout.Start)
			report.Clips = append(report.Clips, p.clipReport(bout, interval, name, outcomeEmptySkipped))
			continue
		}

		n++
		log.Infof("[%d/%d] %s", n, total, name)
		err := p.extractor.Extract(ctx, media.ExtractRequest{
			VideoPath:  video.Path,
			Start:      interval.Start,
			Stop:       interval.Stop,
			OutputPath: outPath,
			Mode:       mode,
		})
		if err != nil {
			boutLog.Errorf("extraction failed: %v", err)
			result.HardFailures++
			report.Clips = append(report.Clips, p.clipReport(bout, interval, name, outcomeFailed))
			continue
		}
		result.ClipsWritten++
		report.Clips = append(report.Clips, p.clipReport(bout, interval, name, outcomeWritten))
	}
	return report
}

func (p *Pipeline) clipReport(bout boris.Bout, interval ClipInterval, name, outcome string) ClipReport {
	return ClipReport{
		Behaviour: bout.Behaviour,
		Subject:   bout.Subject,
		Start:     interval.Start,
		Stop:      interval.Stop,
		Output:    name,
		Outcome:   outcome,
	}
}

func filterBehaviours(bouts []boris.Bout, behaviours []string) []boris.Bout {
	if len(behaviours) == 0 {
		return bouts
	}
	wanted := make(map[string]bool, len(behaviours))
	for _, b := range behaviours {
		wanted[b] = true
	}
	kept := make([]boris.Bout, 0, len(bouts))
	for _, b := range bouts {
		if wanted[b.Behaviour] {
			kept = append(kept, b)
		}
	}
	return kept
}
