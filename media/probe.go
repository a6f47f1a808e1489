package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// VideoInfo is the metadata of one physical video, as reported by ffprobe.
type VideoInfo struct {
	Path     string
	Filename string
	Duration float64 // sec
	FPS      float64 // 0 when undetermined
}

// ProbeError wraps any failure to inspect a video file.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string { return fmt.Sprintf("probe %s: %v", e.Path, e.Err) }
func (e *ProbeError) Unwrap() error { return e.Err }

// Prober inspects a video file and reports its metadata.
type Prober interface {
	Probe(ctx context.Context, path string) (*VideoInfo, error)
}

// FFprobe shells out to the ffprobe binary.
type FFprobe struct {
	Binary string
	log    logrus.FieldLogger
}

func NewFFprobe(binary string, log logrus.FieldLogger) *FFprobe {
	if binary == "" {
		binary = "ffprobe"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FFprobe{Binary: binary, log: log}
}

func (f *FFprobe) Probe(ctx context.Context, path string) (*VideoInfo, error) {
	cmd := exec.CommandContext(ctx, f.Binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(errOut.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, &ProbeError{Path: path, Err: err}
	}

	info, err := parseProbeOutput(out.Bytes(), path)
	if err != nil {
		return nil, &ProbeError{Path: path, Err: err}
	}
	if info.FPS == 0 {
		f.log.WithField("video", path).
			Warn("could not determine FPS; frame-accurate seeking may be unreliable")
	}
	return info, nil
}

type probePayload struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		Duration   string `json:"duration"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

// parseProbeOutput decodes ffprobe's JSON report. Duration prefers the
// format-level value and falls back to the first video stream; fps comes
// from r_frame_rate as a num/den rational.
func parseProbeOutput(raw []byte, path string) (*VideoInfo, error) {
	var payload probePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}

	duration, haveDuration := parseProbeFloat(payload.Format.Duration)
	var fps float64
	for _, stream := range payload.Streams {
		if stream.CodecType != "video" {
			continue
		}
		if !haveDuration {
			duration, haveDuration = parseProbeFloat(stream.Duration)
		}
		fps = parseFrameRate(stream.RFrameRate)
		break
	}
	if !haveDuration {
		return nil, fmt.Errorf("could not determine duration")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &VideoInfo{
		Path:     abs,
		Filename: filepath.Base(path),
		Duration: duration,
		FPS:      fps,
	}, nil
}

func parseProbeFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v, err == nil
}

func parseFrameRate(s string) float64 {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return 0
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
