package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Mode selects the extraction strategy.
type Mode int

const (
	// ModePrecise re-encodes; cuts are frame-accurate.
	ModePrecise Mode = iota
	// ModeFast stream-copies; cuts snap to the nearest preceding keyframe.
	ModeFast
)

func (m Mode) String() string {
	if m == ModeFast {
		return "stream-copy"
	}
	return "re-encode"
}

// ExtractRequest describes one clip to cut out of a source video.
type ExtractRequest struct {
	VideoPath  string
	Start      float64 // sec
	Stop       float64 // sec
	OutputPath string
	Mode       Mode
}

// ExtractionError wraps a non-zero ffmpeg exit for a single clip.
type ExtractionError struct {
	OutputPath string
	Err        error
	Stderr     string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.OutputPath, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extractor cuts a clip from a video into a new file.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) error
}

// FFmpeg shells out to the ffmpeg binary.
type FFmpeg struct {
	Binary string
	log    logrus.FieldLogger
}

func NewFFmpeg(binary string, log logrus.FieldLogger) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FFmpeg{Binary: binary, log: log}
}

// Extract runs ffmpeg for one clip. In fast mode the seek goes before -i and
// streams are copied, so boundaries snap to keyframes; in precise mode the
// seek goes after -i and the clip is re-encoded frame-accurately.
func (f *FFmpeg) Extract(ctx context.Context, req ExtractRequest) error {
	duration := req.Stop - req.Start

	var args []string
	if req.Mode == ModeFast {
		args = []string{
			"-y",
			"-ss", fmt.Sprintf("%.6f", req.Start),
			"-i", req.VideoPath,
			"-t", fmt.Sprintf("%.6f", duration),
			"-c", "copy",
			req.OutputPath,
		}
	} else {
		args = []string{
			"-y",
			"-i", req.VideoPath,
			"-ss", fmt.Sprintf("%.6f", req.Start),
			"-t", fmt.Sprintf("%.6f", duration),
			req.OutputPath,
		}
	}

	f.log.WithFields(logrus.Fields{
		"clip": req.OutputPath,
		"mode": req.Mode.String(),
	}).Debugf("ffmpeg %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, f.Binary, args...)
	var errOut bytes.Buffer
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		return &ExtractionError{
			OutputPath: req.OutputPath,
			Err:        err,
			Stderr:     tail(errOut.String(), 500),
		}
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
