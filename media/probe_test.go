package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbeOutputFormatDuration(t *testing.T) {
	raw := []byte(`{
	  "format": {"duration": "120.500000"},
	  "streams": [{"codec_type": "video", "r_frame_rate": "25/1"}]
	}`)
	info, err := parseProbeOutput(raw, "/data/rec.mp4")
	require.NoError(t, err)
	assert.Equal(t, "rec.mp4", info.Filename)
	assert.InDelta(t, 120.5, info.Duration, 1e-9)
	assert.InDelta(t, 25.0, info.FPS, 1e-9)
}

func TestParseProbeOutputStreamDurationFallback(t *testing.T) {
	raw := []byte(`{
	  "format": {},
	  "streams": [
	    {"codec_type": "audio", "duration": "999"},
	    {"codec_type": "video", "duration": "60.25", "r_frame_rate": "30000/1001"}
	  ]
	}`)
	info, err := parseProbeOutput(raw, "rec.mp4")
	require.NoError(t, err)
	assert.InDelta(t, 60.25, info.Duration, 1e-9)
	assert.InDelta(t, 29.97, info.FPS, 0.001)
}

func TestParseProbeOutputMissingDuration(t *testing.T) {
	raw := []byte(`{"format": {}, "streams": [{"codec_type": "video", "r_frame_rate": "25/1"}]}`)
	_, err := parseProbeOutput(raw, "rec.mp4")
	assert.Error(t, err)
}

func TestParseProbeOutputMissingFPS(t *testing.T) {
	raw := []byte(`{"format": {"duration": "10"}, "streams": [{"codec_type": "video"}]}`)
	info, err := parseProbeOutput(raw, "rec.mp4")
	require.NoError(t, err)
	assert.Zero(t, info.FPS)
}

func TestParseProbeOutputGarbage(t *testing.T) {
	_, err := parseProbeOutput([]byte("not json"), "rec.mp4")
	assert.Error(t, err)
}

func TestParseFrameRate(t *testing.T) {
	assert.InDelta(t, 25.0, parseFrameRate("25/1"), 1e-9)
	assert.InDelta(t, 29.97, parseFrameRate("30000/1001"), 0.001)
	assert.Zero(t, parseFrameRate("25"))
	assert.Zero(t, parseFrameRate("1/0"))
	assert.Zero(t, parseFrameRate(""))
}
