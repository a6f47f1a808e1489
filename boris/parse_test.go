package boris

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParser() *Parser {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewParser(log)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDetectCSVFormat(t *testing.T) {
	assert.Equal(t, FormatTabular, detectCSVFormat([]string{"Time", "Subject", "Behavior", "Status"}))
	assert.Equal(t, FormatTabular, detectCSVFormat([]string{"Time", "Subject", "Behavior", "Behavior type"}))
	assert.Equal(t, FormatAggregated, detectCSVFormat([]string{"Subject", "Behavior", "Start (s)", "Stop (s)"}))
	assert.Equal(t, formatUnknown, detectCSVFormat([]string{"foo", "bar"}))
}

func TestParseUnrecognizedFormat(t *testing.T) {
	path := writeFile(t, "odd.csv", "foo,bar\n1,2\n")
	_, err := testParser().Parse(path)
	assert.ErrorIs(t, err, ErrUnrecognizedFormat)
}

func TestParseMissingFile(t *testing.T) {
	_, err := testParser().Parse(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestTabularBasicPairing(t *testing.T) {
	path := writeFile(t, "events.csv",
		"Time,Subject,Behavior,Status\n"+
			"1.0,ind1,walking,START\n"+
			"4.0,ind1,walking,STOP\n")
	res, err := testParser().Parse(path)
	require.NoError(t, err)
	assert.Equal(t, FormatTabular, res.Format)
	require.Len(t, res.Observations, 1)

	bouts := res.Observations[0].Bouts
	require.Len(t, bouts, 1)
	assert.Equal(t, "ind1", bouts[0].Subject)
	assert.Equal(t, "walking", bouts[0].Behaviour)
	assert.InDelta(t, 1.0, bouts[0].Start, 1e-9)
	assert.InDelta(t, 4.0, bouts[0].Stop, 1e-9)
	assert.Equal(t, KindState, bouts[0].Kind)
}

func TestTabularPointEvent(t *testing.T) {
	path := writeFile(t, "events.csv",
		"Time,Subject,Behavior,Status\n"+
			"2.5,ind1,scratch,POINT\n")
	res, err := testParser().Parse(path)
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)

	b := res.Observations[0].Bouts[0]
	assert.True(t, b.IsPoint())
	assert.InDelta(t, 2.5, b.Start, 1e-9)
	assert.InDelta(t, 2.5, b.Stop, 1e-9)
}

func TestTabularOrphanStopSkipped(t *testing.T) {
	path := writeFile(t, "events.csv",
		"Time,Subject,Behavior,Status\n"+
			"5.0,ind1,walking,STOP\n")
	res, err := testParser().Parse(path)
	require.NoError(t, err)
	assert.Empty(t, res.Observations)
	assert.Empty(t, res.Failures)
}

func TestTabularUnclosedStartIsFailure(t *testing.T) {
	path := writeFile(t, "events.csv",
		"Time,Subject,Behavior,Status\n"+
			"1.0,ind1,walking,START\n")
	res, err := testParser().Parse(path)
	require.NoError(t, err)
	assert.Empty(t, res.Observations)
	require.Len(t, res.Failures, 1)

	var unpaired *UnpairedEventError
	require.ErrorAs(t, res.Failures[0], &unpaired)
	assert.Equal(t, "walking", unpaired.Behaviour)
	assert.InDelta(t, 1.0, unpaired.Start, 1e-9)
}

func TestTabularMultipleSubjectsIndependent(t *testing.T) {
	path := writeFile(t, "events.csv",
		"Time,Subject,Behavior,Status\n"+
			"0.0,A,run,START\n"+
			"1.0,B,run,START\n"+
			"2.0,A,run,STOP\n"+
			"3.0,B,run,STOP\n")
	res, err := testParser().Parse(path)
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)

	bouts := res.Observations[0].Bouts
	require.Len(t, bouts, 2)
	starts := map[string]float64{}
	for _, b := range bouts {
		starts[b.Subject] = b.Start
	}
	assert.InDelta(t, 0.0, starts["A"], 1e-9)
	assert.InDelta(t, 1.0, starts["B"], 1e-9)
}

func TestTabularDoubleStartReplacesEarlier(t *testing.T) {
	path := writeFile(t, "events.csv",
		"Time,Subject,Behavior,Status\n"+
			"1.0,ind1,walking,START\n"+
			"2.0,ind1,walking,START\n"+
			"4.0,ind1,walking,STOP\n")
	res, err := testParser().Parse(path)
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)

	bouts := res.Observations[0].Bouts
	require.Len(t, bouts, 1)
	assert.InDelta(t, 2.0, bouts[0].Start, 1e-9)
	assert.InDelta(t, 4.0, bouts[0].Stop, 1e-9)
	assert.Empty(t, res.Failures)
}

func TestTabularRowsSortedByTimeBeforePairing(t *testing.T) {
	path := writeFile(t, "events.csv",
		"Time,Subject,Behavior,Status\n"+
			"4.0,ind1,walking,STOP\n"+
			"1.0,ind1,walking,START\n")
	res, err := testParser().Parse(path)
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)
	require.Len(t, res.Observations[0].Bouts, 1)
	assert.InDelta(t, 1.0, res.Observations[0].Bouts[0].Start, 1e-9)
}

func TestTabularMetadataColumns(t *testing.T) {
	path := writeFile(t, "events.csv",
		"Time,Subject,Behavior,Status,Media file path,FPS,Total length\n"+
			"0.0,A,run,START,/data/video.mp4,25,60.5\n"+
			"1.0,A,run,STOP,/data/video.mp4,25,60.5\n")
	res, err := testParser().Parse(path)
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)

	ann := res.Observations[0]
	assert.Equal(t, "/data/video.mp4", ann.VideoRef)
	assert.InDelta(t, 25.0, ann.DeclaredFPS, 1e-9)
	assert.InDelta(t, 60.5, ann.DeclaredDuration, 1e-9)
}

func TestTabularMultipleMediaFilesUsesFirst(t *testing.T) {
	path := writeFile(t, "events.csv",
		"Time,Subject,Behavior,Status,Media file path\n"+
			"1.0,A,run,START,/data/first.mp4\n"+
			"2.0,A,run,STOP,/data/second.mp4\n")
	res, err := testParser().Parse(path)
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)
	assert.Equal(t, "/data/first.mp4", res.Observations[0].VideoRef)
}

func TestTabularLegacyStatusColumn(t *testing.T) {
	path := writeFile(t, "events.csv",
		"Time,Subject,Behavior,Behavior type\n"+
			"1.0,ind1,walking,START\n"+
			"4.0,ind1,walking,STOP\n")
	res, err := testParser().Parse(path)
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)
	assert.Len(t, res.Observations[0].Bouts, 1)
}

func TestTabularUnknownStatusSkipped(t *testing.T) {
	path := writeFile(t, "events.csv",
		"Time,Subject,Behavior,Status\n"+
			"1.0,ind1,walking,WIBBLE\n"+
			"2.0,ind1,scratch,POINT\n")
	res, err := testParser().Parse(path)
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)
	assert.Len(t, res.Observations[0].Bouts, 1)
}

func TestTabularObservationGrouping(t *testing.T) {
	path := writeFile(t, "events.csv",
		"Observation id,Time,Subject,Behavior,Status\n"+
			"obs1,1.0,A,run,START\n"+
			"obs1,2.0,A,run,STOP\n"+
			"obs2,3.0,B,rest,POINT\n")
	res, err := testParser().Parse(path)
	require.NoError(t, err)
	require.Len(t, res.Observations, 2)
	assert.Equal(t, "obs1", res.Observations[0].Observation)
	assert.Equal(t, "obs2", res.Observations[1].Observation)
	assert.Len(t, res.Observations[0].Bouts, 1)
	assert.Len(t, res.Observations[1].Bouts, 1)
}

func TestTabularOneObservationFailingDoesNotSinkOthers(t *testing.T) {
	path := writeFile(t, "events.csv",
		"Observation id,Time,Subject,Behavior,Status\n"+
			"bad,1.0,A,run,START\n"+
			"good,3.0,B,rest,POINT\n")
	res, err := testParser().Parse(path)
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)
	assert.Equal(t, "good", res.Observations[0].Observation)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "bad", res.Failures[0].Observation)
}

func TestCSVPreHeaderLinesSkipped(t *testing.T) {
	path := writeFile(t, "events.csv",
		"Observation id: something\n"+
			"Exported by BORIS\n"+
			"Time,Subject,Behavior,Status\n"+
			"2.5,ind1,scratch,POINT\n")
	res, err := testParser().Parse(path)
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)
	assert.Len(t, res.Observations[0].Bouts, 1)
}

func TestCSVWithBOM(t *testing.T) {
	path := writeFile(t, "events.csv",
		"\ufeffTime,Subject,Behavior,Status\n"+
			"2.5,ind1,scratch,POINT\n")
	res, err := testParser().Parse(path)
	require.NoError(t, err)
	assert.Len(t, res.Observations, 1)
}

func TestAggregatedBasicBout(t *testing.T) {
	path := writeFile(t, "agg.csv",
		"Subject,Behavior,Start (s),Stop (s)\n"+
			"ind1,grooming,10.0,15.5\n")
	res, err := testParser().Parse(path)
	require.NoError(t, err)
	assert.Equal(t, FormatAggregated, res.Format)
	require.Len(t, res.Observations, 1)

	b := res.Observations[0].Bouts[0]
	assert.InDelta(t, 10.0, b.Start, 1e-9)
	assert.InDelta(t, 15.5, b.Stop, 1e-9)
	assert.Equal(t, KindState, b.Kind)
}

func TestAggregatedCompactStartStopHeaders(t *testing.T) {
	path := writeFile(t, "agg.csv",
		"Subject,Behavior,Start(s),Stop(s)\n"+
			"ind1,grooming,10.0,15.5\n")
	res, err := testParser().Parse(path)
	require.NoError(t, err)
	assert.Equal(t, FormatAggregated, res.Format)
	require.Len(t, res.Observations, 1)

	b := res.Observations[0].Bouts[0]
	assert.InDelta(t, 10.0, b.Start, 1e-9)
	assert.InDelta(t, 15.5, b.Stop, 1e-9)
}

func TestAggregatedEqualStartStopIsPoint(t *testing.T) {
	path := writeFile(t, "agg.csv",
		"Subject,Behavior,Start (s),Stop (s)\n"+
			"ind1,vocalise,7.0,7.0\n")
	res, err := testParser().Parse(path)
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)
	assert.True(t, res.Observations[0].Bouts[0].IsPoint())
}

func TestAggregatedMissingTimesSkipped(t *testing.T) {
	path := writeFile(t, "agg.csv",
		"Subject,Behavior,Start (s),Stop (s)\n"+
			"ind1,grooming,,\n"+
			"ind1,grooming,1.0,2.0\n")
	res, err := testParser().Parse(path)
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)
	assert.Len(t, res.Observations[0].Bouts, 1)
}

func TestAggregatedEmptyObservationDropped(t *testing.T) {
	path := writeFile(t, "agg.csv",
		"Subject,Behavior,Start (s),Stop (s)\n"+
			"ind1,grooming,,\n")
	res, err := testParser().Parse(path)
	require.NoError(t, err)
	assert.Empty(t, res.Observations)
}
