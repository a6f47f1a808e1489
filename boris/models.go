package boris

import "fmt"

// EventKind distinguishes instantaneous point events from start/stop
// state events.
type EventKind int

const (
	KindState EventKind = iota
	KindPoint
)

func (k EventKind) String() string {
	if k == KindPoint {
		return "point"
	}
	return "state"
}

// Bout is one annotated behavioural event. For point events Stop == Start.
type Bout struct {
	Subject   string
	Behaviour string
	Start     float64 // sec
	Stop      float64 // sec
	Kind      EventKind
}

func (b Bout) Duration() float64 { return b.Stop - b.Start }
func (b Bout) IsPoint() bool     { return b.Kind == KindPoint }

// ParsedAnnotations holds one observation's worth of normalised bouts plus
// whatever media metadata the source format carries. Declared values are
// zero when the format does not provide them (CSV exports mostly don't).
type ParsedAnnotations struct {
	Observation      string
	VideoRef         string // embedded media path or filename, "" if absent
	Bouts            []Bout // file order; ordering feeds --max-clips priority
	DeclaredFPS      float64
	DeclaredDuration float64
}

// Format is the closed set of supported BORIS export schemas.
type Format int

const (
	FormatProject Format = iota
	FormatTabular
	FormatAggregated
)

func (f Format) String() string {
	switch f {
	case FormatProject:
		return "boris_project"
	case FormatTabular:
		return "tabular_csv"
	default:
		return "aggregated_csv"
	}
}

// ObservationError records an observation that failed to parse; the rest of
// the file is unaffected.
type ObservationError struct {
	Observation string
	Err         error
}

func (e *ObservationError) Error() string {
	return fmt.Sprintf("observation %q: %v", e.Observation, e.Err)
}

func (e *ObservationError) Unwrap() error { return e.Err }

// ParseResult is everything a single BORIS file yields: the detected format,
// one ParsedAnnotations per observation that parsed cleanly, and one
// ObservationError per observation that did not.
type ParseResult struct {
	Format       Format
	Observations []ParsedAnnotations
	Failures     []*ObservationError
}
