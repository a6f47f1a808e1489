package boris

import (
	"errors"
	"fmt"
)

// ErrUnrecognizedFormat is returned when a file matches none of the three
// supported schemas.
var ErrUnrecognizedFormat = errors.New("unrecognized BORIS format")

// UnpairedEventError reports a state event START that never saw its STOP
// before the observation ended.
type UnpairedEventError struct {
	Subject   string
	Behaviour string
	Start     float64
}

func (e *UnpairedEventError) Error() string {
	return fmt.Sprintf("state event (%q, %q) opened at t=%.3fs was never closed",
		e.Subject, e.Behaviour, e.Start)
}
