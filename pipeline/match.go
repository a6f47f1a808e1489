package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethogram-lab/boris-clip/boris"
)

// NoVideoMatchError means no candidate video could be associated with an
// observation.
type NoVideoMatchError struct {
	Observation string
	Ref         string
}

func (e *NoVideoMatchError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("observation %q carries no media reference and no unique candidate video was supplied", e.Observation)
	}
	return fmt.Sprintf("no supplied video matches %q (observation %q)", e.Ref, e.Observation)
}

// AmbiguousVideoMatchError means several candidates share the referenced stem.
type AmbiguousVideoMatchError struct {
	Observation string
	Ref         string
	Matches     []string
}

func (e *AmbiguousVideoMatchError) Error() string {
	return fmt.Sprintf("media reference %q matches %d supplied videos (observation %q): %s",
		e.Ref, len(e.Matches), e.Observation, strings.Join(e.Matches, ", "))
}

// MatchVideo resolves an observation to one concrete video path. An embedded
// reference that points at an existing file wins outright; otherwise the
// reference's stem is compared, case-sensitively, against the candidates'
// stems. Without any reference a single supplied candidate is used.
func MatchVideo(ann boris.ParsedAnnotations, candidates []string) (string, error) {
	if ann.VideoRef != "" {
		if fi, err := os.Stat(ann.VideoRef); err == nil && !fi.IsDir() {
			return ann.VideoRef, nil
		}
	}

	if ann.VideoRef == "" {
		if len(candidates) == 1 {
			return candidates[0], nil
		}
		return "", &NoVideoMatchError{Observation: ann.Observation}
	}

	refStem := stem(ann.VideoRef)
	var matches []string
	for _, cand := range candidates {
		if stem(cand) == refStem {
			matches = append(matches, cand)
		}
	}
	switch len(matches) {
	case 0:
		return "", &NoVideoMatchError{Observation: ann.Observation, Ref: ann.VideoRef}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousVideoMatchError{Observation: ann.Observation, Ref: ann.VideoRef, Matches: matches}
	}
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
