package pipeline

import (
	"math"
	"sort"

	"github.com/ethogram-lab/boris-clip/boris"
)

// PaddingFlags carries the padding flags as the user supplied them; nil means
// the flag was not given. Which flags are set, not just their values, drives
// the precedence rules below.
type PaddingFlags struct {
	Padding     *float64
	PaddingPre  *float64
	PaddingPost *float64

	PointPadding     *float64
	PointPaddingPre  *float64
	PointPaddingPost *float64
}

func (f PaddingFlags) anyGeneral() bool {
	return f.Padding != nil || f.PaddingPre != nil || f.PaddingPost != nil
}

func (f PaddingFlags) anyPoint() bool {
	return f.PointPadding != nil || f.PointPaddingPre != nil || f.PointPaddingPost != nil
}

// paddingRule is one step of the precedence ladder: the first rule whose
// source is set supplies the side's value.
type paddingRule struct {
	set   bool
	value float64
}

func resolveSide(rules []paddingRule) float64 {
	for _, r := range rules {
		if r.set {
			return r.value
		}
	}
	return 0
}

func deref(p *float64) paddingRule {
	if p == nil {
		return paddingRule{}
	}
	return paddingRule{set: true, value: *p}
}

// statePadding resolves padding for state events:
// per-side flag, then the two-sided --padding, then 0.
func (f PaddingFlags) statePadding() (pre, post float64) {
	pre = resolveSide([]paddingRule{deref(f.PaddingPre), deref(f.Padding)})
	post = resolveSide([]paddingRule{deref(f.PaddingPost), deref(f.Padding)})
	return pre, post
}

// pointPadding resolves padding for point events. When any point-specific
// flag is present the general flags are ignored for points and missing sides
// fall back through --point-padding to the point default. When only general
// padding was given it applies to points too. With no padding flags at all
// points get the default on both sides.
func (f PaddingFlags) pointPadding(pointDefault float64) (pre, post float64) {
	switch {
	case f.anyPoint():
		base := resolveSide([]paddingRule{deref(f.PointPadding), {set: true, value: pointDefault}})
		pre = resolveSide([]paddingRule{deref(f.PointPaddingPre), {set: true, value: base}})
		post = resolveSide([]paddingRule{deref(f.PointPaddingPost), {set: true, value: base}})
		return pre, post
	case f.anyGeneral():
		return f.statePadding()
	default:
		return pointDefault, pointDefault
	}
}

// ClipInterval is a bout resolved onto a concrete video: the padded and
// truncated interval to cut, plus the original timestamps that name the clip.
type ClipInterval struct {
	Start     float64
	Stop      float64
	OrigStart float64
	OrigStop  float64
}

func (c ClipInterval) Duration() float64 { return c.Stop - c.Start }

// Resolver applies padding, clamping, truncation and per-group limits.
type Resolver struct {
	Flags         PaddingFlags
	PointDefault  float64  // sec each side, used when no flags apply
	MaxDuration   *float64 // nil = unlimited
	MaxClips      *int     // nil = unlimited, per (behaviour, subject)
	VideoDuration float64  // 0 = unknown, no upper clamp
}

// Resolve turns one bout into its clip interval. Padding widens the interval,
// the result is clamped to [0, video duration], and --max-duration truncates
// from the end only, after padding.
func (r *Resolver) Resolve(bout boris.Bout) ClipInterval {
	var pre, post float64
	if bout.IsPoint() {
		pre, post = r.Flags.pointPadding(r.PointDefault)
	} else {
		pre, post = r.Flags.statePadding()
	}

	start := math.Max(0, bout.Start-pre)
	stop := bout.Stop + post
	if r.VideoDuration > 0 {
		stop = math.Min(r.VideoDuration, stop)
	}
	if r.MaxDuration != nil && stop-start > *r.MaxDuration {
		stop = start + *r.MaxDuration
	}

	return ClipInterval{
		Start:     start,
		Stop:      stop,
		OrigStart: bout.Start,
		OrigStop:  bout.Stop,
	}
}

// SelectBouts returns a keep-mask over bouts, in their original order.
// Bouts are grouped by (behaviour, subject); within each group they are
// ranked by original start time with file order breaking ties, and only the
// first MaxClips per group are kept.
func (r *Resolver) SelectBouts(bouts []boris.Bout) []bool {
	keep := make([]bool, len(bouts))
	if r.MaxClips == nil {
		for i := range keep {
			keep[i] = true
		}
		return keep
	}

	order := make([]int, len(bouts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return bouts[order[a]].Start < bouts[order[b]].Start
	})

	type groupKey struct{ behaviour, subject string }
	counts := map[groupKey]int{}
	for _, i := range order {
		key := groupKey{bouts[i].Behaviour, bouts[i].Subject}
		if counts[key] < *r.MaxClips {
			keep[i] = true
			counts[key]++
		}
	}
	return keep
}
