package pipeline

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ethogram-lab/boris-clip/boris"
	"github.com/ethogram-lab/boris-clip/media"
)

const noFocalSubject = "no-focal-subject"

var (
	unsafeChars       = regexp.MustCompile(`[^A-Za-z0-9-]`)
	repeatUnderscores = regexp.MustCompile(`_+`)
)

// sanitizeName makes a BORIS name safe as a filename component.
func sanitizeName(name string) string {
	name = unsafeChars.ReplaceAllString(strings.TrimSpace(name), "_")
	name = repeatUnderscores.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}

// normalizeSubject maps the "no focal subject" sentinels onto one canonical
// component.
func normalizeSubject(subject string) string {
	switch strings.ToLower(strings.TrimSpace(subject)) {
	case "", "no focal subject", noFocalSubject:
		return noFocalSubject
	}
	return sanitizeName(subject)
}

// ClipName derives the output filename for one clip. The time interval uses
// the original (unpadded) bout timestamps so the name is stable regardless of
// padding settings. Collisions are left to the caller.
func ClipName(video *media.VideoInfo, bout boris.Bout, interval ClipInterval) string {
	videoStem := sanitizeName(strings.TrimSuffix(video.Filename, filepath.Ext(video.Filename)))
	span := fmt.Sprintf("%.3f-%.3f", interval.OrigStart, interval.OrigStop)

	parts := []string{videoStem, sanitizeName(bout.Behaviour), normalizeSubject(bout.Subject), span}
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "_") + ".mp4"
}
