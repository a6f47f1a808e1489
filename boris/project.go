package boris

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

type projectFile struct {
	Ethogram     map[string]ethogramEntry      `json:"ethogram"`
	Observations map[string]projectObservation `json:"observations"`
}

type ethogramEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type projectObservation struct {
	Events    []json.RawMessage `json:"events"`
	File      any               `json:"file"`
	MediaFile any               `json:"media_file_name"`
	MediaInfo any               `json:"media_info"`
}

type projectEvent struct {
	time      float64
	subject   string
	behaviour string
}

// parseProject handles the .boris project file: a JSON document carrying one
// or more observations, each with embedded media paths, declared fps and
// duration, and a flat event list. State events are paired by toggling
// per (subject, behaviour); the ethogram says which behaviours are points.
func (p *Parser) parseProject(path string, raw []byte) (*ParseResult, error) {
	var project projectFile
	if err := json.Unmarshal(raw, &project); err != nil {
		return nil, fmt.Errorf("%s: %w", path, ErrUnrecognizedFormat)
	}
	if len(project.Observations) == 0 {
		return nil, fmt.Errorf("%s: no observations in project file", path)
	}

	pointBehaviours := map[string]bool{}
	for _, entry := range project.Ethogram {
		name := strings.TrimSpace(entry.Name)
		if name != "" && strings.Contains(strings.ToLower(entry.Type), "point") {
			pointBehaviours[name] = true
		}
	}

	obsIDs := make([]string, 0, len(project.Observations))
	for id := range project.Observations {
		obsIDs = append(obsIDs, id)
	}
	sort.Strings(obsIDs)

	result := &ParseResult{Format: FormatProject}
	for _, id := range obsIDs {
		obs := project.Observations[id]
		ann, err := p.parseObservation(id, obs, pointBehaviours)
		if err != nil {
			result.Failures = append(result.Failures, &ObservationError{Observation: id, Err: err})
			continue
		}
		if len(ann.Bouts) == 0 {
			continue
		}
		result.Observations = append(result.Observations, *ann)
	}
	return result, nil
}

func (p *Parser) parseObservation(id string, obs projectObservation, pointBehaviours map[string]bool) (*ParsedAnnotations, error) {
	ann := &ParsedAnnotations{Observation: id}

	ann.VideoRef = firstMediaRef(obs.File)
	if ann.VideoRef == "" {
		ann.VideoRef = firstMediaRef(obs.MediaFile)
	}
	ann.DeclaredFPS, ann.DeclaredDuration = mediaInfoValues(obs.MediaInfo)

	events := make([]projectEvent, 0, len(obs.Events))
	for _, rawEv := range obs.Events {
		var fields []any
		if err := json.Unmarshal(rawEv, &fields); err != nil || len(fields) < 3 {
			continue
		}
		t, ok := fields[0].(float64)
		if !ok {
			continue
		}
		events = append(events, projectEvent{
			time:      t,
			subject:   strings.TrimSpace(fmt.Sprint(fields[1])),
			behaviour: strings.TrimSpace(fmt.Sprint(fields[2])),
		})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].time < events[j].time })

	open := map[stateKey]float64{}
	openOrder := []stateKey{}
	for _, ev := range events {
		if pointBehaviours[ev.behaviour] {
			ann.Bouts = append(ann.Bouts, Bout{
				Subject:   ev.subject,
				Behaviour: ev.behaviour,
				Start:     ev.time,
				Stop:      ev.time,
				Kind:      KindPoint,
			})
			continue
		}
		key := stateKey{ev.subject, ev.behaviour}
		if start, ok := open[key]; ok {
			delete(open, key)
			ann.Bouts = append(ann.Bouts, Bout{
				Subject:   ev.subject,
				Behaviour: ev.behaviour,
				Start:     start,
				Stop:      ev.time,
				Kind:      KindState,
			})
		} else {
			open[key] = ev.time
			openOrder = append(openOrder, key)
		}
	}
	for _, key := range openOrder {
		if start, ok := open[key]; ok {
			return nil, &UnpairedEventError{Subject: key.subject, Behaviour: key.behaviour, Start: start}
		}
	}
	return ann, nil
}

// firstMediaRef digs the first media path out of the project's "file" value,
// which BORIS stores either as a plain string or as a dict keyed by player
// number holding a path list or a single path.
func firstMediaRef(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			switch inner := val[k].(type) {
			case string:
				if s := strings.TrimSpace(inner); s != "" {
					return s
				}
			case []any:
				for _, item := range inner {
					if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
						return strings.TrimSpace(s)
					}
				}
			}
		}
	}
	return ""
}

// mediaInfoValues walks the nested media_info maps and returns the first fps
// and duration found.
func mediaInfoValues(v any) (fps, duration float64) {
	outer, ok := v.(map[string]any)
	if !ok {
		return 0, 0
	}
	keys := make([]string, 0, len(outer))
	for k := range outer {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		inner, ok := outer[k].(map[string]any)
		if !ok {
			continue
		}
		innerKeys := make([]string, 0, len(inner))
		for ik := range inner {
			innerKeys = append(innerKeys, ik)
		}
		sort.Strings(innerKeys)
		for _, ik := range innerKeys {
			info, ok := inner[ik].(map[string]any)
			if !ok {
				continue
			}
			if fps == 0 {
				if f, ok := info["fps"].(float64); ok {
					fps = f
				}
			}
			if duration == 0 {
				if d, ok := info["duration"].(float64); ok {
					duration = d
				}
			}
		}
	}
	return fps, duration
}
