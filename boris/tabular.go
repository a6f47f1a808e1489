package boris

import (
	"path/filepath"
	"sort"
	"strings"
)

type tabularRow struct {
	time      float64
	subject   string
	behaviour string
	status    string
}

// parseTabular handles the tabular events export: one row per raw event,
// state bouts reconstructed by pairing START/STOP rows per
// (subject, behaviour) in chronological order.
func (p *Parser) parseTabular(path string, header []string, rows [][]string) (*ParseResult, error) {
	colTime := colIndex(header, "Time")
	colSubject := colIndex(header, "Subject")
	colBehaviour := colIndex(header, "Behavior", "Behaviour")
	colStatus := colIndex(header, "Status", "Behavior type", "Behaviour type")
	if colTime < 0 || colSubject < 0 || colBehaviour < 0 || colStatus < 0 {
		return nil, ErrUnrecognizedFormat
	}
	colMedia := colIndex(header, "Media file path", "Media file name", "Media file")
	colFPS := colIndex(header, "FPS", "Fps")
	colDuration := colIndex(header, "Total length", "Duration")
	colObs := colIndex(header, "Observation id", "Observation")

	result := &ParseResult{Format: FormatTabular}
	for _, g := range groupRows(rows, colObs, stemOf(path)) {
		ann := ParsedAnnotations{
			Observation: g.name,
			VideoRef:    p.mediaRef(g.rows, colMedia, g.name),
		}
		ann.DeclaredFPS, _ = uniqueNumeric(g.rows, colFPS)
		ann.DeclaredDuration, _ = uniqueNumeric(g.rows, colDuration)

		events := make([]tabularRow, 0, len(g.rows))
		for _, row := range g.rows {
			t, ok := parseFloat(field(row, colTime))
			if !ok {
				continue
			}
			events = append(events, tabularRow{
				time:      t,
				subject:   field(row, colSubject),
				behaviour: field(row, colBehaviour),
				status:    strings.ToUpper(field(row, colStatus)),
			})
		}
		sort.SliceStable(events, func(i, j int) bool { return events[i].time < events[j].time })

		bouts, err := p.pairTabular(g.name, events)
		if err != nil {
			result.Failures = append(result.Failures, &ObservationError{Observation: g.name, Err: err})
			continue
		}
		if len(bouts) == 0 {
			continue
		}
		ann.Bouts = bouts
		result.Observations = append(result.Observations, ann)
	}
	return result, nil
}

type stateKey struct{ subject, behaviour string }

func (p *Parser) pairTabular(obs string, events []tabularRow) ([]Bout, error) {
	var bouts []Bout
	open := map[stateKey]float64{}
	openOrder := []stateKey{}

	for _, ev := range events {
		key := stateKey{ev.subject, ev.behaviour}
		switch ev.status {
		case "START":
			if prev, ok := open[key]; ok {
				p.log.WithField("observation", obs).
					Warnf("START for (%q, %q) at t=%.3fs before START at t=%.3fs was closed; replacing",
						ev.subject, ev.behaviour, ev.time, prev)
			} else {
				openOrder = append(openOrder, key)
			}
			open[key] = ev.time
		case "STOP":
			start, ok := open[key]
			if !ok {
				p.log.WithField("observation", obs).
					Warnf("STOP for (%q, %q) at t=%.3fs with no matching START; skipping",
						ev.subject, ev.behaviour, ev.time)
				continue
			}
			delete(open, key)
			bouts = append(bouts, Bout{
				Subject:   ev.subject,
				Behaviour: ev.behaviour,
				Start:     start,
				Stop:      ev.time,
				Kind:      KindState,
			})
		case "POINT", "PUNCTUAL":
			bouts = append(bouts, Bout{
				Subject:   ev.subject,
				Behaviour: ev.behaviour,
				Start:     ev.time,
				Stop:      ev.time,
				Kind:      KindPoint,
			})
		default:
			p.log.WithField("observation", obs).
				Warnf("unknown event status %q at t=%.3fs; skipping row", ev.status, ev.time)
		}
	}

	for _, key := range openOrder {
		if start, ok := open[key]; ok {
			return nil, &UnpairedEventError{Subject: key.subject, Behaviour: key.behaviour, Start: start}
		}
	}
	return bouts, nil
}

type rowGroup struct {
	name string
	rows [][]string
}

// groupRows splits rows by the observation id column, preserving file order
// both of groups and of rows within a group. Without the column the whole
// file is one observation named after the file stem.
func groupRows(rows [][]string, colObs int, fallback string) []rowGroup {
	if colObs < 0 {
		return []rowGroup{{name: fallback, rows: rows}}
	}
	var groups []rowGroup
	index := map[string]int{}
	for _, row := range rows {
		name := field(row, colObs)
		if name == "" {
			name = fallback
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, rowGroup{name: name})
		}
		groups[i].rows = append(groups[i].rows, row)
	}
	if len(groups) == 0 {
		return []rowGroup{{name: fallback, rows: nil}}
	}
	return groups
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
