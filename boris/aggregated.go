package boris

// parseAggregated handles the aggregated events export: one row per
// already-computed bout, start and stop given directly. A row with
// start == stop is a point event.
func (p *Parser) parseAggregated(path string, header []string, rows [][]string) (*ParseResult, error) {
	colSubject := colIndex(header, "Subject")
	colBehaviour := colIndex(header, "Behavior", "Behaviour")
	colStart := colIndex(header, "Start (s)", "Start(s)")
	colStop := colIndex(header, "Stop (s)", "Stop(s)")
	if colSubject < 0 || colBehaviour < 0 || colStart < 0 || colStop < 0 {
		return nil, ErrUnrecognizedFormat
	}
	colMedia := colIndex(header, "Media file path", "Media file name", "Media file")
	colFPS := colIndex(header, "FPS", "Fps")
	colDuration := colIndex(header, "Total length", "Duration")
	colObs := colIndex(header, "Observation id", "Observation")

	result := &ParseResult{Format: FormatAggregated}
	for _, g := range groupRows(rows, colObs, stemOf(path)) {
		ann := ParsedAnnotations{
			Observation: g.name,
			VideoRef:    p.mediaRef(g.rows, colMedia, g.name),
		}
		ann.DeclaredFPS, _ = uniqueNumeric(g.rows, colFPS)
		ann.DeclaredDuration, _ = uniqueNumeric(g.rows, colDuration)

		for _, row := range g.rows {
			subject := field(row, colSubject)
			behaviour := field(row, colBehaviour)
			start, okStart := parseFloat(field(row, colStart))
			stop, okStop := parseFloat(field(row, colStop))
			if !okStart || !okStop {
				p.log.WithField("observation", g.name).
					Warnf("skipping row with missing start/stop for (%q, %q)", subject, behaviour)
				continue
			}
			kind := KindState
			if start == stop {
				kind = KindPoint
			}
			ann.Bouts = append(ann.Bouts, Bout{
				Subject:   subject,
				Behaviour: behaviour,
				Start:     start,
				Stop:      stop,
				Kind:      kind,
			})
		}
		if len(ann.Bouts) == 0 {
			continue
		}
		result.Observations = append(result.Observations, ann)
	}
	return result, nil
}
