// Package events parses the structured OBS trace format emitted by simulated
// mesh nodes and folds one trace into the derived per-run structures.
package events

import (
	"strconv"
	"strings"
)

// Event kinds the analysis consumes. Unknown kinds are carried through and
// ignored by the collector.
const (
	KindParent      = "PARENT"
	KindNeighbor    = "NEIGHBOR"
	KindRoot        = "ROOT"
	KindDataTx      = "DATA_TX"
	KindRootRx      = "ROOT_RX"
	KindDelay       = "DELAY"
	KindDataRx      = "DATA_RX"
	KindDataFwd     = "DATA_FWD"
	KindDataDrop    = "DATA_DROP"
	KindAttackStart = "ATTACK_START"
)

// obsToken is the fixed prefix that marks a structured event line.
const obsToken = "OBS "

// Event is one parsed trace line. Fields hold the raw key=value tokens;
// typed accessors apply the per-field defaults.
type Event struct {
	TS     int64
	Node   int
	Kind   string
	Fields map[string]string
}

// ParseLine parses one trace line. Lines without the OBS token anywhere yield
// (zero Event, false); content before the token is discarded, so framework
// prefixes on the line do not hide the event. Tokens without '=' are ignored.
func ParseLine(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if idx := strings.Index(line, obsToken); idx > 0 {
		line = line[idx:]
	}
	if !strings.HasPrefix(line, obsToken) {
		return Event{}, false
	}

	fields := make(map[string]string)
	for _, token := range strings.Fields(line)[1:] {
		key, value, ok := strings.Cut(token, "=")
		if !ok {
			continue
		}
		fields[key] = value
	}

	ev := Event{
		Kind:   fields["ev"],
		Fields: fields,
	}
	ev.TS = parseInt64(fields["ts"], 0)
	ev.Node = parseInt(fields["node"], 0)
	return ev, true
}

// Int returns a numeric field, falling back to def on absence or malformed
// input so one bad field never aborts the stream.
func (e Event) Int(key string, def int) int {
	return parseInt(e.Fields[key], def)
}

// Float returns a float field with a default.
func (e Event) Float(key string, def float64) float64 {
	raw, ok := e.Fields[key]
	if !ok {
		return def
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return value
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return value
}

func parseInt64(raw string, def int64) int64 {
	if raw == "" {
		return def
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return value
}
