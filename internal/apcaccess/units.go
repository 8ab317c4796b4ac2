package apcaccess

import "strings"

// UnitTable is an ordered list of unit suffixes that may trail a value.
// Order is priority: the first matching entry wins, so a unit must be
// listed before any shorter unit that is also a suffix of the same text.
type UnitTable []string

// DefaultUnits lists the units apcupsd appends to values.
//
// Multi-word and longer units come first so they are never shadowed by a
// shorter entry, e.g. "Percent Load Capacity" must precede "Percent".
var DefaultUnits = UnitTable{
	"Percent Load Capacity",
	"Minutes",
	"Seconds",
	"Percent",
	"Volts",
	"Watts",
	"Amps",
	"Hz",
	"VA",
	"C",
}

// Strip removes at most one "<space><unit>" from the end of record.
// The record is returned unchanged when no unit matches.
func (t UnitTable) Strip(record string) string {
	for _, unit := range t {
		stripped, ok := strings.CutSuffix(record, unit)
		if !ok {
			continue
		}
		if final, ok := strings.CutSuffix(stripped, " "); ok {
			return final
		}
	}
	return record
}

// StripUnits removes the trailing unit from every record
func StripUnits(records []string, units UnitTable) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = units.Strip(r)
	}
	return out
}
