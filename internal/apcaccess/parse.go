package apcaccess

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// sep separates a record's key from its value
const sep = ":"

// Snapshot is one complete status report keyed by apcupsd mnemonic
// (LINEV, STATUS, ...). It is built in one go and never mutated afterwards.
type Snapshot map[string]string

// Keys returns the keys in lexicographic order
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value for key and whether it was present
func (s Snapshot) Get(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}

func (s Snapshot) Len() int {
	return len(s)
}

// Clone returns an independent copy
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Split removes the terminator, splits the response on NUL bytes and strips
// each record's length byte and trailing newline.
//
// The length byte is dropped without being checked against the record.
// Cutting by byte count can split a multi-byte rune when the peer closed
// early, so each record is re-validated and broken runes become U+FFFD.
func Split(raw string) []string {
	if len(raw) < len(terminator) {
		return []string{}
	}

	body := raw[:len(raw)-len(terminator)]

	records := []string{}
	for _, frag := range strings.Split(body, "\x00") {
		if len(frag) <= 2 {
			continue
		}

		// The length byte may have been replaced during decoding, so drop a rune.
		_, size := utf8.DecodeRuneInString(frag)
		if size >= len(frag)-1 {
			continue
		}

		records = append(records, strings.ToValidUTF8(frag[size:len(frag)-1], "\uFFFD"))
	}

	return records
}

// Parser turns raw status responses into snapshots
type Parser struct {
	StripUnits bool
	Units      UnitTable
}

// Parse splits raw into records, optionally strips units and folds the
// "KEY : VALUE" records into a snapshot. Records without a separator or
// with an empty key are dropped. Parse never fails.
func (p Parser) Parse(raw string) Snapshot {
	records := Split(raw)

	if p.StripUnits {
		units := p.Units
		if units == nil {
			units = DefaultUnits
		}
		records = StripUnits(records, units)
	}

	snap := make(Snapshot, len(records))
	for _, rec := range records {
		key, value, ok := strings.Cut(rec, sep)
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		snap[key] = strings.TrimSpace(value)
	}

	return snap
}

// Parse parses raw with the default unit table
func Parse(raw string, stripUnits bool) Snapshot {
	return Parser{StripUnits: stripUnits, Units: DefaultUnits}.Parse(raw)
}
