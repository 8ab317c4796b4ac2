package apcaccess

import (
	"context"
	"time"
)

// Fetch requests the status from the NIS and parses it.
// On failure no snapshot is returned, only the *IOError.
func (c *Client) Fetch(ctx context.Context) (Snapshot, error) {
	raw, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}

	units := c.Units
	if units == nil {
		units = DefaultUnits
	}
	return Parser{StripUnits: c.StripUnits, Units: units}.Parse(raw), nil
}

// Fetch is a one-shot helper for callers that don't keep a Client around
func Fetch(host string, port uint16, timeout time.Duration, stripUnits bool) (Snapshot, error) {
	return NewClient(host, port, timeout, stripUnits).Fetch(context.Background())
}
