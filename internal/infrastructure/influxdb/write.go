package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementState  = "lumen_state"
	MeasurementLook   = "lumen_look"
	MeasurementOutput = "lumen_output"
)

// OutputCounters are the cumulative output engine counters at one instant.
type OutputCounters struct {
	Protocol   string
	Running    bool
	Universes  int
	Frames     uint64
	Packets    uint64
	SendErrors uint64
	Skipped    uint64
	Restarts   uint64
}

// WriteState records the blackout flag and how many looks are above zero.
func (c *Client) WriteState(site string, blackout bool, activeLooks int) {
	c.WritePoint(MeasurementState,
		map[string]string{"site": site},
		map[string]interface{}{
			"blackout":     blackout,
			"active_looks": activeLooks,
		},
	)
}

// WriteLookLevel records one look's level on the 0-1 scale.
func (c *Client) WriteLookLevel(site, lookID string, level float64) {
	c.WritePoint(MeasurementLook,
		map[string]string{"site": site, "look": lookID},
		map[string]interface{}{"level": level},
	)
}

// WriteOutput records the output engine counters. Counters are cumulative;
// use derivative() when querying rates.
func (c *Client) WriteOutput(site string, o OutputCounters) {
	protocol := o.Protocol
	if protocol == "" {
		protocol = "none"
	}
	// #nosec G115 -- counters stay far below math.MaxInt64
	c.WritePoint(MeasurementOutput,
		map[string]string{"site": site, "protocol": protocol},
		map[string]interface{}{
			"running":     o.Running,
			"universes":   o.Universes,
			"frames":      int64(o.Frames),
			"packets":     int64(o.Packets),
			"send_errors": int64(o.SendErrors),
			"skipped":     int64(o.Skipped),
			"restarts":    int64(o.Restarts),
		},
	)
}

// WritePoint writes a custom point stamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
