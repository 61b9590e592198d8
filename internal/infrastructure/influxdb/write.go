package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteStateMetric writes a numeric property state sample to InfluxDB.
//
// This is the primary method for recording property state telemetry.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - entityKind: Owning entity kind ("connector", "device", "channel")
//   - propertyID: Unique identifier of the property
//   - field: Which state field the sample represents ("actual", "expected")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteStateMetric("channel", "0197e9cf-...", "actual", 21.5)
func (c *Client) WriteStateMetric(entityKind, propertyID, field string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"property_state",
		map[string]string{
			"entity_kind": entityKind,
			"property_id": propertyID,
			"field":       field,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writes.WritePoint(point)
}

// WriteStateFlag writes a boolean property state flag (valid, pending).
//
// Stored as 0/1 so dashboards can graph availability over time.
func (c *Client) WriteStateFlag(entityKind, propertyID, flag string, set bool) {
	if !c.IsConnected() {
		return
	}

	v := 0
	if set {
		v = 1
	}

	point := write.NewPoint(
		"property_state_flags",
		map[string]string{
			"entity_kind": entityKind,
			"property_id": propertyID,
			"flag":        flag,
		},
		map[string]interface{}{
			"value": v,
		},
		time.Now(),
	)

	c.writes.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writes.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writes.WritePoint(point)
}
