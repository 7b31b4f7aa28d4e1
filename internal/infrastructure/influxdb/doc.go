// Package influxdb records Lumen telemetry in InfluxDB v2.
//
// It wraps influxdb-client-go with connection management, health checks and
// a handful of typed writers for the measurements Lumen produces:
//
//	lumen_state   blackout, active_looks           tags: site
//	lumen_look    level                            tags: site, look
//	lumen_output  frames, packets, send_errors,    tags: site, protocol
//	              skipped, restarts, universes,
//	              running
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval; failures arrive through the SetOnError callback.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.WriteLookLevel("main-stage", "warm", 0.6)
package influxdb
