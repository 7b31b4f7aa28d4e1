// Package telemetry feeds Lumen runtime statistics into InfluxDB.
//
// A Recorder subscribes to state changes and writes the blackout flag, the
// number of active looks and every look level that moved. On a fixed
// interval it samples the output engine counters. Writes go through the
// batched, non-blocking influxdb client so the state writer is never held up
// by the network.
package telemetry
