// Package influxdb publishes execution metrics to InfluxDB v2.
//
// Every spawn attempt becomes one point in the command_attempt measurement,
// tagged by command name and outcome, carrying the attempt number, exit code,
// and duration as fields. The client satisfies the executor's Recorder
// interface, so it attaches to a run the same way the history store does.
//
// Writes use the non-blocking batched API: points buffer locally and flush
// on an interval, and async write failures surface through SetOnError. A
// metrics outage therefore costs data points, never execution time.
package influxdb
