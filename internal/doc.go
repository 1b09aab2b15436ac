// Package energybridge collects home energy-metering readings into a
// time series store.
//
// # Architecture
//
// The module is structured into several key packages:
//   - readings: typed reading validation and point conversion
//   - usage: DST-safe expansion of daily usage reports into hourly points
//   - api: DTE customer portal client and the historical backfill driver
//   - bridge: live MQTT pipeline from the local energy bridge
//   - database: TimescaleDB point storage shared by both pipelines
//   - config: explicit configuration for both entry points
//
// Two independent entry points share the point sink:
//
//   - cmd/bridge subscribes to the meter's local broker and writes one
//     point per recognized message, indefinitely.
//
//   - cmd/usage signs in to the utility API, fetches the last 30 days
//     of hourly usage, expands each local day into UTC-stamped points
//     (23, 24, or 25 per day around daylight-saving transitions), and
//     writes them in one batch.
//
// Points are write-once records (measurement, UTC time, tags, fields);
// nothing in this module reads them back.
package energybridge
